/*
   scpwrite - SuperCard Pro flux image writer
   Copyright (c) 2022, the scpwrite authors

   This file is part of scpwrite.

   scpwrite is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   scpwrite is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with scpwrite. If not, see <http://www.gnu.org/licenses/>.
*/

package control

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fluxlab/scpwrite/pkg/scp/image"
)

//
type fakeDevice struct {
	writes int
}

//
func (d *fakeDevice) Seek(track int) error {
	return nil
}

//
func (d *fakeDevice) ReferencePeriod() (uint32, error) {
	return 100000, nil
}

//
func (d *fakeDevice) WriteFlux(samples []uint16) error {
	d.writes++
	return nil
}

// testImage builds a one track image with a correct checksum
func testImage() []byte {

	data := make([]byte, image.PreambleLength+image.MaxTracks*4)
	copy(data, image.Signature)
	data[5] = 1 // revolutions
	data[7] = 1 // end track

	binary.LittleEndian.PutUint32(data[image.PreambleLength:],
		uint32(len(data)))

	rec := make([]byte, 16, 18)
	copy(rec, image.TrackSignature)
	binary.LittleEndian.PutUint32(rec[4:], 200000) // duration
	binary.LittleEndian.PutUint32(rec[8:], 1)      // samples
	binary.LittleEndian.PutUint32(rec[12:], 16)    // data offset
	rec = append(rec, 0x12, 0x34)
	data = append(data, rec...)

	var sum uint32
	for _, b := range data[image.PreambleLength:] {
		sum += uint32(b)
	}
	binary.LittleEndian.PutUint32(data[12:], sum)

	return data
}

//
func testServer(t *testing.T) (*api, *fakeDevice, *httptest.Server) {
	dev := &fakeDevice{}
	a := NewAPIServer("", "fake board", dev).(*api)
	srv := httptest.NewServer(a.router())
	t.Cleanup(srv.Close)
	return a, dev, srv
}

//
func TestPing(t *testing.T) {

	_, _, srv := testServer(t)

	resp, err := http.Get(srv.URL + "/ping")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("bad status: %d", resp.StatusCode)
	}
}

//
func TestStatusIdle(t *testing.T) {

	_, _, srv := testServer(t)

	req, _ := http.NewRequest("GET", srv.URL+"/status", nil)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	var stat Status
	if err := json.NewDecoder(resp.Body).Decode(&stat); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}

	if stat.Busy {
		t.Error("fresh server should be idle")
	}
	if stat.Device != "fake board" {
		t.Errorf("bad device info: %q", stat.Device)
	}
}

//
func TestWriteEndpoint(t *testing.T) {

	_, dev, srv := testServer(t)

	req, _ := http.NewRequest("PUT",
		srv.URL+"/write?start=0&end=1", bytes.NewReader(testImage()))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("bad status: %d", resp.StatusCode)
	}
	if dev.writes != 1 {
		t.Errorf("want 1 write, got %d", dev.writes)
	}
}

//
func TestWriteEndpointRejectsGarbage(t *testing.T) {

	_, dev, srv := testServer(t)

	req, _ := http.NewRequest("PUT",
		srv.URL+"/write", bytes.NewReader([]byte("not an image")))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("bad status: %d", resp.StatusCode)
	}
	if dev.writes != 0 {
		t.Error("no write should happen for a rejected image")
	}
}

//
func TestWriteEndpointRejectsBadRange(t *testing.T) {

	_, dev, srv := testServer(t)

	req, _ := http.NewRequest("PUT",
		srv.URL+"/write?start=5&end=4", bytes.NewReader(testImage()))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("bad status: %d", resp.StatusCode)
	}
	if dev.writes != 0 {
		t.Error("no write should happen for a bad range")
	}

	// the range check comes before the body; garbage there must still
	// come back as a range complaint
	req, _ = http.NewRequest("PUT",
		srv.URL+"/write?end=999", bytes.NewReader([]byte("not an image")))

	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("bad status: %d", resp.StatusCode)
	}
	body, _ := ioutil.ReadAll(resp.Body)
	if !strings.Contains(string(body), "track range") {
		t.Errorf("want a range complaint, got %q", body)
	}
}

//
func TestWriteEndpointBusy(t *testing.T) {

	a, dev, srv := testServer(t)

	if !a.state.begin() {
		t.Fatal("could not claim state")
	}
	defer a.state.end(nil)

	req, _ := http.NewRequest("PUT",
		srv.URL+"/write", bytes.NewReader(testImage()))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Errorf("bad status: %d", resp.StatusCode)
	}
	if dev.writes != 0 {
		t.Error("no write should happen while busy")
	}
}
