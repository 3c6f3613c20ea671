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

package transfer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/fluxlab/scpwrite/pkg/scp/flux"
	"github.com/fluxlab/scpwrite/pkg/scp/image"
)

//
type fakeDevice struct {
	period   uint32
	seeks    []int
	writes   [][]uint16
	measured bool
}

//
func (d *fakeDevice) Seek(track int) error {
	d.seeks = append(d.seeks, track)
	return nil
}

//
func (d *fakeDevice) ReferencePeriod() (uint32, error) {
	if d.measured {
		return 0, fmt.Errorf("reference period measured twice")
	}
	d.measured = true
	return d.period, nil
}

//
func (d *fakeDevice) WriteFlux(samples []uint16) error {
	cp := make([]uint16, len(samples))
	copy(cp, samples)
	d.writes = append(d.writes, cp)
	return nil
}

//
type testTrack struct {
	nr       int
	duration uint32
	samples  []uint16
}

// buildImage assembles a minimal valid single revolution SCP image
func buildImage(start, end int, tracks []testTrack) *image.Container {

	data := make([]byte, image.PreambleLength+image.MaxTracks*4)

	copy(data, image.Signature)
	data[5] = 1 // revolutions
	data[6] = byte(start)
	data[7] = byte(end)

	for _, trk := range tracks {

		binary.LittleEndian.PutUint32(
			data[image.PreambleLength+trk.nr*4:], uint32(len(data)))

		rec := make([]byte, 16)
		copy(rec, image.TrackSignature)
		rec[3] = byte(trk.nr)
		binary.LittleEndian.PutUint32(rec[4:], trk.duration)
		binary.LittleEndian.PutUint32(rec[8:], uint32(len(trk.samples)))
		binary.LittleEndian.PutUint32(rec[12:], 16)
		data = append(data, rec...)

		for _, s := range trk.samples {
			data = append(data, byte(s>>8), byte(s))
		}
	}

	var sum uint32
	for _, b := range data[image.PreambleLength:] {
		sum += uint32(b)
	}
	binary.LittleEndian.PutUint32(data[12:], sum)

	img, err := image.Parse(data)
	if err != nil {
		panic(err)
	}
	return img
}

//
func TestWriteResamples(t *testing.T) {

	samples := []uint16{100, 0, 50000}
	img := buildImage(0, 1, []testTrack{
		{nr: 0, duration: 200000, samples: samples},
	})

	dev := &fakeDevice{period: 100000}
	var progressed []int

	err := Write(img, dev, Config{
		Start: 0,
		End:   1,
		Progress: func(track int) {
			progressed = append(progressed, track)
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// seek to 0 for the reference measurement, then to the track
	if !reflect.DeepEqual(dev.seeks, []int{0, 0}) {
		t.Errorf("bad seek sequence: %v", dev.seeks)
	}

	if len(dev.writes) != 1 {
		t.Fatalf("want 1 write, got %d", len(dev.writes))
	}

	want, err := flux.Resample(samples, 200000, 100000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(dev.writes[0], want) {
		t.Errorf("written flux %v, want %v", dev.writes[0], want)
	}

	if !reflect.DeepEqual(progressed, []int{0}) {
		t.Errorf("bad progress reports: %v", progressed)
	}
}

//
func TestWriteSkipsAbsentTracks(t *testing.T) {

	img := buildImage(0, 5, []testTrack{
		{nr: 2, duration: 1000, samples: []uint16{10, 20}},
	})

	dev := &fakeDevice{period: 1000}

	if err := Write(img, dev, Config{Start: 0, End: 5}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(dev.writes) != 1 {
		t.Fatalf("want 1 write, got %d", len(dev.writes))
	}
	if !reflect.DeepEqual(dev.seeks, []int{0, 2}) {
		t.Errorf("bad seek sequence: %v", dev.seeks)
	}
}

//
func TestWriteSkipsTracksOutsideImageBounds(t *testing.T) {

	img := buildImage(2, 3, []testTrack{
		{nr: 2, duration: 1000, samples: []uint16{10}},
		{nr: 3, duration: 1000, samples: []uint16{20}},
	})

	dev := &fakeDevice{period: 1000}

	// request more than the image holds; the excess is not an error
	if err := Write(img, dev, Config{Start: 0, End: 80}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(dev.writes) != 2 {
		t.Fatalf("want 2 writes, got %d", len(dev.writes))
	}
}

//
func TestWriteRejectsBadRange(t *testing.T) {

	img := buildImage(0, 1, []testTrack{
		{nr: 0, duration: 1000, samples: []uint16{1}},
	})

	cases := []struct {
		name       string
		start, end int
	}{
		{"endBeyondLimit", 0, image.MaxTracks},
		{"startAfterEnd", 5, 4},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {

			dev := &fakeDevice{period: 1000}
			err := Write(img, dev, Config{Start: c.start, End: c.end})

			var re *RangeError
			if !errors.As(err, &re) {
				t.Fatalf("want RangeError, got %v", err)
			}

			// rejected before any device traffic
			if len(dev.seeks) != 0 || dev.measured {
				t.Error("device touched despite bad range")
			}
		})
	}
}

//
func TestWriteZeroDurationTrack(t *testing.T) {

	img := buildImage(0, 0, []testTrack{
		{nr: 0, duration: 0, samples: []uint16{1}},
	})

	dev := &fakeDevice{period: 1000}
	err := Write(img, dev, Config{Start: 0, End: 0})

	var fe *image.FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("want FormatError, got %v", err)
	}

	if len(dev.writes) != 0 {
		t.Error("no write should happen for a corrupt track")
	}
}
