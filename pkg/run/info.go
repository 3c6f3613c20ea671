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

package run

import (
	"fmt"
	"io/ioutil"

	"github.com/fluxlab/scpwrite/pkg/scp/flux"
	"github.com/fluxlab/scpwrite/pkg/scp/image"
)

//
func NewInfo() *Info {

	i := &Info{}
	i.Runner = *NewRunner(
		"info -i|--input {file} [-t|--tracks]",
		"show flux image details",
		`
Use the info command to list header details of an SCP flux image, and optionally
a per-track table of its revolutions.`,
		runnerHelpEpilogue, i.Run)

	i.AddStringSetting(&i.Input, "input", "i", "", "",
		"flux image input file", true)
	i.AddBoolSetting(&i.Tracks, "tracks", "t", "", false,
		"also list the image's tracks")

	return i
}

//
type Info struct {
	//
	Runner
	//
	Input  string
	Tracks bool
}

//
func (i *Info) Run() error {

	i.ParseSettings()

	data, err := ioutil.ReadFile(i.Input)
	if err != nil {
		return err
	}

	img, err := image.Parse(data)
	if err != nil {
		return fmt.Errorf("%s: %v", i.Input, err)
	}

	fmt.Printf(`
file:        %s
version:     %d.%d
disk type:   %#02x
tracks:      %d-%d
revolutions: %d
flags:       %#02x (writable: %t, index cued: %t, footer: %t)
resolution:  %d
checksum:    %#08x
`,
		i.Input, img.Version>>4, img.Version&0x0f, img.DiskType,
		img.StartTrack, img.EndTrack, img.Revolutions,
		img.Flags, img.Writable(), img.IndexCued(), img.HasFooter(),
		img.Resolution, img.Checksum)

	if !i.Tracks {
		return nil
	}

	fmt.Printf("\nTRACK SAMPLES  DURATION  TICKS\n")

	for trk := img.StartTrack; trk <= img.EndTrack; trk++ {

		if !img.HasTrack(trk) {
			continue
		}

		t, err := img.Track(trk)
		if err != nil {
			return err
		}

		samples, err := t.Samples(0)
		if err != nil {
			return err
		}

		rev := t.Revolutions[0]
		fmt.Printf(" %-4d %8d %9d %6d\n",
			trk, rev.NrSamples, rev.Duration, flux.Ticks(samples))
	}

	return nil
}
