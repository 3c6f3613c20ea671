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

	log "github.com/sirupsen/logrus"

	"github.com/fluxlab/scpwrite/pkg/scp/device"
	"github.com/fluxlab/scpwrite/pkg/scp/image"
	"github.com/fluxlab/scpwrite/pkg/scp/transfer"
)

//
func NewWrite() *Write {

	w := &Write{}
	w.Runner = *NewRunner(
		`write -i|--input {file} -d|--device {device} [-s|--start {track}]
      [-e|--end {track}] [-k|--step-delay {ms}] [-K|--settle-delay {ms}] [-q|--quiet]`,
		"write flux image to disk",
		`
Use the write command to write an SCP flux image to a disk in the drive attached
to a SuperCard Pro board. The image's flux timings are resampled to the actual
rotation speed of the target drive before writing.`,
		runnerHelpEpilogue, w.Run)

	w.AddStringSetting(&w.Input, "input", "i", "", "",
		"flux image input file", true)
	w.AddStringSetting(&w.Device, "device", "d", "SCPWRITE_DEVICE", "",
		"serial port device of the SuperCard Pro board", true)
	w.AddIntSetting(&w.Start, "start", "s", "", 0,
		"first track to write", false)
	w.AddIntSetting(&w.End, "end", "e", "", 163,
		"last track to write", false)
	w.AddIntSetting(&w.StepDelay, "step-delay", "k", "", 5,
		"delay between head steps, milliseconds", false)
	w.AddIntSetting(&w.SettleDelay, "settle-delay", "K", "", 15,
		"settle time after seek, milliseconds", false)
	w.AddBoolSetting(&w.Quiet, "quiet", "q", "", false,
		"quiesce normal informational output")

	return w
}

//
type Write struct {
	//
	Runner
	//
	Input       string
	Device      string
	Start       int
	End         int
	StepDelay   int
	SettleDelay int
	Quiet       bool
}

//
func (w *Write) Run() error {

	w.ParseSettings()

	// a nonsensical range is the caller's mistake; report it before
	// touching the image file or the hardware
	if w.End >= image.MaxTracks || w.Start > w.End {
		return &transfer.RangeError{Start: w.Start, End: w.End}
	}

	data, err := ioutil.ReadFile(w.Input)
	if err != nil {
		return err
	}

	img, err := image.Parse(data)
	if err != nil {
		return fmt.Errorf("%s: %v", w.Input, err)
	}

	log.Debugf("image tracks %d-%d, %d revolutions per track",
		img.StartTrack, img.EndTrack, img.Revolutions)

	dev, err := device.Open(w.Device, deviceParams(w.StepDelay, w.SettleDelay))
	if err != nil {
		return err
	}
	defer dev.Close()

	if !w.Quiet {
		info, err := dev.Info()
		if err != nil {
			return err
		}
		fmt.Println(info)
	}

	cfg := transfer.Config{Start: w.Start, End: w.End}
	if !w.Quiet {
		cfg.Progress = func(track int) {
			fmt.Printf("\rwriting track %-4d...", track)
		}
	}

	if err := transfer.Write(img, dev, cfg); err != nil {
		if !w.Quiet {
			fmt.Println()
		}
		return err
	}

	if !w.Quiet {
		fmt.Println(" done")
	}
	return nil
}
