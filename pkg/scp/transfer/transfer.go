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
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/fluxlab/scpwrite/pkg/scp/flux"
	"github.com/fluxlab/scpwrite/pkg/scp/image"
)

/*
	Device is the replay hardware the resampled flux gets handed to.
	All methods block until the hardware is done; their errors pass
	through the transfer unmodified, without retries.
*/
type Device interface {
	// Seek positions the head over the given track.
	Seek(track int) error
	// ReferencePeriod measures the drive's time for one revolution,
	// in the device's native timing unit.
	ReferencePeriod() (uint32, error)
	// WriteFlux writes one revolution's worth of flux sample units to
	// the current track.
	WriteFlux(samples []uint16) error
}

/*
	Config carries the per-run parameters of a transfer. Start and End
	are the inclusive track range to write; Progress, when set, is
	called once per written track.
*/
type Config struct {
	Start    int
	End      int
	Progress func(track int)
}

// RangeError indicates an invalid track range supplied by the caller.
// It is reported before any file or device I/O happens.
type RangeError struct {
	Start int
	End   int
}

//
func (e *RangeError) Error() string {
	return fmt.Sprintf("bad track range %d-%d", e.Start, e.End)
}

/*
	Write transfers the requested track range from img to dev, one
	track at a time, in increasing order. Tracks absent from the image
	or outside its recorded bounds are skipped silently; a partial
	image is a normal input shape. The drive's reference period is
	measured once, over track 0, and every present track's first
	revolution is resampled against it before being written.
*/
func Write(img *image.Container, dev Device, cfg Config) error {

	if cfg.End >= image.MaxTracks || cfg.Start > cfg.End {
		return &RangeError{Start: cfg.Start, End: cfg.End}
	}

	if err := dev.Seek(0); err != nil {
		return err
	}

	drvtime, err := dev.ReferencePeriod()
	if err != nil {
		return err
	}

	log.Debugf("drive reference period: %d", drvtime)

	for trk := cfg.Start; trk <= cfg.End; trk++ {

		if !img.HasTrack(trk) {
			log.Tracef("track %d not in image, skipping", trk)
			continue
		}

		if err := writeTrack(img, dev, trk, drvtime); err != nil {
			return err
		}

		if cfg.Progress != nil {
			cfg.Progress(trk)
		}
	}

	return nil
}

//
func writeTrack(
	img *image.Container, dev Device, trk int, drvtime uint32) error {

	t, err := img.Track(trk)
	if err != nil {
		return err
	}

	imtime := t.Revolutions[0].Duration

	samples, err := t.Samples(0)
	if err != nil {
		return err
	}

	out, err := flux.Resample(samples, imtime, drvtime)
	if err != nil {
		return err
	}

	log.Tracef("track %d: %d samples in, %d out", trk, len(samples), len(out))

	if err := dev.Seek(trk); err != nil {
		return err
	}

	return dev.WriteFlux(out)
}
