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

package image

import (
	"encoding/binary"
)

// TrackSignature is the magic at the start of every track record.
const TrackSignature = "TRK"

// trackHeaderLength is signature plus track number
const trackHeaderLength = 4

// revolutionLength is the size of one revolution descriptor
const revolutionLength = 12

/*
	Revolution describes one captured revolution of a track: the total
	time the revolution took, the number of 16 bit sample units, and
	the byte offset of the sample data relative to the start of the
	track record.
*/
type Revolution struct {
	Duration  uint32
	NrSamples uint32
	Offset    uint32
}

/*
	Track is a parsed track record. Sample data stays in the underlying
	image buffer and is decoded on demand via Samples.
*/
type Track struct {
	Nr          int
	Revolutions []Revolution
	//
	offset uint32
	data   []byte
}

/*
	Track parses the record of track nr from the image. The record's
	signature and track number field are validated against the table
	index before any of its revolution descriptors are trusted.
*/
func (c *Container) Track(nr int) (*Track, error) {
	return ParseTrackRecord(c.data, c.Offset(nr), nr, c.Revolutions)
}

/*
	ParseTrackRecord decodes a track record at the given byte offset.
	Each revolution descriptor is three little-endian 32 bit values in
	file order: duration, sample count, data offset.
*/
func ParseTrackRecord(
	data []byte, offset uint32, nr, revolutions int) (*Track, error) {

	if offset == 0 {
		return nil, formatErrorf("track %d: absent from image", nr)
	}

	if revolutions < 1 {
		revolutions = 1
	}

	need := int(offset) + trackHeaderLength + revolutions*revolutionLength
	if int(offset) < 0 || need > len(data) {
		return nil, formatErrorf(
			"track %d: record at %d truncated, image is %d bytes",
			nr, offset, len(data))
	}

	rec := data[offset:]

	if string(rec[:len(TrackSignature)]) != TrackSignature {
		return nil, formatErrorf(
			"track %d: bad record signature %q, want %q",
			nr, rec[:len(TrackSignature)], TrackSignature)
	}

	if int(rec[3]) != nr {
		return nil, formatErrorf(
			"track %d: record claims to be track %d", nr, rec[3])
	}

	t := &Track{
		Nr:          nr,
		Revolutions: make([]Revolution, revolutions),
		offset:      offset,
		data:        data,
	}

	for ix := range t.Revolutions {
		d := rec[trackHeaderLength+ix*revolutionLength:]
		t.Revolutions[ix] = Revolution{
			Duration:  binary.LittleEndian.Uint32(d),
			NrSamples: binary.LittleEndian.Uint32(d[4:]),
			Offset:    binary.LittleEndian.Uint32(d[8:]),
		}
		// a zero duration would later mean division by zero when
		// resampling against it
		if t.Revolutions[ix].Duration == 0 {
			return nil, formatErrorf(
				"track %d: revolution %d has zero duration", nr, ix)
		}
	}

	return t, nil
}

/*
	Samples decodes the sample data of the given revolution: NrSamples
	16 bit units, stored big-endian, at the revolution's offset
	relative to the track record. Note the asymmetry with the record
	fields, which are little-endian; both byte orders are dictated by
	the format.
*/
func (t *Track) Samples(rev int) ([]uint16, error) {

	if rev < 0 || rev >= len(t.Revolutions) {
		return nil, formatErrorf(
			"track %d: no revolution %d, record has %d",
			t.Nr, rev, len(t.Revolutions))
	}

	r := t.Revolutions[rev]
	start := int(t.offset) + int(r.Offset)
	end := start + int(r.NrSamples)*2

	if start < int(t.offset) || end > len(t.data) {
		return nil, formatErrorf(
			"track %d: sample data [%d:%d] outside image of %d bytes",
			t.Nr, start, end, len(t.data))
	}

	samples := make([]uint16, r.NrSamples)
	for ix := range samples {
		samples[ix] = binary.BigEndian.Uint16(t.data[start+ix*2:])
	}

	return samples, nil
}
