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

// Signature is the magic at the start of every SCP image.
const Signature = "SCP"

// MaxTracks is the number of entries in the track offset table. SCP
// images always carry the full table, regardless of how many tracks
// were actually captured.
const MaxTracks = 168

// PreambleLength is the size of the fixed image header. The checksum
// covers everything that follows it.
const PreambleLength = 16

// flag bits of the preamble flags field
const (
	FlagIndexCued  = 1 << 0
	Flag96TPI      = 1 << 1
	Flag360RPM     = 1 << 2
	FlagNormalized = 1 << 3
	FlagWritable   = 1 << 4
	FlagFooter     = 1 << 5
)

// byte positions within the preamble; this layout is versioned and
// must match existing images bit for bit
const (
	posVersion     = 3
	posDiskType    = 4
	posRevolutions = 5
	posStartTrack  = 6
	posEndTrack    = 7
	posFlags       = 8
	posCellWidth   = 9
	posHeads       = 10
	posResolution  = 11
	posChecksum    = 12
)

/*
	Container is a parsed SCP image. It holds the decoded preamble
	fields and the track offset table, and retains the raw image bytes
	for lazily reading track records and their sample data. A Container
	is read-only; it is parsed once per run.
*/
type Container struct {
	//
	Version     byte
	DiskType    byte
	Revolutions int
	StartTrack  int
	EndTrack    int
	Flags       byte
	CellWidth   byte
	Heads       byte
	Resolution  byte
	Checksum    uint32
	//
	offsets []uint32
	data    []byte
}

/*
	Parse decodes an SCP image from data. It validates the signature,
	reads the track offset table, and verifies the payload checksum,
	unless the image carries the writable flag or declares a checksum
	of zero.
*/
func Parse(data []byte) (*Container, error) {

	c, err := ParseContainer(data)
	if err != nil {
		return nil, err
	}

	if err := VerifyChecksum(data, c.Checksum, c.Writable()); err != nil {
		return nil, err
	}

	if c.offsets, err = ReadTrackOffsets(data, c.EndTrack); err != nil {
		return nil, err
	}

	c.data = data
	return c, nil
}

/*
	ParseContainer decodes the fixed 16 byte preamble of an SCP image.
	Only the preamble is touched; the offset table and checksum are
	handled by ReadTrackOffsets and VerifyChecksum.
*/
func ParseContainer(data []byte) (*Container, error) {

	if len(data) < PreambleLength {
		return nil, formatErrorf(
			"image too short: %d bytes, need at least %d",
			len(data), PreambleLength)
	}

	if string(data[:len(Signature)]) != Signature {
		return nil, formatErrorf(
			"not an SCP image: signature %q, want %q",
			data[:len(Signature)], Signature)
	}

	c := &Container{
		Version:     data[posVersion],
		DiskType:    data[posDiskType],
		Revolutions: int(data[posRevolutions]),
		StartTrack:  int(data[posStartTrack]),
		EndTrack:    int(data[posEndTrack]),
		Flags:       data[posFlags],
		CellWidth:   data[posCellWidth],
		Heads:       data[posHeads],
		Resolution:  data[posResolution],
		Checksum:    binary.LittleEndian.Uint32(data[posChecksum:]),
	}

	if c.EndTrack >= MaxTracks {
		return nil, formatErrorf(
			"image end track %d out of range, limit is %d",
			c.EndTrack, MaxTracks-1)
	}

	return c, nil
}

/*
	VerifyChecksum recomputes the additive checksum over all bytes
	following the preamble and compares it against the declared value.
	Verification is skipped for writable images and for images that
	declare a checksum of zero; both count as unsealed and trusted.
*/
func VerifyChecksum(data []byte, declared uint32, writable bool) error {

	if writable || declared == 0 {
		return nil
	}

	if len(data) < PreambleLength {
		return formatErrorf(
			"image too short: %d bytes, need at least %d",
			len(data), PreambleLength)
	}

	var sum uint32
	for _, b := range data[PreambleLength:] {
		sum += uint32(b)
	}

	if sum != declared {
		return integrityErrorf(
			"image checksum mismatch: computed %#08x, declared %#08x",
			sum, declared)
	}

	return nil
}

/*
	ReadTrackOffsets reads the track offset table that immediately
	follows the preamble: endTrack+1 little-endian 32 bit byte offsets
	into the image. An offset of zero marks an absent track.
*/
func ReadTrackOffsets(data []byte, endTrack int) ([]uint32, error) {

	need := PreambleLength + (endTrack+1)*4
	if len(data) < need {
		return nil, formatErrorf(
			"image too short for offset table: %d bytes, need %d",
			len(data), need)
	}

	offsets := make([]uint32, endTrack+1)
	for ix := range offsets {
		offsets[ix] = binary.LittleEndian.Uint32(
			data[PreambleLength+ix*4:])
	}

	return offsets, nil
}

// Writable reports whether the image is the mutable variant that skips
// checksum verification.
func (c *Container) Writable() bool {
	return c.Flags&FlagWritable != 0
}

//
func (c *Container) IndexCued() bool {
	return c.Flags&FlagIndexCued != 0
}

//
func (c *Container) HasFooter() bool {
	return c.Flags&FlagFooter != 0
}

/*
	Offset returns the byte offset of the record for track nr, or zero
	if the track is absent or outside the image's recorded bounds.
*/
func (c *Container) Offset(nr int) uint32 {
	if nr < c.StartTrack || nr > c.EndTrack || nr >= len(c.offsets) {
		return 0
	}
	return c.offsets[nr]
}

//
func (c *Container) HasTrack(nr int) bool {
	return c.Offset(nr) != 0
}
