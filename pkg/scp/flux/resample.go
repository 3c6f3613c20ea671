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

package flux

import (
	"errors"
)

/*
	SentinelTicks is the tick count represented by a sample unit of
	zero. A 16 bit unit cannot hold an interval of 65536 ticks or more,
	so a stored zero means "add 65536 ticks and keep accumulating";
	only the final unit of such a run carries a literal value.
*/
const SentinelTicks = 0x10000

// ErrZeroPeriod is returned when the image clock period is zero; the
// resampler never divides before checking.
var ErrZeroPeriod = errors.New("image clock period is zero")

/*
	Resample converts a revolution's flux intervals from the image
	clock to the clock of the target drive. imtime is the revolution
	duration recorded in the image, drvtime the measured duration of
	one revolution on the target drive, both in the same native timing
	unit. The output expresses the same physical intervals, stretched
	by drvtime/imtime.

	Each interval is scaled through a 64 bit accumulator; after every
	emitted unit, the remainder of the integer division is carried into
	the next interval. The carry keeps the rounding error bounded per
	unit instead of drifting across the revolution. Intervals that
	scale to 65536 ticks or more are emitted as a run of sentinel units
	followed by the remainder; a remainder that rounds to exactly zero
	is clamped to 1, since a literal zero unit would read back as a
	sentinel.
*/
func Resample(samples []uint16, imtime, drvtime uint32) ([]uint16, error) {

	if imtime == 0 {
		return nil, ErrZeroPeriod
	}

	out := make([]uint16, 0, len(samples)+len(samples)/16)
	var x uint64

	for ix, s := range samples {

		if s != 0 {
			x += uint64(s) * uint64(drvtime)
		} else {
			x += SentinelTicks * uint64(drvtime)
			// a sentinel only flushes when it is the last sample of
			// the revolution
			if ix < len(samples)-1 {
				continue
			}
		}

		y := x / uint64(imtime)
		for y >= SentinelTicks {
			out = append(out, 0)
			y -= SentinelTicks
		}
		if y == 0 {
			y = 1
		}
		out = append(out, uint16(y))

		x %= uint64(imtime) // carry the fractional part
	}

	return out, nil
}

/*
	Ticks sums a sample sequence under the sentinel convention: every
	zero unit counts as 65536 ticks, every other unit as its literal
	value.
*/
func Ticks(samples []uint16) uint64 {
	var total uint64
	for _, s := range samples {
		if s == 0 {
			total += SentinelTicks
		} else {
			total += uint64(s)
		}
	}
	return total
}
