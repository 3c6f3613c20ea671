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

package device

import (
	"fmt"
	"io"
)

// SuperCard Pro command opcodes
const (
	cmdSelectA     = 0x80
	cmdDeselectA   = 0x82
	cmdMotorAOn    = 0x84
	cmdMotorAOff   = 0x86
	cmdSeek0       = 0x88
	cmdStepTo      = 0x89
	cmdSetParams   = 0x91
	cmdReadFlux    = 0xa0
	cmdGetFluxInfo = 0xa1
	cmdWriteFlux   = 0xa2
	cmdLoadRAM     = 0xaa
	cmdInfo        = 0xd0
)

// prOK is the status byte the hardware answers with on success.
const prOK = 0x4f

// checksumSeed starts the additive frame checksum.
const checksumSeed = 0x4a

// nrFluxInfoRevs is the number of revolution slots in a flux info
// response, fixed by the hardware.
const nrFluxInfoRevs = 5

// status byte meanings, from the SuperCard Pro firmware manual
var statusText = map[byte]string{
	0x01: "bad command",
	0x02: "command error",
	0x03: "packet checksum failed",
	0x04: "USB timeout",
	0x05: "track 0 not found",
	0x06: "no drive selected",
	0x07: "no motor enabled",
	0x08: "not ready",
	0x09: "no index pulse detected",
	0x0a: "zero revolutions chosen",
	0x0b: "read too long",
	0x0c: "invalid length",
	0x0e: "location boundary is odd",
	0x0f: "disk write protected",
	0x10: "RAM test failed",
	0x11: "no disk in drive",
	0x12: "bad baud rate selected",
	0x13: "bad command for firmware",
}

/*
	sendCommand frames and transmits one command: opcode, payload
	length, payload, additive checksum over all preceding frame bytes.
*/
func sendCommand(port io.Writer, cmd byte, payload []byte) error {

	frame := make([]byte, 0, len(payload)+3)
	frame = append(frame, cmd, byte(len(payload)))
	frame = append(frame, payload...)
	frame = append(frame, frameChecksum(frame))

	if _, err := port.Write(frame); err != nil {
		return fmt.Errorf("error sending command %#02x: %v", cmd, err)
	}
	return nil
}

//
func frameChecksum(frame []byte) byte {
	var sum byte = checksumSeed
	for _, b := range frame {
		sum += b
	}
	return sum
}

/*
	readAck reads the two byte acknowledgement of a command: the echoed
	opcode and a status byte.
*/
func readAck(port io.Reader, cmd byte) error {

	ack := make([]byte, 2)
	if _, err := io.ReadFull(port, ack); err != nil {
		return fmt.Errorf("error reading ack for %#02x: %v", cmd, err)
	}

	if ack[0] != cmd {
		return fmt.Errorf(
			"ack for wrong command: got %#02x, want %#02x", ack[0], cmd)
	}

	if ack[1] != prOK {
		if msg, ok := statusText[ack[1]]; ok {
			return fmt.Errorf("command %#02x failed: %s", cmd, msg)
		}
		return fmt.Errorf("command %#02x failed: status %#02x", cmd, ack[1])
	}

	return nil
}
