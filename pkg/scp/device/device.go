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
	"encoding/binary"
	"fmt"
	"io"

	"github.com/jacobsa/go-serial/serial"
	log "github.com/sirupsen/logrus"
)

// ramBase is where flux data lives in the hardware's RAM.
const ramBase = 0

/*
	Params are the drive timing parameters of the hardware: how long to
	wait after drive select and head steps, how long the head needs to
	settle after a seek, how long the motor takes to spin up, and after
	how long of no activity the hardware turns the drive off again.
*/
type Params struct {
	SelectDelayUS     uint16
	StepDelayUS       uint16
	SeekSettleDelayMS uint16
	MotorOnDelayMS    uint16
	AutoOffDelayMS    uint16
}

//
var DefaultParams = Params{
	SelectDelayUS:     1000,
	StepDelayUS:       5000,
	SeekSettleDelayMS: 15,
	MotorOnDelayMS:    750,
	AutoOffDelayMS:    20000,
}

/*
	SuperCard talks to a SuperCard Pro board over its USB serial port.
	All methods are synchronous and must not be called concurrently;
	the hardware serializes everything through one drive mechanism
	anyway.
*/
type SuperCard struct {
	port io.ReadWriteCloser
}

/*
	Open connects to the SuperCard Pro on the given serial device,
	configures it with the given timing parameters and selects drive A.
	The parameters go out before the drive select, so that already the
	first select and seek run with them rather than with whatever the
	firmware booted with.
*/
func Open(portName string, params Params) (*SuperCard, error) {

	port, err := serial.Open(serial.OpenOptions{
		PortName:        portName,
		BaudRate:        115200,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("error opening port %s: %v", portName, err)
	}

	s := &SuperCard{port: port}

	if err := s.initialize(params); err != nil {
		s.port.Close()
		return nil, err
	}

	return s, nil
}

//
func (s *SuperCard) initialize(params Params) error {
	if err := s.SetParams(params); err != nil {
		return err
	}
	if err := s.command(cmdSelectA, nil); err != nil {
		return err
	}
	return s.command(cmdMotorAOn, nil)
}

//
func (s *SuperCard) Close() error {
	if err := s.command(cmdMotorAOff, nil); err != nil {
		log.Errorf("error switching off motor: %v", err)
	}
	if err := s.command(cmdDeselectA, nil); err != nil {
		log.Errorf("error deselecting drive: %v", err)
	}
	return s.port.Close()
}

/*
	Info reads hardware and firmware version of the board, each as a
	major/minor nibble pair.
*/
func (s *SuperCard) Info() (string, error) {

	if err := s.command(cmdInfo, nil); err != nil {
		return "", err
	}

	ver := make([]byte, 2)
	if err := s.receive(ver); err != nil {
		return "", err
	}

	return fmt.Sprintf("SuperCard Pro, hardware v%d.%d, firmware v%d.%d",
		ver[0]>>4, ver[0]&0x0f, ver[1]>>4, ver[1]&0x0f), nil
}

//
func (s *SuperCard) SetParams(p Params) error {

	payload := make([]byte, 10)
	binary.BigEndian.PutUint16(payload[0:], p.SelectDelayUS)
	binary.BigEndian.PutUint16(payload[2:], p.StepDelayUS)
	binary.BigEndian.PutUint16(payload[4:], p.SeekSettleDelayMS)
	binary.BigEndian.PutUint16(payload[6:], p.MotorOnDelayMS)
	binary.BigEndian.PutUint16(payload[8:], p.AutoOffDelayMS)

	return s.command(cmdSetParams, payload)
}

// Seek positions the head over the given track. Track 0 uses the
// dedicated home command, which recalibrates against the track 0
// sensor.
func (s *SuperCard) Seek(track int) error {
	if track == 0 {
		return s.command(cmdSeek0, nil)
	}
	return s.command(cmdStepTo, []byte{byte(track)})
}

/*
	ReferencePeriod measures the drive's actual rotation speed: it
	captures one revolution of flux and returns its index-to-index
	time in the hardware's native timing unit.
*/
func (s *SuperCard) ReferencePeriod() (uint32, error) {

	// one revolution, wait for index
	if err := s.command(cmdReadFlux, []byte{1, 1}); err != nil {
		return 0, err
	}

	if err := s.command(cmdGetFluxInfo, nil); err != nil {
		return 0, err
	}

	info := make([]byte, nrFluxInfoRevs*8)
	if err := s.receive(info); err != nil {
		return 0, err
	}

	period := binary.BigEndian.Uint32(info)
	if period == 0 {
		return 0, fmt.Errorf("drive reported zero rotation period")
	}

	log.Debugf("drive speed: %d us per revolution (%.2f RPM)",
		period/40, 60000000.0/float64(period/40))

	return period, nil
}

/*
	WriteFlux uploads one revolution's worth of flux sample units into
	the hardware's RAM and writes it out to the current track. Sample
	units go over the wire big-endian, like everything the hardware
	speaks.
*/
func (s *SuperCard) WriteFlux(samples []uint16) error {

	data := make([]byte, len(samples)*2)
	for ix, sample := range samples {
		binary.BigEndian.PutUint16(data[ix*2:], sample)
	}

	payload := make([]byte, 8)
	binary.BigEndian.PutUint32(payload[0:], ramBase)
	binary.BigEndian.PutUint32(payload[4:], uint32(len(data)))
	if err := s.command(cmdLoadRAM, payload); err != nil {
		return err
	}

	if err := s.send(data); err != nil {
		return err
	}

	payload = make([]byte, 5)
	binary.BigEndian.PutUint32(payload[0:], uint32(len(samples)))
	payload[4] = 1 // wait for index before writing
	return s.command(cmdWriteFlux, payload)
}

//
func (s *SuperCard) command(cmd byte, payload []byte) error {
	if err := sendCommand(s.port, cmd, payload); err != nil {
		return err
	}
	return readAck(s.port, cmd)
}

//
func (s *SuperCard) receive(data []byte) error {
	_, err := io.ReadFull(s.port, data)
	return err
}

//
func (s *SuperCard) send(data []byte) error {
	_, err := s.port.Write(data)
	return err
}
