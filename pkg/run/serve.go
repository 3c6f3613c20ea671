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
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/fluxlab/scpwrite/pkg/control"
	"github.com/fluxlab/scpwrite/pkg/scp/device"
)

//
func NewServe() *Serve {

	s := &Serve{}
	s.Runner = *NewRunner(
		`serve -d|--device {device} [-a|--address {address}]
      [-k|--step-delay {ms}] [-K|--settle-delay {ms}]`,
		"run the write service",
		`
Use the serve command to run the API server. It claims the SuperCard Pro board
on the given serial device and accepts flux images for writing over HTTP.`,
		`- Logging can be configured with these environment variables:

  LOG_FORMAT		set to 'json' for JSON logging
  LOG_FORCE_COLORS	set to non-empty for forcing colorized log entries
  LOG_METHODS		set to non-empty for including methods in log
  LOG_LEVEL		panic, fatal, error, warn, info, debug, trace

`+runnerHelpEpilogue, s.Run)

	s.AddStringSetting(&s.Device, "device", "d", "SCPWRITE_DEVICE", "",
		"serial port device of the SuperCard Pro board", true)
	s.AddStringSetting(&s.Address, "address", "a", "SCPWRITE_ADDRESS",
		"0.0.0.0:8890", "listen address of the API server", false)
	s.AddIntSetting(&s.StepDelay, "step-delay", "k", "", 5,
		"delay between head steps, milliseconds", false)
	s.AddIntSetting(&s.SettleDelay, "settle-delay", "K", "", 15,
		"settle time after seek, milliseconds", false)

	return s
}

//
type Serve struct {
	//
	Runner
	//
	Device      string
	Address     string
	StepDelay   int
	SettleDelay int
}

//
func (s *Serve) Run() error {

	s.ParseSettings()

	dev, err := device.Open(s.Device,
		deviceParams(s.StepDelay, s.SettleDelay))
	if err != nil {
		return err
	}
	defer dev.Close()

	info, err := dev.Info()
	if err != nil {
		return err
	}
	log.Info(info)

	api := control.NewAPIServer(s.Address, info, dev)

	done := make(chan error, 1)
	go func() {
		done <- api.Serve()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {

	case sig := <-sigs:
		log.WithField("signal", sig).Info("signal received, shutting down")
		if err := api.Stop(); err != nil {
			log.Errorf("error stopping API server: %v", err)
		}
		return <-done

	case err := <-done:
		return err
	}
}
