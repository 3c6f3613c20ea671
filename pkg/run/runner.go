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
	"io"
	"net/http"

	"github.com/fluxlab/scpwrite/pkg/scp/device"
)

//
const runnerHelpEpilogue = `- When a flag can be set via environment variable, the variable name is given
  in parenthesis at the end of the flag explanation. Note however that a flag,
  when specified, overrides an environment variable.
`

/*
	NewRunner creates a base runner for commands to use. The parameters are
	passed to the base command wrapped by this runner.
*/
func NewRunner(use, short, long, helpEpilogue string,
	exec func() error) *Runner {
	return &Runner{
		Command: *NewCommand(use, short, long, helpEpilogue, exec),
	}
}

//
type Runner struct {
	//
	Command
	//
	Port int
}

//
func (r *Runner) AddBaseSettings() {
	// Implementation Note: This cannot be included in NewRunner, but rather
	// has to be called from the top level command type. Otherwise, we will
	// confuse Cobra/Viper and the settings will not be filled with their
	// values.
	r.AddIntSetting(&r.Port, "port", "p", "SCPWRITE_PORT", 8890,
		"port of serve daemon's API server", false)
}

//
func (r *Runner) apiCall(method, path string, json bool,
	body io.Reader) (io.ReadCloser, error) {

	client := &http.Client{}
	req, err := http.NewRequest(
		method, fmt.Sprintf("http://127.0.0.1:%d%s", r.Port, path), body)
	if err != nil {
		return nil, err
	}

	if json {
		req.Header.Add("Content-Type", "application/json")
		req.Header.Add("Accept", "application/json")
	} else {
		req.Header.Add("Content-Type", "text/plain")
		req.Header.Add("Accept", "text/plain")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}

	return resp.Body, nil
}

/*
	deviceParams builds the hardware timing parameters for a run from the
	step and settle delay flags, filling everything else from the defaults.
*/
func deviceParams(stepDelay, settleDelay int) device.Params {

	params := device.DefaultParams

	if stepDelay > 0 {
		params.StepDelayUS = uint16(stepDelay * 1000)
	}
	if settleDelay > 0 {
		params.SeekSettleDelayMS = uint16(settleDelay)
	}

	return params
}
