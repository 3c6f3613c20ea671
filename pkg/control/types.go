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

package control

import (
	"fmt"
	"sync"
)

/*
	Status describes the server's current activity, as reported by the
	status endpoint.
*/
type Status struct {
	Device    string `json:"device"`
	Busy      bool   `json:"busy"`
	Track     int    `json:"track"`
	LastError string `json:"lastError,omitempty"`
}

//
func (s *Status) String() string {

	activity := "idle"
	if s.Busy {
		activity = fmt.Sprintf("writing track %d", s.Track)
	}

	ret := fmt.Sprintf("\n%s\nstate: %s", s.Device, activity)
	if s.LastError != "" {
		ret = fmt.Sprintf("%s\nlast error: %s", ret, s.LastError)
	}
	return ret
}

/*
	state tracks the one write that may be in progress. begin claims
	it, end releases it; progress is handed to the transfer as its
	progress sink.
*/
type state struct {
	lock    sync.Mutex
	busy    bool
	track   int
	lastErr string
}

//
func (s *state) begin() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.busy {
		return false
	}
	s.busy = true
	s.track = 0
	return true
}

//
func (s *state) end(err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.busy = false
	if err != nil {
		s.lastErr = err.Error()
	} else {
		s.lastErr = ""
	}
}

//
func (s *state) progress(track int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.track = track
}

//
func (s *state) snapshot() *Status {
	s.lock.Lock()
	defer s.lock.Unlock()
	return &Status{
		Busy:      s.busy,
		Track:     s.track,
		LastError: s.lastErr,
	}
}
