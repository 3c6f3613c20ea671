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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/fluxlab/scpwrite/pkg/scp/image"
	"github.com/fluxlab/scpwrite/pkg/scp/transfer"
)

// maxImageSize bounds uploaded images; a full 168 track, 5 revolution
// capture stays well below this.
const maxImageSize = 1 << 28

//
type APIServer interface {
	Serve() error
	Stop() error
}

/*
	NewAPIServer creates an API server bound to the given device. The
	device is used exclusively by this server; writes coming in over
	the API are serialized, since the drive mechanism can only ever
	serve one of them at a time.
*/
func NewAPIServer(addr, deviceInfo string, dev transfer.Device) APIServer {
	return &api{
		address:    addr,
		deviceInfo: deviceInfo,
		device:     dev,
		state:      &state{},
	}
}

//
type api struct {
	address    string
	deviceInfo string
	device     transfer.Device
	server     *http.Server
	state      *state
}

//
func (a *api) Serve() error {

	addr := a.address
	if len(strings.Split(addr, ":")) < 2 {
		addr = fmt.Sprintf("%s:8890", a.address)
	}

	log.Infof("scpwrite API starts listening on %s", addr)
	a.server = &http.Server{Addr: addr, Handler: a.router()}

	err := a.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

//
func (a *api) Stop() error {
	if a.server != nil {
		log.Info("API server stopping...")
		err := a.server.Shutdown(context.Background())
		a.server = nil
		return err
	}
	return nil
}

//
func (a *api) router() *mux.Router {

	router := mux.NewRouter().StrictSlash(true)

	addRoute(router, "ping", "GET", "/ping", a.ping)
	addRoute(router, "status", "GET", "/status", a.status)
	addRoute(router, "write", "PUT", "/write", a.write)

	return router
}

//
func addRoute(r *mux.Router, name, method, pattern string,
	handler http.HandlerFunc) {
	r.Methods(method).
		Path(pattern).
		Name(name).
		Handler(requestLogger(handler, name))
}

//
func requestLogger(inner http.Handler, name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		log.WithFields(log.Fields{
			"remote": r.RemoteAddr,
			"method": r.Method,
			"path":   r.RequestURI,
		}).Debugf("API BEGIN | %s", name)

		start := time.Now()
		inner.ServeHTTP(w, r)

		log.WithFields(log.Fields{
			"remote":   r.RemoteAddr,
			"method":   r.Method,
			"path":     r.RequestURI,
			"duration": time.Since(start),
		}).Debugf("API END   | %s", name)
	})
}

//
func (a *api) ping(w http.ResponseWriter, req *http.Request) {
	sendReply([]byte("pong"), http.StatusOK, w)
}

//
func (a *api) status(w http.ResponseWriter, req *http.Request) {

	stat := a.state.snapshot()
	stat.Device = a.deviceInfo

	if wantsJSON(req) {
		sendJSONReply(stat, http.StatusOK, w)
	} else {
		sendReply([]byte(stat.String()), http.StatusOK, w)
	}
}

//
func (a *api) write(w http.ResponseWriter, req *http.Request) {

	start, err := getIntArg(req, "start", 0)
	if handleError(err, http.StatusUnprocessableEntity, w) {
		return
	}

	end, err := getIntArg(req, "end", image.MaxTracks-5)
	if handleError(err, http.StatusUnprocessableEntity, w) {
		return
	}

	// reject a bad range before bothering to read the image body
	if end >= image.MaxTracks || start > end {
		handleError(&transfer.RangeError{Start: start, End: end},
			http.StatusUnprocessableEntity, w)
		return
	}

	data, err := ioutil.ReadAll(io.LimitReader(req.Body, maxImageSize))
	if handleError(err, http.StatusInternalServerError, w) {
		return
	}
	if handleError(req.Body.Close(), http.StatusInternalServerError, w) {
		return
	}

	img, err := image.Parse(data)
	if err != nil {
		handleError(fmt.Errorf("image rejected: %v", err),
			http.StatusUnprocessableEntity, w)
		return
	}

	if !a.state.begin() {
		handleError(fmt.Errorf("a write is already in progress"),
			http.StatusConflict, w)
		return
	}

	err = transfer.Write(img, a.device, transfer.Config{
		Start:    start,
		End:      end,
		Progress: a.state.progress,
	})
	a.state.end(err)

	if err != nil {
		var rng *transfer.RangeError
		if errors.As(err, &rng) {
			handleError(err, http.StatusUnprocessableEntity, w)
		} else {
			handleError(err, http.StatusInternalServerError, w)
		}
		return
	}

	sendReply([]byte(fmt.Sprintf(
		"wrote tracks %d-%d", start, end)), http.StatusOK, w)
}

//
func getIntArg(req *http.Request, arg string, def int) (int, error) {
	val := req.URL.Query().Get(arg)
	if val == "" {
		return def, nil
	}
	ret, err := strconv.Atoi(val)
	if err != nil {
		return -1, fmt.Errorf("bad value for %s: %q", arg, val)
	}
	return ret, nil
}

//
func setHeaders(h http.Header, json bool) {
	if json {
		h.Set("Content-Type", "application/json; charset=UTF-8")
	} else {
		h.Set("Content-Type", "text/plain; charset=UTF-8")
	}
}

//
func handleError(e error, statusCode int, w http.ResponseWriter) bool {

	if e == nil {
		return false
	}

	log.Errorf("%v", e)

	setHeaders(w.Header(), false)
	w.WriteHeader(statusCode)
	if _, err := w.Write([]byte(fmt.Sprintf("%v\n", e))); err != nil {
		log.Errorf("problem writing error: %v", err)
	}

	return true
}

//
func sendReply(body []byte, statusCode int, w http.ResponseWriter) {
	setHeaders(w.Header(), false)
	w.WriteHeader(statusCode)
	if _, err := fmt.Fprintf(w, "%s\n", body); err != nil {
		log.Errorf("problem sending reply: %v", err)
	}
}

//
func sendJSONReply(obj interface{}, statusCode int, w http.ResponseWriter) {
	setHeaders(w.Header(), true)
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(obj); err != nil {
		log.Errorf("problem sending reply: %v", err)
	}
}

// FIXME: make more tolerant
func wantsJSON(req *http.Request) bool {
	return req.Header.Get("Content-Type") == "application/json"
}
