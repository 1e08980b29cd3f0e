/*
   cbmlink - Commodore disk drive access over IEC bus adapters
   Copyright (c) 2025, the cbmlink authors

   This file is part of cbmlink.

   cbmlink is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   cbmlink is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with cbmlink. If not, see <http://www.gnu.org/licenses/>.
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
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/cbmlink/cbmlink/pkg/cbm"
)

// cap for file uploads; a 1581 disk holds roughly 800K
const maxUploadSize = 1 << 20

//
type APIServer interface {
	Serve() error
	Stop() error
}

//
func NewAPIServer(addr string, c *cbm.Cbm) APIServer {
	return &api{address: addr, cbm: c}
}

//
type api struct {
	address string
	cbm     *cbm.Cbm
	server  *http.Server
}

//
func (a *api) Serve() error {

	router := mux.NewRouter().StrictSlash(true)

	addRoute(router, "status", "GET", "/status/{device:[0-9]+}", a.status)
	addRoute(router, "dir", "GET", "/dir/{device:[0-9]+}", a.dir)
	addRoute(router, "identify", "GET", "/identify/{device:[0-9]+}", a.identify)
	addRoute(router, "scan", "GET", "/scan", a.scan)
	addRoute(router, "reset", "PUT", "/reset", a.reset)
	addRoute(router, "format", "PUT", "/format/{device:[0-9]+}", a.format)
	addRoute(router, "validate", "PUT", "/validate/{device:[0-9]+}", a.validate)
	addRoute(router, "init", "PUT", "/init/{device:[0-9]+}", a.initDrive)
	addRoute(router, "readfile", "GET",
		"/file/{device:[0-9]+}/{name}", a.readFile)
	addRoute(router, "writefile", "PUT",
		"/file/{device:[0-9]+}/{name}", a.writeFile)
	addRoute(router, "deletefile", "DELETE",
		"/file/{device:[0-9]+}/{name}", a.deleteFile)

	addr := a.address
	if len(strings.Split(addr, ":")) < 2 {
		addr = fmt.Sprintf("%s:8580", a.address)
	}

	log.Infof("cbmlink API starts listening on %s", addr)
	a.server = &http.Server{Addr: addr, Handler: router}

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
func (a *api) status(w http.ResponseWriter, req *http.Request) {

	device := getDevice(w, req)
	if device == -1 {
		return
	}

	status, err := a.cbm.GetStatus(uint8(device))
	if err != nil {
		handleDriveError(err, w)
		return
	}

	if wantsJSON(req) {
		sendJSONReply(status, http.StatusOK, w)
	} else {
		sendReply([]byte(status.String()), http.StatusOK, w)
	}
}

//
func (a *api) dir(w http.ResponseWriter, req *http.Request) {

	device := getDevice(w, req)
	if device == -1 {
		return
	}

	driveNum := cbm.DriveNone
	if arg, _ := getArg(req, "drive"); arg != "" {
		d, err := strconv.Atoi(arg)
		if handleError(err, http.StatusUnprocessableEntity, w) {
			return
		}
		driveNum = d
	}

	listing, err := a.cbm.Dir(uint8(device), driveNum)
	if err != nil {
		handleDriveError(err, w)
		return
	}

	if wantsJSON(req) {
		sendJSONReply(listing, http.StatusOK, w)
	} else {
		sendReply([]byte(listing.String()), http.StatusOK, w)
	}
}

//
func (a *api) identify(w http.ResponseWriter, req *http.Request) {

	device := getDevice(w, req)
	if device == -1 {
		return
	}

	info, err := a.cbm.Identify(uint8(device))
	if err != nil {
		handleDriveError(err, w)
		return
	}

	if wantsJSON(req) {
		sendJSONReply(info, http.StatusOK, w)
	} else {
		sendReply([]byte(info.String()), http.StatusOK, w)
	}
}

//
func (a *api) scan(w http.ResponseWriter, req *http.Request) {

	from := cbm.MinDeviceNum
	to := defaultScanTo

	if val, err := getIntArg(req, "from"); err == nil {
		from = val
	}
	if val, err := getIntArg(req, "to"); err == nil {
		to = val
	}

	if from < 0 || from > 255 || to < 0 || to > 255 {
		handleError(fmt.Errorf("invalid scan range %d-%d", from, to),
			http.StatusUnprocessableEntity, w)
		return
	}

	found, err := a.cbm.ScanBusRange(uint8(from), uint8(to))
	if err != nil {
		handleDriveError(err, w)
		return
	}

	if wantsJSON(req) {
		sendJSONReply(found, http.StatusOK, w)
	} else {
		sendReply([]byte(renderScan(found)), http.StatusOK, w)
	}
}

//
func (a *api) reset(w http.ResponseWriter, req *http.Request) {

	var err error
	if isFlagSet(req, "usb") {
		err = a.cbm.UsbDeviceReset()
	} else {
		err = a.cbm.ResetBus()
	}

	if handleError(err, http.StatusInternalServerError, w) {
		return
	}
	sendReply([]byte("bus reset"), http.StatusOK, w)
}

//
func (a *api) format(w http.ResponseWriter, req *http.Request) {

	device := getDevice(w, req)
	if device == -1 {
		return
	}

	name, err := getArg(req, "name")
	if handleError(err, http.StatusUnprocessableEntity, w) {
		return
	}
	id, err := getArg(req, "id")
	if handleError(err, http.StatusUnprocessableEntity, w) {
		return
	}

	asciiName, err := cbm.AsciiFromString(name)
	if handleError(err, http.StatusUnprocessableEntity, w) {
		return
	}
	asciiID, err := cbm.AsciiFromString(id)
	if handleError(err, http.StatusUnprocessableEntity, w) {
		return
	}

	status, err := a.cbm.FormatDisk(uint8(device), asciiName, asciiID)
	if err != nil {
		handleDriveError(err, w)
		return
	}
	sendReply([]byte(status.String()), http.StatusOK, w)
}

//
func (a *api) validate(w http.ResponseWriter, req *http.Request) {

	device := getDevice(w, req)
	if device == -1 {
		return
	}

	status, err := a.cbm.ValidateDisk(uint8(device))
	if err != nil {
		handleDriveError(err, w)
		return
	}
	sendReply([]byte(status.String()), http.StatusOK, w)
}

//
func (a *api) initDrive(w http.ResponseWriter, req *http.Request) {

	device := getDevice(w, req)
	if device == -1 {
		return
	}

	unit, err := cbm.NewDriveUnitFromBus(a.cbm, uint8(device))
	if err != nil {
		handleDriveError(err, w)
		return
	}

	results := unit.SendInit(a.cbm, []cbm.ErrorNumber{cbm.ErrDosMismatch})

	if wantsJSON(req) {
		sendJSONReply(toInitReplies(results), http.StatusOK, w)
	} else {
		sendReply([]byte(renderInit(unit, results)), http.StatusOK, w)
	}
}

//
func (a *api) readFile(w http.ResponseWriter, req *http.Request) {

	device, name := getDeviceAndName(w, req)
	if device == -1 {
		return
	}

	data, err := a.cbm.ReadFile(uint8(device), name)
	if err != nil {
		handleDriveError(err, w)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Errorf("problem sending file: %v", err)
	}
}

//
func (a *api) writeFile(w http.ResponseWriter, req *http.Request) {

	device, name := getDeviceAndName(w, req)
	if device == -1 {
		return
	}

	data, err := ioutil.ReadAll(io.LimitReader(req.Body, maxUploadSize))
	if handleError(err, http.StatusUnprocessableEntity, w) {
		return
	}
	if handleError(req.Body.Close(), http.StatusInternalServerError, w) {
		return
	}

	if err := a.cbm.WriteFile(uint8(device), name, data); err != nil {
		handleDriveError(err, w)
		return
	}
	sendReply([]byte(fmt.Sprintf(
		"wrote %d bytes to %s", len(data), name)), http.StatusOK, w)
}

//
func (a *api) deleteFile(w http.ResponseWriter, req *http.Request) {

	device, name := getDeviceAndName(w, req)
	if device == -1 {
		return
	}

	status, err := a.cbm.DeleteFile(uint8(device), name)
	if err != nil {
		handleDriveError(err, w)
		return
	}

	if count, ok := status.FilesScratched(); ok {
		sendReply([]byte(fmt.Sprintf("%d file(s) scratched", count)),
			http.StatusOK, w)
	} else {
		sendReply([]byte(status.String()), http.StatusOK, w)
	}
}

//
func getDevice(w http.ResponseWriter, req *http.Request) int {

	vars := mux.Vars(req)
	device, err := strconv.Atoi(vars["device"])
	if handleError(err, http.StatusUnprocessableEntity, w) {
		return -1
	}

	if device < cbm.MinDeviceNum || device > cbm.MaxDeviceNum {
		handleError(fmt.Errorf("device number %d out of range", device),
			http.StatusUnprocessableEntity, w)
		return -1
	}
	return device
}

//
func getDeviceAndName(w http.ResponseWriter, req *http.Request) (
	int, cbm.AsciiString) {

	device := getDevice(w, req)
	if device == -1 {
		return -1, nil
	}

	name, err := cbm.AsciiFromString(mux.Vars(req)["name"])
	if handleError(err, http.StatusUnprocessableEntity, w) {
		return -1, nil
	}
	return device, name
}

//
func isFlagSet(req *http.Request, flag string) bool {
	arg, _ := getArg(req, flag)
	return arg == "true"
}

//
func getArg(req *http.Request, arg string) (string, error) {
	ret := req.URL.Query().Get(arg)
	if ret != "" {
		return url.QueryUnescape(ret)
	}
	return ret, nil
}

//
func getIntArg(req *http.Request, arg string) (int, error) {
	if val, err := getArg(req, arg); err != nil {
		return -1, err
	} else if val == "" {
		return -1, fmt.Errorf("argument %s not present", arg)
	} else {
		return strconv.Atoi(val)
	}
}

//
func setHeaders(h http.Header, json bool) {
	if json {
		h.Set("Content-Type", "application/json; charset=UTF-8")
	} else {
		h.Set("Content-Type", "text/plain; charset=UTF-8")
	}
}

// handleDriveError maps the error taxonomy of the protocol layer onto
// HTTP status codes.
func handleDriveError(e error, w http.ResponseWriter) {

	code := http.StatusInternalServerError
	var ve *cbm.ValidationError

	switch {
	case cbm.IsNoDevice(e):
		code = http.StatusNotFound
	case cbm.IsDeviceError(e), cbm.IsParseError(e):
		code = http.StatusBadGateway
	case errors.As(e, &ve):
		code = http.StatusUnprocessableEntity
	default:
		if _, ok := cbm.IsStatusError(e); ok {
			code = http.StatusUnprocessableEntity
		}
	}

	handleError(e, code, w)
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
		log.Errorf("problem writing error: %v", err)
	}
}

// FIXME: make more tolerant
func wantsJSON(req *http.Request) bool {
	return req.Header.Get("Content-Type") == "application/json"
}
