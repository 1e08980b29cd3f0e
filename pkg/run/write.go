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

package run

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/cbmlink/cbmlink/pkg/cbm"
)

//
func NewWrite() *Write {

	w := &Write{}
	w.Runner = *NewRunner(
		`write -i|--in {local file} [-f|--file {name}]
      [-D|--drive-device {device}] [-p|--port {port}]`,
		"write a file to disk",
		`
Use the write command to copy a local file onto the disk in a drive. An
existing file of the same name is overwritten. When --file is omitted, the
local file name is used.`,
		"", runnerHelpEpilogue, w.Run)

	w.AddBaseSettings()
	w.AddSetting(&w.Device, "drive-device", "D", "CBMLINK_DRIVE_DEVICE",
		cbm.DefaultDeviceNum, "IEC device number of the drive", false)
	w.AddSetting(&w.In, "in", "i", "", nil, "local input file", true)
	w.AddSetting(&w.File, "file", "f", "", nil,
		"name of file on disk", false)

	return w
}

//
type Write struct {
	//
	Runner
	//
	Device int
	In     string
	File   string
}

//
func (w *Write) Run() error {

	w.ParseSettings()

	if err := validateDevice(w.Device); err != nil {
		return err
	}

	f, err := os.Open(w.In)
	if err != nil {
		return err
	}
	defer f.Close()

	name := w.File
	if name == "" {
		name = filepath.Base(w.In)
	}

	return w.apiCallPrintBody("PUT", fmt.Sprintf("/file/%d/%s",
		w.Device, url.PathEscape(name)), f)
}
