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
	"io"
	"net/url"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/cbmlink/cbmlink/pkg/cbm"
)

//
func NewRead() *Read {

	r := &Read{}
	r.Runner = *NewRunner(
		`read -f|--file {name} [-o|--out {local file}]
      [-D|--drive-device {device}] [-p|--port {port}]`,
		"read a file from disk",
		`
Use the read command to copy a file from the disk in a drive to the local
file system. When --out is omitted, the drive file name is used.`,
		"", runnerHelpEpilogue, r.Run)

	r.AddBaseSettings()
	r.AddSetting(&r.Device, "drive-device", "D", "CBMLINK_DRIVE_DEVICE",
		cbm.DefaultDeviceNum, "IEC device number of the drive", false)
	r.AddSetting(&r.File, "file", "f", "", nil, "name of file on disk", true)
	r.AddSetting(&r.Out, "out", "o", "", nil, "local output file", false)

	return r
}

//
type Read struct {
	//
	Runner
	//
	Device int
	File   string
	Out    string
}

//
func (r *Read) Run() error {

	r.ParseSettings()

	if err := validateDevice(r.Device); err != nil {
		return err
	}

	resp, err := r.apiCall("GET", fmt.Sprintf("/file/%d/%s",
		r.Device, url.PathEscape(r.File)), false, nil)
	if err != nil {
		return err
	}
	defer resp.Close()

	out := r.Out
	if out == "" {
		out = r.File
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()

	n, err := io.Copy(f, resp)
	if err != nil {
		return err
	}

	log.Infof("wrote %d bytes to %s", n, out)
	return nil
}
