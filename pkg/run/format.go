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

	"github.com/cbmlink/cbmlink/pkg/cbm"
)

//
func NewFormat() *Format {

	f := &Format{}
	f.Runner = *NewRunner(
		`format -n|--name {name} -i|--id {id} [-D|--drive-device {device}]
      [-y|--yes] [-p|--port {port}]`,
		"format a disk",
		`
Use the format command to format the disk in a drive, giving it a name and a
two character id. This destroys all data on the disk, so it asks for
confirmation unless --yes is given.`,
		"", runnerHelpEpilogue, f.Run)

	f.AddBaseSettings()
	f.AddSetting(&f.Device, "drive-device", "D", "CBMLINK_DRIVE_DEVICE",
		cbm.DefaultDeviceNum, "IEC device number of the drive", false)
	f.AddSetting(&f.Name, "name", "n", "", nil, "disk name", true)
	f.AddSetting(&f.ID, "id", "i", "", nil, "two character disk id", true)
	f.AddSetting(&f.Yes, "yes", "y", "", nil,
		"format without asking for confirmation", false)

	return f
}

//
type Format struct {
	//
	Runner
	//
	Device int
	Name   string
	ID     string
	Yes    bool
}

//
func (f *Format) Run() error {

	f.ParseSettings()

	if err := validateDevice(f.Device); err != nil {
		return err
	}

	if !f.Yes && !GetUserConfirmation(fmt.Sprintf(
		"format disk in device %d, destroying all data on it?", f.Device)) {
		return nil
	}

	return f.apiCallPrint("PUT", fmt.Sprintf("/format/%d?name=%s&id=%s",
		f.Device, url.QueryEscape(f.Name), url.QueryEscape(f.ID)))
}
