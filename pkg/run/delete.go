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
func NewDelete() *Delete {

	d := &Delete{}
	d.Runner = *NewRunner(
		`delete -f|--file {name} [-D|--drive-device {device}] [-y|--yes]
      [-p|--port {port}]`,
		"delete a file from disk",
		`
Use the delete command to scratch a file from the disk in a drive. Wildcards
are passed through to the drive, so 'delete -f "*"' scratches everything;
the command asks for confirmation unless --yes is given.`,
		"", runnerHelpEpilogue, d.Run)

	d.AddBaseSettings()
	d.AddSetting(&d.Device, "drive-device", "D", "CBMLINK_DRIVE_DEVICE",
		cbm.DefaultDeviceNum, "IEC device number of the drive", false)
	d.AddSetting(&d.File, "file", "f", "", nil, "name of file on disk", true)
	d.AddSetting(&d.Yes, "yes", "y", "", nil,
		"delete without asking for confirmation", false)

	return d
}

//
type Delete struct {
	//
	Runner
	//
	Device int
	File   string
	Yes    bool
}

//
func (d *Delete) Run() error {

	d.ParseSettings()

	if err := validateDevice(d.Device); err != nil {
		return err
	}

	if !d.Yes && !GetUserConfirmation(fmt.Sprintf(
		"delete '%s' on device %d?", d.File, d.Device)) {
		return nil
	}

	return d.apiCallPrint("DELETE", fmt.Sprintf("/file/%d/%s",
		d.Device, url.PathEscape(d.File)))
}
