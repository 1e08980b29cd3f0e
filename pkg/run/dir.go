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

	"github.com/cbmlink/cbmlink/pkg/cbm"
)

//
func NewDir() *Dir {

	d := &Dir{}
	d.Runner = *NewRunner(
		`dir [-D|--drive-device {device}] [-n|--drive {0|1}] [-p|--port {port}]`,
		"list disk directory",
		`
Use the dir command to read the directory of the disk in a drive. For dual
drive units, select the sub-drive with --drive.`,
		"", runnerHelpEpilogue, d.Run)

	d.AddBaseSettings()
	d.AddSetting(&d.Device, "drive-device", "D", "CBMLINK_DRIVE_DEVICE",
		cbm.DefaultDeviceNum, "IEC device number of the drive", false)
	d.AddSetting(&d.Drive, "drive", "n", "", -1,
		"sub-drive number for dual drive units, 0 or 1", false)

	return d
}

//
type Dir struct {
	//
	Runner
	//
	Device int
	Drive  int
}

//
func (d *Dir) Run() error {

	d.ParseSettings()

	if err := validateDevice(d.Device); err != nil {
		return err
	}

	path := fmt.Sprintf("/dir/%d", d.Device)
	if d.Drive >= 0 {
		path = fmt.Sprintf("%s?drive=%d", path, d.Drive)
	}

	return d.apiCallPrint("GET", path)
}
