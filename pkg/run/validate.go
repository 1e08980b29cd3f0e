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
func NewValidate() *Validate {

	v := &Validate{}
	v.Runner = *NewRunner(
		"validate [-D|--drive-device {device}] [-p|--port {port}]",
		"validate disk contents",
		`
Use the validate command to run the BAM recovery scan on the disk in a
drive. This can take a while on a full disk.`,
		"", runnerHelpEpilogue, v.Run)

	v.AddBaseSettings()
	v.AddSetting(&v.Device, "drive-device", "D", "CBMLINK_DRIVE_DEVICE",
		cbm.DefaultDeviceNum, "IEC device number of the drive", false)

	return v
}

//
type Validate struct {
	//
	Runner
	//
	Device int
}

//
func (v *Validate) Run() error {

	v.ParseSettings()

	if err := validateDevice(v.Device); err != nil {
		return err
	}

	return v.apiCallPrint("PUT", fmt.Sprintf("/validate/%d", v.Device))
}
