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
func NewInit() *Init {

	i := &Init{}
	i.Runner = *NewRunner(
		"init [-D|--drive-device {device}] [-p|--port {port}]",
		"initialize drive unit",
		`
Use the init command to initialize all sub-drives of a drive unit. Dual
drive units get both mechanisms initialized; the outcome is reported per
sub-drive.`,
		"", runnerHelpEpilogue, i.Run)

	i.AddBaseSettings()
	i.AddSetting(&i.Device, "drive-device", "D", "CBMLINK_DRIVE_DEVICE",
		cbm.DefaultDeviceNum, "IEC device number of the drive", false)

	return i
}

//
type Init struct {
	//
	Runner
	//
	Device int
}

//
func (i *Init) Run() error {

	i.ParseSettings()

	if err := validateDevice(i.Device); err != nil {
		return err
	}

	return i.apiCallPrint("PUT", fmt.Sprintf("/init/%d", i.Device))
}
