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
func NewScan() *Scan {

	s := &Scan{}
	s.Runner = *NewRunner(
		"scan [-f|--from {device}] [-t|--to {device}] [-p|--port {port}]",
		"scan the bus for devices",
		`
Use the scan command to probe a device number range on the IEC bus and
identify the drives that answer.`,
		"", runnerHelpEpilogue, s.Run)

	s.AddBaseSettings()
	s.AddSetting(&s.From, "from", "f", "", cbm.MinDeviceNum,
		"first device number to probe", false)
	s.AddSetting(&s.To, "to", "t", "", 15,
		"last device number to probe", false)

	return s
}

//
type Scan struct {
	//
	Runner
	//
	From int
	To   int
}

//
func (s *Scan) Run() error {

	s.ParseSettings()

	if err := validateDevice(s.From); err != nil {
		return err
	}
	if err := validateDevice(s.To); err != nil {
		return err
	}

	return s.apiCallPrint("GET",
		fmt.Sprintf("/scan?from=%d&to=%d", s.From, s.To))
}
