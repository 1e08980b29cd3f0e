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

//
func NewReset() *Reset {

	r := &Reset{}
	r.Runner = *NewRunner(
		"reset [-u|--usb] [-p|--port {port}]",
		"reset the IEC bus",
		`
Use the reset command to issue a bus-level reset to all devices. With --usb,
the adapter itself is reset instead, by closing and reopening its port.`,
		"", runnerHelpEpilogue, r.Run)

	r.AddBaseSettings()
	r.AddSetting(&r.USB, "usb", "u", "", nil,
		"reset the adapter instead of the bus", false)

	return r
}

//
type Reset struct {
	//
	Runner
	//
	USB bool
}

//
func (r *Reset) Run() error {

	r.ParseSettings()

	path := "/reset"
	if r.USB {
		path += "?usb=true"
	}

	return r.apiCallPrint("PUT", path)
}
