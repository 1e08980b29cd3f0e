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
	"fmt"

	"github.com/cbmlink/cbmlink/pkg/cbm"
)

// default upper end of a bus scan; scanning all the way up to 30 takes
// very long on an empty bus
const defaultScanTo = 15

// InitReply is the JSON form of one sub-drive init outcome.
type InitReply struct {
	Drive  int         `json:"drive"`
	Status *cbm.Status `json:"status,omitempty"`
	Error  string      `json:"error,omitempty"`
}

//
func toInitReplies(results []cbm.InitResult) []InitReply {
	ret := make([]InitReply, 0, len(results))
	for _, r := range results {
		reply := InitReply{Drive: r.Drive, Status: r.Status}
		if r.Err != nil {
			reply.Error = r.Err.Error()
		}
		ret = append(ret, reply)
	}
	return ret
}

//
func renderInit(unit *cbm.DriveUnit, results []cbm.InitResult) string {
	ret := unit.String()
	for _, r := range results {
		if r.Err != nil {
			ret += fmt.Sprintf("\n  drive %d: %v", r.Drive, r.Err)
		} else {
			ret += fmt.Sprintf("\n  drive %d: ok", r.Drive)
		}
	}
	return ret
}

//
func renderScan(found []cbm.BusDevice) string {

	if len(found) == 0 {
		return "no devices found"
	}

	ret := "DEVICE TYPE"
	for _, d := range found {
		ret += fmt.Sprintf("\n  %2d   %s", d.Device, d.Info)
	}
	return ret
}
