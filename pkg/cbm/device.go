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

package cbm

import (
	"fmt"
)

// DeviceType enumerates the known drive models.
type DeviceType int

//
const (
	DeviceUnknown DeviceType = iota
	Device1540
	Device1541
	Device1570
	Device1571
	Device1581
	Device2031
	Device2040
	Device3040
	Device4040
	Device4031
	Device8050
	Device8250
	DeviceSFD1001
	DeviceFDX000
)

//
func (t DeviceType) String() string {
	switch t {
	case Device1540:
		return "CBM 1540"
	case Device1541:
		return "CBM 1541"
	case Device1570:
		return "CBM 1570"
	case Device1571:
		return "CBM 1571"
	case Device1581:
		return "CBM 1581"
	case Device2031:
		return "CBM 2031"
	case Device2040:
		return "CBM 2040"
	case Device3040:
		return "CBM 3040"
	case Device4040:
		return "CBM 4040"
	case Device4031:
		return "CBM 4031"
	case Device8050:
		return "CBM 8050"
	case Device8250:
		return "CBM 8250"
	case DeviceSFD1001:
		return "SFD 1001"
	case DeviceFDX000:
		return "FD X000"
	}
	return "Unknown"
}

// NumDiskDrives returns how many mechanisms the unit has; the classic dual
// floppy units (2040/3040/4040, 8050/8250) report 2.
func (t DeviceType) NumDiskDrives() int {
	switch t {
	case Device2040, Device3040, Device4040, Device8050, Device8250:
		return 2
	case DeviceUnknown:
		return 0
	}
	return 1
}

// DosVersion is the DOS generation a drive model runs.
type DosVersion int

//
const (
	Dos1 DosVersion = iota + 1
	Dos2
	Dos3
)

//
func (v DosVersion) String() string {
	return fmt.Sprintf("DOS%d", int(v))
}

//
func (t DeviceType) DosVersion() DosVersion {
	switch t {
	case Device2040, Device3040, DeviceUnknown:
		return Dos1
	case Device1571, Device1581, DeviceFDX000:
		return Dos3
	}
	return Dos2
}

// DeviceInfo is the outcome of identifying a device on the bus.
type DeviceInfo struct {
	DeviceType  DeviceType `json:"deviceType"`
	Description string     `json:"description"`
}

//
func (i DeviceInfo) String() string {
	return fmt.Sprintf("%s: %s", i.DeviceType, i.Description)
}

/*
	DeviceInfoFromMagic maps the 16-bit signature read from drive ROM, plus
	an optional second disambiguating signature, to a concrete device type.
	Unknown signatures yield DeviceUnknown with the raw hex values in the
	description for diagnostics.
*/
func DeviceInfoFromMagic(magic uint16, magic2 uint16, hasMagic2 bool) DeviceInfo {

	switch magic {

	case 0xfeb6:
		return DeviceInfo{Device2031, "2031"}

	case 0xaaaa:
		if hasMagic2 {
			switch magic2 {
			case 0x3156:
				return DeviceInfo{Device1540, "1540"}
			case 0xfeb6:
				return DeviceInfo{Device2031, "2031"}
			}
		}
		return DeviceInfo{Device1541, "1541"}

	case 0xf00f:
		return DeviceInfo{Device1541, "1541-II"}
	case 0xcd18:
		return DeviceInfo{Device1541, "1541C"}
	case 0x10ca:
		return DeviceInfo{Device1541, "DolphinDOS 1541"}
	case 0x6f10:
		return DeviceInfo{Device1541, "SpeedDOS 1541"}
	case 0x2710:
		return DeviceInfo{Device1541, "ProfessionalDOS 1541"}
	case 0x8085:
		return DeviceInfo{Device1541, "JiffyDOS 1541"}
	case 0xaeea:
		return DeviceInfo{Device1541, "64'er DOS 1541"}
	case 0x180d:
		return DeviceInfo{Device1541, "Turbo Access / Turbo Trans"}
	case 0x094c:
		return DeviceInfo{Device1541, "Prologic DOS"}

	case 0xfed7:
		return DeviceInfo{Device1570, "1570"}
	case 0x02ac:
		return DeviceInfo{Device1571, "1571"}

	case 0x01ba:
		if hasMagic2 && magic2 == 0x4446 {
			return DeviceInfo{DeviceFDX000, "FD2000/FD4000"}
		}
		return DeviceInfo{Device1581, "1581"}

	case 0x32f0:
		return DeviceInfo{Device3040, "3040"}
	case 0xc320, 0x20f8:
		return DeviceInfo{Device4040, "4040"}
	case 0xf2e9:
		return DeviceInfo{Device8050, "8050 dos2.5"}
	case 0xc866, 0xc611:
		return DeviceInfo{Device8250, "8250 dos2.7"}
	}

	if hasMagic2 {
		return DeviceInfo{DeviceUnknown,
			fmt.Sprintf("Unknown device: %04x %04x", magic, magic2)}
	}
	return DeviceInfo{DeviceUnknown,
		fmt.Sprintf("Unknown device: %04x", magic)}
}
