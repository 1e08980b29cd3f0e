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

// DeviceValidation states how a caller-supplied device number that may be
// absent is treated.
type DeviceValidation int

//
const (
	// DeviceRequired - the number must be present.
	DeviceRequired DeviceValidation = iota
	// DeviceOptional - absence is passed through as -1.
	DeviceOptional
	// DeviceDefault - absence resolves to DefaultDeviceNum.
	DeviceDefault
)

/*
	ValidateDevice checks a device number against the IEC address range.
	Pass a negative number for "not supplied"; depending on the validation
	mode that is an error, passed through, or replaced with the default.
*/
func ValidateDevice(device int, validation DeviceValidation) (int, error) {

	if device >= 0 {
		if device < MinDeviceNum || device > MaxDeviceNum {
			return 0, &ValidationError{Message: fmt.Sprintf(
				"device number must be between %d and %d",
				MinDeviceNum, MaxDeviceNum)}
		}
		return device, nil
	}

	switch validation {
	case DeviceOptional:
		return -1, nil
	case DeviceDefault:
		return DefaultDeviceNum, nil
	}
	return 0, &ValidationError{Message: "no device number supplied"}
}
