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
	"errors"
	"fmt"
)

// ErrDeviceNotPresent is returned (wrapped) by transports when a bus
// primitive addressed a device that did not acknowledge.
var ErrDeviceNotPresent = errors.New("device not acknowledging")

// DeviceErrorKind classifies device errors.
type DeviceErrorKind int

//
const (
	DeviceNoDevice DeviceErrorKind = iota
	DeviceInvalidDrive
	DeviceGetStatusFailure
	DeviceRead
	DeviceWrite
)

/*
	DeviceError reports a failure while operating a particular device. The
	NoDevice kind means the device very likely is not on the bus at all; it
	is derived from a zero-byte read while the control channel is in talk
	mode, the decisive signal distinguishing an absent drive from a drive
	returning empty data.
*/
type DeviceError struct {
	Device  uint8
	Kind    DeviceErrorKind
	Channel uint8
	Message string
}

//
func (e *DeviceError) Error() string {
	switch e.Kind {
	case DeviceNoDevice:
		return fmt.Sprintf(
			"device %d does not exist (or at least isn't talking on channel %d)",
			e.Device, ChannelCtrl)
	case DeviceInvalidDrive:
		return fmt.Sprintf("device %d: invalid drive number: %s",
			e.Device, e.Message)
	case DeviceGetStatusFailure:
		return fmt.Sprintf("device %d: failed to get status: %s",
			e.Device, e.Message)
	case DeviceRead:
		return fmt.Sprintf("device %d: read error on channel %d: %s",
			e.Device, e.Channel, e.Message)
	case DeviceWrite:
		return fmt.Sprintf("device %d: write error on channel %d: %s",
			e.Device, e.Channel, e.Message)
	}
	return fmt.Sprintf("device %d: %s", e.Device, e.Message)
}

//
func noDeviceError(device uint8) error {
	return &DeviceError{Device: device, Kind: DeviceNoDevice}
}

//
func invalidDriveError(device uint8, driveNum int) error {
	return &DeviceError{Device: device, Kind: DeviceInvalidDrive,
		Message: fmt.Sprintf("%d", driveNum)}
}

//
func getStatusFailure(device uint8, message string) error {
	return &DeviceError{Device: device, Kind: DeviceGetStatusFailure,
		Message: message}
}

//
func readError(dc DeviceChannel, message string) error {
	return &DeviceError{Device: dc.Device(), Kind: DeviceRead,
		Channel: dc.Channel(), Message: message}
}

//
func writeError(dc DeviceChannel, message string) error {
	return &DeviceError{Device: dc.Device(), Kind: DeviceWrite,
		Channel: dc.Channel(), Message: message}
}

// StatusError means the drive itself reported a non-OK status.
type StatusError struct {
	Status *Status
}

//
func (e *StatusError) Error() string {
	return fmt.Sprintf("device %d: status error: %s",
		e.Status.Device, e.Status.String())
}

// ParseError reports malformed data received from a device.
type ParseError struct {
	Message string
}

//
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %s", e.Message)
}

// ValidationError reports a caller-supplied argument out of range.
type ValidationError struct {
	Message string
}

//
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Message)
}

// IsNoDevice reports whether err indicates an absent device.
func IsNoDevice(err error) bool {
	var de *DeviceError
	return errors.As(err, &de) && de.Kind == DeviceNoDevice
}

// IsDeviceError reports whether err is a device-class error.
func IsDeviceError(err error) bool {
	var de *DeviceError
	return errors.As(err, &de)
}

// IsStatusError reports whether err carries a drive status, returning it.
func IsStatusError(err error) (*Status, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status, true
	}
	return nil, false
}

// IsParseError reports whether err is a parse-class error.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
