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

//
const (
	// MinDeviceNum is the lowest IEC device number a drive can be set to.
	MinDeviceNum = 8
	// MaxDeviceNum is the highest IEC device number; later drives such as
	// the 1571 can be moved up to 30 in software.
	MaxDeviceNum = 30
	// DefaultDeviceNum is the factory setting of most drives.
	DefaultDeviceNum = 8
)

//
const (
	// ChannelLoad is the dedicated load channel on a drive.
	ChannelLoad = 0
	// ChannelCtrl is the control/status channel, reserved on every drive.
	ChannelCtrl = 15
	// NumChannels is the number of logical channels per device.
	NumChannels = 16
)

/*
	DeviceChannel addresses one logical channel on one IEC device. It can
	only be created through NewDeviceChannel, which validates both numbers,
	so holders of a DeviceChannel never need to re-check ranges.
*/
type DeviceChannel struct {
	device  uint8
	channel uint8
}

//
func NewDeviceChannel(device, channel uint8) (DeviceChannel, error) {
	if device < MinDeviceNum || device > MaxDeviceNum {
		return DeviceChannel{}, &ValidationError{Message: fmt.Sprintf(
			"device number %d out of range %d-%d",
			device, MinDeviceNum, MaxDeviceNum)}
	}
	if channel >= NumChannels {
		return DeviceChannel{}, &ValidationError{Message: fmt.Sprintf(
			"channel number %d out of range 0-%d", channel, NumChannels-1)}
	}
	return DeviceChannel{device: device, channel: channel}, nil
}

//
func (dc DeviceChannel) Device() uint8 {
	return dc.device
}

//
func (dc DeviceChannel) Channel() uint8 {
	return dc.channel
}

//
func (dc DeviceChannel) String() string {
	return fmt.Sprintf("device %d, channel %d", dc.device, dc.channel)
}

/*
	Bus is the raw transport to the IEC adapter. Implementations handle the
	USB or serial framing; the protocol layer above only relies on these
	primitives. All calls are blocking. A Listen that is not acknowledged by
	the addressed device must return an error wrapping ErrDeviceNotPresent.
*/
type Bus interface {
	// Reset issues a bus-level reset to all devices.
	Reset() error
	// Listen puts the device channel into listen mode.
	Listen(dc DeviceChannel) error
	// Talk puts the device channel into talk mode.
	Talk(dc DeviceChannel) error
	// Unlisten releases the current listener.
	Unlisten() error
	// Untalk releases the current talker.
	Untalk() error
	// Open opens the channel on the device; the file name is sent with a
	// subsequent Write, terminated by Unlisten.
	Open(dc DeviceChannel) error
	// CloseChannel closes the channel on the device.
	CloseChannel(dc DeviceChannel) error
	// Read reads up to len(p) bytes from the current talker. A short or
	// zero count without error means the talker has no more data.
	Read(p []byte) (int, error)
	// ReadUntil reads from the current talker until term was received or
	// p is full. term is included in the returned count when found.
	ReadUntil(p []byte, term byte) (int, error)
	// Write sends p to the current listener.
	Write(p []byte) (int, error)
	// Close releases the transport.
	Close() error
}

// BusOpener opens a fresh transport, used on construction and when the
// adapter itself needs a reset.
type BusOpener func() (Bus, error)
