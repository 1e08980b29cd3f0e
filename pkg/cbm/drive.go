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

	log "github.com/sirupsen/logrus"
)

/*
	DriveUnit represents one physical unit on the bus, which may contain one
	or two disk mechanisms (the classic dual floppy units). It carries the
	identified device info and a private channel manager; the bus itself is
	passed into each operation, so several units can share one Cbm.
*/
type DriveUnit struct {
	DeviceNumber uint8      `json:"deviceNumber"`
	Info         DeviceInfo `json:"info"`

	channels *ChannelManager
}

// NewDriveUnit creates a unit for a device whose type is already known. No
// hardware communication happens here.
func NewDriveUnit(device uint8, info DeviceInfo) *DriveUnit {
	return &DriveUnit{
		DeviceNumber: device,
		Info:         info,
		channels:     NewChannelManager(),
	}
}

// NewDriveUnitFromBus probes for the device and identifies it before
// creating the unit. An absent device yields a NoDevice error.
func NewDriveUnitFromBus(c *Cbm, device uint8) (*DriveUnit, error) {

	exists, err := c.DriveExists(device)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, noDeviceError(device)
	}

	info, err := c.Identify(device)
	if err != nil {
		return nil, err
	}
	return NewDriveUnit(device, info), nil
}

//
func (d *DriveUnit) String() string {
	return fmt.Sprintf("Drive %d (%s)", d.DeviceNumber, d.Info.DeviceType)
}

//
func (d *DriveUnit) Type() DeviceType {
	return d.Info.DeviceType
}

//
func (d *DriveUnit) NumDiskDrives() int {
	return d.Info.DeviceType.NumDiskDrives()
}

// Channels exposes the unit's channel manager.
func (d *DriveUnit) Channels() *ChannelManager {
	return d.channels
}

// Reset clears the unit's channel allocations.
func (d *DriveUnit) Reset() {
	d.channels.Reset()
}

// GetStatus reads the unit's status line.
func (d *DriveUnit) GetStatus(c *Cbm) (*Status, error) {
	return c.GetStatus(d.DeviceNumber)
}

// InitResult is the outcome of initializing one sub-drive.
type InitResult struct {
	Drive  int     `json:"drive"`
	Status *Status `json:"status,omitempty"`
	Err    error   `json:"-"`
}

/*
	SendInit initializes every sub-drive of the unit with an `i<n>` command
	followed by a status read. A non-ok status whose error number appears in
	ignore still counts as success. One result per sub-drive is returned
	instead of failing the whole batch on the first error; callers must
	inspect all of them.
*/
func (d *DriveUnit) SendInit(c *Cbm, ignore []ErrorNumber) []InitResult {

	n := d.NumDiskDrives()
	if n < 1 {
		n = 1
	}

	results := make([]InitResult, 0, n)

	for drive := 0; drive < n; drive++ {
		results = append(results, InitResult{
			Drive: drive,
			Err:   d.initDrive(c, drive, ignore),
		})
	}

	for ix := range results {
		if results[ix].Err == nil {
			continue
		}
		if status, ok := IsStatusError(results[ix].Err); ok {
			results[ix].Status = status
		}
	}
	return results
}

//
func (d *DriveUnit) initDrive(c *Cbm, drive int, ignore []ErrorNumber) error {

	if err := c.SendStringCommand(
		d.DeviceNumber, fmt.Sprintf("i%d", drive)); err != nil {
		return err
	}

	status, err := c.GetStatus(d.DeviceNumber)
	if err != nil {
		return err
	}

	if err := status.Err(); err != nil {
		for _, ignored := range ignore {
			if status.ErrorNumber == ignored {
				log.Debugf("%s: ignoring init status %s", d, status.ShortString())
				return nil
			}
		}
		return err
	}
	return nil
}

/*
	Dir lists the directories of all sub-drives. Single-drive units are read
	without a drive suffix, since some firmware rejects `$0` on them. A
	sub-drive failing with a device error is skipped; the first status error
	is remembered and returned alongside the listings that did succeed; any
	other error aborts immediately. When all sub-drives succeeded, a final
	status check decides the returned error.
*/
func (d *DriveUnit) Dir(c *Cbm) ([]*DirListing, error) {

	var listings []*DirListing
	var firstStatusErr error

	for _, drive := range d.driveSelectors() {

		listing, err := c.Dir(d.DeviceNumber, drive)
		if err == nil {
			listings = append(listings, listing)
			continue
		}

		if IsDeviceError(err) {
			log.Warnf("%s: skipping drive %d: %v", d, drive, err)
			continue
		}
		if _, ok := IsStatusError(err); ok {
			if firstStatusErr == nil {
				firstStatusErr = err
			}
			continue
		}
		return nil, err
	}

	if firstStatusErr != nil {
		return listings, firstStatusErr
	}

	status, err := c.GetStatus(d.DeviceNumber)
	if err != nil {
		return listings, err
	}
	return listings, status.Err()
}

// driveSelectors yields the Dir drive arguments for this unit's
// mechanisms.
func (d *DriveUnit) driveSelectors() []int {
	if d.NumDiskDrives() < 2 {
		return []int{DriveNone}
	}
	sel := make([]int, d.NumDiskDrives())
	for ix := range sel {
		sel[ix] = ix
	}
	return sel
}
