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

/*
	Package xum talks to an XUM-style USB-to-IEC adapter over its serial
	port. The adapter firmware handles the bit-level bus timing; this
	package frames the primitive bus verbs and moves payload data, and
	implements cbm.Bus on top of that.
*/
package xum

import (
	"fmt"
	"io"

	"github.com/jacobsa/go-serial/serial"
	log "github.com/sirupsen/logrus"

	"github.com/cbmlink/cbmlink/pkg/cbm"
)

// each command frame is the command byte plus three payload bytes
const commandLength = 4

// protocol version the adapter firmware must speak
const protocolVersion = 0x01

// command bytes
const (
	cmdInit  = 0x01
	cmdReset = 0x02
	cmdIEC   = 0x03
	cmdRead  = 0x04
	cmdWrite = 0x05
)

// first byte of the two-byte reply the adapter sends after init, reset and
// IEC commands
const (
	statusOK       = 0x00
	statusNoDevice = 0x01
	statusError    = 0x02
)

// IEC bus attention bytes; device and channel are OR'ed in
const (
	iecListen   = 0x20
	iecUnlisten = 0x3f
	iecTalk     = 0x40
	iecUntalk   = 0x5f
	iecSecond   = 0x60
	iecClose    = 0xe0
	iecOpen     = 0xf0
)

// Conduit is the serial line to the adapter. It implements cbm.Bus. It is
// not safe for concurrent use; the protocol layer above serializes access.
type Conduit struct {
	port io.ReadWriteCloser
}

// Open opens the serial port and initializes the adapter.
func Open(port string) (*Conduit, error) {

	p, err := openPort(port)
	if err != nil {
		return nil, err
	}

	ret := &Conduit{port: p}
	if err := ret.initialize(); err != nil {
		if e := p.Close(); e != nil {
			log.Debugf("closing port after failed init: %v", e)
		}
		return nil, err
	}
	return ret, nil
}

// Opener returns a cbm.BusOpener for the port, for handing to cbm.New.
func Opener(port string) cbm.BusOpener {
	return func() (cbm.Bus, error) {
		return Open(port)
	}
}

//
func openPort(p string) (io.ReadWriteCloser, error) {
	return serial.Open(serial.OpenOptions{
		PortName:        p,
		BaudRate:        1000000,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
	})
}

//
func (c *Conduit) initialize() error {

	log.Debug("initializing adapter")

	if err := c.sendCommand(cmdInit, protocolVersion, 0, 0); err != nil {
		return err
	}

	reply, err := c.receiveReply()
	if err != nil {
		return fmt.Errorf("error reading init reply: %v", err)
	}
	if reply[0] != statusOK {
		return fmt.Errorf("adapter rejected init, status 0x%02x", reply[0])
	}
	if reply[1] != protocolVersion {
		return fmt.Errorf(
			"adapter speaks protocol version 0x%02x, need 0x%02x",
			reply[1], protocolVersion)
	}

	log.Debug("adapter initialized")
	return nil
}

//
func (c *Conduit) sendCommand(cmd, p1, p2, p3 byte) error {
	if _, err := c.port.Write([]byte{cmd, p1, p2, p3}); err != nil {
		return fmt.Errorf("error sending command 0x%02x: %v", cmd, err)
	}
	return nil
}

//
func (c *Conduit) receiveReply() ([]byte, error) {
	reply := make([]byte, 2)
	if _, err := io.ReadFull(c.port, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

/*
	iec sends one attention byte sequence to the bus. The adapter pulls ATN,
	puts the bytes on the bus and reports whether the addressed device
	acknowledged. A statusNoDevice reply maps to an error wrapping
	cbm.ErrDeviceNotPresent, which the protocol layer relies on for device
	presence probing.
*/
func (c *Conduit) iec(atn ...byte) error {

	for _, a := range atn {

		if err := c.sendCommand(cmdIEC, a, 0, 0); err != nil {
			return err
		}

		reply, err := c.receiveReply()
		if err != nil {
			return fmt.Errorf("error reading IEC reply: %v", err)
		}

		switch reply[0] {
		case statusOK:
		case statusNoDevice:
			return fmt.Errorf("attention byte 0x%02x: %w",
				a, cbm.ErrDeviceNotPresent)
		default:
			return fmt.Errorf(
				"bus error on attention byte 0x%02x, detail 0x%02x",
				a, reply[1])
		}
	}
	return nil
}

// Reset issues a bus-level reset to all devices.
func (c *Conduit) Reset() error {

	if err := c.sendCommand(cmdReset, 0, 0, 0); err != nil {
		return err
	}

	reply, err := c.receiveReply()
	if err != nil {
		return fmt.Errorf("error reading reset reply: %v", err)
	}
	if reply[0] != statusOK {
		return fmt.Errorf("bus reset failed, status 0x%02x", reply[0])
	}
	return nil
}

// Listen addresses the device as listener on the channel.
func (c *Conduit) Listen(dc cbm.DeviceChannel) error {
	return c.iec(iecListen|dc.Device(), iecSecond|dc.Channel())
}

// Talk addresses the device as talker on the channel.
func (c *Conduit) Talk(dc cbm.DeviceChannel) error {
	return c.iec(iecTalk|dc.Device(), iecSecond|dc.Channel())
}

// Unlisten releases the current listener.
func (c *Conduit) Unlisten() error {
	return c.iec(iecUnlisten)
}

// Untalk releases the current talker.
func (c *Conduit) Untalk() error {
	return c.iec(iecUntalk)
}

// Open opens the channel on the device and leaves the device listening, so
// the file name can follow as payload, terminated by Unlisten.
func (c *Conduit) Open(dc cbm.DeviceChannel) error {
	return c.iec(iecListen|dc.Device(), iecOpen|dc.Channel())
}

// CloseChannel closes the channel on the device.
func (c *Conduit) CloseChannel(dc cbm.DeviceChannel) error {
	return c.iec(iecListen|dc.Device(), iecClose|dc.Channel(), iecUnlisten)
}

/*
	Read asks the adapter for up to len(p) bytes from the current talker.
	The adapter replies with the byte count it actually got off the bus,
	then the data. A count below the request means the talker signaled end
	of data.
*/
func (c *Conduit) Read(p []byte) (int, error) {

	if len(p) == 0 {
		return 0, nil
	}
	want := len(p)
	if want > 0xffff {
		want = 0xffff
	}

	if err := c.sendCommand(cmdRead, byte(want), byte(want>>8), 0); err != nil {
		return 0, err
	}

	reply, err := c.receiveReply()
	if err != nil {
		return 0, fmt.Errorf("error reading read reply: %v", err)
	}

	count := int(reply[0]) | int(reply[1])<<8
	if count > want {
		return 0, fmt.Errorf(
			"adapter announced %d bytes, requested only %d", count, want)
	}
	if count == 0 {
		return 0, nil
	}

	if _, err := io.ReadFull(c.port, p[:count]); err != nil {
		return 0, fmt.Errorf("error reading %d payload bytes: %v", count, err)
	}
	return count, nil
}

// ReadUntil reads single bytes from the current talker until term was
// received or p is full; term is included in the count.
func (c *Conduit) ReadUntil(p []byte, term byte) (int, error) {

	for ix := 0; ix < len(p); ix++ {
		n, err := c.Read(p[ix : ix+1])
		if err != nil {
			return ix, err
		}
		if n == 0 {
			return ix, nil
		}
		if p[ix] == term {
			return ix + 1, nil
		}
	}
	return len(p), nil
}

// Write sends p to the current listener.
func (c *Conduit) Write(p []byte) (int, error) {

	if len(p) == 0 {
		return 0, nil
	}
	if len(p) > 0xffff {
		return 0, fmt.Errorf("write of %d bytes exceeds frame limit", len(p))
	}

	if err := c.sendCommand(
		cmdWrite, byte(len(p)), byte(len(p)>>8), 0); err != nil {
		return 0, err
	}

	if _, err := c.port.Write(p); err != nil {
		return 0, fmt.Errorf("error sending %d payload bytes: %v", len(p), err)
	}

	reply, err := c.receiveReply()
	if err != nil {
		return 0, fmt.Errorf("error reading write reply: %v", err)
	}

	count := int(reply[0]) | int(reply[1])<<8
	if count > len(p) {
		return len(p), nil
	}
	return count, nil
}

// Close releases the serial port.
func (c *Conduit) Close() error {
	return c.port.Close()
}
