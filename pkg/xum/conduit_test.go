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

package xum

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbmlink/cbmlink/pkg/cbm"
)

// fakePort replays pre-queued adapter replies and captures everything the
// conduit sends. The framing is deterministic, so queueing all replies up
// front is sufficient.
type fakePort struct {
	sent    bytes.Buffer
	replies bytes.Buffer
	closed  bool
}

func (p *fakePort) Write(b []byte) (int, error) {
	return p.sent.Write(b)
}

func (p *fakePort) Read(b []byte) (int, error) {
	return p.replies.Read(b)
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

//
func conduitWith(replies ...byte) (*Conduit, *fakePort) {
	port := &fakePort{}
	port.replies.Write(replies)
	return &Conduit{port: port}, port
}

//
func mustDC(t *testing.T, device, channel uint8) cbm.DeviceChannel {
	dc, err := cbm.NewDeviceChannel(device, channel)
	require.NoError(t, err)
	return dc
}

func TestInitialize(t *testing.T) {

	c, port := conduitWith(statusOK, protocolVersion)
	require.NoError(t, c.initialize())
	assert.Equal(t, []byte{cmdInit, protocolVersion, 0, 0}, port.sent.Bytes())
}

func TestInitializeRejected(t *testing.T) {
	c, _ := conduitWith(statusError, 0)
	assert.Error(t, c.initialize())
}

func TestInitializeVersionMismatch(t *testing.T) {
	c, _ := conduitWith(statusOK, 0x7f)
	assert.Error(t, c.initialize())
}

func TestReset(t *testing.T) {
	c, port := conduitWith(statusOK, 0)
	require.NoError(t, c.Reset())
	assert.Equal(t, []byte{cmdReset, 0, 0, 0}, port.sent.Bytes())
}

// listen is two attention bytes: listen|device, secondary|channel
func TestListen(t *testing.T) {

	c, port := conduitWith(statusOK, 0, statusOK, 0)
	require.NoError(t, c.Listen(mustDC(t, 8, 15)))

	assert.Equal(t, []byte{
		cmdIEC, iecListen | 8, 0, 0,
		cmdIEC, iecSecond | 15, 0, 0,
	}, port.sent.Bytes())
}

func TestTalk(t *testing.T) {

	c, port := conduitWith(statusOK, 0, statusOK, 0)
	require.NoError(t, c.Talk(mustDC(t, 9, 2)))

	assert.Equal(t, []byte{
		cmdIEC, iecTalk | 9, 0, 0,
		cmdIEC, iecSecond | 2, 0, 0,
	}, port.sent.Bytes())
}

// an unacknowledged device maps to the sentinel the protocol layer probes
// with
func TestListenNoDevice(t *testing.T) {

	c, _ := conduitWith(statusNoDevice, 0)
	err := c.Listen(mustDC(t, 8, 15))
	assert.True(t, errors.Is(err, cbm.ErrDeviceNotPresent))
}

func TestIECBusError(t *testing.T) {

	c, _ := conduitWith(statusError, 0x42)
	err := c.Unlisten()
	require.Error(t, err)
	assert.False(t, errors.Is(err, cbm.ErrDeviceNotPresent))
}

func TestOpenChannel(t *testing.T) {

	c, port := conduitWith(statusOK, 0, statusOK, 0)
	require.NoError(t, c.Open(mustDC(t, 8, 0)))

	assert.Equal(t, []byte{
		cmdIEC, iecListen | 8, 0, 0,
		cmdIEC, iecOpen | 0, 0, 0,
	}, port.sent.Bytes())
}

// close is a three byte sequence ending in unlisten
func TestCloseChannel(t *testing.T) {

	c, port := conduitWith(statusOK, 0, statusOK, 0, statusOK, 0)
	require.NoError(t, c.CloseChannel(mustDC(t, 8, 2)))

	assert.Equal(t, []byte{
		cmdIEC, iecListen | 8, 0, 0,
		cmdIEC, iecClose | 2, 0, 0,
		cmdIEC, iecUnlisten, 0, 0,
	}, port.sent.Bytes())
}

func TestRead(t *testing.T) {
	assert := assert.New(t)

	c, port := conduitWith(4, 0, 'd', 'a', 't', 'a')

	buf := make([]byte, 16)
	n, err := c.Read(buf)
	require.NoError(t, err)

	assert.Equal(4, n)
	assert.Equal([]byte("data"), buf[:n])
	assert.Equal([]byte{cmdRead, 16, 0, 0}, port.sent.Bytes())
}

func TestReadEmpty(t *testing.T) {

	c, _ := conduitWith(0, 0)
	n, err := c.Read(make([]byte, 8))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// zero-length request never touches the wire
	c2, port := conduitWith()
	n, err = c2.Read(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Zero(t, port.sent.Len())
}

// an adapter announcing more than requested is a protocol violation
func TestReadCountOverrun(t *testing.T) {
	c, _ := conduitWith(9, 0)
	_, err := c.Read(make([]byte, 4))
	assert.Error(t, err)
}

func TestReadUntil(t *testing.T) {
	assert := assert.New(t)

	// byte-wise replies: each is count 1 plus the byte
	c, _ := conduitWith(
		1, 0, 'o',
		1, 0, 'k',
		1, 0, '\r',
		1, 0, 'x', // must not be consumed
	)

	buf := make([]byte, 16)
	n, err := c.ReadUntil(buf, '\r')
	require.NoError(t, err)

	assert.Equal(3, n)
	assert.Equal([]byte("ok\r"), buf[:n])
}

func TestReadUntilTalkerExhausted(t *testing.T) {

	c, _ := conduitWith(
		1, 0, 'a',
		0, 0, // talker has nothing more
	)

	buf := make([]byte, 16)
	n, err := c.ReadUntil(buf, '\r')
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestWrite(t *testing.T) {
	assert := assert.New(t)

	c, port := conduitWith(5, 0)

	n, err := c.Write([]byte("hello"))
	require.NoError(t, err)

	assert.Equal(5, n)
	assert.Equal([]byte{cmdWrite, 5, 0, 0, 'h', 'e', 'l', 'l', 'o'},
		port.sent.Bytes())
}

func TestWriteShort(t *testing.T) {

	c, _ := conduitWith(3, 0)
	n, err := c.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestClose(t *testing.T) {
	c, port := conduitWith()
	require.NoError(t, c.Close())
	assert.True(t, port.closed)
}
