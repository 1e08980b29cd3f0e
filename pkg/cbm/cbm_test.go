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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*
	testBus is a scripted Bus. Each Read or ReadUntil consumes the next
	queued payload; the verb sequence is recorded in calls for asserting
	transaction shape, written payloads are captured in writes.
*/
type testBus struct {
	calls  []string
	writes [][]byte
	reads  [][]byte

	listenErr error
	writeErr  error
	readErr   error
	closed    bool
}

//
func newTestBus(reads ...[]byte) *testBus {
	return &testBus{reads: reads}
}

//
func (b *testBus) record(format string, args ...interface{}) {
	b.calls = append(b.calls, fmt.Sprintf(format, args...))
}

//
func (b *testBus) pop(p []byte) int {
	if len(b.reads) == 0 {
		return 0
	}
	payload := b.reads[0]
	b.reads = b.reads[1:]
	return copy(p, payload)
}

func (b *testBus) Reset() error {
	b.record("reset")
	return nil
}

func (b *testBus) Listen(dc DeviceChannel) error {
	b.record("listen %d,%d", dc.Device(), dc.Channel())
	return b.listenErr
}

func (b *testBus) Talk(dc DeviceChannel) error {
	b.record("talk %d,%d", dc.Device(), dc.Channel())
	return nil
}

func (b *testBus) Unlisten() error {
	b.record("unlisten")
	return nil
}

func (b *testBus) Untalk() error {
	b.record("untalk")
	return nil
}

func (b *testBus) Open(dc DeviceChannel) error {
	b.record("open %d,%d", dc.Device(), dc.Channel())
	return nil
}

func (b *testBus) CloseChannel(dc DeviceChannel) error {
	b.record("close %d,%d", dc.Device(), dc.Channel())
	return nil
}

func (b *testBus) Read(p []byte) (int, error) {
	b.record("read")
	if b.readErr != nil {
		return 0, b.readErr
	}
	return b.pop(p), nil
}

func (b *testBus) ReadUntil(p []byte, term byte) (int, error) {
	b.record("readuntil")
	if b.readErr != nil {
		return 0, b.readErr
	}
	return b.pop(p), nil
}

func (b *testBus) Write(p []byte) (int, error) {
	b.record("write")
	if b.writeErr != nil {
		return 0, b.writeErr
	}
	cp := make([]byte, len(p))
	copy(cp, p)
	b.writes = append(b.writes, cp)
	return len(p), nil
}

func (b *testBus) Close() error {
	b.closed = true
	return nil
}

//
func okStatus() []byte {
	return []byte("00, OK,00,00\r")
}

// a status line that fails to parse, as drives produce after M-R
func defunctStatus() []byte {
	return []byte("defunct\r")
}

func TestGetStatus(t *testing.T) {
	assert := assert.New(t)

	bus := newTestBus([]byte("21,READ ERROR,18,04\r"))
	c := NewWithBus(bus)

	status, err := c.GetStatus(8)
	require.NoError(t, err)

	assert.Equal(uint8(21), status.Number)
	assert.Equal(uint8(8), status.Device)
	assert.Equal([]string{"talk 8,15", "readuntil", "untalk"}, bus.calls)
}

// a zero-byte status read is the decisive absent-device signal
func TestGetStatusNoDevice(t *testing.T) {

	bus := newTestBus()
	c := NewWithBus(bus)

	_, err := c.GetStatus(8)
	assert.True(t, IsNoDevice(err))
	assert.Contains(t, bus.calls, "untalk")
}

func TestGetStatusInvalidDevice(t *testing.T) {
	c := NewWithBus(newTestBus())
	_, err := c.GetStatus(31)
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestSendCommand(t *testing.T) {
	assert := assert.New(t)

	bus := newTestBus()
	c := NewWithBus(bus)

	require.NoError(t, c.SendStringCommand(8, "i0"))

	assert.Equal([]string{"listen 8,15", "write", "unlisten"}, bus.calls)
	require.Len(t, bus.writes, 1)
	assert.Equal([]byte(MustAscii("i0").ToPetscii()), bus.writes[0])
}

// the unlisten must still go out when the command write failed
func TestSendCommandCleansUpAfterWriteFailure(t *testing.T) {

	bus := newTestBus()
	bus.writeErr = fmt.Errorf("broken wire")
	c := NewWithBus(bus)

	err := c.SendStringCommand(8, "i0")
	assert.True(t, IsDeviceError(err))
	assert.Equal(t, []string{"listen 8,15", "write", "unlisten"}, bus.calls)
}

func TestFormatDisk(t *testing.T) {
	assert := assert.New(t)

	bus := newTestBus(okStatus())
	c := NewWithBus(bus)

	status, err := c.FormatDisk(8, MustAscii("test"), MustAscii("42"))
	require.NoError(t, err)
	assert.Equal(uint8(0), status.Number)

	require.Len(t, bus.writes, 1)
	assert.Equal([]byte(MustAscii("n0:test,42").ToPetscii()), bus.writes[0])
}

// a bad id must be rejected before anything reaches the bus
func TestFormatDiskValidatesID(t *testing.T) {

	bus := newTestBus()
	c := NewWithBus(bus)

	_, err := c.FormatDisk(8, MustAscii("test"), MustAscii("4"))
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
	assert.Empty(t, bus.calls)
}

func TestDeleteFile(t *testing.T) {
	assert := assert.New(t)

	bus := newTestBus([]byte("01,FILES SCRATCHED,01,00\r"))
	c := NewWithBus(bus)

	status, err := c.DeleteFile(8, MustAscii("old"))
	require.NoError(t, err)

	count, ok := status.FilesScratched()
	assert.True(ok)
	assert.Equal(uint8(1), count)

	require.Len(t, bus.writes, 1)
	assert.Equal([]byte(MustAscii("s0:old").ToPetscii()), bus.writes[0])
}

func TestValidateDisk(t *testing.T) {

	bus := newTestBus(okStatus())
	c := NewWithBus(bus)

	_, err := c.ValidateDisk(8)
	require.NoError(t, err)
	require.Len(t, bus.writes, 1)
	assert.Equal(t, []byte(MustAscii("v").ToPetscii()), bus.writes[0])
}

func TestLoadFile(t *testing.T) {
	assert := assert.New(t)

	content := []byte("file content, shorter than one chunk")
	bus := newTestBus(okStatus(), content)
	c := NewWithBus(bus)

	data, err := c.LoadFileAscii(8, MustAscii("program"))
	require.NoError(t, err)
	assert.Equal(content, data)

	assert.Equal([]string{
		"open 8,0", "write", "unlisten", // open with file name
		"talk 8,15", "readuntil", "untalk", // status verify
		"talk 8,0", "read", "untalk", // stream
		"close 8,0",
	}, bus.calls)
}

// a non-ok status after open must close the channel and surface the status
func TestLoadFileStatusError(t *testing.T) {

	bus := newTestBus([]byte("62, FILE NOT FOUND,00,00\r"))
	c := NewWithBus(bus)

	_, err := c.LoadFileAscii(8, MustAscii("missing"))
	status, ok := IsStatusError(err)
	require.True(t, ok)
	assert.Equal(t, ErrFileNotFound, status.ErrorNumber)
	assert.Contains(t, bus.calls, "close 8,0")
}

func TestReadFileUsesDataChannel(t *testing.T) {

	bus := newTestBus(okStatus(), []byte("data"))
	c := NewWithBus(bus)

	data, err := c.ReadFile(8, MustAscii("notes"))
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), data)
	assert.Contains(t, bus.calls, "open 8,2")
	assert.Contains(t, bus.calls, "close 8,2")
}

func TestWriteFile(t *testing.T) {
	assert := assert.New(t)

	bus := newTestBus(okStatus())
	c := NewWithBus(bus)

	content := make([]byte, 300) // forces two chunks
	require.NoError(t, c.WriteFile(8, MustAscii("out"), content))

	// file name with overwrite prefix, then two data chunks
	require.Len(t, bus.writes, 3)
	assert.Equal([]byte(MustAscii("@:out").ToPetscii()), bus.writes[0])
	assert.Len(bus.writes[1], 256)
	assert.Len(bus.writes[2], 44)
	assert.Contains(bus.calls, "close 8,2")
}

func TestDir(t *testing.T) {
	assert := assert.New(t)

	stream := dirStream(
		dirRecord(0, headerText("games", "8a")),
		dirRecord(12, fileText("pitfall", "prg")),
		dirRecord(652, pet("blocks free.")),
	)
	bus := newTestBus(okStatus(), stream)
	c := NewWithBus(bus)

	listing, err := c.Dir(8, DriveNone)
	require.NoError(t, err)

	assert.Equal("games", listing.Header.Name)
	require.Equal(t, 1, listing.NumFiles())
	assert.Equal("pitfall", listing.Files[0].Filename)

	// DriveNone loads a bare `$`
	require.NotEmpty(t, bus.writes)
	assert.Equal([]byte(MustAscii("$").ToPetscii()), bus.writes[0])
}

func TestDirDriveSelector(t *testing.T) {

	bus := newTestBus(okStatus(), dirStream(
		dirRecord(1, headerText("second", "01")),
		dirRecord(10, pet("blocks free.")),
	))
	c := NewWithBus(bus)

	_, err := c.Dir(8, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte(MustAscii("$1").ToPetscii()), bus.writes[0])

	_, err = c.Dir(8, 2)
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestReadDriveMemory(t *testing.T) {
	assert := assert.New(t)

	bus := newTestBus([]byte{0x12}, []byte{0x34}, defunctStatus())
	c := NewWithBus(bus)

	buf := make([]byte, 2)
	require.NoError(t, c.ReadDriveMemory(8, 0x0300, buf))
	assert.Equal([]byte{0x12, 0x34}, buf)

	// one M-R per byte, address incremented
	require.Len(t, bus.writes, 2)
	assert.Equal([]byte{'M', '-', 'R', 0x00, 0x03}, bus.writes[0])
	assert.Equal([]byte{'M', '-', 'R', 0x01, 0x03}, bus.writes[1])
}

// the address wraps around at 16 bits rather than failing at the top of
// the drive's address space
func TestReadDriveMemoryAddressWrap(t *testing.T) {

	bus := newTestBus([]byte{0x01}, []byte{0x02}, defunctStatus())
	c := NewWithBus(bus)

	buf := make([]byte, 2)
	require.NoError(t, c.ReadDriveMemory(8, 0xffff, buf))

	require.Len(t, bus.writes, 2)
	assert.Equal(t, []byte{'M', '-', 'R', 0xff, 0xff}, bus.writes[0])
	assert.Equal(t, []byte{'M', '-', 'R', 0x00, 0x00}, bus.writes[1])
}

// a drive that parses cleanly after M-R is anomalous but not an error
func TestReadDriveMemoryCleanDrain(t *testing.T) {

	bus := newTestBus([]byte{0x12}, okStatus())
	c := NewWithBus(bus)

	buf := make([]byte, 1)
	assert.NoError(t, c.ReadDriveMemory(8, 0x0300, buf))
}

func TestWriteDriveMemory(t *testing.T) {
	assert := assert.New(t)

	bus := newTestBus(okStatus())
	c := NewWithBus(bus)

	require.NoError(t, c.WriteDriveMemory(8, 0x0300, []byte{0xaa, 0xbb}))

	require.Len(t, bus.writes, 2)
	assert.Equal([]byte{'M', '-', 'W', 0x00, 0x03, 0xaa}, bus.writes[0])
	assert.Equal([]byte{'M', '-', 'W', 0x01, 0x03, 0xbb}, bus.writes[1])
}

func TestIdentify1571(t *testing.T) {
	assert := assert.New(t)

	// little-endian signature word 0x02ac at 0xff40
	bus := newTestBus([]byte{0xac}, []byte{0x02}, defunctStatus())
	c := NewWithBus(bus)

	info, err := c.Identify(8)
	require.NoError(t, err)
	assert.Equal(Device1571, info.DeviceType)

	require.NotEmpty(t, bus.writes)
	assert.Equal([]byte{'M', '-', 'R', 0x40, 0xff}, bus.writes[0])
}

// the 0xaaaa sentinel triggers the second and third peek
func TestIdentifySentinelChain(t *testing.T) {
	assert := assert.New(t)

	bus := newTestBus(
		[]byte{0xaa}, []byte{0xaa}, defunctStatus(), // 0xff40 -> sentinel
		[]byte{0xaa}, []byte{0xaa}, defunctStatus(), // 0xfffe -> still
		[]byte{0x56}, []byte{0x31}, defunctStatus(), // 0xe5c4 -> 1540
	)
	c := NewWithBus(bus)

	info, err := c.Identify(8)
	require.NoError(t, err)
	assert.Equal(Device1540, info.DeviceType)

	require.Len(t, bus.writes, 6)
	assert.Equal([]byte{'M', '-', 'R', 0xfe, 0xff}, bus.writes[2])
	assert.Equal([]byte{'M', '-', 'R', 0xc4, 0xe5}, bus.writes[4])
}

func TestIdentify1581Disambiguation(t *testing.T) {

	bus := newTestBus(
		[]byte{0xba}, []byte{0x01}, defunctStatus(), // 0xff40 -> 0x01ba
		[]byte{0x46}, []byte{0x44}, defunctStatus(), // 0x8008 -> FD series
	)
	c := NewWithBus(bus)

	info, err := c.Identify(8)
	require.NoError(t, err)
	assert.Equal(t, DeviceFDX000, info.DeviceType)
}

func TestDriveExists(t *testing.T) {
	assert := assert.New(t)

	bus := newTestBus()
	c := NewWithBus(bus)

	exists, err := c.DriveExists(8)
	require.NoError(t, err)
	assert.True(exists)
	assert.Equal([]string{"listen 8,15", "unlisten"}, bus.calls)
}

// an unacknowledged listen means absent, not failed
func TestDriveExistsNotPresent(t *testing.T) {

	bus := newTestBus()
	bus.listenErr = fmt.Errorf("attention byte 0x28: %w", ErrDeviceNotPresent)
	c := NewWithBus(bus)

	exists, err := c.DriveExists(8)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Contains(t, bus.calls, "unlisten")
}

func TestDriveExistsOtherFailure(t *testing.T) {

	bus := newTestBus()
	bus.listenErr = fmt.Errorf("adapter gone")
	c := NewWithBus(bus)

	_, err := c.DriveExists(8)
	assert.True(t, IsDeviceError(err))
}

func TestScanBusRangeValidation(t *testing.T) {

	c := NewWithBus(newTestBus())
	var ve *ValidationError

	_, err := c.ScanBusRange(7, 10)
	assert.ErrorAs(t, err, &ve)

	_, err = c.ScanBusRange(10, 8)
	assert.ErrorAs(t, err, &ve)
}

func TestScanBusRange(t *testing.T) {
	assert := assert.New(t)

	bus := newTestBus(
		[]byte{0xac}, []byte{0x02}, defunctStatus(),
	)
	c := NewWithBus(bus)

	found, err := c.ScanBusRange(8, 8)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(uint8(8), found[0].Device)
	assert.Equal(Device1571, found[0].Info.DeviceType)
}

func TestUsbDeviceResetWithoutOpener(t *testing.T) {
	c := NewWithBus(newTestBus())
	var ve *ValidationError
	assert.ErrorAs(t, c.UsbDeviceReset(), &ve)
}

func TestUsbDeviceReset(t *testing.T) {
	assert := assert.New(t)

	first := newTestBus()
	second := newTestBus()
	buses := []*testBus{first, second}

	c, err := New(func() (Bus, error) {
		bus := buses[0]
		buses = buses[1:]
		return bus, nil
	})
	require.NoError(t, err)

	require.NoError(t, c.UsbDeviceReset())
	assert.True(first.closed)
	assert.False(second.closed)

	require.NoError(t, c.Close())
	assert.True(second.closed)
}

func TestResetBus(t *testing.T) {
	bus := newTestBus()
	c := NewWithBus(bus)
	require.NoError(t, c.ResetBus())
	assert.Equal(t, []string{"reset"}, bus.calls)
}

func TestValidateDeviceModes(t *testing.T) {
	assert := assert.New(t)

	d, err := ValidateDevice(9, DeviceRequired)
	assert.NoError(err)
	assert.Equal(9, d)

	_, err = ValidateDevice(31, DeviceRequired)
	assert.Error(err)

	_, err = ValidateDevice(-1, DeviceRequired)
	assert.Error(err)

	d, err = ValidateDevice(-1, DeviceOptional)
	assert.NoError(err)
	assert.Equal(-1, d)

	d, err = ValidateDevice(-1, DeviceDefault)
	assert.NoError(err)
	assert.Equal(DefaultDeviceNum, d)
}
