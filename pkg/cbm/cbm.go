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
	"sync"

	log "github.com/sirupsen/logrus"
)

// drives transfer data in 256 byte sectors, so that's the chunk unit for
// streaming reads and writes
const transferChunkSize = 256

// channel used for named file reads and writes
const channelFile = 2

/*
	Cbm sequences all multi-step transactions of the drive protocol on top of
	a raw Bus transport. The transport is guarded by a mutex; every public
	operation holds it for exactly one coherent bus transaction, since a
	partially interleaved talk/listen sequence from a second caller would
	corrupt drive state. Share a Cbm between goroutines by sharing the
	pointer.
*/
type Cbm struct {
	mu     sync.Mutex
	bus    Bus
	opener BusOpener
}

// New opens a transport via the opener and wraps it. The opener is kept
// for UsbDeviceReset.
func New(opener BusOpener) (*Cbm, error) {
	bus, err := opener()
	if err != nil {
		return nil, err
	}
	return &Cbm{bus: bus, opener: opener}, nil
}

// NewWithBus wraps an already opened transport. UsbDeviceReset is not
// available on instances created this way.
func NewWithBus(bus Bus) *Cbm {
	return &Cbm{bus: bus}
}

// Close releases the transport.
func (c *Cbm) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bus.Close()
}

// ResetBus issues a bus-level reset to all devices on the IEC bus.
func (c *Cbm) ResetBus() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	log.Debug("resetting IEC bus")
	return c.bus.Reset()
}

/*
	UsbDeviceReset closes and reopens the transport, which forces a reset of
	the adapter itself. This is coarser than ResetBus. When reopening fails
	the Cbm is left without a usable transport and the error is returned; a
	subsequent successful UsbDeviceReset recovers it.
*/
func (c *Cbm) UsbDeviceReset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.opener == nil {
		return &ValidationError{
			Message: "transport cannot be reopened, no opener present"}
	}

	log.Debug("resetting adapter by transport reopen")
	if err := c.bus.Close(); err != nil {
		log.Debugf("closing transport for reset: %v", err)
	}

	bus, err := c.opener()
	if err != nil {
		return err
	}
	c.bus = bus
	return nil
}

// GetStatus reads and parses the device's status line from the control
// channel.
func (c *Cbm) GetStatus(device uint8) (*Status, error) {
	dc, err := NewDeviceChannel(device, ChannelCtrl)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return getStatusLocked(c.bus, dc)
}

/*
	getStatusLocked runs the status transaction: talk on channel 15, read up
	to the cap or a '\r', untalk, parse. The untalk is attempted even when
	the read failed. A zero-byte read here is the decisive absent-device
	signal and maps to a NoDevice error.
*/
func getStatusLocked(bus Bus, dc DeviceChannel) (*Status, error) {

	if err := bus.Talk(dc); err != nil {
		return nil, readError(dc, fmt.Sprintf("talk failed: %v", err))
	}

	buf := make([]byte, statusReadCap)
	n, err := bus.ReadUntil(buf, '\r')
	if err != nil {
		if e := bus.Untalk(); e != nil {
			log.Debugf("untalk after failed status read: %v", e)
		}
		return nil, readError(dc, fmt.Sprintf("status read failed: %v", err))
	}

	if err := bus.Untalk(); err != nil {
		return nil, readError(dc, fmt.Sprintf("untalk failed: %v", err))
	}

	if n == 0 {
		return nil, noDeviceError(dc.Device())
	}

	return ParseStatus(buf[:n], dc.Device())
}

// SendCommand sends raw PETSCII command bytes over the control channel.
func (c *Cbm) SendCommand(device uint8, cmd PetsciiString) error {
	dc, err := NewDeviceChannel(device, ChannelCtrl)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return sendCommandLocked(c.bus, dc, cmd)
}

// SendCommandAscii converts the command to PETSCII and sends it.
func (c *Cbm) SendCommandAscii(device uint8, cmd AsciiString) error {
	return c.SendCommand(device, cmd.ToPetscii())
}

// SendStringCommand sends a command given as a plain Go string, which must
// be ASCII.
func (c *Cbm) SendStringCommand(device uint8, cmd string) error {
	ascii, err := AsciiFromString(cmd)
	if err != nil {
		return err
	}
	return c.SendCommandAscii(device, ascii)
}

// sendCommandLocked runs the command transaction: listen on channel 15,
// write, unlisten. The unlisten is attempted even when the write failed.
func sendCommandLocked(bus Bus, dc DeviceChannel, cmd PetsciiString) error {
	log.Tracef("device %d command: %q", dc.Device(), cmd.String())

	if err := bus.Listen(dc); err != nil {
		return writeError(dc, fmt.Sprintf("listen failed: %v", err))
	}

	if _, err := bus.Write(cmd); err != nil {
		if e := bus.Unlisten(); e != nil {
			log.Debugf("unlisten after failed command write: %v", e)
		}
		return writeError(dc, fmt.Sprintf("command write failed: %v", err))
	}

	if err := bus.Unlisten(); err != nil {
		return writeError(dc, fmt.Sprintf("unlisten failed: %v", err))
	}
	return nil
}

// sendCommandAndGetStatus runs command plus status read as one transaction.
func (c *Cbm) sendCommandAndGetStatus(device uint8, cmd AsciiString) (
	*Status, error) {

	dc, err := NewDeviceChannel(device, ChannelCtrl)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := sendCommandLocked(c.bus, dc, cmd.ToPetscii()); err != nil {
		return nil, err
	}
	return getStatusLocked(c.bus, dc)
}

/*
	FormatDisk formats the disk in the device, giving it the name and the
	two-character id. The id length is validated before anything is sent.
	The status the drive reported after the format is returned alongside any
	error derived from it.
*/
func (c *Cbm) FormatDisk(device uint8, name, id AsciiString) (*Status, error) {

	if len(id) != DiskIDLength {
		return nil, &ValidationError{
			Message: fmt.Sprintf("disk id must be %d characters", DiskIDLength)}
	}

	cmd, err := AsciiFromString(fmt.Sprintf("n0:%s,%s", name, id))
	if err != nil {
		return nil, err
	}

	status, err := c.sendCommandAndGetStatus(device, cmd)
	if err != nil {
		return nil, err
	}
	return status, status.Err()
}

// DeleteFile scratches the named file. The returned status carries the
// scratch count, see Status.FilesScratched.
func (c *Cbm) DeleteFile(device uint8, filename AsciiString) (*Status, error) {

	cmd, err := AsciiFromString(fmt.Sprintf("s0:%s", filename))
	if err != nil {
		return nil, err
	}

	status, err := c.sendCommandAndGetStatus(device, cmd)
	if err != nil {
		return nil, err
	}
	return status, status.Err()
}

// ValidateDisk runs the BAM recovery scan on the disk in the device.
func (c *Cbm) ValidateDisk(device uint8) (*Status, error) {
	status, err := c.sendCommandAndGetStatus(device, MustAscii("v"))
	if err != nil {
		return nil, err
	}
	return status, status.Err()
}

/*
	OpenFile opens the named file on the device channel: open, write the
	PETSCII file name, unlisten, then verify the drive reports an ok status.
	Any failure in the sequence closes the channel again before the error is
	returned.
*/
func (c *Cbm) OpenFile(dc DeviceChannel, filename AsciiString) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := openFileLocked(c.bus, dc, filename.ToPetscii()); err != nil {
		return err
	}

	ctrl := DeviceChannel{device: dc.Device(), channel: ChannelCtrl}
	status, err := getStatusLocked(c.bus, ctrl)
	if err != nil {
		closeFileQuietly(c.bus, dc)
		return err
	}
	if err := status.Err(); err != nil {
		closeFileQuietly(c.bus, dc)
		return err
	}
	return nil
}

// openFileLocked runs the raw open sequence without the status check.
func openFileLocked(bus Bus, dc DeviceChannel, name PetsciiString) error {

	if err := bus.Open(dc); err != nil {
		return writeError(dc, fmt.Sprintf("open failed: %v", err))
	}

	if _, err := bus.Write(name); err != nil {
		closeFileQuietly(bus, dc)
		return writeError(dc, fmt.Sprintf("file name write failed: %v", err))
	}

	if err := bus.Unlisten(); err != nil {
		closeFileQuietly(bus, dc)
		return writeError(dc, fmt.Sprintf("unlisten failed: %v", err))
	}
	return nil
}

// CloseFile closes the channel on the device.
func (c *Cbm) CloseFile(dc DeviceChannel) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.bus.CloseChannel(dc); err != nil {
		return writeError(dc, fmt.Sprintf("close failed: %v", err))
	}
	return nil
}

//
func closeFileQuietly(bus Bus, dc DeviceChannel) {
	if err := bus.CloseChannel(dc); err != nil {
		log.Debugf("close channel during cleanup (%s): %v", dc, err)
	}
}

//
func untalkAndCloseQuietly(bus Bus, dc DeviceChannel) {
	if err := bus.Untalk(); err != nil {
		log.Debugf("untalk during cleanup (%s): %v", dc, err)
	}
	closeFileQuietly(bus, dc)
}

// LoadFileAscii converts the file name to PETSCII and loads the file.
func (c *Cbm) LoadFileAscii(device uint8, filename AsciiString) ([]byte, error) {
	return c.LoadFilePetscii(device, filename.ToPetscii())
}

/*
	LoadFilePetscii reads a whole file through the dedicated load channel:
	open, verify status, talk, stream in chunks until a short read, untalk,
	close. Each stage's failure triggers a best-effort untalk/close before
	the error propagates.
*/
func (c *Cbm) LoadFilePetscii(device uint8, filename PetsciiString) (
	[]byte, error) {

	dc, err := NewDeviceChannel(device, ChannelLoad)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := openFileLocked(c.bus, dc, filename); err != nil {
		return nil, err
	}

	ctrl := DeviceChannel{device: device, channel: ChannelCtrl}
	status, err := getStatusLocked(c.bus, ctrl)
	if err != nil {
		closeFileQuietly(c.bus, dc)
		return nil, err
	}
	if err := status.Err(); err != nil {
		closeFileQuietly(c.bus, dc)
		return nil, err
	}

	data, err := readStreamLocked(c.bus, dc)
	if err != nil {
		return nil, err
	}

	if err := c.bus.CloseChannel(dc); err != nil {
		return nil, writeError(dc, fmt.Sprintf("close failed: %v", err))
	}
	return data, nil
}

// readStreamLocked streams chunks from the talking device until a short
// read signals the end of the file, then untalks.
func readStreamLocked(bus Bus, dc DeviceChannel) ([]byte, error) {

	if err := bus.Talk(dc); err != nil {
		closeFileQuietly(bus, dc)
		return nil, readError(dc, fmt.Sprintf("talk failed: %v", err))
	}

	var data []byte
	buf := make([]byte, transferChunkSize)

	for {
		n, err := bus.Read(buf)
		if err != nil {
			untalkAndCloseQuietly(bus, dc)
			return nil, readError(dc, fmt.Sprintf("read failed: %v", err))
		}
		data = append(data, buf[:n]...)
		if n < transferChunkSize {
			break
		}
	}

	if err := bus.Untalk(); err != nil {
		closeFileQuietly(bus, dc)
		return nil, readError(dc, fmt.Sprintf("untalk failed: %v", err))
	}

	log.Debugf("device %d: read %d bytes from channel %d",
		dc.Device(), len(data), dc.Channel())
	return data, nil
}

// ReadFile reads the whole named file from the device.
func (c *Cbm) ReadFile(device uint8, filename AsciiString) ([]byte, error) {

	dc, err := NewDeviceChannel(device, channelFile)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := openFileLocked(c.bus, dc, filename.ToPetscii()); err != nil {
		return nil, err
	}

	ctrl := DeviceChannel{device: device, channel: ChannelCtrl}
	status, err := getStatusLocked(c.bus, ctrl)
	if err != nil {
		closeFileQuietly(c.bus, dc)
		return nil, err
	}
	if err := status.Err(); err != nil {
		closeFileQuietly(c.bus, dc)
		return nil, err
	}

	data, err := readStreamLocked(c.bus, dc)
	if err != nil {
		return nil, err
	}

	if err := c.bus.CloseChannel(dc); err != nil {
		return nil, writeError(dc, fmt.Sprintf("close failed: %v", err))
	}
	return data, nil
}

/*
	WriteFile creates or overwrites the named file with the data. The file
	is opened with the overwrite prefix, then streamed in chunks while the
	channel listens.
*/
func (c *Cbm) WriteFile(device uint8, filename AsciiString, data []byte) error {

	dc, err := NewDeviceChannel(device, channelFile)
	if err != nil {
		return err
	}

	name, err := AsciiFromString(fmt.Sprintf("@:%s", filename))
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := openFileLocked(c.bus, dc, name.ToPetscii()); err != nil {
		return err
	}

	ctrl := DeviceChannel{device: device, channel: ChannelCtrl}
	status, err := getStatusLocked(c.bus, ctrl)
	if err != nil {
		closeFileQuietly(c.bus, dc)
		return err
	}
	if err := status.Err(); err != nil {
		closeFileQuietly(c.bus, dc)
		return err
	}

	if err := c.bus.Listen(dc); err != nil {
		closeFileQuietly(c.bus, dc)
		return writeError(dc, fmt.Sprintf("listen failed: %v", err))
	}

	for off := 0; off < len(data); off += transferChunkSize {
		end := off + transferChunkSize
		if end > len(data) {
			end = len(data)
		}
		chunk := data[off:end]

		n, err := c.bus.Write(chunk)
		if err != nil {
			if e := c.bus.Unlisten(); e != nil {
				log.Debugf("unlisten during cleanup (%s): %v", dc, e)
			}
			closeFileQuietly(c.bus, dc)
			return writeError(dc, fmt.Sprintf("write failed: %v", err))
		}
		if n != len(chunk) {
			if e := c.bus.Unlisten(); e != nil {
				log.Debugf("unlisten during cleanup (%s): %v", dc, e)
			}
			closeFileQuietly(c.bus, dc)
			return writeError(dc, fmt.Sprintf(
				"short write, %d of %d bytes", n, len(chunk)))
		}
	}

	if err := c.bus.Unlisten(); err != nil {
		closeFileQuietly(c.bus, dc)
		return writeError(dc, fmt.Sprintf("unlisten failed: %v", err))
	}

	if err := c.bus.CloseChannel(dc); err != nil {
		return writeError(dc, fmt.Sprintf("close failed: %v", err))
	}

	log.Debugf("device %d: wrote %d bytes to %q", device, len(data), filename)
	return nil
}

// DriveNone selects no explicit drive in a Dir call, for single-drive
// units whose firmware rejects a drive suffix.
const DriveNone = -1

/*
	Dir reads and decodes the directory of the device. driveNum selects the
	sub-drive on dual units, 0 or 1; pass DriveNone to load `$` without a
	drive suffix.
*/
func (c *Cbm) Dir(device uint8, driveNum int) (*DirListing, error) {

	var name string
	switch driveNum {
	case DriveNone:
		name = "$"
	case 0, 1:
		name = fmt.Sprintf("$%d", driveNum)
	default:
		return nil, &ValidationError{Message: fmt.Sprintf(
			"invalid drive number %d, must be 0 or 1", driveNum)}
	}

	data, err := c.LoadFileAscii(device, MustAscii(name))
	if err != nil {
		return nil, err
	}
	return DecodeDirectory(data)
}

/*
	ReadDriveMemory reads len(buf) bytes of drive RAM/ROM starting at addr,
	one byte per M-R command for DOS1 compatibility; the address wraps
	around at 16 bits. M-R leaves the drive's status channel in an
	inconsistent state, so the whole sequence ends with a status drain whose
	parse failure is the expected outcome; a clean status is merely logged
	as anomalous, while any other status failure surfaces as a device error.
	The drain happens inside the same critical section as the reads.
*/
func (c *Cbm) ReadDriveMemory(device uint8, addr uint16, buf []byte) error {

	dc, err := NewDeviceChannel(device, ChannelCtrl)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return readDriveMemoryLocked(c.bus, dc, addr, buf)
}

//
func readDriveMemoryLocked(bus Bus, dc DeviceChannel, addr uint16,
	buf []byte) error {

	for i := range buf {
		a := addr + uint16(i)
		cmd := PetsciiString{'M', '-', 'R', byte(a), byte(a >> 8)}

		if err := sendCommandLocked(bus, dc, cmd); err != nil {
			return err
		}

		if err := bus.Talk(dc); err != nil {
			return readError(dc, fmt.Sprintf("talk failed: %v", err))
		}
		n, err := bus.Read(buf[i : i+1])
		if err != nil {
			if e := bus.Untalk(); e != nil {
				log.Debugf("untalk after failed memory read: %v", e)
			}
			return readError(dc, fmt.Sprintf("memory read failed: %v", err))
		}
		if err := bus.Untalk(); err != nil {
			return readError(dc, fmt.Sprintf("untalk failed: %v", err))
		}
		if n == 0 {
			return noDeviceError(dc.Device())
		}
	}

	return drainStatusLocked(bus, dc)
}

// drainStatusLocked absorbs the defunct status a drive reports after a
// memory read. The expected outcome is a parse failure.
func drainStatusLocked(bus Bus, dc DeviceChannel) error {
	status, err := getStatusLocked(bus, dc)
	switch {
	case err == nil:
		log.Warnf("device %d: unexpectedly clean status after memory read: %s",
			dc.Device(), status)
	case IsParseError(err):
		log.Debugf("device %d: drained defunct status after memory read",
			dc.Device())
	default:
		return getStatusFailure(dc.Device(), err.Error())
	}
	return nil
}

// WriteDriveMemory writes data into drive RAM starting at addr, one byte
// per M-W command, with 16-bit address wraparound, then checks status.
func (c *Cbm) WriteDriveMemory(device uint8, addr uint16, data []byte) error {

	dc, err := NewDeviceChannel(device, ChannelCtrl)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i, b := range data {
		a := addr + uint16(i)
		cmd := PetsciiString{'M', '-', 'W', byte(a), byte(a >> 8), b}

		if err := sendCommandLocked(c.bus, dc, cmd); err != nil {
			return err
		}
	}

	status, err := getStatusLocked(c.bus, dc)
	if err != nil {
		return getStatusFailure(device, err.Error())
	}
	return status.Err()
}

// ROM locations peeked during identification
const (
	romMagicAddr        = 0xff40
	romMagicAddrRetry   = 0xfffe
	romMagicAddrVariant = 0xe5c4
	romMagicAddr1581    = 0x8008
	romMagicSentinel    = 0xaaaa
	romMagic1581        = 0x01ba
)

/*
	Identify determines the model of the device by peeking its ROM. The
	signature word at 0xff40 decides directly for most models; the 0xaaaa
	sentinel requires a second peek at 0xfffe and, when that still reads
	0xaaaa, a third at 0xe5c4 to tell the 1540 family variants apart. The
	0x01ba signature requires a second peek at 0x8008 to distinguish the
	1581 from the FD series. All peeks run in a single critical section.
*/
func (c *Cbm) Identify(device uint8) (DeviceInfo, error) {

	dc, err := NewDeviceChannel(device, ChannelCtrl)
	if err != nil {
		return DeviceInfo{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	magic, err := peekMagicLocked(c.bus, dc, romMagicAddr)
	if err != nil {
		return DeviceInfo{}, err
	}

	var magic2 uint16
	hasMagic2 := false

	switch magic {
	case romMagicSentinel:
		if magic, err = peekMagicLocked(c.bus, dc, romMagicAddrRetry); err != nil {
			return DeviceInfo{}, err
		}
		if magic == romMagicSentinel {
			if magic2, err = peekMagicLocked(
				c.bus, dc, romMagicAddrVariant); err != nil {
				return DeviceInfo{}, err
			}
			hasMagic2 = true
		}

	case romMagic1581:
		if magic2, err = peekMagicLocked(c.bus, dc, romMagicAddr1581); err != nil {
			return DeviceInfo{}, err
		}
		hasMagic2 = true
	}

	info := DeviceInfoFromMagic(magic, magic2, hasMagic2)
	log.Debugf("device %d identified as %s", device, info)
	return info, nil
}

// peekMagicLocked reads a little-endian signature word from drive memory.
func peekMagicLocked(bus Bus, dc DeviceChannel, addr uint16) (uint16, error) {
	var buf [2]byte
	if err := readDriveMemoryLocked(bus, dc, addr, buf[:]); err != nil {
		return 0, err
	}
	return uint16(buf[0]) | uint16(buf[1])<<8, nil
}

/*
	DriveExists probes for the device with a listen on the control channel.
	An unacknowledged listen means no device, reported as false rather than
	an error; any other failure propagates.
*/
func (c *Cbm) DriveExists(device uint8) (bool, error) {

	dc, err := NewDeviceChannel(device, ChannelCtrl)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.bus.Listen(dc); err != nil {
		if errors.Is(err, ErrDeviceNotPresent) {
			if e := c.bus.Unlisten(); e != nil {
				log.Debugf("unlisten after device probe: %v", e)
			}
			return false, nil
		}
		return false, writeError(dc, fmt.Sprintf("listen failed: %v", err))
	}

	if err := c.bus.Unlisten(); err != nil {
		return false, writeError(dc, fmt.Sprintf("unlisten failed: %v", err))
	}
	return true, nil
}

// BusDevice is one device found during a bus scan.
type BusDevice struct {
	Device uint8      `json:"device"`
	Info   DeviceInfo `json:"info"`
}

/*
	ScanBusRange probes every device number in the inclusive range and
	identifies the devices that answer. Identification failures of the
	device-error class are tolerated, the device is skipped with a warning;
	any other error aborts the scan.
*/
func (c *Cbm) ScanBusRange(from, to uint8) ([]BusDevice, error) {

	if from < MinDeviceNum || to > MaxDeviceNum || from > to {
		return nil, &ValidationError{Message: fmt.Sprintf(
			"invalid device range %d-%d", from, to)}
	}

	var found []BusDevice

	for device := from; device <= to; device++ {

		exists, err := c.DriveExists(device)
		if err != nil {
			return nil, err
		}
		if !exists {
			log.Debugf("no device at %d", device)
			continue
		}

		info, err := c.Identify(device)
		if err != nil {
			if IsDeviceError(err) {
				log.Warnf("skipping device %d, identify failed: %v", device, err)
				continue
			}
			return nil, err
		}

		found = append(found, BusDevice{Device: device, Info: info})
	}

	return found, nil
}
