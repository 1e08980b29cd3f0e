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
	"bytes"
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// ErrorNumber is the error code a drive reports on its status channel.
// Codes not in the known set map to ErrUnknown but still parse.
type ErrorNumber uint8

//
const (
	ErrOK                                 ErrorNumber = 0
	ErrFilesScratched                     ErrorNumber = 1
	ErrReadBlockHeaderNotFound            ErrorNumber = 20
	ErrReadNoSyncCharacter                ErrorNumber = 21
	ErrReadDataBlockNotPresent            ErrorNumber = 22
	ErrReadChecksumErrorInDataBlock       ErrorNumber = 23
	ErrReadByteDecodingError              ErrorNumber = 24
	ErrWriteVerifyError                   ErrorNumber = 25
	ErrWriteProtectOn                     ErrorNumber = 26
	ErrReadChecksumErrorInHeader          ErrorNumber = 27
	ErrWriteLongDataBlock                 ErrorNumber = 28
	ErrDiskIDMismatch                     ErrorNumber = 29
	ErrSyntaxGeneral                      ErrorNumber = 30
	ErrSyntaxInvalidCommand               ErrorNumber = 31
	ErrSyntaxLongLine                     ErrorNumber = 32
	ErrSyntaxInvalidFileName              ErrorNumber = 33
	ErrSyntaxNoFileGiven                  ErrorNumber = 34
	ErrSyntaxInvalidCommandChannel15      ErrorNumber = 39
	ErrRecordNotPresent                   ErrorNumber = 50
	ErrOverflowInRecord                   ErrorNumber = 51
	ErrFileTooLarge                       ErrorNumber = 52
	ErrWriteFileOpen                      ErrorNumber = 60
	ErrFileNotOpen                        ErrorNumber = 61
	ErrFileNotFound                       ErrorNumber = 62
	ErrFileExists                         ErrorNumber = 63
	ErrFileTypeMismatch                   ErrorNumber = 64
	ErrNoBlock                            ErrorNumber = 65
	ErrIllegalTrackAndSector              ErrorNumber = 66
	ErrIllegalSystemTOrS                  ErrorNumber = 67
	ErrNoChannel                          ErrorNumber = 70
	ErrDirectoryError                     ErrorNumber = 71
	ErrDiskFull                           ErrorNumber = 72
	ErrDosMismatch                        ErrorNumber = 73
	ErrDriveNotReady                      ErrorNumber = 74
	ErrFormatError                        ErrorNumber = 75
	ErrUnknown                            ErrorNumber = 255
)

//
var errorNumberNames = map[ErrorNumber]string{
	ErrOK:                            "OK",
	ErrFilesScratched:                "FILES SCRATCHED",
	ErrReadBlockHeaderNotFound:       "READ ERROR (block header not found)",
	ErrReadNoSyncCharacter:           "READ ERROR (no sync character)",
	ErrReadDataBlockNotPresent:       "READ ERROR (data block not present)",
	ErrReadChecksumErrorInDataBlock:  "READ ERROR (checksum error in data block)",
	ErrReadByteDecodingError:         "READ ERROR (byte decoding error)",
	ErrWriteVerifyError:              "WRITE ERROR (write verify error)",
	ErrWriteProtectOn:                "WRITE PROTECT ON",
	ErrReadChecksumErrorInHeader:     "READ ERROR (checksum error in header)",
	ErrWriteLongDataBlock:            "WRITE ERROR (long data block)",
	ErrDiskIDMismatch:                "DISK ID MISMATCH",
	ErrSyntaxGeneral:                 "SYNTAX ERROR (general syntax)",
	ErrSyntaxInvalidCommand:          "SYNTAX ERROR (invalid command)",
	ErrSyntaxLongLine:                "SYNTAX ERROR (long line)",
	ErrSyntaxInvalidFileName:         "SYNTAX ERROR (invalid file name)",
	ErrSyntaxNoFileGiven:             "SYNTAX ERROR (no file given)",
	ErrSyntaxInvalidCommandChannel15: "SYNTAX ERROR (invalid command on channel 15)",
	ErrRecordNotPresent:              "RECORD NOT PRESENT",
	ErrOverflowInRecord:              "OVERFLOW IN RECORD",
	ErrFileTooLarge:                  "FILE TOO LARGE",
	ErrWriteFileOpen:                 "WRITE FILE OPEN",
	ErrFileNotOpen:                   "FILE NOT OPEN",
	ErrFileNotFound:                  "FILE NOT FOUND",
	ErrFileExists:                    "FILE EXISTS",
	ErrFileTypeMismatch:              "FILE TYPE MISMATCH",
	ErrNoBlock:                       "NO BLOCK",
	ErrIllegalTrackAndSector:         "ILLEGAL TRACK AND SECTOR",
	ErrIllegalSystemTOrS:             "ILLEGAL SYSTEM T OR S",
	ErrNoChannel:                     "NO CHANNEL",
	ErrDirectoryError:                "DIRECTORY ERROR",
	ErrDiskFull:                      "DISK FULL",
	ErrDosMismatch:                   "DOS MISMATCH",
	ErrDriveNotReady:                 "DRIVE NOT READY",
	ErrFormatError:                   "FORMAT ERROR",
	ErrUnknown:                       "unknown",
}

// ErrorNumberFromCode maps a raw status code to the known set.
func ErrorNumberFromCode(code uint8) ErrorNumber {
	if _, ok := errorNumberNames[ErrorNumber(code)]; ok {
		return ErrorNumber(code)
	}
	return ErrUnknown
}

//
func (e ErrorNumber) String() string {
	if name, ok := errorNumberNames[e]; ok {
		return name
	}
	return "unknown"
}

// Classification is the coarse outcome of a drive status.
type Classification int

//
const (
	// ClassOk - status numbers below 20 report success or information.
	ClassOk Classification = iota
	// ClassErr - the drive reported an actual error.
	ClassErr
	// ClassNumber73 - DOS version message; tolerable after a bus reset,
	// an error in any other context.
	ClassNumber73
)

// maximum number of bytes read off the status channel when no '\r' appears
const statusReadCap = 64

/*
	Status is the parsed form of the comma-delimited line a drive returns on
	the control channel, e.g. "21,READ ERROR,18,04".
*/
type Status struct {
	Number      uint8       `json:"number"`
	ErrorNumber ErrorNumber `json:"errorNumber"`
	Message     string      `json:"message"`
	Track       uint8       `json:"track"`
	Sector      uint8       `json:"sector"`
	Device      uint8       `json:"device"`
}

/*
	ParseStatus converts the raw bytes read from a drive's status channel
	into a Status. Everything from the first '\r' onward is stripped; the
	remainder must consist of exactly four comma-separated fields. Unknown
	error codes are accepted and logged, they classify as ErrUnknown.
*/
func ParseStatus(raw []byte, device uint8) (*Status, error) {
	log.Tracef("device %d status bytes: %v", device, raw)

	clean := raw
	if ix := bytes.IndexByte(raw, '\r'); ix >= 0 {
		clean = raw[:ix]
	}

	line := strings.TrimSpace(string(clean))
	if len(line) == 0 {
		return nil, &ParseError{Message: fmt.Sprintf(
			"device %d provided zero length status string", device)}
	}

	parts := strings.Split(line, ",")
	if len(parts) != 4 {
		return nil, &ParseError{Message: fmt.Sprintf(
			"device %d supplied status format: %s", device, line)}
	}

	number, err := parseStatusField(parts[0], "error number", line, device)
	if err != nil {
		return nil, err
	}
	track, err := parseStatusField(parts[2], "track", line, device)
	if err != nil {
		return nil, err
	}
	sector, err := parseStatusField(parts[3], "sector", line, device)
	if err != nil {
		return nil, err
	}

	errNum := ErrorNumberFromCode(number)
	if errNum == ErrUnknown {
		log.Warnf("unknown error number returned by drive: %d", number)
	}

	return &Status{
		Number:      number,
		ErrorNumber: errNum,
		Message:     strings.TrimSpace(parts[1]),
		Track:       track,
		Sector:      sector,
		Device:      device,
	}, nil
}

//
func parseStatusField(field, name, line string, device uint8) (uint8, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(field), 10, 8)
	if err != nil {
		return 0, &ParseError{Message: fmt.Sprintf(
			"device %d: invalid %s: %s within status: %s",
			device, name, field, line)}
	}
	return uint8(v), nil
}

//
func (s *Status) Classify() Classification {
	switch {
	case s.Number < 20:
		return ClassOk
	case s.Number == 73:
		return ClassNumber73
	default:
		return ClassErr
	}
}

// Err converts the status into an error, nil when the status is OK.
func (s *Status) Err() error {
	if s.Classify() == ClassOk {
		return nil
	}
	return &StatusError{Status: s}
}

// ErrIgnoring73 is like Err, but also accepts the DOS version message,
// which a drive reports right after power-on or bus reset.
func (s *Status) ErrIgnoring73() error {
	if s.Classify() == ClassErr {
		return &StatusError{Status: s}
	}
	return nil
}

// IsValid reports whether the drive returned any recognized response,
// i.e. the drive works even if the disk is missing or corrupt.
func (s *Status) IsValid() bool {
	return s.ErrorNumber != ErrUnknown
}

// FilesScratched returns the scratch count, carried in the track field of
// a FILES SCRATCHED status.
func (s *Status) FilesScratched() (uint8, bool) {
	if s.ErrorNumber == ErrFilesScratched {
		return s.Track, true
	}
	return 0, false
}

// TrackSector returns the failing disk position for read errors (20-29).
func (s *Status) TrackSector() (uint8, uint8, bool) {
	if s.Number >= 20 && s.Number <= 29 {
		return s.Track, s.Sector, true
	}
	return 0, 0, false
}

//
func (s *Status) String() string {
	return fmt.Sprintf("%02d,%s,%02d,%02d",
		s.Number, s.Message, s.Track, s.Sector)
}

// ShortString renders just code and message.
func (s *Status) ShortString() string {
	return fmt.Sprintf("%02d,%s", s.Number, s.Message)
}
