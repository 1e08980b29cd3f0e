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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatusOk(t *testing.T) {
	assert := assert.New(t)

	status, err := ParseStatus([]byte("00, OK,00,00\r"), 8)
	require.NoError(t, err)

	assert.Equal(uint8(0), status.Number)
	assert.Equal(ErrOK, status.ErrorNumber)
	assert.Equal("OK", status.Message)
	assert.Equal(uint8(8), status.Device)
	assert.Equal(ClassOk, status.Classify())
	assert.NoError(status.Err())
	assert.True(status.IsValid())
}

func TestParseStatusReadError(t *testing.T) {
	assert := assert.New(t)

	status, err := ParseStatus([]byte("21,READ ERROR,18,04\r"), 9)
	require.NoError(t, err)

	assert.Equal(ClassErr, status.Classify())
	assert.Error(status.Err())
	assert.Error(status.ErrIgnoring73())

	track, sector, ok := status.TrackSector()
	assert.True(ok)
	assert.Equal(uint8(18), track)
	assert.Equal(uint8(4), sector)
}

func TestParseStatusDosVersion(t *testing.T) {
	assert := assert.New(t)

	status, err := ParseStatus([]byte("73,CBM DOS V2.6 1541,00,00\r"), 8)
	require.NoError(t, err)

	assert.Equal(ClassNumber73, status.Classify())
	assert.Equal(ErrDosMismatch, status.ErrorNumber)
	assert.Error(status.Err())
	assert.NoError(status.ErrIgnoring73())
}

func TestParseStatusFilesScratched(t *testing.T) {
	assert := assert.New(t)

	status, err := ParseStatus([]byte("01,FILES SCRATCHED,03,00\r"), 8)
	require.NoError(t, err)

	count, ok := status.FilesScratched()
	assert.True(ok)
	assert.Equal(uint8(3), count)
	assert.Equal(ClassOk, status.Classify())
}

func TestParseStatusUnknownCode(t *testing.T) {

	status, err := ParseStatus([]byte("91,WEIRD,00,00\r"), 8)
	require.NoError(t, err)

	assert.Equal(t, uint8(91), status.Number)
	assert.Equal(t, ErrUnknown, status.ErrorNumber)
	assert.False(t, status.IsValid())
	assert.Equal(t, ClassErr, status.Classify())
}

func TestParseStatusMalformed(t *testing.T) {

	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"only terminator", "\r"},
		{"three fields", "00,OK,00"},
		{"five fields", "00,OK,00,00,00"},
		{"non numeric code", "xx,OK,00,00"},
		{"non numeric track", "21,READ ERROR,aa,04"},
		{"code out of range", "300,OK,00,00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStatus([]byte(tt.raw+"\r"), 8)
			assert.Error(t, err)
			assert.True(t, IsParseError(err))
		})
	}
}

// everything from the first '\r' onward must be ignored, trailing noise
// off the bus is normal
func TestParseStatusStripsAtTerminator(t *testing.T) {

	raw := append([]byte("00, OK,00,00\r"), 0xff, 0xfe, 0xfd)
	status, err := ParseStatus(raw, 8)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), status.Number)
}

func TestStatusString(t *testing.T) {
	status := &Status{Number: 21, Message: "READ ERROR", Track: 18, Sector: 4}
	assert.Equal(t, "21,READ ERROR,18,04", status.String())
	assert.Equal(t, "21,READ ERROR", status.ShortString())
}
