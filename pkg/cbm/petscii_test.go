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
)

func TestPetsciiToAscii(t *testing.T) {

	tests := []struct {
		name string
		in   byte
		want byte
	}{
		{"carriage return", 0x0d, '\n'},
		{"line feed", 0x0a, '\n'},
		{"shifted space a0", 0xa0, ' '},
		{"shifted space e0", 0xe0, ' '},
		{"at sign passes", 0x40, 0x40},
		{"backtick passes", 0x60, 0x60},
		{"space passes", 0x20, ' '},
		{"digit passes", '7', '7'},
		{"upper band folds", 0x41, 'a'},
		{"0x60 band folds", 0x7a, 'Z'},
		{"0xc0 band folds", 0xc1, 'A'},
		{"control byte renders as dot", 0x01, '.'},
		{"high byte renders as dot", 0xff, '.'},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PetsciiToAscii(tt.in))
		})
	}
}

func TestAsciiToPetscii(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(byte(0x41), AsciiToPetscii('a'))
	assert.Equal(byte(0xc1), AsciiToPetscii('A'))
	assert.Equal(byte('0'), AsciiToPetscii('0'))
	assert.Equal(byte(' '), AsciiToPetscii(' '))
	assert.Equal(byte(0x7b), AsciiToPetscii('['))
}

// every printable ASCII byte must survive the round trip unchanged
func TestPetsciiRoundTrip(t *testing.T) {
	for c := byte(0x20); c < 0x7f; c++ {
		assert.Equal(t, c, PetsciiToAscii(AsciiToPetscii(c)),
			"round trip of 0x%02x", c)
	}
}

func TestAsciiStringValidation(t *testing.T) {
	assert := assert.New(t)

	s, err := AsciiFromString("load\"*\",8,1")
	assert.NoError(err)
	assert.Equal("load\"*\",8,1", s.String())

	_, err = NewAsciiString([]byte{'a', 0x80})
	assert.Error(err)
	var ve *ValidationError
	assert.ErrorAs(err, &ve)
}

func TestStringConversion(t *testing.T) {
	assert := assert.New(t)

	p := MustAscii("Hello World").ToPetscii()
	assert.Equal("Hello World", p.String())
	assert.Equal("Hello World", PetsciiBytesToString(p))
}
