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

/*
	PetsciiString is a byte sequence in the drive's native 8-bit character
	set. All bytes are valid PETSCII, so there is no validating constructor;
	conversion to ASCII is total, rendering untranslatable bytes as '.'.
*/
type PetsciiString []byte

/*
	AsciiString is a byte sequence holding 7-bit ASCII only. Create it with
	NewAsciiString or AsciiFromString; the two type names make it explicit at
	API boundaries which charset a command or file name is in.
*/
type AsciiString []byte

//
func NewAsciiString(b []byte) (AsciiString, error) {
	for _, c := range b {
		if c > 0x7f {
			return nil, &ValidationError{Message: fmt.Sprintf(
				"byte 0x%02x is not ASCII", c)}
		}
	}
	ret := make(AsciiString, len(b))
	copy(ret, b)
	return ret, nil
}

//
func AsciiFromString(s string) (AsciiString, error) {
	return NewAsciiString([]byte(s))
}

// MustAscii is for string literals known to be ASCII; it panics otherwise.
func MustAscii(s string) AsciiString {
	ret, err := AsciiFromString(s)
	if err != nil {
		panic(err)
	}
	return ret
}

//
func (a AsciiString) ToPetscii() PetsciiString {
	ret := make(PetsciiString, len(a))
	for ix, c := range a {
		ret[ix] = AsciiToPetscii(c)
	}
	return ret
}

//
func (a AsciiString) String() string {
	return string(a)
}

//
func (p PetsciiString) ToAscii() AsciiString {
	ret := make(AsciiString, len(p))
	for ix, c := range p {
		ret[ix] = PetsciiToAscii(c)
	}
	return ret
}

//
func (p PetsciiString) String() string {
	return string(p.ToAscii())
}

/*
	PetsciiToAscii maps one PETSCII byte to its displayable ASCII
	equivalent. Carriage return and line feed both become '\n', the two
	shifted-space codes become a plain space. The letter bands 0x40-0x5F,
	0x60-0x7F and 0xC0-0xDF are folded onto ASCII with a masked XOR; any
	remaining byte passes through when printable and becomes '.' otherwise.
*/
func PetsciiToAscii(c byte) byte {
	switch c {
	case 0x0a, 0x0d:
		return '\n'
	case 0x40, 0x60:
		return c
	case 0xa0, 0xe0: // shifted space
		return ' '
	}
	switch c & 0xe0 {
	case 0x40, 0x60:
		return c ^ 0x20
	case 0xc0:
		return c ^ 0x80
	}
	if c >= 0x20 && c < 0x7f {
		return c
	}
	return '.'
}

/*
	AsciiToPetscii is the inverse mapping: bytes in 0x5B-0x7E are XORed with
	0x20, upper case letters get the high bit set, everything else passes
	through unchanged. Round-tripping any printable ASCII byte through
	AsciiToPetscii then PetsciiToAscii yields the original byte.
*/
func AsciiToPetscii(c byte) byte {
	if c >= 0x5b && c <= 0x7e {
		return c ^ 0x20
	}
	if c >= 'A' && c <= 'Z' {
		return c | 0x80
	}
	return c
}

// PetsciiBytesToString renders raw PETSCII bytes for display.
func PetsciiBytesToString(b []byte) string {
	return PetsciiString(b).String()
}
