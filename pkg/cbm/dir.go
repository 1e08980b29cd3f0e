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
	"strings"

	log "github.com/sirupsen/logrus"
)

// one block carries 254 bytes of user data; 2 bytes are chain pointers
const BytesPerBlock = 254

// FileType is the directory entry type of a file.
type FileType int

//
const (
	FileTypeUnknown FileType = iota
	FileTypePRG
	FileTypeSEQ
	FileTypeUSR
	FileTypeREL
)

//
func FileTypeFromString(s string) FileType {
	switch strings.ToUpper(s) {
	case "PRG":
		return FileTypePRG
	case "SEQ":
		return FileTypeSEQ
	case "USR":
		return FileTypeUSR
	case "REL":
		return FileTypeREL
	}
	return FileTypeUnknown
}

//
func (t FileType) String() string {
	switch t {
	case FileTypePRG:
		return "prg"
	case FileTypeSEQ:
		return "seq"
	case FileTypeUSR:
		return "usr"
	case FileTypeREL:
		return "rel"
	}
	return ""
}

// DiskHeader is the first line of a directory listing: drive number, disk
// name (up to 16 characters) and the two-character disk id.
type DiskHeader struct {
	DriveNumber uint8  `json:"driveNumber"`
	Name        string `json:"name"`
	ID          string `json:"id"`
}

//
const (
	MaxDiskNameLength = 16
	DiskIDLength      = 2
)

//
func (h DiskHeader) String() string {
	return fmt.Sprintf("Drive %d Header: %q ID: %s", h.DriveNumber, h.Name, h.ID)
}

/*
	FileEntry is one line of a directory listing. A corrupted disk must
	still be representable, so lines that do not match the expected format
	become entries with ParseErr set, retaining the raw line and whatever
	block count or file name fragments could be salvaged.
*/
type FileEntry struct {
	Blocks   uint16   `json:"blocks"`
	Filename string   `json:"filename"`
	Type     FileType `json:"type"`
	// set only for entries that failed to parse
	Raw      string `json:"raw,omitempty"`
	ParseErr string `json:"parseError,omitempty"`
}

//
func (e FileEntry) Valid() bool {
	return e.ParseErr == ""
}

// MaxSize is the upper bound of the file's size in bytes, derived from the
// block count.
func (e FileEntry) MaxSize() uint64 {
	return uint64(e.Blocks) * BytesPerBlock
}

//
func (e FileEntry) String() string {
	if e.Valid() {
		return fmt.Sprintf("Filename: %-22s Blocks: %3d",
			fmt.Sprintf("%q.%s", e.Filename, e.Type), e.Blocks)
	}
	ret := fmt.Sprintf("Invalid entry: %q (%s)", e.Raw, e.ParseErr)
	if e.Filename != "" {
		ret += fmt.Sprintf(" [Filename: %q]", e.Filename)
	}
	if e.Blocks != 0 {
		ret += fmt.Sprintf(" [Blocks: %d]", e.Blocks)
	}
	return ret
}

// DirListing is a fully decoded directory; it is never mutated after
// construction.
type DirListing struct {
	Header     DiskHeader  `json:"header"`
	Files      []FileEntry `json:"files"`
	BlocksFree uint16      `json:"blocksFree"`
}

//
func (d *DirListing) NumFiles() int {
	return len(d.Files)
}

// BlocksUsed sums the block counts of all valid entries.
func (d *DirListing) BlocksUsed() uint16 {
	var ret uint16
	for _, f := range d.Files {
		if f.Valid() {
			ret += f.Blocks
		}
	}
	return ret
}

//
func (d *DirListing) TotalBlocks() uint16 {
	return d.BlocksUsed() + d.BlocksFree
}

//
func (d *DirListing) String() string {
	var b strings.Builder
	fmt.Fprintln(&b, d.Header)
	for _, f := range d.Files {
		fmt.Fprintln(&b, f)
	}
	fmt.Fprintf(&b, "Free blocks: %d\n", d.BlocksFree)
	return b.String()
}

/*
	DecodeDirectory decodes the byte stream obtained by loading the `$`
	pseudo-file. The stream is the directory rendered as a BASIC program:
	a 2-byte load address, then per line a 2-byte link address, a 16-bit
	little-endian line number (the block count), and the line text in the
	drive's charset, 0x00-terminated. The rendered lines are then parsed
	into header, file entries and the free-block count. Malformed file
	lines never abort the parse; only a missing header or missing
	"blocks free" line is fatal.
*/
func DecodeDirectory(data []byte) (*DirListing, error) {
	return parseListing(decodeLines(data))
}

/*
	decodeLines renders the raw record stream into one text line per
	directory entry. Decoding stops at the first incomplete record, which
	is how the stream ends (the final link address is truncated or the
	line text lacks its terminator).
*/
func decodeLines(data []byte) []string {

	var lines []string

	if len(data) < 2 {
		return lines
	}
	pos := 2 // skip the load address

	for pos+4 <= len(data) {

		// link address in data[pos:pos+2] is discarded
		size := uint16(data[pos+2]) | uint16(data[pos+3])<<8
		pos += 4

		var text []byte
		terminated := false
		for pos < len(data) {
			c := data[pos]
			pos++
			if c == 0x00 {
				terminated = true
				break
			}
			text = append(text, PetsciiToAscii(c))
		}
		if !terminated {
			break
		}

		lines = append(lines, fmt.Sprintf("%4d %s", size, string(text)))
	}

	log.Tracef("decoded %d directory lines", len(lines))
	return lines
}

//
func parseListing(lines []string) (*DirListing, error) {

	if len(lines) == 0 {
		return nil, &ParseError{Message: "missing header line"}
	}

	header, err := parseHeaderLine(lines[0])
	if err != nil {
		return nil, err
	}

	ret := &DirListing{Header: header}
	foundFree := false

	for _, line := range lines[1:] {
		if strings.Contains(line, "blocks free") {
			free, err := parseBlocksFree(line)
			if err != nil {
				return nil, err
			}
			ret.BlocksFree = free
			foundFree = true
			break
		}
		ret.Files = append(ret.Files, parseFileLine(line))
	}

	if !foundFree {
		return nil, &ParseError{Message: "missing blocks free line"}
	}
	return ret, nil
}

/*
	parseHeaderLine parses e.g. `   0 ."test/demo  1/85 " 8a 2a`. The dot
	is the reverse-video marker of the header rendered to ASCII; the two
	characters after the closing quote are the disk id, the DOS version
	tail is ignored.
*/
func parseHeaderLine(line string) (DiskHeader, error) {

	fail := func() (DiskHeader, error) {
		return DiskHeader{}, &ParseError{Message: fmt.Sprintf(
			"invalid header format: %s", line)}
	}

	s := strings.TrimLeft(line, " ")
	num, rest, ok := leadingNumber(s)
	if !ok || num > 1 {
		return fail()
	}

	rest = strings.TrimLeft(rest, " ")
	if !strings.HasPrefix(rest, ".\"") {
		return fail()
	}
	rest = rest[2:]

	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return fail()
	}
	name := strings.TrimRight(rest[:end], " ")

	rest = rest[end+1:]
	if len(rest) < 3 || rest[0] != ' ' {
		return fail()
	}
	id := rest[1:3]
	if !isAlnum(id[0]) || !isAlnum(id[1]) {
		return fail()
	}

	return DiskHeader{DriveNumber: uint8(num), Name: name, ID: id}, nil
}

//
func parseFileLine(line string) FileEntry {

	invalid := func(reason string, blocks uint16, filename string) FileEntry {
		return FileEntry{
			Blocks:   blocks,
			Filename: filename,
			Raw:      line,
			ParseErr: reason,
		}
	}

	s := strings.TrimLeft(line, " ")
	num, rest, ok := leadingNumber(s)
	if !ok || num > 0xffff {
		return invalid("could not parse line format", 0, "")
	}
	blocks := uint16(num)

	qs := strings.IndexByte(rest, '"')
	if qs < 0 || strings.TrimSpace(rest[:qs]) != "" {
		return invalid("could not parse line format", blocks, "")
	}
	rest = rest[qs+1:]

	qe := strings.IndexByte(rest, '"')
	if qe < 0 {
		return invalid("unterminated filename", blocks, "")
	}
	filename := rest[:qe] // all spaces kept, they are part of the name

	typeTok := strings.Fields(rest[qe+1:])
	if len(typeTok) == 0 {
		return invalid("missing file type", blocks, filename)
	}
	for ix := 0; ix < len(typeTok[0]); ix++ {
		if !isAlnum(typeTok[0][ix]) {
			return invalid("could not parse line format", blocks, filename)
		}
	}

	return FileEntry{
		Blocks:   blocks,
		Filename: filename,
		Type:     FileTypeFromString(typeTok[0]),
	}
}

//
func parseBlocksFree(line string) (uint16, error) {
	s := strings.TrimLeft(line, " ")
	num, rest, ok := leadingNumber(s)
	if !ok || num > 0xffff || !strings.HasPrefix(
		strings.TrimLeft(rest, " "), "blocks free") {
		return 0, &ParseError{Message: fmt.Sprintf(
			"invalid blocks free format: %s", line)}
	}
	return uint16(num), nil
}

// leadingNumber splits a decimal prefix off s.
func leadingNumber(s string) (int, string, bool) {
	ix := 0
	num := 0
	for ix < len(s) && s[ix] >= '0' && s[ix] <= '9' {
		num = num*10 + int(s[ix]-'0')
		if num > 0xffff {
			return 0, s, false
		}
		ix++
	}
	if ix == 0 {
		return 0, s, false
	}
	return num, s[ix:], true
}

//
func isAlnum(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
