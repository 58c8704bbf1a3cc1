// Package textpos converts between line/column positions and byte offsets.
//
// Lines are separated by "\n"; a "\r" immediately before the "\n" belongs to
// the line break, not the line. Columns count UTF-16 code units, the unit
// editors use on the wire.
package textpos

import (
	"unicode/utf16"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
)

// ErrOutOfRange is returned for positions and offsets that do not address a
// location in the text.
var ErrOutOfRange = errors.New("textpos: position out of range")

// Position is a 0-indexed line and UTF-16 column.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Less reports whether p sorts before o.
func (p Position) Less(o Position) bool {
	if p.Line != o.Line {
		return p.Line < o.Line
	}
	return p.Column < o.Column
}

// lineBounds returns the byte range of line n's content, excluding the line
// break.
func lineBounds(text string, n int) (start, end int, ok bool) {
	if n < 0 {
		return 0, 0, false
	}
	start = 0
	for line := 0; line < n; line++ {
		i := indexByteFrom(text, '\n', start)
		if i < 0 {
			return 0, 0, false
		}
		start = i + 1
	}
	end = indexByteFrom(text, '\n', start)
	if end < 0 {
		end = len(text)
	} else if end > start && text[end-1] == '\r' {
		end--
	}
	return start, end, true
}

func indexByteFrom(s string, c byte, from int) int {
	for i := from; i < len(s); i++ {
		if s[i] == c {
			return i
		}
	}
	return -1
}

// ToOffset returns the byte offset of pos in text.
func ToOffset(text string, pos Position) (int, error) {
	if pos.Column < 0 {
		return 0, errors.Wrapf(ErrOutOfRange, "column %d", pos.Column)
	}
	start, end, ok := lineBounds(text, pos.Line)
	if !ok {
		return 0, errors.Wrapf(ErrOutOfRange, "line %d", pos.Line)
	}
	col := 0
	i := start
	for i < end && col < pos.Column {
		r, size := utf8.DecodeRuneInString(text[i:end])
		units := 1
		if utf16.RuneLen(r) == 2 {
			units = 2
		}
		if col+units > pos.Column {
			return 0, errors.Wrapf(ErrOutOfRange, "column %d splits a surrogate pair on line %d", pos.Column, pos.Line)
		}
		col += units
		i += size
	}
	if col != pos.Column {
		return 0, errors.Wrapf(ErrOutOfRange, "column %d past end of line %d", pos.Column, pos.Line)
	}
	return i, nil
}

// ToPosition returns the position of the byte offset in text. Offsets inside
// a line break's "\r\n" map to the end of the line.
func ToPosition(text string, offset int) (Position, error) {
	if offset < 0 || offset > len(text) {
		return Position{}, errors.Wrapf(ErrOutOfRange, "offset %d", offset)
	}
	if offset < len(text) && !utf8.RuneStart(text[offset]) {
		return Position{}, errors.Wrapf(ErrOutOfRange, "offset %d inside a character", offset)
	}
	line, start := 0, 0
	for i := 0; i < offset; i++ {
		if text[i] == '\n' {
			line++
			start = i + 1
		}
	}
	end := offset
	if end > start && text[end-1] == '\r' && end < len(text) && text[end] == '\n' {
		end--
	}
	col := 0
	for _, r := range text[start:end] {
		if utf16.RuneLen(r) == 2 {
			col += 2
		} else {
			col++
		}
	}
	return Position{Line: line, Column: col}, nil
}
