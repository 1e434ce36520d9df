// Copyright 2025 The garc Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package text decodes the obfuscated string banks stored in GARC
// subfiles.  Lines are sequences of 16-bit code units XORed against a
// rotating key stream; the stream constants are fixed per game
// generation and exported here so callers and tooling can share them.
package text

import (
	"fmt"
	"math/bits"
	"unicode"
	"unicode/utf16"

	"github.com/Strackeror/garc/internal/binutil"
)

const (
	// KeyBase is the key the first line of every bank starts from.
	// The on-disk header carries an initial-key field, but real
	// archives never vary it and the games ignore it.
	KeyBase uint16 = 0x7c89
	// KeyAdvance is added (wrapping) to a line's starting key to
	// produce the next line's starting key.
	KeyAdvance uint16 = 0x2983

	// u16 section count + u16 line count + u32 total length +
	// u32 initial key + u32 section data offset + u32 section length
	headerSize = 20
)

// RotateKey advances the key within a line: after each decoded code
// unit the key rotates left by 3 (16-bit).  Line-to-line advancement
// uses KeyAdvance instead and never feeds back into this rotation.
func RotateKey(key uint16) uint16 {
	return bits.RotateLeft16(key, 3)
}

// Decode reads one text-bank subfile and returns its lines in table
// order.  The input is the slice handed back by garc.(*Archive).Subfile
// for a file known to hold a string bank; Decode has no way to tell a
// non-text subfile apart from a corrupt one.
func Decode(data []byte) ([]string, error) {
	r := binutil.NewReader(data)

	if _, err := r.Uint16(); err != nil { // section count
		return nil, fmt.Errorf("header: %w", err)
	}
	lineCount, err := r.Uint16()
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	if _, err := r.Uint32(); err != nil { // total length
		return nil, fmt.Errorf("header: %w", err)
	}
	if _, err := r.Uint32(); err != nil { // initial key, unused
		return nil, fmt.Errorf("header: %w", err)
	}
	sectionDataOffset, err := r.Uint32()
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	if _, err := r.Uint32(); err != nil { // section length
		return nil, fmt.Errorf("header: %w", err)
	}

	// the section starts with its own 4-byte length field; the line
	// table follows it
	if err := r.Seek(int(sectionDataOffset) + 4); err != nil {
		return nil, fmt.Errorf("line table: %w", err)
	}

	lines := make([]string, 0, lineCount)
	key := KeyBase
	for i := 0; i < int(lineCount); i++ {
		lineOffset, err := r.Uint32()
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		lineLength, err := r.Uint32()
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}

		// hop to the payload, then restore the cursor for the next
		// table entry
		tablePos := r.Pos()
		if err := r.Seek(int(sectionDataOffset) + int(lineOffset)); err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		units, err := readUnits(r, int(lineLength))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		lines = append(lines, DecodeLine(units, key))
		if err := r.Seek(tablePos); err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}

		key += KeyAdvance
	}
	return lines, nil
}

// DecodeLine decodes one line's encoded code units against the key
// stream starting at key.  A decoded unit of zero ends the line early;
// code units that do not form a valid code point become a single
// space.  Two private-use code points render as the gender symbols the
// games use, mapped to plain ASCII.
func DecodeLine(units []uint16, key uint16) string {
	decoded := make([]uint16, 0, len(units))
	for _, u := range units {
		v := u ^ key
		key = RotateKey(key)
		if v == 0 {
			break
		}
		decoded = append(decoded, v)
	}

	runes := utf16.Decode(decoded)
	for i, c := range runes {
		switch c {
		case 0xe08e:
			runes[i] = 'M'
		case 0xe08f:
			runes[i] = 'F'
		case 'é':
			runes[i] = 'e'
		case unicode.ReplacementChar:
			runes[i] = ' '
		}
	}
	return string(runes)
}

func readUnits(r *binutil.Reader, n int) ([]uint16, error) {
	raw, err := r.Bytes(2 * n)
	if err != nil {
		return nil, err
	}
	units := make([]uint16, n)
	for i := range units {
		units[i] = uint16(raw[2*i]) | uint16(raw[2*i+1])<<8
	}
	return units, nil
}
