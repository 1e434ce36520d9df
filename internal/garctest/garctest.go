// Copyright 2025 The garc Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package garctest fabricates well-formed (and deliberately malformed)
// GARC containers for tests and benchmarks.  It is a fixture writer,
// not an encoder: the library proper is read-only.
package garctest

import (
	"bytes"
	"encoding/binary"
	"sort"
	"unicode/utf16"

	"github.com/Strackeror/garc/text"
)

// Builder assembles a synthetic GARC container in memory.
type Builder struct {
	// HeaderSize is the declared CRAG chunk size.  The default of
	// 0x1c leaves 4 bytes of padding past the fixed fields, which is
	// what real archives do and exercises the reader's skip-forward
	// path.
	HeaderSize uint32
	Version    uint16

	// MutateTriple, if set, rewrites the (start, end, length) triple
	// of each sub-entry before it is serialized.  Tests use it to
	// fabricate bogus length hints and out-of-blob ranges.
	MutateTriple func(file, slot int, start, end, length uint32) (uint32, uint32, uint32)

	files []map[int][]byte
}

func NewBuilder() *Builder {
	return &Builder{
		HeaderSize: 0x1c,
		Version:    0x0400,
	}
}

// AddFile appends one logical file with subs packed into slots 0..n-1.
func (b *Builder) AddFile(subs ...[]byte) *Builder {
	m := make(map[int][]byte, len(subs))
	for i, sub := range subs {
		m[i] = sub
	}
	b.files = append(b.files, m)
	return b
}

// AddSparseFile appends one logical file with explicit slot
// assignments; absent slots stay clear in the presence mask.
func (b *Builder) AddSparseFile(subs map[int][]byte) *Builder {
	m := make(map[int][]byte, len(subs))
	for slot, sub := range subs {
		m[slot] = sub
	}
	b.files = append(b.files, m)
	return b
}

type triple struct {
	start, end, length uint32
}

// Bytes serializes the container.
func (b *Builder) Bytes() []byte {
	// lay out the blob first: file order, ascending slot order
	var blob bytes.Buffer
	triples := make([]map[int]triple, len(b.files))
	for i, subs := range b.files {
		triples[i] = make(map[int]triple, len(subs))
		for _, slot := range sortedSlots(subs) {
			start := uint32(blob.Len())
			blob.Write(subs[slot])
			end := uint32(blob.Len())
			tr := triple{start: start, end: end, length: end - start}
			if b.MutateTriple != nil {
				tr.start, tr.end, tr.length = b.MutateTriple(i, slot, tr.start, tr.end, tr.length)
			}
			triples[i][slot] = tr
		}
	}

	var otaf bytes.Buffer
	otaf.WriteString("OTAF")
	writeU32(&otaf, uint32(12+4*len(b.files)))
	writeU16(&otaf, uint16(len(b.files)))
	writeU16(&otaf, 0) // pad
	for i, subs := range b.files {
		var first uint32
		if slots := sortedSlots(subs); len(slots) > 0 {
			first = triples[i][slots[0]].start
		}
		writeU32(&otaf, first)
	}

	var btaf bytes.Buffer
	btaf.WriteString("BTAF")
	writeU32(&btaf, 0) // chunk size, patched below
	writeU32(&btaf, uint32(len(b.files)))
	for i, subs := range b.files {
		var mask uint32
		for slot := range subs {
			mask |= 1 << uint(slot)
		}
		writeU32(&btaf, mask)
		for _, slot := range sortedSlots(subs) {
			tr := triples[i][slot]
			writeU32(&btaf, tr.start)
			writeU32(&btaf, tr.end)
			writeU32(&btaf, tr.length)
		}
	}
	patchU32(btaf.Bytes(), 4, uint32(btaf.Len()))

	var bmif bytes.Buffer
	bmif.WriteString("BMIF")
	writeU32(&bmif, 0xc)
	writeU32(&bmif, uint32(blob.Len()))
	bmif.Write(blob.Bytes())

	var out bytes.Buffer
	out.WriteString("CRAG")
	writeU32(&out, b.HeaderSize)
	writeU16(&out, 0xfffe) // little-endian byte order mark
	writeU16(&out, b.Version)
	writeU32(&out, 4) // chunk count
	dataOffset := b.HeaderSize + uint32(otaf.Len()) + uint32(btaf.Len())
	writeU32(&out, dataOffset)
	fileSize := dataOffset + uint32(bmif.Len())
	writeU32(&out, fileSize)
	for out.Len() < int(b.HeaderSize) {
		out.WriteByte(0)
	}
	out.Write(otaf.Bytes())
	out.Write(btaf.Bytes())
	out.Write(bmif.Bytes())
	return out.Bytes()
}

// EncodeText serializes lines as one obfuscated text-bank subfile,
// applying the same key schedule text.Decode reverses.
func EncodeText(lines []string) []byte {
	const headerSize = 20
	tableLen := 8 * len(lines)

	var payload bytes.Buffer
	offsets := make([]uint32, len(lines))
	lengths := make([]uint32, len(lines))
	key := text.KeyBase
	for i, line := range lines {
		units := append(utf16.Encode([]rune(line)), 0)
		offsets[i] = uint32(4 + tableLen + payload.Len())
		lengths[i] = uint32(len(units))
		k := key
		for _, u := range units {
			writeU16(&payload, u^k)
			k = text.RotateKey(k)
		}
		key += text.KeyAdvance
	}

	sectionLen := uint32(4 + tableLen + payload.Len())
	var out bytes.Buffer
	writeU16(&out, 1) // section count
	writeU16(&out, uint16(len(lines)))
	writeU32(&out, sectionLen)
	writeU32(&out, uint32(text.KeyBase)) // stored but unused by decoders
	writeU32(&out, headerSize)           // section data offset
	writeU32(&out, sectionLen)
	writeU32(&out, sectionLen) // embedded section length field
	for i := range lines {
		writeU32(&out, offsets[i])
		writeU32(&out, lengths[i])
	}
	out.Write(payload.Bytes())
	return out.Bytes()
}

func sortedSlots(subs map[int][]byte) []int {
	slots := make([]int, 0, len(subs))
	for slot := range subs {
		slots = append(slots, slot)
	}
	sort.Ints(slots)
	return slots
}

func writeU16(w *bytes.Buffer, v uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	w.Write(buf[:])
}

func writeU32(w *bytes.Buffer, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	w.Write(buf[:])
}

func patchU32(b []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(b[off:off+4], v)
}
