// Copyright 2025 The garc Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package garc

import (
	"bytes"
	"errors"
	"fmt"
	"math/bits"

	"github.com/Strackeror/garc/internal/binutil"
)

const (
	headerMagic      = "CRAG"
	offsetTableMagic = "OTAF"
	fileTableMagic   = "BTAF"
	dataMagic        = "BMIF"

	// magic + u32 header size + u16 byte order + u16 version +
	// u32 chunk count + u32 data offset + u32 file size
	headerFixedSize = 0x18
)

// ErrFormat reports a container that is structurally not a GARC
// archive: a wrong chunk tag, an undersized header, or an index record
// pointing outside the data blob.  Truncated input surfaces as
// io.ErrUnexpectedEOF instead.
var ErrFormat = errors.New("malformed GARC archive")

// Parse reads a GARC container from an in-memory buffer.  The returned
// Archive borrows data rather than copying it; the caller must keep
// the buffer alive and unmodified for the Archive's lifetime.
func Parse(data []byte) (*Archive, error) {
	r := binutil.NewReader(data)

	h, err := parseHeader(r)
	if err != nil {
		return nil, fmt.Errorf("header chunk: %w", err)
	}
	offsets, err := parseOffsetTable(r)
	if err != nil {
		return nil, fmt.Errorf("offset table chunk: %w", err)
	}
	files, err := parseFileTable(r)
	if err != nil {
		return nil, fmt.Errorf("file table chunk: %w", err)
	}
	blob, err := parseData(r)
	if err != nil {
		return nil, fmt.Errorf("data chunk: %w", err)
	}

	for i, fe := range files {
		for _, se := range fe.subs {
			if se.Start > se.End || int(se.End) > len(blob) {
				return nil, fmt.Errorf("file %d: sub-entry range [%d, %d) outside data blob of %d bytes: %w",
					i, se.Start, se.End, len(blob), ErrFormat)
			}
		}
	}

	return &Archive{
		header:  h,
		offsets: offsets,
		files:   files,
		data:    blob,
	}, nil
}

func expectMagic(r *binutil.Reader, want string) error {
	tag, err := r.Bytes(4)
	if err != nil {
		return err
	}
	if !bytes.Equal(tag, []byte(want)) {
		return fmt.Errorf("bad tag %q (want %q): %w", tag, want, ErrFormat)
	}
	return nil
}

func parseHeader(r *binutil.Reader) (header, error) {
	var h header
	if err := expectMagic(r, headerMagic); err != nil {
		return h, err
	}
	var err error
	if h.headerSize, err = r.Uint32(); err != nil {
		return h, err
	}
	if h.byteOrder, err = r.Uint16(); err != nil {
		return h, err
	}
	if h.version, err = r.Uint16(); err != nil {
		return h, err
	}
	if h.chunkCount, err = r.Uint32(); err != nil {
		return h, err
	}
	if h.dataOffset, err = r.Uint32(); err != nil {
		return h, err
	}
	if h.fileSize, err = r.Uint32(); err != nil {
		return h, err
	}
	// unknown trailing header fields are fine as long as the declared
	// size covers at least what we just read
	if h.headerSize < headerFixedSize {
		return h, fmt.Errorf("declared header size %d smaller than fixed fields (%d): %w",
			h.headerSize, headerFixedSize, ErrFormat)
	}
	if err := r.Skip(int(h.headerSize) - headerFixedSize); err != nil {
		return h, err
	}
	return h, nil
}

func parseOffsetTable(r *binutil.Reader) ([]uint32, error) {
	if err := expectMagic(r, offsetTableMagic); err != nil {
		return nil, err
	}
	if _, err := r.Uint32(); err != nil { // chunk header size
		return nil, err
	}
	entryCount, err := r.Uint16()
	if err != nil {
		return nil, err
	}
	if err := r.Skip(2); err != nil {
		return nil, err
	}
	offsets := make([]uint32, entryCount)
	for i := range offsets {
		if offsets[i], err = r.Uint32(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return offsets, nil
}

func parseFileTable(r *binutil.Reader) ([]fileEntry, error) {
	if err := expectMagic(r, fileTableMagic); err != nil {
		return nil, err
	}
	if _, err := r.Uint32(); err != nil { // chunk header size
		return nil, err
	}
	fileCount, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	files := make([]fileEntry, fileCount)
	for i := range files {
		if files[i], err = parseFileEntry(r); err != nil {
			return nil, fmt.Errorf("file %d: %w", i, err)
		}
	}
	return files, nil
}

// parseFileEntry reads one presence mask and, for each set bit in
// ascending order, one (start, end, length) triple.
func parseFileEntry(r *binutil.Reader) (fileEntry, error) {
	mask, err := r.Uint32()
	if err != nil {
		return fileEntry{}, err
	}
	subs := make([]SubEntry, 0, bits.OnesCount32(mask))
	for bit := 0; bit < MaxSubfiles; bit++ {
		if mask&(1<<uint(bit)) == 0 {
			continue
		}
		var se SubEntry
		if se.Start, err = r.Uint32(); err != nil {
			return fileEntry{}, fmt.Errorf("slot %d: %w", bit, err)
		}
		if se.End, err = r.Uint32(); err != nil {
			return fileEntry{}, fmt.Errorf("slot %d: %w", bit, err)
		}
		if se.Length, err = r.Uint32(); err != nil {
			return fileEntry{}, fmt.Errorf("slot %d: %w", bit, err)
		}
		subs = append(subs, se)
	}
	return fileEntry{mask: mask, subs: subs}, nil
}

func parseData(r *binutil.Reader) ([]byte, error) {
	if err := expectMagic(r, dataMagic); err != nil {
		return nil, err
	}
	if _, err := r.Uint32(); err != nil { // chunk header size
		return nil, err
	}
	dataSize, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	return r.Bytes(int(dataSize))
}
