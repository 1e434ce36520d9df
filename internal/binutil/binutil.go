// Copyright 2025 The garc Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package binutil provides bounds-checked little-endian reads over a
// single in-memory buffer.
package binutil

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Reader is a cursor over an immutable byte buffer.  All reads are
// bounds-checked; a read past the end of the buffer returns an error
// wrapping io.ErrUnexpectedEOF and leaves the cursor untouched.
type Reader struct {
	data []byte
	off  int
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Len returns the total length of the underlying buffer.
func (r *Reader) Len() int {
	return len(r.data)
}

// Pos returns the current cursor position.
func (r *Reader) Pos() int {
	return r.off
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

// Seek moves the cursor to an absolute offset.
func (r *Reader) Seek(off int) error {
	if off < 0 || off > len(r.data) {
		return fmt.Errorf("seek to %d in buffer of %d bytes: %w", off, len(r.data), io.ErrUnexpectedEOF)
	}
	r.off = off
	return nil
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int) error {
	if n < 0 || r.off+n > len(r.data) {
		return fmt.Errorf("skip %d bytes at offset %d (len %d): %w", n, r.off, len(r.data), io.ErrUnexpectedEOF)
	}
	r.off += n
	return nil
}

// Bytes returns the next n bytes as a sub-slice of the underlying
// buffer, not a copy.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.data) {
		return nil, fmt.Errorf("read %d bytes at offset %d (len %d): %w", n, r.off, len(r.data), io.ErrUnexpectedEOF)
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *Reader) Uint16() (uint16, error) {
	b, err := r.Bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) Uint32() (uint32, error) {
	b, err := r.Bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}
