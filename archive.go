// Copyright 2025 The garc Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package garc

import (
	"fmt"
	"math/bits"

	"github.com/dgryski/go-farm"
)

// MaxSubfiles is the number of subfile slots a single file table entry
// can address: one per bit of the presence mask.
const MaxSubfiles = 32

// SubEntry is the byte range of one subfile within the archive's data
// blob.  Length is the on-disk length hint; some archives disagree with
// End-Start there, and End-Start is always what slicing uses.
type SubEntry struct {
	Start  uint32
	End    uint32
	Length uint32
}

// fileEntry indexes up to MaxSubfiles subfiles.  subs holds one
// SubEntry per set bit of mask, in ascending bit order; slot k's entry
// lives at index popcount(mask & (1<<k - 1)).
type fileEntry struct {
	mask uint32
	subs []SubEntry
}

type header struct {
	headerSize uint32
	byteOrder  uint16
	version    uint16
	chunkCount uint32
	dataOffset uint32
	fileSize   uint32
}

// Archive is a fully parsed GARC container.  It is immutable once
// built and safe to share across goroutines without locking.
type Archive struct {
	header  header
	offsets []uint32
	files   []fileEntry
	data    []byte

	closer func() error
}

// NumFiles returns the number of logical files in the archive.
func (a *Archive) NumFiles() int {
	return len(a.files)
}

// Version returns the format version declared by the container header.
func (a *Archive) Version() uint16 {
	return a.header.version
}

// Offsets returns the auxiliary per-file offset table (the OTAF chunk).
// It is not consulted for lookups; callers must not modify it.
func (a *Archive) Offsets() []uint32 {
	return a.offsets
}

// SubfileCount returns how many subfile slots are populated for the
// given file, or 0 if the index is out of range.
func (a *Archive) SubfileCount(file int) int {
	if file < 0 || file >= len(a.files) {
		return 0
	}
	return bits.OnesCount32(a.files[file].mask)
}

// Subfile returns the bytes of one subfile, or false if the file index
// is out of range or slot sub is not populated.  The returned slice
// aliases the archive's data blob; callers must not modify it, and it
// is only valid until Close.
func (a *Archive) Subfile(file, sub int) ([]byte, bool) {
	se, ok := a.subEntry(file, sub)
	if !ok {
		return nil, false
	}
	return a.data[se.Start:se.End], true
}

// SubEntry returns the byte range backing one subfile, or false under
// the same conditions as Subfile.
func (a *Archive) SubEntry(file, sub int) (SubEntry, bool) {
	return a.subEntry(file, sub)
}

func (a *Archive) subEntry(file, sub int) (SubEntry, bool) {
	if file < 0 || file >= len(a.files) {
		return SubEntry{}, false
	}
	if sub < 0 || sub >= MaxSubfiles {
		return SubEntry{}, false
	}
	fe := a.files[file]
	bit := uint32(1) << uint(sub)
	if fe.mask&bit == 0 {
		return SubEntry{}, false
	}
	return fe.subs[bits.OnesCount32(fe.mask&(bit-1))], true
}

// FirstSubfiles returns the slot-0 subfile of every file, in file
// order.  The archives this format targets always populate slot 0, so
// a file without one is an error, not a skipped item.
func (a *Archive) FirstSubfiles() ([][]byte, error) {
	out := make([][]byte, len(a.files))
	for i := range a.files {
		b, ok := a.Subfile(i, 0)
		if !ok {
			return nil, fmt.Errorf("file %d has no subfile in slot 0", i)
		}
		out[i] = b
	}
	return out, nil
}

// Digest returns a 64-bit content hash of one subfile, or false under
// the same conditions as Subfile.  Subfiles are frequently duplicated
// across forms and languages; equal digests make that cheap to detect.
func (a *Archive) Digest(file, sub int) (uint64, bool) {
	b, ok := a.Subfile(file, sub)
	if !ok {
		return 0, false
	}
	return farm.Hash64(b), true
}

// Fingerprint returns a 64-bit content hash of the whole data blob,
// usable as a cache key for derived results.
func (a *Archive) Fingerprint() uint64 {
	return farm.Hash64(a.data)
}

// Close releases the mapping backing an Archive returned by Open.  All
// slices previously returned by Subfile become invalid.  Close on a
// Parse-built Archive is a no-op.
func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	c := a.closer
	a.closer = nil
	return c()
}
