// Copyright 2025 The garc Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package garc

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// Open maps an archive file into memory read-only and parses it in
// place.  Close the returned Archive to drop the mapping; until then
// every Subfile slice points straight at the mapped file.
func Open(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("os.Open(%s): %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	stats, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("f.Stat: %w", err)
	}
	size := stats.Size()
	if size == 0 {
		return nil, fmt.Errorf("empty file %s: %w", path, ErrFormat)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("unix.Mmap(%s): %w", path, err)
	}
	// subfile access patterns are random, not sequential
	if err := unix.Madvise(data, syscall.MADV_RANDOM); err != nil {
		_ = unix.Munmap(data)
		return nil, fmt.Errorf("madvise: %w", err)
	}

	a, err := Parse(data)
	if err != nil {
		_ = unix.Munmap(data)
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	a.closer = func() error {
		return unix.Munmap(data)
	}
	return a, nil
}
