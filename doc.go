// Copyright 2025 The garc Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package garc reads GARC containers, the archive format used for the
// 3DS Pokémon games' romfs data.  Parsing is read-only and zero-copy:
// an Archive indexes into the one data blob the container carries, and
// every subfile lookup returns a sub-slice of it.
//
// A container is four chunks in a fixed order, each starting with a
// 4-byte ASCII tag:
//
//	┌───────────────────┐
//	│ CRAG  header      │  declared size, byte order, version
//	├───────────────────┤
//	│ OTAF  offsets     │  one u32 per file, auxiliary
//	├───────────────────┤
//	│ BTAF  file table  │  per file: presence mask + sub-entries
//	├───────────────────┤
//	│ BMIF  data blob   │  all subfile bytes, back to back
//	└───────────────────┘
//
// Each file table entry holds up to 32 subfiles (alternate languages or
// forms); a 32-bit mask says which slots are populated, and slot k's
// byte range follows for each set bit k, in ascending bit order.  All
// integers are little-endian.
//
// Subfiles holding the games' string banks are obfuscated with a
// rotating XOR stream; the text package decodes those.
package garc
