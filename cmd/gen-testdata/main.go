// Copyright 2025 The garc Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// gen-testdata writes a synthetic GARC archive to disk so integration
// tests and benchmarks have a real file to mmap.  The archive carries
// a run of fixed-size record subfiles plus one obfuscated text bank in
// the final file's slot 0.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"

	"github.com/Strackeror/garc/internal/garctest"
)

var (
	outPath   = flag.String("out", "testdata.garc", "path to write the archive to")
	fileCount = flag.Int("files", 64, "number of record files to generate")
	recordLen = flag.Int("record-len", 0x54, "size of each record subfile in bytes")
	seed      = flag.Int64("seed", 1, "seed for record contents")
)

func main() {
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))
	b := garctest.NewBuilder()
	for i := 0; i < *fileCount; i++ {
		record := make([]byte, *recordLen)
		rng.Read(record)
		b.AddFile(record)
	}

	lines := make([]string, *fileCount)
	for i := range lines {
		lines[i] = fmt.Sprintf("entry %d", i)
	}
	b.AddFile(garctest.EncodeText(lines))

	if err := os.WriteFile(*outPath, b.Bytes(), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s: %d record files + 1 text bank\n", *outPath, *fileCount)
}
