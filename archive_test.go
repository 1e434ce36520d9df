// Copyright 2025 The garc Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package garc

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Strackeror/garc/internal/garctest"
)

func TestParseSubfileRoundTrip(t *testing.T) {
	subs := map[int]map[int][]byte{
		0: {0: []byte("species record 0")},
		1: {0: []byte("species record 1"), 3: []byte("form variant"), 31: []byte("last slot")},
		2: {0: {}}, // zero-length subfiles are legal
	}

	b := garctest.NewBuilder()
	for file := 0; file < len(subs); file++ {
		b.AddSparseFile(subs[file])
	}
	a, err := Parse(b.Bytes())
	require.NoError(t, err)

	require.Equal(t, 3, a.NumFiles())
	assert.Equal(t, uint16(0x0400), a.Version())
	assert.Len(t, a.Offsets(), 3)
	assert.Equal(t, 1, a.SubfileCount(0))
	assert.Equal(t, 3, a.SubfileCount(1))
	assert.Equal(t, 0, a.SubfileCount(99))

	for file := 0; file < len(subs); file++ {
		for slot := 0; slot < MaxSubfiles; slot++ {
			want, present := subs[file][slot]
			got, ok := a.Subfile(file, slot)
			require.Equal(t, present, ok, "file %d slot %d", file, slot)
			if !present {
				continue
			}
			assert.Equal(t, want, got, "file %d slot %d", file, slot)

			se, ok := a.SubEntry(file, slot)
			require.True(t, ok)
			assert.Equal(t, int(se.End-se.Start), len(got))
		}
	}
}

func TestParseIdempotent(t *testing.T) {
	raw := garctest.NewBuilder().
		AddFile([]byte("one")).
		AddSparseFile(map[int][]byte{1: []byte("two"), 7: []byte("three")}).
		Bytes()

	a1, err := Parse(raw)
	require.NoError(t, err)
	a2, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, a1, a2)
}

func TestSubfileRangeChecks(t *testing.T) {
	a, err := Parse(garctest.NewBuilder().AddFile([]byte("x")).Bytes())
	require.NoError(t, err)

	for _, tc := range []struct{ file, sub int }{
		{-1, 0},
		{1, 0},
		{0, -1},
		{0, 1},
		{0, MaxSubfiles},
	} {
		b, ok := a.Subfile(tc.file, tc.sub)
		assert.False(t, ok, "file %d sub %d", tc.file, tc.sub)
		assert.Nil(t, b)
	}
}

func TestFirstSubfiles(t *testing.T) {
	a, err := Parse(garctest.NewBuilder().
		AddFile([]byte("a")).
		AddFile([]byte("b"), []byte("b-alt")).
		Bytes())
	require.NoError(t, err)

	firsts, err := a.FirstSubfiles()
	require.NoError(t, err)
	require.Len(t, firsts, 2)
	assert.Equal(t, []byte("a"), firsts[0])
	assert.Equal(t, []byte("b"), firsts[1])

	// slot 0 missing anywhere is a caller-contract violation, not a
	// skipped item
	a, err = Parse(garctest.NewBuilder().
		AddFile([]byte("a")).
		AddSparseFile(map[int][]byte{2: []byte("no slot zero")}).
		Bytes())
	require.NoError(t, err)
	_, err = a.FirstSubfiles()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file 1")
}

func TestParseBadChunkTags(t *testing.T) {
	for _, tag := range []string{"CRAG", "OTAF", "BTAF", "BMIF"} {
		raw := garctest.NewBuilder().AddFile([]byte("payload")).Bytes()
		i := bytes.Index(raw, []byte(tag))
		require.GreaterOrEqual(t, i, 0)
		raw[i] = '?'

		_, err := Parse(raw)
		require.Error(t, err, "tag %s", tag)
		assert.ErrorIs(t, err, ErrFormat, "tag %s", tag)
	}
}

func TestParseUndersizedHeader(t *testing.T) {
	b := garctest.NewBuilder().AddFile([]byte("x"))
	b.HeaderSize = 0x17 // one byte short of the fixed fields

	_, err := Parse(b.Bytes())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestParseOversizedHeaderIsFine(t *testing.T) {
	// a future revision may append header fields; the declared size
	// tells us how far to skip
	b := garctest.NewBuilder().AddFile([]byte("x"))
	b.HeaderSize = 0x40

	a, err := Parse(b.Bytes())
	require.NoError(t, err)
	sub, ok := a.Subfile(0, 0)
	require.True(t, ok)
	assert.Equal(t, []byte("x"), sub)
}

func TestParseTruncated(t *testing.T) {
	raw := garctest.NewBuilder().AddFile([]byte("some payload bytes")).Bytes()

	// chopping the tail must produce a truncation error, never a
	// silently short blob
	for _, keep := range []int{len(raw) - 1, len(raw) - 10, 30, 10, 3, 0} {
		_, err := Parse(raw[:keep])
		require.Error(t, err, "keep %d", keep)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF, "keep %d", keep)
	}
}

func TestLengthHintNotAuthoritative(t *testing.T) {
	// captured archives sometimes store a length disagreeing with
	// end-start; slicing must use end-start
	b := garctest.NewBuilder().AddFile([]byte("0123456789"))
	b.MutateTriple = func(_, _ int, start, end, length uint32) (uint32, uint32, uint32) {
		return start, end, length + 5
	}

	a, err := Parse(b.Bytes())
	require.NoError(t, err)
	sub, ok := a.Subfile(0, 0)
	require.True(t, ok)
	assert.Equal(t, []byte("0123456789"), sub)

	se, ok := a.SubEntry(0, 0)
	require.True(t, ok)
	assert.Equal(t, uint32(15), se.Length)
}

func TestParseSubEntryOutsideBlob(t *testing.T) {
	b := garctest.NewBuilder().AddFile([]byte("abc"))
	b.MutateTriple = func(_, _ int, start, end, length uint32) (uint32, uint32, uint32) {
		return start, end + 100, length
	}
	_, err := Parse(b.Bytes())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFormat)

	b = garctest.NewBuilder().AddFile([]byte("abc"))
	b.MutateTriple = func(_, _ int, start, end, length uint32) (uint32, uint32, uint32) {
		return end, start, length // start > end
	}
	_, err = Parse(b.Bytes())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestDigests(t *testing.T) {
	a, err := Parse(garctest.NewBuilder().
		AddFile([]byte("same bytes")).
		AddFile([]byte("same bytes")).
		AddFile([]byte("other bytes")).
		Bytes())
	require.NoError(t, err)

	d0, ok := a.Digest(0, 0)
	require.True(t, ok)
	d1, ok := a.Digest(1, 0)
	require.True(t, ok)
	d2, ok := a.Digest(2, 0)
	require.True(t, ok)

	assert.Equal(t, d0, d1)
	assert.NotEqual(t, d0, d2)

	_, ok = a.Digest(0, 1)
	assert.False(t, ok)

	other, err := Parse(garctest.NewBuilder().AddFile([]byte("other blob")).Bytes())
	require.NoError(t, err)
	assert.NotEqual(t, a.Fingerprint(), other.Fingerprint())
}

func TestOpen(t *testing.T) {
	raw := garctest.NewBuilder().
		AddFile([]byte("mapped subfile")).
		Bytes()
	path := filepath.Join(t.TempDir(), "test.garc")
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	a, err := Open(path)
	require.NoError(t, err)

	sub, ok := a.Subfile(0, 0)
	require.True(t, ok)
	assert.Equal(t, []byte("mapped subfile"), sub)

	require.NoError(t, a.Close())
	// Close is idempotent
	require.NoError(t, a.Close())
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.garc"))
	require.Error(t, err)
}

func BenchmarkSubfile(b *testing.B) {
	builder := garctest.NewBuilder()
	for i := 0; i < 64; i++ {
		builder.AddSparseFile(map[int][]byte{
			0:  bytes.Repeat([]byte{byte(i)}, 128),
			17: bytes.Repeat([]byte{byte(i)}, 64),
		})
	}
	a, err := Parse(builder.Bytes())
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, ok := a.Subfile(i%64, 17); !ok {
			b.Fatal("missing subfile")
		}
	}
}
