package index

import (
	"bytes"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/mpak/internal/mpaktype"
	"github.com/meigma/mpak/internal/testutil"
)

func TestDecode_Fields(t *testing.T) {
	t.Parallel()

	raw := testutil.BuildTestDirectory([]testutil.TestRecord{{
		Name:             "Zones.CSV",
		Unknown3:         0x0102030405060708,
		Unknown1:         -7,
		UncompressedSize: 5000,
		RelativeOffset:   0x1234,
		CompressedSize:   321,
		Unknown2:         99,
	}})

	idx, err := Decode(raw, 1000)
	require.NoError(t, err)
	require.Equal(t, 1, idx.Len())

	e, ok := idx.Lookup("zones.csv")
	require.True(t, ok)
	assert.Equal(t, "Zones.CSV", e.Name)
	assert.Equal(t, int64(1000+0x1234), e.Offset)
	assert.Equal(t, int32(5000), e.UncompressedSize)
	assert.Equal(t, int32(321), e.CompressedSize)
	assert.Equal(t, int32(-7), e.Unknown1)
	assert.Equal(t, int32(99), e.Unknown2)
	assert.Equal(t, uint64(0x0102030405060708), e.Unknown3)
	assert.Equal(t, CreationTime(0x0102030405060708), e.Created)
}

func TestDecode_EntryCount(t *testing.T) {
	t.Parallel()

	records := []testutil.TestRecord{{Name: "a"}, {Name: "b"}, {Name: "c"}}
	full := testutil.BuildTestDirectory(records)

	for _, extra := range []int{0, 1, 100, RecordSize - 2, RecordSize - 1} {
		raw := append(slices.Clone(full), bytes.Repeat([]byte{'x'}, extra)...)
		idx, err := Decode(raw, 0)
		require.NoError(t, err)
		assert.Equal(t, len(raw)/RecordSize, idx.Len(), "extra=%d", extra)
	}
}

func TestDecode_Empty(t *testing.T) {
	t.Parallel()

	idx, err := Decode(nil, 50)
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Len())
	_, ok := idx.Lookup("anything")
	assert.False(t, ok)
}

func TestDecode_Order(t *testing.T) {
	t.Parallel()

	names := []string{"zeta.txt", "Alpha.txt", "mid.dat"}
	records := make([]testutil.TestRecord, len(names))
	for i, n := range names {
		records[i] = testutil.TestRecord{Name: n}
	}

	idx, err := Decode(testutil.BuildTestDirectory(records), 0)
	require.NoError(t, err)

	var got []string
	for e := range idx.Entries() {
		got = append(got, e.Name)
	}
	assert.Equal(t, names, got)

	slice := idx.Slice()
	require.Len(t, slice, 3)
	slice[0].Name = "mutated"
	e, ok := idx.Lookup("zeta.txt")
	require.True(t, ok)
	assert.Equal(t, "zeta.txt", e.Name)
}

func TestDecode_DuplicateLastWins(t *testing.T) {
	t.Parallel()

	raw := testutil.BuildTestDirectory([]testutil.TestRecord{
		{Name: "dup.txt", UncompressedSize: 1},
		{Name: "other.txt"},
		{Name: "DUP.TXT", UncompressedSize: 2},
	})

	idx, err := Decode(raw, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())

	e, ok := idx.Lookup("Dup.Txt")
	require.True(t, ok)
	assert.Equal(t, "DUP.TXT", e.Name)
	assert.Equal(t, int32(2), e.UncompressedSize)

	first := idx.Slice()[0]
	assert.Equal(t, "DUP.TXT", first.Name)
}

func TestDecode_UnterminatedName(t *testing.T) {
	t.Parallel()

	raw := append(
		testutil.BuildTestDirectory([]testutil.TestRecord{{Name: "ok.txt"}}),
		bytes.Repeat([]byte{'A'}, RecordSize)...,
	)

	idx, err := Decode(raw, 0)
	require.ErrorIs(t, err, mpaktype.ErrFormat)
	assert.Nil(t, idx)
}

func TestDecode_NameUsesWholeRecord(t *testing.T) {
	t.Parallel()

	// A long name runs into the fields; the first NUL inside the record ends it.
	long := bytes.Repeat([]byte{'n'}, 0x100)
	raw := testutil.EncodeRecord(testutil.TestRecord{
		RawName:  long,
		Unknown3: 0x00000000_41424344,
	})

	idx, err := Decode(raw, 0)
	require.NoError(t, err)
	e := idx.Slice()[0]
	assert.Equal(t, string(long)+"DCBA", e.Name)
}

func TestDecode_Latin1Name(t *testing.T) {
	t.Parallel()

	raw := testutil.EncodeRecord(testutil.TestRecord{RawName: []byte{'c', 'a', 'f', 0xE9, 0}})
	idx, err := Decode(raw, 0)
	require.NoError(t, err)
	e := idx.Slice()[0]
	assert.Equal(t, "café", e.Name)
}

func TestDecode_OffsetSentinel(t *testing.T) {
	t.Parallel()

	raw := testutil.BuildTestDirectory([]testutil.TestRecord{{Name: "a.txt"}})

	idx, err := Decode(raw, 0)
	require.NoError(t, err)
	e, _ := idx.Lookup("a.txt")
	assert.False(t, e.Resolvable())

	idx, err = Decode(raw, 64)
	require.NoError(t, err)
	e, _ = idx.Lookup("a.txt")
	assert.True(t, e.Resolvable())
	assert.Equal(t, int64(64), e.Offset)
}

func TestCreationTime(t *testing.T) {
	t.Parallel()

	// 18208454827 ticks is 30m20.8454827s after 0001-01-01.
	ref := time.Date(1, time.January, 1, 0, 30, 20, 845482700, time.UTC)
	assert.True(t, ref.Equal(CreationTime(0)))
	assert.True(t, ref.Add(100*time.Millisecond).Equal(CreationTime(1)))
	assert.True(t, ref.Add(time.Second).Equal(CreationTime(10)))
	assert.True(t, ref.Add(36*time.Hour+500*time.Millisecond).Equal(CreationTime(36*3600*10+5)))

	// Large values do not overflow the duration arithmetic.
	far := CreationTime(1 << 40)
	assert.True(t, far.After(ref))
	assert.Equal(t, time.UTC, far.Location())
}
