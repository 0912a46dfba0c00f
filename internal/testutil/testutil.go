// Package testutil builds synthetic MPAK archives for tests.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/require"

	"github.com/meigma/mpak/internal/mpaktype"
)

// TestFile is a payload to pack into a test archive.
type TestFile struct {
	Name     string
	Data     []byte
	Unknown1 int32
	Unknown2 int32
	Unknown3 uint64
}

// Layout describes where the pieces of a built archive landed.
type Layout struct {
	// Data is the complete archive.
	Data []byte

	// NameEnd is the position immediately after the name block.
	NameEnd int64

	// DirectoryBase is the position immediately after the directory block.
	DirectoryBase int64

	// Directory is the uncompressed directory.
	Directory []byte

	// Offsets holds the absolute payload offset of each file.
	Offsets []int64
}

type buildConfig struct {
	magic     string
	reserved  [mpaktype.ReservedSize]byte
	format    mpaktype.BlockFormat
	trailing  int
	extra     []TestRecord
	directory []byte
}

// BuildOption configures BuildArchive.
type BuildOption func(*buildConfig)

// WithMagic overrides the 4-byte magic.
func WithMagic(magic string) BuildOption {
	return func(c *buildConfig) {
		c.magic = magic
	}
}

// WithReserved sets the opaque header bytes.
func WithReserved(reserved [mpaktype.ReservedSize]byte) BuildOption {
	return func(c *buildConfig) {
		c.reserved = reserved
	}
}

// WithFormat sets the block framing.
func WithFormat(format mpaktype.BlockFormat) BuildOption {
	return func(c *buildConfig) {
		c.format = format
	}
}

// WithTrailingDirectoryBytes appends n bytes of partial record to the directory.
func WithTrailingDirectoryBytes(n int) BuildOption {
	return func(c *buildConfig) {
		c.trailing = n
	}
}

// WithExtraRecords appends raw records after those generated for files.
func WithExtraRecords(records ...TestRecord) BuildOption {
	return func(c *buildConfig) {
		c.extra = append(c.extra, records...)
	}
}

// WithDirectory replaces the generated directory with raw bytes.
func WithDirectory(raw []byte) BuildOption {
	return func(c *buildConfig) {
		c.directory = raw
	}
}

// Build assembles an archive named name holding files, in order.
// The first payload starts at relative offset 0.
func Build(tb testing.TB, name string, files []TestFile, opts ...BuildOption) *Layout {
	tb.Helper()

	cfg := buildConfig{magic: mpaktype.Magic}
	for _, opt := range opts {
		opt(&cfg)
	}

	var payloads bytes.Buffer
	records := make([]TestRecord, 0, len(files)+len(cfg.extra))
	for _, f := range files {
		blk := Compress(tb, cfg.format, f.Data)
		records = append(records, TestRecord{
			Name:             f.Name,
			Unknown1:         f.Unknown1,
			Unknown2:         f.Unknown2,
			Unknown3:         f.Unknown3,
			UncompressedSize: int32(len(f.Data)),     //nolint:gosec // test payloads are small
			CompressedSize:   int32(len(blk)),        //nolint:gosec // test payloads are small
			RelativeOffset:   uint32(payloads.Len()), //nolint:gosec // test payloads are small
		})
		payloads.Write(blk)
	}
	records = append(records, cfg.extra...)

	dir := cfg.directory
	if dir == nil {
		dir = BuildTestDirectory(records)
		dir = append(dir, bytes.Repeat([]byte{0xEE}, cfg.trailing)...)
	}

	var out bytes.Buffer
	out.WriteString(cfg.magic)
	out.Write(cfg.reserved[:])
	out.Write(Compress(tb, cfg.format, []byte(name)))
	nameEnd := int64(out.Len())
	out.Write(Compress(tb, cfg.format, dir))
	base := int64(out.Len())
	out.Write(payloads.Bytes())

	offsets := make([]int64, len(files))
	for i := range files {
		offsets[i] = base + int64(records[i].RelativeOffset)
	}

	return &Layout{
		Data:          out.Bytes(),
		NameEnd:       nameEnd,
		DirectoryBase: base,
		Directory:     dir,
		Offsets:       offsets,
	}
}

// BuildArchive assembles an archive and returns its bytes.
func BuildArchive(tb testing.TB, name string, files []TestFile, opts ...BuildOption) []byte {
	tb.Helper()
	return Build(tb, name, files, opts...).Data
}

// WriteArchive writes data to dir/name and returns the path.
func WriteArchive(tb testing.TB, dir, name string, data []byte) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	require.NoError(tb, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(tb, os.WriteFile(path, data, 0o600))
	return path
}

// Compress encodes data as one block in the given framing.
func Compress(tb testing.TB, format mpaktype.BlockFormat, data []byte) []byte {
	tb.Helper()

	var buf bytes.Buffer
	switch format {
	case mpaktype.BlockDeflate:
		w, err := flate.NewWriter(&buf, flate.BestCompression)
		require.NoError(tb, err)
		_, err = w.Write(data)
		require.NoError(tb, err)
		require.NoError(tb, w.Close())
	default:
		w, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
		require.NoError(tb, err)
		_, err = w.Write(data)
		require.NoError(tb, err)
		require.NoError(tb, w.Close())
	}
	return buf.Bytes()
}
