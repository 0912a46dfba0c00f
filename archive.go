package mpak

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/meigma/mpak/internal/block"
	"github.com/meigma/mpak/internal/index"
	"github.com/meigma/mpak/internal/mpaktype"
)

// Re-export types from internal/mpaktype for public API.
type (
	// Entry is one directory record.
	Entry = mpaktype.Entry

	// BlockFormat identifies the framing of compressed blocks.
	BlockFormat = mpaktype.BlockFormat
)

// Re-export block format constants.
const (
	BlockZlib    = mpaktype.BlockZlib
	BlockDeflate = mpaktype.BlockDeflate
)

// Archive provides access to the entries of an MPAK archive.
//
// The directory is decoded once by Open or NewReader and never changes.
// Extraction seeks the shared stream, so calls are serialized internally.
type Archive struct {
	mu     sync.Mutex
	rs     io.ReadSeeker // nil after Close
	closer io.Closer
	closed atomic.Bool

	path     string
	name     string
	reserved [mpaktype.ReservedSize]byte
	base     int64
	idx      *index.Index
	dec      *block.Decoder

	maxBlockSize uint64
	format       BlockFormat
	verifySize   bool
	logger       *slog.Logger
	readGroup    singleflight.Group // zero value is valid
}

// Interface compliance.
var (
	_ fs.FS         = (*Archive)(nil)
	_ fs.StatFS     = (*Archive)(nil)
	_ fs.ReadFileFS = (*Archive)(nil)
	_ fs.ReadDirFS  = (*Archive)(nil)
	_ io.Closer     = (*Archive)(nil)
)

// log returns the logger, falling back to a discard logger if nil.
func (a *Archive) log() *slog.Logger {
	if a.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.logger
}

// Open opens the archive at path.
//
// The returned Archive owns the file and must be closed. On failure the file
// is closed and no Archive is returned.
func Open(path string, opts ...Option) (*Archive, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided path is intentional
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	a, err := newArchive(f, f, path, opts)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}

// NewReader reads an archive from rs, which must start at the archive's
// first byte.
//
// The Archive takes ownership of rs: Close closes it when it implements
// io.Closer. On failure rs is left open for the caller.
func NewReader(rs io.ReadSeeker, opts ...Option) (*Archive, error) {
	closer, _ := rs.(io.Closer)
	return newArchive(rs, closer, "", opts)
}

func newArchive(rs io.ReadSeeker, closer io.Closer, path string, opts []Option) (*Archive, error) {
	a := &Archive{
		rs:           rs,
		closer:       closer,
		path:         path,
		maxBlockSize: DefaultMaxBlockSize,
		format:       BlockZlib,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.dec = block.NewDecoder(a.format,
		block.WithMaxSize(a.maxBlockSize),
		block.WithPool(block.SharedPool(a.format)),
	)

	if err := a.load(); err != nil {
		return nil, err
	}
	a.log().Debug("opened archive",
		"path", a.path,
		"name", a.name,
		"entries", a.idx.Len(),
		"base", a.base,
	)
	return a, nil
}

// load reads the header, the name block, and the directory block.
func (a *Archive) load() error {
	if _, err := a.rs.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek header: %w", err)
	}

	var hdr [mpaktype.HeaderSize]byte
	n, err := io.ReadFull(a.rs, hdr[:])
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("read header: %w", err)
	}
	if n < len(mpaktype.Magic) || string(hdr[:len(mpaktype.Magic)]) != mpaktype.Magic {
		return fmt.Errorf("%w: not an MPAK archive", ErrFormat)
	}
	if err != nil {
		return fmt.Errorf("%w: header: %w", ErrTruncated, err)
	}
	copy(a.reserved[:], hdr[len(mpaktype.Magic):])

	name, _, err := a.dec.Decode(a.rs)
	if err != nil {
		return fmt.Errorf("archive name: %w", err)
	}
	a.name = asciiString(name)

	dir, base, err := a.dec.Decode(a.rs)
	if err != nil {
		return fmt.Errorf("directory: %w", err)
	}
	a.base = base

	idx, err := index.Decode(dir, base)
	if err != nil {
		return err
	}
	a.idx = idx
	return nil
}

// Name returns the archive's display name from its name block.
func (a *Archive) Name() string {
	return a.name
}

// Path returns the file path given to Open, or "" for NewReader.
func (a *Archive) Path() string {
	return a.path
}

// BaseOffset returns the directory base offset: the stream position right
// after the directory block.
func (a *Archive) BaseOffset() int64 {
	return a.base
}

// Reserved returns the 17 opaque header bytes following the magic.
func (a *Archive) Reserved() [mpaktype.ReservedSize]byte {
	return a.reserved
}

// Format returns the block framing used to decode the archive.
func (a *Archive) Format() BlockFormat {
	return a.format
}

// Len returns the number of entries in the archive.
func (a *Archive) Len() int {
	return a.idx.Len()
}

// Entries returns all entries in directory order.
func (a *Archive) Entries() ([]Entry, error) {
	if a.closed.Load() {
		return nil, ErrClosed
	}
	return a.idx.Slice(), nil
}

// Entry returns the entry for name, ignoring case.
func (a *Archive) Entry(name string) (Entry, error) {
	if a.closed.Load() {
		return Entry{}, &fs.PathError{Op: "entry", Path: name, Err: ErrClosed}
	}
	e, ok := a.idx.Lookup(name)
	if !ok {
		return Entry{}, &fs.PathError{Op: "entry", Path: name, Err: ErrNotFound}
	}
	return e, nil
}

// ExtractByName decodes and returns the payload of the named entry.
//
// The name is matched ignoring case. ErrNotFound is returned when the entry
// is absent or has no payload offset. A failed extraction leaves the archive
// usable for other entries.
func (a *Archive) ExtractByName(name string) ([]byte, error) {
	if a.closed.Load() {
		return nil, &fs.PathError{Op: "extract", Path: name, Err: ErrClosed}
	}
	entry, ok := a.idx.Lookup(name)
	if !ok || !entry.Resolvable() {
		return nil, &fs.PathError{Op: "extract", Path: name, Err: ErrNotFound}
	}

	result, err, shared := a.readGroup.Do(entry.Key(), func() (any, error) {
		return a.extract(&entry)
	})
	if err != nil {
		return nil, &fs.PathError{Op: "extract", Path: name, Err: err}
	}
	data := result.([]byte) //nolint:errcheck // type assertion always succeeds when err is nil
	if shared {
		// Concurrent callers must not alias each other's buffers.
		data = slices.Clone(data)
	}
	return data, nil
}

// ExtractTo writes the payload of the named entry to w.
func (a *Archive) ExtractTo(name string, w io.Writer) (int64, error) {
	data, err := a.ExtractByName(name)
	if err != nil {
		return 0, err
	}
	return io.Copy(w, bytes.NewReader(data))
}

// extract seeks to the entry's payload and decodes it.
func (a *Archive) extract(entry *Entry) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.rs == nil {
		return nil, ErrClosed
	}
	if _, err := a.rs.Seek(entry.Offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek payload: %w", err)
	}
	data, _, err := a.dec.Decode(a.rs)
	if err != nil {
		return nil, err
	}
	if a.verifySize && int64(len(data)) != int64(entry.UncompressedSize) {
		return nil, fmt.Errorf("%w: decoded %d bytes, directory records %d",
			ErrSizeMismatch, len(data), entry.UncompressedSize)
	}

	a.log().Debug("extracted entry", "archive", a.name, "entry", entry.Name, "bytes", len(data))
	return data, nil
}

// Close releases the archive's stream. Later operations fail with ErrClosed.
// Close is idempotent.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.rs == nil {
		return nil
	}
	a.closed.Store(true)
	a.rs = nil
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// asciiString decodes ASCII text, replacing bytes outside 7-bit range with '?'.
func asciiString(b []byte) string {
	out := make([]byte, len(b))
	for i, c := range b {
		if c >= 0x80 {
			c = '?'
		}
		out[i] = c
	}
	return string(out)
}
