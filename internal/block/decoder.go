// Package block decodes self-delimiting compressed blocks.
//
// An MPAK block carries no length prefix: its end is discovered by the
// inflater. Input is fed through a small buffered reader, and after the
// inflater reports end of stream the underlying stream is rewound by the
// bytes that were buffered but never consumed. This leaves the cursor on
// the first byte after the block.
package block

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"

	"github.com/meigma/mpak/internal/mpaktype"
	"github.com/meigma/mpak/internal/sizing"
)

const (
	// DefaultChunkSize is the size of each read from the underlying stream.
	DefaultChunkSize = 1024

	// DefaultMaxSize is the default limit on a decoded block (256 MiB).
	DefaultMaxSize = 256 << 20

	initialOutputSize = 1024
)

var errNoReset = errors.New("mpak: inflater does not support reset")

// Decoder decodes compressed blocks from a seekable stream.
//
// A Decoder holds no per-stream state and may be shared; the stream passed
// to Decode must be owned by the caller for the duration of the call.
type Decoder struct {
	pool      *Pool
	maxSize   uint64
	chunkSize int
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithMaxSize limits the decoded size of a single block.
// Set limit to 0 to disable the limit.
func WithMaxSize(limit uint64) Option {
	return func(d *Decoder) {
		d.maxSize = limit
	}
}

// WithChunkSize sets the size of reads from the underlying stream.
// Values <= 0 use DefaultChunkSize.
func WithChunkSize(n int) Option {
	return func(d *Decoder) {
		if n <= 0 {
			n = DefaultChunkSize
		}
		d.chunkSize = n
	}
}

// WithPool sets the inflater pool. The pool's format selects the block framing.
func WithPool(p *Pool) Option {
	return func(d *Decoder) {
		if p != nil {
			d.pool = p
		}
	}
}

// NewDecoder creates a Decoder for blocks framed as format.
func NewDecoder(format mpaktype.BlockFormat, opts ...Option) *Decoder {
	d := &Decoder{
		pool:      SharedPool(format),
		maxSize:   DefaultMaxSize,
		chunkSize: DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Format returns the block framing the decoder expects.
func (d *Decoder) Format() mpaktype.BlockFormat {
	return d.pool.Format()
}

// Decode decodes the block starting at the current position of rs.
//
// It returns the decoded bytes and the position of the first byte after
// the compressed block, where rs is left. The decoded length is not checked
// against any expected size.
func (d *Decoder) Decode(rs io.ReadSeeker) ([]byte, int64, error) {
	br := bufio.NewReaderSize(rs, d.chunkSize)

	zr, release, err := d.pool.Get(br)
	if err != nil {
		return nil, 0, classify(err)
	}
	defer release()

	data, err := d.inflate(zr)
	if err != nil {
		return nil, 0, err
	}

	next, err := rs.Seek(-int64(br.Buffered()), io.SeekCurrent)
	if err != nil {
		return nil, 0, fmt.Errorf("mpak: rewind after block: %w", err)
	}
	return data, next, nil
}

// inflate reads r to completion into a buffer that doubles when full.
func (d *Decoder) inflate(r io.Reader) ([]byte, error) {
	size := initialOutputSize
	if d.maxSize > 0 && d.maxSize < uint64(size) {
		size = int(d.maxSize) //nolint:gosec // maxSize < initialOutputSize
	}
	out := make([]byte, size)
	n := 0

	for {
		if n == len(out) {
			next, ok := sizing.NextCapacity(len(out), d.maxSize)
			if !ok {
				// At the limit the block must end without producing more output.
				if err := expectEnd(r); err != nil {
					return nil, err
				}
				return out[:n:n], nil
			}
			grown := make([]byte, next)
			copy(grown, out[:n])
			out = grown
		}

		m, err := r.Read(out[n:])
		n += m
		if errors.Is(err, io.EOF) {
			return out[:n:n], nil
		}
		if err != nil {
			return nil, classify(err)
		}
	}
}

// expectEnd succeeds only if r ends without yielding another byte.
func expectEnd(r io.Reader) error {
	var probe [1]byte
	for {
		m, err := r.Read(probe[:])
		if m > 0 {
			return fmt.Errorf("%w: block exceeds size limit", mpaktype.ErrSizeOverflow)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return classify(err)
		}
	}
}

// classify maps inflater errors onto the mpak error taxonomy.
func classify(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %w", mpaktype.ErrTruncated, err)
	}
	if errors.Is(err, zlib.ErrHeader) || errors.Is(err, zlib.ErrChecksum) || errors.Is(err, zlib.ErrDictionary) {
		return fmt.Errorf("%w: %w", mpaktype.ErrFormat, err)
	}
	var corrupt flate.CorruptInputError
	if errors.As(err, &corrupt) {
		return fmt.Errorf("%w: %w", mpaktype.ErrFormat, err)
	}
	return err
}
