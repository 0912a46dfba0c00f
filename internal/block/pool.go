package block

import (
	"io"
	"sync"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"

	"github.com/meigma/mpak/internal/mpaktype"
)

// resetter is implemented by both zlib and flate readers.
type resetter interface {
	io.Reader
	Reset(r io.Reader, dict []byte) error
}

// Pool manages reusable inflaters to reduce allocation overhead.
//
// A zlib reader consumes its header on construction, so the pool never
// creates readers up front; misses build a fresh reader against the input.
type Pool struct {
	format mpaktype.BlockFormat
	pool   sync.Pool
}

var (
	sharedZlib    = NewPool(mpaktype.BlockZlib)
	sharedDeflate = NewPool(mpaktype.BlockDeflate)
)

// SharedPool returns the process-wide pool for format.
func SharedPool(format mpaktype.BlockFormat) *Pool {
	if format == mpaktype.BlockDeflate {
		return sharedDeflate
	}
	return sharedZlib
}

// NewPool creates an empty pool of inflaters for format.
func NewPool(format mpaktype.BlockFormat) *Pool {
	return &Pool{format: format}
}

// Format returns the block framing handled by the pool.
func (p *Pool) Format() mpaktype.BlockFormat {
	return p.format
}

// Get returns an inflater reading from r.
// The caller must call the returned release function when done.
// If an error is returned, no release function needs to be called.
func (p *Pool) Get(r io.Reader) (io.Reader, func(), error) {
	if v, ok := p.pool.Get().(resetter); ok {
		if err := v.Reset(r, nil); err != nil {
			// The reader may be mid-header; let it go rather than pool it.
			return nil, nil, err
		}
		return v, func() { p.put(v) }, nil
	}

	v, err := p.newReader(r)
	if err != nil {
		return nil, nil, err
	}
	return v, func() { p.put(v) }, nil
}

func (p *Pool) put(v resetter) {
	p.pool.Put(v)
}

// newReader creates an inflater for the pool's format.
func (p *Pool) newReader(r io.Reader) (resetter, error) {
	switch p.format {
	case mpaktype.BlockDeflate:
		fr, ok := flate.NewReader(r).(resetter)
		if !ok {
			return nil, errNoReset
		}
		return fr, nil
	default:
		zr, err := zlib.NewReader(r)
		if err != nil {
			return nil, err
		}
		rr, ok := zr.(resetter)
		if !ok {
			return nil, errNoReset
		}
		return rr, nil
	}
}
