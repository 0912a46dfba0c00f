package mpak

import (
	"log/slog"

	"github.com/meigma/mpak/internal/block"
)

// DefaultMaxBlockSize is the default limit on any decoded block (256 MiB).
const DefaultMaxBlockSize = block.DefaultMaxSize

// Option configures an Archive.
type Option func(*Archive)

// WithMaxBlockSize limits the decoded size of any single block: the name,
// the directory, or a payload. Set limit to 0 to disable the limit.
func WithMaxBlockSize(limit uint64) Option {
	return func(a *Archive) {
		a.maxBlockSize = limit
	}
}

// WithBlockFormat sets the block framing (default BlockZlib).
func WithBlockFormat(format BlockFormat) Option {
	return func(a *Archive) {
		a.format = format
	}
}

// WithVerifySize makes extraction fail with ErrSizeMismatch when a payload
// does not decode to the entry's UncompressedSize. Off by default.
func WithVerifySize(enabled bool) Option {
	return func(a *Archive) {
		a.verifySize = enabled
	}
}

// WithLogger sets the logger for debug events. By default nothing is logged.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Archive) {
		a.logger = logger
	}
}
