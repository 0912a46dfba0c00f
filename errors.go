package mpak

import "github.com/meigma/mpak/internal/mpaktype"

// Errors re-exported from internal/mpaktype.
var (
	// ErrFormat is returned for a bad magic, malformed compressed data, or an
	// unterminated entry name.
	ErrFormat = mpaktype.ErrFormat

	// ErrTruncated is returned when the stream ends before a block completes.
	ErrTruncated = mpaktype.ErrTruncated

	// ErrNotFound is returned when an entry is absent or unresolvable.
	// It matches fs.ErrNotExist.
	ErrNotFound = mpaktype.ErrNotFound

	// ErrClosed is returned when an archive is used after Close.
	// It matches fs.ErrClosed.
	ErrClosed = mpaktype.ErrClosed

	// ErrSizeOverflow is returned when a block exceeds the configured size limit.
	ErrSizeOverflow = mpaktype.ErrSizeOverflow

	// ErrSizeMismatch is returned by size verification (see WithVerifySize).
	ErrSizeMismatch = mpaktype.ErrSizeMismatch
)
