package mpaktype

import (
	"errors"
	"fmt"
	"io/fs"
)

// Sentinel errors for mpak operations.
var (
	// ErrFormat is returned for a bad magic, malformed compressed data, or an
	// unterminated entry name.
	ErrFormat = errors.New("mpak: invalid format")

	// ErrTruncated is returned when the stream ends before a block completes.
	ErrTruncated = errors.New("mpak: truncated stream")

	// ErrNotFound is returned when an entry is absent or has no payload offset.
	// It matches fs.ErrNotExist.
	ErrNotFound = fmt.Errorf("mpak: entry not found: %w", fs.ErrNotExist)

	// ErrClosed is returned when an archive is used after Close.
	// It matches fs.ErrClosed.
	ErrClosed = fmt.Errorf("mpak: archive is closed: %w", fs.ErrClosed)

	// ErrSizeOverflow is returned when byte counts exceed supported limits.
	ErrSizeOverflow = errors.New("mpak: size overflow")

	// ErrSizeMismatch is returned when a decoded payload does not match the
	// size recorded in the directory.
	ErrSizeMismatch = errors.New("mpak: size mismatch")
)
