package batch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsafePath is returned when an entry name would escape the destination.
var ErrUnsafePath = errors.New("batch: unsafe entry path")

// FileSink writes entries to the filesystem with atomic writes.
//
// Files are written to a temporary file in the same directory,
// then renamed to the final path. Partially written files are never
// visible at the final path.
type FileSink struct {
	destDir       string
	overwrite     bool
	preserveTimes bool
	perArchive    bool
}

// FileSinkOption configures a FileSink.
type FileSinkOption func(*FileSink)

// WithOverwrite allows overwriting existing files.
// By default, existing files are skipped.
func WithOverwrite(overwrite bool) FileSinkOption {
	return func(s *FileSink) {
		s.overwrite = overwrite
	}
}

// WithPreserveTimes sets each file's modification time to the entry's
// creation time. By default, files use the current time.
func WithPreserveTimes(preserve bool) FileSinkOption {
	return func(s *FileSink) {
		s.preserveTimes = preserve
	}
}

// WithArchiveDirs writes each archive's entries under a subdirectory named
// after the archive file, without its extension. By default all entries
// share destDir.
func WithArchiveDirs(enabled bool) FileSinkOption {
	return func(s *FileSink) {
		s.perArchive = enabled
	}
}

// NewFileSink creates a FileSink that writes to destDir.
//
// destDir must be an absolute path or relative to the current directory.
// It is created as needed.
func NewFileSink(destDir string, opts ...FileSinkOption) *FileSink {
	s := &FileSink{
		destDir: destDir,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the destination path for item.
func (s *FileSink) Path(item *Item) (string, error) {
	name := filepath.FromSlash(item.Entry.Name)
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, item.Entry.Name)
	}
	dir := s.destDir
	if s.perArchive {
		base := filepath.Base(item.Archive)
		dir = filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base)))
	}
	return filepath.Join(dir, name), nil
}

// ShouldProcess returns false if the file already exists and overwrite is disabled.
func (s *FileSink) ShouldProcess(item *Item) bool {
	if s.overwrite {
		return true
	}
	destPath, err := s.Path(item)
	if err != nil {
		// Let Put report the error.
		return true
	}
	_, err = os.Stat(destPath)
	return os.IsNotExist(err)
}

// Put writes content to a temp file and renames it into place.
func (s *FileSink) Put(item *Item, content []byte) error {
	destPath, err := s.Path(item)
	if err != nil {
		return err
	}

	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	// Create temp file in same directory (for atomic rename)
	tempFile, err := os.CreateTemp(dir, ".mpak-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	if _, err := tempFile.Write(content); err != nil {
		_ = tempFile.Close()    //nolint:errcheck // we're cleaning up
		_ = os.Remove(tempPath) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		_ = os.Remove(tempPath) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("close temp file: %w", err)
	}

	if s.preserveTimes {
		created := item.Entry.Created
		if err := os.Chtimes(tempPath, created, created); err != nil {
			_ = os.Remove(tempPath) //nolint:errcheck // best-effort cleanup
			return fmt.Errorf("chtimes: %w", err)
		}
	}

	// Atomic rename to final path
	if err := os.Rename(tempPath, destPath); err != nil {
		_ = os.Remove(tempPath) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("rename to %s: %w", destPath, err)
	}
	return nil
}
