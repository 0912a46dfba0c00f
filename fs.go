package mpak

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"slices"
	"strings"
	"time"
)

// Open implements fs.FS.
//
// Files are extracted in full when opened. The namespace is flat and
// case-insensitive; "." is the only directory.
func (a *Archive) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	if a.closed.Load() {
		return nil, &fs.PathError{Op: "open", Path: name, Err: ErrClosed}
	}
	if name == "." {
		return &openDir{entries: a.dirEntries()}, nil
	}

	entry, ok := a.idx.Lookup(name)
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	data, err := a.ExtractByName(name)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: unwrapPathError(err)}
	}
	return &openFile{Reader: bytes.NewReader(data), info: newFileInfo(entry)}, nil
}

// Stat implements fs.StatFS without decoding the payload.
func (a *Archive) Stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}
	if a.closed.Load() {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: ErrClosed}
	}
	if name == "." {
		return dirInfo{}, nil
	}
	entry, ok := a.idx.Lookup(name)
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
	}
	return newFileInfo(entry), nil
}

// ReadFile implements fs.ReadFileFS.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrInvalid}
	}
	data, err := a.ExtractByName(name)
	if err != nil {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: unwrapPathError(err)}
	}
	return data, nil
}

// ReadDir implements fs.ReadDirFS. Only "." can be listed.
func (a *Archive) ReadDir(name string) ([]fs.DirEntry, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	if a.closed.Load() {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: ErrClosed}
	}
	if name != "." {
		if _, ok := a.idx.Lookup(name); ok {
			return nil, &fs.PathError{Op: "readdir", Path: name, Err: errNotDir}
		}
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}
	return a.dirEntries(), nil
}

// dirEntries lists entries whose names are single path elements, sorted by name.
func (a *Archive) dirEntries() []fs.DirEntry {
	entries := make([]fs.DirEntry, 0, a.idx.Len())
	for e := range a.idx.Entries() {
		if !fs.ValidPath(e.Name) || e.Name == "." || strings.Contains(e.Name, "/") {
			continue
		}
		entries = append(entries, fs.FileInfoToDirEntry(newFileInfo(e)))
	}
	slices.SortFunc(entries, func(x, y fs.DirEntry) int {
		return strings.Compare(x.Name(), y.Name())
	})
	return entries
}

func unwrapPathError(err error) error {
	if pe, ok := err.(*fs.PathError); ok { //nolint:errorlint // only our own direct wrapping
		return pe.Err
	}
	return err
}

var errNotDir = errors.New("not a directory")

// fileInfo describes an entry.
type fileInfo struct {
	entry Entry
}

func newFileInfo(e Entry) *fileInfo {
	return &fileInfo{entry: e}
}

func (fi *fileInfo) Name() string       { return fi.entry.Name }
func (fi *fileInfo) Size() int64        { return int64(fi.entry.UncompressedSize) }
func (fi *fileInfo) Mode() fs.FileMode  { return 0o444 }
func (fi *fileInfo) ModTime() time.Time { return fi.entry.Created }
func (fi *fileInfo) IsDir() bool        { return false }

// Sys returns the *Entry.
func (fi *fileInfo) Sys() any { return &fi.entry }

// dirInfo describes the root directory.
type dirInfo struct{}

func (dirInfo) Name() string       { return "." }
func (dirInfo) Size() int64        { return 0 }
func (dirInfo) Mode() fs.FileMode  { return fs.ModeDir | 0o555 }
func (dirInfo) ModTime() time.Time { return time.Time{} }
func (dirInfo) IsDir() bool        { return true }
func (dirInfo) Sys() any           { return nil }

// openFile is an extracted entry held in memory.
type openFile struct {
	*bytes.Reader
	info *fileInfo
}

var (
	_ fs.File     = (*openFile)(nil)
	_ io.Seeker   = (*openFile)(nil)
	_ io.ReaderAt = (*openFile)(nil)
)

func (f *openFile) Stat() (fs.FileInfo, error) { return f.info, nil }
func (f *openFile) Close() error               { return nil }

// openDir is the root directory.
type openDir struct {
	entries []fs.DirEntry
	offset  int
}

var _ fs.ReadDirFile = (*openDir)(nil)

func (d *openDir) Stat() (fs.FileInfo, error) { return dirInfo{}, nil }
func (d *openDir) Close() error               { return nil }

func (d *openDir) Read([]byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: ".", Err: fs.ErrInvalid}
}

// ReadDir implements fs.ReadDirFile.
func (d *openDir) ReadDir(n int) ([]fs.DirEntry, error) {
	remaining := d.entries[d.offset:]
	if n <= 0 {
		d.offset = len(d.entries)
		return slices.Clone(remaining), nil
	}
	if len(remaining) == 0 {
		return nil, io.EOF
	}
	if n > len(remaining) {
		n = len(remaining)
	}
	d.offset += n
	return slices.Clone(remaining[:n]), nil
}
