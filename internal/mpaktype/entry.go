// Package mpaktype defines shared types used across the mpak package and its
// internal packages. This avoids circular imports between mpak and the
// directory, block, and batch packages.
package mpaktype

import (
	"strings"
	"time"
)

// Entry is one directory record of an MPAK archive.
//
// Unknown1, Unknown2, and Unknown3 are carried verbatim from the directory.
// Their meaning is undocumented; Created is derived from Unknown3.
type Entry struct {
	// Name is the file name as stored, with its original case.
	Name string

	// Offset is the absolute stream position of the compressed payload.
	// Zero marks an unresolvable entry.
	Offset int64

	// CompressedSize is the stored size of the payload block.
	CompressedSize int32

	// UncompressedSize is the size of the decoded payload.
	UncompressedSize int32

	// Created is the creation time derived from Unknown3.
	Created time.Time

	Unknown1 int32
	Unknown2 int32
	Unknown3 uint64
}

// Key returns the lookup key for the entry.
func (e *Entry) Key() string {
	return NormalizeName(e.Name)
}

// Resolvable reports whether the entry points at a payload.
func (e *Entry) Resolvable() bool {
	return e.Offset != 0
}

// NormalizeName converts a user-provided entry name to its lookup key.
func NormalizeName(name string) string {
	return strings.ToLower(name)
}
