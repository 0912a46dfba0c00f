// Package index decodes the MPAK directory into an immutable entry index.
package index

import (
	"fmt"
	"iter"

	"github.com/meigma/mpak/internal/mpaktype"
)

// Index provides access to archive entries.
//
// Entries keep directory order. Lookups are case-insensitive. An Index is
// never modified after Decode returns, so it is safe for concurrent use.
type Index struct {
	entries []mpaktype.Entry
	byKey   map[string]int
}

// Decode parses raw directory bytes into an Index.
//
// Records are RecordSize bytes each; a trailing partial record is dropped.
// base is the directory base offset that every relative payload offset is
// resolved against. When two records share a lowercased name, the later
// record replaces the earlier one in place.
func Decode(raw []byte, base int64) (*Index, error) {
	n := len(raw) / RecordSize
	idx := &Index{
		entries: make([]mpaktype.Entry, 0, n),
		byKey:   make(map[string]int, n),
	}

	for off := 0; off+RecordSize <= len(raw); off += RecordSize {
		entry, err := Record(raw[off : off+RecordSize]).Entry(base)
		if err != nil {
			return nil, fmt.Errorf("directory record %d: %w", off/RecordSize, err)
		}
		key := entry.Key()
		if i, ok := idx.byKey[key]; ok {
			idx.entries[i] = entry
			continue
		}
		idx.byKey[key] = len(idx.entries)
		idx.entries = append(idx.entries, entry)
	}
	return idx, nil
}

// Lookup returns the entry for name, ignoring case.
func (idx *Index) Lookup(name string) (mpaktype.Entry, bool) {
	i, ok := idx.byKey[mpaktype.NormalizeName(name)]
	if !ok {
		return mpaktype.Entry{}, false
	}
	return idx.entries[i], true
}

// Len returns the number of entries in the index.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Entries returns an iterator over all entries in directory order.
func (idx *Index) Entries() iter.Seq[mpaktype.Entry] {
	return func(yield func(mpaktype.Entry) bool) {
		for _, e := range idx.entries {
			if !yield(e) {
				return
			}
		}
	}
}

// Slice returns a copy of all entries in directory order.
func (idx *Index) Slice() []mpaktype.Entry {
	out := make([]mpaktype.Entry, len(idx.entries))
	copy(out, idx.entries)
	return out
}
