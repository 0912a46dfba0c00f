package batch

import "github.com/meigma/mpak/internal/mpaktype"

// Item identifies one entry of one archive.
type Item struct {
	// Archive is the path of the archive holding the entry.
	Archive string

	// Entry is the directory record.
	Entry mpaktype.Entry
}

// Sink receives extracted content during batch processing.
//
// Implementations determine where content is written (filesystem, memory,
// etc.) and can filter which entries to process. A Sink is called from
// multiple workers and must be safe for concurrent use.
type Sink interface {
	// ShouldProcess returns false if this entry should be skipped.
	// This allows implementations to skip existing files.
	ShouldProcess(item *Item) bool

	// Put stores the extracted content of an entry.
	// Implementations should not mutate or retain the content slice.
	Put(item *Item, content []byte) error
}
