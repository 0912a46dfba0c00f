package batch

import (
	"fmt"

	"github.com/opencontainers/go-digest"
)

// Result is the outcome of one entry, or of an archive that failed to open.
type Result struct {
	// Archive is the archive path.
	Archive string

	// Entry is the entry name as stored. It is empty when the archive
	// itself could not be opened.
	Entry string

	// Size is the number of bytes extracted.
	Size int

	// Digest is the sha256 digest of the extracted content.
	Digest digest.Digest

	// Skipped is true when the sink declined the entry.
	Skipped bool

	// Err is the failure, if any.
	Err error
}

// OK reports whether the result is a success or a skip.
func (r *Result) OK() bool {
	return r.Err == nil
}

func (r *Result) String() string {
	name := r.Archive
	if r.Entry != "" {
		name += ":" + r.Entry
	}
	switch {
	case r.Err != nil:
		return fmt.Sprintf("FAIL %s: %v", name, r.Err)
	case r.Skipped:
		return "SKIP " + name
	default:
		return fmt.Sprintf("OK   %s %d %s", name, r.Size, r.Digest)
	}
}

// Stats summarizes a batch run.
type Stats struct {
	// Archives is the number of distinct archives attempted.
	Archives int

	// Processed is the number of entries successfully written to the sink.
	Processed int

	// Skipped is the number of entries skipped (ShouldProcess returned false).
	Skipped int

	// Failed is the number of failed entries and unopenable archives.
	Failed int

	// TotalBytes is the sum of extracted sizes for processed entries.
	TotalBytes uint64
}

// Summarize accumulates stats over results.
func Summarize(results []Result) Stats {
	var s Stats
	archives := make(map[string]struct{})
	for i := range results {
		r := &results[i]
		archives[r.Archive] = struct{}{}
		switch {
		case r.Err != nil:
			s.Failed++
		case r.Skipped:
			s.Skipped++
		default:
			s.Processed++
			s.TotalBytes += uint64(r.Size) //nolint:gosec // sizes are non-negative
		}
	}
	s.Archives = len(archives)
	return s
}
