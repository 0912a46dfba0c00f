package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Extensions lists the archive file extensions picked up from folders.
var Extensions = []string{".mpk", ".npk"}

// IsArchiveName reports whether name has an archive extension, ignoring case.
func IsArchiveName(name string) bool {
	return slices.Contains(Extensions, strings.ToLower(filepath.Ext(name)))
}

// Discover expands paths into archive file paths.
//
// A file path is kept as given, whatever its extension. A directory is
// scanned without recursion for files with an archive extension. Results
// keep argument order, and each directory's matches are sorted by name.
// Duplicate paths are dropped.
func Discover(paths []string) ([]string, error) {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("discover: %w", err)
		}
		if !info.IsDir() {
			add(filepath.Clean(p))
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("discover: %w", err)
		}
		// os.ReadDir returns entries sorted by filename.
		for _, e := range entries {
			if e.IsDir() || !IsArchiveName(e.Name()) {
				continue
			}
			add(filepath.Join(p, e.Name()))
		}
	}
	return out, nil
}
