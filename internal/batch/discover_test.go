package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, nil, 0o600))
}

func TestIsArchiveName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want bool
	}{
		{"zones.mpk", true},
		{"ITEMS.NPK", true},
		{"mixed.Mpk", true},
		{"readme.txt", false},
		{"mpk", false},
		{"archive.mpk.bak", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsArchiveName(tt.name), tt.name)
	}
}

func TestDiscover(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.npk"))
	touch(t, filepath.Join(dir, "A.MPK"))
	touch(t, filepath.Join(dir, "notes.txt"))
	touch(t, filepath.Join(dir, "nested", "deep.mpk"))
	single := filepath.Join(dir, "other.dat")
	touch(t, single)

	got, err := Discover([]string{single, dir, filepath.Join(dir, "b.npk")})
	require.NoError(t, err)
	assert.Equal(t, []string{
		single,
		filepath.Join(dir, "A.MPK"),
		filepath.Join(dir, "b.npk"),
	}, got)
}

func TestDiscover_Missing(t *testing.T) {
	t.Parallel()

	_, err := Discover([]string{filepath.Join(t.TempDir(), "missing.mpk")})
	require.ErrorIs(t, err, os.ErrNotExist)
}
