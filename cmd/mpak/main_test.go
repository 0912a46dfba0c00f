package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/mpak/internal/testutil"
)

func testFiles() []testutil.TestFile {
	return []testutil.TestFile{
		{Name: "Zones.csv", Data: []byte("id,name\n1,Camelot\n")},
		{Name: "items.xml", Data: bytes.Repeat([]byte("<item/>"), 100)},
	}
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Usage(t *testing.T) {
	t.Parallel()

	code, _, stderr := runCLI(t)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "usage:")

	code, _, stderr = runCLI(t, "bogus")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, `unknown command "bogus"`)

	code, _, _ = runCLI(t, "list")
	assert.Equal(t, 2, code)

	code, stdout, _ := runCLI(t, "help")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "mpak extract")
}

func TestRun_List(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := testutil.WriteArchive(t, dir, "zones.mpk", testutil.BuildArchive(t, "Zones", testFiles()))

	code, stdout, _ := runCLI(t, "list", path)
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "(Zones): 2 entries")
	assert.Contains(t, stdout, "Zones.csv")
	assert.Contains(t, stdout, "items.xml")
}

func TestRun_ListJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := testutil.WriteArchive(t, dir, "zones.mpk", testutil.BuildArchive(t, "Zones", testFiles()))
	bad := testutil.WriteArchive(t, dir, "bad.mpk", []byte("junk"))

	code, stdout, _ := runCLI(t, "list", "-json", path, bad)
	assert.Equal(t, 1, code)

	dec := json.NewDecoder(strings.NewReader(stdout))
	var good, broken listedArchive
	require.NoError(t, dec.Decode(&good))
	require.NoError(t, dec.Decode(&broken))

	assert.Equal(t, "Zones", good.Name)
	require.Len(t, good.Entries, 2)
	assert.Equal(t, "Zones.csv", good.Entries[0].Name)
	assert.Equal(t, good.BaseOffset, good.Entries[0].Offset)
	assert.Equal(t, int32(len(testFiles()[1].Data)), good.Entries[1].UncompressedSize)

	assert.Equal(t, bad, broken.Path)
	assert.NotEmpty(t, broken.Error)
}

func TestRun_Extract(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	out := t.TempDir()
	testutil.WriteArchive(t, src, "zones.mpk", testutil.BuildArchive(t, "Zones", testFiles()))
	testutil.WriteArchive(t, src, "readme.txt", []byte("not scanned"))

	code, stdout, stderr := runCLI(t, "extract", "-o", out, "-workers", "2", "-verify", src)
	require.Equal(t, 0, code, stderr)

	for _, f := range testFiles() {
		got, err := os.ReadFile(filepath.Join(out, f.Name))
		require.NoError(t, err)
		assert.Equal(t, f.Data, got)
		assert.Contains(t, stdout, digest.FromBytes(f.Data).String())
	}
	assert.Contains(t, stderr, "1 archives, 2 extracted, 0 skipped, 0 failed")

	// Second run skips existing files.
	code, stdout, _ = runCLI(t, "extract", "-o", out, src)
	require.Equal(t, 0, code)
	assert.Equal(t, 2, strings.Count(stdout, "SKIP "))
}

func TestRun_ExtractFailures(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	out := t.TempDir()
	testutil.WriteArchive(t, src, "good.mpk", testutil.BuildArchive(t, "Good", testFiles()))
	testutil.WriteArchive(t, src, "bad.npk", []byte("MPAK but broken"))

	code, stdout, _ := runCLI(t, "extract", "-o", out, "-q", src)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "FAIL ")
	assert.NotContains(t, stdout, "OK ")

	_, err := os.Stat(filepath.Join(out, "Zones.csv"))
	require.NoError(t, err)
}

func TestRun_ExtractMissingPath(t *testing.T) {
	t.Parallel()

	code, _, stderr := runCLI(t, "extract", "-o", t.TempDir(), filepath.Join(t.TempDir(), "nope"))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "discover")
}

func TestRun_ExtractProfile(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	out := t.TempDir()
	prof := filepath.Join(t.TempDir(), "wall.pprof")
	testutil.WriteArchive(t, src, "zones.mpk", testutil.BuildArchive(t, "Zones", testFiles()))

	code, _, stderr := runCLI(t, "extract", "-o", out, "-fgprofile", prof, src)
	require.Equal(t, 0, code, stderr)

	info, err := os.Stat(prof)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
