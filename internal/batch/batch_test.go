package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/mpak"
	"github.com/meigma/mpak/internal/testutil"
)

type memSink struct {
	mu      sync.Mutex
	files   map[string][]byte
	skip    map[string]bool
	failPut map[string]bool
}

func newMemSink() *memSink {
	return &memSink{
		files:   make(map[string][]byte),
		skip:    make(map[string]bool),
		failPut: make(map[string]bool),
	}
}

func (s *memSink) key(item *Item) string {
	return filepath.Base(item.Archive) + ":" + item.Entry.Name
}

func (s *memSink) ShouldProcess(item *Item) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.skip[item.Entry.Name]
}

func (s *memSink) Put(item *Item, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPut[item.Entry.Name] {
		return errors.New("sink refused")
	}
	s.files[s.key(item)] = bytes.Clone(content)
	return nil
}

func manyFiles(n int) []testutil.TestFile {
	files := make([]testutil.TestFile, n)
	for i := range files {
		files[i] = testutil.TestFile{
			Name: fmt.Sprintf("file%03d.dat", i),
			Data: bytes.Repeat([]byte{byte(i)}, 100+i),
		}
	}
	return files
}

func TestProcess_AllEntries(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	files := manyFiles(10)
	a := testutil.WriteArchive(t, dir, "a.mpk", testutil.BuildArchive(t, "A", files))
	b := testutil.WriteArchive(t, dir, "b.npk", testutil.BuildArchive(t, "B", files[:3]))

	sink := newMemSink()
	p := NewProcessor(sink, WithWorkers(4), WithShardSize(3))
	results, err := p.Process(context.Background(), []string{a, b})
	require.NoError(t, err)
	require.Len(t, results, 13)

	// Results follow archive then directory order.
	for i, r := range results[:10] {
		assert.Equal(t, a, r.Archive)
		assert.Equal(t, files[i].Name, r.Entry)
		require.NoError(t, r.Err)
		assert.Equal(t, len(files[i].Data), r.Size)
		assert.Equal(t, digest.FromBytes(files[i].Data), r.Digest)
	}
	for i, r := range results[10:] {
		assert.Equal(t, b, r.Archive)
		assert.Equal(t, files[i].Name, r.Entry)
	}

	assert.Len(t, sink.files, 13)
	assert.Equal(t, files[7].Data, sink.files["a.mpk:file007.dat"])

	stats := Summarize(results)
	assert.Equal(t, Stats{Archives: 2, Processed: 13, TotalBytes: stats.TotalBytes}, stats)
	assert.Positive(t, stats.TotalBytes)
}

func TestProcess_FailuresDoNotAbort(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	files := manyFiles(3)
	broken := testutil.TestRecord{Name: "broken.bin", UncompressedSize: 10, RelativeOffset: 1 << 20}
	good := testutil.WriteArchive(t, dir, "good.mpk",
		testutil.BuildArchive(t, "Good", files, testutil.WithExtraRecords(broken)))
	bad := testutil.WriteArchive(t, dir, "bad.mpk", []byte("NOPE not an archive"))
	missing := filepath.Join(dir, "missing.mpk")

	sink := newMemSink()
	sink.failPut["file001.dat"] = true
	sink.skip["file002.dat"] = true

	results, err := NewProcessor(sink).Process(context.Background(), []string{good, bad, missing})
	require.NoError(t, err)
	require.Len(t, results, 6)

	assert.NoError(t, results[0].Err)
	assert.ErrorContains(t, results[1].Err, "sink refused")
	assert.True(t, results[2].Skipped)
	assert.NoError(t, results[2].Err)
	assert.Equal(t, "broken.bin", results[3].Entry)
	assert.ErrorIs(t, results[3].Err, mpak.ErrTruncated)

	assert.Equal(t, bad, results[4].Archive)
	assert.Empty(t, results[4].Entry)
	assert.ErrorIs(t, results[4].Err, mpak.ErrFormat)
	assert.Equal(t, missing, results[5].Archive)
	assert.Error(t, results[5].Err)

	stats := Summarize(results)
	assert.Equal(t, 3, stats.Archives)
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 4, stats.Failed)

	assert.Len(t, sink.files, 1)
}

func TestProcess_ArchiveOptions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := testutil.WriteArchive(t, dir, "raw.mpk",
		testutil.BuildArchive(t, "Raw", manyFiles(2), testutil.WithFormat(mpak.BlockDeflate)))

	results, err := NewProcessor(newMemSink()).Process(context.Background(), []string{path})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)

	results, err = NewProcessor(newMemSink(),
		WithArchiveOptions(mpak.WithBlockFormat(mpak.BlockDeflate)),
	).Process(context.Background(), []string{path})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.NoError(t, r.Err)
	}
}

func TestProcess_Canceled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := testutil.WriteArchive(t, dir, "a.mpk", testutil.BuildArchive(t, "A", manyFiles(2)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewProcessor(newMemSink()).Process(ctx, []string{path})
	require.ErrorIs(t, err, context.Canceled)
}

func TestProcess_Empty(t *testing.T) {
	t.Parallel()

	results, err := NewProcessor(newMemSink()).Process(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestResult_String(t *testing.T) {
	t.Parallel()

	ok := Result{Archive: "a.mpk", Entry: "x", Size: 3, Digest: digest.FromString("abc")}
	assert.Equal(t, "OK   a.mpk:x 3 "+digest.FromString("abc").String(), ok.String())

	skip := Result{Archive: "a.mpk", Entry: "x", Skipped: true}
	assert.Equal(t, "SKIP a.mpk:x", skip.String())

	fail := Result{Archive: "a.mpk", Err: errors.New("boom")}
	assert.Equal(t, "FAIL a.mpk: boom", fail.String())
	assert.False(t, fail.OK())
}
