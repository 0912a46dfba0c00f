// Package batch extracts entries from many archives concurrently.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"

	"github.com/meigma/mpak"
)

// DefaultShardSize is the default number of entries handled by one task.
const DefaultShardSize = 256

// Processor extracts every entry of a set of archives into a Sink.
//
// Work is split into shards of entries per archive. Each shard opens its own
// handle on the archive, so shards of the same archive decode in parallel.
// A failed entry or archive is recorded in the results and never stops the
// run.
type Processor struct {
	sink        Sink
	workers     int // 0 = GOMAXPROCS
	shardSize   int
	logger      *slog.Logger
	archiveOpts []mpak.Option
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithWorkers sets the number of concurrent tasks. Values <= 0 use
// GOMAXPROCS.
func WithWorkers(n int) ProcessorOption {
	return func(p *Processor) {
		p.workers = n
	}
}

// WithShardSize sets the number of entries per task. Values <= 0 use
// DefaultShardSize.
func WithShardSize(n int) ProcessorOption {
	return func(p *Processor) {
		p.shardSize = n
	}
}

// WithLogger sets the logger for progress and failures.
func WithLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithArchiveOptions sets the options used for every archive handle.
func WithArchiveOptions(opts ...mpak.Option) ProcessorOption {
	return func(p *Processor) {
		p.archiveOpts = opts
	}
}

// NewProcessor creates a Processor writing to sink.
func NewProcessor(sink Sink, opts ...ProcessorOption) *Processor {
	p := &Processor{
		sink:      sink,
		shardSize: DefaultShardSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.shardSize <= 0 {
		p.shardSize = DefaultShardSize
	}
	return p
}

func (p *Processor) log() *slog.Logger {
	if p.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.logger
}

func (p *Processor) workerCount() int {
	if p.workers > 0 {
		return p.workers
	}
	return runtime.GOMAXPROCS(0)
}

// shard is a contiguous run of one archive's directory.
type shard struct {
	archive string
	entries []mpak.Entry
	results []Result // aliases the run's result slice
}

// Process extracts every entry of the archives at paths.
//
// Results hold one element per entry in archive then directory order, and
// one element for each archive that could not be opened. The error is
// non-nil only when ctx is canceled.
func (p *Processor) Process(ctx context.Context, paths []string) ([]Result, error) {
	// Directories are read serially to size the result slice up front.
	var (
		results []Result
		shards  []shard
	)
	type span struct {
		archive string
		entries []mpak.Entry
		start   int
	}
	var spans []span
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		entries, err := p.listEntries(path)
		if err != nil {
			p.log().Warn("open archive failed", "archive", path, "error", err)
			results = append(results, Result{Archive: path, Err: err})
			continue
		}
		spans = append(spans, span{archive: path, entries: entries, start: len(results)})
		for i := range entries {
			results = append(results, Result{Archive: path, Entry: entries[i].Name})
		}
	}

	for _, s := range spans {
		for lo := 0; lo < len(s.entries); lo += p.shardSize {
			hi := min(lo+p.shardSize, len(s.entries))
			shards = append(shards, shard{
				archive: s.archive,
				entries: s.entries[lo:hi],
				results: results[s.start+lo : s.start+hi],
			})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workerCount())
	for i := range shards {
		sh := &shards[i]
		g.Go(func() error {
			return p.processShard(gctx, sh)
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}

	stats := Summarize(results)
	p.log().Info("batch complete",
		"archives", stats.Archives,
		"processed", stats.Processed,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"bytes", stats.TotalBytes,
	)
	return results, nil
}

// listEntries opens the archive long enough to read its directory.
func (p *Processor) listEntries(path string) ([]mpak.Entry, error) {
	a, err := mpak.Open(path, p.archiveOpts...)
	if err != nil {
		return nil, err
	}
	defer a.Close()
	return a.Entries()
}

// processShard extracts a shard's entries through a private handle.
// Only ctx cancellation is returned as an error.
func (p *Processor) processShard(ctx context.Context, sh *shard) error {
	a, err := mpak.Open(sh.archive, p.archiveOpts...)
	if err != nil {
		for i := range sh.results {
			sh.results[i].Err = err
		}
		p.log().Warn("open archive failed", "archive", sh.archive, "error", err)
		return nil
	}
	defer a.Close()

	for i := range sh.entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.processEntry(a, &sh.entries[i], &sh.results[i])
	}
	return nil
}

func (p *Processor) processEntry(a *mpak.Archive, entry *mpak.Entry, res *Result) {
	item := &Item{Archive: res.Archive, Entry: *entry}
	if !p.sink.ShouldProcess(item) {
		res.Skipped = true
		return
	}

	content, err := a.ExtractByName(entry.Name)
	if err != nil {
		res.Err = err
		p.log().Warn("extract failed", "archive", res.Archive, "entry", entry.Name, "error", err)
		return
	}
	res.Size = len(content)
	res.Digest = digest.FromBytes(content)

	if err := p.sink.Put(item, content); err != nil {
		res.Err = fmt.Errorf("put %s: %w", entry.Name, err)
		p.log().Warn("write failed", "archive", res.Archive, "entry", entry.Name, "error", err)
		return
	}
	p.log().Debug("extracted", "archive", res.Archive, "entry", entry.Name, "bytes", res.Size)
}
