package main

import (
	"context"
	"fmt"
	"io"

	"github.com/meigma/mpak"
	"github.com/meigma/mpak/internal/batch"
)

type extractConfig struct {
	common        commonFlags
	outDir        string
	workers       int
	overwrite     bool
	preserveTimes bool
	verify        bool
	archiveDirs   bool
	quiet         bool
	profile       profileConfig
}

func runExtract(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var cfg extractConfig
	flagSet := newFlagSet("extract", stderr)
	cfg.common.register(flagSet)
	cfg.profile.register(flagSet)
	flagSet.StringVar(&cfg.outDir, "o", ".", "output directory")
	flagSet.IntVar(&cfg.workers, "workers", 0, "concurrent extraction tasks (0 uses GOMAXPROCS)")
	flagSet.BoolVar(&cfg.overwrite, "overwrite", false, "replace existing files")
	flagSet.BoolVar(&cfg.preserveTimes, "preserve-times", false, "set file times to each entry's creation time")
	flagSet.BoolVar(&cfg.verify, "verify", false, "fail entries whose decoded size differs from the directory")
	flagSet.BoolVar(&cfg.archiveDirs, "archive-dirs", false, "extract each archive into its own subdirectory")
	flagSet.BoolVar(&cfg.quiet, "q", false, "print failures only")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() == 0 {
		return errUsage
	}

	stopProfile, err := cfg.profile.start()
	if err != nil {
		return err
	}
	defer stopProfile(stderr)

	paths, err := batch.Discover(flagSet.Args())
	if err != nil {
		return err
	}

	logger := cfg.common.logger(stderr)
	archiveOpts := append(cfg.common.archiveOptions(logger), mpak.WithVerifySize(cfg.verify))
	sink := batch.NewFileSink(cfg.outDir,
		batch.WithOverwrite(cfg.overwrite),
		batch.WithPreserveTimes(cfg.preserveTimes),
		batch.WithArchiveDirs(cfg.archiveDirs),
	)
	proc := batch.NewProcessor(sink,
		batch.WithWorkers(cfg.workers),
		batch.WithLogger(logger),
		batch.WithArchiveOptions(archiveOpts...),
	)

	results, err := proc.Process(ctx, paths)
	if err != nil {
		return err
	}
	for i := range results {
		r := &results[i]
		if cfg.quiet && r.OK() {
			continue
		}
		fmt.Fprintln(stdout, r.String())
	}

	stats := batch.Summarize(results)
	fmt.Fprintf(stderr, "%d archives, %d extracted, %d skipped, %d failed, %d bytes\n",
		stats.Archives, stats.Processed, stats.Skipped, stats.Failed, stats.TotalBytes)
	if stats.Failed > 0 {
		return errPartial
	}
	return nil
}
