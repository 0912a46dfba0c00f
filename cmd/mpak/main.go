// Command mpak lists and extracts MPAK archives.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/meigma/mpak"
)

var (
	// errUsage reports bad arguments; the usage text is printed.
	errUsage = errors.New("usage")

	// errPartial reports that some entries or archives failed. Details
	// were already printed.
	errPartial = errors.New("some items failed")
)

const usage = `usage:
  mpak list [-json] [-raw] ARCHIVE...
  mpak extract [-o DIR] [-workers N] [-overwrite] [-preserve-times] [-verify] [-raw] PATH...

PATH may be an archive or a folder holding .mpk and .npk files.
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one subcommand and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	var err error
	switch args[0] {
	case "list":
		err = runList(args[1:], stdout, stderr)
	case "extract":
		err = runExtract(ctx, args[1:], stdout, stderr)
	case "help", "-h", "-help", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "mpak: unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprint(stderr, usage)
		return 2
	case errors.Is(err, errPartial):
		return 1
	default:
		fmt.Fprintf(stderr, "mpak: %v\n", err)
		return 1
	}
}

// commonFlags are shared by every subcommand.
type commonFlags struct {
	verbose bool
	raw     bool
	maxSize uint64
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.BoolVar(&c.verbose, "v", false, "log debug events to stderr")
	fs.BoolVar(&c.raw, "raw", false, "blocks are raw deflate without zlib framing")
	fs.Uint64Var(&c.maxSize, "max-block", mpak.DefaultMaxBlockSize, "limit on any decoded block in bytes (0 disables)")
}

func (c *commonFlags) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (c *commonFlags) archiveOptions(logger *slog.Logger) []mpak.Option {
	opts := []mpak.Option{
		mpak.WithMaxBlockSize(c.maxSize),
		mpak.WithLogger(logger),
	}
	if c.raw {
		opts = append(opts, mpak.WithBlockFormat(mpak.BlockDeflate))
	}
	return opts
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}
