package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/meigma/mpak"
)

type listedEntry struct {
	Name             string    `json:"name"`
	Offset           int64     `json:"offset"`
	CompressedSize   int32     `json:"compressedSize"`
	UncompressedSize int32     `json:"uncompressedSize"`
	Created          time.Time `json:"created"`
	Unknown1         int32     `json:"unknown1"`
	Unknown2         int32     `json:"unknown2"`
	Unknown3         uint64    `json:"unknown3"`
}

type listedArchive struct {
	Path       string        `json:"path"`
	Name       string        `json:"name"`
	BaseOffset int64         `json:"baseOffset"`
	Entries    []listedEntry `json:"entries"`
	Error      string        `json:"error,omitempty"`
}

func runList(args []string, stdout, stderr io.Writer) error {
	var (
		common  commonFlags
		asJSON  bool
		flagSet = newFlagSet("list", stderr)
	)
	common.register(flagSet)
	flagSet.BoolVar(&asJSON, "json", false, "print one JSON document per archive")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() == 0 {
		return errUsage
	}

	logger := common.logger(stderr)
	opts := common.archiveOptions(logger)

	failed := false
	enc := json.NewEncoder(stdout)
	for _, path := range flagSet.Args() {
		listed, err := listArchive(path, opts)
		if err != nil {
			failed = true
			listed.Error = err.Error()
			if !asJSON {
				fmt.Fprintf(stderr, "mpak: %v\n", err)
				continue
			}
		}
		if asJSON {
			if err := enc.Encode(listed); err != nil {
				return err
			}
			continue
		}
		if err := printListing(stdout, listed); err != nil {
			return err
		}
	}
	if failed {
		return errPartial
	}
	return nil
}

func listArchive(path string, opts []mpak.Option) (listedArchive, error) {
	listed := listedArchive{Path: path}
	a, err := mpak.Open(path, opts...)
	if err != nil {
		return listed, err
	}
	defer a.Close()

	entries, err := a.Entries()
	if err != nil {
		return listed, err
	}
	listed.Name = a.Name()
	listed.BaseOffset = a.BaseOffset()
	listed.Entries = make([]listedEntry, len(entries))
	for i := range entries {
		e := &entries[i]
		listed.Entries[i] = listedEntry{
			Name:             e.Name,
			Offset:           e.Offset,
			CompressedSize:   e.CompressedSize,
			UncompressedSize: e.UncompressedSize,
			Created:          e.Created,
			Unknown1:         e.Unknown1,
			Unknown2:         e.Unknown2,
			Unknown3:         e.Unknown3,
		}
	}
	return listed, nil
}

func printListing(w io.Writer, listed listedArchive) error {
	fmt.Fprintf(w, "%s (%s): %d entries\n", listed.Path, listed.Name, len(listed.Entries))
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "SIZE\tPACKED\tOFFSET\tCREATED\tNAME")
	for _, e := range listed.Entries {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\t%s\n",
			e.UncompressedSize, e.CompressedSize, e.Offset,
			e.Created.Format(time.DateTime), e.Name)
	}
	return tw.Flush()
}
