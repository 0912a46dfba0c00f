package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"runtime/pprof"

	"github.com/felixge/fgprof"
)

// profileConfig holds the optional profiling outputs of a run.
type profileConfig struct {
	fgProfile  string
	cpuProfile string
}

func (p *profileConfig) register(fs *flag.FlagSet) {
	fs.StringVar(&p.fgProfile, "fgprofile", "", "write fgprof (wall clock) profile to file")
	fs.StringVar(&p.cpuProfile, "cpuprofile", "", "write CPU profile to file")
}

// start begins the requested profiles. The returned function stops them and
// reports stop errors to w.
func (p *profileConfig) start() (func(w io.Writer), error) {
	var stops []func(w io.Writer)
	stopAll := func(w io.Writer) {
		for i := len(stops) - 1; i >= 0; i-- {
			stops[i](w)
		}
	}

	if p.fgProfile != "" {
		fgFile, err := os.Create(p.fgProfile)
		if err != nil {
			return nil, fmt.Errorf("fgprof: %w", err)
		}
		stopFG := fgprof.Start(fgFile, fgprof.FormatPprof)
		stops = append(stops, func(w io.Writer) {
			if err := stopFG(); err != nil {
				fmt.Fprintf(w, "fgprof stop error: %v\n", err)
			}
			_ = fgFile.Close()
		})
	}

	if p.cpuProfile != "" {
		cpuFile, err := os.Create(p.cpuProfile)
		if err != nil {
			stopAll(io.Discard)
			return nil, fmt.Errorf("cpu profile: %w", err)
		}
		if err := pprof.StartCPUProfile(cpuFile); err != nil {
			_ = cpuFile.Close()
			stopAll(io.Discard)
			return nil, fmt.Errorf("cpu profile: %w", err)
		}
		stops = append(stops, func(io.Writer) {
			pprof.StopCPUProfile()
			_ = cpuFile.Close()
		})
	}

	return stopAll, nil
}
