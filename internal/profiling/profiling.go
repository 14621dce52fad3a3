// Package profiling starts and stops the runtime profilers of a run.
package profiling

import (
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"runtime/trace"

	"github.com/felixge/fgprof"
	"go.uber.org/multierr"
)

// Options names the files that profiles are written to. An empty name disables the profile.
type Options struct {
	CPU    string
	Mem    string
	Trace  string
	Fgprof string
}

// InDir returns options that write the enabled profiles to dir.
// If dir is empty, every profile is disabled.
func InDir(dir string, cpu, mem, tr, fg bool) Options {
	var opts Options
	if dir == "" {
		return opts
	}
	if cpu {
		opts.CPU = filepath.Join(dir, "cpuprofile")
	}
	if mem {
		opts.Mem = filepath.Join(dir, "memprofile")
	}
	if tr {
		opts.Trace = filepath.Join(dir, "trace")
	}
	if fg {
		opts.Fgprof = filepath.Join(dir, "fgprofprofile")
	}
	return opts
}

// Start starts the enabled profilers. The returned function stops them and
// writes the heap profile; it returns all errors encountered while doing so.
// If Start fails, profilers that were already started are stopped.
func Start(opts Options) (stop func() error, err error) {
	var stops []func() error
	stopAll := func() error {
		var err error
		for i := len(stops) - 1; i >= 0; i-- {
			err = multierr.Append(err, stops[i]())
		}
		return err
	}

	if opts.CPU != "" {
		f, err := os.Create(opts.CPU)
		if err != nil {
			return nil, err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			return nil, multierr.Combine(err, f.Close())
		}
		stops = append(stops, func() error {
			pprof.StopCPUProfile()
			return f.Close()
		})
	}

	if opts.Fgprof != "" {
		f, err := os.Create(opts.Fgprof)
		if err != nil {
			return nil, multierr.Combine(err, stopAll())
		}
		fgprofStop := fgprof.Start(f, fgprof.FormatPprof)
		stops = append(stops, func() error {
			return multierr.Combine(fgprofStop(), f.Close())
		})
	}

	if opts.Trace != "" {
		f, err := os.Create(opts.Trace)
		if err != nil {
			return nil, multierr.Combine(err, stopAll())
		}
		if err := trace.Start(f); err != nil {
			return nil, multierr.Combine(err, f.Close(), stopAll())
		}
		stops = append(stops, func() error {
			trace.Stop()
			return f.Close()
		})
	}

	return func() error {
		var err error
		if opts.Mem != "" {
			err = writeHeapProfile(opts.Mem)
		}
		return multierr.Append(err, stopAll())
	}, nil
}

func writeHeapProfile(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, f.Close()) }()
	runtime.GC() // get up-to-date statistics
	return pprof.WriteHeapProfile(f)
}
