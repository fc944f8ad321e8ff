// Command h5config configures an HDF5 extension build: it merges
// command-line options, environment variables, and cached settings,
// autodetects whatever is still missing, persists the result, and prints a
// configuration summary.
//
// Usage:
//
//	h5config [-hdf5 DIR] [-libdir DIR] [-includedir DIR] [-libname NAMES]
//	         [-version X.Y.Z] [-mpi] [-reset] [-cache FILE] [-quiet]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	h5build "github.com/sciforge/hdf5-build-go"
)

func main() {
	prefix := flag.String("hdf5", "", "custom path to HDF5 (parent of lib and include)")
	libdir := flag.String("libdir", "", "custom path to the HDF5 library directory")
	includedir := flag.String("includedir", "", "custom path to the HDF5 include directory")
	libname := flag.String("libname", "", "custom HDF5 library names, comma-separated")
	version := flag.String("version", "", `HDF5 version "X.Y.Z" (skips autodetection)`)
	mpi := flag.Bool("mpi", false, "configure against the parallel (MPI) library")
	reset := flag.Bool("reset", false, "discard cached configuration options")
	cache := flag.String("cache", h5build.DefaultCacheFile, "settings cache file")
	quiet := flag.Bool("quiet", false, "suppress the configuration summary")
	logLevel := flag.String("log-level", "", "log level (debug, info, warn, error)")
	flag.Parse()

	h5build.ConfigureLogging(h5build.LogConfig{Level: *logLevel})

	opts := h5build.Options{
		Prefix:     *prefix,
		LibDir:     *libdir,
		IncludeDir: *includedir,
		LibName:    *libname,
		Version:    *version,
	}
	// Only an explicitly passed -mpi flag should participate in the
	// priority merge; a silent default would shadow cached and
	// environment values.
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "mpi" {
			opts.MPI = mpi
		}
	})

	resolver := h5build.NewResolver(*cache)
	res, err := resolver.Resolve(context.Background(), opts, *reset)
	if err != nil {
		fmt.Fprintf(os.Stderr, "h5config: %v\n", err)
		os.Exit(2)
	}

	if !*quiet {
		fmt.Print(res.Summary())
	}
}
