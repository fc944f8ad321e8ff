//go:build mage

// Mage targets driving an HDF5 extension build from the repository root:
//
//	mage configure   # resolve and cache the HDF5 configuration
//	mage build       # configure, then compile ext/ into a shared library
//	mage clean       # remove artifacts and cached configuration
package main

import (
	"context"
	"fmt"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
	h5build "github.com/sciforge/hdf5-build-go"
)

const extensionDir = "ext"

// Configure resolves the HDF5 configuration from environment variables,
// cached settings, and autodetection, and prints the summary.
func Configure() error {
	resolver := h5build.NewResolver(h5build.DefaultCacheFile)
	res, err := resolver.Resolve(context.Background(), h5build.Options{}, false)
	if err != nil {
		return err
	}
	fmt.Print(res.Summary())
	return nil
}

// Build compiles the extension sources against the configured HDF5,
// recompiling only when the configuration changed.
func Build() error {
	mg.Deps(Configure)

	builder := &h5build.ExtensionBuilder{}
	result, err := builder.Build(context.Background(), &h5build.BuildConfig{
		SourceDir: extensionDir,
		Verbose:   mg.Verbose(),
	})
	if err != nil {
		return err
	}
	for _, artifact := range result.Artifacts {
		fmt.Printf("built %s/%s\n", extensionDir, artifact)
	}
	return nil
}

// Clean removes built artifacts, the generated config header, and the
// settings cache.
func Clean() error {
	builder := &h5build.ExtensionBuilder{}
	cfg := &h5build.BuildConfig{SourceDir: extensionDir}
	if err := builder.Clean(context.Background(), cfg); err != nil {
		return err
	}
	return sh.Rm(h5build.DefaultCacheFile)
}
