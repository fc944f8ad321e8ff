// Package h5build locates an installed HDF5 C library and derives the
// compiler and linker settings needed to build a native extension against it.
//
// The package does not read or write HDF5 data. It is build plumbing: it
// figures out where the library lives, which version it is, whether it was
// built with MPI support, and what flags a compiler invocation needs.
//
// # Configuration Resolution
//
// Settings come from five sources, in order of priority:
//
//  1. Current command-line options
//  2. Command-line options cached from prior runs
//  3. Current environment variables (HDF5_DIR, HDF5_LIB, ...)
//  4. Environment variables cached from prior runs
//  5. Autodetection
//
// Resolved settings are cached in a YAML file between invocations, so the
// library can be configured once and then built or tested repeatedly without
// re-supplying the same options. Whenever the effective settings change, a
// persisted rebuild flag is raised; it stays raised until a build completes:
//
//	resolver := h5build.NewResolver("h5config.yaml")
//	res, err := resolver.Resolve(ctx, h5build.Options{Prefix: "/opt/hdf5"}, false)
//	if err != nil {
//	    // invalid options
//	}
//	if res.RebuildRequired {
//	    // recompile, then:
//	    _ = resolver.MarkBuilt()
//	}
//
// # Autodetection
//
// When no version is supplied, a chain of probes interrogates the host:
// pkg-config metadata, the h5cc compiler wrapper, the H5public.h header, and
// finally a compile-and-run probe that calls H5get_libversion. The first
// probe that answers wins. See Probe and NewProbeChain.
//
// # Compiler Settings
//
// CompilerSettingsFor turns a resolution into include/library directories,
// link libraries, and preprocessor defines, with rendered CFLAGS/LDFLAGS for
// shell-out consumers. ExtensionBuilder drives a full configure/compile/find
// pipeline on top of that.
//
// # Platform Support
//
// Autodetection targets Unix-ish platforms (Linux, macOS, BSD). Windows is
// supported only through explicitly supplied directories.
package h5build
