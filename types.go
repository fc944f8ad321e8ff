package h5build

// Options holds settings supplied explicitly for one configuration run,
// either on the command line or through environment variables.
//
// Every field is optional. A zero value means "not specified this round";
// unspecified fields fall through to cached values from earlier runs and
// finally to autodetection. MPI is a pointer so that an explicit "false"
// can be told apart from "not specified".
type Options struct {
	// Prefix is the HDF5 install prefix, the parent of "lib" and "include".
	Prefix string `yaml:"hdf5,omitempty"`

	// LibDir is an explicit library directory, overriding Prefix/lib.
	LibDir string `yaml:"libdir,omitempty"`

	// IncludeDir is an explicit header directory, overriding Prefix/include.
	IncludeDir string `yaml:"includedir,omitempty"`

	// LibName holds explicit library base names to link, comma-separated
	// (e.g. "hdf5_serial,hdf5_serial_hl").
	LibName string `yaml:"libname,omitempty"`

	// Version is the HDF5 version in "X.Y.Z" form. Supplying it skips
	// autodetection entirely.
	Version string `yaml:"version,omitempty"`

	// MPI selects the parallel library build. Nil means unspecified.
	MPI *bool `yaml:"mpi,omitempty"`
}

// IsZero reports whether no field of the options was specified.
func (o Options) IsZero() bool {
	return o.Prefix == "" && o.LibDir == "" && o.IncludeDir == "" &&
		o.LibName == "" && o.Version == "" && o.MPI == nil
}

// Equal reports whether two option sets are identical, treating MPI
// pointers by value.
func (o Options) Equal(other Options) bool {
	if o.Prefix != other.Prefix || o.LibDir != other.LibDir ||
		o.IncludeDir != other.IncludeDir || o.LibName != other.LibName ||
		o.Version != other.Version {
		return false
	}
	if (o.MPI == nil) != (other.MPI == nil) {
		return false
	}
	return o.MPI == nil || *o.MPI == *other.MPI
}

// overlay copies the specified fields of src over o, leaving unspecified
// fields untouched. This is the "only update settings which have actually
// been specified this round" step of the resolution algorithm.
func (o *Options) overlay(src Options) {
	if src.Prefix != "" {
		o.Prefix = src.Prefix
	}
	if src.LibDir != "" {
		o.LibDir = src.LibDir
	}
	if src.IncludeDir != "" {
		o.IncludeDir = src.IncludeDir
	}
	if src.LibName != "" {
		o.LibName = src.LibName
	}
	if src.Version != "" {
		o.Version = src.Version
	}
	if src.MPI != nil {
		v := *src.MPI
		o.MPI = &v
	}
}

// Settings is the effective configuration after priority merging and
// autodetection. Empty strings mean the value could not be determined.
type Settings struct {
	Prefix     string   // install prefix, if one was supplied
	LibDir     string   // directory containing the HDF5 library
	IncludeDir string   // directory containing hdf5.h
	LibNames   []string // library base names to link against
	Version    string   // "X.Y.Z", or "" when unknown
	MPI        bool     // parallel build requested
}

// Capabilities describes what the detected HDF5 installation was built with.
type Capabilities struct {
	Parallel   bool // H5_HAVE_PARALLEL: MPI-enabled build
	ThreadSafe bool // H5_HAVE_THREADSAFE
	HighLevel  bool // high-level (hdf5_hl) library present
}

// Resolution is the outcome of one configuration run.
type Resolution struct {
	// Settings is the merged, effective configuration.
	Settings Settings

	// RebuildRequired is true when the effective settings differ from the
	// previous run (or a prior run already flagged a rebuild that has not
	// completed). It is persisted and only cleared by Resolver.MarkBuilt.
	RebuildRequired bool

	// Detected is true when the version came from autodetection rather
	// than an explicit or cached value.
	Detected bool

	// DetectedBy names the probe that reported the version, when
	// Detected is true.
	DetectedBy string

	// Capabilities of the detected installation, nil when not probed.
	Capabilities *Capabilities
}
