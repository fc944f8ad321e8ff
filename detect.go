package h5build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
)

// DetectResult is what autodetection found out about the installed HDF5.
type DetectResult struct {
	LibDir       string        // directory the library was found in
	IncludeDir   string        // best header directory
	LibNames     []string      // library base names to link
	Version      Version       // detected version
	Probe        string        // name of the probe that reported the version
	Capabilities *Capabilities // build capabilities, nil when unknown
}

// Detector probes the filesystem, package-metadata tools, and the library
// itself to infer where HDF5 lives and which version it is. It is intended
// for Unix-ish platforms (Linux, macOS, BSD); Windows installs must be
// configured explicitly.
type Detector struct {
	// Chain of version probes. Nil means NewProbeChain().
	Chain *ProbeChain

	// GOOS overrides runtime.GOOS, for tests.
	GOOS string

	// Distro overrides host distribution detection ("debian", "ubuntu",
	// ...), for tests. Empty means read /etc/os-release.
	Distro string

	// Machine overrides the multiarch machine name (x86_64, aarch64, ...),
	// for tests.
	Machine string
}

// NewDetector returns a Detector for the current host with the standard
// probe chain.
func NewDetector() *Detector {
	return &Detector{Chain: NewProbeChain()}
}

func (d *Detector) goos() string {
	if d.GOOS != "" {
		return d.GOOS
	}
	return runtime.GOOS
}

// debianLike reports whether the host is a Debian-family distribution,
// where the library is split into serial/openmpi flavors under multiarch
// directories.
func (d *Detector) debianLike() bool {
	if d.goos() != "linux" {
		return false
	}
	id := d.Distro
	if id == "" {
		id = osReleaseID()
	}
	switch id {
	case "debian", "ubuntu":
		return true
	}
	return false
}

var osReleaseIDRe = regexp.MustCompile(`(?m)^ID=["']?([a-z0-9._-]+)["']?`)

// osReleaseID reads the distribution ID from /etc/os-release.
func osReleaseID() string {
	data, err := os.ReadFile("/etc/os-release")
	if err != nil {
		return ""
	}
	if m := osReleaseIDRe.FindSubmatch(data); m != nil {
		return string(m[1])
	}
	return ""
}

// machine returns the uname-style machine name used in Debian multiarch
// directory names.
func (d *Detector) machine() string {
	if d.Machine != "" {
		return d.Machine
	}
	switch runtime.GOARCH {
	case "amd64":
		return "x86_64"
	case "arm64":
		return "aarch64"
	case "386":
		return "i386"
	case "arm":
		return "arm"
	case "ppc64le":
		return "powerpc64le"
	case "riscv64":
		return "riscv64"
	case "s390x":
		return "s390x"
	}
	return runtime.GOARCH
}

// CandidateLibDirs returns the directories to search for the HDF5 library,
// best first. An explicit prefix's lib directory always goes first so a
// custom install shadows whatever the system provides.
func (d *Detector) CandidateLibDirs(ctx context.Context, prefix string, mpi bool) []string {
	dirs := []string{"/usr/local/lib", "/opt/local/lib"}

	if d.goos() == "linux" {
		if d.debianLike() {
			// Debian sorts libraries by architecture under multiarch dirs.
			dirs = append(dirs, filepath.Join("/usr/lib", d.machine()+"-linux-gnu"))
		} else if pkgLibs, _ := pkgConfigDirs(ctx, mpi); len(pkgLibs) > 0 {
			dirs = append(dirs, pkgLibs...)
		}
	}

	if prefix != "" {
		dirs = append([]string{filepath.Join(prefix, "lib")}, dirs...)
	}
	return dirs
}

// CandidateIncludeDirs returns the directories to search for hdf5.h, best
// first.
func (d *Detector) CandidateIncludeDirs(ctx context.Context, prefix string, mpi bool) []string {
	var dirs []string

	if d.goos() == "linux" {
		if d.debianLike() {
			if mpi {
				dirs = append(dirs, "/usr/include/hdf5/openmpi")
			} else {
				dirs = append(dirs, "/usr/include/hdf5/serial")
			}
		} else if _, pkgIncs := pkgConfigDirs(ctx, mpi); len(pkgIncs) > 0 {
			dirs = append(dirs, pkgIncs...)
		}
	}
	dirs = append(dirs, "/usr/local/include", "/usr/include")

	if prefix != "" {
		dirs = append([]string{filepath.Join(prefix, "include")}, dirs...)
	}
	return dirs
}

// libraryPattern returns the regexp a candidate library filename must
// match on this platform.
func (d *Detector) libraryPattern(mpi bool) *regexp.Regexp {
	switch {
	case d.goos() == "darwin":
		return regexp.MustCompile(`^libhdf5\.dylib`)
	case d.debianLike() && mpi:
		return regexp.MustCompile(`^libhdf5_openmpi\.so`)
	case d.debianLike():
		return regexp.MustCompile(`^libhdf5_serial\.so`)
	default:
		return regexp.MustCompile(`^libhdf5\.so`)
	}
}

// FindLibrary scans the candidate directories for a matching library file
// and returns its absolute path. Within one directory the shortest match
// wins, preferring the unversioned libhdf5.so over libhdf5.so.X.Y.Z.
func (d *Detector) FindLibrary(dirs []string, mpi bool) (string, error) {
	pattern := d.libraryPattern(mpi)

	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue // skip invalid entries
		}
		var candidates []string
		for _, e := range entries {
			if pattern.MatchString(e.Name()) {
				candidates = append(candidates, e.Name())
			}
		}
		if len(candidates) == 0 {
			continue
		}
		sort.Slice(candidates, func(i, j int) bool {
			if len(candidates[i]) != len(candidates[j]) {
				return len(candidates[i]) < len(candidates[j])
			}
			return candidates[i] < candidates[j]
		})
		abs, err := filepath.Abs(filepath.Join(dir, candidates[0]))
		if err != nil {
			return "", err
		}
		return abs, nil
	}
	return "", fmt.Errorf("no HDF5 library matching %s in candidate directories", pattern)
}

// defaultLibNames returns the library base names to link on this platform.
func (d *Detector) defaultLibNames(mpi bool) []string {
	if d.debianLike() {
		if mpi {
			return []string{"hdf5_openmpi", "hdf5_openmpi_hl"}
		}
		return []string{"hdf5_serial", "hdf5_serial_hl"}
	}
	return []string{"hdf5", "hdf5_hl"}
}

// Detect locates the library and headers and determines version and
// capabilities. Values already present in req are respected: an explicit
// lib or include dir is searched first and reported back unchanged.
func (d *Detector) Detect(ctx context.Context, req DetectRequest) (*DetectResult, error) {
	libDirs := d.CandidateLibDirs(ctx, req.Prefix, req.MPI)
	if req.LibDir != "" {
		libDirs = append([]string{req.LibDir}, libDirs...)
	}

	includeDirs := d.CandidateIncludeDirs(ctx, req.Prefix, req.MPI)
	if len(req.IncludeDirs) > 0 {
		includeDirs = append(append([]string{}, req.IncludeDirs...), includeDirs...)
	}

	result := &DetectResult{
		LibNames: req.LibNames,
	}
	if len(result.LibNames) == 0 {
		result.LibNames = d.defaultLibNames(req.MPI)
	}

	libPath, err := d.FindLibrary(libDirs, req.MPI)
	if err == nil {
		result.LibDir = filepath.Dir(libPath)
	} else if req.LibDir != "" {
		result.LibDir = req.LibDir
	}
	result.IncludeDir = firstExistingDir(includeDirs)

	chain := d.Chain
	if chain == nil {
		chain = NewProbeChain()
	}
	version, probe, err := chain.Detect(ctx, DetectRequest{
		Prefix:      req.Prefix,
		LibDir:      result.LibDir,
		IncludeDirs: includeDirs,
		LibraryPath: libPath,
		LibNames:    result.LibNames,
		MPI:         req.MPI,
	})
	if err != nil {
		return nil, err
	}
	result.Version = version
	result.Probe = probe
	result.Capabilities = d.detectCapabilities(includeDirs, result.LibDir)

	return result, nil
}

// detectCapabilities inspects H5pubconf.h and the library directory for
// build features. Best effort; nil when nothing could be read.
func (d *Detector) detectCapabilities(includeDirs []string, libDir string) *Capabilities {
	path, err := findHeader(includeDirs, "H5pubconf.h")
	if err != nil {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	caps := ParseCapabilityHeader(string(data))
	caps.HighLevel = hasHighLevelLibrary(libDir)
	return &caps
}

// hasHighLevelLibrary reports whether a hdf5*_hl library sits next to the
// core library.
func hasHighLevelLibrary(libDir string) bool {
	if libDir == "" {
		return false
	}
	entries, err := os.ReadDir(libDir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "libhdf5") && strings.Contains(name, "_hl") {
			return true
		}
	}
	return false
}

// firstExistingDir returns the first directory in dirs that exists, or the
// first non-empty entry when none do.
func firstExistingDir(dirs []string) string {
	fallback := ""
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if fallback == "" {
			fallback = dir
		}
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
	}
	return fallback
}
