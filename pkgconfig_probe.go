package h5build

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// PkgConfigProbe asks pkg-config for the installed HDF5 version. It is the
// cheapest probe and runs first. Distributions register the library under
// slightly different module names, so several are tried.
type PkgConfigProbe struct {
	// Tool overrides the pkg-config binary name, for tests.
	Tool string
}

// Name returns the probe name.
func (p *PkgConfigProbe) Name() string {
	return "pkg-config"
}

func (p *PkgConfigProbe) tool() string {
	if p.Tool != "" {
		return p.Tool
	}
	return "pkg-config"
}

// Available reports whether pkg-config is in PATH.
func (p *PkgConfigProbe) Available() bool {
	return CheckToolAvailable(p.tool()) == nil
}

// moduleNames returns the pkg-config module names to try, parallel builds
// first when MPI is requested.
func (p *PkgConfigProbe) moduleNames(mpi bool) []string {
	if mpi {
		return []string{"hdf5-openmpi", "hdf5-mpich", "hdf5"}
	}
	return []string{"hdf5", "hdf5-serial"}
}

// Detect runs pkg-config --modversion for each candidate module name.
func (p *PkgConfigProbe) Detect(ctx context.Context, req DetectRequest) (Version, error) {
	var lastErr error
	for _, module := range p.moduleNames(req.MPI) {
		out, err := exec.CommandContext(ctx, p.tool(), "--modversion", module).Output()
		if err != nil {
			lastErr = fmt.Errorf("pkg-config --modversion %s: %w", module, err)
			continue
		}
		v, err := ParseVersion(strings.TrimSpace(string(out)))
		if err != nil {
			lastErr = err
			continue
		}
		return v, nil
	}
	if lastErr == nil {
		lastErr = ErrProbeUnavailable
	}
	return Version{}, lastErr
}

// pkgConfigDirs queries pkg-config for the library and include directories
// of the first known HDF5 module. Used by the Detector to widen its
// candidate directory lists; errors just mean no extra candidates.
func pkgConfigDirs(ctx context.Context, mpi bool) (libDirs, includeDirs []string) {
	probe := &PkgConfigProbe{}
	if !probe.Available() {
		return nil, nil
	}
	for _, module := range probe.moduleNames(mpi) {
		if exec.CommandContext(ctx, probe.tool(), "--exists", module).Run() != nil {
			continue
		}
		if out, err := exec.CommandContext(ctx, probe.tool(), "--libs-only-L", module).Output(); err == nil {
			libDirs = parseFlagDirs(string(out), "-L")
		}
		if out, err := exec.CommandContext(ctx, probe.tool(), "--cflags-only-I", module).Output(); err == nil {
			includeDirs = parseFlagDirs(string(out), "-I")
		}
		return libDirs, includeDirs
	}
	return nil, nil
}

// parseFlagDirs extracts directory arguments from compiler-style flag
// output such as "-L/usr/lib -L/opt/lib" or "-I/usr/include/hdf5/serial".
func parseFlagDirs(out, prefix string) []string {
	var dirs []string
	for _, field := range strings.Fields(out) {
		if strings.HasPrefix(field, prefix) && len(field) > len(prefix) {
			dirs = append(dirs, field[len(prefix):])
		}
	}
	return dirs
}
