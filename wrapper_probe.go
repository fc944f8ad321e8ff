package h5build

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// WrapperProbe asks the HDF5 compiler wrapper (h5cc, or h5pcc for parallel
// builds) for its configuration. The wrapper ships with every HDF5
// installation that can compile programs, so when it exists its answer is
// authoritative for the toolchain that will actually be used.
type WrapperProbe struct {
	// Runner overrides command execution, for tests.
	Runner CommandRunner
}

// Name returns the probe name.
func (p *WrapperProbe) Name() string {
	return "h5cc"
}

// wrapperTool returns the wrapper binary for the requested build flavor.
func wrapperTool(mpi bool) string {
	if mpi {
		return "h5pcc"
	}
	return "h5cc"
}

// Available reports whether either wrapper flavor is in PATH.
func (p *WrapperProbe) Available() bool {
	return CheckToolAvailable("h5cc") == nil || CheckToolAvailable("h5pcc") == nil
}

// Detect runs the wrapper with -showconfig and parses the version line.
func (p *WrapperProbe) Detect(ctx context.Context, req DetectRequest) (Version, error) {
	tool := wrapperTool(req.MPI)
	if p.Runner == nil && CheckToolAvailable(tool) != nil {
		// Fall back to the other flavor rather than failing outright.
		tool = wrapperTool(!req.MPI)
		if CheckToolAvailable(tool) != nil {
			return Version{}, ErrProbeUnavailable
		}
	}

	out, err := runCommand(ctx, p.Runner, tool, "-showconfig")
	if err != nil {
		return Version{}, fmt.Errorf("%s -showconfig: %w", tool, err)
	}

	cfg, err := ParseShowConfig(out)
	if err != nil {
		return Version{}, fmt.Errorf("%s -showconfig: %w", tool, err)
	}
	return cfg.Version, nil
}

// ShowConfig is the subset of `h5cc -showconfig` output this package cares
// about.
type ShowConfig struct {
	Version    Version
	Parallel   bool
	ThreadSafe bool
}

var (
	showConfigVersionRe = regexp.MustCompile(`HDF5 Version\s*:?\s*([0-9]+\.[0-9]+\.[0-9]+)`)
	showConfigFlagRe    = regexp.MustCompile(`(Parallel HDF5|Threadsafety)\s*:?\s*([A-Za-z]+)`)
)

// ParseShowConfig extracts the version and capability flags from
// `h5cc -showconfig` output.
func ParseShowConfig(out string) (ShowConfig, error) {
	var cfg ShowConfig

	m := showConfigVersionRe.FindStringSubmatch(out)
	if m == nil {
		return ShowConfig{}, fmt.Errorf("no HDF5 version line in wrapper output")
	}
	v, err := ParseVersion(m[1])
	if err != nil {
		return ShowConfig{}, err
	}
	cfg.Version = v

	for _, flag := range showConfigFlagRe.FindAllStringSubmatch(out, -1) {
		enabled := strings.EqualFold(flag[2], "yes") || strings.EqualFold(flag[2], "true")
		switch flag[1] {
		case "Parallel HDF5":
			cfg.Parallel = enabled
		case "Threadsafety":
			cfg.ThreadSafe = enabled
		}
	}
	return cfg, nil
}
