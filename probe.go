package h5build

import (
	"context"
	"errors"
	"fmt"
)

// Probe defines the interface version-detection strategies must implement.
//
// Each probe knows one way of asking the host which HDF5 it has: package
// metadata, the compiler wrapper, the public header, or the library itself.
// Probes are consulted in registration order by a ProbeChain; the first one
// that is available and answers wins.
//
// # Probe Lifecycle
//
//  1. Available() - the chain calls this to skip probes whose tooling or
//     inputs are missing on this host
//  2. Detect() - the chain calls this to obtain the version
//
// # Thread Safety
//
// Probe implementations should be stateless and thread-safe. The same probe
// instance may serve concurrent detections.
type Probe interface {
	// Name returns the human-readable name of this probe, used in logs
	// and in Resolution.DetectedBy.
	Name() string

	// Available reports whether this probe can run on the current host,
	// e.g. whether its external tool exists in PATH. Cheap; no shell-outs
	// beyond exec.LookPath.
	Available() bool

	// Detect returns the installed HDF5 version. An error means this
	// probe could not determine it; the chain then tries the next probe.
	Detect(ctx context.Context, req DetectRequest) (Version, error)
}

// DetectRequest carries everything a probe may need to locate the library.
// Fields mirror the resolved-but-incomplete settings; any of them may be
// empty.
type DetectRequest struct {
	Prefix      string   // install prefix, parent of lib and include
	LibDir      string   // explicit library directory
	IncludeDirs []string // candidate header directories, best first
	LibraryPath string   // full path of the located library file, if any
	LibNames    []string // library base names, best first
	MPI         bool     // probe the parallel build
}

// ErrProbeUnavailable is returned by Detect when a probe discovers at run
// time that it cannot operate (e.g. its tool vanished between Available and
// Detect).
var ErrProbeUnavailable = errors.New("probe unavailable")

// ProbeChain holds an ordered registry of version probes.
//
// # Probe Selection
//
// Detect walks the registered probes in order, skipping unavailable ones,
// and returns the first successful answer together with the probe's name.
// Failures are logged at debug level and otherwise ignored; only when every
// probe fails does Detect return an error aggregating the last failure.
//
// # Thread Safety
//
// ProbeChain is NOT thread-safe for registration. Register all probes
// before concurrent use; afterwards Detect is safe to call concurrently.
type ProbeChain struct {
	probes []Probe
}

// NewProbeChain creates a chain with the standard probes registered, in
// cheapest-first order:
//
//  1. PkgConfigProbe - pkg-config --modversion
//  2. WrapperProbe - h5cc -showconfig (h5pcc for MPI)
//  3. HeaderProbe - H5_VERS_* defines in H5public.h
//  4. RuntimeProbe - compile and run a program calling H5get_libversion
func NewProbeChain() *ProbeChain {
	chain := &ProbeChain{}
	chain.Register(&PkgConfigProbe{})
	chain.Register(&WrapperProbe{})
	chain.Register(&HeaderProbe{})
	chain.Register(&RuntimeProbe{})
	return chain
}

// Register appends a probe to the chain. Probes run in registration order.
func (c *ProbeChain) Register(p Probe) {
	c.probes = append(c.probes, p)
}

// ListProbes returns a copy of the registered probes.
func (c *ProbeChain) ListProbes() []Probe {
	return append([]Probe{}, c.probes...)
}

// Detect asks each available probe in turn for the installed version and
// returns the first answer along with the answering probe's name.
func (c *ProbeChain) Detect(ctx context.Context, req DetectRequest) (Version, string, error) {
	logger := logComponent("probe")

	var lastErr error
	for _, p := range c.probes {
		if err := ctx.Err(); err != nil {
			return Version{}, "", err
		}
		if !p.Available() {
			logger.Debug().Str("probe", p.Name()).Msg("probe unavailable, skipping")
			continue
		}
		v, err := p.Detect(ctx, req)
		if err != nil {
			logger.Debug().Str("probe", p.Name()).Err(err).Msg("probe failed")
			lastErr = err
			continue
		}
		logger.Debug().Str("probe", p.Name()).Str("version", v.String()).
			Msg("probe succeeded")
		return v, p.Name(), nil
	}

	if lastErr != nil {
		return Version{}, "", fmt.Errorf("no probe detected an HDF5 version: %w", lastErr)
	}
	return Version{}, "", errors.New("no probe detected an HDF5 version")
}
