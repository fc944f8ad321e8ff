package h5build

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// runtimeProbeSource asks the loaded library itself for its version, the
// most trustworthy answer available: it reflects the binary that will be
// linked, not whatever metadata happens to be installed.
const runtimeProbeSource = `#include <stdio.h>
#include "hdf5.h"

int main(void) {
    unsigned major, minor, release;
    if (H5get_libversion(&major, &minor, &release) < 0)
        return 1;
    printf("%u.%u.%u\n", major, minor, release);
    return 0;
}
`

// RuntimeProbe compiles and runs a tiny C program that calls
// H5get_libversion. It is the most expensive probe and runs last, but it is
// the only one that interrogates the actual library binary.
type RuntimeProbe struct {
	// Compiler overrides the C compiler. Empty means $CC, then the first
	// of gcc, clang, cc found in PATH.
	Compiler string

	// Runner overrides command execution, for tests.
	Runner CommandRunner
}

// Name returns the probe name.
func (p *RuntimeProbe) Name() string {
	return "runtime"
}

// compiler resolves the C compiler to use.
func (p *RuntimeProbe) compiler() string {
	if p.Compiler != "" {
		return p.Compiler
	}
	if cc := os.Getenv("CC"); cc != "" {
		return cc
	}
	for _, cc := range []string{"gcc", "clang", "cc"} {
		if CheckToolAvailable(cc) == nil {
			return cc
		}
	}
	return ""
}

// Available reports whether a C compiler can be found.
func (p *RuntimeProbe) Available() bool {
	return p.compiler() != ""
}

// Detect writes the probe program to a temp directory, compiles it against
// the candidate directories, runs it, and parses the printed triple.
func (p *RuntimeProbe) Detect(ctx context.Context, req DetectRequest) (Version, error) {
	cc := p.compiler()
	if cc == "" {
		return Version{}, ErrProbeUnavailable
	}

	dir, err := os.MkdirTemp("", "h5build-probe-*")
	if err != nil {
		return Version{}, fmt.Errorf("create probe dir: %w", err)
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, "version_probe.c")
	if err := os.WriteFile(src, []byte(runtimeProbeSource), 0o644); err != nil {
		return Version{}, fmt.Errorf("write probe source: %w", err)
	}
	bin := filepath.Join(dir, "version_probe")

	args := []string{"-o", bin, src}
	for _, inc := range req.IncludeDirs {
		if inc != "" {
			args = append(args, "-I"+inc)
		}
	}
	libDir := req.LibDir
	if libDir == "" && req.LibraryPath != "" {
		libDir = filepath.Dir(req.LibraryPath)
	}
	if libDir != "" {
		args = append(args, "-L"+libDir, "-Wl,-rpath,"+libDir)
	}
	libNames := req.LibNames
	if len(libNames) == 0 {
		libNames = []string{"hdf5"}
	}
	for _, name := range libNames {
		args = append(args, "-l"+name)
	}

	if out, err := runCommand(ctx, p.Runner, cc, args...); err != nil {
		return Version{}, BuildError("runtime probe", strings.Split(out, "\n"), err)
	}

	out, err := runCommand(ctx, p.Runner, bin)
	if err != nil {
		return Version{}, fmt.Errorf("run version probe: %w", err)
	}
	return ParseVersion(strings.TrimSpace(out))
}

// runCommand executes a command through the given runner, defaulting to
// exec.CommandContext with combined output.
func runCommand(ctx context.Context, runner CommandRunner, name string, args ...string) (string, error) {
	if runner != nil {
		return runner(ctx, name, args...)
	}
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	return string(out), err
}

// CommandRunner abstracts external command execution so probes can be
// exercised without the real tools installed.
type CommandRunner func(ctx context.Context, name string, args ...string) (string, error)
