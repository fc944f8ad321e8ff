package h5build

import (
	"context"
	"fmt"
	"strings"
)

// Resolver runs the configuration-resolution algorithm: overlay newly
// supplied options over cached ones in priority order, detect changes, and
// fill any remaining gaps by autodetection.
//
// The priority order, highest first:
//
//  1. Options passed to Resolve (current command line)
//  2. Cached command-line options from prior runs
//  3. Current environment variables
//  4. Cached environment variables from prior runs
//  5. Autodetection
//
// A Resolver is cheap to construct and holds no state of its own beyond
// its collaborators; the persistent state lives in Store's cache file.
type Resolver struct {
	// Store persists settings between runs. Nil means a Store on
	// DefaultCacheFile.
	Store *Store

	// Detector fills in unset values by probing the host. Nil means
	// NewDetector().
	Detector *Detector

	// Env supplies the current environment options. Nil means ReadEnv.
	// Replaceable for tests.
	Env func() (Options, error)
}

// NewResolver returns a Resolver persisting to the given cache file
// (empty for DefaultCacheFile), with host autodetection wired in.
func NewResolver(cachePath string) *Resolver {
	return &Resolver{
		Store:    &Store{Path: cachePath},
		Detector: NewDetector(),
		Env:      ReadEnv,
	}
}

func (r *Resolver) store() *Store {
	if r.Store == nil {
		r.Store = &Store{}
	}
	return r.Store
}

// Resolve merges opts with the environment and the cached settings,
// persists the updated cache, and returns the effective configuration.
// When reset is true the cache is discarded first, so only current
// command-line options and environment variables apply.
//
// The returned Resolution carries RebuildRequired whenever the effective
// settings changed since the last completed build. Call MarkBuilt after a
// successful compilation to clear it.
func (r *Resolver) Resolve(ctx context.Context, opts Options, reset bool) (*Resolution, error) {
	logger := logComponent("resolve")

	if opts.Version != "" {
		if err := ValidateVersion(opts.Version); err != nil {
			return nil, err
		}
	}

	envFn := r.Env
	if envFn == nil {
		envFn = ReadEnv
	}
	env, err := envFn()
	if err != nil {
		return nil, err
	}

	// Step 1: determine whether settings changed, and update the cache.
	// Only fields actually specified this round overwrite cached values.
	old := Cache{}
	if !reset {
		old = r.store().Load()
	}
	next := old
	next.Cmd.overlay(opts)
	next.Env.overlay(env)

	rebuild := old.Rebuild || !next.settingsEqual(old)

	// Corner case: a reset wipes the cache, which is itself a change when
	// the cache previously held non-default values. Checking the on-disk
	// cache (not `old`, which reset already emptied) also keeps repeated
	// resets from flagging rebuilds forever.
	if reset && r.store().Load().hasValues() {
		rebuild = true
	}

	next.Rebuild = rebuild
	if err := r.store().Save(next); err != nil {
		return nil, err
	}

	// Step 2: derive the effective settings by priority. Tiers 2 and 4
	// read the pre-update cache so that values specified this round do
	// not shadow themselves.
	merged := Options{
		Prefix:     firstNonEmpty(opts.Prefix, old.Cmd.Prefix, env.Prefix, old.Env.Prefix),
		LibDir:     firstNonEmpty(opts.LibDir, old.Cmd.LibDir, env.LibDir, old.Env.LibDir),
		IncludeDir: firstNonEmpty(opts.IncludeDir, old.Cmd.IncludeDir, env.IncludeDir, old.Env.IncludeDir),
		LibName:    firstNonEmpty(opts.LibName, old.Cmd.LibName, env.LibName, old.Env.LibName),
		Version:    firstNonEmpty(opts.Version, old.Cmd.Version, env.Version, old.Env.Version),
		MPI:        firstNonNil(opts.MPI, old.Cmd.MPI, env.MPI, old.Env.MPI),
	}

	res := &Resolution{
		Settings: Settings{
			Prefix:     merged.Prefix,
			LibDir:     merged.LibDir,
			IncludeDir: merged.IncludeDir,
			LibNames:   splitLibNames(merged.LibName),
			Version:    merged.Version,
			MPI:        merged.MPI != nil && *merged.MPI,
		},
		RebuildRequired: rebuild,
	}

	// Step 3: autodetect anything still unset. Failure is not fatal; the
	// caller sees unknown values and decides what to do.
	if res.Settings.Version == "" {
		det := r.Detector
		if det == nil {
			det = NewDetector()
		}
		req := DetectRequest{
			Prefix:   res.Settings.Prefix,
			LibDir:   res.Settings.LibDir,
			LibNames: res.Settings.LibNames,
			MPI:      res.Settings.MPI,
		}
		if res.Settings.IncludeDir != "" {
			req.IncludeDirs = []string{res.Settings.IncludeDir}
		}
		found, err := det.Detect(ctx, req)
		if err != nil {
			logger.Warn().Err(err).Msg("autodetection skipped")
		} else {
			if res.Settings.LibDir == "" {
				res.Settings.LibDir = found.LibDir
			}
			if res.Settings.IncludeDir == "" {
				res.Settings.IncludeDir = found.IncludeDir
			}
			if len(res.Settings.LibNames) == 0 {
				res.Settings.LibNames = found.LibNames
			}
			res.Settings.Version = found.Version.String()
			res.Detected = true
			res.DetectedBy = found.Probe
			res.Capabilities = found.Capabilities
			logger.Info().Str("version", res.Settings.Version).
				Str("probe", found.Probe).Msg("autodetected HDF5")
		}
	}

	return res, nil
}

// MarkBuilt clears the persisted rebuild flag after a successful build.
func (r *Resolver) MarkBuilt() error {
	return r.store().ResetRebuild()
}

// Summary renders the configuration banner printed after a configure run.
func (res *Resolution) Summary() string {
	var b strings.Builder
	rule := strings.Repeat("*", 80)

	display := func(s string) string {
		if s == "" {
			return "???"
		}
		return s
	}

	b.WriteString(rule + "\n")
	b.WriteString(strings.Repeat(" ", 23) + "Summary of the HDF5 configuration\n\n")
	fmt.Fprintf(&b, "Path to HDF5 library: %s\n", display(res.Settings.LibDir))
	fmt.Fprintf(&b, "Path to HDF5 headers: %s\n", display(res.Settings.IncludeDir))
	if len(res.Settings.LibNames) > 0 {
		fmt.Fprintf(&b, "  HDF5 library names: %s\n", strings.Join(res.Settings.LibNames, ", "))
	}
	fmt.Fprintf(&b, "        HDF5 version: %s\n", display(res.Settings.Version))
	fmt.Fprintf(&b, "         MPI enabled: %t\n", res.Settings.MPI)
	if res.Capabilities != nil {
		fmt.Fprintf(&b, "      Parallel build: %t\n", res.Capabilities.Parallel)
		fmt.Fprintf(&b, "         Thread-safe: %t\n", res.Capabilities.ThreadSafe)
	}
	fmt.Fprintf(&b, "    Rebuild required: %t\n", res.RebuildRequired)
	b.WriteString("\n" + rule + "\n")
	return b.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonNil(values ...*bool) *bool {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

// splitLibNames splits a comma-separated library name list, trimming
// whitespace and dropping empties.
func splitLibNames(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
