package h5build

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProbe answers with a fixed version (or error) so resolution tests do
// not depend on the host having HDF5 installed.
type stubProbe struct {
	version Version
	err     error
}

func (p *stubProbe) Name() string    { return "stub" }
func (p *stubProbe) Available() bool { return true }
func (p *stubProbe) Detect(ctx context.Context, req DetectRequest) (Version, error) {
	return p.version, p.err
}

// newTestResolver wires a resolver with a temp cache, a fixed environment,
// and a stubbed probe chain.
func newTestResolver(t *testing.T, env Options, probe Probe) *Resolver {
	t.Helper()
	chain := &ProbeChain{}
	chain.Register(probe)
	return &Resolver{
		Store:    &Store{Path: filepath.Join(t.TempDir(), "h5config.yaml")},
		Detector: &Detector{Chain: chain, GOOS: "darwin"},
		Env:      func() (Options, error) { return env, nil },
	}
}

func TestResolvePriorityOrder(t *testing.T) {
	ctx := context.Background()
	envTrue := true
	cmdFalse := false

	r := newTestResolver(t, Options{}, &stubProbe{version: Version{1, 10, 4}})

	// Seed the cache: a prior run supplied command-line and environment
	// values.
	require.NoError(t, r.Store.Save(Cache{
		Cmd: Options{Prefix: "/old-cli", LibDir: "/old-cli/lib"},
		Env: Options{Prefix: "/old-env", LibDir: "/old-env/lib", IncludeDir: "/old-env/include", LibName: "hdf5_old", MPI: &envTrue},
	}))

	// This run: a fresh CLI prefix, a fresh environment include dir, and
	// an explicit MPI=false on the command line.
	r.Env = func() (Options, error) {
		return Options{Prefix: "/env", IncludeDir: "/env/include"}, nil
	}
	res, err := r.Resolve(ctx, Options{Prefix: "/cli", Version: "1.8.21", MPI: &cmdFalse}, false)
	require.NoError(t, err)

	// Tier 1 beats everything.
	assert.Equal(t, "/cli", res.Settings.Prefix)
	// Tier 2 (cached CLI) beats current environment.
	assert.Equal(t, "/old-cli/lib", res.Settings.LibDir)
	// Tier 3 (current environment) beats cached environment.
	assert.Equal(t, "/env/include", res.Settings.IncludeDir)
	// Tier 4 fills what nothing else specified.
	assert.Equal(t, []string{"hdf5_old"}, res.Settings.LibNames)
	// Explicit false on the command line overrides the cached env true.
	assert.False(t, res.Settings.MPI)
	// Explicit version skips autodetection.
	assert.Equal(t, "1.8.21", res.Settings.Version)
	assert.False(t, res.Detected)
}

func TestResolveRebuildLifecycle(t *testing.T) {
	ctx := context.Background()
	r := newTestResolver(t, Options{}, &stubProbe{version: Version{1, 10, 4}})
	opts := Options{Prefix: "/opt/hdf5", Version: "1.10.4"}

	// First run with options: settings changed from nothing.
	res, err := r.Resolve(ctx, opts, false)
	require.NoError(t, err)
	assert.True(t, res.RebuildRequired)

	// The flag persists across runs until a build completes.
	res, err = r.Resolve(ctx, Options{}, false)
	require.NoError(t, err)
	assert.True(t, res.RebuildRequired, "pending rebuild must survive unchanged runs")
	assert.Equal(t, "/opt/hdf5", res.Settings.Prefix, "cached options still apply")

	require.NoError(t, r.MarkBuilt())

	// Same settings after a build: nothing to do.
	res, err = r.Resolve(ctx, opts, false)
	require.NoError(t, err)
	assert.False(t, res.RebuildRequired)

	// Changing one option flags a rebuild again.
	res, err = r.Resolve(ctx, Options{Version: "1.12.0"}, false)
	require.NoError(t, err)
	assert.True(t, res.RebuildRequired)
	assert.Equal(t, "1.12.0", res.Settings.Version)
}

func TestResolveResetCornerCase(t *testing.T) {
	ctx := context.Background()
	r := newTestResolver(t, Options{}, &stubProbe{version: Version{1, 10, 4}})

	// Seed a built cache with real values.
	require.NoError(t, r.Store.Save(Cache{Cmd: Options{Prefix: "/opt/hdf5", Version: "1.10.4"}}))

	// Reset discards them, which is itself a change.
	res, err := r.Resolve(ctx, Options{}, true)
	require.NoError(t, err)
	assert.True(t, res.RebuildRequired)
	assert.Empty(t, res.Settings.Prefix, "reset must drop cached options")

	require.NoError(t, r.MarkBuilt())

	// Resetting an already-reset cache changes nothing.
	res, err = r.Resolve(ctx, Options{}, true)
	require.NoError(t, err)
	assert.False(t, res.RebuildRequired, "repeated resets must not flag rebuilds forever")
}

func TestResolveAutodetection(t *testing.T) {
	ctx := context.Background()

	t.Run("probe answers", func(t *testing.T) {
		r := newTestResolver(t, Options{}, &stubProbe{version: Version{1, 14, 3}})
		res, err := r.Resolve(ctx, Options{}, false)
		require.NoError(t, err)
		assert.Equal(t, "1.14.3", res.Settings.Version)
		assert.True(t, res.Detected)
		assert.Equal(t, "stub", res.DetectedBy)
		assert.Equal(t, []string{"hdf5", "hdf5_hl"}, res.Settings.LibNames)
	})

	t.Run("probe fails", func(t *testing.T) {
		r := newTestResolver(t, Options{}, &stubProbe{err: errors.New("no hdf5 here")})
		res, err := r.Resolve(ctx, Options{}, false)
		require.NoError(t, err, "autodetection failure is not fatal")
		assert.Empty(t, res.Settings.Version)
		assert.False(t, res.Detected)
	})
}

func TestResolveCachePersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	cachePath := filepath.Join(t.TempDir(), "h5config.yaml")
	probe := &stubProbe{version: Version{1, 10, 4}}

	first := newTestResolver(t, Options{}, probe)
	first.Store = &Store{Path: cachePath}
	_, err := first.Resolve(ctx, Options{Prefix: "/opt/hdf5", Version: "1.10.4", LibName: "hdf5,hdf5_hl"}, false)
	require.NoError(t, err)

	second := newTestResolver(t, Options{}, probe)
	second.Store = &Store{Path: cachePath}
	res, err := second.Resolve(ctx, Options{}, false)
	require.NoError(t, err)
	assert.Equal(t, "/opt/hdf5", res.Settings.Prefix)
	assert.Equal(t, "1.10.4", res.Settings.Version)
	assert.Equal(t, []string{"hdf5", "hdf5_hl"}, res.Settings.LibNames)
}

func TestResolveInvalidVersion(t *testing.T) {
	r := newTestResolver(t, Options{}, &stubProbe{version: Version{1, 10, 4}})
	_, err := r.Resolve(context.Background(), Options{Version: "not-a-version"}, false)
	assert.Error(t, err)
}

func TestResolutionSummary(t *testing.T) {
	res := &Resolution{
		Settings: Settings{
			LibDir:     "/usr/lib/x86_64-linux-gnu",
			IncludeDir: "/usr/include/hdf5/serial",
			LibNames:   []string{"hdf5_serial", "hdf5_serial_hl"},
			Version:    "1.10.4",
		},
		RebuildRequired: true,
	}
	summary := res.Summary()
	assert.Contains(t, summary, "1.10.4")
	assert.Contains(t, summary, "/usr/include/hdf5/serial")
	assert.Contains(t, summary, "hdf5_serial, hdf5_serial_hl")
	assert.Contains(t, summary, "Rebuild required: true")

	unknown := &Resolution{}
	assert.Contains(t, unknown.Summary(), "???", "unknown values render as ???")
}
