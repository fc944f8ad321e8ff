package h5build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/renameio/v2"
)

// ConfigHeaderName is the generated header carrying the resolved HDF5
// version and MPI switch into the C sources, the build-time analogue of
// the settings cache.
const ConfigHeaderName = "h5conf.h"

// BuildConfig controls one extension build.
type BuildConfig struct {
	// SourceDir contains the extension's C sources.
	SourceDir string

	// Sources lists the files to compile, relative to SourceDir. Empty
	// means every *.c file in SourceDir.
	Sources []string

	// Output is the artifact filename, relative to SourceDir. Empty means
	// the SourceDir base name plus the platform's shared-library suffix.
	Output string

	// CacheFile is the settings cache path. Empty means DefaultCacheFile.
	CacheFile string

	// Options are this run's explicit configuration options (priority
	// tier 1).
	Options Options

	// Reset discards cached settings before resolving.
	Reset bool

	// Compiler overrides the C compiler. Empty picks $CC, then mpicc for
	// MPI builds, then gcc/clang/cc.
	Compiler string

	// Env sets extra environment variables for compiler invocations.
	Env map[string]string

	// Verbose records the exact commands run into the result output.
	Verbose bool
}

// BuildResult contains the output and status of a build operation.
type BuildResult struct {
	Success    bool        // true when the build completed without errors
	Output     []string    // captured compiler/tool output lines
	Artifacts  []string    // built shared libraries, relative to SourceDir
	Resolution *Resolution // the configuration the build ran with
	Error      error       // error when the build failed, nil otherwise
}

// buildSteps is the three-step pipeline every build follows:
//
//  1. Configure: resolve settings and generate the config header
//  2. Compile: produce the shared library
//  3. Find: locate the built artifacts
type buildSteps struct {
	ConfigureFunc func(ctx context.Context, cfg *BuildConfig, result *BuildResult) error
	CompileFunc   func(ctx context.Context, cfg *BuildConfig, result *BuildResult) error
	FindFunc      func(sourceDir string) ([]string, error)
}

// runBuildPipeline executes the steps in order, stopping at the first
// failure. The result always carries whatever output was captured up to
// that point.
func runBuildPipeline(ctx context.Context, cfg *BuildConfig, steps buildSteps) (*BuildResult, error) {
	result := &BuildResult{Output: []string{}}

	if err := steps.ConfigureFunc(ctx, cfg, result); err != nil {
		result.Error = err
		return result, err
	}
	if err := steps.CompileFunc(ctx, cfg, result); err != nil {
		result.Error = err
		return result, err
	}
	artifacts, err := steps.FindFunc(cfg.SourceDir)
	if err != nil {
		result.Error = err
		return result, err
	}

	result.Artifacts = artifacts
	result.Success = true
	return result, nil
}

// ExtensionBuilder compiles a native extension against the configured HDF5
// installation: resolve settings, emit the config header, shell out to the
// C compiler, and clear the rebuild flag once everything links.
type ExtensionBuilder struct {
	// Resolver supplies the configuration. Nil means a default resolver
	// on the BuildConfig's cache file.
	Resolver *Resolver
}

// Name returns the builder name.
func (b *ExtensionBuilder) Name() string {
	return "Extension"
}

// RequiredTools returns the tools needed to compile an extension.
func (b *ExtensionBuilder) RequiredTools() []ToolRequirement {
	return []ToolRequirement{
		{
			Name:         "gcc",
			Alternatives: []string{"clang", "cc", "cl"},
			Purpose:      "C compiler for the extension",
		},
		{
			Name:     "pkg-config",
			Optional: true,
			Purpose:  "HDF5 package metadata",
		},
		{
			Name:     "h5cc",
			Optional: true,
			Purpose:  "HDF5 compiler wrapper",
		},
	}
}

// CheckTools verifies that a C compiler is available.
func (b *ExtensionBuilder) CheckTools() error {
	return CheckRequiredTools(b.RequiredTools())
}

func (b *ExtensionBuilder) resolver(cfg *BuildConfig) *Resolver {
	if b.Resolver == nil {
		b.Resolver = NewResolver(cfg.CacheFile)
	}
	return b.Resolver
}

// Build runs the configure/compile/find pipeline and, on success, marks
// the configuration as built.
func (b *ExtensionBuilder) Build(ctx context.Context, cfg *BuildConfig) (*BuildResult, error) {
	if cfg.SourceDir == "" {
		return nil, errors.New("build config needs a source directory")
	}
	if err := b.CheckTools(); err != nil {
		return nil, err
	}

	result, err := runBuildPipeline(ctx, cfg, buildSteps{
		ConfigureFunc: b.configure,
		CompileFunc:   b.compile,
		FindFunc:      findArtifacts,
	})
	if err != nil {
		return result, err
	}

	if err := b.resolver(cfg).MarkBuilt(); err != nil {
		return result, fmt.Errorf("mark configuration built: %w", err)
	}
	return result, nil
}

// Clean removes the built artifacts and the generated config header.
func (b *ExtensionBuilder) Clean(ctx context.Context, cfg *BuildConfig) error {
	artifacts, err := findArtifacts(cfg.SourceDir)
	if err != nil {
		return err
	}
	for _, rel := range artifacts {
		if err := os.Remove(filepath.Join(cfg.SourceDir, rel)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	header := filepath.Join(cfg.SourceDir, ConfigHeaderName)
	if err := os.Remove(header); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// configure resolves the configuration and regenerates the config header
// when it is missing or the settings changed since the last build.
func (b *ExtensionBuilder) configure(ctx context.Context, cfg *BuildConfig, result *BuildResult) error {
	res, err := b.resolver(cfg).Resolve(ctx, cfg.Options, cfg.Reset)
	if err != nil {
		return err
	}
	result.Resolution = res

	if res.Settings.Version == "" {
		return errors.New("HDF5 version unknown: supply -version or install the library where it can be detected")
	}

	headerPath := filepath.Join(cfg.SourceDir, ConfigHeaderName)
	_, statErr := os.Stat(headerPath)
	if os.IsNotExist(statErr) || res.RebuildRequired {
		if err := WriteConfigHeader(headerPath, res); err != nil {
			return err
		}
		result.Output = append(result.Output, fmt.Sprintf("generated %s", ConfigHeaderName))
	}
	return nil
}

// compile shells out to the C compiler with the assembled flags.
func (b *ExtensionBuilder) compile(ctx context.Context, cfg *BuildConfig, result *BuildResult) error {
	sources := cfg.Sources
	if len(sources) == 0 {
		matches, err := filepath.Glob(filepath.Join(cfg.SourceDir, "*.c"))
		if err != nil {
			return err
		}
		for _, m := range matches {
			sources = append(sources, filepath.Base(m))
		}
	}
	if len(sources) == 0 {
		return fmt.Errorf("no C sources in %s", cfg.SourceDir)
	}

	res := result.Resolution
	settings := CompilerSettingsFor(res, runtime.GOOS)
	compiler := b.chooseCompiler(cfg, res)

	output := cfg.Output
	if output == "" {
		output = defaultOutputName(cfg.SourceDir)
	}

	args := []string{"-shared", "-fPIC", "-o", output}
	args = append(args, sources...)
	args = append(args, settings.CFlags()...)
	args = append(args, settings.LDFlags()...)

	cmd := exec.CommandContext(ctx, compiler, args...)
	cmd.Dir = cfg.SourceDir
	cmd.Env = os.Environ()
	for key, value := range cfg.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", key, value))
	}

	if cfg.Verbose {
		result.Output = append(result.Output,
			fmt.Sprintf("Running: %s %s", compiler, strings.Join(args, " ")),
			fmt.Sprintf("Working directory: %s", cfg.SourceDir))
	}

	out, err := cmd.CombinedOutput()
	result.Output = append(result.Output, strings.Split(string(out), "\n")...)
	if err != nil {
		return BuildError("compile", result.Output, err)
	}
	return nil
}

// chooseCompiler picks the compiler binary: explicit override, $CC, the
// MPI wrapper for parallel builds, then the usual suspects.
func (b *ExtensionBuilder) chooseCompiler(cfg *BuildConfig, res *Resolution) string {
	if cfg.Compiler != "" {
		return cfg.Compiler
	}
	if cc := os.Getenv("CC"); cc != "" {
		return cc
	}
	if res != nil && res.Settings.MPI {
		for _, cc := range []string{"h5pcc", "mpicc"} {
			if CheckToolAvailable(cc) == nil {
				return cc
			}
		}
	}
	for _, cc := range []string{"gcc", "clang", "cc"} {
		if CheckToolAvailable(cc) == nil {
			return cc
		}
	}
	return "cc"
}

// findArtifacts locates the compiled shared libraries in the source
// directory.
func findArtifacts(sourceDir string) ([]string, error) {
	var artifacts []string

	patterns := []string{
		"*.so",     // Linux/Unix shared libraries
		"*.bundle", // macOS bundles
		"*.dll",    // Windows dynamic libraries
	}

	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(sourceDir, pattern))
		if err != nil {
			return nil, fmt.Errorf("glob pattern %s in %s: %w", pattern, sourceDir, err)
		}
		for _, match := range matches {
			if rel, err := filepath.Rel(sourceDir, match); err == nil {
				artifacts = append(artifacts, rel)
			}
		}
	}
	return artifacts, nil
}

// defaultOutputName derives the artifact name from the source directory.
func defaultOutputName(sourceDir string) string {
	base := filepath.Base(sourceDir)
	if base == "." || base == string(filepath.Separator) || base == "" {
		base = "extension"
	}
	if runtime.GOOS == "windows" {
		return base + ".dll"
	}
	return base + ".so"
}

// WriteConfigHeader atomically writes the generated config header for a
// resolution. The resolution must carry a known version.
func WriteConfigHeader(path string, res *Resolution) error {
	version, err := ParseVersion(res.Settings.Version)
	if err != nil {
		return fmt.Errorf("config header needs a resolved version: %w", err)
	}

	mpi := 0
	if res.Settings.MPI {
		mpi = 1
	}

	var b strings.Builder
	b.WriteString("/* Generated by h5build. Do not edit. */\n")
	b.WriteString("#ifndef H5BUILD_CONF_H\n#define H5BUILD_CONF_H\n\n")
	fmt.Fprintf(&b, "#define H5BUILD_MPI %d\n", mpi)
	fmt.Fprintf(&b, "#define H5BUILD_VERSION_MAJOR %d\n", version.Major)
	fmt.Fprintf(&b, "#define H5BUILD_VERSION_MINOR %d\n", version.Minor)
	fmt.Fprintf(&b, "#define H5BUILD_VERSION_RELEASE %d\n", version.Release)
	fmt.Fprintf(&b, "#define H5BUILD_VERSION \"%s\"\n", version)
	b.WriteString("\n#endif /* H5BUILD_CONF_H */\n")

	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending config header: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			logger := logComponent("build")
			logger.Debug().Err(err).Msg("cleanup pending config header")
		}
	}()
	if _, err := pending.WriteString(b.String()); err != nil {
		return fmt.Errorf("write config header: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace config header: %w", err)
	}
	return nil
}
