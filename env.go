package h5build

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Environment variables recognised during configuration. They occupy
// priority tier 3, below current command-line options and cached ones.
const (
	EnvPrefix     = "HDF5_DIR"
	EnvLibDir     = "HDF5_LIB"
	EnvIncludeDir = "HDF5_INCLUDE"
	EnvLibName    = "HDF5_LIBNAME"
	EnvVersion    = "HDF5_VERSION"
	EnvMPI        = "HDF5_MPI"
)

// ReadEnv collects the recognised environment variables into an Options
// value. An invalid HDF5_VERSION or HDF5_MPI value is an error; everything
// else is taken verbatim.
func ReadEnv() (Options, error) {
	logger := logComponent("env")

	opts := Options{
		Prefix:     envString(logger, EnvPrefix),
		LibDir:     envString(logger, EnvLibDir),
		IncludeDir: envString(logger, EnvIncludeDir),
		LibName:    envString(logger, EnvLibName),
		Version:    envString(logger, EnvVersion),
	}

	if opts.Version != "" {
		if err := ValidateVersion(opts.Version); err != nil {
			return Options{}, fmt.Errorf("%s: %w", EnvVersion, err)
		}
	}

	if raw, ok := os.LookupEnv(EnvMPI); ok && strings.TrimSpace(raw) != "" {
		v, err := parseBool(raw)
		if err != nil {
			return Options{}, fmt.Errorf("%s: %w", EnvMPI, err)
		}
		opts.MPI = &v
		logger.Debug().Str("key", EnvMPI).Bool("value", v).
			Str("source", "environment").Msg("using environment variable")
	}

	return opts, nil
}

// envString reads a string environment variable, logging where the value
// came from. Empty and unset are both treated as unspecified.
func envString(logger zerolog.Logger, key string) string {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return ""
	}
	logger.Debug().Str("key", key).Str("value", value).
		Str("source", "environment").Msg("using environment variable")
	return value
}

// parseBool accepts "true", "false", "1", "0", "yes", "no", "on", "off"
// (case-insensitive).
func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean value %q", raw)
}
