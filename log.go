package h5build

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LogConfig captures options for configuring the package logger.
type LogConfig struct {
	Level  string    // optional log level ("debug", "info", etc.)
	Output io.Writer // optional writer (defaults to os.Stderr)
}

var (
	logOnce sync.Once
	baseLog zerolog.Logger
)

// ConfigureLogging initialises the package-wide zerolog logger exactly once.
// When never called, the first log call configures defaults: warn level
// (build tools should be quiet unless something is off), overridable via
// the H5BUILD_LOG_LEVEL environment variable.
func ConfigureLogging(cfg LogConfig) {
	logOnce.Do(func() {
		level := zerolog.WarnLevel
		if cfg.Level != "" {
			if parsed, err := zerolog.ParseLevel(cfg.Level); err == nil {
				level = parsed
			}
		} else if env := os.Getenv("H5BUILD_LOG_LEVEL"); env != "" {
			if parsed, err := zerolog.ParseLevel(env); err == nil {
				level = parsed
			}
		}
		zerolog.TimeFieldFormat = time.RFC3339

		writer := cfg.Output
		if writer == nil {
			writer = os.Stderr
		}

		baseLog = zerolog.New(writer).Level(level).With().
			Timestamp().
			Logger()
	})
}

// logComponent returns a logger tagged with a component name, configuring
// defaults on first use.
func logComponent(name string) zerolog.Logger {
	ConfigureLogging(LogConfig{})
	return baseLog.With().Str("component", name).Logger()
}
