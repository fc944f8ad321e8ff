package h5build

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/google/renameio/v2"
)

// DefaultCacheFile is where resolved settings are persisted between build
// invocations, relative to the working directory.
const DefaultCacheFile = "h5config.yaml"

// Cache is the persisted state of the configuration resolver: the last
// seen command-line and environment options, and whether a rebuild is
// still pending.
type Cache struct {
	Cmd     Options `yaml:"cmd,omitempty"`
	Env     Options `yaml:"env,omitempty"`
	Rebuild bool    `yaml:"rebuild"`
}

// settingsEqual compares the option tiers only, ignoring the rebuild flag.
func (c Cache) settingsEqual(other Cache) bool {
	return c.Cmd.Equal(other.Cmd) && c.Env.Equal(other.Env)
}

// hasValues reports whether the cache carries anything beyond defaults.
// Used for the reset corner case: resetting a cache that held real values
// must itself trigger a rebuild.
func (c Cache) hasValues() bool {
	return !c.Cmd.IsZero() || !c.Env.IsZero() || c.Rebuild
}

// Store persists the configuration cache as YAML.
//
// Loading is deliberately forgiving: a missing, unreadable, or malformed
// cache file yields an empty cache, never an error. A stale or corrupt
// cache only costs a re-detection, and failing the whole build over it
// would be worse. Writes go through renameio so a crash mid-save cannot
// leave a truncated file behind.
type Store struct {
	// Path of the cache file. Empty means DefaultCacheFile.
	Path string
}

func (s *Store) path() string {
	if s.Path == "" {
		return DefaultCacheFile
	}
	return s.Path
}

// Load reads the cached settings. Missing or invalid files load as an
// empty cache.
func (s *Store) Load() Cache {
	logger := logComponent("store")

	data, err := os.ReadFile(s.path())
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Debug().Err(err).Str("path", s.path()).
				Msg("cache unreadable, starting empty")
		}
		return Cache{}
	}

	var cache Cache
	if err := yaml.Unmarshal(data, &cache); err != nil {
		logger.Warn().Err(err).Str("path", s.path()).
			Msg("cache malformed, starting empty")
		return Cache{}
	}
	return cache
}

// Save writes the cache atomically and durably.
func (s *Store) Save(cache Cache) error {
	data, err := yaml.Marshal(cache)
	if err != nil {
		return fmt.Errorf("marshal settings cache: %w", err)
	}

	pending, err := renameio.NewPendingFile(s.path())
	if err != nil {
		return fmt.Errorf("create pending cache file: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			logger := logComponent("store")
			logger.Debug().Err(err).Msg("cleanup pending cache file")
		}
	}()

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("write settings cache: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace settings cache: %w", err)
	}
	return nil
}

// ResetRebuild clears the persisted rebuild flag, marking the current
// configuration as built.
func (s *Store) ResetRebuild() error {
	cache := s.Load()
	cache.Rebuild = false
	return s.Save(cache)
}

// Clear removes the cache file entirely.
func (s *Store) Clear() error {
	if err := os.Remove(s.path()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove settings cache: %w", err)
	}
	return nil
}
