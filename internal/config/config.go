// Package config loads viewmerge.toml, the tool configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up in the working directory.
const FileName = "viewmerge.toml"

// Defaults.
const (
	DefaultDatabase  = "viewmerge.db"
	DefaultWorkspace = "."
	DefaultPageSize  = 100
	DefaultJobs      = 4
	DefaultCacheSize = 10_000
)

// Config is the decoded configuration. Relative paths are resolved against
// the directory of the file they came from.
type Config struct {
	Database  string `toml:"database"`
	Workspace string `toml:"workspace"`
	PageSize  int    `toml:"page_size"`
	Jobs      int    `toml:"jobs"`
	CacheSize uint64 `toml:"cache_size"`

	// Path is the file the configuration was read from, "" for defaults.
	Path string `toml:"-"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Database:  DefaultDatabase,
		Workspace: DefaultWorkspace,
		PageSize:  DefaultPageSize,
		Jobs:      DefaultJobs,
		CacheSize: DefaultCacheSize,
	}
}

// Load reads the configuration at path. An empty path means FileName in the
// working directory, and a missing FileName there yields Default. A missing
// file named explicitly is an error.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = FileName
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}

	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	cfg.Path = path

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}

	dir := filepath.Dir(path)
	cfg.Database = resolve(dir, cfg.Database)
	cfg.Workspace = resolve(dir, cfg.Workspace)
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Database) == "":
		return errors.New("database must not be empty")
	case c.PageSize <= 0:
		return fmt.Errorf("page_size must be positive, got %d", c.PageSize)
	case c.Jobs <= 0:
		return fmt.Errorf("jobs must be positive, got %d", c.Jobs)
	case c.CacheSize == 0:
		return errors.New("cache_size must be positive")
	}
	return nil
}

// resolve makes p relative to dir unless it is absolute or an in-memory
// database name.
func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) || strings.HasPrefix(p, ":memory:") || strings.HasPrefix(p, "file:") {
		return p
	}
	return filepath.Join(dir, p)
}
