// Package config defines the typed YAML configuration for docsite and its
// loading rules. Absent keys fall back to defaults; explicit values always
// win.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration document.
type Config struct {
	Source      SourceConfig      `yaml:"source"`
	Output      OutputConfig      `yaml:"output"`
	Incremental IncrementalConfig `yaml:"incremental"`
	Cache       CacheConfig       `yaml:"cache"`
	History     HistoryConfig     `yaml:"history"`
}

// SourceConfig describes where source files live and what to skip.
type SourceConfig struct {
	Root string `yaml:"root"`
	// Ignore holds doublestar glob patterns matched against paths relative
	// to Root.
	Ignore []string `yaml:"ignore,omitempty"`
}

// OutputConfig describes where generated artifacts go.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// IncrementalConfig tunes change detection and state persistence.
type IncrementalConfig struct {
	Enabled      bool   `yaml:"enabled"`
	ForceRebuild bool   `yaml:"force_rebuild,omitempty"`
	StateFile    string `yaml:"state_file,omitempty"`
	GraphFile    string `yaml:"graph_file,omitempty"`
}

// CacheConfig tunes the artifact cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Storage string `yaml:"storage,omitempty"` // memory|filesystem
	MaxSize int    `yaml:"max_size,omitempty"`
	TTLMs   int64  `yaml:"ttl_ms,omitempty"`
	Dir     string `yaml:"dir,omitempty"`
}

// HistoryConfig enables the SQLite build journal.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

// Default returns the configuration used when no file (or key) is present.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Root: "./docs",
		},
		Output: OutputConfig{
			Dir: "./site",
		},
		Incremental: IncrementalConfig{
			Enabled:   true,
			StateFile: ".docsite/state.json",
			GraphFile: ".docsite/graph.json",
		},
		Cache: CacheConfig{
			Enabled: true,
			Storage: "memory",
			MaxSize: 1000,
			Dir:     ".docsite/cache",
		},
		History: HistoryConfig{
			Enabled: false,
			Path:    ".docsite/history.db",
		},
	}
}

// Load reads the YAML file at path on top of defaults. A missing file returns
// the defaults; a malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Cache.Storage {
	case "", "memory", "filesystem":
	default:
		return fmt.Errorf("cache.storage must be memory or filesystem, got %q", c.Cache.Storage)
	}
	if c.Cache.Enabled && c.Cache.Storage == "filesystem" && c.Cache.Dir == "" {
		return fmt.Errorf("cache.dir is required for filesystem cache storage")
	}
	if c.Source.Root == "" {
		return fmt.Errorf("source.root must not be empty")
	}
	return nil
}
