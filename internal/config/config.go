// Package config loads the service configuration from an optional
// YAML file, applies defaults, and validates the result before the
// engine starts.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Batch    BatchConfig    `yaml:"batch"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"` // HTTP listen address (e.g. :8080)
}

type DatabaseConfig struct {
	Path string `yaml:"path"` // path to the binary phone database
}

type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	MaxSize int  `yaml:"max_size"`
}

type BatchConfig struct {
	Workers int `yaml:"workers"` // 0 = one worker per CPU
}

// Default returns the built-in configuration used when no file is
// given or a section is omitted.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Addr: ":8080"},
		Database: DatabaseConfig{Path: "phone.dat"},
		Cache:    CacheConfig{Enabled: true, MaxSize: 1000},
		Batch:    BatchConfig{Workers: 0},
	}
}

// Load reads the YAML file at path on top of the defaults. An empty
// path returns the defaults unchanged. The result is validated either
// way.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the engine cannot
// start with.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server addr must not be empty")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path must not be empty")
	}
	if _, err := os.Stat(c.Database.Path); err != nil {
		return fmt.Errorf("database file %s: %w", c.Database.Path, err)
	}
	if c.Cache.Enabled && c.Cache.MaxSize <= 0 {
		return fmt.Errorf("cache max_size must be positive when the cache is enabled, got %d", c.Cache.MaxSize)
	}
	if c.Batch.Workers < 0 {
		return fmt.Errorf("batch workers must not be negative, got %d", c.Batch.Workers)
	}
	return nil
}
