// pkg/config/config.go
// Package config loads the garner configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults applied for zero values.
const (
	DefaultDataDir  = "data"
	DefaultPoolSize = 128
	DefaultPolicy   = "lru"
)

// Config is the YAML configuration for the shell and the storage stack.
type Config struct {
	// DataDir is the directory holding the heap files.
	DataDir string `yaml:"data_dir"`

	// PoolSize is the number of frames in the buffer pool.
	PoolSize int `yaml:"pool_size"`

	// Policy is the buffer replacement policy: "lru" or "mru".
	Policy string `yaml:"policy"`

	// DirectIO bypasses the OS page cache where supported.
	DirectIO bool `yaml:"direct_io"`

	// InMemory keeps all files in process memory.
	InMemory bool `yaml:"in_memory"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		DataDir:  DefaultDataDir,
		PoolSize: DefaultPoolSize,
		Policy:   DefaultPolicy,
	}
}

// Load reads a YAML configuration file. Missing keys fall back to the
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

// Validate checks field values and fills in defaults for zero values.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.PoolSize == 0 {
		c.PoolSize = DefaultPoolSize
	}
	if c.PoolSize < 0 {
		return fmt.Errorf("pool_size must be positive, got %d", c.PoolSize)
	}
	switch c.Policy {
	case "":
		c.Policy = DefaultPolicy
	case "lru", "mru":
	default:
		return fmt.Errorf("policy must be \"lru\" or \"mru\", got %q", c.Policy)
	}
	return nil
}
