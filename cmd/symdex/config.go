package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jward/symdex"
)

// fileConfig is the on-disk TOML configuration (.symdex.toml).
type fileConfig struct {
	Enabled      bool     `toml:"enabled"`
	BatchSize    int      `toml:"batch_size"`
	BatchDelayMs int      `toml:"batch_delay_ms"`
	Include      []string `toml:"include"`
	Exclude      []string `toml:"exclude"`
}

func defaultFileConfig() *fileConfig {
	return &fileConfig{
		Enabled:      true,
		BatchSize:    symdex.DefaultBatchSize,
		BatchDelayMs: int(symdex.DefaultBatchDelay / time.Millisecond),
	}
}

// loadConfig reads the config file at explicit (or root/.symdex.toml when
// empty). A missing default file yields the defaults; a missing explicit
// file is an error.
func loadConfig(root, explicit string) (*fileConfig, error) {
	path := explicit
	if path == "" {
		path = filepath.Join(root, ".symdex.toml")
	}

	cfg := defaultFileConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && explicit == "" {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := toml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *fileConfig) engineConfig() symdex.Config {
	cfg := symdex.DefaultConfig()
	if c.BatchSize != 0 {
		cfg.BatchSize = c.BatchSize
	}
	if c.BatchDelayMs > 0 {
		cfg.BatchDelay = time.Duration(c.BatchDelayMs) * time.Millisecond
	}
	cfg.Include = c.Include
	cfg.Exclude = c.Exclude
	return cfg
}
