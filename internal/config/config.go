// ============================================================================
// forkmap CLI Configuration
// ============================================================================
//
// Package: internal/config
// File: config.go
// Purpose: YAML-backed configuration for the cmd/forkmap CLI, validated
//          with go-playground/validator/v10 the same way pkg/pool's
//          Option struct is.
//
// ============================================================================

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mrafferty/forkmap/internal/validate"
)

// Config is the complete on-disk configuration for the demo CLI.
type Config struct {
	Pool struct {
		Size            int           `yaml:"size" validate:"gte=1"`
		Timeout         time.Duration `yaml:"timeout" validate:"gte=0"`
		Ordered         bool          `yaml:"ordered"`
		StopGracePeriod time.Duration `yaml:"stop_grace_period" validate:"gte=0"`
	} `yaml:"pool"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"metrics"`
}

// Default returns the configuration used when no config file is given.
func Default() Config {
	var cfg Config
	cfg.Pool.Size = 4
	cfg.Pool.Ordered = true
	cfg.Pool.StopGracePeriod = 2 * time.Second
	cfg.Metrics.Enabled = false
	cfg.Metrics.Addr = ":9090"
	return cfg
}

// Load reads and validates a YAML config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
