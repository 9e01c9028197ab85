package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
)

// Publish modes for finished run records.
const (
	PublishDirect = "direct"
	PublishStream = "stream"
)

// Config holds all configuration for the jglow CLI.
type Config struct {
	StoreURL    string `env:"JGLOW_STORE_URL" envDefault:"sqlite://jglow.db"`
	RedisURL    string `env:"JGLOW_REDIS_URL" envDefault:"redis://localhost:6379/0"`
	PublishMode string `env:"JGLOW_PUBLISH_MODE" envDefault:"direct"`
	ContentDir  string `env:"JGLOW_CONTENT_DIR"`
	ProjectRoot string `env:"JGLOW_PROJECT_ROOT"`
	LogLevel    string `env:"JGLOW_LOG_LEVEL" envDefault:"info"`
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.ProjectRoot == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
		cfg.ProjectRoot = wd
	}

	switch cfg.PublishMode {
	case PublishDirect, PublishStream:
	default:
		return nil, fmt.Errorf("JGLOW_PUBLISH_MODE %q: want %q or %q", cfg.PublishMode, PublishDirect, PublishStream)
	}
	return cfg, nil
}
