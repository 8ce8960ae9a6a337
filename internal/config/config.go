// Package config loads server settings from TRIBUNA_-prefixed
// environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the API server configuration.
type Config struct {
	Addr            string        `env:"TRIBUNA_ADDR" envDefault:":8080"`
	AuthSecret      string        `env:"TRIBUNA_AUTH_SECRET"`
	PostgresDSN     string        `env:"TRIBUNA_PG_DSN"`
	RateBurst       int           `env:"TRIBUNA_RATE_BURST" envDefault:"60"`
	RatePerSec      float64       `env:"TRIBUNA_RATE_PER_SEC" envDefault:"30"`
	MaxBodyBytes    int64         `env:"TRIBUNA_MAX_BODY_BYTES" envDefault:"1048576"`
	ShutdownTimeout time.Duration `env:"TRIBUNA_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	Version         string        `env:"TRIBUNA_VERSION" envDefault:"dev"`
	Commit          string        `env:"TRIBUNA_COMMIT" envDefault:"unknown"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.RateBurst <= 0 || cfg.RatePerSec <= 0 {
		return Config{}, fmt.Errorf("rate limit settings must be positive")
	}
	if cfg.MaxBodyBytes <= 0 {
		return Config{}, fmt.Errorf("max body bytes must be positive")
	}
	return cfg, nil
}
