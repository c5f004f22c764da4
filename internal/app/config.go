package app

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultTick is the interval at which a served notebook advances.
const DefaultTick = 16 * time.Millisecond

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	DocumentPath string // .nb.hcl file, may be empty for serve and repl

	LogFormat       string
	LogLevel        string
	Listen          string // serve only
	HealthcheckPort int
	Tick            time.Duration
	AutoRefresh     bool
	SaveOnExit      bool // serve only
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("invalid log-format %q: must be 'text' or 'json'", cfg.LogFormat)
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}

	if cfg.Tick == 0 {
		cfg.Tick = DefaultTick
	}
	if cfg.Tick < 0 {
		return nil, errors.New("tick must be positive")
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("invalid healthcheck port %d", cfg.HealthcheckPort)
	}

	return &cfg, nil
}
