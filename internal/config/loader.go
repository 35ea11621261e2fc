package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variables read by Load.
const (
	EnvPrefix = "PVNET_"
	EnvFile   = "PVNET_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if PVNET_CONFIG is set
//  3. env (prefix PVNET_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// PVNET_QUEUE_SIZE -> queue_size (flat keys, underscores preserved)
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would make the pipeline or service unusable.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.KFutureEvents < 0:
		return fmt.Errorf("%w: k_future_events must be >= 0, got %d", ErrInvalidConfig, c.KFutureEvents)
	case c.LabelWorkers < 1:
		return fmt.Errorf("%w: label_workers must be >= 1, got %d", ErrInvalidConfig, c.LabelWorkers)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be >= 1, got %d", ErrInvalidConfig, c.QueueSize)
	case c.MaxDatasets < 1:
		return fmt.Errorf("%w: max_datasets must be >= 1, got %d", ErrInvalidConfig, c.MaxDatasets)
	case c.MaxEventsPerRequest < 1:
		return fmt.Errorf("%w: max_events_per_request must be >= 1, got %d", ErrInvalidConfig, c.MaxEventsPerRequest)
	case c.MaxRequestBytes < 1:
		return fmt.Errorf("%w: max_request_bytes must be >= 1, got %d", ErrInvalidConfig, c.MaxRequestBytes)
	}
	if err := c.Fractions().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
