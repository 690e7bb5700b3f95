// Package config loads the verification core's configuration: store
// selection plus every engine, scorer, and detector tunable. Precedence is
// environment variables over the YAML file over built-in defaults.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/eipp/mindburn-aletheia-sub003/internal/fraud"
	"github.com/eipp/mindburn-aletheia-sub003/internal/quality"
	"github.com/eipp/mindburn-aletheia-sub003/internal/verification"
)

// Config is the full configuration tree.
type Config struct {
	// SQLitePath is the metrics database location. Ignored when RedisAddr
	// is set.
	SQLitePath string `yaml:"sqlite_path"`

	// RedisAddr selects the Redis-backed store when non-empty.
	RedisAddr string `yaml:"redis_addr"`

	// MetricsAddr, when non-empty, exposes Prometheus metrics on this
	// address.
	MetricsAddr string `yaml:"metrics_addr"`

	Verification verification.Config `yaml:"verification"`
	Quality      quality.Config      `yaml:"quality"`
	Fraud        fraud.Config        `yaml:"fraud"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		SQLitePath:   "data/aletheia.db",
		Verification: verification.DefaultConfig(),
		Quality:      quality.DefaultConfig(),
		Fraud:        fraud.DefaultConfig(),
	}
}

// Load reads the YAML file at path (skipped when path is empty) on top of
// the defaults, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv overrides fields from the environment.
func applyEnv(cfg *Config) {
	if v := os.Getenv("ALETHEIA_SQLITE_PATH"); v != "" {
		cfg.SQLitePath = v
	}
	if v := os.Getenv("ALETHEIA_REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("ALETHEIA_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("ALETHEIA_FRAUD_SENSITIVITY"); v != "" {
		cfg.Fraud.Sensitivity = fraud.Sensitivity(v)
	}
}
