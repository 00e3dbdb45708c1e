// Package config loads morphic runtime configuration.
//
// Precedence, lowest to highest: built-in defaults, an optional YAML file,
// MORPHIC_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/roach88/morphic/internal/engine"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "MORPHIC_"

// Config is the complete runtime configuration.
type Config struct {
	Engine engine.Thresholds `yaml:"engine" envPrefix:"ENGINE_"`

	// Seed drives the engine's random source. Zero means "derive from the
	// wall clock"; any other value makes runs reproducible.
	Seed uint64 `yaml:"seed" env:"SEED"`

	Store StoreConfig `yaml:"store" envPrefix:"STORE_"`
	Log   LogConfig   `yaml:"log" envPrefix:"LOG_"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `yaml:"path" env:"PATH"`
}

// LogConfig selects the log level: debug, info, warn or error.
type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Engine: engine.DefaultThresholds(),
		Log:    LogConfig{Level: "info"},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the process environment.
func Load(path string) (Config, error) {
	return load(path, nil)
}

// LoadWithEnv is like Load but reads variables from environ instead of the
// process environment. Used by tests.
func LoadWithEnv(path string, environ map[string]string) (Config, error) {
	return load(path, environ)
}

func load(path string, environ map[string]string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// decodeYAML rejects unknown fields so that typos surface as errors.
// An empty document leaves cfg unchanged.
func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	return nil
}
