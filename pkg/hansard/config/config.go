// Package config loads and validates corpus build settings.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/hansard/pkg/hansard/internalerr"
	"github.com/cognicore/hansard/pkg/hansard/store"
	"github.com/cognicore/hansard/pkg/hansard/store/sqlstore"
)

// Config describes one corpus build run.
type Config struct {
	Source      StoreConfig   `yaml:"source"`
	Destination StoreConfig   `yaml:"destination"`
	Build       BuildConfig   `yaml:"build"`
	Log         LogConfig     `yaml:"log"`
	Metrics     MetricsConfig `yaml:"metrics"`
}

// StoreConfig locates a database and the table used in it. Path is a SQLite
// file or a postgres:// URL.
type StoreConfig struct {
	Path  string `yaml:"path"`
	Table string `yaml:"table"`
}

// BuildConfig tunes the extraction loop. MaxRows 0 means every page.
type BuildConfig struct {
	MaxRows    int           `yaml:"max_rows"`
	Workers    int           `yaml:"workers"`
	RowTimeout time.Duration `yaml:"row_timeout"`
}

// LogConfig controls logger construction.
type LogConfig struct {
	Debug bool `yaml:"debug"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Source:      StoreConfig{Path: "./tidy_hansard.db", Table: sqlstore.DefaultPageTable},
		Destination: StoreConfig{Path: "./parsed_hansard.db", Table: sqlstore.DefaultSpeechTable},
		Build:       BuildConfig{Workers: 1, RowTimeout: 30 * time.Second},
	}
}

// Load reads a YAML file on top of Default and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: parse %s: %v", internalerr.ErrInvalidConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values a run cannot start with.
func (c Config) Validate() error {
	if c.Source.Path == "" {
		return fmt.Errorf("%w: source path is required", internalerr.ErrInvalidConfig)
	}
	if c.Destination.Path == "" {
		return fmt.Errorf("%w: destination path is required", internalerr.ErrInvalidConfig)
	}
	if !store.ValidTableName(c.Source.Table) {
		return fmt.Errorf("%w: source table %q", internalerr.ErrInvalidConfig, c.Source.Table)
	}
	if !store.ValidTableName(c.Destination.Table) {
		return fmt.Errorf("%w: destination table %q", internalerr.ErrInvalidConfig, c.Destination.Table)
	}
	if c.Build.MaxRows < 0 {
		return fmt.Errorf("%w: max_rows must not be negative, got %d", internalerr.ErrInvalidConfig, c.Build.MaxRows)
	}
	if c.Build.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", internalerr.ErrInvalidConfig, c.Build.Workers)
	}
	if c.Build.RowTimeout < 0 {
		return fmt.Errorf("%w: row_timeout must not be negative, got %s", internalerr.ErrInvalidConfig, c.Build.RowTimeout)
	}
	return nil
}

// Limit returns the row limit as Builder.Build expects it: empty for an
// unlimited run.
func (b BuildConfig) Limit() []int {
	if b.MaxRows == 0 {
		return nil
	}
	return []int{b.MaxRows}
}
