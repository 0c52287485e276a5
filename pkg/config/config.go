// Package config loads engine configuration from YAML files and the
// environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/odvcencio/scribe/pkg/paths"
)

// Default configuration values exported for documentation and validation
const (
	DefaultLockTimeout       = 30 * time.Second
	DefaultLockRetryInterval = 25 * time.Millisecond
	DefaultLogLevel          = "info"
	DefaultReplayConcurrency = 4
)

// Config represents the complete engine configuration
type Config struct {
	Data      DataConfig      `yaml:"data"`
	Lock      LockConfig      `yaml:"lock"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Replay    ReplayConfig    `yaml:"replay"`
}

// DataConfig locates the session store on disk
type DataConfig struct {
	Dir string `yaml:"dir"`
}

// LockConfig tunes the per-session append lock
type LockConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	RetryInterval time.Duration `yaml:"retry_interval"`
}

// CatalogConfig controls the optional SQLite session catalog
type CatalogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig controls structured engine logs
type LoggingConfig struct {
	Dir   string `yaml:"dir"`
	Level string `yaml:"level"`
}

// TelemetryConfig toggles metrics and tracing
type TelemetryConfig struct {
	MetricsEnabled bool `yaml:"metrics_enabled"`
	TracingEnabled bool `yaml:"tracing_enabled"`
}

// ReplayConfig tunes multi-session replay
type ReplayConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// DefaultConfig returns the configuration used when no file is present
func DefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			Dir: paths.DataBaseDir(),
		},
		Lock: LockConfig{
			Timeout:       DefaultLockTimeout,
			RetryInterval: DefaultLockRetryInterval,
		},
		Catalog: CatalogConfig{
			Enabled: true,
			Path:    filepath.Join(paths.DataBaseDir(), "catalog.db"),
		},
		Logging: LoggingConfig{
			Dir:   paths.LogsBaseDir(),
			Level: DefaultLogLevel,
		},
		Telemetry: TelemetryConfig{
			MetricsEnabled: true,
			TracingEnabled: false,
		},
		Replay: ReplayConfig{
			Concurrency: DefaultReplayConcurrency,
		},
	}
}

// Load loads configuration from the default location (~/.scribe/config.yaml)
// with environment overrides applied on top.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	if home != "" {
		userConfigPath := filepath.Join(home, ".scribe", "config.yaml")
		if err := loadAndMerge(cfg, userConfigPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("loading user config: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file path
func LoadFromPath(path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := loadAndMerge(cfg, path); err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func loadAndMerge(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(paths.EnvScribeDataDir)); v != "" {
		cfg.Data.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv(paths.EnvScribeLogDir)); v != "" {
		cfg.Logging.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv("SCRIBE_LOCK_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Lock.Timeout = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("SCRIBE_LOG_LEVEL")); v != "" {
		cfg.Logging.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("SCRIBE_CATALOG_PATH")); v != "" {
		cfg.Catalog.Path = v
	}
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Data.Dir) == "" {
		return fmt.Errorf("data.dir must not be empty")
	}
	if c.Lock.Timeout <= 0 {
		return fmt.Errorf("lock.timeout must be positive, got %s", c.Lock.Timeout)
	}
	if c.Lock.RetryInterval <= 0 {
		return fmt.Errorf("lock.retry_interval must be positive, got %s", c.Lock.RetryInterval)
	}
	if c.Lock.RetryInterval >= c.Lock.Timeout {
		return fmt.Errorf("lock.retry_interval %s must be shorter than lock.timeout %s",
			c.Lock.RetryInterval, c.Lock.Timeout)
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	if c.Catalog.Enabled && strings.TrimSpace(c.Catalog.Path) == "" {
		return fmt.Errorf("catalog.path must be set when catalog is enabled")
	}
	if c.Replay.Concurrency <= 0 {
		return fmt.Errorf("replay.concurrency must be positive, got %d", c.Replay.Concurrency)
	}
	return nil
}
