// Package config loads memvfs settings from defaults, an optional TOML file
// and MEMVFS_* environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"

	"memvfs/internal/logging"
)

// EnvPrefix namespaces every environment override, e.g. MEMVFS_HTTP_LISTEN.
const EnvPrefix = "MEMVFS"

// Config holds all application configuration.
type Config struct {
	Logging LogConfig    `toml:"logging"`
	Mount   MountConfig  `toml:"mount"`
	HTTP    HTTPConfig   `toml:"http"`
	Seed    SeedConfig   `toml:"seed"`
	Search  SearchConfig `toml:"search"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `toml:"level" envconfig:"LEVEL"`
	Development bool   `toml:"development" envconfig:"DEV"`
}

// MountConfig holds the FUSE mount point. Empty disables mounting.
type MountConfig struct {
	Point string `toml:"point" envconfig:"POINT"`
}

// HTTPConfig holds HTTP server configuration. An empty Listen disables the
// server.
type HTTPConfig struct {
	Listen          string   `toml:"listen" envconfig:"LISTEN"`
	ShutdownTimeout Duration `toml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	CORSOrigins     []string `toml:"cors_origins" envconfig:"CORS_ORIGINS"`
}

// SeedConfig controls the initial content of the store.
type SeedConfig struct {
	Samples bool   `toml:"samples" envconfig:"SAMPLES"`
	Dir     string `toml:"dir" envconfig:"DIR"`
}

// SearchConfig holds the limits applied to API searches when a request
// leaves them unset.
type SearchConfig struct {
	MaxResults          int      `toml:"max_results" envconfig:"MAX_RESULTS"`
	MaxFileSize         int64    `toml:"max_file_size" envconfig:"MAX_FILE_SIZE"`
	PreviewCharsPerLine int      `toml:"preview_chars" envconfig:"PREVIEW_CHARS"`
	RegexTimeout        Duration `toml:"regex_timeout" envconfig:"REGEX_TIMEOUT"`
}

// Duration is a time.Duration written as a string such as "250ms" in both
// TOML and the environment.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Load builds the configuration. Defaults come first, then the TOML file at
// path when path is not empty, then environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings that cannot be used.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging.level: %w", err)
	}
	if c.Search.MaxResults < 0 {
		return fmt.Errorf("invalid search.max_results: %d", c.Search.MaxResults)
	}
	if c.Search.MaxFileSize < 0 {
		return fmt.Errorf("invalid search.max_file_size: %d", c.Search.MaxFileSize)
	}
	if c.Search.PreviewCharsPerLine < 0 {
		return fmt.Errorf("invalid search.preview_chars: %d", c.Search.PreviewCharsPerLine)
	}
	if c.Search.RegexTimeout.Duration < 0 {
		return fmt.Errorf("invalid search.regex_timeout: %s", c.Search.RegexTimeout)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		HTTP: HTTPConfig{
			Listen:          "127.0.0.1:8080",
			ShutdownTimeout: Duration{5 * time.Second},
		},
		Seed: SeedConfig{
			Samples: true,
		},
		Search: SearchConfig{
			MaxResults:          2000,
			MaxFileSize:         10 << 20,
			PreviewCharsPerLine: 200,
			RegexTimeout:        Duration{time.Second},
		},
	}
}
