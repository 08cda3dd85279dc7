// Package config provides configuration management for the Black Marble
// downloader and its STAC service.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/robert-malhotra/blackmarble/internal/fetch"
	"github.com/robert-malhotra/blackmarble/internal/laads"
	"github.com/robert-malhotra/blackmarble/internal/retry"
)

// Config holds the complete application configuration loaded from environment variables.
type Config struct {
	// Token is the LAADS bearer token. A token passed explicitly on the
	// command line takes precedence, see ResolveToken.
	Token string `env:"BLACKMARBLE_TOKEN" envDefault:""`

	Archive  ArchiveConfig `envPrefix:"ARCHIVE_"`
	Fetch    FetchConfig   `envPrefix:"FETCH_"`
	Retry    RetryConfig   `envPrefix:"RETRY_"`
	Store    StoreConfig   `envPrefix:"STORE_"`
	Server   ServerConfig  `envPrefix:"SERVER_"`
	STAC     STACConfig    `envPrefix:"STAC_"`
	Features FeatureConfig `envPrefix:"FEATURE_"`
	Logging  LoggingConfig `envPrefix:"LOG_"`
}

// ArchiveConfig contains LAADS archive client configuration.
type ArchiveConfig struct {
	BaseURL string        `env:"BASE_URL" envDefault:"https://ladsweb.modaps.eosdis.nasa.gov"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10m"`
}

// FetchConfig contains orchestrator configuration.
type FetchConfig struct {
	Concurrency     int    `env:"CONCURRENCY" envDefault:"4"`
	SkipExisting    bool   `env:"SKIP_EXISTING" envDefault:"true"`
	Strict          bool   `env:"STRICT" envDefault:"false"`
	RequireAllTiles bool   `env:"REQUIRE_ALL_TILES" envDefault:"true"`
	Manifest        string `env:"MANIFEST" envDefault:""`
	// MetricsFile and Pushgateway receive the run's metrics when it ends.
	MetricsFile string `env:"METRICS_FILE"`
	Pushgateway string `env:"PUSHGATEWAY"`
}

// RetryConfig contains the per-tile retry policy.
type RetryConfig struct {
	MaxAttempts    int           `env:"MAX_ATTEMPTS" envDefault:"5"`
	BaseDelay      time.Duration `env:"BASE_DELAY" envDefault:"1s"`
	MaxDelay       time.Duration `env:"MAX_DELAY" envDefault:"30s"`
	Jitter         float64       `env:"JITTER" envDefault:"0.5"`
	AttemptTimeout time.Duration `env:"ATTEMPT_TIMEOUT" envDefault:"5m"`
}

// StoreConfig contains artifact store configuration.
type StoreConfig struct {
	// URL is a bucket URL (file://, s3://, gs://, mem://) or a local directory.
	URL    string `env:"URL" envDefault:"data"`
	Prefix string `env:"PREFIX" envDefault:""`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string        `env:"HOST" envDefault:"0.0.0.0"`
	Port            int           `env:"PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// STACConfig contains STAC API metadata configuration.
type STACConfig struct {
	Version     string `env:"VERSION" envDefault:"1.0.0"`
	BaseURL     string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	Title       string `env:"TITLE" envDefault:"Black Marble STAC API"`
	Description string `env:"DESCRIPTION" envDefault:"Downloaded NASA Black Marble nighttime lights tiles"`
}

// FeatureConfig contains paging limits.
type FeatureConfig struct {
	DefaultLimit int `env:"DEFAULT_LIMIT" envDefault:"10"`
	MaxLimit     int `env:"MAX_LIMIT" envDefault:"250"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"text"`
}

// Load parses configuration from environment variables.
// It returns an error if required fields are missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}

	opts := env.Options{
		RequiredIfNoDef: true,
	}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive, got %s", c.Server.ReadTimeout)
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive, got %s", c.Server.WriteTimeout)
	}

	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server shutdown timeout must be positive, got %s", c.Server.ShutdownTimeout)
	}

	if c.Archive.BaseURL == "" {
		return fmt.Errorf("archive base URL is required")
	}

	if c.Archive.Timeout <= 0 {
		return fmt.Errorf("archive timeout must be positive, got %s", c.Archive.Timeout)
	}

	if c.Fetch.Concurrency < 1 {
		return fmt.Errorf("fetch concurrency must be at least 1, got %d", c.Fetch.Concurrency)
	}

	if err := c.Retry.Policy().Validate(); err != nil {
		return err
	}

	if c.STAC.Version == "" {
		return fmt.Errorf("STAC version is required")
	}

	if c.Features.DefaultLimit < 1 {
		return fmt.Errorf("default limit must be at least 1, got %d", c.Features.DefaultLimit)
	}

	if c.Features.MaxLimit < c.Features.DefaultLimit {
		return fmt.Errorf("max limit (%d) must be >= default limit (%d)", c.Features.MaxLimit, c.Features.DefaultLimit)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format %q, must be one of: json, text", c.Logging.Format)
	}

	return nil
}

// ResolveToken returns the bearer token to use. An explicit non-empty token
// wins over BLACKMARBLE_TOKEN.
func (c *Config) ResolveToken(explicit string) (string, error) {
	if t := strings.TrimSpace(explicit); t != "" {
		return t, nil
	}
	if t := strings.TrimSpace(c.Token); t != "" {
		return t, nil
	}
	return "", fmt.Errorf("%w: pass --token or set BLACKMARBLE_TOKEN", laads.ErrMissingToken)
}

// Policy converts the retry settings.
func (r RetryConfig) Policy() retry.Policy {
	return retry.Policy{
		MaxAttempts:    r.MaxAttempts,
		BaseDelay:      r.BaseDelay,
		MaxDelay:       r.MaxDelay,
		Jitter:         r.Jitter,
		AttemptTimeout: r.AttemptTimeout,
	}
}

// FetchOptions builds orchestrator options from the fetch and retry settings.
func (c *Config) FetchOptions() fetch.Options {
	return fetch.Options{
		Concurrency:     c.Fetch.Concurrency,
		SkipExisting:    c.Fetch.SkipExisting,
		Strict:          c.Fetch.Strict,
		RequireAllTiles: c.Fetch.RequireAllTiles,
		Policy:          c.Retry.Policy(),
	}
}

// Address returns the server listen address in the format "host:port".
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
