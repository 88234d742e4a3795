// Package api provides the HTTP server infrastructure for xai-review.
// This package contains the server itself while the JSON endpoints live in
// the v1 subpackage.
package api

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/labstack/gommon/bytes"

	"github.com/xailab/xai-review/internal/conf"
	"github.com/xailab/xai-review/internal/errors"
	"github.com/xailab/xai-review/internal/logger"
)

// GetLogger returns the api package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("api")
}

// Default constants for the HTTP server.
const (
	DefaultAddr            = "0.0.0.0:3000"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultBodyLimit       = "1M"
	DefaultMetricsPath     = "/metrics"
	DefaultCacheTTL        = 5 * time.Minute
)

// Config holds the HTTP server configuration.
type Config struct {
	Addr           string
	AllowedOrigins []string

	// Timeouts
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Limits
	BodyLimit       string
	IngestRateLimit float64 // triggers per second per client; 0 disables

	MetricsEnabled bool
	MetricsPath    string

	// CacheTTL is the lifetime of cached image sets.
	CacheTTL time.Duration

	Debug bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Addr:            DefaultAddr,
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		BodyLimit:       DefaultBodyLimit,
		MetricsPath:     DefaultMetricsPath,
		CacheTTL:        DefaultCacheTTL,
	}
}

// ConfigFromSettings creates a Config from the application settings. Zero
// values in settings keep the defaults.
func ConfigFromSettings(settings *conf.Settings) *Config {
	cfg := DefaultConfig()

	if settings.Server.Addr != "" {
		cfg.Addr = settings.Server.Addr
	}
	cfg.AllowedOrigins = settings.Server.CORSOrigins
	if settings.Server.BodyLimit != "" {
		cfg.BodyLimit = settings.Server.BodyLimit
	}
	if settings.Server.ShutdownTimeout > 0 {
		cfg.ShutdownTimeout = settings.Server.ShutdownTimeout
	}
	cfg.IngestRateLimit = settings.Server.IngestRateLimit

	cfg.MetricsEnabled = settings.Metrics.Enabled
	if settings.Metrics.Path != "" {
		cfg.MetricsPath = settings.Metrics.Path
	}
	if settings.Images.CacheTTL > 0 {
		cfg.CacheTTL = settings.Images.CacheTTL
	}

	cfg.Debug = settings.Debug
	return cfg
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		errs = append(errs, fmt.Errorf("invalid listen address %q: %w", c.Addr, err))
	}
	if _, err := bytes.Parse(c.BodyLimit); err != nil {
		errs = append(errs, fmt.Errorf("invalid body limit %q: %w", c.BodyLimit, err))
	}
	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 {
		errs = append(errs, errors.NewStd("read and write timeouts must be positive"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.NewStd("shutdown timeout must be positive"))
	}
	if c.IngestRateLimit < 0 {
		errs = append(errs, errors.NewStd("ingest rate limit must not be negative"))
	}
	if c.MetricsEnabled && !strings.HasPrefix(c.MetricsPath, "/") {
		errs = append(errs, fmt.Errorf("metrics path %q must start with /", c.MetricsPath))
	}

	if len(errs) > 0 {
		return errors.New(errors.Join(errs...)).
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}

// String returns a human-readable representation of the config.
func (c *Config) String() string {
	metrics := "disabled"
	if c.MetricsEnabled {
		metrics = c.MetricsPath
	}
	return fmt.Sprintf("Server Config: address=%s, body_limit=%s, metrics=%s, debug=%v",
		c.Addr, c.BodyLimit, metrics, c.Debug)
}
