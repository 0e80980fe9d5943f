// Package config defines the configuration of a focosview process. Only
// plain data types and validation live here.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/focosview/focosview/internal/infrastructure/monitoring/logging"
	"github.com/focosview/focosview/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// APIConfig points at the aggregate API.
type APIConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	RetryMax     int           `mapstructure:"retry_max"`
	RetryWaitMin time.Duration `mapstructure:"retry_wait_min"`
	RetryWaitMax time.Duration `mapstructure:"retry_wait_max"`
	PointsLimit  int           `mapstructure:"points_limit"`
}

// DashboardConfig tunes the session.
type DashboardConfig struct {
	MainDebounce      time.Duration `mapstructure:"main_debounce"`
	PointsDebounce    time.Duration `mapstructure:"points_debounce"`
	SearchDebounce    time.Duration `mapstructure:"search_debounce"`
	TopLimit          int           `mapstructure:"top_limit"`
	MunTopLimitWithUF int           `mapstructure:"mun_top_limit_with_uf"`
	SearchLimit       int           `mapstructure:"search_limit"`
}

// ServerConfig holds the inspection HTTP server tunables.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// RedisConfig holds the response cache connection.
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	PoolSize int           `mapstructure:"pool_size"`
	TTL      time.Duration `mapstructure:"ttl"`
	Prefix   string        `mapstructure:"prefix"`
}

// CacheConfig groups cache backends.
type CacheConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

// ArchiveConfig enables the consistency archive.
type ArchiveConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// MetricsConfig enables the Prometheus registry.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format string `mapstructure:"format"` // "json" | "console"
	Output string `mapstructure:"output"`
}

// Logging converts to the logger constructor's config.
func (l LogConfig) Logging() logging.LogConfig {
	out := logging.LogConfig{Level: l.Level, Format: l.Format}
	if l.Output != "" {
		out.OutputPaths = []string{l.Output}
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration.
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Server    ServerConfig    `mapstructure:"server"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Log       LogConfig       `mapstructure:"log"`
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{errors.ErrInvalidConfig}, args...)...)
}

// Validate performs semantic validation of a defaulted Config. It returns
// the first problem found.
func (c *Config) Validate() error {
	// API
	if c.API.BaseURL == "" {
		return invalid("api.base_url is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid("api.base_url %q must be an http(s) URL", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return invalid("api.timeout must be positive, got %s", c.API.Timeout)
	}
	if c.API.RetryMax < 0 {
		return invalid("api.retry_max must be >= 0, got %d", c.API.RetryMax)
	}
	if c.API.RetryWaitMin > c.API.RetryWaitMax {
		return invalid("api.retry_wait_min %s exceeds retry_wait_max %s", c.API.RetryWaitMin, c.API.RetryWaitMax)
	}
	if c.API.PointsLimit < 1 {
		return invalid("api.points_limit must be >= 1, got %d", c.API.PointsLimit)
	}

	// Dashboard
	for name, d := range map[string]time.Duration{
		"main_debounce":   c.Dashboard.MainDebounce,
		"points_debounce": c.Dashboard.PointsDebounce,
		"search_debounce": c.Dashboard.SearchDebounce,
	} {
		if d <= 0 {
			return invalid("dashboard.%s must be positive, got %s", name, d)
		}
	}
	if c.Dashboard.TopLimit < 1 || c.Dashboard.MunTopLimitWithUF < 1 || c.Dashboard.SearchLimit < 1 {
		return invalid("dashboard limits must be >= 1")
	}

	// Server
	if c.Server.Addr == "" {
		return invalid("server.addr is required")
	}

	// Cache
	if c.Cache.Redis.Enabled {
		if c.Cache.Redis.Addr == "" {
			return invalid("cache.redis.addr is required when the cache is enabled")
		}
		if c.Cache.Redis.DB < 0 {
			return invalid("cache.redis.db must be >= 0, got %d", c.Cache.Redis.DB)
		}
	}

	// Archive
	if c.Archive.Enabled && c.Archive.Path == "" {
		return invalid("archive.path is required when the archive is enabled")
	}

	// Metrics
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return invalid("metrics.namespace is required when metrics are enabled")
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return invalid("log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}
