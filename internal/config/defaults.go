package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultAPIBaseURL      = "http://localhost:8000"
	DefaultAPITimeout      = 30 * time.Second
	DefaultAPIRetryMax     = 2
	DefaultAPIRetryWaitMin = 200 * time.Millisecond
	DefaultAPIRetryWaitMax = 2 * time.Second
	DefaultPointsLimit     = 20000

	DefaultMainDebounce      = 150 * time.Millisecond
	DefaultPointsDebounce    = 320 * time.Millisecond
	DefaultSearchDebounce    = 250 * time.Millisecond
	DefaultTopLimit          = 10
	DefaultMunTopLimitWithUF = 20
	DefaultSearchLimit       = 20

	DefaultServerAddr = ":8090"

	DefaultRedisAddr   = "localhost:6379"
	DefaultRedisTTL    = time.Hour
	DefaultRedisPrefix = "focos:"

	DefaultArchivePath = "focosview.db"

	DefaultMetricsNamespace = "focosview"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// ApplyDefaults fills every zero-value field in cfg with its default.
// Fields already set are left unchanged so explicit configuration wins.
// It must run after unmarshalling and before Validate.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── API ───────────────────────────────────────────────────────────────────
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = DefaultAPIBaseURL
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = DefaultAPITimeout
	}
	// RetryMax is an int where 0 is a meaningful value (no retries); it is
	// defaulted only through viper.
	if cfg.API.RetryWaitMin == 0 {
		cfg.API.RetryWaitMin = DefaultAPIRetryWaitMin
	}
	if cfg.API.RetryWaitMax == 0 {
		cfg.API.RetryWaitMax = DefaultAPIRetryWaitMax
	}
	if cfg.API.PointsLimit == 0 {
		cfg.API.PointsLimit = DefaultPointsLimit
	}

	// ── Dashboard ─────────────────────────────────────────────────────────────
	if cfg.Dashboard.MainDebounce == 0 {
		cfg.Dashboard.MainDebounce = DefaultMainDebounce
	}
	if cfg.Dashboard.PointsDebounce == 0 {
		cfg.Dashboard.PointsDebounce = DefaultPointsDebounce
	}
	if cfg.Dashboard.SearchDebounce == 0 {
		cfg.Dashboard.SearchDebounce = DefaultSearchDebounce
	}
	if cfg.Dashboard.TopLimit == 0 {
		cfg.Dashboard.TopLimit = DefaultTopLimit
	}
	if cfg.Dashboard.MunTopLimitWithUF == 0 {
		cfg.Dashboard.MunTopLimitWithUF = DefaultMunTopLimitWithUF
	}
	if cfg.Dashboard.SearchLimit == 0 {
		cfg.Dashboard.SearchLimit = DefaultSearchLimit
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultServerAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	// ── Cache ─────────────────────────────────────────────────────────────────
	if cfg.Cache.Redis.Addr == "" {
		cfg.Cache.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Cache.Redis.TTL == 0 {
		cfg.Cache.Redis.TTL = DefaultRedisTTL
	}
	if cfg.Cache.Redis.Prefix == "" {
		cfg.Cache.Redis.Prefix = DefaultRedisPrefix
	}

	// ── Archive ───────────────────────────────────────────────────────────────
	if cfg.Archive.Path == "" {
		cfg.Archive.Path = DefaultArchivePath
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

// Default returns a Config holding only defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.API.RetryMax = DefaultAPIRetryMax
	cfg.Metrics.Enabled = true
	ApplyDefaults(cfg)
	return cfg
}
