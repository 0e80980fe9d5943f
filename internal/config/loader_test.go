package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
api:
  base_url: "https://focos.example.org"
  timeout: 10s
  retry_max: 0
  points_limit: 5000
dashboard:
  main_debounce: 200ms
  points_debounce: 400ms
cache:
  redis:
    enabled: true
    addr: "redis:6379"
    ttl: 30m
archive:
  enabled: true
  path: "/var/lib/focosview/checks.db"
log:
  level: "debug"
  format: "console"
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ValidFile(t *testing.T) {
	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, "https://focos.example.org", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, 0, cfg.API.RetryMax)
	assert.Equal(t, 5000, cfg.API.PointsLimit)
	assert.Equal(t, 200*time.Millisecond, cfg.Dashboard.MainDebounce)
	assert.Equal(t, 400*time.Millisecond, cfg.Dashboard.PointsDebounce)
	assert.Equal(t, DefaultSearchDebounce, cfg.Dashboard.SearchDebounce)
	assert.True(t, cfg.Cache.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, 30*time.Minute, cfg.Cache.Redis.TTL)
	assert.Equal(t, DefaultRedisPrefix, cfg.Cache.Redis.Prefix)
	assert.True(t, cfg.Archive.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestLoad_InvalidValues(t *testing.T) {
	_, err := Load(createTempConfigFile(t, "log:\n  level: loud\n"))
	assert.ErrorContains(t, err, "validation failed")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("FOCOS_API_BASE_URL", "http://override:8000")
	t.Setenv("FOCOS_DASHBOARD_MAIN_DEBOUNCE", "50ms")

	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, "http://override:8000", cfg.API.BaseURL)
	assert.Equal(t, 50*time.Millisecond, cfg.Dashboard.MainDebounce)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FOCOS_API_BASE_URL", "http://api:8000")
	t.Setenv("FOCOS_CACHE_REDIS_ENABLED", "true")
	t.Setenv("FOCOS_CACHE_REDIS_ADDR", "cache:6379")
	t.Setenv("FOCOS_API_RETRY_MAX", "5")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "http://api:8000", cfg.API.BaseURL)
	assert.True(t, cfg.Cache.Redis.Enabled)
	assert.Equal(t, "cache:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, 5, cfg.API.RetryMax)
	assert.Equal(t, DefaultServerAddr, cfg.Server.Addr)
}

func TestLoadFromEnv_DefaultsOnly(t *testing.T) {
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIBaseURL, cfg.API.BaseURL)
	assert.Equal(t, DefaultAPIRetryMax, cfg.API.RetryMax)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("FOCOS_TEST_DOTENV_VALUE=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("FOCOS_TEST_DOTENV_VALUE") })

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("FOCOS_TEST_DOTENV_VALUE"))
}

func TestWatch_MissingFile(t *testing.T) {
	err := Watch(filepath.Join(t.TempDir(), "nope.yaml"), func(*Config) {}, nil)
	assert.Error(t, err)
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	changed := make(chan *Config, 16)
	require.NoError(t, Watch(path, func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	}, nil))

	updated := validConfigYAML + "\nmetrics:\n  namespace: reloaded\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-changed:
			if cfg.Metrics.Namespace == "reloaded" {
				return
			}
		case <-deadline:
			t.Fatal("config change not observed")
		}
	}
}

func TestMustLoad_Panics(t *testing.T) {
	assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "nope.yaml")) })
}
