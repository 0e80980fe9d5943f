package cli

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focosview/focosview/internal/config"
	"github.com/focosview/focosview/internal/infrastructure/monitoring/logging"
)

func get(t *testing.T, h http.Handler, path string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestBuildRuntime_WiresHTTPSurface(t *testing.T) {
	cfg := config.Default()
	cfg.Archive.Enabled = true
	cfg.Archive.Path = filepath.Join(t.TempDir(), "checks.db")
	cfg.Server.AllowedOrigins = []string{"https://painel.example.org"}

	rt, err := buildRuntime(context.Background(), &CLIContext{Config: cfg, Logger: logging.NewNopLogger()})
	require.NoError(t, err)
	defer rt.Close()

	require.NotNil(t, rt.session)
	require.NotNil(t, rt.archive)
	assert.Nil(t, rt.redis)

	rec := get(t, rt.router, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	// Nothing was refreshed yet.
	rec = get(t, rt.router, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = get(t, rt.router, "/api/history", "Origin", "https://painel.example.org")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.Equal(t, "https://painel.example.org", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = get(t, rt.router, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `focosview_http_requests_total{method="GET",route="/api/history",status_code="200"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestBuildRuntime_WithoutOptionalParts(t *testing.T) {
	cfg := config.Default()
	cfg.Metrics.Enabled = false

	rt, err := buildRuntime(context.Background(), &CLIContext{Config: cfg, Logger: logging.NewNopLogger()})
	require.NoError(t, err)
	defer rt.Close()

	assert.Nil(t, rt.archive)
	assert.Equal(t, http.StatusNotFound, get(t, rt.router, "/metrics").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, rt.router, "/api/history").Code)
}

func TestArchiveMetrics_NilStaysNil(t *testing.T) {
	assert.Nil(t, archiveMetrics(nil))
}
