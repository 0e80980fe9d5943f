package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ping(err error) func(context.Context) error {
	return func(context.Context) error { return err }
}

func readiness(t *testing.T, h *HealthHandler) (int, ReadinessResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestHealthHandler_Liveness(t *testing.T) {
	h := NewHealthHandler("v1.2.3", func() bool { return false })
	rec := httptest.NewRecorder()
	h.Liveness(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp LivenessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alive", resp.Status)
	assert.Equal(t, "v1.2.3", resp.Version)
}

func TestHealthHandler_Readiness_NoCheckers(t *testing.T) {
	code, resp := readiness(t, NewHealthHandler("dev", nil))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", resp.Status)
	assert.Nil(t, resp.Components)
}

func TestHealthHandler_Readiness_DashboardLoading(t *testing.T) {
	code, resp := readiness(t, NewHealthHandler("dev", func() bool { return false }))
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "loading", resp.Dashboard)
}

func TestHealthHandler_Readiness_Components(t *testing.T) {
	h := NewHealthHandler("dev", func() bool { return true },
		NamedChecker{Component: "redis", Ping: ping(nil)},
		NamedChecker{Component: "archive", Ping: ping(errors.New("database is locked"))},
	)
	code, resp := readiness(t, h)

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "not_ready", resp.Status)
	assert.Equal(t, "healthy", resp.Components["redis"].Status)
	assert.Equal(t, "unhealthy", resp.Components["archive"].Status)
	assert.Equal(t, "database is locked", resp.Components["archive"].Error)
}

func TestHealthHandler_Readiness_AllHealthy(t *testing.T) {
	h := NewHealthHandler("dev", func() bool { return true }, NamedChecker{Component: "redis", Ping: ping(nil)})
	code, resp := readiness(t, h)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", resp.Status)
}
