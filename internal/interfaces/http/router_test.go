package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focosview/focosview/internal/dashboard/session"
	"github.com/focosview/focosview/internal/dashboard/state"
	"github.com/focosview/focosview/internal/dashboard/status"
	"github.com/focosview/focosview/internal/dashboard/view"
	"github.com/focosview/focosview/internal/infrastructure/monitoring/logging"
	"github.com/focosview/focosview/internal/infrastructure/monitoring/prometheus"
	"github.com/focosview/focosview/internal/interfaces/http/handlers"
	"github.com/focosview/focosview/internal/interfaces/http/middleware"
)

type fakeDashboard struct {
	revision uint64
	ready    bool
}

func (f *fakeDashboard) ID() string               { return "s1" }
func (f *fakeDashboard) View() view.Document      { return view.Document{Revision: f.revision} }
func (f *fakeDashboard) State() state.FilterState { return state.FilterState{} }
func (f *fakeDashboard) Status() status.Snapshot  { return status.Snapshot{Line: "ok"} }
func (f *fakeDashboard) Dispatch(context.Context, session.Command) error {
	f.revision++
	return nil
}

func newTestRouter(t *testing.T) (http.Handler, *fakeDashboard) {
	t.Helper()
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "focosview_test"}, nil)
	require.NoError(t, err)
	metrics := prometheus.NewDashboardMetrics(collector)

	dash := &fakeDashboard{ready: true}
	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = []string{"http://dash.local"}
	return NewRouter(RouterConfig{
		DashboardHandler: handlers.NewDashboardHandler(dash, nil, nil),
		HealthHandler:    handlers.NewHealthHandler("test", func() bool { return dash.ready }),
		CORS:             &cors,
		Recorder:         metrics,
		Logger:           logging.NewNopLogger(),
		MetricsHandler:   collector.Handler(),
	}), dash
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, rd))
	return rec
}

func TestNewRouter_Routes(t *testing.T) {
	h, _ := newTestRouter(t)

	tests := []struct {
		method, path, body string
		code               int
	}{
		{http.MethodGet, "/healthz", "", http.StatusOK},
		{http.MethodGet, "/readyz", "", http.StatusOK},
		{http.MethodGet, "/api/view", "", http.StatusOK},
		{http.MethodGet, "/api/state", "", http.StatusOK},
		{http.MethodGet, "/api/status", "", http.StatusOK},
		{http.MethodPost, "/api/commands", `{"type":"refresh"}`, http.StatusAccepted},
		{http.MethodGet, "/api/history", "", http.StatusServiceUnavailable},
		{http.MethodGet, "/api/commands", "", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/unknown", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.code, serve(h, tt.method, tt.path, tt.body).Code)
		})
	}
}

func TestNewRouter_ReadinessFollowsDashboard(t *testing.T) {
	h, dash := newTestRouter(t)
	dash.ready = false
	assert.Equal(t, http.StatusServiceUnavailable, serve(h, http.MethodGet, "/readyz", "").Code)
}

func TestNewRouter_RequestIDAndCORS(t *testing.T) {
	h, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/view", nil)
	req.Header.Set("Origin", "http://dash.local")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "http://dash.local", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "0", rec.Header().Get(handlers.RevisionHeader))
}

func TestNewRouter_MetricsExposeHTTPRequests(t *testing.T) {
	h, _ := newTestRouter(t)
	serve(h, http.MethodPost, "/api/commands", `{"type":"refresh"}`)

	rec := serve(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `focosview_test_http_requests_total{method="POST",route="/api/commands",status_code="202"} 1`)
}

func TestNewRouter_NilHandlers_NoPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		h := NewRouter(RouterConfig{})
		assert.Equal(t, http.StatusNotFound, serve(h, http.MethodGet, "/api/view", "").Code)
	})
}

func TestNewRouter_Recoverer(t *testing.T) {
	h := NewRouter(RouterConfig{
		DashboardHandler: handlers.NewDashboardHandler(panicDashboard{&fakeDashboard{}}, nil, nil),
	})
	assert.Equal(t, http.StatusInternalServerError, serve(h, http.MethodGet, "/api/state", "").Code)
}

type panicDashboard struct{ *fakeDashboard }

func (panicDashboard) State() state.FilterState { panic("boom") }
