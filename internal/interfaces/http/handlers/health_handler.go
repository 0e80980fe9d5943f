package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// HealthChecker is a component that can report its health; the Redis cache
// and the consistency archive implement it through NamedChecker.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// NamedChecker adapts a ping function to HealthChecker.
type NamedChecker struct {
	Component string
	Ping      func(ctx context.Context) error
}

func (n NamedChecker) Name() string                    { return n.Component }
func (n NamedChecker) Check(ctx context.Context) error { return n.Ping(ctx) }

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	checkers []HealthChecker
	ready    func() bool
	version  string
	startAt  time.Time
}

// NewHealthHandler creates a HealthHandler. ready reports whether the
// dashboard has committed its first refresh; nil means always ready.
func NewHealthHandler(version string, ready func() bool, checkers ...HealthChecker) *HealthHandler {
	return &HealthHandler{
		checkers: checkers,
		ready:    ready,
		version:  version,
		startAt:  time.Now(),
	}
}

// LivenessResponse is the response for liveness probe.
type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// ReadinessResponse is the response for readiness probe.
type ReadinessResponse struct {
	Status     string                    `json:"status"`
	Dashboard  string                    `json:"dashboard"`
	Components map[string]ComponentCheck `json:"components,omitempty"`
}

// ComponentCheck represents the health status of a single component.
type ComponentCheck struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Liveness handles GET /healthz. It never checks dependencies.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LivenessResponse{
		Status:  "alive",
		Version: h.version,
		Uptime:  time.Since(h.startAt).Truncate(time.Second).String(),
	})
}

// Readiness handles GET /readyz: 200 once the dashboard has data and every
// component answers, 503 otherwise.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := ReadinessResponse{Status: "ready", Dashboard: "ready"}
	if h.ready != nil && !h.ready() {
		resp.Status = "not_ready"
		resp.Dashboard = "loading"
	}
	if len(h.checkers) > 0 {
		resp.Components = h.checkAll(ctx)
		for _, c := range resp.Components {
			if c.Status != "healthy" {
				resp.Status = "not_ready"
				break
			}
		}
	}

	code := http.StatusOK
	if resp.Status != "ready" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

// checkAll runs all health checkers concurrently and returns results.
func (h *HealthHandler) checkAll(ctx context.Context) map[string]ComponentCheck {
	results := make(map[string]ComponentCheck, len(h.checkers))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, checker := range h.checkers {
		wg.Add(1)
		go func(c HealthChecker) {
			defer wg.Done()

			start := time.Now()
			err := c.Check(ctx)
			cc := ComponentCheck{
				Status:  "healthy",
				Latency: time.Since(start).Truncate(time.Microsecond).String(),
			}
			if err != nil {
				cc.Status = "unhealthy"
				cc.Error = err.Error()
			}

			mu.Lock()
			results[c.Name()] = cc
			mu.Unlock()
		}(checker)
	}

	wg.Wait()
	return results
}
