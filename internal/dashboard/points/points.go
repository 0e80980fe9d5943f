// Package points drives the detection-points overlay. It runs in its own
// cycle group, so panning the map never cancels the aggregate refresh and
// vice versa.
package points

import (
	"context"
	"sync"
	"time"

	"github.com/focosview/focosview/internal/dashboard/bundle"
	"github.com/focosview/focosview/internal/dashboard/debounce"
	"github.com/focosview/focosview/internal/dashboard/lifecycle"
	"github.com/focosview/focosview/internal/dashboard/reconciler"
	"github.com/focosview/focosview/internal/dashboard/state"
	"github.com/focosview/focosview/internal/dashboard/status"
	"github.com/focosview/focosview/internal/infrastructure/monitoring/logging"
	"github.com/focosview/focosview/internal/platform/clock"
	"github.com/focosview/focosview/pkg/client"
	"github.com/focosview/focosview/pkg/types/focos"
)

// DefaultDebounce is the viewport debounce window.
const DefaultDebounce = 320 * time.Millisecond

// ResolveDate picks the single day the points layer shows. A one-day range
// always wins; otherwise the mode decides, falling back to the peak day and
// then to the range start.
func ResolveDate(r focos.DateRange, mode state.PointsDateMode, custom focos.Date, summary *focos.Summary) (focos.Date, bundle.DateSource) {
	if r.From.IsZero() {
		return focos.Date{}, ""
	}
	if r.IsSingleDay() {
		return r.From, bundle.DateFromRange
	}
	switch mode {
	case state.PointsDateFrom:
		return r.From, bundle.DateFromRange
	case state.PointsDateCustom:
		if !custom.IsZero() {
			return custom, bundle.DateFromCustom
		}
	}
	if summary.HasPeak() {
		return summary.PeakDay, bundle.DateFromPeak
	}
	return r.From, bundle.DateFromRange
}

// Fetcher reads points; *client.GeoClient implements it.
type Fetcher interface {
	Points(ctx context.Context, req client.PointsRequest) (*focos.Points, error)
}

// Metrics is the subset of the dashboard metrics the refresher reports to.
type Metrics interface {
	CycleFinished(group, outcome string, d time.Duration)
	PointsApplied(returned int, truncated bool)
	Degraded(layer string)
}

type nopMetrics struct{}

func (nopMetrics) CycleFinished(string, string, time.Duration) {}
func (nopMetrics) PointsApplied(int, bool)                     {}
func (nopMetrics) Degraded(string)                             {}

// Config wires a Refresher.
type Config struct {
	Store      *state.Store
	Cycles     *lifecycle.Manager
	Fetcher    Fetcher
	Reconciler *reconciler.Reconciler
	Board      *status.Board
	// Summary returns the last committed summary, used for the peak day.
	Summary  func() *focos.Summary
	Clock    clock.Clock
	Debounce time.Duration
	Limit    int
	Logger   logging.Logger
	Metrics  Metrics
	// OnChange runs after every commit, outside the cycle lock.
	OnChange func()
}

// Refresher fetches and applies points for the current viewport.
type Refresher struct {
	cfg       Config
	debouncer *debounce.Debouncer
	parent    context.Context

	mu   sync.RWMutex
	hint string
}

// New returns a Refresher. Debounced refreshes derive their context from
// parent.
func New(parent context.Context, cfg Config) *Refresher {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Limit <= 0 {
		cfg.Limit = client.DefaultPointsLimit
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = nopMetrics{}
	}
	if cfg.Summary == nil {
		cfg.Summary = func() *focos.Summary { return nil }
	}
	r := &Refresher{cfg: cfg, parent: parent, hint: reconciler.HintPointsSingleDay}
	r.debouncer = debounce.New(cfg.Clock, cfg.Debounce, func() { r.Refresh(r.parent) })
	return r
}

// Schedule requests a debounced refresh.
func (r *Refresher) Schedule() {
	r.debouncer.Trigger()
}

// SetDebounce changes the debounce window.
func (r *Refresher) SetDebounce(d time.Duration) {
	if d > 0 {
		r.debouncer.SetWait(d)
	}
}

// Hint is the explanation of the day last shown.
func (r *Refresher) Hint() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hint
}

// Disable cancels any in-flight points cycle and clears the layer.
func (r *Refresher) Disable() {
	r.debouncer.Cancel()
	r.cfg.Cycles.Cancel(lifecycle.GroupPoints)
	r.cfg.Reconciler.ClearPoints(false)
	r.cfg.Board.SetPoints("")
	r.notify()
}

// Stop drops pending debounced work.
func (r *Refresher) Stop() {
	r.debouncer.Stop()
}

// Refresh runs one points cycle now.
func (r *Refresher) Refresh(ctx context.Context) lifecycle.Outcome {
	st := r.cfg.Store.Snapshot()
	if !st.UI.ShowPoints {
		r.Disable()
		return lifecycle.OutcomeSkipped
	}
	if !st.Range.IsComplete() {
		return lifecycle.OutcomeNotReady
	}
	if !st.Viewport.Valid() {
		return lifecycle.OutcomeSkipped
	}
	day, source := ResolveDate(st.Range, st.UI.PointsDateMode, st.UI.PointsDateCustom, r.cfg.Summary())
	if day.IsZero() {
		return lifecycle.OutcomeNotReady
	}

	start := r.cfg.Clock.Now()
	cycle := r.cfg.Cycles.Begin(ctx, lifecycle.GroupPoints)
	log := r.cfg.Logger.With(logging.Group(string(lifecycle.GroupPoints)), logging.Generation(cycle.Generation()))

	resp, err := r.cfg.Fetcher.Points(cycle.Context(), client.PointsRequest{
		Date:    day,
		BBox:    st.Viewport,
		Filters: st.Filters,
		Limit:   r.cfg.Limit,
	})
	outcome := r.finish(cycle, st, day, source, resp, err, log)
	r.cfg.Metrics.CycleFinished(string(lifecycle.GroupPoints), string(outcome), r.cfg.Clock.Now().Sub(start))
	if outcome == lifecycle.OutcomeCommitted || outcome == lifecycle.OutcomeFailed {
		r.notify()
	}
	return outcome
}

func (r *Refresher) finish(cycle *lifecycle.Cycle, st state.FilterState, day focos.Date, source bundle.DateSource,
	resp *focos.Points, err error, log logging.Logger) lifecycle.Outcome {
	if err != nil {
		if client.IsCanceled(err) || cycle.Context().Err() != nil {
			log.Debug("points cycle superseded")
			return lifecycle.OutcomeSuperseded
		}
		msg := "Pontos indisponiveis: " + err.Error()
		if !r.cfg.Cycles.Commit(cycle, func() {
			r.cfg.Reconciler.ClearPoints(true)
			r.cfg.Board.SetPoints(msg)
		}) {
			return lifecycle.OutcomeSuperseded
		}
		r.cfg.Metrics.Degraded("points")
		log.Warn("points fetch failed", logging.Err(err), logging.String("date", day.String()))
		return lifecycle.OutcomeFailed
	}

	b := &bundle.Points{
		Generation: cycle.Generation(),
		Date:       day,
		DateSource: source,
		BBox:       st.Viewport,
		Points:     resp.Points,
		Returned:   resp.Returned,
		Limit:      resp.Limit,
		Truncated:  resp.Truncated,
	}
	hint := reconciler.PointsHint(st.Range, source, day)
	if !r.cfg.Cycles.Commit(cycle, func() {
		r.cfg.Reconciler.ApplyPoints(b)
		r.cfg.Board.SetPoints("")
		r.mu.Lock()
		r.hint = hint
		r.mu.Unlock()
	}) {
		return lifecycle.OutcomeSuperseded
	}
	r.cfg.Metrics.PointsApplied(b.Returned, b.Truncated)
	log.Debug("points applied",
		logging.String("date", day.String()),
		logging.String("source", string(source)),
		logging.Int("returned", b.Returned),
		logging.Bool("truncated", b.Truncated))
	return lifecycle.OutcomeCommitted
}

func (r *Refresher) notify() {
	if r.cfg.OnChange != nil {
		r.cfg.OnChange()
	}
}
