// Package orchestrator runs the main refresh cycle: a concurrent batch of
// aggregate fetches, the dependent municipal layer and selection overlay,
// validation, and one atomic commit to the view.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/focosview/focosview/internal/dashboard/bundle"
	"github.com/focosview/focosview/internal/dashboard/labels"
	"github.com/focosview/focosview/internal/dashboard/lifecycle"
	"github.com/focosview/focosview/internal/dashboard/reconciler"
	"github.com/focosview/focosview/internal/dashboard/state"
	"github.com/focosview/focosview/internal/dashboard/status"
	"github.com/focosview/focosview/internal/dashboard/validator"
	"github.com/focosview/focosview/internal/infrastructure/monitoring/logging"
	"github.com/focosview/focosview/internal/platform/clock"
	"github.com/focosview/focosview/pkg/client"
	"github.com/focosview/focosview/pkg/types/focos"
)

// Default ranking sizes.
const (
	DefaultTopLimit          = 10
	DefaultMunTopLimitWithUF = 20
)

// Status messages of the bounds fallbacks.
const (
	MsgBoundsFallbackUF      = "Bounds da camada indisponivel; zoom aplicado no UF selecionado."
	MsgGeometrySourceMissing = "Fonte de geometria nao configurada para fit bounds."
	MsgGeometryNotFound      = "Bounds nao encontrados para o item selecionado."
	MsgSelectUFForMun        = "Selecione uma UF para explorar municipios."
)

// Aggregates reads the range-scoped aggregates; *client.AggregatesClient
// implements it.
type Aggregates interface {
	Summary(ctx context.Context, s client.Scope) (*focos.Summary, error)
	ChoroplethUF(ctx context.Context, s client.Scope) (*focos.Choropleth, error)
	ChoroplethMun(ctx context.Context, s client.Scope) (*focos.Choropleth, error)
	Top(ctx context.Context, group focos.Dimension, s client.Scope, limit int) (*focos.Top, error)
	Timeseries(ctx context.Context, s client.Scope) (*focos.Timeseries, error)
	Totals(ctx context.Context, s client.Scope) (*focos.Totals, error)
	Validate(ctx context.Context, s client.Scope) (*focos.Validation, error)
}

// Geo reads bounds and overlays; *client.GeoClient implements it.
type Geo interface {
	Bounds(ctx context.Context, entity focos.Dimension, key, uf string) (*focos.Bounds, error)
	Overlay(ctx context.Context, entity focos.Dimension, key string, s client.Scope) (*focos.GeoOverlay, error)
}

// Lookup resolves a municipality to its UF; *client.CatalogClient
// implements it.
type Lookup interface {
	LookupMunicipality(ctx context.Context, key string) (*focos.MunicipalityLookup, error)
}

// Metrics is the subset of the dashboard metrics the orchestrator reports to.
type Metrics interface {
	CycleFinished(group, outcome string, d time.Duration)
	Inconsistency(check string)
	Degraded(layer string)
}

// Archive stores the verdict of committed cycles.
type Archive interface {
	Record(ctx context.Context, b *bundle.Aggregate, r validator.Result, statusLine string) error
}

type nopMetrics struct{}

func (nopMetrics) CycleFinished(string, string, time.Duration) {}
func (nopMetrics) Inconsistency(string)                        {}
func (nopMetrics) Degraded(string)                             {}

// Config wires an Orchestrator.
type Config struct {
	Store      *state.Store
	Cycles     *lifecycle.Manager
	Aggregates Aggregates
	Geo        Geo
	Lookup     Lookup
	Reconciler *reconciler.Reconciler
	Board      *status.Board
	Clock      clock.Clock
	Logger     logging.Logger
	Metrics    Metrics
	Archive    Archive

	TopLimit          int
	MunTopLimitWithUF int

	// OnCommit runs after a bundle is committed, outside the cycle lock.
	OnCommit func(b *bundle.Aggregate, r validator.Result)
}

type focusRequest struct {
	entity focos.Dimension
	key    string
}

// Orchestrator runs main cycles.
type Orchestrator struct {
	cfg Config

	mu          sync.Mutex
	focus       *focusRequest
	lastSummary *focos.Summary
	lastResult  validator.Result
}

// New returns an Orchestrator.
func New(cfg Config) *Orchestrator {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = nopMetrics{}
	}
	if cfg.TopLimit <= 0 {
		cfg.TopLimit = DefaultTopLimit
	}
	if cfg.MunTopLimitWithUF <= 0 {
		cfg.MunTopLimitWithUF = DefaultMunTopLimitWithUF
	}
	return &Orchestrator{cfg: cfg}
}

// RequestOverlayFocus asks the next cycle to fit the map to the overlay of
// entity/key once it loads.
func (o *Orchestrator) RequestOverlayFocus(entity focos.Dimension, key string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.focus = &focusRequest{entity: entity, key: key}
}

// ClearOverlayFocus drops a pending overlay focus.
func (o *Orchestrator) ClearOverlayFocus() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.focus = nil
}

func (o *Orchestrator) pendingFocus(entity focos.Dimension, key string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.focus != nil && o.focus.entity == entity && o.focus.key == key
}

// LastSummary returns the summary of the last committed cycle.
func (o *Orchestrator) LastSummary() *focos.Summary {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastSummary
}

// LastResult returns the validation result of the last committed cycle.
func (o *Orchestrator) LastResult() validator.Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastResult
}

// Refresh runs one main cycle for the current state.
func (o *Orchestrator) Refresh(ctx context.Context) lifecycle.Outcome {
	st := o.cfg.Store.Snapshot()
	if !st.Range.IsComplete() {
		return lifecycle.OutcomeNotReady
	}

	start := o.cfg.Clock.Now()
	cycle := o.cfg.Cycles.Begin(ctx, lifecycle.GroupMain)
	log := o.cfg.Logger.With(logging.Group(string(lifecycle.GroupMain)), logging.Generation(cycle.Generation()))
	outcome := o.run(cycle, st, log)
	o.cfg.Metrics.CycleFinished(string(lifecycle.GroupMain), string(outcome), o.cfg.Clock.Now().Sub(start))
	log.Debug("main cycle finished", logging.String("outcome", string(outcome)),
		logging.Duration("elapsed", o.cfg.Clock.Now().Sub(start)))
	return outcome
}

func (o *Orchestrator) run(cycle *lifecycle.Cycle, st state.FilterState, log logging.Logger) lifecycle.Outcome {
	ctx := cycle.Context()
	b, err := o.fetchBatch(ctx, st)
	if err != nil {
		if client.IsCanceled(err) || ctx.Err() != nil {
			return lifecycle.OutcomeSuperseded
		}
		if !o.cfg.Cycles.Commit(cycle, func() { o.cfg.Board.SetFailure(err.Error()) }) {
			return lifecycle.OutcomeSuperseded
		}
		log.Error("main cycle failed", logging.Err(err))
		return lifecycle.OutcomeFailed
	}
	b.Generation = cycle.Generation()
	b.State = st

	notice := o.fetchDependent(ctx, st, b, log)
	if ctx.Err() != nil {
		return lifecycle.OutcomeSuperseded
	}
	for _, top := range b.Top {
		labels.NormalizeTop(top)
	}

	result := validator.Validate(b)
	report := status.MainReport{
		Consistency: result.Message,
		Municipal:   b.Warnings.Municipal,
		Overlay:     b.Warnings.Overlay,
	}
	committed := o.cfg.Cycles.Commit(cycle, func() {
		// Points mode may have toggled while the cycle was in flight; the
		// choropleth takes its interactivity from the store as it is now.
		b.State.UI.ShowPoints = o.cfg.Store.Snapshot().UI.ShowPoints
		o.cfg.Reconciler.Apply(b)
		o.cfg.Board.SetMain(report)
		if notice != "" {
			o.cfg.Board.SetNotice(notice)
		}
		o.mu.Lock()
		o.lastSummary = b.Summary
		o.lastResult = result
		if b.Overlay == nil || o.focus == nil ||
			(o.focus.entity == b.Overlay.Entity && o.focus.key == b.Overlay.Key) {
			o.focus = nil
		}
		o.mu.Unlock()
	})
	if !committed {
		return lifecycle.OutcomeSuperseded
	}

	if !result.OK() {
		o.cfg.Metrics.Inconsistency(string(result.Check))
		log.Warn("aggregates do not reconcile",
			logging.String("check", string(result.Check)),
			logging.Int64("total", result.Total),
			logging.Int64("timeseries_sum", result.TimeseriesSum),
			logging.Int64("map_uf_sum", result.MapUFSum))
	}
	if b.Warnings.Municipal != "" {
		o.cfg.Metrics.Degraded("municipal")
	}
	if b.Warnings.Overlay != "" {
		o.cfg.Metrics.Degraded("overlay")
	}
	if o.cfg.Archive != nil {
		if err := o.cfg.Archive.Record(context.WithoutCancel(ctx), b, result, o.cfg.Board.Line()); err != nil {
			log.Warn("archive write failed", logging.Err(err))
		}
	}
	if o.cfg.OnCommit != nil {
		o.cfg.OnCommit(b, result)
	}
	return lifecycle.OutcomeCommitted
}

// fetchBatch issues the independent fetches concurrently. The first
// required failure cancels the rest; validate is best-effort.
func (o *Orchestrator) fetchBatch(ctx context.Context, st state.FilterState) (*bundle.Aggregate, error) {
	scope := client.Scope{Range: st.Range, Filters: st.Filters}
	b := &bundle.Aggregate{}
	tops := make([]*focos.Top, len(focos.Dimensions))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		b.Summary, err = o.cfg.Aggregates.Summary(gctx, scope)
		return err
	})
	g.Go(func() (err error) {
		b.UF, err = o.cfg.Aggregates.ChoroplethUF(gctx, scope)
		return err
	})
	for i, dim := range focos.Dimensions {
		i, dim := i, dim
		limit := o.cfg.TopLimit
		if dim == focos.DimMun && st.Filters.UF != "" {
			limit = o.cfg.MunTopLimitWithUF
		}
		g.Go(func() (err error) {
			tops[i], err = o.cfg.Aggregates.Top(gctx, dim, scope, limit)
			return err
		})
	}
	g.Go(func() (err error) {
		b.Timeseries, err = o.cfg.Aggregates.Timeseries(gctx, scope)
		return err
	})
	g.Go(func() (err error) {
		b.Totals, err = o.cfg.Aggregates.Totals(gctx, scope)
		return err
	})
	g.Go(func() error {
		v, err := o.cfg.Aggregates.Validate(gctx, scope)
		if err != nil {
			o.cfg.Logger.Debug("validate unavailable", logging.Err(err))
			return nil
		}
		b.Validation = v
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b.Top = make(map[focos.Dimension]*focos.Top, len(tops))
	for i, dim := range focos.Dimensions {
		if tops[i] != nil && tops[i].Group == "" {
			tops[i].Group = dim
		}
		b.Top[dim] = tops[i]
	}
	return b, nil
}

// fetchDependent loads the municipal layer and the selection overlay
// concurrently. Both are optional: failures become warnings. It returns a
// bounds notice when the overlay focus had to fall back.
func (o *Orchestrator) fetchDependent(ctx context.Context, st state.FilterState, b *bundle.Aggregate, log logging.Logger) string {
	scope := client.Scope{Range: st.Range, Filters: st.Filters}
	var notice string
	var g errgroup.Group

	if st.UI.ShowMunicipalLayer && st.Filters.UF != "" {
		g.Go(func() error {
			mun, err := o.cfg.Aggregates.ChoroplethMun(ctx, scope)
			if err != nil {
				if !client.IsCanceled(err) {
					b.Warnings.Municipal = "Camada municipal indisponivel: " + err.Error()
					log.Warn("municipal layer unavailable", logging.Err(err))
				}
				return nil
			}
			b.Mun = mun
			return nil
		})
	}

	if entity, key, ok := st.Filters.Overlay(); ok {
		focus := o.pendingFocus(entity, key)
		g.Go(func() error {
			geo, err := o.cfg.Geo.Overlay(ctx, entity, key, scope)
			if err != nil {
				if client.IsCanceled(err) {
					return nil
				}
				b.Warnings.Overlay = fmt.Sprintf("Destaque %s indisponivel: %s", strings.ToUpper(string(entity)), err.Error())
				log.Warn("overlay unavailable", logging.Err(err), logging.String("entity", string(entity)))
				if focus {
					b.Viewport, notice = o.resolveBounds(ctx, entity, key, st)
				}
				return nil
			}
			ov := &bundle.Overlay{Entity: entity, Key: key, GeoJSON: geo.GeoJSON}
			if box, ok := focos.GeoJSONBBox(geo.GeoJSON); ok {
				ov.BBox = box
			}
			b.Overlay = ov
			if focus {
				if ov.BBox.Valid() {
					b.Viewport = bundle.Fit(ov.BBox)
				} else {
					b.Viewport, notice = o.resolveBounds(ctx, entity, key, st)
				}
			}
			return nil
		})
	}

	_ = g.Wait()
	return notice
}

// FetchBoundsAndFit fits the map to dim/key now, with the UF and country
// fallbacks. It returns the action applied.
func (o *Orchestrator) FetchBoundsAndFit(ctx context.Context, dim focos.Dimension, key string) bundle.ViewportAction {
	if key == "" {
		return bundle.ViewportAction{}
	}
	st := o.cfg.Store.Snapshot()
	action, notice := o.resolveBounds(ctx, dim, key, st)
	if ctx.Err() != nil {
		return bundle.ViewportAction{}
	}
	o.cfg.Reconciler.Fit(action)
	if notice != "" {
		o.cfg.Board.SetNotice(notice)
	}
	return action
}

// resolveBounds decides the viewport for dim/key: its own bounds, else the
// selected UF's bounds, else the whole country. The notice explains a
// fallback.
func (o *Orchestrator) resolveBounds(ctx context.Context, dim focos.Dimension, key string, st state.FilterState) (bundle.ViewportAction, string) {
	uf := st.Filters.UF
	box, err := o.bounds(ctx, dim, key, uf)
	if err == nil {
		return bundle.Fit(box), ""
	}
	if client.IsCanceled(err) {
		return bundle.ViewportAction{}, ""
	}
	o.cfg.Logger.Debug("bounds unavailable", logging.Err(err),
		logging.String("entity", string(dim)), logging.String("key", key))

	if uf != "" && dim != focos.DimUF {
		if ufBox, ufErr := o.bounds(ctx, focos.DimUF, uf, uf); ufErr == nil {
			return bundle.Fit(ufBox), MsgBoundsFallbackUF
		}
	}
	return bundle.FitWholeCountry(), boundsMessage(err)
}

func (o *Orchestrator) bounds(ctx context.Context, dim focos.Dimension, key, uf string) (focos.BBox, error) {
	resp, err := o.cfg.Geo.Bounds(ctx, dim, key, uf)
	if err != nil {
		return focos.BBox{}, err
	}
	box, ok := focos.BBoxFromSlice(resp.BBox)
	if !ok || !box.Valid() {
		return focos.BBox{}, fmt.Errorf("geometry not found: invalid bbox for %s %s", dim, key)
	}
	return box, nil
}

func boundsMessage(err error) string {
	if apiErr, ok := client.AsAPIError(err); ok {
		switch {
		case apiErr.IsGeometrySourceMissing():
			return MsgGeometrySourceMissing
		case apiErr.IsGeometryNotFound():
			return MsgGeometryNotFound
		}
		return ""
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "geometry source not configured"):
		return MsgGeometrySourceMissing
	case strings.Contains(msg, "geometry not found"):
		return MsgGeometryNotFound
	}
	return ""
}

// SelectMunicipality selects (or, when already selected, deselects) a
// municipality. The owning UF comes from the lookup endpoint, falling back
// to the selected UF. It reports whether the state changed.
func (o *Orchestrator) SelectMunicipality(ctx context.Context, key, label string, withBounds bool) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}
	st := o.cfg.Store.Snapshot()
	if st.Filters.UF != "" && st.Filters.Mun == key {
		o.cfg.Store.PatchFilters(state.Patch{focos.DimMun: ""})
		if withBounds {
			o.FetchBoundsAndFit(ctx, focos.DimUF, st.Filters.UF)
		}
		return true
	}

	uf := st.Filters.UF
	if o.cfg.Lookup != nil {
		found, err := o.cfg.Lookup.LookupMunicipality(ctx, key)
		switch {
		case err != nil:
			if client.IsCanceled(err) {
				return false
			}
			o.cfg.Logger.Debug("municipality lookup failed", logging.Err(err), logging.String("mun", key))
		case found.UF != "":
			uf = strings.ToUpper(found.UF)
			if label == "" {
				label = found.MunNome
			}
		}
	}
	if uf == "" {
		o.cfg.Board.SetNotice(MsgSelectUFForMun)
		return false
	}

	o.cfg.Store.PatchFilters(state.Patch{focos.DimUF: uf, focos.DimMun: key})
	o.cfg.Store.SetMunicipalLayer(true)
	if label != "" {
		o.cfg.Store.SetLabel(focos.DimMun, label)
	}
	if withBounds {
		o.FetchBoundsAndFit(ctx, focos.DimMun, key)
	}
	return true
}
