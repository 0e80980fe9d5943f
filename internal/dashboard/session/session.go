// Package session assembles one dashboard: the filter store, the request
// lifecycle, the refreshers and the view. Callers drive it with typed
// commands and read the resulting view document.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/focosview/focosview/internal/dashboard/bundle"
	"github.com/focosview/focosview/internal/dashboard/catalog"
	"github.com/focosview/focosview/internal/dashboard/debounce"
	"github.com/focosview/focosview/internal/dashboard/lifecycle"
	"github.com/focosview/focosview/internal/dashboard/orchestrator"
	"github.com/focosview/focosview/internal/dashboard/points"
	"github.com/focosview/focosview/internal/dashboard/reconciler"
	"github.com/focosview/focosview/internal/dashboard/state"
	"github.com/focosview/focosview/internal/dashboard/status"
	"github.com/focosview/focosview/internal/dashboard/validator"
	"github.com/focosview/focosview/internal/dashboard/view"
	"github.com/focosview/focosview/internal/infrastructure/monitoring/logging"
	"github.com/focosview/focosview/internal/platform/clock"
	"github.com/focosview/focosview/pkg/client"
	"github.com/focosview/focosview/pkg/errors"
	"github.com/focosview/focosview/pkg/types/focos"
)

// DefaultMainDebounce is the window of the main refresh trigger.
const DefaultMainDebounce = 150 * time.Millisecond

// Metrics is everything the session's components report.
type Metrics interface {
	orchestrator.Metrics
	PointsApplied(returned int, truncated bool)
}

// Config wires a Session.
type Config struct {
	Client  *client.Client
	Clock   clock.Clock
	Logger  logging.Logger
	Metrics Metrics
	Archive orchestrator.Archive

	MainDebounce   time.Duration
	PointsDebounce time.Duration
	SearchDebounce time.Duration

	TopLimit          int
	MunTopLimitWithUF int
	PointsLimit       int
	SearchLimit       int

	// Spawn runs work that must not block the caller. Defaults to a
	// goroutine.
	Spawn func(func())
}

// Session is one dashboard instance.
type Session struct {
	id     string
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc
	logger logging.Logger

	store   *state.Store
	cycles  *lifecycle.Manager
	board   *status.Board
	model   *view.Model
	recon   *reconciler.Reconciler
	orch    *orchestrator.Orchestrator
	points  *points.Refresher
	catalog *catalog.Catalog
	main    *debounce.Debouncer

	mu          sync.RWMutex
	lastOutcome lifecycle.Outcome
	committed   uint64
}

// New builds a session. The default date range ends on the clock's today.
func New(parent context.Context, cfg Config) (*Session, error) {
	if cfg.Client == nil {
		return nil, errors.ErrInvalidConfig.WithDetail("session needs an API client")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	if cfg.MainDebounce <= 0 {
		cfg.MainDebounce = DefaultMainDebounce
	}
	if cfg.Spawn == nil {
		cfg.Spawn = func(f func()) { go f() }
	}

	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		id:     uuid.NewString(),
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
		store:  state.New(focos.DateOf(cfg.Clock.Now())),
		cycles: lifecycle.NewManager(),
		board:  status.NewBoard(),
		model:  view.NewModel(),
	}
	s.logger = cfg.Logger.Named("session").With(logging.String("session_id", s.id))
	s.recon = reconciler.New(s.model, s.model, s.model, s.logger.Named("reconciler"))

	var (
		orchMetrics   orchestrator.Metrics
		pointsMetrics points.Metrics
	)
	if cfg.Metrics != nil {
		orchMetrics, pointsMetrics = cfg.Metrics, cfg.Metrics
	}

	s.points = points.New(ctx, points.Config{
		Store:      s.store,
		Cycles:     s.cycles,
		Fetcher:    cfg.Client.Geo(),
		Reconciler: s.recon,
		Board:      s.board,
		Summary:    func() *focos.Summary { return s.orch.LastSummary() },
		Clock:      cfg.Clock,
		Debounce:   cfg.PointsDebounce,
		Limit:      cfg.PointsLimit,
		Logger:     s.logger.Named("points"),
		Metrics:    pointsMetrics,
		OnChange:   s.publish,
	})
	s.orch = orchestrator.New(orchestrator.Config{
		Store:             s.store,
		Cycles:            s.cycles,
		Aggregates:        cfg.Client.Aggregates(),
		Geo:               cfg.Client.Geo(),
		Lookup:            cfg.Client.Catalog(),
		Reconciler:        s.recon,
		Board:             s.board,
		Clock:             cfg.Clock,
		Logger:            s.logger.Named("orchestrator"),
		Metrics:           orchMetrics,
		Archive:           cfg.Archive,
		TopLimit:          cfg.TopLimit,
		MunTopLimitWithUF: cfg.MunTopLimitWithUF,
		OnCommit:          s.afterCommit,
	})
	s.catalog = catalog.New(ctx, catalog.Config{
		Source:      cfg.Client.Catalog(),
		Sink:        s.model,
		Store:       s.store,
		Cycles:      s.cycles,
		Clock:       cfg.Clock,
		Debounce:    cfg.SearchDebounce,
		SearchLimit: cfg.SearchLimit,
		Logger:      s.logger.Named("catalog"),
	})
	s.main = debounce.New(cfg.Clock, cfg.MainDebounce, func() { s.Refresh(s.ctx) })
	s.publish()
	return s, nil
}

// ID identifies the session in logs and archive rows.
func (s *Session) ID() string { return s.id }

// Start loads the filter options and runs the first refresh.
func (s *Session) Start(ctx context.Context) lifecycle.Outcome {
	if err := s.catalog.LoadOptions(ctx); err != nil && !client.IsCanceled(err) {
		s.logger.Warn("filter options incomplete", logging.Err(err))
	}
	return s.Refresh(ctx)
}

// Close cancels every in-flight cycle and pending trigger.
func (s *Session) Close() {
	s.main.Stop()
	s.points.Stop()
	s.catalog.Stop()
	s.cycles.CancelAll()
	s.cancel()
}

// Refresh runs a main cycle now.
func (s *Session) Refresh(ctx context.Context) lifecycle.Outcome {
	outcome := s.orch.Refresh(ctx)
	s.mu.Lock()
	if outcome != lifecycle.OutcomeSuperseded {
		s.lastOutcome = outcome
	}
	if outcome == lifecycle.OutcomeCommitted {
		s.committed++
	}
	s.mu.Unlock()
	s.publish()
	return outcome
}

// Preset seeds a session before its first refresh.
type Preset struct {
	Range          focos.DateRange
	Filters        focos.Filters
	MunicipalLayer bool
}

// Apply writes p into the state without scheduling any refresh. A
// municipality without a UF is resolved through the lookup endpoint.
func (s *Session) Apply(ctx context.Context, p Preset) error {
	if !p.Range.From.IsZero() || !p.Range.To.IsZero() {
		if !p.Range.IsComplete() {
			return errors.ErrNotReady.WithDetail("preset range needs both ends")
		}
		r, notice := orchestrator.NormalizeRange(p.Range)
		s.store.SetDateRange(r)
		if notice != "" {
			s.board.SetNotice(notice)
		}
	}
	s.store.PatchFilters(state.Patch{
		focos.DimUF:    p.Filters.UF,
		focos.DimBioma: p.Filters.Bioma,
		focos.DimUC:    p.Filters.UC,
		focos.DimTI:    p.Filters.TI,
	})
	if p.Filters.Mun != "" {
		if p.Filters.UF != "" {
			s.store.PatchFilters(state.Patch{focos.DimMun: p.Filters.Mun})
		} else if !s.orch.SelectMunicipality(ctx, p.Filters.Mun, "", false) {
			s.publish()
			return errors.InvalidParam("unknown municipality").WithDetail("mun=" + p.Filters.Mun)
		}
	}
	if p.MunicipalLayer {
		s.store.SetMunicipalLayer(true)
	}
	s.publish()
	return nil
}

// SetDebounce changes the main and points debounce windows; zero keeps a
// window unchanged.
func (s *Session) SetDebounce(main, pts time.Duration) {
	if main > 0 {
		s.main.SetWait(main)
	}
	s.points.SetDebounce(pts)
}

// RefreshPoints runs a points cycle now.
func (s *Session) RefreshPoints(ctx context.Context) lifecycle.Outcome {
	outcome := s.points.Refresh(ctx)
	s.publish()
	return outcome
}

// Ready reports whether at least one main cycle has committed.
func (s *Session) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed > 0
}

// LastOutcome is the outcome of the newest finished main cycle.
func (s *Session) LastOutcome() lifecycle.Outcome {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastOutcome
}

// LastResult is the validation of the last committed bundle.
func (s *Session) LastResult() validator.Result { return s.orch.LastResult() }

// State returns the current filter state.
func (s *Session) State() state.FilterState { return s.store.Snapshot() }

// View returns the current view document.
func (s *Session) View() view.Document { return s.model.Snapshot() }

// Status returns the current status board.
func (s *Session) Status() status.Snapshot { return s.board.Snapshot() }

func (s *Session) afterCommit(_ *bundle.Aggregate, _ validator.Result) {
	if s.store.Snapshot().UI.ShowPoints {
		s.points.Refresh(s.ctx)
	}
}

// publish reflects state, hints and status into the view.
func (s *Session) publish() {
	st := s.store.Snapshot()
	board := s.board.Snapshot()

	filterLabels := make(map[focos.Dimension]string, len(focos.Dimensions))
	for _, dim := range focos.Dimensions {
		filterLabels[dim] = state.DisplayLabel(st, dim)
	}
	munHint := state.MunicipalLayerHint(st)
	if board.Municipal != "" {
		munHint = board.Municipal
	}
	chips := state.Chips(st)
	if chips == nil {
		chips = []state.Chip{}
	}
	s.model.SetControls(view.ControlsView{
		State:              st,
		Chips:              chips,
		FilterLabels:       filterLabels,
		MunLayerEnabled:    st.Filters.UF != "",
		MunLayerHint:       munHint,
		PointsHint:         s.points.Hint(),
		PointsCustomActive: st.UI.PointsDateMode == state.PointsDateCustom,
	})
	s.model.SetStatus(board)
}
