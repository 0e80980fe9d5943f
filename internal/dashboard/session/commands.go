package session

import (
	"context"
	"strings"

	"github.com/focosview/focosview/internal/dashboard/bundle"
	"github.com/focosview/focosview/internal/dashboard/orchestrator"
	"github.com/focosview/focosview/internal/dashboard/state"
	"github.com/focosview/focosview/internal/infrastructure/monitoring/logging"
	"github.com/focosview/focosview/pkg/errors"
	"github.com/focosview/focosview/pkg/types/focos"
)

// Layer names a toggleable map layer.
type Layer string

const (
	LayerMunicipal Layer = "mun"
	LayerPoints    Layer = "points"
)

// CommandType names a Command.
type CommandType string

const (
	CmdSelectDimension   CommandType = "select_dimension"
	CmdSetFilter         CommandType = "set_filter"
	CmdSetDateRange      CommandType = "set_date_range"
	CmdToggleLayer       CommandType = "toggle_layer"
	CmdSetViewport       CommandType = "set_viewport"
	CmdSetPointsDateMode CommandType = "set_points_date_mode"
	CmdRemoveChip        CommandType = "remove_chip"
	CmdClearFilters      CommandType = "clear_filters"
	CmdSearchOptions     CommandType = "search_options"
	CmdRefresh           CommandType = "refresh"
)

// Command is the wire form of every user action. Only the fields of its
// Type are read.
type Command struct {
	Type       CommandType     `json:"type"`
	Dimension  focos.Dimension `json:"dimension,omitempty"`
	Key        string          `json:"key,omitempty"`
	Label      string          `json:"label,omitempty"`
	WithBounds bool            `json:"with_bounds,omitempty"`
	From       string          `json:"from,omitempty"`
	To         string          `json:"to,omitempty"`
	Layer      Layer           `json:"layer,omitempty"`
	On         bool            `json:"on,omitempty"`
	BBox       []float64       `json:"bbox,omitempty"`
	Mode       string          `json:"mode,omitempty"`
	Custom     string          `json:"custom,omitempty"`
	Text       string          `json:"text,omitempty"`
}

// Dispatch runs cmd.
func (s *Session) Dispatch(ctx context.Context, cmd Command) error {
	switch cmd.Type {
	case CmdSelectDimension:
		return s.SelectDimension(ctx, cmd.Dimension, cmd.Key, cmd.Label, cmd.WithBounds)
	case CmdSetFilter:
		return s.SetFilter(ctx, cmd.Dimension, cmd.Key, cmd.Label, cmd.WithBounds)
	case CmdSetDateRange:
		return s.ApplyDateInputs(cmd.From, cmd.To)
	case CmdToggleLayer:
		return s.ToggleLayer(cmd.Layer, cmd.On)
	case CmdSetViewport:
		box, ok := focos.BBoxFromSlice(cmd.BBox)
		if !ok {
			return errors.ErrInvalidBBox
		}
		return s.SetViewport(box)
	case CmdSetPointsDateMode:
		var custom focos.Date
		if strings.TrimSpace(cmd.Custom) != "" {
			d, err := focos.ParseDate(cmd.Custom)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid custom points date").WithDetail("field=custom")
			}
			custom = d
		}
		s.SetPointsDateMode(state.ParsePointsDateMode(cmd.Mode), custom)
		return nil
	case CmdRemoveChip:
		return s.RemoveChip(cmd.Dimension)
	case CmdClearFilters:
		s.ClearFilters()
		return nil
	case CmdSearchOptions:
		return s.SearchOptions(cmd.Dimension, cmd.Text)
	case CmdRefresh:
		s.refreshSoon()
		return nil
	default:
		return errors.InvalidParam("unknown command").WithDetail("type=" + string(cmd.Type))
	}
}

func checkDimension(dim focos.Dimension) error {
	if _, ok := focos.ParseDimension(string(dim)); !ok {
		return errors.InvalidParam("unknown dimension").WithDetail("dimension=" + string(dim))
	}
	return nil
}

// begin starts a user command: the previous notice is dropped.
func (s *Session) begin(name string) {
	s.board.SetNotice("")
	s.logger.Debug("command", logging.String("command", name))
}

// refreshSoon runs a main cycle without waiting for the debounce window.
func (s *Session) refreshSoon() {
	s.main.Cancel()
	s.cfg.Spawn(func() { s.Refresh(s.ctx) })
}

// SelectDimension toggles key on dim, the way a click on a chart bar, a
// table row or a map feature does. withBounds also fits the map to the
// selection.
func (s *Session) SelectDimension(ctx context.Context, dim focos.Dimension, key, label string, withBounds bool) error {
	if err := checkDimension(dim); err != nil {
		return err
	}
	s.begin("select_dimension")
	defer s.publish()

	if dim == focos.DimMun {
		if s.orch.SelectMunicipality(ctx, key, label, withBounds) {
			s.main.Trigger()
		}
		return nil
	}

	prevUF := s.store.Snapshot().Filters.UF
	next := s.store.ToggleFilter(dim, key)
	s.afterSelect(ctx, dim, next, label, prevUF, withBounds)
	s.main.Trigger()
	return nil
}

// SetFilter sets dim to key, the way a dropdown does. An empty key clears
// the dimension.
func (s *Session) SetFilter(ctx context.Context, dim focos.Dimension, key, label string, withBounds bool) error {
	if err := checkDimension(dim); err != nil {
		return err
	}
	s.begin("set_filter")
	defer s.publish()

	key = strings.TrimSpace(key)
	if dim == focos.DimMun {
		if key == "" {
			s.store.PatchFilters(state.Patch{focos.DimMun: ""})
			s.main.Trigger()
			return nil
		}
		if s.store.Snapshot().Filters.Mun == key {
			return nil
		}
		if s.orch.SelectMunicipality(ctx, key, label, withBounds) {
			s.main.Trigger()
		}
		return nil
	}

	prev := s.store.Snapshot().Filters
	next := s.store.PatchFilters(state.Patch{dim: key}).Filters.Get(dim)
	s.afterSelect(ctx, dim, next, label, prev.UF, withBounds)
	s.main.Trigger()
	return nil
}

// afterSelect caches the label and moves the map for a changed selection.
func (s *Session) afterSelect(ctx context.Context, dim focos.Dimension, next, label, prevUF string, withBounds bool) {
	if next != "" {
		if label == "" {
			label, _ = s.catalog.Label(dim, next)
		}
		s.store.SetLabel(dim, label)
	}

	switch {
	case dim == focos.DimUF && next == "":
		s.store.SetMunicipalLayer(false)
		if prevUF != "" {
			s.recon.Fit(bundle.FitWholeCountry())
		}
		return
	case dim == focos.DimUF:
		s.store.SetMunicipalLayer(true)
	case dim.IsOverlay():
		if next == "" {
			s.orch.ClearOverlayFocus()
			s.recon.ClearOverlay()
		} else if withBounds {
			s.orch.RequestOverlayFocus(dim, next)
		}
		return
	}
	if withBounds && next != "" {
		s.orch.FetchBoundsAndFit(ctx, dim, next)
	}
}

// SetDateRange stores r, repairing an inverted or empty range, and
// schedules a refresh.
func (s *Session) SetDateRange(r focos.DateRange) {
	s.begin("set_date_range")
	defer s.publish()
	r, notice := orchestrator.NormalizeRange(r)
	s.store.SetDateRange(r)
	if notice != "" {
		s.board.SetNotice(notice)
	}
	s.main.Trigger()
}

// ApplyDateInputs parses the two date inputs and refreshes right away.
// Incomplete inputs leave the range untouched and post a notice.
func (s *Session) ApplyDateInputs(fromText, toText string) error {
	s.begin("apply_date_inputs")
	defer s.publish()
	r, notice, err := orchestrator.ParseDateInputs(fromText, toText)
	if err != nil {
		return err
	}
	if !r.IsComplete() {
		s.board.SetNotice(orchestrator.MsgRangeRequired)
		return errors.ErrNotReady
	}
	s.store.SetDateRange(r)
	if notice != "" {
		s.board.SetNotice(notice)
	}
	s.refreshSoon()
	return nil
}

// ToggleLayer switches the municipal or points layer.
func (s *Session) ToggleLayer(layer Layer, on bool) error {
	switch layer {
	case LayerMunicipal:
		s.begin("toggle_mun_layer")
		defer s.publish()
		if s.store.Snapshot().UI.ShowMunicipalLayer == on {
			return nil
		}
		if !s.store.SetMunicipalLayer(on) && on {
			return nil
		}
		s.main.Trigger()
		return nil
	case LayerPoints:
		s.begin("toggle_points")
		defer s.publish()
		s.store.SetShowPoints(on)
		s.recon.Restyle(s.store.Snapshot())
		if !on {
			s.points.Disable()
			return nil
		}
		s.cfg.Spawn(func() { s.RefreshPoints(s.ctx) })
		return nil
	default:
		return errors.InvalidParam("unknown layer").WithDetail("layer=" + string(layer))
	}
}

// SetViewport records the visible map box and schedules a points refresh
// when points are shown.
func (s *Session) SetViewport(box focos.BBox) error {
	if !box.Valid() {
		return errors.ErrInvalidBBox
	}
	s.store.SetViewport(box)
	if s.store.Snapshot().UI.ShowPoints {
		s.points.Schedule()
	}
	return nil
}

// SetPointsDateMode changes which day the points layer shows.
func (s *Session) SetPointsDateMode(mode state.PointsDateMode, custom focos.Date) {
	s.begin("set_points_date_mode")
	defer s.publish()
	s.store.SetPointsDateMode(mode, custom)
	if s.store.Snapshot().UI.ShowPoints {
		s.cfg.Spawn(func() { s.RefreshPoints(s.ctx) })
	}
}

// RemoveChip clears one dimension filter.
func (s *Session) RemoveChip(dim focos.Dimension) error {
	if err := checkDimension(dim); err != nil {
		return err
	}
	s.begin("remove_chip")
	defer s.publish()

	switch {
	case dim == focos.DimUF:
		s.store.PatchFilters(state.Patch{focos.DimUF: "", focos.DimMun: ""})
		s.store.SetMunicipalLayer(false)
		s.recon.Fit(bundle.FitWholeCountry())
	case dim.IsOverlay():
		s.store.PatchFilters(state.Patch{dim: ""})
		s.orch.ClearOverlayFocus()
		s.recon.ClearOverlay()
	default:
		s.store.PatchFilters(state.Patch{dim: ""})
	}
	s.main.Trigger()
	return nil
}

// ClearFilters restores the default range, drops every filter, hides the
// points and refreshes right away.
func (s *Session) ClearFilters() {
	s.begin("clear_filters")
	defer s.publish()

	s.store.ResetRange(focos.DateOf(s.cfg.Clock.Now()))
	s.store.ClearDimensionFilters()
	s.store.SetShowPoints(false)
	s.points.Disable()
	s.orch.ClearOverlayFocus()
	s.recon.ClearOverlay()
	s.recon.Fit(bundle.FitWholeCountry())
	s.refreshSoon()
}

// SearchOptions schedules a debounced candidate search for dim.
func (s *Session) SearchOptions(dim focos.Dimension, text string) error {
	if err := checkDimension(dim); err != nil {
		return err
	}
	s.catalog.Search(dim, text)
	return nil
}
