// Package state holds the single filter/date/UI state of a dashboard
// session. Every mutation goes through the Store and ends with invariant
// repair, so no reader can observe an invalid combination.
package state

import (
	"strings"
	"sync"

	"github.com/focosview/focosview/internal/dashboard/labels"
	"github.com/focosview/focosview/pkg/types/focos"
)

// PointsDateMode selects which day the points layer shows.
type PointsDateMode string

const (
	PointsDateFrom   PointsDateMode = "from"
	PointsDatePeak   PointsDateMode = "peak_day"
	PointsDateCustom PointsDateMode = "custom"
)

// ParsePointsDateMode maps raw input to a mode; unknown input is peak_day.
func ParsePointsDateMode(s string) PointsDateMode {
	switch PointsDateMode(strings.TrimSpace(s)) {
	case PointsDateFrom:
		return PointsDateFrom
	case PointsDateCustom:
		return PointsDateCustom
	default:
		return PointsDatePeak
	}
}

// DefaultRangeDays is the width of the "last 30 days" preset.
const DefaultRangeDays = 30

// UIFlags are the layer toggles that take part in the invariants.
type UIFlags struct {
	ShowMunicipalLayer bool           `json:"show_municipal_layer"`
	ShowPoints         bool           `json:"show_points"`
	PointsDateMode     PointsDateMode `json:"points_date_mode"`
	PointsDateCustom   focos.Date     `json:"points_date_custom"`
}

// FilterState is an immutable snapshot of the store.
type FilterState struct {
	Range    focos.DateRange            `json:"range"`
	Filters  focos.Filters              `json:"filters"`
	UI       UIFlags                    `json:"ui"`
	Labels   map[focos.Dimension]string `json:"labels,omitempty"`
	Viewport focos.BBox                 `json:"viewport"`
}

// Label returns the cached label for dim, or "" when none.
func (s FilterState) Label(dim focos.Dimension) string { return s.Labels[dim] }

// Patch sets dimensions to new keys; an empty (or blank) key clears it.
type Patch map[focos.Dimension]string

// Chip is one active dimension filter as shown to the user.
type Chip struct {
	Dimension focos.Dimension `json:"dimension"`
	Key       string          `json:"key"`
	Label     string          `json:"label"`
}

// Store owns the FilterState of one session.
type Store struct {
	mu sync.RWMutex
	st FilterState
}

// New returns a store with the default "last 30 days" range ending on
// today and no dimension filters.
func New(today focos.Date) *Store {
	return &Store{st: FilterState{
		Range:  focos.LastDays(today, DefaultRangeDays),
		UI:     UIFlags{PointsDateMode: PointsDatePeak},
		Labels: map[focos.Dimension]string{},
	}}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() FilterState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() FilterState {
	out := s.st
	out.Labels = make(map[focos.Dimension]string, len(s.st.Labels))
	for k, v := range s.st.Labels {
		out.Labels[k] = v
	}
	return out
}

// PatchFilters applies p and repairs the invariants. A UF change clears Mun
// unless p names Mun too. Setting one of UC and TI clears the other; when a
// patch selects both, TI is kept.
func (s *Store) PatchFilters(p Patch) FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	prevUF := s.st.Filters.UF
	for _, dim := range focos.Dimensions {
		raw, ok := p[dim]
		if !ok {
			continue
		}
		s.setLocked(dim, normalizeKey(dim, raw))
	}

	_, hasMun := p[focos.DimMun]
	_, hasUC := p[focos.DimUC]
	_, hasTI := p[focos.DimTI]
	if !hasMun && s.st.Filters.UF != prevUF {
		s.setLocked(focos.DimMun, "")
	}
	switch {
	case hasUC && !hasTI && s.st.Filters.UC != "":
		s.setLocked(focos.DimTI, "")
	case hasTI && !hasUC && s.st.Filters.TI != "":
		s.setLocked(focos.DimUC, "")
	}
	s.repairLocked()
	return s.snapshotLocked()
}

// ToggleFilter selects value on dim, or clears dim when value is already
// selected. Selecting UC clears TI and vice versa; any change of UF clears
// Mun. It returns the resulting key of dim.
func (s *Store) ToggleFilter(dim focos.Dimension, value string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := focos.ParseDimension(string(dim)); !ok {
		return ""
	}
	prev := s.st.Filters.Get(dim)
	next := normalizeKey(dim, value)
	if next == prev {
		next = ""
	}
	s.setLocked(dim, next)

	switch dim {
	case focos.DimUC:
		if next != "" {
			s.setLocked(focos.DimTI, "")
		}
	case focos.DimTI:
		if next != "" {
			s.setLocked(focos.DimUC, "")
		}
	case focos.DimUF:
		if next != prev {
			s.setLocked(focos.DimMun, "")
		}
	}
	s.repairLocked()
	return next
}

// ClearDimensionFilters drops every dimension selection and its label.
func (s *Store) ClearDimensionFilters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, dim := range focos.Dimensions {
		s.setLocked(dim, "")
	}
	s.repairLocked()
}

// RepairInvariants re-establishes: Mun requires UF, the municipal layer
// requires UF, and UC and TI are never both set.
func (s *Store) RepairInvariants() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repairLocked()
}

func (s *Store) repairLocked() {
	f := &s.st.Filters
	if f.UF == "" {
		if f.Mun != "" {
			s.setLocked(focos.DimMun, "")
		}
		s.st.UI.ShowMunicipalLayer = false
	}
	if f.UC != "" && f.TI != "" {
		s.setLocked(focos.DimUC, "")
	}
}

// setLocked assigns a key and drops the cached label when the key changes.
func (s *Store) setLocked(dim focos.Dimension, key string) {
	if s.st.Filters.Get(dim) != key {
		delete(s.st.Labels, dim)
	}
	s.st.Filters.Set(dim, key)
}

// SetDateRange stores r as given. Ordering is not enforced here.
func (s *Store) SetDateRange(r focos.DateRange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.Range = r
}

// ResetRange restores the default range ending on today.
func (s *Store) ResetRange(today focos.Date) focos.DateRange {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.Range = focos.LastDays(today, DefaultRangeDays)
	return s.st.Range
}

// SetMunicipalLayer toggles the municipal layer. Without a UF the layer
// stays off; the effective value is returned.
func (s *Store) SetMunicipalLayer(on bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.UI.ShowMunicipalLayer = on
	s.repairLocked()
	return s.st.UI.ShowMunicipalLayer
}

// SetShowPoints toggles the points layer.
func (s *Store) SetShowPoints(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.UI.ShowPoints = on
}

// SetPointsDateMode sets the points day policy. custom is kept only for the
// custom mode.
func (s *Store) SetPointsDateMode(mode PointsDateMode, custom focos.Date) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.UI.PointsDateMode = mode
	if mode == PointsDateCustom {
		s.st.UI.PointsDateCustom = custom
	} else {
		s.st.UI.PointsDateCustom = focos.Date{}
	}
}

// SetViewport records the visible map box.
func (s *Store) SetViewport(b focos.BBox) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.Viewport = b
}

// SetLabel caches the display label of the currently selected key of dim.
// It is ignored when dim has no selection.
func (s *Store) SetLabel(dim focos.Dimension, label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	label = strings.TrimSpace(label)
	if s.st.Filters.Get(dim) == "" || label == "" {
		delete(s.st.Labels, dim)
		return
	}
	s.st.Labels[dim] = label
}

// ClearLabel drops the cached label of dim.
func (s *Store) ClearLabel(dim focos.Dimension) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.st.Labels, dim)
}

// DisplayLabel renders the selection of dim: cached label, else key, else
// the "all" placeholder.
func (s *Store) DisplayLabel(dim focos.Dimension) string {
	return DisplayLabel(s.Snapshot(), dim)
}

// DisplayLabel is Store.DisplayLabel over a snapshot.
func DisplayLabel(st FilterState, dim focos.Dimension) string {
	key := st.Filters.Get(dim)
	if key == "" {
		return labels.Placeholder(dim)
	}
	return labels.ForDimension(dim, st.Labels[dim], key)
}

// Chips lists the active dimension filters in canonical order.
func Chips(st FilterState) []Chip {
	var out []Chip
	for _, dim := range focos.Dimensions {
		key := st.Filters.Get(dim)
		if key == "" {
			continue
		}
		out = append(out, Chip{Dimension: dim, Key: key, Label: DisplayLabel(st, dim)})
	}
	return out
}

// MunicipalLayerHint explains the state of the municipal layer toggle.
func MunicipalLayerHint(st FilterState) string {
	switch {
	case st.Filters.UF == "":
		return "Para municipios, selecione uma UF."
	case st.UI.ShowMunicipalLayer:
		return "Camada municipal ativa para a UF selecionada."
	default:
		return "Ative a camada municipal para navegar por municipios."
	}
}

// normalizeKey trims a key; UF codes are upper-cased.
func normalizeKey(dim focos.Dimension, v string) string {
	v = strings.TrimSpace(v)
	if dim == focos.DimUF {
		return strings.ToUpper(v)
	}
	return v
}
