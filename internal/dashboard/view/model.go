// Package view is an in-memory implementation of every dashboard surface.
// It records what would be drawn as a JSON-serializable document with a
// revision that increases on every change.
package view

import (
	"sync"

	"github.com/focosview/focosview/internal/dashboard/bundle"
	"github.com/focosview/focosview/internal/dashboard/reconciler"
	"github.com/focosview/focosview/internal/dashboard/state"
	"github.com/focosview/focosview/internal/dashboard/status"
	"github.com/focosview/focosview/pkg/types/focos"
)

// MapView is the map surface.
type MapView struct {
	Choropleth reconciler.MapLayer    `json:"choropleth"`
	Overlay    *bundle.Overlay        `json:"overlay,omitempty"`
	Viewport   bundle.ViewportAction  `json:"viewport"`
	Points     reconciler.PointsLayer `json:"points"`
	Fits       int                    `json:"fits"`
}

// ChartsView is the chart surface.
type ChartsView struct {
	Timeseries reconciler.Series                       `json:"timeseries"`
	Top        map[focos.Dimension]reconciler.TopTable `json:"top"`
}

// TablesView is the table surface.
type TablesView struct {
	KPIs         reconciler.KPIs                         `json:"kpis"`
	Total        int64                                   `json:"total"`
	Top          map[focos.Dimension]reconciler.TopTable `json:"top"`
	MunGuardrail string                                  `json:"mun_guardrail,omitempty"`
}

// ControlsView reflects the filter state into the inputs around the map.
type ControlsView struct {
	State              state.FilterState          `json:"state"`
	Chips              []state.Chip               `json:"chips"`
	FilterLabels       map[focos.Dimension]string `json:"filter_labels"`
	MunLayerEnabled    bool                       `json:"mun_layer_enabled"`
	MunLayerHint       string                     `json:"mun_layer_hint"`
	PointsHint         string                     `json:"points_hint"`
	PointsCustomActive bool                       `json:"points_custom_active"`
}

// Document is a point-in-time copy of the whole view.
type Document struct {
	Revision uint64                             `json:"revision"`
	Map      MapView                            `json:"map"`
	Charts   ChartsView                         `json:"charts"`
	Tables   TablesView                         `json:"tables"`
	Controls ControlsView                       `json:"controls"`
	Catalog  map[focos.Dimension][]focos.Option `json:"catalog"`
	Status   status.Snapshot                    `json:"status"`
}

// Model implements reconciler.MapSurface, ChartSurface and TableSurface.
type Model struct {
	mu  sync.RWMutex
	doc Document
}

var (
	_ reconciler.MapSurface   = (*Model)(nil)
	_ reconciler.ChartSurface = (*Model)(nil)
	_ reconciler.TableSurface = (*Model)(nil)
)

// NewModel returns an empty view.
func NewModel() *Model {
	return &Model{doc: Document{
		Map: MapView{
			Choropleth: reconciler.MapLayer{Level: reconciler.LevelUF, Features: []reconciler.StyledFeature{}},
			Points:     reconciler.PointsLayer{BadgeLevel: reconciler.BadgeHidden},
		},
		Charts:  ChartsView{Top: map[focos.Dimension]reconciler.TopTable{}},
		Tables:  TablesView{Top: map[focos.Dimension]reconciler.TopTable{}},
		Catalog: map[focos.Dimension][]focos.Option{},
		Status:  status.Snapshot{Level: status.LevelReady},
	}}
}

func (m *Model) update(fn func(d *Document)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.doc)
	m.doc.Revision++
}

func (m *Model) SetChoropleth(layer reconciler.MapLayer) {
	m.update(func(d *Document) { d.Map.Choropleth = layer })
}

func (m *Model) SetOverlay(o *bundle.Overlay) {
	m.update(func(d *Document) { d.Map.Overlay = o })
}

func (m *Model) Fit(action bundle.ViewportAction) {
	m.update(func(d *Document) {
		d.Map.Viewport = action
		d.Map.Fits++
	})
}

func (m *Model) SetPoints(layer reconciler.PointsLayer) {
	m.update(func(d *Document) { d.Map.Points = layer })
}

func (m *Model) SetTimeseries(s reconciler.Series) {
	m.update(func(d *Document) { d.Charts.Timeseries = s })
}

func (m *Model) SetTopChart(t reconciler.TopTable) {
	m.update(func(d *Document) { d.Charts.Top[t.Group] = t })
}

func (m *Model) SetKPIs(k reconciler.KPIs) {
	m.update(func(d *Document) { d.Tables.KPIs = k })
}

func (m *Model) SetTotal(n int64) {
	m.update(func(d *Document) { d.Tables.Total = n })
}

func (m *Model) SetTopTable(t reconciler.TopTable) {
	m.update(func(d *Document) { d.Tables.Top[t.Group] = t })
}

func (m *Model) SetMunGuardrail(note string) {
	m.update(func(d *Document) { d.Tables.MunGuardrail = note })
}

// SetControls replaces the control reflection.
func (m *Model) SetControls(c ControlsView) {
	m.update(func(d *Document) { d.Controls = c })
}

// SetCatalog replaces the candidate list of dim.
func (m *Model) SetCatalog(dim focos.Dimension, items []focos.Option) {
	m.update(func(d *Document) { d.Catalog[dim] = items })
}

// SetStatus replaces the status line.
func (m *Model) SetStatus(s status.Snapshot) {
	m.update(func(d *Document) { d.Status = s })
}

// Revision returns the current revision.
func (m *Model) Revision() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.doc.Revision
}

// Snapshot returns a copy of the document. Maps are copied; slices inside
// layers are shared and must be treated as read-only.
func (m *Model) Snapshot() Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := m.doc
	out.Charts.Top = copyTop(m.doc.Charts.Top)
	out.Tables.Top = copyTop(m.doc.Tables.Top)
	out.Catalog = make(map[focos.Dimension][]focos.Option, len(m.doc.Catalog))
	for k, v := range m.doc.Catalog {
		out.Catalog[k] = v
	}
	return out
}

func copyTop(in map[focos.Dimension]reconciler.TopTable) map[focos.Dimension]reconciler.TopTable {
	out := make(map[focos.Dimension]reconciler.TopTable, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
