// Package reconciler turns committed bundles into surface updates. Each
// bundle is pushed in one locked pass so surfaces never show a mix of two
// cycles.
package reconciler

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync"

	"github.com/focosview/focosview/internal/dashboard/bundle"
	"github.com/focosview/focosview/internal/dashboard/labels"
	"github.com/focosview/focosview/internal/dashboard/state"
	"github.com/focosview/focosview/internal/infrastructure/monitoring/logging"
	"github.com/focosview/focosview/pkg/types/focos"
)

// DefaultPalette is used when the legend carries none.
var DefaultPalette = []string{"#f2f2f2", "#e0e0e0", "#cfcfcf", "#bdbdbd", "#ababab", "#9a9a9a"}

const (
	selectedWeight      = 3
	selectedFillOpacity = 0.65
	defaultWeight       = 1
	defaultFillOpacity  = 0.45
)

// Points hints.
const (
	HintPointsSingleDay = "Pontos usam 1 dia (from) e bbox visivel do mapa."
	HintPointsFromOnly  = "MVP: pontos para 1 dia (from)."
)

// Reconciler pushes bundles to the surfaces.
type Reconciler struct {
	mu     sync.Mutex
	maps   MapSurface
	charts ChartSurface
	tables TableSurface
	logger logging.Logger

	last *bundle.Aggregate
}

// New returns a Reconciler over the given surfaces.
func New(maps MapSurface, charts ChartSurface, tables TableSurface, logger logging.Logger) *Reconciler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Reconciler{maps: maps, charts: charts, tables: tables, logger: logger}
}

// Apply draws an aggregate bundle.
func (r *Reconciler) Apply(b *bundle.Aggregate) {
	if b == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.last = b
	r.maps.SetChoropleth(BuildLayer(b, b.State))
	r.maps.SetOverlay(b.Overlay)
	if b.Viewport.Kind != bundle.FitNone {
		r.maps.Fit(b.Viewport)
	}

	r.charts.SetTimeseries(BuildSeries(b.Timeseries))
	for _, dim := range []focos.Dimension{focos.DimUF, focos.DimBioma, focos.DimMun} {
		r.charts.SetTopChart(BuildTop(dim, b.Top[dim], b.State))
	}
	for _, dim := range []focos.Dimension{focos.DimUC, focos.DimTI} {
		r.tables.SetTopTable(BuildTop(dim, b.Top[dim], b.State))
	}
	r.tables.SetKPIs(BuildKPIs(b.Summary))
	r.tables.SetTotal(b.Total())
	note := ""
	if t := b.Top[focos.DimMun]; t != nil {
		note = t.Note
	}
	r.tables.SetMunGuardrail(note)

	r.logger.Debug("bundle applied",
		logging.Generation(b.Generation),
		logging.String("layer", string(layerLevel(b))),
		logging.Int64("total", b.Total()))
}

// Restyle recomputes the choropleth style of the last bundle for st, e.g.
// after points mode changes interactivity. It is a no-op before the first
// Apply.
func (r *Reconciler) Restyle(st state.FilterState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return
	}
	r.maps.SetChoropleth(BuildLayer(r.last, st))
}

// Fit moves the viewport outside of a main cycle.
func (r *Reconciler) Fit(action bundle.ViewportAction) {
	if action.Kind == bundle.FitNone {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maps.Fit(action)
}

// ClearOverlay removes the selection overlay.
func (r *Reconciler) ClearOverlay() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maps.SetOverlay(nil)
}

// ApplyPoints draws a points bundle.
func (r *Reconciler) ApplyPoints(p *bundle.Points) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	level := BadgeNormal
	if p.Truncated {
		level = BadgeWarn
	}
	r.maps.SetPoints(PointsLayer{
		Date:       p.Date,
		DateSource: p.DateSource,
		BBox:       p.BBox,
		Points:     p.Points,
		Returned:   p.Returned,
		Limit:      p.Limit,
		Truncated:  p.Truncated,
		Badge:      PointsBadge(p),
		BadgeLevel: level,
		Meta:       PointsMeta(p),
	})
}

// ClearPoints removes the points layer. With failed set the badge shows
// the error state, otherwise it is hidden.
func (r *Reconciler) ClearPoints(failed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	layer := PointsLayer{BadgeLevel: BadgeHidden}
	if failed {
		layer.Badge, layer.BadgeLevel = "erro", BadgeError
	}
	r.maps.SetPoints(layer)
}

func layerLevel(b *bundle.Aggregate) LayerLevel {
	if b.MunicipalActive() {
		return LevelMun
	}
	return LevelUF
}

// BuildLayer picks the choropleth level and styles every feature.
func BuildLayer(b *bundle.Aggregate, st state.FilterState) MapLayer {
	level := layerLevel(b)
	src := b.UF
	selected := st.Filters.UF
	if level == LevelMun {
		src = b.Mun
		selected = st.Filters.Mun
	}
	layer := MapLayer{Level: level, Features: []StyledFeature{}}
	if src == nil {
		layer.Palette = DefaultPalette
		return layer
	}
	layer.Legend = src.Legend

	values := make([]float64, 0, len(src.GeoJSON.Features))
	for _, f := range src.GeoJSON.Features {
		values = append(values, float64(f.Properties.NFocos))
	}
	layer.Breaks = src.Breaks
	if len(layer.Breaks) < 5 {
		layer.Breaks = ComputeBreaks(values)
	}
	layer.Palette = src.Palette
	if len(layer.Palette) == 0 {
		layer.Palette = DefaultPalette
	}

	interactive := !st.UI.ShowPoints
	for _, f := range src.GeoJSON.Features {
		p := f.Properties
		key := p.UF
		if level == LevelMun {
			key = p.Key
		}
		class := FillClass(float64(p.NFocos), layer.Breaks)
		if class >= len(layer.Palette) {
			class = len(layer.Palette) - 1
		}
		sf := StyledFeature{
			Key:         key,
			Label:       p.Label,
			UF:          p.UF,
			NFocos:      p.NFocos,
			MeanPerDay:  p.MeanPerDay,
			FillClass:   class,
			FillColor:   layer.Palette[class],
			Weight:      defaultWeight,
			FillOpacity: defaultFillOpacity,
			Selected:    selected != "" && key == selected,
			Interactive: interactive,
			Tooltip:     tooltip(level, p),
			Geometry:    f.Geometry,
		}
		if sf.Selected {
			sf.Weight, sf.FillOpacity = selectedWeight, selectedFillOpacity
		}
		layer.Features = append(layer.Features, sf)
	}
	return layer
}

func tooltip(level LayerLevel, p focos.FeatureProperties) string {
	name := p.UF
	if level == LevelMun {
		name = labels.ForDimension(focos.DimMun, p.Label, p.Key)
	}
	return fmt.Sprintf("%s\nfocos: %s\nmedia/dia: %s", name, labels.FormatInt(p.NFocos),
		strconv.FormatFloat(p.MeanPerDay, 'f', 1, 64))
}

// FillClass maps v to a class 0..len(breaks) using strict upper comparison
// against ascending breaks.
func FillClass(v float64, breaks []float64) int {
	for i := len(breaks) - 1; i >= 0; i-- {
		if v > breaks[i] {
			return i + 1
		}
	}
	return 0
}

// ComputeBreaks derives five quantile breaks (20/40/60/80/95%) from values.
func ComputeBreaks(values []float64) []float64 {
	xs := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		xs = append(xs, v)
	}
	if len(xs) == 0 {
		return []float64{0, 1, 2, 3, 4}
	}
	sort.Float64s(xs)
	q := func(p float64) float64 { return xs[int(float64(len(xs)-1)*p)] }
	return []float64{q(0.2), q(0.4), q(0.6), q(0.8), q(0.95)}
}

// BuildSeries formats the time series for the chart.
func BuildSeries(ts *focos.Timeseries) Series {
	s := Series{Granularity: "day", Days: []focos.Date{}, Labels: []string{}, Values: []int64{}}
	if ts == nil {
		return s
	}
	if ts.Granularity != "" {
		s.Granularity = ts.Granularity
	}
	for _, it := range ts.Items {
		s.Days = append(s.Days, it.Day)
		s.Labels = append(s.Labels, AxisLabel(it.Day, s.Granularity))
		s.Values = append(s.Values, it.NFocos)
	}
	return s
}

// AxisLabel renders a bucket date: MM-DD for days, YYYY-MM for months.
func AxisLabel(d focos.Date, granularity string) string {
	if d.IsZero() {
		return ""
	}
	if granularity == "month" {
		return d.Time().Format("2006-01")
	}
	return d.Time().Format("01-02")
}

// BuildTop shapes a ranking, marking the selected row.
func BuildTop(dim focos.Dimension, top *focos.Top, st state.FilterState) TopTable {
	t := TopTable{Group: dim, Rows: []TopRow{}}
	if top == nil {
		return t
	}
	t.Note = top.Note
	selected := st.Filters.Get(dim)
	for _, it := range top.Items {
		t.Rows = append(t.Rows, TopRow{
			Key:      it.Key,
			Label:    it.Label,
			NFocos:   it.NFocos,
			Selected: selected != "" && it.Key == selected,
		})
	}
	return t
}

// BuildKPIs formats the summary headline numbers.
func BuildKPIs(s *focos.Summary) KPIs {
	if s == nil {
		s = &focos.Summary{}
	}
	k := KPIs{
		Total:      labels.FormatInt(s.TotalNFocos),
		MeanPerDay: strconv.FormatFloat(s.MeanPerDay, 'f', 2, 64),
		Peak:       "-",
		Days:       labels.FormatInt(int64(s.Days)),
	}
	if s.HasPeak() {
		k.Peak = fmt.Sprintf("%s (%s)", s.PeakDay, labels.FormatInt(s.PeakNFocos))
	}
	return k
}

// PointsBadge is the short badge text of an applied points bundle.
func PointsBadge(p *bundle.Points) string {
	if p.Truncated {
		return fmt.Sprintf("truncado %s/%s", labels.FormatInt(int64(p.Returned)), labels.FormatInt(int64(p.Limit)))
	}
	return fmt.Sprintf("%s pontos", labels.FormatInt(int64(p.Returned)))
}

// PointsMeta is the multi-line description of an applied points bundle.
func PointsMeta(p *bundle.Points) []string {
	day := "-"
	if !p.Date.IsZero() {
		day = p.Date.String()
	}
	lines := []string{
		"Dia dos pontos: " + day,
		"Pontos carregados: " + labels.FormatInt(int64(p.Returned)),
	}
	if p.Truncated {
		lines = append(lines, fmt.Sprintf("Amostra ativa: limite %s.", labels.FormatInt(int64(p.Limit))))
	}
	if p.Returned == 0 {
		lines = append(lines, "0 pontos nesse dia para os filtros atuais.")
	}
	return lines
}

// PointsHint explains which day the points layer shows.
func PointsHint(r focos.DateRange, source bundle.DateSource, day focos.Date) string {
	switch source {
	case bundle.DateFromPeak:
		return fmt.Sprintf("Pontos usam o dia de pico (%s) e bbox visivel do mapa.", day)
	case bundle.DateFromCustom:
		return fmt.Sprintf("Pontos usam o dia escolhido (%s) e bbox visivel do mapa.", day)
	}
	if r.IsComplete() && !r.IsSingleDay() {
		return HintPointsFromOnly
	}
	return HintPointsSingleDay
}
