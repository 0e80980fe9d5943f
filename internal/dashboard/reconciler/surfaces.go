package reconciler

import (
	"encoding/json"

	"github.com/focosview/focosview/internal/dashboard/bundle"
	"github.com/focosview/focosview/pkg/types/focos"
)

// LayerLevel names the boundary level drawn by the choropleth.
type LayerLevel string

const (
	LevelUF  LayerLevel = "uf"
	LevelMun LayerLevel = "mun"
)

// StyledFeature is one choropleth polygon with its computed style.
type StyledFeature struct {
	Key         string          `json:"key"`
	Label       string          `json:"label,omitempty"`
	UF          string          `json:"uf,omitempty"`
	NFocos      int64           `json:"n_focos"`
	MeanPerDay  float64         `json:"mean_per_day"`
	FillClass   int             `json:"fill_class"`
	FillColor   string          `json:"fill_color"`
	Weight      int             `json:"weight"`
	FillOpacity float64         `json:"fill_opacity"`
	Selected    bool            `json:"selected"`
	Interactive bool            `json:"interactive"`
	Tooltip     string          `json:"tooltip"`
	Geometry    json.RawMessage `json:"geometry,omitempty"`
}

// MapLayer is the choropleth as it should be drawn.
type MapLayer struct {
	Level    LayerLevel      `json:"level"`
	Features []StyledFeature `json:"features"`
	Breaks   []float64       `json:"breaks"`
	Palette  []string        `json:"palette"`
	Legend   focos.Legend    `json:"legend"`
}

// BadgeLevel is the visual severity of the points badge.
type BadgeLevel string

const (
	BadgeHidden BadgeLevel = "hidden"
	BadgeNormal BadgeLevel = "normal"
	BadgeWarn   BadgeLevel = "warn"
	BadgeError  BadgeLevel = "error"
)

// PointsLayer is the points overlay with its badge and meta text.
type PointsLayer struct {
	Date       focos.Date        `json:"date"`
	DateSource bundle.DateSource `json:"date_source,omitempty"`
	BBox       focos.BBox        `json:"bbox"`
	Points     []focos.Point     `json:"points"`
	Returned   int               `json:"returned"`
	Limit      int               `json:"limit"`
	Truncated  bool              `json:"truncated"`
	Badge      string            `json:"badge"`
	BadgeLevel BadgeLevel        `json:"badge_level"`
	Meta       []string          `json:"meta"`
}

// Series is the time-series chart content.
type Series struct {
	Granularity string       `json:"granularity"`
	Days        []focos.Date `json:"days"`
	Labels      []string     `json:"labels"`
	Values      []int64      `json:"values"`
}

// TopRow is one ranked entry as shown.
type TopRow struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	NFocos   int64  `json:"n_focos"`
	Selected bool   `json:"selected"`
}

// TopTable is one top-N ranking as shown.
type TopTable struct {
	Group focos.Dimension `json:"group"`
	Rows  []TopRow        `json:"rows"`
	Note  string          `json:"note,omitempty"`
}

// KPIs are the headline numbers of the summary.
type KPIs struct {
	Total      string `json:"total"`
	MeanPerDay string `json:"mean_per_day"`
	Peak       string `json:"peak"`
	Days       string `json:"days"`
}

// MapSurface draws the map.
type MapSurface interface {
	SetChoropleth(layer MapLayer)
	SetOverlay(o *bundle.Overlay)
	Fit(action bundle.ViewportAction)
	SetPoints(layer PointsLayer)
}

// ChartSurface draws the charts: the time series and the uf/bioma/mun rankings.
type ChartSurface interface {
	SetTimeseries(s Series)
	SetTopChart(t TopTable)
}

// TableSurface draws the KPIs, the grand total and the uc/ti rankings.
type TableSurface interface {
	SetKPIs(k KPIs)
	SetTotal(n int64)
	SetTopTable(t TopTable)
	SetMunGuardrail(note string)
}
