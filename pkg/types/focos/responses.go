// Package focos defines the wire types of the wildfire-detection aggregate API
// and the small value types (Date, Dimension, BBox) shared by the dashboard
// engine.
package focos

import (
	"encoding/json"
	"math"
)

// Summary carries the scalar KPIs of a filtered range.
type Summary struct {
	From        Date    `json:"from"`
	To          Date    `json:"to"`
	Filters     Filters `json:"filters"`
	TotalNFocos int64   `json:"total_n_focos"`
	MeanPerDay  float64 `json:"mean_per_day"`
	Days        int     `json:"days"`
	PeakDay     Date    `json:"peak_day"`
	PeakNFocos  int64   `json:"peak_n_focos"`
}

// HasPeak reports whether the summary names a peak day.
func (s *Summary) HasPeak() bool {
	return s != nil && !s.PeakDay.IsZero()
}

// Legend is the classification metadata attached to a choropleth.
type Legend struct {
	Breaks    []float64 `json:"breaks"`
	Domain    []float64 `json:"domain"`
	Method    string    `json:"method"`
	Unit      string    `json:"unit"`
	ZeroClass bool      `json:"zero_class"`
	Palette   []string  `json:"palette"`
	Note      string    `json:"note,omitempty"`
}

// FeatureProperties are the per-polygon values of a choropleth feature. UF
// features carry only UF; municipal ones also carry Key and Label.
type FeatureProperties struct {
	Key        string  `json:"key,omitempty"`
	Label      string  `json:"label,omitempty"`
	UF         string  `json:"uf,omitempty"`
	NFocos     int64   `json:"n_focos"`
	MeanPerDay float64 `json:"mean_per_day"`
}

// Feature is a GeoJSON feature with typed properties. Geometry is kept raw;
// the engine never inspects choropleth geometry.
type Feature struct {
	Type       string            `json:"type"`
	Properties FeatureProperties `json:"properties"`
	Geometry   json.RawMessage   `json:"geometry,omitempty"`
}

// FeatureCollection is a GeoJSON feature collection.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Choropleth is the response of /api/choropleth/{uf,mun}.
type Choropleth struct {
	From    Date              `json:"from"`
	To      Date              `json:"to"`
	GeoJSON FeatureCollection `json:"geojson"`
	Legend
}

// SumNFocos adds the per-feature counts.
func (c *Choropleth) SumNFocos() int64 {
	if c == nil {
		return 0
	}
	var total int64
	for _, f := range c.GeoJSON.Features {
		total += f.Properties.NFocos
	}
	return total
}

// TopItem is one ranked entry.
type TopItem struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	NFocos int64  `json:"n_focos"`
}

// Top is the response of /api/top.
type Top struct {
	Group Dimension `json:"group"`
	Items []TopItem `json:"items"`
	Note  string    `json:"note,omitempty"`
}

// TimeseriesItem is one bucket of the series.
type TimeseriesItem struct {
	Day    Date  `json:"day"`
	NFocos int64 `json:"n_focos"`
}

// Timeseries is the response of /api/timeseries/total.
type Timeseries struct {
	Granularity string           `json:"granularity"`
	Items       []TimeseriesItem `json:"items"`
}

// Sum adds the per-bucket counts.
func (t *Timeseries) Sum() int64 {
	if t == nil {
		return 0
	}
	var total int64
	for _, it := range t.Items {
		total += it.NFocos
	}
	return total
}

// Totals is the response of /api/totals.
type Totals struct {
	NFocos int64 `json:"n_focos"`
}

// Validation is the server-side cross-check of /api/validate.
type Validation struct {
	From                  Date     `json:"from"`
	To                    Date     `json:"to"`
	Filters               Filters  `json:"filters"`
	TotalsNFocos          int64    `json:"totals_n_focos"`
	TimeseriesSumNFocos   int64    `json:"timeseries_sum_n_focos"`
	ChoroplethSumNFocos   int64    `json:"choropleth_sum_n_focos"`
	Consistent            bool     `json:"consistent"`
	InvalidFilterState    bool     `json:"invalid_filter_state"`
	BreakMonotonicityOK   bool     `json:"break_monotonicity_ok"`
	BoundsVsGeoBBoxRatio  *float64 `json:"bounds_vs_geo_bbox_ratio,omitempty"`
	BoundsConsistent      *bool    `json:"bounds_consistent,omitempty"`
	PointsEndpointOK      *bool    `json:"points_endpoint_ok,omitempty"`
	PointsReturnedLeLimit *bool    `json:"points_returned_le_limit,omitempty"`
	PointsDateUsed        Date     `json:"points_date_used"`
	PointsReturned        *int     `json:"points_returned,omitempty"`
}

// Bounds is the response of /api/bounds.
type Bounds struct {
	Entity Dimension `json:"entity"`
	Key    string    `json:"key"`
	BBox   []float64 `json:"bbox"`
	Center []float64 `json:"center"`
}

// GeoOverlay is the response of /api/geo.
type GeoOverlay struct {
	Entity  Dimension       `json:"entity"`
	Key     string          `json:"key"`
	GeoJSON json.RawMessage `json:"geojson"`
}

// Point is one detection in the points layer.
type Point struct {
	Lon        float64 `json:"lon"`
	Lat        float64 `json:"lat"`
	N          int     `json:"n"`
	PointDate  Date    `json:"point_date"`
	PointID    string  `json:"point_id,omitempty"`
	UF         string  `json:"uf,omitempty"`
	MunKey     string  `json:"mun_key,omitempty"`
	MunLabel   string  `json:"mun_label,omitempty"`
	BiomaKey   string  `json:"bioma_key,omitempty"`
	BiomaLabel string  `json:"bioma_label,omitempty"`
	UCKey      string  `json:"uc_key,omitempty"`
	UCLabel    string  `json:"uc_label,omitempty"`
	TIKey      string  `json:"ti_key,omitempty"`
	TILabel    string  `json:"ti_label,omitempty"`
}

// UCKeys splits the possibly multi-valued UC key.
func (p Point) UCKeys() []string { return SplitMulti(p.UCKey) }

// TIKeys splits the possibly multi-valued TI key.
func (p Point) TIKeys() []string { return SplitMulti(p.TIKey) }

// Points is the response of /api/points.
type Points struct {
	Date      Date      `json:"date"`
	BBox      []float64 `json:"bbox"`
	Returned  int       `json:"returned"`
	Limit     int       `json:"limit"`
	Truncated bool      `json:"truncated"`
	Points    []Point   `json:"points"`
}

// Option is one selectable (key, label) pair for a filter.
type Option struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	UF    string `json:"uf,omitempty"`
}

// Options is the response of /api/options and /api/search.
type Options struct {
	Entity Dimension `json:"entity"`
	Q      string    `json:"q,omitempty"`
	Items  []Option  `json:"items"`
}

// MunicipalityLookup is the response of /api/lookup/mun.
type MunicipalityLookup struct {
	Mun     string `json:"mun"`
	MunNome string `json:"mun_nome"`
	UF      string `json:"uf"`
	UFNome  string `json:"uf_nome"`
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
