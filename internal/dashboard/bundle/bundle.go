// Package bundle defines the units of data a request cycle commits: the
// aggregate bundle of a main cycle and the points bundle of a points cycle.
package bundle

import (
	"encoding/json"

	"github.com/focosview/focosview/internal/dashboard/state"
	"github.com/focosview/focosview/pkg/types/focos"
)

// FitKind says what the map viewport should do after a commit.
type FitKind string

const (
	FitNone    FitKind = ""
	FitBBox    FitKind = "bbox"
	FitCountry FitKind = "country"
)

// ViewportAction is a viewport change decided by a cycle.
type ViewportAction struct {
	Kind FitKind    `json:"kind,omitempty"`
	BBox focos.BBox `json:"bbox"`
}

// Fit returns an action fitting b.
func Fit(b focos.BBox) ViewportAction { return ViewportAction{Kind: FitBBox, BBox: b} }

// FitWholeCountry returns an action fitting the country extent.
func FitWholeCountry() ViewportAction {
	return ViewportAction{Kind: FitCountry, BBox: focos.CountryBBox}
}

// Overlay is the highlighted UC or TI geometry.
type Overlay struct {
	Entity  focos.Dimension `json:"entity"`
	Key     string          `json:"key"`
	GeoJSON json.RawMessage `json:"geojson"`
	BBox    focos.BBox      `json:"bbox"`
}

// Warnings are the non-fatal degradations of one main cycle.
type Warnings struct {
	Municipal string `json:"municipal,omitempty"`
	Overlay   string `json:"overlay,omitempty"`
}

// Aggregate is everything one main cycle fetched. It is committed whole or
// not at all.
type Aggregate struct {
	Generation uint64            `json:"generation"`
	State      state.FilterState `json:"state"`

	Summary    *focos.Summary                 `json:"summary"`
	UF         *focos.Choropleth              `json:"choropleth_uf"`
	Mun        *focos.Choropleth              `json:"choropleth_mun,omitempty"`
	Top        map[focos.Dimension]*focos.Top `json:"top"`
	Timeseries *focos.Timeseries              `json:"timeseries"`
	Totals     *focos.Totals                  `json:"totals"`
	Validation *focos.Validation              `json:"validation,omitempty"`
	Overlay    *Overlay                       `json:"overlay,omitempty"`
	Viewport   ViewportAction                 `json:"viewport"`
	Warnings   Warnings                       `json:"warnings"`
}

// Total is the grand total T, or 0 when absent.
func (a *Aggregate) Total() int64 {
	if a == nil || a.Totals == nil {
		return 0
	}
	return a.Totals.NFocos
}

// MunicipalActive reports whether the municipal layer is the one to draw.
func (a *Aggregate) MunicipalActive() bool {
	return a != nil && a.Mun != nil && a.State.UI.ShowMunicipalLayer
}

// DateSource names how the points day was chosen.
type DateSource string

const (
	DateFromRange  DateSource = "from"
	DateFromPeak   DateSource = "peak_day"
	DateFromCustom DateSource = "custom"
)

// Points is everything one points cycle fetched.
type Points struct {
	Generation uint64        `json:"generation"`
	Date       focos.Date    `json:"date"`
	DateSource DateSource    `json:"date_source"`
	BBox       focos.BBox    `json:"bbox"`
	Points     []focos.Point `json:"points"`
	Returned   int           `json:"returned"`
	Limit      int           `json:"limit"`
	Truncated  bool          `json:"truncated"`
}
