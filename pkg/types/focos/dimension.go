package focos

import "strings"

// Dimension identifies one of the filterable boundary sets.
type Dimension string

const (
	DimUF    Dimension = "uf"
	DimBioma Dimension = "bioma"
	DimMun   Dimension = "mun"
	DimUC    Dimension = "uc"
	DimTI    Dimension = "ti"
)

// Dimensions lists every dimension in canonical order.
var Dimensions = []Dimension{DimUF, DimBioma, DimMun, DimUC, DimTI}

// ParseDimension maps a raw key to a Dimension.
func ParseDimension(s string) (Dimension, bool) {
	d := Dimension(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Dimensions {
		if d == known {
			return d, true
		}
	}
	return "", false
}

// IsOverlay reports whether the dimension has an outline overlay (UC, TI).
func (d Dimension) IsOverlay() bool { return d == DimUC || d == DimTI }

func (d Dimension) String() string { return string(d) }

// Filters holds the selected key per dimension; "" means unset.
type Filters struct {
	UF    string `json:"uf,omitempty"`
	Bioma string `json:"bioma,omitempty"`
	Mun   string `json:"mun,omitempty"`
	UC    string `json:"uc,omitempty"`
	TI    string `json:"ti,omitempty"`
}

// Get returns the selected key for d.
func (f Filters) Get(d Dimension) string {
	switch d {
	case DimUF:
		return f.UF
	case DimBioma:
		return f.Bioma
	case DimMun:
		return f.Mun
	case DimUC:
		return f.UC
	case DimTI:
		return f.TI
	}
	return ""
}

// Set assigns the key for d. Unknown dimensions are ignored.
func (f *Filters) Set(d Dimension, v string) {
	switch d {
	case DimUF:
		f.UF = v
	case DimBioma:
		f.Bioma = v
	case DimMun:
		f.Mun = v
	case DimUC:
		f.UC = v
	case DimTI:
		f.TI = v
	}
}

// IsEmpty reports whether no dimension is selected.
func (f Filters) IsEmpty() bool {
	return f == Filters{}
}

// Params returns the non-empty filters as query parameters.
func (f Filters) Params() map[string]string {
	out := make(map[string]string, len(Dimensions))
	for _, d := range Dimensions {
		if v := f.Get(d); v != "" {
			out[string(d)] = v
		}
	}
	return out
}

// Overlay returns the UC/TI selection that owns the outline overlay, TI
// first. ok is false when neither is selected.
func (f Filters) Overlay() (d Dimension, key string, ok bool) {
	if f.TI != "" {
		return DimTI, f.TI, true
	}
	if f.UC != "" {
		return DimUC, f.UC, true
	}
	return "", "", false
}
