package focos

import "strings"

// The Normalize methods turn a decoded payload into its canonical form once,
// at the orchestration boundary: nil slices become empty, non-finite numbers
// become zero and point weights default to 1. Renderers downstream never
// re-check optionality.

// Normalize canonicalises the summary.
func (s *Summary) Normalize() {
	if s == nil {
		return
	}
	s.MeanPerDay = finite(s.MeanPerDay)
}

// Normalize canonicalises the choropleth and its legend.
func (c *Choropleth) Normalize() {
	if c == nil {
		return
	}
	if c.GeoJSON.Type == "" {
		c.GeoJSON.Type = "FeatureCollection"
	}
	if c.GeoJSON.Features == nil {
		c.GeoJSON.Features = []Feature{}
	}
	for i := range c.GeoJSON.Features {
		f := &c.GeoJSON.Features[i]
		f.Properties.MeanPerDay = finite(f.Properties.MeanPerDay)
		if f.Properties.NFocos < 0 {
			f.Properties.NFocos = 0
		}
	}
	if c.Breaks == nil {
		c.Breaks = []float64{}
	}
	for i, b := range c.Breaks {
		c.Breaks[i] = finite(b)
	}
	if c.Palette == nil {
		c.Palette = []string{}
	}
}

// Normalize canonicalises the ranking.
func (t *Top) Normalize() {
	if t == nil {
		return
	}
	if t.Items == nil {
		t.Items = []TopItem{}
	}
	for i := range t.Items {
		t.Items[i].Key = strings.TrimSpace(t.Items[i].Key)
	}
}

// Normalize canonicalises the series.
func (t *Timeseries) Normalize() {
	if t == nil {
		return
	}
	if t.Granularity == "" {
		t.Granularity = "day"
	}
	if t.Items == nil {
		t.Items = []TimeseriesItem{}
	}
}

// Normalize canonicalises the points payload.
func (p *Points) Normalize() {
	if p == nil {
		return
	}
	if p.Points == nil {
		p.Points = []Point{}
	}
	for i := range p.Points {
		if p.Points[i].N <= 0 {
			p.Points[i].N = 1
		}
	}
	if p.Returned == 0 && len(p.Points) > 0 {
		p.Returned = len(p.Points)
	}
}

// Normalize canonicalises the option list.
func (o *Options) Normalize() {
	if o == nil {
		return
	}
	items := o.Items[:0]
	for _, it := range o.Items {
		it.Key = strings.TrimSpace(it.Key)
		if it.Key == "" {
			continue
		}
		if strings.TrimSpace(it.Label) == "" {
			it.Label = it.Key
		}
		items = append(items, it)
	}
	if items == nil {
		items = []Option{}
	}
	o.Items = items
}

// SplitMulti splits a delimited multi-valued key ("a|b", "a;b", "a,b").
func SplitMulti(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '|' || r == ';' || r == ','
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
