package focos

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// BBox is a lon/lat bounding box.
type BBox struct {
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
}

// CountryBBox frames the whole of Brazil.
var CountryBBox = BBox{MinLon: -74.5, MinLat: -34.5, MaxLon: -28.0, MaxLat: 6.0}

// BBoxFromSlice builds a BBox from the [minLon, minLat, maxLon, maxLat] wire form.
func BBoxFromSlice(v []float64) (BBox, bool) {
	if len(v) != 4 {
		return BBox{}, false
	}
	b := BBox{MinLon: v[0], MinLat: v[1], MaxLon: v[2], MaxLat: v[3]}
	return b, b.Valid()
}

// ParseBBox parses "minLon,minLat,maxLon,maxLat".
func ParseBBox(s string) (BBox, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 4 {
		return BBox{}, fmt.Errorf("bbox must have 4 comma-separated values, got %d", len(parts))
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BBox{}, fmt.Errorf("bbox value %q: %w", p, err)
		}
		vals[i] = v
	}
	b, ok := BBoxFromSlice(vals)
	if !ok {
		return BBox{}, fmt.Errorf("bbox %q is not a valid lon/lat box", s)
	}
	return b, nil
}

// Valid reports whether the box is finite, inside lon/lat range and has a
// positive extent on both axes.
func (b BBox) Valid() bool {
	for _, v := range []float64{b.MinLon, b.MinLat, b.MaxLon, b.MaxLat} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	if b.MinLon < -180 || b.MaxLon > 180 || b.MinLat < -90 || b.MaxLat > 90 {
		return false
	}
	return b.MaxLon > b.MinLon && b.MaxLat > b.MinLat
}

// IsZero reports whether the box is unset.
func (b BBox) IsZero() bool { return b == BBox{} }

// Slice returns the [minLon, minLat, maxLon, maxLat] wire form.
func (b BBox) Slice() []float64 {
	return []float64{b.MinLon, b.MinLat, b.MaxLon, b.MaxLat}
}

// Param renders the box as the points endpoint expects it.
func (b BBox) Param() string {
	return strings.Join([]string{
		strconv.FormatFloat(b.MinLon, 'f', 6, 64),
		strconv.FormatFloat(b.MinLat, 'f', 6, 64),
		strconv.FormatFloat(b.MaxLon, 'f', 6, 64),
		strconv.FormatFloat(b.MaxLat, 'f', 6, 64),
	}, ",")
}

func (b BBox) String() string { return b.Param() }

// Center returns the midpoint of the box as (lon, lat).
func (b BBox) Center() (float64, float64) {
	return (b.MinLon + b.MaxLon) / 2, (b.MinLat + b.MaxLat) / 2
}

// extend grows the box to include (lon, lat); empty reports whether the box
// had no points yet.
func (b *BBox) extend(lon, lat float64, empty bool) {
	if empty {
		*b = BBox{MinLon: lon, MinLat: lat, MaxLon: lon, MaxLat: lat}
		return
	}
	b.MinLon = math.Min(b.MinLon, lon)
	b.MinLat = math.Min(b.MinLat, lat)
	b.MaxLon = math.Max(b.MaxLon, lon)
	b.MaxLat = math.Max(b.MaxLat, lat)
}

type geoNode struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
	Geometry    *geoNode        `json:"geometry"`
	Geometries  []geoNode       `json:"geometries"`
	Features    []geoNode       `json:"features"`
}

// GeoJSONBBox computes the coordinate extent of any GeoJSON object
// (FeatureCollection, Feature, Geometry or GeometryCollection). ok is false
// when the document holds no coordinates or is malformed.
func GeoJSONBBox(raw json.RawMessage) (BBox, bool) {
	if len(raw) == 0 {
		return BBox{}, false
	}
	var node geoNode
	if err := json.Unmarshal(raw, &node); err != nil {
		return BBox{}, false
	}
	var (
		box   BBox
		count int
	)
	walkGeoNode(&node, &box, &count)
	return box, count > 0
}

func walkGeoNode(n *geoNode, box *BBox, count *int) {
	if n == nil {
		return
	}
	if n.Geometry != nil {
		walkGeoNode(n.Geometry, box, count)
	}
	for i := range n.Features {
		walkGeoNode(&n.Features[i], box, count)
	}
	for i := range n.Geometries {
		walkGeoNode(&n.Geometries[i], box, count)
	}
	if len(n.Coordinates) > 0 {
		var coords any
		if err := json.Unmarshal(n.Coordinates, &coords); err == nil {
			walkCoords(coords, box, count)
		}
	}
}

func walkCoords(v any, box *BBox, count *int) {
	arr, ok := v.([]any)
	if !ok || len(arr) == 0 {
		return
	}
	if lon, ok := arr[0].(float64); ok {
		if len(arr) < 2 {
			return
		}
		lat, ok := arr[1].(float64)
		if !ok {
			return
		}
		box.extend(lon, lat, *count == 0)
		*count++
		return
	}
	for _, child := range arr {
		walkCoords(child, box, count)
	}
}
