package client

import (
	"context"
	"fmt"

	"github.com/focosview/focosview/pkg/errors"
	"github.com/focosview/focosview/pkg/types/focos"
)

// DefaultPointsLimit is the point cap requested when none is given.
const DefaultPointsLimit = 20000

// GeoClient reads bounds, selection outlines and detection points.
type GeoClient struct {
	client *Client
}

// Bounds fetches the bounding box of one entity. uf scopes municipal keys.
func (g *GeoClient) Bounds(ctx context.Context, entity focos.Dimension, key, uf string) (*focos.Bounds, error) {
	if key == "" {
		return nil, errors.InvalidParam("bounds key is required")
	}
	q := newQuery().set("entity", string(entity)).set("key", key).set("uf", uf)
	var out focos.Bounds
	if err := g.client.getCached(ctx, "/api/bounds", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Overlay fetches the dissolved outline of a UC or TI.
func (g *GeoClient) Overlay(ctx context.Context, entity focos.Dimension, key string, s Scope) (*focos.GeoOverlay, error) {
	if !entity.IsOverlay() {
		return nil, errors.InvalidParam(fmt.Sprintf("overlay entity must be uc or ti, got %q", entity))
	}
	if key == "" {
		return nil, errors.InvalidParam("overlay key is required")
	}
	q := s.query().set("entity", string(entity)).set("key", key)
	var out focos.GeoOverlay
	if err := g.client.get(ctx, "/api/geo", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PointsRequest scopes one points fetch.
type PointsRequest struct {
	Date    focos.Date
	BBox    focos.BBox
	Filters focos.Filters
	Limit   int
}

// Points fetches the detections of one day inside a bounding box.
func (g *GeoClient) Points(ctx context.Context, req PointsRequest) (*focos.Points, error) {
	if req.Date.IsZero() {
		return nil, errors.InvalidParam("points date is required")
	}
	if !req.BBox.Valid() {
		return nil, errors.New(errors.ErrCodeInvalidBBox, "points bbox is not a valid lon/lat box")
	}
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultPointsLimit
	}
	q := newQuery().
		set("date", req.Date.String()).
		set("bbox", req.BBox.Param()).
		setInt("limit", limit)
	for k, v := range req.Filters.Params() {
		q.set(k, v)
	}
	var out focos.Points
	if err := g.client.get(ctx, "/api/points", q, &out); err != nil {
		return nil, err
	}
	if out.Limit == 0 {
		out.Limit = limit
	}
	out.Normalize()
	return &out, nil
}
