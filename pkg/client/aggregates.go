package client

import (
	"context"
	"fmt"

	"github.com/focosview/focosview/pkg/errors"
	"github.com/focosview/focosview/pkg/types/focos"
)

// AggregatesClient reads the range-and-filter scoped aggregates.
type AggregatesClient struct {
	client *Client
}

// Scope is the date range and dimension filters every aggregate is computed over.
type Scope struct {
	Range   focos.DateRange
	Filters focos.Filters
}

func (s Scope) query() query {
	q := newQuery().
		set("from", s.Range.From.String()).
		set("to", s.Range.To.String())
	for k, v := range s.Filters.Params() {
		q.set(k, v)
	}
	return q
}

// Summary fetches /api/summary.
func (a *AggregatesClient) Summary(ctx context.Context, s Scope) (*focos.Summary, error) {
	var out focos.Summary
	if err := a.client.get(ctx, "/api/summary", s.query(), &out); err != nil {
		return nil, err
	}
	out.Normalize()
	return &out, nil
}

// ChoroplethUF fetches /api/choropleth/uf.
func (a *AggregatesClient) ChoroplethUF(ctx context.Context, s Scope) (*focos.Choropleth, error) {
	return a.choropleth(ctx, "/api/choropleth/uf", s)
}

// ChoroplethMun fetches /api/choropleth/mun. The backend requires a UF.
func (a *AggregatesClient) ChoroplethMun(ctx context.Context, s Scope) (*focos.Choropleth, error) {
	if s.Filters.UF == "" {
		return nil, errors.InvalidParam("municipal choropleth requires uf")
	}
	return a.choropleth(ctx, "/api/choropleth/mun", s)
}

func (a *AggregatesClient) choropleth(ctx context.Context, path string, s Scope) (*focos.Choropleth, error) {
	var out focos.Choropleth
	if err := a.client.get(ctx, path, s.query(), &out); err != nil {
		return nil, err
	}
	out.Normalize()
	return &out, nil
}

// Top fetches the ranking of group under scope s.
func (a *AggregatesClient) Top(ctx context.Context, group focos.Dimension, s Scope, limit int) (*focos.Top, error) {
	if _, ok := focos.ParseDimension(string(group)); !ok {
		return nil, errors.InvalidParam(fmt.Sprintf("unknown top group %q", group))
	}
	q := s.query().set("group", string(group)).setInt("limit", limit)
	var out focos.Top
	if err := a.client.get(ctx, "/api/top", q, &out); err != nil {
		return nil, err
	}
	if out.Group == "" {
		out.Group = group
	}
	out.Normalize()
	return &out, nil
}

// Timeseries fetches /api/timeseries/total.
func (a *AggregatesClient) Timeseries(ctx context.Context, s Scope) (*focos.Timeseries, error) {
	var out focos.Timeseries
	if err := a.client.get(ctx, "/api/timeseries/total", s.query(), &out); err != nil {
		return nil, err
	}
	out.Normalize()
	return &out, nil
}

// Totals fetches /api/totals.
func (a *AggregatesClient) Totals(ctx context.Context, s Scope) (*focos.Totals, error) {
	var out focos.Totals
	if err := a.client.get(ctx, "/api/totals", s.query(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Validate fetches the server-side consistency verdict.
func (a *AggregatesClient) Validate(ctx context.Context, s Scope) (*focos.Validation, error) {
	var out focos.Validation
	if err := a.client.get(ctx, "/api/validate", s.query(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
