package client

import (
	"context"
	"strings"

	"github.com/focosview/focosview/pkg/errors"
	"github.com/focosview/focosview/pkg/types/focos"
)

// CatalogClient reads the filter candidate lists.
type CatalogClient struct {
	client *Client
}

// Options lists up to limit selectable keys of entity.
func (c *CatalogClient) Options(ctx context.Context, entity focos.Dimension, limit int) (*focos.Options, error) {
	q := newQuery().set("entity", string(entity)).setInt("limit", limit)
	var out focos.Options
	if err := c.client.getCached(ctx, "/api/options", q, &out); err != nil {
		return nil, err
	}
	if out.Entity == "" {
		out.Entity = entity
	}
	out.Normalize()
	return &out, nil
}

// Search finds keys of entity whose label matches text. uf restricts
// municipal results.
func (c *CatalogClient) Search(ctx context.Context, entity focos.Dimension, text, uf string, limit int) (*focos.Options, error) {
	q := newQuery().
		set("entity", string(entity)).
		set("q", text).
		set("uf", uf).
		setInt("limit", limit)
	var out focos.Options
	if err := c.client.getCached(ctx, "/api/search", q, &out); err != nil {
		return nil, err
	}
	if out.Entity == "" {
		out.Entity = entity
	}
	out.Normalize()
	return &out, nil
}

// LookupMunicipality resolves a municipality key to its name and owning UF.
func (c *CatalogClient) LookupMunicipality(ctx context.Context, key string) (*focos.MunicipalityLookup, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.InvalidParam("municipality key is required")
	}
	var out focos.MunicipalityLookup
	if err := c.client.getCached(ctx, "/api/lookup/mun", newQuery().set("key", key), &out); err != nil {
		return nil, err
	}
	out.UF = strings.ToUpper(strings.TrimSpace(out.UF))
	return &out, nil
}
