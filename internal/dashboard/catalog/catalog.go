// Package catalog keeps the candidate lists of the dimension filters:
// the static options of each dimension and the search-as-you-type results.
package catalog

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/focosview/focosview/internal/dashboard/debounce"
	"github.com/focosview/focosview/internal/dashboard/labels"
	"github.com/focosview/focosview/internal/dashboard/lifecycle"
	"github.com/focosview/focosview/internal/dashboard/state"
	"github.com/focosview/focosview/internal/infrastructure/monitoring/logging"
	"github.com/focosview/focosview/internal/platform/clock"
	"github.com/focosview/focosview/pkg/client"
	"github.com/focosview/focosview/pkg/errors"
	"github.com/focosview/focosview/pkg/types/focos"
)

const (
	DefaultDebounce     = 250 * time.Millisecond
	DefaultSearchLimit  = 20
	DefaultOptionsLimit = 500
)

// OptionDimensions have a static options list; mun is search-only.
var OptionDimensions = []focos.Dimension{focos.DimUF, focos.DimBioma, focos.DimUC, focos.DimTI}

// Source reads candidates; *client.CatalogClient implements it.
type Source interface {
	Options(ctx context.Context, entity focos.Dimension, limit int) (*focos.Options, error)
	Search(ctx context.Context, entity focos.Dimension, text, uf string, limit int) (*focos.Options, error)
}

// Sink receives candidate lists; *view.Model implements it.
type Sink interface {
	SetCatalog(dim focos.Dimension, items []focos.Option)
}

// Config wires a Catalog.
type Config struct {
	Source       Source
	Sink         Sink
	Store        *state.Store
	Cycles       *lifecycle.Manager
	Clock        clock.Clock
	Debounce     time.Duration
	SearchLimit  int
	OptionsLimit int
	Logger       logging.Logger
}

// Catalog loads and searches candidates per dimension. Each dimension has
// its own debounce window and its own request group, so typing in one box
// never cancels another.
type Catalog struct {
	cfg      Config
	parent   context.Context
	debounce *debounce.Keyed[focos.Dimension]

	mu    sync.RWMutex
	items map[focos.Dimension][]focos.Option
}

// New returns a Catalog; debounced searches derive their context from parent.
func New(parent context.Context, cfg Config) *Catalog {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = DefaultSearchLimit
	}
	if cfg.OptionsLimit <= 0 {
		cfg.OptionsLimit = DefaultOptionsLimit
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	if cfg.Cycles == nil {
		cfg.Cycles = lifecycle.NewManager()
	}
	return &Catalog{
		cfg:      cfg,
		parent:   parent,
		debounce: debounce.NewKeyed[focos.Dimension](cfg.Clock, cfg.Debounce),
		items:    make(map[focos.Dimension][]focos.Option),
	}
}

func searchGroup(dim focos.Dimension) lifecycle.Group {
	return lifecycle.Group("search:" + string(dim))
}

// LoadOptions fetches the static options of every dimension that has one.
// Failures are logged per dimension; the first one is returned.
func (c *Catalog) LoadOptions(ctx context.Context) error {
	var first error
	for _, dim := range OptionDimensions {
		resp, err := c.cfg.Source.Options(ctx, dim, c.cfg.OptionsLimit)
		if err != nil {
			if client.IsCanceled(err) {
				return err
			}
			c.cfg.Logger.Warn("options unavailable", logging.String("entity", string(dim)), logging.Err(err))
			if first == nil {
				first = err
			}
			continue
		}
		c.publish(dim, resp.Items)
	}
	return first
}

// Search schedules a debounced search for dim.
func (c *Catalog) Search(dim focos.Dimension, text string) {
	c.debounce.Trigger(dim, func() {
		if _, err := c.SearchNow(c.parent, dim, text); err != nil && !client.IsCanceled(err) {
			c.cfg.Logger.Warn("search failed", logging.String("entity", string(dim)), logging.Err(err))
		}
	})
}

// SearchNow searches dim immediately. Municipal searches are scoped to the
// selected UF and need one. A newer search of the same dimension
// supersedes this one.
func (c *Catalog) SearchNow(ctx context.Context, dim focos.Dimension, text string) ([]focos.Option, error) {
	text = strings.TrimSpace(text)
	uf := ""
	if dim == focos.DimMun {
		uf = c.cfg.Store.Snapshot().Filters.UF
		if uf == "" {
			c.publish(dim, nil)
			return nil, errors.InvalidParam("uf is required to search municipalities")
		}
	}

	cycle := c.cfg.Cycles.Begin(ctx, searchGroup(dim))
	resp, err := c.cfg.Source.Search(cycle.Context(), dim, text, uf, c.cfg.SearchLimit)
	if err != nil {
		return nil, err
	}
	var out []focos.Option
	if !c.cfg.Cycles.Commit(cycle, func() { out = c.publish(dim, resp.Items) }) {
		return nil, errors.ErrCancelled
	}
	return out, nil
}

// publish renders labels and hands the list to the sink.
func (c *Catalog) publish(dim focos.Dimension, items []focos.Option) []focos.Option {
	out := make([]focos.Option, 0, len(items))
	for _, it := range items {
		key := strings.TrimSpace(it.Key)
		if key == "" {
			continue
		}
		if dim == focos.DimUF {
			key = strings.ToUpper(key)
		}
		out = append(out, focos.Option{Key: key, Label: labels.ForDimension(dim, it.Label, key), UF: it.UF})
	}
	c.mu.Lock()
	c.items[dim] = out
	c.mu.Unlock()
	if c.cfg.Sink != nil {
		c.cfg.Sink.SetCatalog(dim, out)
	}
	return out
}

// Items returns the last list of dim.
func (c *Catalog) Items(dim focos.Dimension) []focos.Option {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.items[dim]
}

// Label finds the rendered label of key in the last list of dim.
func (c *Catalog) Label(dim focos.Dimension, key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, it := range c.items[dim] {
		if it.Key == key {
			return it.Label, true
		}
	}
	return "", false
}

// Stop drops pending searches.
func (c *Catalog) Stop() {
	c.debounce.Stop()
}
