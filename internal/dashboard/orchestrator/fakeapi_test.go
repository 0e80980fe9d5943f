package orchestrator

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/focosview/focosview/pkg/client"
)

type failure struct {
	code   int
	detail string
}

// fakeAPI serves the aggregate endpoints from in-memory numbers. Totals per
// UF filter let tests tell cycles apart.
type fakeAPI struct {
	mu         sync.Mutex
	total      map[string]int64
	seriesGap  int64
	ufGap      int64
	consistent bool
	fail       map[string]failure
	bounds     map[string][]float64
	overlay    json.RawMessage
	block      map[string]chan struct{}
	calls      map[string]int
	topLimits  map[string]string
	peak       string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		total:      map[string]int64{"": 100},
		consistent: true,
		fail:       map[string]failure{},
		bounds:     map[string][]float64{},
		block:      map[string]chan struct{}{},
		calls:      map[string]int{},
		topLimits:  map[string]string{},
		peak:       "2024-08-20",
	}
}

func (f *fakeAPI) start(t *testing.T) *client.Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	c, err := client.NewClient(srv.URL, client.WithRetryMax(0))
	require.NoError(t, err)
	return c
}

func (f *fakeAPI) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	uf := q.Get("uf")

	f.mu.Lock()
	f.calls[r.URL.Path]++
	fl, failing := f.fail[r.URL.Path]
	gate := f.block[r.URL.Path+"?uf="+uf]
	total := f.total[uf]
	if r.URL.Path == "/api/top" {
		f.topLimits[q.Get("group")] = q.Get("limit")
	}
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if failing {
		w.WriteHeader(fl.code)
		writeJSON(w, map[string]string{"detail": fl.detail})
		return
	}

	switch r.URL.Path {
	case "/api/summary":
		writeJSON(w, map[string]any{
			"from": q.Get("from"), "to": q.Get("to"), "total_n_focos": total,
			"mean_per_day": float64(total) / 30, "days": 30,
			"peak_day": f.peak, "peak_n_focos": 9,
		})
	case "/api/choropleth/uf":
		half := (total - f.ufGap) / 2
		writeJSON(w, map[string]any{
			"geojson": map[string]any{"type": "FeatureCollection", "features": []any{
				map[string]any{"type": "Feature", "properties": map[string]any{"uf": "MT", "n_focos": half}},
				map[string]any{"type": "Feature", "properties": map[string]any{"uf": "PA", "n_focos": total - f.ufGap - half}},
			}},
			"breaks": []float64{1, 2, 3, 4, 5},
		})
	case "/api/choropleth/mun":
		writeJSON(w, map[string]any{
			"geojson": map[string]any{"type": "FeatureCollection", "features": []any{
				map[string]any{"type": "Feature", "properties": map[string]any{"key": "5103403", "label": "Cuiaba", "uf": uf, "n_focos": total}},
			}},
		})
	case "/api/top":
		group := q.Get("group")
		writeJSON(w, map[string]any{"group": group, "items": []any{
			map[string]any{"key": "k1", "label": "sao felix do xingu", "n_focos": 3},
			map[string]any{"key": "mt", "label": "", "n_focos": 2},
		}})
	case "/api/timeseries/total":
		writeJSON(w, map[string]any{"granularity": "day", "items": []any{
			map[string]any{"day": q.Get("from"), "n_focos": total - f.seriesGap},
		}})
	case "/api/totals":
		writeJSON(w, map[string]any{"n_focos": total})
	case "/api/validate":
		writeJSON(w, map[string]any{"consistent": f.consistent})
	case "/api/bounds":
		key := q.Get("entity") + ":" + q.Get("key")
		f.mu.Lock()
		box, ok := f.bounds[key]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			writeJSON(w, map[string]string{"detail": "unknown " + key})
			return
		}
		writeJSON(w, map[string]any{"entity": q.Get("entity"), "key": q.Get("key"), "bbox": box})
	case "/api/geo":
		writeJSON(w, map[string]any{"entity": q.Get("entity"), "key": q.Get("key"), "geojson": f.overlay})
	case "/api/lookup/mun":
		key := q.Get("mun")
		if key == "" {
			key = q.Get("key")
		}
		if key == "0000000" {
			w.WriteHeader(http.StatusNotFound)
			writeJSON(w, map[string]string{"detail": "not found"})
			return
		}
		writeJSON(w, map[string]any{"mun": key, "mun_nome": "Cuiaba", "uf": "mt", "uf_nome": "Mato Grosso"})
	default:
		http.Error(w, fmt.Sprintf("unexpected %s", r.URL.Path), http.StatusNotFound)
	}
}
