package session

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/focosview/focosview/pkg/client"
)

// fakeAPI answers every endpoint the session calls with consistent numbers:
// 100 detections, split evenly between two UFs.
type fakeAPI struct {
	mu    sync.Mutex
	calls map[string]int
}

func startFakeAPI(t *testing.T) (*fakeAPI, *client.Client) {
	t.Helper()
	f := &fakeAPI{calls: map[string]int{}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	c, err := client.NewClient(srv.URL, client.WithRetryMax(0))
	require.NoError(t, err)
	return f, c
}

func (f *fakeAPI) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func reply(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func feature(props map[string]any) map[string]any {
	return map[string]any{"type": "Feature", "properties": props,
		"geometry": map[string]any{"type": "Point", "coordinates": []float64{-55, -12}}}
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f.mu.Lock()
	f.calls[r.URL.Path]++
	f.mu.Unlock()

	switch r.URL.Path {
	case "/api/summary":
		reply(w, map[string]any{"from": q.Get("from"), "to": q.Get("to"), "total_n_focos": 100,
			"mean_per_day": 3.2, "days": 31, "peak_day": "2024-08-20", "peak_n_focos": 12})
	case "/api/choropleth/uf":
		reply(w, map[string]any{"geojson": map[string]any{"type": "FeatureCollection", "features": []any{
			feature(map[string]any{"uf": "MT", "n_focos": 50}),
			feature(map[string]any{"uf": "PA", "n_focos": 50}),
		}}})
	case "/api/choropleth/mun":
		reply(w, map[string]any{"geojson": map[string]any{"type": "FeatureCollection", "features": []any{
			feature(map[string]any{"key": "5103403", "label": "Cuiaba", "uf": q.Get("uf"), "n_focos": 50}),
		}}})
	case "/api/top":
		reply(w, map[string]any{"group": q.Get("group"), "items": []any{
			map[string]any{"key": "k1", "label": "primeiro", "n_focos": 60},
			map[string]any{"key": "k2", "label": "segundo", "n_focos": 40},
		}})
	case "/api/timeseries/total":
		reply(w, map[string]any{"granularity": "day", "items": []any{
			map[string]any{"day": q.Get("from"), "n_focos": 100},
		}})
	case "/api/totals":
		reply(w, map[string]any{"n_focos": 100})
	case "/api/validate":
		reply(w, map[string]any{"consistent": true})
	case "/api/bounds":
		reply(w, map[string]any{"entity": q.Get("entity"), "key": q.Get("key"),
			"bbox": []float64{-61.6, -18.1, -50.2, -7.3}})
	case "/api/geo":
		reply(w, map[string]any{"entity": q.Get("entity"), "key": q.Get("key"), "geojson": map[string]any{
			"type": "FeatureCollection", "features": []any{feature(map[string]any{"key": q.Get("key")})},
		}})
	case "/api/lookup/mun":
		reply(w, map[string]any{"mun": q.Get("key"), "mun_nome": "Cuiaba", "uf": "mt", "uf_nome": "Mato Grosso"})
	case "/api/options":
		reply(w, map[string]any{"entity": q.Get("entity"), "items": []any{
			map[string]any{"key": "mt", "label": "mt"},
			map[string]any{"key": "pa", "label": "pa"},
		}})
	case "/api/search":
		reply(w, map[string]any{"entity": q.Get("entity"), "q": q.Get("q"), "items": []any{
			map[string]any{"key": "5103403", "label": "cuiaba", "uf": "MT"},
		}})
	case "/api/points":
		reply(w, map[string]any{"date": q.Get("date"), "returned": 2, "limit": 20000, "truncated": false,
			"points": []any{
				map[string]any{"lon": -55.1, "lat": -12.2, "n": 1, "point_date": q.Get("date")},
				map[string]any{"lon": -54.3, "lat": -11.9, "n": 3, "point_date": q.Get("date")},
			}})
	default:
		http.NotFound(w, r)
	}
}
