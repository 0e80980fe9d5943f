package client

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/focosview/focosview/pkg/errors"
	"github.com/focosview/focosview/pkg/types/focos"
)

func TestGeo_BoundsCached(t *testing.T) {
	var calls int32
	handler := func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "mun", r.URL.Query().Get("entity"))
		assert.Equal(t, "MT", r.URL.Query().Get("uf"))
		w.Write([]byte(`{"entity":"mun","key":"5103403","bbox":[-56.3,-15.7,-55.9,-15.3],"center":[-56.1,-15.5]}`))
	}
	c := newTestClient(t, handler, WithCache(newMapCache()))

	for i := 0; i < 2; i++ {
		b, err := c.Geo().Bounds(context.Background(), focos.DimMun, "5103403", "MT")
		require.NoError(t, err)
		box, ok := focos.BBoxFromSlice(b.BBox)
		assert.True(t, ok)
		assert.Equal(t, -56.3, box.MinLon)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGeo_BoundsErrorsAreNotCached(t *testing.T) {
	var calls int32
	handler := func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"detail":"geometry source not configured"}`))
	}
	cache := newMapCache()
	c := newTestClient(t, handler, WithCache(cache), WithRetryMax(0))

	_, err := c.Geo().Bounds(context.Background(), focos.DimUC, "uc-1", "")
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.True(t, apiErr.IsGeometrySourceMissing())
	assert.Empty(t, cache.data)
}

func TestGeo_OverlayRejectsNonOverlayEntity(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	_, err := c.Geo().Overlay(context.Background(), focos.DimUF, "MT", Scope{})
	assert.Error(t, err)
}

func TestGeo_Overlay(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/geo", r.URL.Path)
		assert.Equal(t, "ti", r.URL.Query().Get("entity"))
		assert.Equal(t, "ti-9", r.URL.Query().Get("key"))
		w.Write([]byte(`{"entity":"ti","key":"ti-9","geojson":{"type":"FeatureCollection","features":[]}}`))
	}
	c := newTestClient(t, handler)
	ov, err := c.Geo().Overlay(context.Background(), focos.DimTI, "ti-9", testScope())
	require.NoError(t, err)
	assert.Equal(t, focos.DimTI, ov.Entity)
	assert.NotEmpty(t, ov.GeoJSON)
}

func TestGeo_Points(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "2024-08-12", q.Get("date"))
		assert.Equal(t, "-60.000000,-15.000000,-50.000000,-5.000000", q.Get("bbox"))
		assert.Equal(t, "20000", q.Get("limit"))
		assert.Equal(t, "MT", q.Get("uf"))
		w.Write([]byte(`{"date":"2024-08-12","bbox":[-60,-15,-50,-5],"returned":2,"limit":20000,"truncated":false,
			"points":[{"lon":-55,"lat":-10,"n":0},{"lon":-56,"lat":-11,"n":3,"uc_key":"a|b"}]}`))
	}
	c := newTestClient(t, handler)
	p, err := c.Geo().Points(context.Background(), PointsRequest{
		Date:    focos.MustDate("2024-08-12"),
		BBox:    focos.BBox{MinLon: -60, MinLat: -15, MaxLon: -50, MaxLat: -5},
		Filters: focos.Filters{UF: "MT"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, p.Returned)
	assert.Equal(t, 1, p.Points[0].N)
	assert.Equal(t, []string{"a", "b"}, p.Points[1].UCKeys())
}

func TestGeo_PointsValidatesInput(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	_, err := c.Geo().Points(context.Background(), PointsRequest{BBox: focos.CountryBBox})
	assert.Error(t, err)

	_, err = c.Geo().Points(context.Background(), PointsRequest{Date: focos.MustDate("2024-08-12")})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidBBox))
}
