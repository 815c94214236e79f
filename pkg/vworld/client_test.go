package vworld

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/airzone/internal/resilience"
)

const okResponse = `{
  "response": {
    "status": "OK",
    "record": {"total": "2", "current": "2"},
    "result": {
      "featureCollection": {
        "type": "FeatureCollection",
        "features": [
          {
            "type": "Feature",
            "id": "LT_C_AISPRHC.1",
            "geometry": {"type": "MultiPolygon", "coordinates": [[[[126.9,37.5],[127.0,37.5],[127.0,37.6],[126.9,37.5]]]]},
            "properties": {"prh_lbl_1": "P73A", "prh_typ": "비행금지구역"}
          },
          {
            "type": "Feature",
            "id": 7,
            "geometry": {"type": "Polygon", "coordinates": [[[126.5,37.1],[126.6,37.1],[126.6,37.2],[126.5,37.1]]]},
            "properties": {"name": "R75"}
          }
        ]
      }
    }
  }
}`

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func newTestClient(srvURL string) Client {
	return NewClient("test-key",
		WithBaseURL(srvURL),
		WithDomain("localhost"),
		WithRateLimit(1000),
		WithRetry(fastRetry()),
	)
}

func TestGetFeatures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/req/data", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "GetFeature", q.Get("request"))
		assert.Equal(t, "LT_C_AISPRHC", q.Get("data"))
		assert.Equal(t, "EPSG:4326", q.Get("crs"))
		assert.Equal(t, "1000", q.Get("size"))
		assert.Equal(t, "BOX(124,33,132,39)", q.Get("geomFilter"))
		assert.Equal(t, "test-key", q.Get("key"))
		assert.Equal(t, "localhost", q.Get("domain"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(okResponse))
	}))
	defer srv.Close()

	fs, err := newTestClient(srv.URL).GetFeatures(context.Background(), LayerProhibited, KoreaBBox)
	require.NoError(t, err)

	assert.Equal(t, LayerProhibited, fs.Layer)
	assert.Equal(t, 2, fs.Total)
	require.Len(t, fs.Features, 2)

	first := fs.Features[0]
	assert.Equal(t, "LT_C_AISPRHC.1", first.ID)
	assert.Equal(t, "P73A", first.Label)
	_, ok := first.Geometry.(*geom.MultiPolygon)
	assert.True(t, ok)

	second := fs.Features[1]
	assert.Equal(t, "7", second.ID)
	assert.Equal(t, "R75", second.Label)
	_, ok = second.Geometry.(*geom.Polygon)
	assert.True(t, ok)
}

func TestGetFeatures_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":{"status":"NOT_FOUND","record":{"total":"0"}}}`))
	}))
	defer srv.Close()

	fs, err := newTestClient(srv.URL).GetFeatures(context.Background(), LayerATZ, KoreaBBox)
	require.NoError(t, err)
	assert.True(t, fs.Empty())
	assert.Equal(t, LayerATZ, fs.Layer)
}

func TestGetFeatures_MissingCollection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":{"status":"OK","result":{}}}`))
	}))
	defer srv.Close()

	fs, err := newTestClient(srv.URL).GetFeatures(context.Background(), LayerRestricted, KoreaBBox)
	require.NoError(t, err)
	assert.True(t, fs.Empty())
}

func TestGetFeatures_ErrorStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"response":{"status":"ERROR","error":{"level":"1","code":"INVALID_KEY","text":"등록되지 않은 인증키입니다."}}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetFeatures(context.Background(), LayerRestricted, KoreaBBox)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_KEY")
	assert.Contains(t, err.Error(), "등록되지 않은 인증키입니다.")
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetFeatures_RetriesServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(okResponse))
	}))
	defer srv.Close()

	fs, err := newTestClient(srv.URL).GetFeatures(context.Background(), LayerProhibited, KoreaBBox)
	require.NoError(t, err)
	assert.Len(t, fs.Features, 2)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetFeatures_BadRequestNoRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetFeatures(context.Background(), LayerProhibited, KoreaBBox)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetFeatures_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetFeatures(context.Background(), LayerProhibited, KoreaBBox)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse response")
}

func TestGetFeatures_NoKey(t *testing.T) {
	_, err := NewClient("").GetFeatures(context.Background(), LayerProhibited, KoreaBBox)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key not configured")
}

func TestGetFeatures_InvalidBBox(t *testing.T) {
	_, err := NewClient("k").GetFeatures(context.Background(), LayerProhibited, BBox{West: 130, South: 33, East: 124, North: 39})
	require.Error(t, err)
}

func TestWMTSURL(t *testing.T) {
	c := NewClient("abc", WithWMTSURL("https://tiles.example/wmts/"))
	assert.Equal(t, "https://tiles.example/wmts/abc/Base/11/792/1746.png", c.WMTSURL(11, 1746, 792))

	def := NewClient("abc")
	assert.Equal(t, "https://api.vworld.kr/req/wmts/1.0.0/abc/Base/7/49/109.png", def.WMTSURL(7, 109, 49))
}

func TestWithPageSize(t *testing.T) {
	c := NewClient("k", WithPageSize(200)).(*client)
	assert.Equal(t, 200, c.pageSize)

	c = NewClient("k", WithPageSize(5000)).(*client)
	assert.Equal(t, 1000, c.pageSize)
}
