package geospatial

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTileURL(base string) TileURLFunc {
	return func(z, x, y int) string {
		return fmt.Sprintf("%s/KEY/Base/%d/%d/%d.png", base, z, y, x)
	}
}

func TestValidTile(t *testing.T) {
	assert.True(t, ValidTile(0, 0, 0))
	assert.True(t, ValidTile(11, 1746, 792))
	assert.False(t, ValidTile(1, 2, 0))
	assert.False(t, ValidTile(-1, 0, 0))
	assert.False(t, ValidTile(MaxZoom+1, 0, 0))
	assert.False(t, ValidTile(3, 0, -1))
}

func TestTileProxy_Fetch(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/KEY/Base/11/792/1746.png", r.URL.Path)
		assert.Equal(t, "airzone/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("fake-png"))
	}))
	defer upstream.Close()

	proxy := NewTileProxy(testTileURL(upstream.URL), nil)
	data, ct, err := proxy.Fetch(context.Background(), 11, 1746, 792)
	require.NoError(t, err)
	assert.Equal(t, "fake-png", string(data))
	assert.Equal(t, "image/png", ct)
}

func TestTileProxy_CacheHit(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("tile"))
	}))
	defer upstream.Close()

	proxy := NewTileProxy(testTileURL(upstream.URL), NewTileCache(100, 10*time.Minute))

	for i := 0; i < 2; i++ {
		_, ct, err := proxy.Fetch(context.Background(), 5, 10, 10)
		require.NoError(t, err)
		assert.Equal(t, "image/png", ct)
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int64(1), proxy.Stats().Hits)
}

func TestTileProxy_NotFound(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer upstream.Close()

	_, _, err := NewTileProxy(testTileURL(upstream.URL), nil).Fetch(context.Background(), 5, 1, 1)
	assert.True(t, errors.Is(err, ErrTileNotFound))
}

func TestTileProxy_UpstreamError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()

	_, _, err := NewTileProxy(testTileURL(upstream.URL), nil).Fetch(context.Background(), 5, 1, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "returned 500")
}

func TestTileProxy_InvalidTile(t *testing.T) {
	proxy := NewTileProxy(testTileURL("http://unused"), nil)
	_, _, err := proxy.Fetch(context.Background(), 2, 9, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid tile")
}

func TestTileProxy_DetectsContentType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header()["Content-Type"] = nil
		_, _ = w.Write(png)
	}))
	defer upstream.Close()

	_, ct, err := NewTileProxy(testTileURL(upstream.URL), nil).Fetch(context.Background(), 1, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)
}
