package geospatial

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrTileNotFound is returned when the upstream has no tile at z/x/y.
var ErrTileNotFound = errors.New("geo: tile not found")

// MaxZoom is the deepest VWorld basemap level.
const MaxZoom = 19

const basemapLayer = "base"

// TileURLFunc builds the upstream URL of tile z/x/y.
type TileURLFunc func(z, x, y int) string

// TileProxy fetches basemap raster tiles from VWorld WMTS through a cache.
type TileProxy struct {
	tileURL TileURLFunc
	client  *http.Client
	cache   *TileCache
}

// NewTileProxy creates a basemap proxy. cache may be nil.
func NewTileProxy(tileURL TileURLFunc, cache *TileCache) *TileProxy {
	return &TileProxy{
		tileURL: tileURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache: cache,
	}
}

// ValidTile reports whether z/x/y addresses a tile in the XYZ scheme.
func ValidTile(z, x, y int) bool {
	if z < 0 || z > MaxZoom {
		return false
	}
	n := 1 << z
	return x >= 0 && x < n && y >= 0 && y < n
}

// Fetch returns tile bytes and content type from cache or upstream.
func (p *TileProxy) Fetch(ctx context.Context, z, x, y int) ([]byte, string, error) {
	if !ValidTile(z, x, y) {
		return nil, "", eris.Errorf("geo: invalid tile %d/%d/%d", z, x, y)
	}

	if p.cache != nil {
		if data, ct, ok := p.cache.Get(basemapLayer, z, x, y); ok {
			return data, ct, nil
		}
	}

	url := p.tileURL(z, x, y)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", eris.Wrap(err, "geo: create basemap request")
	}
	req.Header.Set("User-Agent", "airzone/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, "", eris.Wrap(err, "geo: fetch basemap tile")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, "", ErrTileNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", eris.Errorf("geo: basemap upstream returned %d for %d/%d/%d", resp.StatusCode, z, x, y)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", eris.Wrap(err, "geo: read basemap tile body")
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = http.DetectContentType(data)
	}

	if p.cache != nil {
		p.cache.Put(basemapLayer, z, x, y, data, ct)
	}

	zap.L().Debug("geo: fetched basemap tile",
		zap.Int("z", z), zap.Int("x", x), zap.Int("y", y),
		zap.Int("bytes", len(data)),
	)
	return data, ct, nil
}

// Stats returns the tile cache statistics, or zero stats without a cache.
func (p *TileProxy) Stats() CacheStats {
	if p.cache == nil {
		return CacheStats{}
	}
	return p.cache.Stats()
}
