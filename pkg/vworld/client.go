// Package vworld is a client for the VWorld (국토교통부 공간정보 오픈플랫폼) data and
// WMTS APIs, limited to the airspace layers.
package vworld

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/airzone/internal/resilience"
)

const (
	defaultBaseURL  = "https://api.vworld.kr"
	defaultWMTSURL  = "https://api.vworld.kr/req/wmts/1.0.0"
	defaultPageSize = 1000
)

// Client fetches airspace features from VWorld.
type Client interface {
	// GetFeatures returns the features of layer that intersect bbox.
	GetFeatures(ctx context.Context, layer Layer, bbox BBox) (*FeatureSet, error)

	// WMTSURL returns the basemap tile URL for z/x/y.
	WMTSURL(z, x, y int) string
}

// Option configures the client.
type Option func(*client)

// WithBaseURL overrides the data API host.
func WithBaseURL(u string) Option {
	return func(c *client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithWMTSURL overrides the WMTS endpoint.
func WithWMTSURL(u string) Option {
	return func(c *client) {
		c.wmtsURL = strings.TrimRight(u, "/")
	}
}

// WithDomain sets the domain registered with the API key.
func WithDomain(d string) Option {
	return func(c *client) {
		c.domain = d
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithPageSize sets the GetFeature size parameter (max 1000).
func WithPageSize(n int) Option {
	return func(c *client) {
		if n > 0 && n <= defaultPageSize {
			c.pageSize = n
		}
	}
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *client) {
		c.retry = cfg
	}
}

type client struct {
	key        string
	domain     string
	baseURL    string
	wmtsURL    string
	pageSize   int
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
}

// NewClient creates a VWorld client for the given API key.
func NewClient(key string, opts ...Option) Client {
	c := &client{
		key:        key,
		baseURL:    defaultBaseURL,
		wmtsURL:    defaultWMTSURL,
		pageSize:   defaultPageSize,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(5, 5),
		retry:      resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = resilience.RetryLogger("vworld", "get_feature")
	}
	return c
}

func (c *client) featureURL(layer Layer, bbox BBox) string {
	params := url.Values{
		"service":    {"data"},
		"request":    {"GetFeature"},
		"data":       {string(layer)},
		"format":     {"json"},
		"crs":        {"EPSG:4326"},
		"size":       {strconv.Itoa(c.pageSize)},
		"geomFilter": {bbox.geomFilter()},
		"key":        {c.key},
	}
	if c.domain != "" {
		params.Set("domain", c.domain)
	}
	return c.baseURL + "/req/data?" + params.Encode()
}

// GetFeatures issues one GetFeature request. NOT_FOUND yields an empty set.
func (c *client) GetFeatures(ctx context.Context, layer Layer, bbox BBox) (*FeatureSet, error) {
	if c.key == "" {
		return nil, eris.New("vworld: api key not configured")
	}
	if err := bbox.Validate(); err != nil {
		return nil, err
	}

	reqURL := c.featureURL(layer, bbox)
	body, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, reqURL)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "vworld: get %s", layer)
	}

	fs, err := decodeFeatureSet(layer, body)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("vworld: features fetched",
		zap.String("layer", string(layer)),
		zap.Stringer("bbox", bbox),
		zap.Int("count", len(fs.Features)),
		zap.Int("total", fs.Total),
	)
	if fs.Total > len(fs.Features) {
		zap.L().Warn("vworld: result truncated by page size",
			zap.String("layer", string(layer)),
			zap.Int("total", fs.Total),
			zap.Int("returned", len(fs.Features)),
		)
	}
	return fs, nil
}

func (c *client) get(ctx context.Context, reqURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "vworld: rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "vworld: build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "vworld: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return nil, resilience.TransientFromResponse(resp,
			eris.Errorf("vworld: returned status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("vworld: returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "vworld: read body")
	}
	return body, nil
}

// WMTSURL builds {wmts}/{key}/Base/{z}/{y}/{x}.png. Row precedes column.
func (c *client) WMTSURL(z, x, y int) string {
	return fmt.Sprintf("%s/%s/Base/%d/%d/%d.png", c.wmtsURL, c.key, z, y, x)
}
