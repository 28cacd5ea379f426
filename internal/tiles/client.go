package tiles

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	_ "golang.org/x/image/webp"

	"globe-desktop/internal/cache"
	"globe-desktop/internal/common"
	"globe-desktop/internal/config"
	"globe-desktop/internal/logger"
	"globe-desktop/internal/ratelimit"
)

var (
	// ErrTileStatus is wrapped for non-200 tile responses
	ErrTileStatus = errors.New("unexpected tile response status")

	// ErrNotImage is wrapped when a 200 body is not a decodable image
	ErrNotImage = errors.New("tile response is not an image")
)

// DefaultTimeout bounds a single tile request
const DefaultTimeout = 30 * time.Second

// Client fetches raster tiles from a slippy-map server, consulting the
// tile cache first and the rate limiter before every network request.
type Client struct {
	httpClient *http.Client
	source     config.TileSource
	provider   string
	cache      *cache.TileCache
	limiter    *ratelimit.Handler
	log        *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithCache enables the tile byte cache
func WithCache(c *cache.TileCache) Option {
	return func(cl *Client) { cl.cache = c }
}

// WithRateLimiter enables throttling detection
func WithRateLimiter(h *ratelimit.Handler) Option {
	return func(cl *Client) { cl.limiter = h }
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(cl *Client) { cl.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(cl *Client) { cl.log = logger.OrNop(l) }
}

// NewClient creates a tile client with system proxy support
func NewClient(source config.TileSource, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: &http.Transport{Proxy: http.ProxyFromEnvironment},
		},
		source:   source,
		provider: source.Name,
		log:      zap.NewNop(),
	}
	if c.provider == "" {
		c.provider = common.ProviderOSM
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Provider returns the cache and rate-limit identifier of the tile source
func (c *Client) Provider() string {
	return c.provider
}

// TileSize returns the nominal tile edge in pixels
func (c *Client) TileSize() int {
	if c.source.TileSize <= 0 {
		return 256
	}
	return c.source.TileSize
}

// URL returns the request URL for t
func (c *Client) URL(t Tile) string {
	return URL(c.source.URLTemplate, c.source.Subdomains, t)
}

// FetchTile returns the encoded tile image. cached reports whether the
// bytes came from the cache rather than the network.
func (c *Client) FetchTile(ctx context.Context, t Tile) (data []byte, cached bool, err error) {
	key := cache.TileKey{Provider: c.provider, Z: t.Z, X: t.X, Y: t.Y}
	if c.cache != nil {
		if data, ok := c.cache.Get(key); ok {
			return data, true, nil
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Allow(c.provider); err != nil {
			return nil, false, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(t), nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	if c.source.UserAgent != "" {
		req.Header.Set("User-Agent", c.source.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("failed to fetch tile %s: %w", t, err)
	}
	defer resp.Body.Close()

	if c.limiter != nil && c.limiter.CheckResponse(c.provider, resp) {
		return nil, false, fmt.Errorf("tile %s: %w", t, ratelimit.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("tile %s: %w: %d", t, ErrTileStatus, resp.StatusCode)
	}

	data, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read tile %s: %w", t, err)
	}

	// never cache a truncated body or an HTML error page served with 200
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, false, fmt.Errorf("tile %s: %w: %v", t, ErrNotImage, err)
	}

	if c.cache != nil {
		if err := c.cache.Set(key, data); err != nil {
			c.log.Warn("[Tiles] failed to cache tile", zap.Stringer("tile", t), zap.Error(err))
		}
	}

	return data, false, nil
}
