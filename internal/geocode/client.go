// Package geocode resolves free-text place queries to coordinates using a
// Nominatim-compatible search API.
package geocode

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/goccy/go-json"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"globe-desktop/internal/common"
	"globe-desktop/internal/logger"
	"globe-desktop/internal/ratelimit"
)

// TypingDelay is how long SearchAsYouType waits for input to settle
const TypingDelay = 500 * time.Millisecond

// Result is a single geocoding match
type Result struct {
	Name        string  `json:"name"`
	DisplayName string  `json:"displayName"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Client searches places by name
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *ratelimit.Handler
	cache      *lru.Cache[string, []Result]
	log        *zap.Logger

	debounced func(f func())
	mu        sync.Mutex
	seq       uint64
}

// NewClient creates a geocoding client. limiter and log may be nil.
func NewClient(baseURL, userAgent string, limiter *ratelimit.Handler, log *zap.Logger) *Client {
	results, _ := lru.New[string, []Result](128)
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout:   15 * time.Second,
			Transport: &http.Transport{Proxy: http.ProxyFromEnvironment},
		},
		limiter:   limiter,
		cache:     results,
		log:       logger.OrNop(log),
		debounced: debounce.New(TypingDelay),
	}
}

// Search returns matches for query. A blank query returns no results.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	key := strings.ToLower(query)
	if cached, ok := c.cache.Get(key); ok {
		return cached, nil
	}

	if c.limiter != nil {
		if err := c.limiter.Allow(common.ProviderNominatim); err != nil {
			return nil, err
		}
	}

	q := url.Values{}
	q.Set("format", "json")
	q.Set("q", query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to search %q: %w", query, err)
	}
	defer resp.Body.Close()

	if c.limiter != nil && c.limiter.CheckResponse(common.ProviderNominatim, resp) {
		return nil, ratelimit.ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search failed with status: %d", resp.StatusCode)
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	results := make([]Result, 0, len(places))
	for _, p := range places {
		r, err := p.result()
		if err != nil {
			c.log.Warn("[Geocode] skipping malformed place", zap.String("name", p.DisplayName), zap.Error(err))
			continue
		}
		results = append(results, r)
	}
	c.cache.Add(key, results)
	return results, nil
}

// SearchAsYouType runs Search once typing pauses for TypingDelay and hands
// the outcome to done. Only the latest query in a burst is searched.
func (c *Client) SearchAsYouType(ctx context.Context, query string, done func(query string, results []Result, err error)) {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	c.debounced(func() {
		results, err := c.Search(ctx, query)
		c.mu.Lock()
		stale := seq != c.seq
		c.mu.Unlock()
		if stale {
			return
		}
		done(query, results, err)
	})
}

func (p nominatimPlace) result() (Result, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return Result{}, fmt.Errorf("invalid lat %q: %w", p.Lat, err)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return Result{}, fmt.Errorf("invalid lon %q: %w", p.Lon, err)
	}
	return Result{
		Name:        ShortName(p.DisplayName),
		DisplayName: p.DisplayName,
		Lat:         lat,
		Lon:         lon,
	}, nil
}

// ShortName returns the first comma-separated part of a display name
func ShortName(displayName string) string {
	name, _, _ := strings.Cut(displayName, ",")
	return strings.TrimSpace(name)
}
