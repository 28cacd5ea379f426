package weather

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"globe-desktop/internal/common"
	"globe-desktop/internal/logger"
	"globe-desktop/internal/ratelimit"
)

// ErrNoAPIKey is returned when no weather API key is configured
var ErrNoAPIKey = errors.New("weather API key not configured")

// Client queries current temperatures from an OpenWeatherMap-compatible API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *ratelimit.Handler
	log        *zap.Logger
}

type currentResponse struct {
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Name string `json:"name"`
}

// NewClient creates a weather client. limiter and log may be nil.
func NewClient(baseURL, apiKey string, limiter *ratelimit.Handler, log *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout:   15 * time.Second,
			Transport: &http.Transport{Proxy: http.ProxyFromEnvironment},
		},
		limiter: limiter,
		log:     logger.OrNop(log),
	}
}

// Enabled reports whether an API key is configured
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// Temperature returns the current temperature in °C at lat/lon
func (c *Client) Temperature(ctx context.Context, lat, lon float64) (float64, error) {
	if !c.Enabled() {
		return 0, ErrNoAPIKey
	}
	if c.limiter != nil {
		if err := c.limiter.Allow(common.ProviderOpenWeather); err != nil {
			return 0, err
		}
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("units", "metric")
	q.Set("appid", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/data/2.5/weather?"+q.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch weather for %v,%v: %w", lat, lon, err)
	}
	defer resp.Body.Close()

	if c.limiter != nil && c.limiter.CheckResponse(common.ProviderOpenWeather, resp) {
		return 0, ratelimit.ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("weather request failed with status: %d", resp.StatusCode)
	}

	var body currentResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("failed to decode weather response: %w", err)
	}
	return body.Main.Temp, nil
}
