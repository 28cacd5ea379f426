// Package rss subscribes to feeds through an RSS-to-JSON conversion service
// and keeps the list of subscribed feeds.
package rss

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"globe-desktop/internal/common"
	"globe-desktop/internal/logger"
	"globe-desktop/internal/ratelimit"
)

var (
	// ErrInvalidFeed means the conversion service rejected the feed URL
	ErrInvalidFeed = errors.New("invalid RSS feed URL")

	// ErrFeedUnavailable means the conversion service could not be reached or decoded
	ErrFeedUnavailable = errors.New("error loading RSS feed")
)

// UserMessage returns the notification text shown for a subscription error
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidFeed):
		return "Invalid RSS feed URL"
	default:
		return "Error loading RSS feed"
	}
}

// Item is a single feed entry
type Item struct {
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Description string    `json:"description"`
	PubDate     string    `json:"pubDate"`
	Published   time.Time `json:"published"`
}

// Document is a converted feed
type Document struct {
	Title string `json:"title"`
	Link  string `json:"link"`
	Items []Item `json:"items"`
}

type apiResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Feed    struct {
		Title string `json:"title"`
		Link  string `json:"link"`
	} `json:"feed"`
	Items []struct {
		Title       string `json:"title"`
		Link        string `json:"link"`
		PubDate     string `json:"pubDate"`
		Description string `json:"description"`
	} `json:"items"`
}

// Client fetches feeds from an rss2json-compatible endpoint
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *ratelimit.Handler
	log        *zap.Logger
}

// NewClient creates a feed client. limiter and log may be nil.
func NewClient(baseURL string, limiter *ratelimit.Handler, log *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   20 * time.Second,
			Transport: &http.Transport{Proxy: http.ProxyFromEnvironment},
		},
		limiter: limiter,
		log:     logger.OrNop(log),
	}
}

// Fetch converts the feed at feedURL. A response whose status is not "ok"
// yields ErrInvalidFeed; transport and decode failures yield ErrFeedUnavailable.
func (c *Client) Fetch(ctx context.Context, feedURL string) (*Document, error) {
	feedURL = strings.TrimSpace(feedURL)
	if feedURL == "" {
		return nil, ErrInvalidFeed
	}
	if c.limiter != nil {
		if err := c.limiter.Allow(common.ProviderRSS2JSON); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFeedUnavailable, err)
		}
	}

	q := url.Values{}
	q.Set("rss_url", feedURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/api.json?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", ErrFeedUnavailable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	if c.limiter != nil && c.limiter.CheckResponse(common.ProviderRSS2JSON, resp) {
		return nil, fmt.Errorf("%w: %w", ErrFeedUnavailable, ratelimit.ErrRateLimited)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response (status %d): %w", ErrFeedUnavailable, resp.StatusCode, err)
	}
	if body.Status != "ok" {
		c.log.Info("[RSS] feed rejected", zap.String("url", feedURL), zap.String("message", body.Message))
		return nil, ErrInvalidFeed
	}

	doc := &Document{
		Title: body.Feed.Title,
		Link:  body.Feed.Link,
		Items: make([]Item, 0, len(body.Items)),
	}
	for _, it := range body.Items {
		item := Item{
			Title:       it.Title,
			Link:        it.Link,
			Description: it.Description,
			PubDate:     it.PubDate,
		}
		if t, err := common.ParseFeedDate(it.PubDate); err == nil {
			item.Published = t
		}
		doc.Items = append(doc.Items, item)
	}
	return doc, nil
}
