package location

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"globe-desktop/internal/logger"
)

// ServiceClient asks a local extraction service for place names.
// The service answers {"location": "place1 place2 ..."}.
type ServiceClient struct {
	url        string
	httpClient *http.Client
	debug      bool
	log        *zap.Logger
}

type extractRequest struct {
	Content string `json:"content"`
}

type extractResponse struct {
	Location string `json:"location"`
}

// NewServiceClient creates a client for the service at url
func NewServiceClient(url string, debug bool, log *zap.Logger) *ServiceClient {
	return &ServiceClient{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		debug:      debug,
		log:        logger.OrNop(log),
	}
}

// Extract implements Extractor. Any failure yields [Unknown].
func (s *ServiceClient) Extract(ctx context.Context, content string) []string {
	locations, err := s.extract(ctx, content)
	if err != nil {
		s.log.Warn("[Location] extraction service failed", zap.Error(err))
		return []string{Unknown}
	}
	if s.debug {
		s.log.Debug("[Location] extracted", zap.Strings("locations", locations))
	}
	return locations
}

func (s *ServiceClient) extract(ctx context.Context, content string) ([]string, error) {
	body, err := json.Marshal(extractRequest{Content: content})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach extraction service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extraction service returned status: %d", resp.StatusCode)
	}

	var out extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode extraction response: %w", err)
	}

	locations := strings.Fields(out.Location)
	if len(locations) == 0 {
		return []string{Unknown}, nil
	}
	return locations, nil
}
