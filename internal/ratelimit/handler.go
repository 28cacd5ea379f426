package ratelimit

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"globe-desktop/internal/common"
	"globe-desktop/internal/logger"
)

// ErrRateLimited is returned by callers that refuse to contact a provider in cooldown.
var ErrRateLimited = errors.New("provider is rate limited")

// CooldownStrategy defines how long a provider is left alone after successive limits
type CooldownStrategy struct {
	Intervals []time.Duration
}

// DefaultCooldownStrategy starts at base and escalates on repeated limits
func DefaultCooldownStrategy(base time.Duration) *CooldownStrategy {
	if base <= 0 {
		base = 5 * time.Minute
	}
	return &CooldownStrategy{
		Intervals: []time.Duration{base, 2 * base, 3 * base, 6 * base},
	}
}

func (s *CooldownStrategy) interval(attempt int) time.Duration {
	if attempt < len(s.Intervals) {
		return s.Intervals[attempt]
	}
	return s.Intervals[len(s.Intervals)-1]
}

// RateLimitEvent represents a rate limit occurrence
type RateLimitEvent struct {
	Timestamp   time.Time `json:"timestamp" ts_type:"string"`
	Provider    string    `json:"provider"`
	StatusCode  int       `json:"statusCode"`
	Attempt     int       `json:"attempt"` // 0 on first occurrence
	NextRetryAt time.Time `json:"nextRetryAt" ts_type:"string"`
	Message     string    `json:"message"`
}

// Handler tracks per-provider cooldowns after 429/403/509 responses.
// Nothing is retried automatically; callers check Allow before each request.
type Handler struct {
	mu          sync.RWMutex
	rateLimited map[string]*RateLimitEvent
	strikes     map[string]int
	strategy    *CooldownStrategy
	onRateLimit func(event RateLimitEvent)
	onRecovered func(provider string)
	now         func() time.Time
	log         *zap.Logger
}

// NewHandler creates a new rate limit handler
func NewHandler(strategy *CooldownStrategy) *Handler {
	if strategy == nil || len(strategy.Intervals) == 0 {
		strategy = DefaultCooldownStrategy(0)
	}
	return &Handler{
		rateLimited: make(map[string]*RateLimitEvent),
		strikes:     make(map[string]int),
		strategy:    strategy,
		now:         time.Now,
		log:         logger.Named("ratelimit"),
	}
}

// SetOnRateLimit sets the callback for rate limit events
func (h *Handler) SetOnRateLimit(callback func(event RateLimitEvent)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onRateLimit = callback
}

// SetOnRecovered sets the callback fired when a provider answers normally again
func (h *Handler) SetOnRecovered(callback func(provider string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onRecovered = callback
}

// IsRateLimited reports whether provider is still inside its cooldown window
func (h *Handler) IsRateLimited(provider string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ev, limited := h.rateLimited[provider]
	return limited && h.now().Before(ev.NextRetryAt)
}

// Allow returns ErrRateLimited while provider is cooling down
func (h *Handler) Allow(provider string) error {
	if h.IsRateLimited(provider) {
		return fmt.Errorf("%s: %w", common.DisplayName(provider), ErrRateLimited)
	}
	return nil
}

// IsRateLimitStatus reports whether an HTTP status signals throttling
func IsRateLimitStatus(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusForbidden ||
		code == 509 // Bandwidth Limit Exceeded
}

// CheckResponse records a cooldown for throttling statuses and clears it otherwise.
// It returns true if resp indicates a rate limit.
func (h *Handler) CheckResponse(provider string, resp *http.Response) bool {
	if !IsRateLimitStatus(resp.StatusCode) {
		h.checkRecovery(provider)
		return false
	}
	h.recordRateLimit(provider, resp.StatusCode)
	return true
}

func (h *Handler) recordRateLimit(provider string, statusCode int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	attempt := h.strikes[provider]
	h.strikes[provider] = attempt + 1

	now := h.now()
	nextRetryAt := now.Add(h.strategy.interval(attempt))
	event := RateLimitEvent{
		Timestamp:   now,
		Provider:    provider,
		StatusCode:  statusCode,
		Attempt:     attempt,
		NextRetryAt: nextRetryAt,
		Message:     buildMessage(provider, statusCode, attempt, nextRetryAt.Sub(now)),
	}
	h.rateLimited[provider] = &event

	h.log.Warn("provider rate limited",
		zap.String("provider", provider),
		zap.Int("status", statusCode),
		zap.Int("attempt", attempt),
		zap.Time("nextRetryAt", nextRetryAt))

	if h.onRateLimit != nil {
		go h.onRateLimit(event)
	}
}

func (h *Handler) checkRecovery(provider string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.rateLimited[provider]; !exists {
		return
	}
	delete(h.rateLimited, provider)
	delete(h.strikes, provider)
	h.log.Info("rate limit cleared", zap.String("provider", provider))

	if h.onRecovered != nil {
		go h.onRecovered(provider)
	}
}

// Reset clears the cooldown so the next request goes out immediately
func (h *Handler) Reset(provider string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rateLimited[provider]; ok {
		h.log.Info("manual reset", zap.String("provider", provider))
	}
	delete(h.rateLimited, provider)
	delete(h.strikes, provider)
}

// GetCurrentState returns a copy of the current rate limit state, or nil
func (h *Handler) GetCurrentState(provider string) *RateLimitEvent {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if event, exists := h.rateLimited[provider]; exists {
		eventCopy := *event
		return &eventCopy
	}
	return nil
}

func buildMessage(provider string, statusCode, attempt int, wait time.Duration) string {
	name := common.DisplayName(provider)
	minutes := int(wait.Round(time.Minute).Minutes())
	if attempt == 0 {
		return fmt.Sprintf("%s rate limit detected (HTTP %d). Requests paused for %d minutes.",
			name, statusCode, minutes)
	}
	return fmt.Sprintf("%s still rate limited (attempt %d). Requests paused for %d minutes.",
		name, attempt+1, minutes)
}
