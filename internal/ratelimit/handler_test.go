package ratelimit

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

func newTestHandler(now *time.Time) *Handler {
	h := NewHandler(&CooldownStrategy{Intervals: []time.Duration{time.Minute, 5 * time.Minute}})
	h.now = func() time.Time { return *now }
	return h
}

func TestCooldownExpires(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h := newTestHandler(&now)

	if !h.CheckResponse("openstreetmap", &http.Response{StatusCode: http.StatusTooManyRequests}) {
		t.Fatal("429 should be a rate limit")
	}
	if err := h.Allow("openstreetmap"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("Allow = %v, want ErrRateLimited", err)
	}
	if err := h.Allow("nominatim"); err != nil {
		t.Errorf("other provider blocked: %v", err)
	}

	now = now.Add(61 * time.Second)
	if h.IsRateLimited("openstreetmap") {
		t.Error("cooldown should have expired")
	}
}

func TestCooldownEscalatesAndRecovers(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h := newTestHandler(&now)

	h.CheckResponse("p", &http.Response{StatusCode: http.StatusForbidden})
	h.CheckResponse("p", &http.Response{StatusCode: 509})

	st := h.GetCurrentState("p")
	if st == nil || st.Attempt != 1 {
		t.Fatalf("state = %+v, want attempt 1", st)
	}
	if got := st.NextRetryAt.Sub(now); got != 5*time.Minute {
		t.Errorf("second cooldown = %v, want 5m", got)
	}

	if h.CheckResponse("p", &http.Response{StatusCode: http.StatusOK}) {
		t.Error("200 reported as rate limit")
	}
	if h.GetCurrentState("p") != nil {
		t.Error("state should be cleared after a normal response")
	}
}

func TestReset(t *testing.T) {
	now := time.Now()
	h := newTestHandler(&now)
	h.CheckResponse("p", &http.Response{StatusCode: http.StatusTooManyRequests})
	h.Reset("p")
	if h.IsRateLimited("p") {
		t.Error("Reset did not clear cooldown")
	}
}

func TestIsRateLimitStatus(t *testing.T) {
	for code, want := range map[int]bool{200: false, 404: false, 403: true, 429: true, 509: true, 500: false} {
		if got := IsRateLimitStatus(code); got != want {
			t.Errorf("IsRateLimitStatus(%d) = %v", code, got)
		}
	}
}
