package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const parisJSON = `[
 {"lat":"48.8588897","lon":"2.3200410","display_name":"Paris, Ile-de-France, France"},
 {"lat":"bad","lon":"0","display_name":"Broken"},
 {"lat":"33.6617962","lon":"-95.5555130","display_name":"Paris, Lamar County, Texas, United States"}
]`

func newServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/search" || r.URL.Query().Get("format") != "json" {
			t.Errorf("unexpected request %s", r.URL)
		}
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		if r.URL.Query().Get("q") == "nowhere" {
			w.Write([]byte(`[]`))
			return
		}
		w.Write([]byte(parisJSON))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSearch(t *testing.T) {
	var calls atomic.Int32
	srv := newServer(t, &calls)
	c := NewClient(srv.URL, "test-agent", nil, nil)

	results, err := c.Search(context.Background(), "Paris")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2 (malformed skipped)", len(results))
	}
	if results[0].Name != "Paris" || results[0].Lat != 48.8588897 || results[0].Lon != 2.3200410 {
		t.Errorf("first result = %+v", results[0])
	}
	if results[1].DisplayName != "Paris, Lamar County, Texas, United States" {
		t.Errorf("second result = %+v", results[1])
	}

	if _, err := c.Search(context.Background(), "  paris "); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 1 {
		t.Errorf("server calls = %d, want 1 (cached)", calls.Load())
	}
}

func TestSearchEmpty(t *testing.T) {
	var calls atomic.Int32
	srv := newServer(t, &calls)
	c := NewClient(srv.URL, "test-agent", nil, nil)

	if r, err := c.Search(context.Background(), "   "); err != nil || r != nil {
		t.Errorf("blank query = %v, %v", r, err)
	}
	r, err := c.Search(context.Background(), "nowhere")
	if err != nil || len(r) != 0 {
		t.Errorf("no matches = %v, %v", r, err)
	}
	if calls.Load() != 1 {
		t.Errorf("server calls = %d, want 1", calls.Load())
	}
}

func TestSearchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "oops", http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL, "", nil, nil).Search(context.Background(), "x"); err == nil {
		t.Error("expected error")
	}
}

func TestSearchAsYouTypeKeepsLatest(t *testing.T) {
	var calls atomic.Int32
	srv := newServer(t, &calls)
	c := NewClient(srv.URL, "test-agent", nil, nil)

	got := make(chan string, 4)
	done := func(q string, _ []Result, err error) {
		if err != nil {
			t.Errorf("search %q: %v", q, err)
		}
		got <- q
	}
	for _, q := range []string{"P", "Pa", "Par", "Paris"} {
		c.SearchAsYouType(context.Background(), q, done)
	}

	select {
	case q := <-got:
		if q != "Paris" {
			t.Errorf("searched %q, want Paris", q)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("debounced search never ran")
	}
	select {
	case q := <-got:
		t.Errorf("unexpected second search %q", q)
	case <-time.After(TypingDelay + 200*time.Millisecond):
	}
}

func TestShortName(t *testing.T) {
	tests := map[string]string{
		"Paris, Ile-de-France, France": "Paris",
		"Tokyo":                        "Tokyo",
		"":                             "",
	}
	for in, want := range tests {
		if got := ShortName(in); got != want {
			t.Errorf("ShortName(%q) = %q, want %q", in, got, want)
		}
	}
}
