package rss

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const okFeed = `{
 "status":"ok",
 "feed":{"title":"World News","link":"https://news.example"},
 "items":[
  {"title":"Storm in Lima","link":"https://news.example/1","pubDate":"2026-10-19 11:55:00","description":"d1"},
  {"title":"Two","link":"https://news.example/2","pubDate":"2026-10-19 09:00:00"},
  {"title":"Three","link":"https://news.example/3","pubDate":"2026-10-17 12:00:00"},
  {"title":"Four","link":"https://news.example/4","pubDate":"2026-10-01 12:00:00"},
  {"title":"Five","link":"https://news.example/5","pubDate":"not a date"},
  {"title":"Six","link":"https://news.example/6","pubDate":"2026-10-19 11:59:00"}
 ]}`

func feedServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/api.json" {
			t.Errorf("path = %s", r.URL.Path)
		}
		switch r.URL.Query().Get("rss_url") {
		case "https://news.example/rss":
			w.Write([]byte(okFeed))
		case "https://broken.example/rss":
			w.Write([]byte(`<html>`))
		default:
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"status":"error","message":"Cannot download this RSS feed"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch(t *testing.T) {
	c := NewClient(feedServer(t).URL, nil, nil)

	doc, err := c.Fetch(context.Background(), "https://news.example/rss")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "World News" || len(doc.Items) != 6 {
		t.Fatalf("doc = %q with %d items", doc.Title, len(doc.Items))
	}
	want := time.Date(2026, 10, 19, 11, 55, 0, 0, time.UTC)
	if !doc.Items[0].Published.Equal(want) {
		t.Errorf("Published = %v, want %v", doc.Items[0].Published, want)
	}
	if !doc.Items[4].Published.IsZero() {
		t.Errorf("unparseable date should stay zero, got %v", doc.Items[4].Published)
	}
}

func TestFetchErrors(t *testing.T) {
	c := NewClient(feedServer(t).URL, nil, nil)

	tests := []struct {
		url     string
		wantErr error
		message string
	}{
		{"https://nope.example/rss", ErrInvalidFeed, "Invalid RSS feed URL"},
		{"", ErrInvalidFeed, "Invalid RSS feed URL"},
		{"https://broken.example/rss", ErrFeedUnavailable, "Error loading RSS feed"},
	}
	for _, tt := range tests {
		_, err := c.Fetch(context.Background(), tt.url)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("Fetch(%q) err = %v, want %v", tt.url, err, tt.wantErr)
		}
		if got := UserMessage(err); got != tt.message {
			t.Errorf("UserMessage = %q, want %q", got, tt.message)
		}
	}
}

func TestFetchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	_, err := NewClient(srv.URL, nil, nil).Fetch(context.Background(), "https://news.example/rss")
	if !errors.Is(err, ErrFeedUnavailable) {
		t.Errorf("err = %v, want ErrFeedUnavailable", err)
	}
}

type fakeFetcher struct {
	docs map[string]*Document
}

func (f *fakeFetcher) Fetch(_ context.Context, u string) (*Document, error) {
	if d, ok := f.docs[u]; ok {
		return d, nil
	}
	return nil, ErrInvalidFeed
}

func TestFeedList(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	c := NewClient(feedServer(t).URL, nil, nil)
	l := NewFeedList(c)
	l.now = func() time.Time { return now }

	v, err := l.Add(context.Background(), "https://news.example/rss")
	if err != nil {
		t.Fatal(err)
	}
	if v.Title != "World News" || v.Updated != "Updated 0 minutes ago" {
		t.Errorf("view = %q / %q", v.Title, v.Updated)
	}
	if len(v.Items) != VisibleItems || v.TotalItems != 6 {
		t.Errorf("collapsed view shows %d of %d", len(v.Items), v.TotalItems)
	}

	wantDates := []string{"5 minutes ago", "3 hours ago", "2 days ago", "Oct 1, 2026", "not a date"}
	for i, want := range wantDates {
		if v.Items[i].Date != want {
			t.Errorf("item %d date = %q, want %q", i, v.Items[i].Date, want)
		}
	}

	expanded, err := l.Toggle(0)
	if err != nil || !expanded {
		t.Fatalf("Toggle = %v, %v", expanded, err)
	}
	if items := l.List()[0].Items; len(items) != 6 || items[5].Date != "1 minute ago" {
		t.Errorf("expanded items = %+v", items)
	}

	if _, err := l.Add(context.Background(), "https://nope.example/rss"); !errors.Is(err, ErrInvalidFeed) {
		t.Errorf("Add invalid err = %v", err)
	}
	if l.Len() != 1 {
		t.Errorf("Len = %d, want 1", l.Len())
	}

	it, err := l.Item(0, 0)
	if err != nil || it.Title != "Storm in Lima" {
		t.Errorf("Item = %+v, %v", it, err)
	}
	if _, err := l.Item(0, 6); err == nil {
		t.Error("expected out-of-range item error")
	}

	if err := l.Remove(0); err != nil {
		t.Fatal(err)
	}
	if err := l.Remove(0); err == nil {
		t.Error("expected out-of-range remove error")
	}
	if _, err := l.Toggle(0); err == nil {
		t.Error("expected out-of-range toggle error")
	}
}

func TestFeedListRefresh(t *testing.T) {
	f := &fakeFetcher{docs: map[string]*Document{
		"a": {Title: "A", Items: []Item{{Title: "a1"}}},
		"b": {Title: "B"},
	}}
	l := NewFeedList(f)
	for _, u := range []string{"a", "b"} {
		if _, err := l.Add(context.Background(), u); err != nil {
			t.Fatal(err)
		}
	}

	f.docs["a"] = &Document{Title: "A2", Items: []Item{{Title: "a1"}, {Title: "a2"}}}
	delete(f.docs, "b")

	err := l.Refresh(context.Background())
	if !errors.Is(err, ErrInvalidFeed) {
		t.Errorf("Refresh err = %v", err)
	}
	views := l.List()
	if views[0].Title != "A2" || views[0].TotalItems != 2 {
		t.Errorf("refreshed feed = %+v", views[0])
	}
	if views[1].Title != "B" {
		t.Errorf("failed feed should keep its state, got %q", views[1].Title)
	}
	if views[0].ID == views[1].ID {
		t.Errorf("duplicate feed IDs %s", views[0].ID)
	}
}
