package rss

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"globe-desktop/internal/common"
)

// VisibleItems is the number of items shown for a collapsed feed
const VisibleItems = 5

// Feed is a subscribed feed
type Feed struct {
	ID         string
	URL        string
	Title      string
	Items      []Item
	LastUpdate time.Time
	Expanded   bool
}

// ItemView is an item prepared for display
type ItemView struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Date    string `json:"date"`
	Summary string `json:"summary"`
}

// FeedView is a feed prepared for display
type FeedView struct {
	ID         string     `json:"id"`
	URL        string     `json:"url"`
	Title      string     `json:"title"`
	Updated    string     `json:"updated"`
	Expanded   bool       `json:"expanded"`
	TotalItems int        `json:"totalItems"`
	Items      []ItemView `json:"items"`
}

// Fetcher converts a feed URL into a Document
type Fetcher interface {
	Fetch(ctx context.Context, feedURL string) (*Document, error)
}

// FeedList holds subscribed feeds in subscription order
type FeedList struct {
	fetcher Fetcher
	now     func() time.Time

	mu    sync.RWMutex
	feeds []*Feed
}

// NewFeedList creates an empty list backed by fetcher
func NewFeedList(fetcher Fetcher) *FeedList {
	return &FeedList{fetcher: fetcher, now: time.Now}
}

// Add fetches feedURL and appends it to the list
func (l *FeedList) Add(ctx context.Context, feedURL string) (FeedView, error) {
	doc, err := l.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return FeedView{}, err
	}
	f := &Feed{
		ID:         uuid.NewString(),
		URL:        feedURL,
		Title:      doc.Title,
		Items:      doc.Items,
		LastUpdate: l.now(),
	}

	l.mu.Lock()
	l.feeds = append(l.feeds, f)
	l.mu.Unlock()
	return l.view(f), nil
}

// Remove deletes the feed at index
func (l *FeedList) Remove(index int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 || index >= len(l.feeds) {
		return fmt.Errorf("feed index %d out of range", index)
	}
	l.feeds = append(l.feeds[:index], l.feeds[index+1:]...)
	return nil
}

// Toggle flips the expanded state of the feed at index and returns it
func (l *FeedList) Toggle(index int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 || index >= len(l.feeds) {
		return false, fmt.Errorf("feed index %d out of range", index)
	}
	f := l.feeds[index]
	f.Expanded = !f.Expanded
	return f.Expanded, nil
}

// Refresh refetches every feed. Feeds that fail keep their previous items;
// the first error is returned.
func (l *FeedList) Refresh(ctx context.Context) error {
	l.mu.RLock()
	feeds := append([]*Feed(nil), l.feeds...)
	l.mu.RUnlock()

	var firstErr error
	for _, f := range feeds {
		doc, err := l.fetcher.Fetch(ctx, f.URL)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to refresh %s: %w", f.URL, err)
			}
			continue
		}
		l.mu.Lock()
		f.Title = doc.Title
		f.Items = doc.Items
		f.LastUpdate = l.now()
		l.mu.Unlock()
	}
	return firstErr
}

// Item returns an item by feed and item index
func (l *FeedList) Item(feedIndex, itemIndex int) (Item, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if feedIndex < 0 || feedIndex >= len(l.feeds) {
		return Item{}, fmt.Errorf("feed index %d out of range", feedIndex)
	}
	items := l.feeds[feedIndex].Items
	if itemIndex < 0 || itemIndex >= len(items) {
		return Item{}, fmt.Errorf("item index %d out of range", itemIndex)
	}
	return items[itemIndex], nil
}

// Len returns the number of subscribed feeds
func (l *FeedList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.feeds)
}

// List returns display views of all feeds
func (l *FeedList) List() []FeedView {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return lo.Map(l.feeds, func(f *Feed, _ int) FeedView {
		return l.viewLocked(f)
	})
}

func (l *FeedList) view(f *Feed) FeedView {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.viewLocked(f)
}

func (l *FeedList) viewLocked(f *Feed) FeedView {
	now := l.now()
	items := f.Items
	if !f.Expanded && len(items) > VisibleItems {
		items = items[:VisibleItems]
	}
	return FeedView{
		ID:         f.ID,
		URL:        f.URL,
		Title:      f.Title,
		Updated:    "Updated " + common.FormatRelative(f.LastUpdate, now),
		Expanded:   f.Expanded,
		TotalItems: len(f.Items),
		Items: lo.Map(items, func(it Item, _ int) ItemView {
			date := it.PubDate
			if !it.Published.IsZero() {
				date = common.FormatRelative(it.Published, now)
			}
			return ItemView{Title: it.Title, Link: it.Link, Date: date, Summary: it.Description}
		}),
	}
}
