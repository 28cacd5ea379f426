package common

import (
	"fmt"
	"strings"
	"time"
)

// Date formats used when talking to feed services and rendering items
const (
	// FeedTimestamp is the pubDate layout returned by rss2json
	FeedTimestamp = "2006-01-02 15:04:05"

	// DisplayDate is the fallback format for items older than a week
	DisplayDate = "Jan 2, 2006"
)

var feedLayouts = []string{
	FeedTimestamp,
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
}

// ParseFeedDate parses a feed item timestamp. rss2json reports UTC without a zone.
func ParseFeedDate(dateStr string) (time.Time, error) {
	dateStr = strings.TrimSpace(dateStr)
	if dateStr == "" {
		return time.Time{}, fmt.Errorf("date string is empty")
	}
	for _, layout := range feedLayouts {
		if t, err := time.Parse(layout, dateStr); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised feed date: %q", dateStr)
}

// FormatRelative renders t relative to now: "N minutes ago", "N hours ago",
// "N days ago" within a week, otherwise the display date.
func FormatRelative(t, now time.Time) string {
	d := now.Sub(t)
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute")
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hour")
	case d < 7*24*time.Hour:
		return plural(int(d/(24*time.Hour)), "day")
	default:
		return t.Format(DisplayDate)
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
