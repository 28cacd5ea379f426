package common

import (
	"testing"
	"time"
)

func TestFormatRelative(t *testing.T) {
	now := time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{30 * time.Second, "0 minutes ago"},
		{time.Minute, "1 minute ago"},
		{42 * time.Minute, "42 minutes ago"},
		{3 * time.Hour, "3 hours ago"},
		{26 * time.Hour, "1 day ago"},
		{6 * 24 * time.Hour, "6 days ago"},
		{10 * 24 * time.Hour, "May 10, 2024"},
	}
	for _, tt := range tests {
		if got := FormatRelative(now.Add(-tt.ago), now); got != tt.want {
			t.Errorf("FormatRelative(-%v) = %q, want %q", tt.ago, got, tt.want)
		}
	}
}

func TestParseFeedDate(t *testing.T) {
	got, err := ParseFeedDate("2024-05-20 10:15:00")
	if err != nil {
		t.Fatalf("ParseFeedDate: %v", err)
	}
	if got.Hour() != 10 || got.Minute() != 15 {
		t.Errorf("ParseFeedDate = %v", got)
	}
	if _, err := ParseFeedDate("Mon, 20 May 2024 10:15:00 +0000"); err != nil {
		t.Errorf("RFC1123Z: %v", err)
	}
	if _, err := ParseFeedDate("yesterday"); err == nil {
		t.Error("expected error for unparseable date")
	}
}

func TestParseTextureFormat(t *testing.T) {
	for in, want := range map[string]TextureFormat{
		"png": TextureFormatPNG, ".PNG": TextureFormatPNG,
		"tif": TextureFormatGeoTIFF, "geotiff": TextureFormatGeoTIFF,
	} {
		got, err := ParseTextureFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseTextureFormat(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseTextureFormat("jpg"); err == nil {
		t.Error("expected error for jpg")
	}
}

func TestWorldBounds(t *testing.T) {
	b, err := WorldBounds(3)
	if err != nil {
		t.Fatal(err)
	}
	if b.Cols() != 8 || b.Rows() != 8 {
		t.Errorf("grid = %dx%d, want 8x8", b.Cols(), b.Rows())
	}
	w, h := b.PixelSize(256)
	if w != 2048 || h != 2048 {
		t.Errorf("PixelSize = %dx%d", w, h)
	}
	if !b.Contains(7, 0) || b.Contains(8, 0) {
		t.Error("Contains mismatch at grid edge")
	}
}
