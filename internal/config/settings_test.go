package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSettingsMissingFileReturnsDefaults(t *testing.T) {
	s, err := LoadSettingsFrom(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("LoadSettingsFrom: %v", err)
	}
	if s.DefaultZoom != 2 {
		t.Errorf("DefaultZoom = %d, want 2", s.DefaultZoom)
	}
	if len(s.ZoomBands) != 6 {
		t.Errorf("len(ZoomBands) = %d, want 6", len(s.ZoomBands))
	}
}

func TestLoadSettingsMergesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{"weatherAPIKey":"k","maxTileFetches":4}`), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadSettingsFrom(path)
	if err != nil {
		t.Fatalf("LoadSettingsFrom: %v", err)
	}
	if s.WeatherAPIKey != "k" {
		t.Errorf("WeatherAPIKey = %q", s.WeatherAPIKey)
	}
	if s.MaxTileFetches != 4 {
		t.Errorf("MaxTileFetches = %d, want 4", s.MaxTileFetches)
	}
	if s.Tiles.TileSize != 256 {
		t.Errorf("TileSize = %d, want 256", s.Tiles.TileSize)
	}
	if s.OverlayRefreshMins != 10 {
		t.Errorf("OverlayRefreshMins = %d, want 10", s.OverlayRefreshMins)
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	s := DefaultSettings()
	s.DefaultZoom = 3
	s.AnalyticsID = "abc"

	if err := SaveSettingsTo(s, path); err != nil {
		t.Fatalf("SaveSettingsTo: %v", err)
	}
	got, err := LoadSettingsFrom(path)
	if err != nil {
		t.Fatalf("LoadSettingsFrom: %v", err)
	}
	if got.DefaultZoom != 3 || got.AnalyticsID != "abc" {
		t.Errorf("reloaded settings = %+v", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr bool
	}{
		{"defaults", func(*Settings) {}, false},
		{"missing placeholder", func(s *Settings) { s.Tiles.URLTemplate = "https://tiles/{z}/{x}.png" }, true},
		{"subdomain without list", func(s *Settings) { s.Tiles.Subdomains = nil }, true},
		{"no subdomain needed", func(s *Settings) {
			s.Tiles.URLTemplate = "https://tiles/{z}/{x}/{y}.png"
			s.Tiles.Subdomains = nil
		}, false},
		{"bands ascending", func(s *Settings) {
			s.ZoomBands = []ZoomBand{{MinDistance: 1, Zoom: 2}, {MinDistance: 5, Zoom: 1}}
		}, true},
		{"band zoom out of range", func(s *Settings) {
			s.ZoomBands = []ZoomBand{{MinDistance: 1, Zoom: 9}}
		}, true},
		{"default zoom out of range", func(s *Settings) { s.DefaultZoom = 7 }, true},
		{"grid step", func(s *Settings) { s.OverlayGridStep = 7 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(s)
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
