package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// ZoomBand maps camera distances strictly greater than MinDistance to Zoom.
type ZoomBand struct {
	MinDistance float64 `json:"minDistance"`
	Zoom        int     `json:"zoom"`
}

// TileSource describes a slippy-map raster tile server
type TileSource struct {
	Name        string   `json:"name"`
	URLTemplate string   `json:"urlTemplate"` // {s} subdomain, {z}/{x}/{y} tile address
	Subdomains  []string `json:"subdomains"`
	TileSize    int      `json:"tileSize"`
	Attribution string   `json:"attribution,omitempty"`
	UserAgent   string   `json:"userAgent"`
}

// Settings represents persistent user preferences
type Settings struct {
	// Tile texture settings
	Tiles            TileSource `json:"tiles"`
	DefaultZoom      int        `json:"defaultZoom"`
	MinZoom          int        `json:"minZoom"`
	MaxZoom          int        `json:"maxZoom"`
	ZoomBands        []ZoomBand `json:"zoomBands"`
	ZoomHysteresis   float64    `json:"zoomHysteresis"`
	MaxTileFetches   int        `json:"maxTileFetches"`
	TileTimeoutSecs  int        `json:"tileTimeoutSecs"`
	SphereSegments   int        `json:"sphereSegments"`
	AutoRotateSpeed  float64    `json:"autoRotateSpeed"`
	RateLimitMinutes int        `json:"rateLimitMinutes"`

	// Cache settings
	CacheMaxSizeMB  int `json:"cacheMaxSizeMB"`
	CacheTTLDays    int `json:"cacheTTLDays"`
	MemoryCacheSize int `json:"memoryCacheSize"` // tiles kept in RAM

	// External services
	GeocodeURL      string   `json:"geocodeURL"`
	RSSToJSONURL    string   `json:"rssToJSONURL"`
	LocationURL     string   `json:"locationURL"`
	LocationDebug   bool     `json:"locationDebug"`
	LocationKeyword []string `json:"locationKeywords"`
	WeatherURL      string   `json:"weatherURL"`
	WeatherAPIKey   string   `json:"weatherAPIKey"`

	// Temperature overlay
	OverlayEnabled     bool `json:"overlayEnabled"`
	OverlayGridStep    int  `json:"overlayGridStep"` // degrees between sampled points
	OverlayRefreshMins int  `json:"overlayRefreshMins"`

	// Logging and analytics
	LogLevel    string `json:"logLevel"`
	LogFile     string `json:"logFile"`
	AnalyticsID string `json:"analyticsID"` // distinct id for analytics, generated on first run
}

// DefaultSettings returns default user settings
func DefaultSettings() *Settings {
	return &Settings{
		Tiles: TileSource{
			Name:        "openstreetmap",
			URLTemplate: "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
			Subdomains:  []string{"a", "b", "c"},
			TileSize:    256,
			Attribution: "© OpenStreetMap contributors",
			UserAgent:   "globe-desktop/1.0 (+https://github.com/globe-desktop)",
		},
		DefaultZoom: 2,
		MinZoom:     1,
		MaxZoom:     6,
		ZoomBands: []ZoomBand{
			{MinDistance: 10, Zoom: 1},
			{MinDistance: 6, Zoom: 2},
			{MinDistance: 4, Zoom: 3},
			{MinDistance: 3, Zoom: 4},
			{MinDistance: 1.8, Zoom: 5},
			{MinDistance: 0, Zoom: 6},
		},
		ZoomHysteresis:   0.5,
		MaxTileFetches:   16,
		TileTimeoutSecs:  30,
		SphereSegments:   64,
		AutoRotateSpeed:  0.001,
		RateLimitMinutes: 5,

		CacheMaxSizeMB:  250,
		CacheTTLDays:    30,
		MemoryCacheSize: 512,

		GeocodeURL:   "https://nominatim.openstreetmap.org",
		RSSToJSONURL: "https://api.rss2json.com",
		LocationURL:  "http://localhost:1771/extract_location",
		LocationKeyword: []string{
			"London", "Paris", "Berlin", "Tokyo", "Beijing", "Shanghai", "New York",
			"Washington", "Moscow", "Sydney", "Cairo", "Mumbai", "Delhi", "Seoul",
			"Singapore", "Hong Kong", "Rome", "Madrid", "Toronto", "Mexico City",
		},
		WeatherURL: "https://api.openweathermap.org",

		OverlayEnabled:     true,
		OverlayGridStep:    10,
		OverlayRefreshMins: 10,

		LogLevel: "info",
	}
}

// OverlayRefresh returns the overlay refresh interval
func (s *Settings) OverlayRefresh() time.Duration {
	return time.Duration(s.OverlayRefreshMins) * time.Minute
}

// TileTimeout returns the per-request tile timeout
func (s *Settings) TileTimeout() time.Duration {
	return time.Duration(s.TileTimeoutSecs) * time.Second
}

// GetSettingsDir returns the per-user directory holding settings and logs
func GetSettingsDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".globe-desktop", "settings")
}

// GetSettingsPath returns the settings file path. An explicit -settings flag wins.
func GetSettingsPath() string {
	if p := SettingsPathFlag(); p != "" {
		return p
	}
	return filepath.Join(GetSettingsDir(), "settings.json")
}

// LoadSettings loads user settings from the default location
func LoadSettings() (*Settings, error) {
	return LoadSettingsFrom(GetSettingsPath())
}

// LoadSettingsFrom loads settings from path, merging defaults for missing fields.
// A missing file yields the defaults.
func LoadSettingsFrom(settingsPath string) (*Settings, error) {
	if _, err := os.Stat(settingsPath); os.IsNotExist(err) {
		return DefaultSettings(), nil
	}

	data, err := os.ReadFile(settingsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}

	mergeDefaults(&settings, DefaultSettings())

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	return &settings, nil
}

func mergeDefaults(s, defaults *Settings) {
	if s.Tiles.URLTemplate == "" {
		s.Tiles = defaults.Tiles
	}
	if len(s.Tiles.Subdomains) == 0 && strings.Contains(s.Tiles.URLTemplate, "{s}") {
		s.Tiles.Subdomains = defaults.Tiles.Subdomains
	}
	if s.Tiles.TileSize == 0 {
		s.Tiles.TileSize = defaults.Tiles.TileSize
	}
	if s.Tiles.UserAgent == "" {
		s.Tiles.UserAgent = defaults.Tiles.UserAgent
	}
	if s.DefaultZoom == 0 {
		s.DefaultZoom = defaults.DefaultZoom
	}
	if s.MinZoom == 0 {
		s.MinZoom = defaults.MinZoom
	}
	if s.MaxZoom == 0 {
		s.MaxZoom = defaults.MaxZoom
	}
	if len(s.ZoomBands) == 0 {
		s.ZoomBands = defaults.ZoomBands
	}
	if s.ZoomHysteresis == 0 {
		s.ZoomHysteresis = defaults.ZoomHysteresis
	}
	if s.MaxTileFetches == 0 {
		s.MaxTileFetches = defaults.MaxTileFetches
	}
	if s.TileTimeoutSecs == 0 {
		s.TileTimeoutSecs = defaults.TileTimeoutSecs
	}
	if s.SphereSegments == 0 {
		s.SphereSegments = defaults.SphereSegments
	}
	if s.AutoRotateSpeed == 0 {
		s.AutoRotateSpeed = defaults.AutoRotateSpeed
	}
	if s.RateLimitMinutes == 0 {
		s.RateLimitMinutes = defaults.RateLimitMinutes
	}
	if s.CacheMaxSizeMB == 0 {
		s.CacheMaxSizeMB = defaults.CacheMaxSizeMB
	}
	if s.CacheTTLDays == 0 {
		s.CacheTTLDays = defaults.CacheTTLDays
	}
	if s.MemoryCacheSize == 0 {
		s.MemoryCacheSize = defaults.MemoryCacheSize
	}
	if s.GeocodeURL == "" {
		s.GeocodeURL = defaults.GeocodeURL
	}
	if s.RSSToJSONURL == "" {
		s.RSSToJSONURL = defaults.RSSToJSONURL
	}
	if s.LocationURL == "" {
		s.LocationURL = defaults.LocationURL
	}
	if s.LocationKeyword == nil {
		s.LocationKeyword = defaults.LocationKeyword
	}
	if s.WeatherURL == "" {
		s.WeatherURL = defaults.WeatherURL
	}
	if s.OverlayGridStep == 0 {
		s.OverlayGridStep = defaults.OverlayGridStep
	}
	if s.OverlayRefreshMins == 0 {
		s.OverlayRefreshMins = defaults.OverlayRefreshMins
	}
	if s.LogLevel == "" {
		s.LogLevel = defaults.LogLevel
	}
}

// Validate checks cross-field constraints
func (s *Settings) Validate() error {
	if !strings.Contains(s.Tiles.URLTemplate, "{z}") ||
		!strings.Contains(s.Tiles.URLTemplate, "{x}") ||
		!strings.Contains(s.Tiles.URLTemplate, "{y}") {
		return fmt.Errorf("tile URL template must contain {z}, {x} and {y}: %s", s.Tiles.URLTemplate)
	}
	if strings.Contains(s.Tiles.URLTemplate, "{s}") && len(s.Tiles.Subdomains) == 0 {
		return fmt.Errorf("tile URL template uses {s} but no subdomains are configured")
	}
	if s.MinZoom < 0 || s.MaxZoom < s.MinZoom {
		return fmt.Errorf("invalid zoom range [%d, %d]", s.MinZoom, s.MaxZoom)
	}
	if s.DefaultZoom < s.MinZoom || s.DefaultZoom > s.MaxZoom {
		return fmt.Errorf("default zoom %d outside [%d, %d]", s.DefaultZoom, s.MinZoom, s.MaxZoom)
	}
	if !sort.SliceIsSorted(s.ZoomBands, func(i, j int) bool {
		return s.ZoomBands[i].MinDistance > s.ZoomBands[j].MinDistance
	}) {
		return fmt.Errorf("zoom bands must be ordered by descending distance")
	}
	for _, b := range s.ZoomBands {
		if b.Zoom < s.MinZoom || b.Zoom > s.MaxZoom {
			return fmt.Errorf("zoom band %v outside [%d, %d]", b, s.MinZoom, s.MaxZoom)
		}
	}
	if s.OverlayGridStep <= 0 || 180%s.OverlayGridStep != 0 {
		return fmt.Errorf("overlay grid step must divide 180, got %d", s.OverlayGridStep)
	}
	return nil
}

// SaveSettings saves user settings to the default location
func SaveSettings(settings *Settings) error {
	return SaveSettingsTo(settings, GetSettingsPath())
}

// SaveSettingsTo saves user settings to settingsPath
func SaveSettingsTo(settings *Settings, settingsPath string) error {
	dir := filepath.Dir(settingsPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.WriteFile(settingsPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	return nil
}
