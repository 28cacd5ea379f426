package config

import "flag"

var (
	flagSettings = flag.String("settings", "", "Path to settings file")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging")
	flagTileURL  = flag.String("tile-url", "", "Tile URL template, e.g. https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png")
	flagZoom     = flag.Int("zoom", 0, "Initial texture zoom level")
	flagLogFile  = flag.String("log-file", "", "Write logs to this file as well")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// SettingsPathFlag returns the explicit settings path if provided via -settings.
func SettingsPathFlag() string {
	return *flagSettings
}

// ApplyFlags applies CLI flag overrides to the settings.
func ApplyFlags(s *Settings) {
	if *flagDebug {
		s.LogLevel = "debug"
		s.LocationDebug = true
	}
	if *flagTileURL != "" {
		s.Tiles.URLTemplate = *flagTileURL
	}
	if *flagZoom > 0 {
		s.DefaultZoom = *flagZoom
	}
	if *flagLogFile != "" {
		s.LogFile = *flagLogFile
	}
}
