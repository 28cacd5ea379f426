package naming

import (
	"fmt"
	"strings"
	"time"

	"globe-desktop/internal/common"
)

// TextureFilename creates a standardized export filename
// Format: {provider}_z{zoom}_{yyyymmdd-hhmmss}.{png|tif}
func TextureFilename(provider string, zoom int, format common.TextureFormat, at time.Time) string {
	ext := "png"
	if format == common.TextureFormatGeoTIFF {
		ext = "tif"
	}
	return fmt.Sprintf("%s_z%d_%s.%s", sanitize(provider), zoom, at.Format("20060102-150405"), ext)
}

// PinsFilename creates the filename for a GeoJSON pin export
func PinsFilename(at time.Time) string {
	return fmt.Sprintf("pins_%s.geojson", at.Format("20060102-150405"))
}

func sanitize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "tiles"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '_'
		}
	}, s)
}
