package common

import (
	"fmt"
	"strings"
)

// TextureFormat is the encoding used when a composed texture is exported
type TextureFormat int

const (
	TextureFormatPNG TextureFormat = iota
	TextureFormatGeoTIFF
)

// ParseTextureFormat converts a file extension or format name to a TextureFormat.
// Accepted values: "png", "tif", "tiff", "geotiff"
func ParseTextureFormat(format string) (TextureFormat, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "png":
		return TextureFormatPNG, nil
	case "tif", "tiff", "geotiff":
		return TextureFormatGeoTIFF, nil
	default:
		return 0, fmt.Errorf("invalid texture format: %s (must be 'png' or 'tif')", format)
	}
}

// ContentType returns the MIME type served for the format
func (f TextureFormat) ContentType() string {
	if f == TextureFormatGeoTIFF {
		return "image/tiff"
	}
	return "image/png"
}

// String returns the string representation of the texture format
func (f TextureFormat) String() string {
	if f == TextureFormatGeoTIFF {
		return "geotiff"
	}
	return "png"
}
