package main

import (
	"bytes"
	"fmt"
	"os"
	"time"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"

	"globe-desktop/internal/common"
	"globe-desktop/internal/tiles"
	"globe-desktop/internal/utils/naming"
	"globe-desktop/pkg/geotiff"
)

// ExportTexture saves a built composite as PNG or GeoTIFF (EPSG:3857).
// It returns the chosen path, or "" if the user cancelled.
func (a *App) ExportTexture(zoom int, format string) (string, error) {
	f, err := common.ParseTextureFormat(format)
	if err != nil {
		return "", err
	}
	tex, ok := a.textures.Cached(zoom)
	if !ok {
		return "", fmt.Errorf("no texture built for zoom %d", zoom)
	}

	path, err := wailsRuntime.SaveFileDialog(a.ctx, wailsRuntime.SaveDialogOptions{
		Title:           "Export globe texture",
		DefaultFilename: naming.TextureFilename(a.tileClient.Provider(), zoom, f, time.Now()),
	})
	if err != nil || path == "" {
		return "", err
	}

	var buf bytes.Buffer
	if f == common.TextureFormatGeoTIFF {
		minX, minY, maxX, maxY := tiles.MercatorExtent()
		err = geotiff.EncodeWebMercator(&buf, tex.Snapshot(), geotiff.Extent{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY})
	} else {
		err = tex.EncodePNG(&buf)
	}
	if err != nil {
		return "", fmt.Errorf("failed to encode texture: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	a.log.Info("[App] texture exported", zap.Int("zoom", zoom), zap.String("path", path))
	a.TrackEvent("texture_exported", map[string]interface{}{"zoom": zoom, "format": f.String()})
	return path, nil
}

// ExportPins saves the pins as a GeoJSON FeatureCollection
func (a *App) ExportPins() (string, error) {
	path, err := wailsRuntime.SaveFileDialog(a.ctx, wailsRuntime.SaveDialogOptions{
		Title:           "Export pins",
		DefaultFilename: naming.PinsFilename(time.Now()),
	})
	if err != nil || path == "" {
		return "", err
	}
	data, err := a.pins.FeatureCollection().MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("failed to encode pins: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
