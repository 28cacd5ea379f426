package texture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"time"

	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/sync/semaphore"

	"globe-desktop/internal/common"
	"globe-desktop/internal/tiles"
)

// Fetcher returns the encoded bytes of one tile
type Fetcher interface {
	FetchTile(ctx context.Context, t tiles.Tile) (data []byte, cached bool, err error)
}

// BuildStats summarises one composite build
type BuildStats struct {
	Zoom     int           `json:"zoom"`
	Total    int           `json:"total"`
	Loaded   int           `json:"loaded"` // resolved tiles, failures included
	Failed   int           `json:"failed"`
	Cached   int           `json:"cached"`
	Duration time.Duration `json:"duration"`
}

// compositor fetches every tile of a zoom level in parallel and draws each
// into its own cell of one raster as results arrive.
type compositor struct {
	fetcher  Fetcher
	workers  int64
	tileSize int
	log      *zap.Logger
}

func (c *compositor) build(ctx context.Context, zoom int, onProgress func(loaded, total int)) (*image.RGBA, BuildStats, error) {
	start := time.Now()
	grid := tiles.Grid(zoom)
	bounds, err := common.WorldBounds(zoom)
	if err != nil {
		return nil, BuildStats{}, err
	}

	stats := BuildStats{Zoom: zoom, Total: len(grid)}
	width, height := bounds.PixelSize(c.tileSize)
	outputImg := image.NewRGBA(image.Rect(0, 0, width, height))

	resultChan := make(chan common.TileFetchResult, len(grid))
	sem := semaphore.NewWeighted(c.workers)

	go func() {
		for _, t := range grid {
			if err := sem.Acquire(ctx, 1); err != nil {
				resultChan <- common.TileFetchResult{X: t.X, Y: t.Y, Error: err}
				continue
			}
			go func(t tiles.Tile) {
				defer sem.Release(1)
				data, cached, err := c.fetcher.FetchTile(ctx, t)
				resultChan <- common.TileFetchResult{
					X: t.X, Y: t.Y, Data: data, Success: err == nil, Error: err, Cached: cached,
				}
			}(t)
		}
	}()

	for i := 0; i < len(grid); i++ {
		result := <-resultChan
		stats.Loaded++

		if result.Success {
			if err := c.drawTile(outputImg, result); err != nil {
				result.Success = false
				result.Error = err
			}
		}
		if !result.Success {
			stats.Failed++
			c.log.Warn("[TextureManager] tile failed",
				zap.Int("zoom", zoom), zap.Int("x", result.X), zap.Int("y", result.Y), zap.Error(result.Error))
		} else if result.Cached {
			stats.Cached++
		}

		if onProgress != nil {
			onProgress(stats.Loaded, stats.Total)
		}
	}

	stats.Duration = time.Since(start)
	return outputImg, stats, nil
}

// drawTile decodes one tile and draws it at (x*tileSize, y*tileSize).
// Tiles of another size are rescaled into the cell.
func (c *compositor) drawTile(dst *image.RGBA, result common.TileFetchResult) error {
	img, _, err := image.Decode(bytes.NewReader(result.Data))
	if err != nil {
		return fmt.Errorf("failed to decode tile %d/%d: %w", result.X, result.Y, err)
	}

	x0, y0 := result.X*c.tileSize, result.Y*c.tileSize
	cell := image.Rect(x0, y0, x0+c.tileSize, y0+c.tileSize)

	src := img.Bounds()
	if src.Dx() == c.tileSize && src.Dy() == c.tileSize {
		draw.Draw(dst, cell, img, src.Min, draw.Src)
		return nil
	}
	xdraw.ApproxBiLinear.Scale(dst, cell, img, src, draw.Src, nil)
	return nil
}
