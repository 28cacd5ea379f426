package tileserver

import (
	"bytes"
	"image"
	"image/png"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"globe-desktop/internal/tiles"
)

var transparentPNG = func() []byte {
	var buf bytes.Buffer
	png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 1, 1)))
	return buf.Bytes()
}()

// handleTile proxies one slippy tile through the tile client
// URL format: /tiles/{z}/{x}/{y}
func (s *Server) handleTile(c echo.Context) error {
	z, errZ := strconv.Atoi(c.Param("z"))
	x, errX := strconv.Atoi(c.Param("x"))
	y, errY := strconv.Atoi(c.Param("y"))
	if errZ != nil || errX != nil || errY != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "expected /tiles/{z}/{x}/{y}")
	}
	t, err := tiles.NewTile(z, x, y)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if s.src.Tiles == nil {
		return echo.NewHTTPError(http.StatusNotFound, "tile source not configured")
	}

	data, cached, err := s.src.Tiles.FetchTile(c.Request().Context(), t)
	if err != nil {
		s.log.Warn("[TileServer] tile fetch failed", zap.Stringer("tile", t), zap.Error(err))
		return serveTransparentTile(c)
	}

	h := c.Response().Header()
	h.Set("Cache-Control", "public, max-age=86400")
	if cached {
		h.Set("X-Cache-Status", "HIT")
	} else {
		h.Set("X-Cache-Status", "MISS")
	}
	return c.Blob(http.StatusOK, http.DetectContentType(data), data)
}

func serveTransparentTile(c echo.Context) error {
	c.Response().Header().Set("Cache-Control", "max-age=3600")
	c.Response().Header().Set("X-Cache-Status", "ERROR")
	return c.Blob(http.StatusOK, "image/png", transparentPNG)
}
