package tileserver

import (
	"bytes"
	"image/png"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"globe-desktop/internal/common"
	"globe-desktop/internal/overlay"
	"globe-desktop/internal/texture"
	"globe-desktop/internal/tiles"
	"globe-desktop/pkg/geotiff"
)

// handleTexture serves a cached composite. Building is the globe's job;
// an unbuilt zoom is a 404.
// URL format: /textures/{z}.png or /textures/{z}.tif
func (s *Server) handleTexture(c echo.Context) error {
	name, ext, ok := strings.Cut(c.Param("file"), ".")
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "expected /textures/{z}.png or .tif")
	}
	zoom, err := strconv.Atoi(name)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid zoom")
	}
	format, err := common.ParseTextureFormat(ext)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if s.src.Textures == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no textures")
	}
	tex, ok := s.src.Textures.Cached(zoom)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "texture not built for zoom "+name)
	}

	var buf bytes.Buffer
	switch format {
	case common.TextureFormatGeoTIFF:
		minX, minY, maxX, maxY := tiles.MercatorExtent()
		err = geotiff.EncodeWebMercator(&buf, tex.Snapshot(), geotiff.Extent{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY})
	default:
		err = tex.EncodePNG(&buf)
	}
	if err != nil {
		s.log.Error("[TileServer] texture encode failed", zap.Int("zoom", zoom), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to encode texture")
	}

	setVersion(c, tex)
	return c.Blob(http.StatusOK, format.ContentType(), buf.Bytes())
}

func (s *Server) handleMesh(c echo.Context) error {
	if s.src.Mesh == nil || s.src.Mesh.Mesh() == nil {
		return echo.NewHTTPError(http.StatusNotFound, "globe not initialised")
	}
	return c.JSON(http.StatusOK, s.src.Mesh.Mesh())
}

// handleOverlay serves the overlay texture, redrawn in place on every refresh
func (s *Server) handleOverlay(c echo.Context) error {
	if s.src.Overlay == nil {
		return echo.NewHTTPError(http.StatusNotFound, "overlay disabled")
	}
	tex := s.src.Overlay.Texture()
	var buf bytes.Buffer
	if err := tex.EncodePNG(&buf); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to encode overlay")
	}
	setVersion(c, tex)
	c.Response().Header().Set("Cache-Control", "no-cache")
	return c.Blob(http.StatusOK, "image/png", buf.Bytes())
}

func (s *Server) handleOverlayStatus(c echo.Context) error {
	if s.src.Overlay == nil {
		return echo.NewHTTPError(http.StatusNotFound, "overlay disabled")
	}
	return c.JSON(http.StatusOK, s.src.Overlay.Status())
}

type legendCache struct {
	once sync.Once
	data []byte
	err  error
}

func (s *Server) handleLegend(c echo.Context) error {
	s.legend.once.Do(func() {
		img, err := overlay.RenderLegend(s.src.LegendNote)
		if err != nil {
			s.legend.err = err
			return
		}
		var buf bytes.Buffer
		s.legend.err = png.Encode(&buf, img)
		s.legend.data = buf.Bytes()
	})
	if s.legend.err != nil {
		s.log.Error("[TileServer] legend render failed", zap.Error(s.legend.err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to render legend")
	}
	return c.Blob(http.StatusOK, "image/png", s.legend.data)
}

func (s *Server) handlePins(c echo.Context) error {
	if s.src.Pins == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no pins")
	}
	data, err := s.src.Pins.FeatureCollection().MarshalJSON()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to encode pins")
	}
	return c.Blob(http.StatusOK, "application/geo+json", data)
}

func setVersion(c echo.Context, tex *texture.Texture) {
	c.Response().Header().Set("X-Texture-Version", strconv.FormatUint(tex.Version(), 10))
}
