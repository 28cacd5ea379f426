package tileserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	geojson "github.com/paulmach/go.geojson"
	"go.uber.org/zap"

	"globe-desktop/internal/geometry"
	"globe-desktop/internal/logger"
	"globe-desktop/internal/overlay"
	"globe-desktop/internal/texture"
	"globe-desktop/internal/tiles"
)

// TileFetcher returns encoded tile bytes, cache first
type TileFetcher interface {
	FetchTile(ctx context.Context, t tiles.Tile) (data []byte, cached bool, err error)
}

// TextureStore exposes finished composites by zoom
type TextureStore interface {
	Cached(zoom int) (*texture.Texture, bool)
}

// MeshSource exposes the projected globe mesh (nil before initialisation)
type MeshSource interface {
	Mesh() *geometry.Mesh
}

// OverlaySource exposes the temperature overlay texture
type OverlaySource interface {
	Texture() *texture.Texture
	Status() overlay.Status
}

// PinSource exports the current pins
type PinSource interface {
	FeatureCollection() *geojson.FeatureCollection
}

// Sources wires the server to the rest of the app. Nil sources answer 404.
type Sources struct {
	Tiles      TileFetcher
	Textures   TextureStore
	Mesh       MeshSource
	Overlay    OverlaySource
	Pins       PinSource
	LegendNote string
}

// Server is the loopback HTTP server the frontend loads textures, tiles and
// events from
type Server struct {
	src  Sources
	echo *echo.Echo
	hub  *Hub
	log  *zap.Logger

	mu     sync.Mutex
	http   *http.Server
	url    string
	legend legendCache
}

// NewServer creates a server; call Start to listen
func NewServer(src Sources, log *zap.Logger) *Server {
	s := &Server{
		src: src,
		hub: NewHub(log),
		log: logger.OrNop(log),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	// wails://wails on macOS/Linux needs CORS
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAccept},
	}))

	e.GET("/health", s.handleHealth)
	e.GET("/tiles/:z/:x/:y", s.handleTile)
	e.GET("/textures/:file", s.handleTexture)
	e.GET("/mesh", s.handleMesh)
	e.GET("/overlay.png", s.handleOverlay)
	e.GET("/overlay/status", s.handleOverlayStatus)
	e.GET("/legend.png", s.handleLegend)
	e.GET("/pins.geojson", s.handlePins)
	e.GET("/ws", s.hub.handleWebSocket)

	s.echo = e
	return s
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Hub returns the websocket event hub
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start listens on a random loopback port and serves in the background
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to start tile server: %w", err)
	}

	port := listener.Addr().(*net.TCPAddr).Port
	srv := &http.Server{Handler: s.echo}

	s.mu.Lock()
	s.http = srv
	s.url = fmt.Sprintf("http://127.0.0.1:%d", port)
	s.mu.Unlock()
	s.log.Info("[TileServer] started", zap.String("url", s.URL()))

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("[TileServer] stopped", zap.Error(err))
		}
	}()
	return nil
}

// URL returns the base URL, empty before Start
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

// Shutdown stops the server and disconnects websocket clients
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	s.mu.Lock()
	srv := s.http
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"clients": s.hub.Len(),
	})
}
