package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/posthog/posthog-go"
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"

	"globe-desktop/internal/cache"
	"globe-desktop/internal/common"
	"globe-desktop/internal/config"
	"globe-desktop/internal/geocode"
	"globe-desktop/internal/globe"
	"globe-desktop/internal/handlers/tileserver"
	"globe-desktop/internal/location"
	"globe-desktop/internal/logger"
	"globe-desktop/internal/overlay"
	"globe-desktop/internal/pins"
	"globe-desktop/internal/ratelimit"
	"globe-desktop/internal/rss"
	"globe-desktop/internal/texture"
	"globe-desktop/internal/tiles"
	"globe-desktop/internal/weather"
	"globe-desktop/internal/zoom"
)

// Linker flags
var (
	PostHogKey  string
	PostHogHost string
	AppVersion  string = "0.0.0-dev"
)

// Frontend event names
const (
	EventTextureProgress = "texture-progress"
	EventTextureLoading  = "texture-loading"
	EventGlobeState      = "globe-state"
	EventOverlayUpdated  = "overlay-updated"
	EventSearchResults   = "search-results"
	EventPinsChanged     = "pins-changed"
	EventNotification    = "notification"
	EventRateLimit       = "rate-limit"
	EventRateRecovered   = "rate-limit-recovered"

	flyToFrames = 60
)

// TextureProgress is the payload of texture-progress
type TextureProgress struct {
	Loaded  int     `json:"loaded"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
}

// Notification is a transient message for the UI
type Notification struct {
	Message string `json:"message"`
	Type    string `json:"type"` // info, warning, error
}

// GlobeStatus is the payload of globe-state and GetGlobeState
type GlobeStatus struct {
	State         string         `json:"state"`
	Zoom          int            `json:"zoom"`
	Loading       bool           `json:"loading"`
	Rotation      globe.Rotation `json:"rotation"`
	CachedZooms   []int          `json:"cachedZooms"`
	TileServerURL string         `json:"tileServerURL"`
	Attribution   string         `json:"attribution"`
}

// SearchResults is the payload of search-results
type SearchResults struct {
	Query   string           `json:"query"`
	Results []geocode.Result `json:"results"`
}

// LocationSelection is returned when the globe is pointed at a place
type LocationSelection struct {
	Pin   pins.Pin        `json:"pin"`
	FlyTo pins.FlyTo      `json:"flyTo"`
	Names []string        `json:"names,omitempty"`
	Match *geocode.Result `json:"match,omitempty"`
}

// App struct
type App struct {
	ctx        context.Context // Wails context, set in startup
	baseCtx    context.Context
	cancel     context.CancelFunc
	settings   *config.Settings
	mu         sync.Mutex
	log        *zap.Logger
	phClient   posthog.Client
	distinctID string
	frontend   func(name string, data interface{})
	camera     mgl64.Vec3

	rateLimitHandler *ratelimit.Handler
	diskCache        *cache.PersistentTileCache
	tileCache        *cache.TileCache
	tileClient       *tiles.Client
	textures         *texture.Manager
	selector         *zoom.Selector
	globe            *globe.Globe
	weather          *weather.Client
	overlay          *overlay.Overlay
	geocoder         *geocode.Client
	feeds            *rss.FeedList
	extractor        location.Extractor
	pins             *pins.Set
	server           *tileserver.Server
}

// NewApp wires every component from settings. Tiles are cached under cacheDir;
// an unusable cache directory degrades to a memory-only cache.
func NewApp(settings *config.Settings, cacheDir string) (*App, error) {
	log := logger.Named("app")
	baseCtx, cancel := context.WithCancel(context.Background())

	a := &App{
		baseCtx:    baseCtx,
		cancel:     cancel,
		settings:   settings,
		log:        log,
		distinctID: settings.AnalyticsID,
		camera:     mgl64.Vec3{0, 0, 5},
		pins:       pins.NewSet(uuid.NewString),
	}

	a.rateLimitHandler = ratelimit.NewHandler(
		ratelimit.DefaultCooldownStrategy(time.Duration(settings.RateLimitMinutes) * time.Minute))
	a.rateLimitHandler.SetOnRateLimit(func(ev ratelimit.RateLimitEvent) {
		a.emit(EventRateLimit, ev)
		a.notify(ev.Message, "warning")
	})
	a.rateLimitHandler.SetOnRecovered(func(provider string) {
		a.emit(EventRateRecovered, provider)
	})

	disk, err := cache.NewPersistentTileCache(
		filepath.Join(cacheDir, settings.Tiles.Name), ".tile", settings.CacheMaxSizeMB, settings.CacheTTLDays)
	if err != nil {
		log.Warn("[App] disk tile cache unavailable, using memory only", zap.Error(err))
		disk = nil
	}
	a.diskCache = disk
	a.tileCache, err = cache.NewTileCache(settings.MemoryCacheSize, disk)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create tile cache: %w", err)
	}

	a.tileClient = tiles.NewClient(settings.Tiles,
		tiles.WithCache(a.tileCache),
		tiles.WithRateLimiter(a.rateLimitHandler),
		tiles.WithTimeout(settings.TileTimeout()),
		tiles.WithLogger(logger.Named("tiles")),
	)

	a.textures = texture.NewManager(a.tileClient, texture.Options{
		Workers:  settings.MaxTileFetches,
		TileSize: settings.Tiles.TileSize,
		MinZoom:  settings.MinZoom,
		MaxZoom:  settings.MaxZoom,
		Logger:   logger.Named("texture"),
		Sink: texture.SinkFuncs{
			OnShow: func() { a.emit(EventTextureLoading, true) },
			OnUpdate: func(loaded, total int) {
				a.emit(EventTextureProgress, progress(loaded, total))
			},
			OnHide: func() { a.emit(EventTextureLoading, false) },
		},
		OnBuilt: a.onTextureBuilt,
	})

	a.selector, err = zoom.NewSelector(settings.ZoomBands, settings.ZoomHysteresis, settings.DefaultZoom)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create zoom selector: %w", err)
	}

	a.globe, err = globe.New(a.textures, a.selector, globe.Options{
		Segments:        settings.SphereSegments,
		DefaultZoom:     settings.DefaultZoom,
		AutoRotateSpeed: settings.AutoRotateSpeed,
		Logger:          logger.Named("globe"),
		OnStateChange: func(state globe.State, z int) {
			a.emit(EventGlobeState, a.globeStatus(state, z))
		},
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create globe: %w", err)
	}

	a.weather = weather.NewClient(settings.WeatherURL, settings.WeatherAPIKey, a.rateLimitHandler, logger.Named("weather"))
	if settings.OverlayEnabled {
		a.overlay = overlay.New(a.weather, overlay.Options{
			Step:    settings.OverlayGridStep,
			Refresh: settings.OverlayRefresh(),
			Logger:  logger.Named("overlay"),
			OnUpdate: func(st overlay.Status) {
				a.emit(EventOverlayUpdated, st)
			},
		})
	}

	a.geocoder = geocode.NewClient(settings.GeocodeURL, settings.Tiles.UserAgent, a.rateLimitHandler, logger.Named("geocode"))
	a.feeds = rss.NewFeedList(rss.NewClient(settings.RSSToJSONURL, a.rateLimitHandler, logger.Named("rss")))
	a.extractor = location.NewChain(logger.Named("location"),
		location.NewServiceClient(settings.LocationURL, settings.LocationDebug, logger.Named("location")),
		location.NewKeywordExtractor(settings.LocationKeyword),
	)

	src := tileserver.Sources{
		Tiles:      a.tileClient,
		Textures:   a.textures,
		Mesh:       a.globe,
		Pins:       a.pins,
		LegendNote: overlay.RefreshNote(settings.OverlayRefreshMins),
	}
	if a.overlay != nil {
		src.Overlay = a.overlay
	}
	a.server = tileserver.NewServer(src, logger.Named("tileserver"))

	if PostHogKey != "" {
		client, err := posthog.NewWithConfig(PostHogKey, posthog.Config{Endpoint: PostHogHost})
		if err != nil {
			log.Warn("[App] failed to initialize PostHog", zap.Error(err))
		} else {
			a.phClient = client
		}
	}

	return a, nil
}

// StartServer starts the loopback texture server. Failure is fatal to startup.
func (a *App) StartServer() error {
	return a.server.Start()
}

// startup is called when the app starts
func (a *App) startup(ctx context.Context) {
	a.mu.Lock()
	a.ctx = ctx
	a.frontend = func(name string, data interface{}) {
		wailsRuntime.EventsEmit(ctx, name, data)
	}
	a.mu.Unlock()

	go func() {
		if _, err := a.globe.Initialize(a.baseCtx); err != nil {
			a.log.Error("[App] initial texture failed", zap.Error(err))
			a.notify("Failed to load globe imagery", "error")
		}
	}()
	if a.overlay != nil {
		go a.overlay.Run(a.baseCtx)
	}

	a.TrackEvent("app_started", map[string]interface{}{
		"version": AppVersion,
		"os":      goruntime.GOOS,
		"arch":    goruntime.GOARCH,
	})
}

// shutdown cleans up resources
func (a *App) shutdown(ctx context.Context) {
	a.cancel()
	a.globe.Close()
	a.textures.Close()
	if err := a.server.Shutdown(ctx); err != nil {
		a.log.Warn("[App] tile server shutdown", zap.Error(err))
	}
	if a.diskCache != nil {
		a.diskCache.Close()
	}
	if a.phClient != nil {
		a.phClient.Close()
	}
	logger.Sync()
}

// TrackEvent sends an event to PostHog
func (a *App) TrackEvent(event string, props map[string]interface{}) {
	if a.phClient == nil {
		return
	}
	a.phClient.Enqueue(posthog.Capture{
		DistinctId: a.distinctID,
		Event:      event,
		Properties: props,
	})
}

// GetAppVersion returns the current application version
func (a *App) GetAppVersion() string {
	return AppVersion
}

// GetTileServerURL returns the loopback server base URL
func (a *App) GetTileServerURL() string {
	return a.server.URL()
}

// GetGlobeState returns the globe state for the frontend
func (a *App) GetGlobeState() GlobeStatus {
	return a.globeStatus(a.globe.State(), a.globe.Zoom())
}

// UpdateCameraDistance feeds the camera distance to the zoom selector.
// It returns true if a new composite started loading.
func (a *App) UpdateCameraDistance(distance float64) bool {
	return a.globe.UpdateZoomLevel(distance)
}

// SetCameraPosition records where the camera is, the start of the next fly-to
func (a *App) SetCameraPosition(x, y, z float64) {
	a.mu.Lock()
	a.camera = mgl64.Vec3{x, y, z}
	a.mu.Unlock()
}

// UpdatePointer eases the globe rotation towards the pointer
func (a *App) UpdatePointer(x, y float64) globe.Rotation {
	return a.globe.UpdateRotation(x, y)
}

// AutoRotate advances the idle rotation by one frame
func (a *App) AutoRotate() globe.Rotation {
	return a.globe.AutoRotate()
}

// Search geocodes query. Failures are reported as a notification.
func (a *App) Search(query string) ([]geocode.Result, error) {
	results, err := a.geocoder.Search(a.baseCtx, query)
	if err != nil {
		a.log.Warn("[App] search failed", zap.String("query", query), zap.Error(err))
		a.notify("Search failed", "error")
		return nil, err
	}
	a.TrackEvent("search", map[string]interface{}{"results": len(results)})
	return results, nil
}

// SearchAsYouType searches once typing pauses; results arrive as search-results
func (a *App) SearchAsYouType(query string) {
	a.geocoder.SearchAsYouType(a.baseCtx, query, func(q string, results []geocode.Result, err error) {
		if err != nil {
			a.log.Warn("[App] search failed", zap.String("query", q), zap.Error(err))
			return
		}
		a.emit(EventSearchResults, SearchResults{Query: q, Results: results})
	})
}

// SelectLocation replaces all pins with one at lat/lon and returns the
// camera move towards it
func (a *App) SelectLocation(lat, lon float64, label string) (*LocationSelection, error) {
	p, err := a.pins.Replace(lat, lon, label)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	fly := pins.NewFlyTo(a.camera, lat, lon, flyToFrames)
	a.camera = fly.Target
	a.mu.Unlock()

	a.emit(EventPinsChanged, a.pins.List())
	return &LocationSelection{Pin: p, FlyTo: fly}, nil
}

// GetPins returns the pins on the globe
func (a *App) GetPins() []pins.Pin {
	return a.pins.List()
}

// ClearPins removes every pin
func (a *App) ClearPins() {
	a.pins.Clear()
	a.emit(EventPinsChanged, []pins.Pin{})
}

// ExtractLocations returns place names found in text, or ["Unknown Location"]
func (a *App) ExtractLocations(text string) []string {
	return a.extractor.Extract(a.baseCtx, text)
}

// AddFeed subscribes to an RSS feed
func (a *App) AddFeed(feedURL string) (*rss.FeedView, error) {
	view, err := a.feeds.Add(a.baseCtx, feedURL)
	if err != nil {
		a.log.Warn("[App] feed subscription failed", zap.String("url", feedURL), zap.Error(err))
		a.notify(rss.UserMessage(err), "error")
		return nil, err
	}
	a.TrackEvent("feed_added", map[string]interface{}{"items": view.TotalItems})
	return &view, nil
}

// RemoveFeed unsubscribes the feed at index
func (a *App) RemoveFeed(index int) error {
	return a.feeds.Remove(index)
}

// ListFeeds returns the subscribed feeds
func (a *App) ListFeeds() []rss.FeedView {
	return a.feeds.List()
}

// ToggleFeed expands or collapses the feed at index
func (a *App) ToggleFeed(index int) (bool, error) {
	return a.feeds.Toggle(index)
}

// RefreshFeeds refetches every subscribed feed
func (a *App) RefreshFeeds() ([]rss.FeedView, error) {
	err := a.feeds.Refresh(a.baseCtx)
	if err != nil {
		a.notify(rss.UserMessage(err), "warning")
	}
	return a.feeds.List(), err
}

// LocateFeedItem extracts place names from a feed item, geocodes the first
// one that resolves and pins it
func (a *App) LocateFeedItem(feedIndex, itemIndex int) (*LocationSelection, error) {
	item, err := a.feeds.Item(feedIndex, itemIndex)
	if err != nil {
		return nil, err
	}

	names := a.ExtractLocations(strings.TrimSpace(item.Title + " " + item.Description))
	if location.IsUnknown(names) {
		a.notify("No location found in this item", "info")
		return nil, errors.New("no location found")
	}

	for _, name := range names {
		results, err := a.geocoder.Search(a.baseCtx, name)
		if err != nil {
			a.log.Warn("[App] geocode failed", zap.String("name", name), zap.Error(err))
			continue
		}
		if len(results) == 0 {
			continue
		}
		match := results[0]
		sel, err := a.SelectLocation(match.Lat, match.Lon, match.Name)
		if err != nil {
			return nil, err
		}
		sel.Names = names
		sel.Match = &match
		return sel, nil
	}

	a.notify(fmt.Sprintf("Could not find %s on the map", strings.Join(names, ", ")), "info")
	return nil, fmt.Errorf("no geocoding match for %v", names)
}

// GetOverlayStatus describes the last overlay refresh
func (a *App) GetOverlayStatus() (overlay.Status, error) {
	if a.overlay == nil {
		return overlay.Status{}, errors.New("temperature overlay disabled")
	}
	return a.overlay.Status(), nil
}

// RefreshOverlay resamples temperatures now
func (a *App) RefreshOverlay() (overlay.Status, error) {
	if a.overlay == nil {
		return overlay.Status{}, errors.New("temperature overlay disabled")
	}
	return a.overlay.Refresh(a.baseCtx), nil
}

func (a *App) onTextureBuilt(stats texture.BuildStats, err error) {
	props := map[string]interface{}{
		"zoom":        stats.Zoom,
		"tiles":       stats.Total,
		"failed":      stats.Failed,
		"cached":      stats.Cached,
		"duration_ms": stats.Duration.Milliseconds(),
		"provider":    common.DisplayName(a.tileClient.Provider()),
	}
	if err != nil {
		props["error"] = err.Error()
		a.notify(fmt.Sprintf("Failed to load imagery for zoom %d", stats.Zoom), "error")
	} else if stats.Failed > 0 {
		a.notify(fmt.Sprintf("%d of %d tiles failed to load", stats.Failed, stats.Total), "warning")
	}
	a.TrackEvent("texture_built", props)
}

func (a *App) globeStatus(state globe.State, z int) GlobeStatus {
	return GlobeStatus{
		State:         state.String(),
		Zoom:          z,
		Loading:       a.textures.IsLoading(),
		Rotation:      a.globe.Rotation(),
		CachedZooms:   a.textures.CachedZooms(),
		TileServerURL: a.server.URL(),
		Attribution:   a.settings.Tiles.Attribution,
	}
}

// emit sends an event to the Wails frontend (once started) and to websocket clients
func (a *App) emit(name string, data interface{}) {
	a.server.Hub().Broadcast(name, data)
	a.mu.Lock()
	fn := a.frontend
	a.mu.Unlock()
	if fn != nil {
		fn(name, data)
	}
}

func (a *App) notify(message, kind string) {
	a.emit(EventNotification, Notification{Message: message, Type: kind})
}

func progress(loaded, total int) TextureProgress {
	p := TextureProgress{Loaded: loaded, Total: total}
	if total > 0 {
		p.Percent = float64(loaded) / float64(total) * 100
	}
	return p
}
