package texture

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"globe-desktop/internal/logger"
)

var (
	// ErrBuildInFlight means another composite is being built. It is not a
	// failure: the caller should simply ask again later.
	ErrBuildInFlight = errors.New("texture build already in flight")

	// ErrClosed is returned once Close has been called
	ErrClosed = errors.New("texture manager closed")
)

// State of the manager's single build slot
type State int32

const (
	StateIdle State = iota
	StateBuilding
)

func (s State) String() string {
	if s == StateBuilding {
		return "building"
	}
	return "idle"
}

// Options configures a Manager
type Options struct {
	Workers  int // concurrent tile fetches
	TileSize int
	MinZoom  int
	MaxZoom  int
	Sink     ProgressSink
	Logger   *zap.Logger
	// OnBuilt is called after every finished build, successful or not
	OnBuilt func(stats BuildStats, err error)
}

// Manager builds one composite texture per zoom level and caches it for the
// lifetime of the manager. At most one build runs at a time across all zooms.
type Manager struct {
	mu    sync.Mutex
	state State
	cache map[int]*Texture

	comp    compositor
	sink    ProgressSink
	minZoom int
	maxZoom int
	onBuilt func(BuildStats, error)
	log     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a texture manager fetching tiles through fetcher
func NewManager(fetcher Fetcher, opts Options) *Manager {
	if opts.Workers <= 0 {
		opts.Workers = 16
	}
	if opts.TileSize <= 0 {
		opts.TileSize = 256
	}
	if opts.MaxZoom <= 0 {
		opts.MaxZoom = 6
	}
	if opts.Sink == nil {
		opts.Sink = nopSink{}
	}
	log := logger.OrNop(opts.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cache: make(map[int]*Texture),
		comp: compositor{
			fetcher:  fetcher,
			workers:  int64(opts.Workers),
			tileSize: opts.TileSize,
			log:      log,
		},
		sink:    opts.Sink,
		minZoom: opts.MinZoom,
		maxZoom: opts.MaxZoom,
		onBuilt: opts.OnBuilt,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
}

type buildResult struct {
	tex *Texture
	err error
}

// GetTexture returns the composite for zoom. A cached composite is returned
// without touching the network. While any build is running it returns
// ErrBuildInFlight. ctx only bounds the wait: an abandoned build still
// completes and lands in the cache. Tile failures never fail the call; when
// every tile failed the blank composite is returned but not cached, so the
// next request for that zoom fetches again.
func (m *Manager) GetTexture(ctx context.Context, zoom int) (*Texture, error) {
	if zoom < m.minZoom || zoom > m.maxZoom {
		return nil, fmt.Errorf("zoom %d outside [%d, %d]", zoom, m.minZoom, m.maxZoom)
	}

	m.mu.Lock()
	if m.ctx.Err() != nil {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	if m.state == StateBuilding {
		m.mu.Unlock()
		return nil, ErrBuildInFlight
	}
	if tex, ok := m.cache[zoom]; ok {
		m.mu.Unlock()
		return tex, nil
	}
	m.state = StateBuilding
	m.wg.Add(1)
	m.mu.Unlock()

	done := make(chan buildResult, 1)
	go func() {
		defer m.wg.Done()
		tex, err := m.build(zoom)
		done <- buildResult{tex: tex, err: err}
	}()

	select {
	case r := <-done:
		return r.tex, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Manager) build(zoom int) (*Texture, error) {
	m.log.Info("[TextureManager] building composite", zap.Int("zoom", zoom), zap.Int("tiles", 1<<(2*zoom)))
	m.sink.Show()
	defer m.sink.Hide()

	img, stats, err := m.comp.build(m.ctx, zoom, m.sink.Update)
	blank := err == nil && stats.Failed == stats.Total

	var tex *Texture
	m.mu.Lock()
	if err == nil {
		tex = newComposite(zoom, img)
		if !blank {
			m.cache[zoom] = tex
		}
	}
	m.state = StateIdle
	m.mu.Unlock()

	switch {
	case err != nil:
		m.log.Error("[TextureManager] composite build failed", zap.Int("zoom", zoom), zap.Error(err))
	case blank:
		m.log.Warn("[TextureManager] every tile failed, composite left blank and uncached",
			zap.Int("zoom", zoom), zap.Int("tiles", stats.Total))
	default:
		m.log.Info("[TextureManager] composite ready",
			zap.Int("zoom", zoom),
			zap.Int("failed", stats.Failed),
			zap.Int("cached", stats.Cached),
			zap.Duration("took", stats.Duration))
	}
	if m.onBuilt != nil {
		m.onBuilt(stats, err)
	}
	return tex, err
}

// IsLoading reports whether a build is running
func (m *Manager) IsLoading() bool {
	return m.State() == StateBuilding
}

// State returns the build slot state
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Cached returns the composite for zoom if it has been built
func (m *Manager) Cached(zoom int) (*Texture, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tex, ok := m.cache[zoom]
	return tex, ok
}

// CachedZooms lists zoom levels with a finished composite
func (m *Manager) CachedZooms() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, 0, len(m.cache))
	for z := m.minZoom; z <= m.maxZoom; z++ {
		if _, ok := m.cache[z]; ok {
			out = append(out, z)
		}
	}
	return out
}

// Close aborts pending tile requests and waits for a running build to finish
func (m *Manager) Close() {
	m.mu.Lock()
	m.cancel()
	m.mu.Unlock()
	m.wg.Wait()
}
