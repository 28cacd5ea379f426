package globe

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"globe-desktop/internal/geometry"
	"globe-desktop/internal/logger"
	"globe-desktop/internal/texture"
	"globe-desktop/internal/zoom"
)

// State of the globe's texture lifecycle
type State int

const (
	StateIdle State = iota
	StateTextureLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateTextureLoading:
		return "texture-loading"
	case StateReady:
		return "ready"
	default:
		return "idle"
	}
}

const (
	// AxialTilt is applied around x whenever a textured material is set
	AxialTilt = 23.5
	// RotationSmoothing is the per-call follow factor of UpdateRotation
	RotationSmoothing = 0.05
	// PointerScale converts pointer coordinates into a target angle
	PointerScale = 0.05
	// DefaultAutoRotateSpeed is the idle yaw per frame in radians
	DefaultAutoRotateSpeed = 0.001
)

// TextureSource provides composites by zoom level
type TextureSource interface {
	GetTexture(ctx context.Context, zoom int) (*texture.Texture, error)
	IsLoading() bool
}

// Rotation is the mesh orientation in radians
type Rotation struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Options configures a Globe
type Options struct {
	Radius          float64
	Segments        int
	DefaultZoom     int
	AutoRotateSpeed float64
	Logger          *zap.Logger
	// OnStateChange is called outside the globe lock after each transition
	OnStateChange func(state State, zoom int)
}

// Globe owns the projected mesh and keeps its material in step with the
// zoom chosen for the camera distance.
type Globe struct {
	mu       sync.Mutex
	mesh     *geometry.Mesh
	material Material
	rotation Rotation
	state    State
	zoom     int // zoom of the applied composite, 0 before the first

	textures    TextureSource
	selector    *zoom.Selector
	defaultZoom int
	autoSpeed   float64
	onChange    func(State, int)
	log         *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New projects the globe mesh and sets the placeholder material
func New(textures TextureSource, selector *zoom.Selector, opts Options) (*Globe, error) {
	if opts.Radius <= 0 {
		opts.Radius = 1
	}
	if opts.Segments <= 0 {
		opts.Segments = 64
	}
	if opts.DefaultZoom <= 0 {
		opts.DefaultZoom = 2
	}
	if opts.AutoRotateSpeed == 0 {
		opts.AutoRotateSpeed = DefaultAutoRotateSpeed
	}

	mesh, err := geometry.Project(opts.Radius, opts.Segments, opts.Segments)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Globe{
		mesh:        mesh,
		material:    PlaceholderMaterial(),
		textures:    textures,
		selector:    selector,
		defaultZoom: opts.DefaultZoom,
		autoSpeed:   opts.AutoRotateSpeed,
		onChange:    opts.OnStateChange,
		log:         logger.OrNop(opts.Logger),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Initialize loads the default zoom and returns the mesh once the material
// is applied. On failure the mesh keeps the placeholder and the error is
// returned alongside it.
func (g *Globe) Initialize(ctx context.Context) (*geometry.Mesh, error) {
	g.selector.SetCurrent(g.defaultZoom)
	g.setState(StateTextureLoading)
	err := g.loadTexture(ctx, g.defaultZoom)
	return g.mesh, err
}

// UpdateZoomLevel feeds a camera distance. When it selects a new zoom the
// composite is requested in the background and applied on arrival. It
// returns true if a load was started.
func (g *Globe) UpdateZoomLevel(distance float64) bool {
	if g.textures.IsLoading() {
		return false
	}

	g.mu.Lock()
	if g.state == StateTextureLoading {
		g.mu.Unlock()
		return false
	}
	z, changed := g.selector.Select(distance)
	if !changed {
		g.mu.Unlock()
		return false
	}
	g.state = StateTextureLoading
	applied := g.zoom
	g.wg.Add(1)
	g.mu.Unlock()

	g.log.Debug("[Globe] zoom change", zap.Float64("distance", distance), zap.Int("zoom", z))
	g.notify(StateTextureLoading, applied)
	go func() {
		defer g.wg.Done()
		g.loadTexture(g.ctx, z)
	}()
	return true
}

func (g *Globe) loadTexture(ctx context.Context, z int) error {
	tex, err := g.textures.GetTexture(ctx, z)
	if err != nil {
		g.mu.Lock()
		prev, applied := StateIdle, g.zoom
		if applied != 0 {
			prev = StateReady
		}
		g.mu.Unlock()

		// let the next distance tick ask again; 0 means nothing applied yet
		g.selector.SetCurrent(applied)
		g.setState(prev)

		if errors.Is(err, texture.ErrBuildInFlight) {
			g.log.Debug("[Globe] texture build busy, dropping request", zap.Int("zoom", z))
			return err
		}
		g.log.Error("[Globe] failed to load texture", zap.Int("zoom", z), zap.Error(err))
		return err
	}

	g.applyTexture(tex)
	return nil
}

func (g *Globe) applyTexture(tex *texture.Texture) {
	g.mu.Lock()
	g.material = TexturedMaterial(tex)
	g.rotation = Rotation{X: mgl64.DegToRad(AxialTilt), Y: math.Pi}
	g.zoom = tex.Zoom
	g.mu.Unlock()

	g.log.Info("[Globe] material applied", zap.Int("zoom", tex.Zoom))
	g.setState(StateReady)
}

func (g *Globe) setState(s State) {
	g.mu.Lock()
	g.state = s
	z := g.zoom
	g.mu.Unlock()
	g.notify(s, z)
}

func (g *Globe) notify(s State, z int) {
	if g.onChange != nil {
		g.onChange(s, z)
	}
}

// UpdateRotation eases the rotation towards the pointer-derived target
func (g *Globe) UpdateRotation(pointerX, pointerY float64) Rotation {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rotation.X += (pointerY*PointerScale - g.rotation.X) * RotationSmoothing
	g.rotation.Y += (pointerX*PointerScale - g.rotation.Y) * RotationSmoothing
	return g.rotation
}

// AutoRotate advances the idle spin by one frame
func (g *Globe) AutoRotate() Rotation {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rotation.Y += g.autoSpeed
	return g.rotation
}

// Mesh returns the projected mesh
func (g *Globe) Mesh() *geometry.Mesh {
	return g.mesh
}

// Material returns the current material
func (g *Globe) Material() Material {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.material
}

// Rotation returns the current orientation
func (g *Globe) Rotation() Rotation {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rotation
}

// State returns the lifecycle state
func (g *Globe) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Zoom returns the zoom of the applied composite, or 0
func (g *Globe) Zoom() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.zoom
}

// Wait blocks until background texture loads have finished
func (g *Globe) Wait() {
	g.wg.Wait()
}

// Close abandons waiting on background loads
func (g *Globe) Close() {
	g.cancel()
	g.wg.Wait()
}
