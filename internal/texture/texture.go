package texture

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"sync"
)

// WrapMode controls sampling outside [0,1]
type WrapMode int

const (
	ClampToEdge WrapMode = iota
	Repeat
)

// Filter is a texture sampling filter
type Filter int

const (
	Nearest Filter = iota
	Linear
)

// MaxAnisotropy is the anisotropic filtering level requested for composites
const MaxAnisotropy = 16

// Texture is a raster plus the sampling parameters the renderer should use.
// The pixels may be rewritten in place through Update; Version increases on
// every update so consumers can tell the texture is dirty.
type Texture struct {
	mu      sync.RWMutex
	img     *image.RGBA
	version uint64

	Zoom       int
	WrapS      WrapMode
	WrapT      WrapMode
	MinFilter  Filter
	MagFilter  Filter
	Anisotropy int
	// FlipY means v=1 addresses image row 0
	FlipY bool
}

// New wraps img with clamp-to-edge linear sampling
func New(img *image.RGBA) *Texture {
	return &Texture{
		img:        img,
		version:    1,
		WrapS:      ClampToEdge,
		WrapT:      ClampToEdge,
		MinFilter:  Linear,
		MagFilter:  Linear,
		Anisotropy: 1,
	}
}

// newComposite wraps a finished tile composite with the globe sampling setup
func newComposite(zoom int, img *image.RGBA) *Texture {
	t := New(img)
	t.Zoom = zoom
	t.WrapS = Repeat
	t.WrapT = Repeat
	t.Anisotropy = MaxAnisotropy
	t.FlipY = true
	return t
}

// Bounds returns the raster bounds
func (t *Texture) Bounds() image.Rectangle {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.img.Bounds()
}

// Version returns the update counter
func (t *Texture) Version() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.version
}

// Update rewrites the pixels in place and marks the texture dirty
func (t *Texture) Update(fn func(img *image.RGBA)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(t.img)
	t.version++
}

// Snapshot returns a copy of the current pixels
func (t *Texture) Snapshot() *image.RGBA {
	t.mu.RLock()
	defer t.mu.RUnlock()
	cp := image.NewRGBA(t.img.Bounds())
	copy(cp.Pix, t.img.Pix)
	return cp
}

// EncodePNG writes the current pixels as PNG
func (t *Texture) EncodePNG(w io.Writer) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	return enc.Encode(w, t.img)
}

// PixelAt samples the nearest texel at (u, v) honouring the wrap modes and FlipY
func (t *Texture) PixelAt(u, v float64) color.RGBA {
	t.mu.RLock()
	defer t.mu.RUnlock()

	b := t.img.Bounds()
	u = wrap(u, t.WrapS)
	v = wrap(v, t.WrapT)
	if t.FlipY {
		v = 1 - v
	}
	x := b.Min.X + clampInt(int(u*float64(b.Dx())), 0, b.Dx()-1)
	y := b.Min.Y + clampInt(int(v*float64(b.Dy())), 0, b.Dy()-1)
	return t.img.RGBAAt(x, y)
}

func wrap(s float64, mode WrapMode) float64 {
	if mode == Repeat {
		s -= math.Floor(s)
		return s
	}
	return math.Max(0, math.Min(1, s))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
