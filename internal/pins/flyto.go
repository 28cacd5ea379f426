package pins

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"globe-desktop/internal/geometry"
)

// FlyTo describes a camera move towards a location
type FlyTo struct {
	From       mgl64.Vec3   `json:"from"`
	Target     mgl64.Vec3   `json:"target"`
	DurationMs int64        `json:"durationMs"`
	Path       []mgl64.Vec3 `json:"path"`
}

// NewFlyTo plans a camera move from the current position to look at lat/lon
// from FlyToDistance. frames keyframes are sampled with cubic in-out easing.
func NewFlyTo(from mgl64.Vec3, lat, lon float64, frames int) FlyTo {
	target := geometry.CameraPosition(lat, lon, FlyToDistance)
	return FlyTo{
		From:       from,
		Target:     target,
		DurationMs: FlyToDuration.Milliseconds(),
		Path:       Keyframes(from, target, frames),
	}
}

// CubicInOut eases t in [0,1]
func CubicInOut(t float64) float64 {
	t = math.Max(0, math.Min(1, t))
	if t < 0.5 {
		return 4 * t * t * t
	}
	f := -2*t + 2
	return 1 - f*f*f/2
}

// Keyframes samples n+1 positions from a to b inclusive. n < 1 yields [b].
func Keyframes(a, b mgl64.Vec3, n int) []mgl64.Vec3 {
	if n < 1 {
		return []mgl64.Vec3{b}
	}
	out := make([]mgl64.Vec3, n+1)
	for i := 0; i <= n; i++ {
		e := CubicInOut(float64(i) / float64(n))
		out[i] = a.Add(b.Sub(a).Mul(e))
	}
	return out
}
