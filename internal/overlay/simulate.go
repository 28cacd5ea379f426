package overlay

import (
	"math"

	"github.com/aquilax/go-perlin"
)

// maxVariation bounds the noise added to the latitude model, in °C
const maxVariation = 2.5

// Simulator produces a plausible temperature field when no readings are available
type Simulator struct {
	noise *perlin.Perlin
}

// NewSimulator creates a simulator; equal seeds give equal fields
func NewSimulator(seed int64) *Simulator {
	return &Simulator{noise: perlin.NewPerlin(2, 2, 3, seed)}
}

// Fill writes 30·cos(lat) plus bounded noise into every cell of g
func (s *Simulator) Fill(g *Grid) {
	for y := 0; y < g.H; y++ {
		base := EstimatedTemperature(g.Latitude(y))
		for x := 0; x < g.W; x++ {
			n := s.noise.Noise2D(float64(x)/30, float64(y)/30) * 2 * maxVariation
			g.Set(x, y, base+math.Max(-maxVariation, math.Min(maxVariation, n)))
		}
	}
}
