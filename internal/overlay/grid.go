package overlay

import (
	"math"
)

// Default grid resolution: one cell per degree
const (
	GridWidth  = 360
	GridHeight = 180
)

// Grid holds one temperature per lat/lon cell, row 0 at 90°N and column 0 at 180°W
type Grid struct {
	W, H   int
	Values []float64
	known  []bool
}

// NewGrid creates an empty w x h grid
func NewGrid(w, h int) *Grid {
	return &Grid{
		W:      w,
		H:      h,
		Values: make([]float64, w*h),
		known:  make([]bool, w*h),
	}
}

// CellFor maps lat/lon to a cell; ok is false when the point falls outside the grid
func (g *Grid) CellFor(lat, lon float64) (x, y int, ok bool) {
	x = int(math.Floor((lon + 180) * float64(g.W) / 360))
	y = int(math.Floor((90 - lat) * float64(g.H) / 180))
	ok = x >= 0 && x < g.W && y >= 0 && y < g.H
	return x, y, ok
}

// Set stores a value and marks the cell known
func (g *Grid) Set(x, y int, v float64) {
	g.Values[y*g.W+x] = v
	g.known[y*g.W+x] = true
}

// Get returns the cell value and whether it is known
func (g *Grid) Get(x, y int) (float64, bool) {
	i := y*g.W + x
	return g.Values[i], g.known[i]
}

// Latitude returns the latitude of row y's upper edge
func (g *Grid) Latitude(y int) float64 {
	return 90 - float64(y)*180/float64(g.H)
}

// Known counts the known cells
func (g *Grid) Known() int {
	n := 0
	for _, k := range g.known {
		if k {
			n++
		}
	}
	return n
}

// EstimatedTemperature is the latitude-only model: 30·cos(lat)
func EstimatedTemperature(lat float64) float64 {
	return 30 * math.Cos(lat*math.Pi/180)
}

// Interpolate fills every unknown cell with the mean of the sampled cells
// within radius. Only cells known before the call are averaged, so the
// result does not depend on fill order. A cell with no sampled neighbour
// gets EstimatedTemperature of its latitude.
func (g *Grid) Interpolate(radius int) {
	sampled := append([]bool(nil), g.known...)
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			if sampled[y*g.W+x] {
				continue
			}
			g.Set(x, y, g.neighbourhoodMean(sampled, x, y, radius))
		}
	}
}

func (g *Grid) neighbourhoodMean(sampled []bool, x, y, radius int) float64 {
	sum, count := 0.0, 0
	for dy := -radius; dy <= radius; dy++ {
		ny := y + dy
		if ny < 0 || ny >= g.H {
			continue
		}
		for dx := -radius; dx <= radius; dx++ {
			nx := x + dx
			if nx < 0 || nx >= g.W {
				continue
			}
			if i := ny*g.W + nx; sampled[i] {
				sum += g.Values[i]
				count++
			}
		}
	}
	if count == 0 {
		return EstimatedTemperature(g.Latitude(y))
	}
	return sum / float64(count)
}

// MinMax returns the smallest and largest known values
func (g *Grid) MinMax() (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for i, v := range g.Values {
		if !g.known[i] {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}
