package zoom

import (
	"fmt"
	"math"
	"sync"

	"globe-desktop/internal/config"
)

// DefaultHysteresis is the minimum distance change that is acted on
const DefaultHysteresis = 0.5

// DefaultBands is the distance-to-zoom table used when none is configured
var DefaultBands = []config.ZoomBand{
	{MinDistance: 10, Zoom: 1},
	{MinDistance: 6, Zoom: 2},
	{MinDistance: 4, Zoom: 3},
	{MinDistance: 3, Zoom: 4},
	{MinDistance: 1.8, Zoom: 5},
	{MinDistance: 0, Zoom: 6},
}

// Selector maps camera distance to a texture zoom level. A distance is only
// considered when it moved at least the hysteresis away from the previous
// distance seen, so jitter between frames never flips the zoom.
type Selector struct {
	mu           sync.Mutex
	bands        []config.ZoomBand
	hysteresis   float64
	current      int
	lastDistance float64
	hasLast      bool
}

// NewSelector creates a selector starting at zoom current.
// Bands must be ordered by descending MinDistance; the last band is the fallback.
func NewSelector(bands []config.ZoomBand, hysteresis float64, current int) (*Selector, error) {
	if len(bands) == 0 {
		bands = DefaultBands
	}
	for i := 1; i < len(bands); i++ {
		if bands[i].MinDistance >= bands[i-1].MinDistance {
			return nil, fmt.Errorf("zoom bands not descending at %d: %v >= %v",
				i, bands[i].MinDistance, bands[i-1].MinDistance)
		}
	}
	if hysteresis < 0 {
		return nil, fmt.Errorf("negative hysteresis %v", hysteresis)
	}
	return &Selector{
		bands:      append([]config.ZoomBand(nil), bands...),
		hysteresis: hysteresis,
		current:    current,
	}, nil
}

// ZoomFor returns the band zoom for distance without touching selector state
func (s *Selector) ZoomFor(distance float64) int {
	for _, b := range s.bands[:len(s.bands)-1] {
		if distance > b.MinDistance {
			return b.Zoom
		}
	}
	return s.bands[len(s.bands)-1].Zoom
}

// Select feeds a camera distance. It returns the new zoom and true only when
// the distance moved past the hysteresis and maps to a different zoom than
// the current one.
func (s *Selector) Select(distance float64) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, seen := s.lastDistance, s.hasLast
	s.lastDistance = distance
	s.hasLast = true
	if seen && math.Abs(distance-prev) < s.hysteresis {
		return s.current, false
	}

	z := s.ZoomFor(distance)
	if z == s.current {
		return s.current, false
	}
	s.current = z
	return z, true
}

// Current returns the active zoom
func (s *Selector) Current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// LastDistance returns the last distance seen
func (s *Selector) LastDistance() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastDistance, s.hasLast
}

// SetCurrent overrides the active zoom, e.g. after a load for the selected zoom was dropped
func (s *Selector) SetCurrent(z int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = z
}
