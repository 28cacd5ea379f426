// Package pins keeps the location markers placed on the globe.
package pins

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	geojson "github.com/paulmach/go.geojson"
	"github.com/paulmach/orb"
	"github.com/samber/lo"

	"globe-desktop/internal/geometry"
)

const (
	// SurfaceRadius lifts pins slightly above the unit globe
	SurfaceRadius = 1.02

	// FlyToDistance is the camera distance from the globe centre after a fly-to
	FlyToDistance = 2.0

	// FlyToDuration is the length of the camera animation
	FlyToDuration = time.Second
)

// Pin is a labelled marker on the globe surface
type Pin struct {
	ID          string     `json:"id"`
	Label       string     `json:"label"`
	Point       orb.Point  `json:"point"` // lon, lat
	Position    mgl64.Vec3 `json:"position"`
	Orientation [4]float64 `json:"orientation"` // x, y, z, w
	Created     time.Time  `json:"created"`
}

// Lat returns the pin latitude in degrees
func (p Pin) Lat() float64 { return p.Point.Lat() }

// Lon returns the pin longitude in degrees
func (p Pin) Lon() float64 { return p.Point.Lon() }

// NewPin places a pin at lat/lon with +Y along the surface normal
func NewPin(id string, lat, lon float64, label string) Pin {
	pos := geometry.SurfacePoint(lat, lon, SurfaceRadius)
	q := geometry.SurfaceOrientation(pos)
	return Pin{
		ID:          id,
		Label:       label,
		Point:       orb.Point{lon, lat},
		Position:    pos,
		Orientation: [4]float64{q.X(), q.Y(), q.Z(), q.W},
		Created:     time.Now(),
	}
}

// Set is the collection of pins currently on the globe
type Set struct {
	mu    sync.RWMutex
	pins  []Pin
	newID func() string
}

// NewSet creates an empty pin set
func NewSet(newID func() string) *Set {
	return &Set{newID: newID}
}

// Add places a pin and returns it
func (s *Set) Add(lat, lon float64, label string) (Pin, error) {
	if err := validate(lat, lon); err != nil {
		return Pin{}, err
	}
	p := NewPin(s.newID(), lat, lon, label)
	s.mu.Lock()
	s.pins = append(s.pins, p)
	s.mu.Unlock()
	return p, nil
}

// Replace removes every pin and places a single new one
func (s *Set) Replace(lat, lon float64, label string) (Pin, error) {
	if err := validate(lat, lon); err != nil {
		return Pin{}, err
	}
	p := NewPin(s.newID(), lat, lon, label)
	s.mu.Lock()
	s.pins = []Pin{p}
	s.mu.Unlock()
	return p, nil
}

// Remove deletes the pin with id and reports whether it existed
func (s *Set) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.pins)
	s.pins = lo.Reject(s.pins, func(p Pin, _ int) bool { return p.ID == id })
	return len(s.pins) != n
}

// Clear removes every pin
func (s *Set) Clear() {
	s.mu.Lock()
	s.pins = nil
	s.mu.Unlock()
}

// List returns a copy of the pins in placement order
func (s *Set) List() []Pin {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Pin(nil), s.pins...)
}

// FeatureCollection exports the pins as GeoJSON points
func (s *Set) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, p := range s.List() {
		f := geojson.NewPointFeature([]float64{p.Lon(), p.Lat()})
		f.ID = p.ID
		f.SetProperty("label", p.Label)
		f.SetProperty("created", p.Created.UTC().Format(time.RFC3339))
		fc.AddFeature(f)
	}
	return fc
}

func validate(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %v out of range", lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("longitude %v out of range", lon)
	}
	return nil
}
