package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrSeamAlreadyFixed is returned when FixSeam runs twice on one mesh
var ErrSeamAlreadyFixed = errors.New("uv seam already fixed")

// Mesh is an indexed triangle mesh. Positions holds xyz triples, UVs holds
// uv pairs and Indices holds counter-clockwise triangles.
type Mesh struct {
	Radius    float64   `json:"radius"`
	Positions []float64 `json:"positions"`
	UVs       []float64 `json:"uvs"`
	Indices   []uint32  `json:"indices"`

	seamFixed bool
}

// NewSphere builds a UV sphere with (widthSegments+1)*(heightSegments+1)
// vertices. Rings run from the north pole (y=+radius) to the south pole and
// the default UVs are the linear (phi, theta) parameterisation.
func NewSphere(radius float64, widthSegments, heightSegments int) (*Mesh, error) {
	if radius <= 0 {
		return nil, fmt.Errorf("radius must be positive, got %v", radius)
	}
	if widthSegments < 3 || heightSegments < 2 {
		return nil, fmt.Errorf("need at least 3x2 segments, got %dx%d", widthSegments, heightSegments)
	}

	cols, rows := widthSegments+1, heightSegments+1
	m := &Mesh{
		Radius:    radius,
		Positions: make([]float64, 0, cols*rows*3),
		UVs:       make([]float64, 0, cols*rows*2),
	}

	grid := make([][]uint32, rows)
	var index uint32
	for iy := 0; iy < rows; iy++ {
		v := float64(iy) / float64(heightSegments)
		theta := v * math.Pi
		grid[iy] = make([]uint32, cols)
		for ix := 0; ix < cols; ix++ {
			u := float64(ix) / float64(widthSegments)
			phi := u * 2 * math.Pi

			x := -radius * math.Cos(phi) * math.Sin(theta)
			y := radius * math.Cos(theta)
			z := radius * math.Sin(phi) * math.Sin(theta)
			m.Positions = append(m.Positions, x, y, z)
			m.UVs = append(m.UVs, u, 1-v)

			grid[iy][ix] = index
			index++
		}
	}

	for iy := 0; iy < heightSegments; iy++ {
		for ix := 0; ix < widthSegments; ix++ {
			a := grid[iy][ix+1]
			b := grid[iy][ix]
			c := grid[iy+1][ix]
			d := grid[iy+1][ix+1]

			// the pole rows collapse to a single triangle per quad
			if iy != 0 {
				m.Indices = append(m.Indices, a, b, d)
			}
			if iy != heightSegments-1 {
				m.Indices = append(m.Indices, b, c, d)
			}
		}
	}

	return m, nil
}

// Project builds a sphere, remaps its UVs to Web Mercator and fixes the
// antimeridian seam. The result is ready to render.
func Project(radius float64, widthSegments, heightSegments int) (*Mesh, error) {
	m, err := NewSphere(radius, widthSegments, heightSegments)
	if err != nil {
		return nil, err
	}
	m.ApplyMercator()
	if _, err := m.FixSeam(); err != nil {
		return nil, err
	}
	return m, nil
}

// VertexCount returns the number of vertices
func (m *Mesh) VertexCount() int {
	return len(m.Positions) / 3
}

// TriangleCount returns the number of triangles
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Position returns vertex i
func (m *Mesh) Position(i int) mgl64.Vec3 {
	return mgl64.Vec3{m.Positions[3*i], m.Positions[3*i+1], m.Positions[3*i+2]}
}

// UV returns the texture coordinate of vertex i
func (m *Mesh) UV(i int) (u, v float64) {
	return m.UVs[2*i], m.UVs[2*i+1]
}

// Triangle returns the vertex indices of triangle t
func (m *Mesh) Triangle(t int) [3]uint32 {
	return [3]uint32{m.Indices[3*t], m.Indices[3*t+1], m.Indices[3*t+2]}
}

// SeamFixed reports whether FixSeam has run
func (m *Mesh) SeamFixed() bool {
	return m.seamFixed
}
