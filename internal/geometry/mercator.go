package geometry

import (
	"math"
)

// MercatorUV maps a point on a sphere of radius r to Web Mercator texture
// space. u follows longitude atan2(x, z); v follows the Mercator
// ordinate of latitude asin(y/r). Both are clamped to [0,1], so the poles
// pin to the edges.
func MercatorUV(x, y, z, r float64) (u, v float64) {
	lon := math.Atan2(x, z)
	lat := math.Asin(clamp(y/r, -1, 1))

	u = clamp((lon+math.Pi)/(2*math.Pi), 0, 1)
	v = mercatorV(lat)
	return u, v
}

func mercatorV(lat float64) float64 {
	t := math.Tan(math.Pi/4 + lat/2)
	if !(t > 0) {
		return 0
	}
	v := 0.5 + math.Log(t)/(2*math.Pi)
	if math.IsNaN(v) {
		return 0
	}
	return clamp(v, 0, 1)
}

// ApplyMercator overwrites every UV with MercatorUV of its vertex
func (m *Mesh) ApplyMercator() {
	for i := 0; i < m.VertexCount(); i++ {
		x, y, z := m.Positions[3*i], m.Positions[3*i+1], m.Positions[3*i+2]
		m.UVs[2*i], m.UVs[2*i+1] = MercatorUV(x, y, z, m.Radius)
	}
}

// FixSeam unwraps triangles that straddle the u=0/u=1 discontinuity. For a
// triangle whose u values spread by more than 0.5, each vertex with u < 0.5
// is replaced by a copy whose u is shifted by +1; the original vertex keeps
// serving its other triangles. Copies are shared between seam triangles.
// FixSeam returns the number of vertices added and may only run once.
func (m *Mesh) FixSeam() (int, error) {
	if m.seamFixed {
		return 0, ErrSeamAlreadyFixed
	}

	dup := make(map[uint32]uint32)
	added := 0
	for t := 0; t < len(m.Indices); t += 3 {
		tri := m.Indices[t : t+3]
		u0, u1, u2 := m.UVs[2*tri[0]], m.UVs[2*tri[1]], m.UVs[2*tri[2]]
		if math.Max(u0, math.Max(u1, u2))-math.Min(u0, math.Min(u1, u2)) <= 0.5 {
			continue
		}

		for k, vi := range tri {
			if m.UVs[2*vi] >= 0.5 {
				continue
			}
			copyIdx, ok := dup[vi]
			if !ok {
				copyIdx = uint32(m.VertexCount())
				m.Positions = append(m.Positions, m.Positions[3*vi], m.Positions[3*vi+1], m.Positions[3*vi+2])
				m.UVs = append(m.UVs, m.UVs[2*vi]+1, m.UVs[2*vi+1])
				dup[vi] = copyIdx
				added++
			}
			tri[k] = copyIdx
		}
	}

	m.seamFixed = true
	return added, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
