package tiles

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

const (
	MaxZoom = 22
	// Web Mercator constants
	Equator = 40075016.685578 // Earth's equator in meters
	// MaxLatitude is the northern edge of the Web Mercator square
	MaxLatitude = 85.05112877980659
)

// Tile is a slippy-map tile address; X grows east, Y grows south from row 0 at the north edge
type Tile struct {
	Z, X, Y int
}

// NewTile validates a tile address
func NewTile(z, x, y int) (Tile, error) {
	if z < 0 || z > MaxZoom {
		return Tile{}, fmt.Errorf("zoom %d out of range [0, %d]", z, MaxZoom)
	}
	n := 1 << uint(z)
	if x < 0 || x >= n || y < 0 || y >= n {
		return Tile{}, fmt.Errorf("x/y (%d,%d) out of range for zoom %d", x, y, z)
	}
	return Tile{Z: z, X: x, Y: y}, nil
}

func (t Tile) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}

// Maptile converts to the orb representation
func (t Tile) Maptile() maptile.Tile {
	return maptile.New(uint32(t.X), uint32(t.Y), maptile.Zoom(t.Z))
}

// FromMaptile converts from the orb representation
func FromMaptile(mt maptile.Tile) Tile {
	return Tile{Z: int(mt.Z), X: int(mt.X), Y: int(mt.Y)}
}

// Wgs84Bounds returns the bounding box in WGS84 (south, west, north, east)
func (t Tile) Wgs84Bounds() (south, west, north, east float64) {
	b := t.Maptile().Bound()
	return b.Min.Lat(), b.Min.Lon(), b.Max.Lat(), b.Max.Lon()
}

// Center returns the tile centre as an orb point (lon, lat)
func (t Tile) Center() orb.Point {
	return t.Maptile().Center()
}

// TileForWgs84 returns the tile containing lat/lon at zoom. Latitudes outside
// the Mercator square land in the first or last row.
func TileForWgs84(lat, lon float64, zoom int) Tile {
	n := float64(int(1) << uint(zoom))
	lat = math.Max(-MaxLatitude, math.Min(MaxLatitude, lat))
	latRad := lat * math.Pi / 180
	x := (lon + 180) / 360 * n
	y := (1 - math.Asinh(math.Tan(latRad))/math.Pi) / 2 * n
	return Tile{Z: zoom, X: clamp(int(x), 0, int(n)-1), Y: clamp(int(y), 0, int(n)-1)}
}

func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// Grid returns every tile of a zoom level, row by row from the north edge
func Grid(zoom int) []Tile {
	n := 1 << uint(zoom)
	out := make([]Tile, 0, n*n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			out = append(out, Tile{Z: zoom, X: x, Y: y})
		}
	}
	return out
}

// Server picks the subdomain for a tile: subdomains[(x+y) mod len].
// Deterministic so a given tile always hits the same host.
func Server(subdomains []string, t Tile) string {
	if len(subdomains) == 0 {
		return ""
	}
	return subdomains[(t.X+t.Y)%len(subdomains)]
}

// URL expands a {s}/{z}/{x}/{y} template for t
func URL(template string, subdomains []string, t Tile) string {
	r := strings.NewReplacer(
		"{s}", Server(subdomains, t),
		"{z}", strconv.Itoa(t.Z),
		"{x}", strconv.Itoa(t.X),
		"{y}", strconv.Itoa(t.Y),
	)
	return r.Replace(template)
}

// MercatorExtent returns the full Web Mercator square (minX, minY, maxX, maxY) in meters
func MercatorExtent() (minX, minY, maxX, maxY float64) {
	half := Equator / 2
	return -half, -half, half, half
}
