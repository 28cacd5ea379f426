package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// SurfacePoint returns the globe-local position of lat/lon (degrees) at
// radius. Longitude is measured so that lon=0 faces +z after the globe's
// half-turn yaw.
func SurfacePoint(lat, lon, radius float64) mgl64.Vec3 {
	latRad := mgl64.DegToRad(lat)
	lonRad := mgl64.DegToRad(-lon + 90)
	return mgl64.Vec3{
		radius * math.Cos(latRad) * math.Cos(lonRad),
		radius * math.Sin(latRad),
		radius * math.Cos(latRad) * math.Sin(lonRad),
	}
}

// CameraPosition returns the world-space camera position that looks down
// on lat/lon from distance. Longitude is negated to match the globe's yaw.
func CameraPosition(lat, lon, distance float64) mgl64.Vec3 {
	latRad := mgl64.DegToRad(lat)
	lonRad := mgl64.DegToRad(-lon)
	return mgl64.Vec3{
		distance * math.Cos(latRad) * math.Cos(lonRad),
		distance * math.Sin(latRad),
		distance * math.Cos(latRad) * math.Sin(lonRad),
	}
}

// SurfaceOrientation rotates +Y onto the outward normal at p
func SurfaceOrientation(p mgl64.Vec3) mgl64.Quat {
	if p.Len() == 0 {
		return mgl64.QuatIdent()
	}
	return mgl64.QuatBetweenVectors(mgl64.Vec3{0, 1, 0}, p.Normalize())
}

// LatLon returns the latitude and longitude (degrees) of a mesh-local
// position in the Mercator UV frame: longitude atan2(x, z).
func LatLon(p mgl64.Vec3) (lat, lon float64) {
	r := p.Len()
	if r == 0 {
		return 0, 0
	}
	lat = mgl64.RadToDeg(math.Asin(clamp(p.Y()/r, -1, 1)))
	lon = mgl64.RadToDeg(math.Atan2(p.X(), p.Z()))
	return lat, lon
}
