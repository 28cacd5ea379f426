package pins

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

func TestNewPinPosition(t *testing.T) {
	tests := []struct {
		lat, lon float64
		want     mgl64.Vec3
	}{
		{0, 0, mgl64.Vec3{0, 0, SurfaceRadius}},
		{90, 0, mgl64.Vec3{0, SurfaceRadius, 0}},
		{0, 90, mgl64.Vec3{SurfaceRadius, 0, 0}},
		{0, -90, mgl64.Vec3{-SurfaceRadius, 0, 0}},
	}
	for _, tt := range tests {
		p := NewPin("id", tt.lat, tt.lon, "x")
		if !vecNear(p.Position, tt.want, 1e-9) {
			t.Errorf("(%v,%v) position = %v, want %v", tt.lat, tt.lon, p.Position, tt.want)
		}
		if math.Abs(p.Position.Len()-SurfaceRadius) > 1e-9 {
			t.Errorf("radius = %v", p.Position.Len())
		}
	}
}

func TestNewPinOrientation(t *testing.T) {
	for _, ll := range [][2]float64{{10, 20}, {-45, 170}, {60, -100}} {
		p := NewPin("id", ll[0], ll[1], "x")
		o := p.Orientation
		q := mgl64.Quat{W: o[3], V: mgl64.Vec3{o[0], o[1], o[2]}}
		up := q.Rotate(mgl64.Vec3{0, 1, 0})
		if !vecNear(up, p.Position.Normalize(), 1e-9) {
			t.Errorf("%v: +Y maps to %v, want normal %v", ll, up, p.Position.Normalize())
		}
	}
}

func TestSet(t *testing.T) {
	s := NewSet(uuid.NewString)

	a, err := s.Add(51.5, -0.12, "London")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add(35.68, 139.69, "Tokyo"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add(91, 0, "bad"); err == nil {
		t.Error("expected latitude error")
	}
	if _, err := s.Add(0, 181, "bad"); err == nil {
		t.Error("expected longitude error")
	}
	if len(s.List()) != 2 {
		t.Fatalf("len = %d, want 2", len(s.List()))
	}

	if !s.Remove(a.ID) || s.Remove(a.ID) {
		t.Error("Remove should succeed once")
	}

	p, err := s.Replace(-33.87, 151.21, "Sydney")
	if err != nil {
		t.Fatal(err)
	}
	list := s.List()
	if len(list) != 1 || list[0].ID != p.ID || p.Lat() != -33.87 || p.Lon() != 151.21 {
		t.Errorf("after Replace = %+v", list)
	}

	s.Clear()
	if len(s.List()) != 0 {
		t.Error("Clear left pins behind")
	}
}

func TestFeatureCollection(t *testing.T) {
	s := NewSet(func() string { return "pin-1" })
	if _, err := s.Add(48.85, 2.35, "Paris"); err != nil {
		t.Fatal(err)
	}

	data, err := s.FeatureCollection().MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	var out struct {
		Type     string `json:"type"`
		Features []struct {
			ID       string `json:"id"`
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.Type != "FeatureCollection" || len(out.Features) != 1 {
		t.Fatalf("collection = %s", data)
	}
	f := out.Features[0]
	if f.ID != "pin-1" || f.Geometry.Type != "Point" || f.Properties["label"] != "Paris" {
		t.Errorf("feature = %+v", f)
	}
	if c := f.Geometry.Coordinates; len(c) != 2 || c[0] != 2.35 || c[1] != 48.85 {
		t.Errorf("coordinates = %v, want [lon lat]", c)
	}
}

func TestFlyTo(t *testing.T) {
	from := mgl64.Vec3{0, 0, 5}
	f := NewFlyTo(from, 0, 90, 10)

	want := mgl64.Vec3{0, 0, -FlyToDistance}
	if !vecNear(f.Target, want, 1e-9) {
		t.Errorf("Target = %v, want %v", f.Target, want)
	}
	if math.Abs(f.Target.Len()-FlyToDistance) > 1e-9 {
		t.Errorf("distance = %v", f.Target.Len())
	}
	if f.DurationMs != 1000 {
		t.Errorf("DurationMs = %d", f.DurationMs)
	}
	if len(f.Path) != 11 || f.Path[0] != from || !vecNear(f.Path[10], f.Target, 1e-12) {
		t.Errorf("path endpoints = %v .. %v", f.Path[0], f.Path[len(f.Path)-1])
	}
	mid := f.Path[5]
	if !vecNear(mid, from.Add(f.Target).Mul(0.5), 1e-9) {
		t.Errorf("midpoint = %v", mid)
	}
}

func TestCubicInOut(t *testing.T) {
	tests := map[float64]float64{-1: 0, 0: 0, 0.25: 0.0625, 0.5: 0.5, 0.75: 0.9375, 1: 1, 2: 1}
	for in, want := range tests {
		if got := CubicInOut(in); math.Abs(got-want) > 1e-12 {
			t.Errorf("CubicInOut(%v) = %v, want %v", in, got, want)
		}
	}
	if k := Keyframes(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}, 0); len(k) != 1 {
		t.Errorf("Keyframes n=0 len = %d", len(k))
	}
}

// vecNear compares component-wise with an absolute tolerance
func vecNear(a, b mgl64.Vec3, eps float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > eps {
			return false
		}
	}
	return true
}
