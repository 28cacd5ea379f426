package zoom

import (
	"testing"

	"globe-desktop/internal/config"
)

func TestZoomForBands(t *testing.T) {
	s, err := NewSelector(nil, DefaultHysteresis, 2)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		distance float64
		want     int
	}{
		{12, 1}, {7, 2}, {5, 3}, {3.5, 4}, {2, 5}, {1, 6},
		{10, 2}, {6, 3}, {4, 4}, {3, 5}, {1.8, 6}, {0, 6},
	}
	for _, tt := range tests {
		if got := s.ZoomFor(tt.distance); got != tt.want {
			t.Errorf("ZoomFor(%v) = %d, want %d", tt.distance, got, tt.want)
		}
	}
}

func TestSelectReportsOnlyChanges(t *testing.T) {
	s, _ := NewSelector(nil, DefaultHysteresis, 2)

	if z, changed := s.Select(7); changed {
		t.Errorf("Select(7) = %d, changed; zoom 2 is already active", z)
	}
	if z, changed := s.Select(12); !changed || z != 1 {
		t.Errorf("Select(12) = %d, %v; want 1, true", z, changed)
	}
	if z, changed := s.Select(2); !changed || z != 5 {
		t.Errorf("Select(2) = %d, %v; want 5, true", z, changed)
	}
	if s.Current() != 5 {
		t.Errorf("Current = %d", s.Current())
	}
}

func TestSelectHysteresis(t *testing.T) {
	s, _ := NewSelector(nil, DefaultHysteresis, 2)

	if z, changed := s.Select(4.2); !changed || z != 3 {
		t.Fatalf("first Select = %d, %v", z, changed)
	}
	// small steps never reload, even once they drift across 4.0 and 3.0
	for _, d := range []float64{4.0, 3.9, 4.3, 3.9, 3.5, 3.2, 2.9, 3.1} {
		if z, changed := s.Select(d); changed {
			t.Errorf("Select(%v) changed zoom to %d", d, z)
		}
	}
	if s.Current() != 3 {
		t.Errorf("Current = %d, want 3", s.Current())
	}
	if last, _ := s.LastDistance(); last != 3.1 {
		t.Errorf("LastDistance = %v, want 3.1", last)
	}
	if z, changed := s.Select(2.2); !changed || z != 5 {
		t.Errorf("Select(2.2) = %d, %v; want 5, true", z, changed)
	}
}

func TestSetCurrent(t *testing.T) {
	s, _ := NewSelector(nil, DefaultHysteresis, 2)
	s.Select(12)
	s.SetCurrent(2)
	if z, changed := s.Select(13); !changed || z != 1 {
		t.Errorf("Select after SetCurrent = %d, %v; want 1, true", z, changed)
	}
}

func TestNewSelectorValidatesBands(t *testing.T) {
	bands := []config.ZoomBand{{MinDistance: 2, Zoom: 1}, {MinDistance: 5, Zoom: 2}}
	if _, err := NewSelector(bands, 0.5, 1); err == nil {
		t.Error("ascending bands accepted")
	}
	if _, err := NewSelector(nil, -1, 1); err == nil {
		t.Error("negative hysteresis accepted")
	}
}

func TestCustomBands(t *testing.T) {
	bands := []config.ZoomBand{{MinDistance: 5, Zoom: 1}, {MinDistance: 2, Zoom: 3}, {Zoom: 4}}
	s, err := NewSelector(bands, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	for d, want := range map[float64]int{6: 1, 3: 3, 1: 4} {
		if got := s.ZoomFor(d); got != want {
			t.Errorf("ZoomFor(%v) = %d, want %d", d, got, want)
		}
	}
}
