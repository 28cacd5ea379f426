package overlay

import (
	"image/color"
	"math"
)

const (
	MinTemperature = -30.0
	MaxTemperature = 40.0
	// OverlayAlpha is the fixed 50% opacity of overlay cells
	OverlayAlpha = 128
)

// ColorFor maps °C onto a blue (cold) to red (hot) hue ramp at 50% opacity.
// Temperatures outside [MinTemperature, MaxTemperature] saturate.
func ColorFor(temp float64) color.NRGBA {
	n := (temp - MinTemperature) / (MaxTemperature - MinTemperature)
	n = math.Max(0, math.Min(1, n))
	hue := (1 - n) * 240
	r, g, b := hslToRGB(hue/360, 1, 0.5)
	return color.NRGBA{R: r, G: g, B: b, A: OverlayAlpha}
}

func hslToRGB(h, s, l float64) (uint8, uint8, uint8) {
	if s == 0 {
		v := to8(l)
		return v, v, v
	}
	q := l + s - l*s
	if l < 0.5 {
		q = l * (1 + s)
	}
	p := 2*l - q
	return to8(hueToRGB(p, q, h+1.0/3)), to8(hueToRGB(p, q, h)), to8(hueToRGB(p, q, h-1.0/3))
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 1.0/2:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	default:
		return p
	}
}

func to8(v float64) uint8 {
	return uint8(math.Round(v * 255))
}
