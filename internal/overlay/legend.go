package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	legendWidth    = 230
	legendHeight   = 110
	legendPadding  = 15
	gradientHeight = 20
)

var (
	faceOnce  sync.Once
	titleFace font.Face
	labelFace font.Face
	smallFace font.Face
	faceErr   error
)

func loadFaces() error {
	faceOnce.Do(func() {
		f, err := opentype.Parse(goregular.TTF)
		if err != nil {
			faceErr = fmt.Errorf("failed to parse font: %w", err)
			return
		}
		mk := func(size float64) font.Face {
			face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
			if err != nil && faceErr == nil {
				faceErr = fmt.Errorf("failed to create font face: %w", err)
			}
			return face
		}
		titleFace, labelFace, smallFace = mk(14), mk(12), mk(10)
	})
	return faceErr
}

// LegendLabels are drawn under the gradient, left to right
var LegendLabels = []string{"-30°C", "0°C", "+40°C"}

// RenderLegend draws the temperature legend: title, colour ramp, the three
// range labels and the refresh note.
func RenderLegend(refreshNote string) (*image.RGBA, error) {
	if err := loadFaces(); err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, legendWidth, legendHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.NRGBA{0, 0, 0, 178}), image.Point{}, draw.Src)

	white := image.NewUniform(color.White)
	centered := func(face font.Face, s string, y int) {
		d := &font.Drawer{Dst: img, Src: white, Face: face}
		w := d.MeasureString(s).Ceil()
		d.Dot = fixed.P((legendWidth-w)/2, y)
		d.DrawString(s)
	}

	centered(titleFace, "Temperature", legendPadding+12)

	gradTop := legendPadding + 22
	gradW := legendWidth - 2*legendPadding
	for x := 0; x < gradW; x++ {
		t := MinTemperature + (MaxTemperature-MinTemperature)*float64(x)/float64(gradW-1)
		c := ColorFor(t)
		c.A = 255
		for y := gradTop; y < gradTop+gradientHeight; y++ {
			img.Set(legendPadding+x, y, c)
		}
	}

	labelY := gradTop + gradientHeight + 16
	d := &font.Drawer{Dst: img, Src: white, Face: labelFace}
	for i, s := range LegendLabels {
		w := d.MeasureString(s).Ceil()
		var x int
		switch i {
		case 0:
			x = legendPadding
		case len(LegendLabels) - 1:
			x = legendWidth - legendPadding - w
		default:
			x = (legendWidth - w) / 2
		}
		d.Dot = fixed.P(x, labelY)
		d.DrawString(s)
	}

	if refreshNote != "" {
		centered(smallFace, refreshNote, labelY+18)
	}
	return img, nil
}

// RefreshNote formats the legend footer for an interval in minutes
func RefreshNote(minutes int) string {
	if minutes == 1 {
		return "Updates every minute"
	}
	return fmt.Sprintf("Updates every %d minutes", minutes)
}
