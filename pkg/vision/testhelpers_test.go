package vision

import (
	"image"
	"image/color"
	"image/draw"
	"time"

	"github.com/teslashibe/go-roulette/pkg/geom"
)

var (
	feltGreen = color.RGBA{R: 30, G: 110, B: 40, A: 255}
	wheelWood = color.RGBA{R: 120, G: 60, B: 30, A: 255}
	ballWhite = color.RGBA{R: 250, G: 250, B: 250, A: 255}
)

// canvas returns a w x h image filled with bg.
func canvas(w, h int, bg color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)
	return img
}

// fillDisc paints a filled circle.
func fillDisc(img *image.RGBA, center geom.Point, radius float64, c color.Color) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if geom.Pt(float64(x), float64(y)).Distance(center) <= radius {
				img.Set(x, y, c)
			}
		}
	}
}

func testFrame(img image.Image, index uint64) Frame {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	return NewFrame(img, index, base.Add(time.Duration(index)*100*time.Millisecond))
}
