package vision

import (
	"image"
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"
	"gocv.io/x/gocv"
)

// surfaceMatches reports whether a mean BGR colour (0-255 per channel) looks
// like the playing surface described by params.
func surfaceMatches(b, g, r float64, params WheelParams) bool {
	c := colorful.Color{R: r / 255, G: g / 255, B: b / 255}
	h, s, _ := c.Hsv()
	return h >= params.SurfaceHueMin && h <= params.SurfaceHueMax && s >= params.SurfaceSatMin
}

// meanDiscColor returns the mean BGR colour inside a circle of bgr.
func meanDiscColor(bgr gocv.Mat, center image.Point, radius int) (b, g, r float64) {
	mask := gocv.Zeros(bgr.Rows(), bgr.Cols(), gocv.MatTypeCV8U)
	defer mask.Close()
	gocv.Circle(&mask, center, radius, color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)

	mean := bgr.MeanWithMask(mask)
	return mean.Val1, mean.Val2, mean.Val3
}
