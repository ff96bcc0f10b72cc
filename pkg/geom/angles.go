package geom

import "math"

// TwoPi is a full turn in radians.
const TwoPi = 2 * math.Pi

// NormalizeAngle wraps an angle into [0, 2π).
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, TwoPi)
	if a < 0 {
		a += TwoPi
	}
	// math.Mod of a tiny negative value plus 2π can round up to exactly 2π.
	if a >= TwoPi {
		a = 0
	}
	return a
}

// AngleDiff returns to - from along the shorter arc, in (-π, π].
func AngleDiff(from, to float64) float64 {
	d := math.Mod(to-from, TwoPi)
	if d <= -math.Pi {
		d += TwoPi
	} else if d > math.Pi {
		d -= TwoPi
	}
	return d
}

// Bearing returns the image-space bearing of p around center in [0, 2π).
// Image y grows downwards, so increasing angles run clockwise on screen.
func Bearing(p, center Point) float64 {
	d := p.Sub(center)
	return NormalizeAngle(math.Atan2(d.Y, d.X))
}

// Degrees converts radians to degrees for logging/display.
func Degrees(radians float64) float64 {
	return radians * 180.0 / math.Pi
}

// Radians converts degrees to radians.
func Radians(degrees float64) float64 {
	return degrees * math.Pi / 180.0
}
