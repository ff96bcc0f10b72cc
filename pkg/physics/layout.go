package physics

import (
	"math"

	"github.com/teslashibe/go-roulette/pkg/geom"
)

// PocketCount is the number of pockets on a European wheel.
const PocketCount = 37

// PocketWidth is the angular width of one pocket.
const PocketWidth = geom.TwoPi / PocketCount

// EuropeanLayout lists pocket numbers in wheel order, starting at 0 and
// following increasing bearing.
var EuropeanLayout = [PocketCount]int{
	0, 32, 15, 19, 4, 21, 2, 25, 17, 34, 6, 27, 13, 36, 11, 30, 8, 23, 10,
	5, 24, 16, 33, 1, 20, 14, 31, 9, 22, 18, 29, 7, 28, 12, 35, 3, 26,
}

var redNumbers = map[int]bool{
	1: true, 3: true, 5: true, 7: true, 9: true, 12: true, 14: true, 16: true, 18: true,
	19: true, 21: true, 23: true, 25: true, 27: true, 30: true, 32: true, 34: true, 36: true,
}

// PocketIndex maps an angle to its slot on the wheel. Each slot is the
// half-open interval [i·w, (i+1)·w), so boundaries belong to exactly one slot.
func PocketIndex(angle float64) int {
	idx := int(math.Floor(geom.NormalizeAngle(angle) / PocketWidth))
	if idx >= PocketCount {
		idx = PocketCount - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

// PocketAt returns the number printed in the slot at idx.
func PocketAt(idx int) int {
	return EuropeanLayout[((idx%PocketCount)+PocketCount)%PocketCount]
}

// Color returns "green", "red" or "black" for a pocket number.
func Color(number int) string {
	switch {
	case number == 0:
		return "green"
	case redNumbers[number]:
		return "red"
	default:
		return "black"
	}
}
