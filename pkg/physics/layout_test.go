package physics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/teslashibe/go-roulette/pkg/geom"
)

func TestEuropeanLayout_IsPermutation(t *testing.T) {
	seen := make(map[int]bool)
	for _, n := range EuropeanLayout {
		assert.False(t, seen[n], "duplicate %d", n)
		assert.GreaterOrEqual(t, n, 0)
		assert.LessOrEqual(t, n, 36)
		seen[n] = true
	}
	assert.Len(t, seen, PocketCount)
}

func TestPocketIndex_Range(t *testing.T) {
	for i := 0; i < 100000; i++ {
		angle := geom.TwoPi * float64(i) / 100000
		idx := PocketIndex(angle)
		assert.GreaterOrEqual(t, idx, 0)
		assert.LessOrEqual(t, idx, 36)
	}
	assert.Equal(t, 36, PocketIndex(math.Nextafter(geom.TwoPi, 0)))
}

func TestPocketIndex_BoundariesMapOnce(t *testing.T) {
	for i := 1; i < PocketCount; i++ {
		boundary := float64(i) * PocketWidth
		below := PocketIndex(boundary - 1e-9)
		above := PocketIndex(boundary + 1e-9)

		assert.Equal(t, i-1, below, "just below boundary %d", i)
		assert.Equal(t, i, above, "just above boundary %d", i)
	}
	assert.Equal(t, 0, PocketIndex(0))
}

func TestPocketIndex_Monotonic(t *testing.T) {
	prev := 0
	for i := 0; i <= 3700; i++ {
		idx := PocketIndex(geom.TwoPi * float64(i) / 3701)
		assert.GreaterOrEqual(t, idx, prev)
		prev = idx
	}
}

func TestPocketAt(t *testing.T) {
	assert.Equal(t, 0, PocketAt(0))
	assert.Equal(t, 32, PocketAt(1))
	assert.Equal(t, 26, PocketAt(36))
	assert.Equal(t, 26, PocketAt(-1))
	assert.Equal(t, 0, PocketAt(37))
}

func TestColor(t *testing.T) {
	assert.Equal(t, "green", Color(0))
	assert.Equal(t, "red", Color(32))
	assert.Equal(t, "black", Color(15))
	assert.Equal(t, "red", Color(36))
	assert.Equal(t, "black", Color(26))
}
