package vision

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/go-roulette/pkg/geom"
)

var testTolerance = ClusterTolerance{CenterPixels: 10, RadiusRatio: 0.1}

func TestClusterCandidates_ConfidenceIsPassFraction(t *testing.T) {
	wheel := CircleCandidate{Center: geom.Pt(200, 150), Radius: 100, Strength: 1}
	noise := CircleCandidate{Center: geom.Pt(40, 40), Radius: 20, Strength: 0.5}

	passes := [][]CircleCandidate{
		{wheel},
		{shift(wheel, 3, -2, 4)},
		{noise},
		{},
		{shift(wheel, -4, 1, -5), noise},
	}

	clusters := ClusterCandidates(passes, testTolerance)
	require.Len(t, clusters, 2)

	best, ok := SelectCluster(clusters, 0.3)
	require.True(t, ok)
	assert.Equal(t, 3, best.Passes())
	assert.Equal(t, 3.0/5.0, best.Confidence)
	assert.InDelta(t, 200, best.Center.X, 5)
	assert.InDelta(t, 150, best.Center.Y, 5)
}

func TestClusterCandidates_DuplicateInOnePassCountsOnce(t *testing.T) {
	a := CircleCandidate{Center: geom.Pt(100, 100), Radius: 50, Strength: 1}
	passes := [][]CircleCandidate{
		{a, shift(a, 1, 1, 1), shift(a, 2, 0, 0)},
		{},
		{},
		{},
	}

	clusters := ClusterCandidates(passes, testTolerance)
	require.Len(t, clusters, 1)
	assert.Equal(t, 0.25, clusters[0].Confidence)
	assert.Len(t, clusters[0].Members, 3)
}

// Property: for random synthetic pass outputs the winning confidence always
// equals the exact fraction of passes that contributed to the winner.
func TestClusterCandidates_ConfidenceProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	truth := CircleCandidate{Center: geom.Pt(320, 240), Radius: 150, Strength: 1}

	for trial := 0; trial < 200; trial++ {
		nPasses := 1 + rng.Intn(6)
		passes := make([][]CircleCandidate, nPasses)
		hits := 0
		for i := range passes {
			if rng.Float64() < 0.6 {
				passes[i] = append(passes[i], shift(truth, rng.Float64()*4-2, rng.Float64()*4-2, rng.Float64()*6-3))
				hits++
			}
			// far-away clutter never joins the truth cluster
			if rng.Float64() < 0.5 {
				passes[i] = append(passes[i], CircleCandidate{
					Center:   geom.Pt(20+rng.Float64()*30, 20+rng.Float64()*30),
					Radius:   10 + rng.Float64()*10,
					Strength: rng.Float64(),
				})
			}
		}

		clusters := ClusterCandidates(passes, testTolerance)
		for _, c := range clusters {
			assert.Equal(t, float64(c.Passes())/float64(nPasses), c.Confidence)
			if c.Center.Distance(truth.Center) < 10 {
				assert.Equal(t, float64(hits)/float64(nPasses), c.Confidence, "trial %d", trial)
			}
		}
	}
}

func TestClusterCandidates_NoPasses(t *testing.T) {
	assert.Empty(t, ClusterCandidates(nil, testTolerance))

	_, ok := SelectCluster(nil, 0)
	assert.False(t, ok)
}

func TestClusterCandidates_RadiusToleranceSplits(t *testing.T) {
	a := CircleCandidate{Center: geom.Pt(100, 100), Radius: 100, Strength: 1}
	b := CircleCandidate{Center: geom.Pt(100, 100), Radius: 80, Strength: 1}

	clusters := ClusterCandidates([][]CircleCandidate{{a}, {b}}, testTolerance)
	assert.Len(t, clusters, 2)
}

func TestSelectCluster_TieBreaksOnArea(t *testing.T) {
	small := CircleCandidate{Center: geom.Pt(100, 100), Radius: 40, Strength: 1}
	large := CircleCandidate{Center: geom.Pt(300, 300), Radius: 120, Strength: 0.2}

	clusters := ClusterCandidates([][]CircleCandidate{{small, large}, {small, large}}, testTolerance)
	require.Len(t, clusters, 2)

	best, ok := SelectCluster(clusters, 0.3)
	require.True(t, ok)
	assert.InDelta(t, 120, best.Radius, 1e-9)
}

func TestSelectCluster_ThresholdIsExclusive(t *testing.T) {
	a := CircleCandidate{Center: geom.Pt(100, 100), Radius: 50, Strength: 1}
	clusters := ClusterCandidates([][]CircleCandidate{{a}, {}}, testTolerance)

	_, ok := SelectCluster(clusters, 0.5)
	assert.False(t, ok, "confidence equal to the threshold must not pass")

	_, ok = SelectCluster(clusters, 0.49)
	assert.True(t, ok)
}

func TestSelectCluster_BoostCanWin(t *testing.T) {
	a := CircleCandidate{Center: geom.Pt(100, 100), Radius: 50, Strength: 1}
	b := CircleCandidate{Center: geom.Pt(300, 100), Radius: 40, Strength: 1}
	clusters := ClusterCandidates([][]CircleCandidate{{a, b}, {a, b}}, testTolerance)
	require.Len(t, clusters, 2)
	clusters[1].Boost = 0.1

	best, ok := SelectCluster(clusters, 0.3)
	require.True(t, ok)
	assert.InDelta(t, 40, best.Radius, 1e-9)
	assert.Equal(t, 1.0, best.Score(), "score is capped at 1")
}

func TestSelectCluster_DefaultThresholdWithSurfaceBoost(t *testing.T) {
	params := DefaultWheelParams()
	a := CircleCandidate{Center: geom.Pt(100, 100), Radius: 50, Strength: 1}
	clusters := ClusterCandidates([][]CircleCandidate{{a}, {}, {}, {}}, params.Tolerance)
	require.Len(t, clusters, 1)

	_, ok := SelectCluster(clusters, params.MinConfidence)
	assert.False(t, ok, "one of four passes alone is rejected")

	clusters[0].Boost = params.SurfaceBoost
	best, ok := SelectCluster(clusters, params.MinConfidence)
	require.True(t, ok, "one pass on matching felt is accepted")
	assert.InDelta(t, 0.25, best.Confidence, 1e-9)
}

func shift(c CircleCandidate, dx, dy, dr float64) CircleCandidate {
	c.Center = geom.Pt(c.Center.X+dx, c.Center.Y+dy)
	c.Radius += dr
	return c
}
