package vision

import (
	"math"
	"sort"

	"github.com/teslashibe/go-roulette/pkg/geom"
	"gonum.org/v1/gonum/floats"
)

// CircleCandidate is one circle reported by one detection pass.
type CircleCandidate struct {
	Center   geom.Point
	Radius   float64
	Strength float64 // relative vote strength within its pass, (0, 1]
	Pass     int     // index of the pass that produced it
}

// Area returns the enclosed area of the candidate circle.
func (c CircleCandidate) Area() float64 {
	return math.Pi * c.Radius * c.Radius
}

// Cluster groups candidates from different passes that describe the same circle.
type Cluster struct {
	Center     geom.Point
	Radius     float64
	Strength   float64
	Members    []CircleCandidate
	Confidence float64 // distinct contributing passes / total passes
	Boost      float64 // secondary heuristic bonus, applied in Score
}

// Score is the cluster confidence including any heuristic boost, capped at 1.
func (c Cluster) Score() float64 {
	return math.Min(1, c.Confidence+c.Boost)
}

// Area returns the enclosed area of the cluster circle.
func (c Cluster) Area() float64 {
	return math.Pi * c.Radius * c.Radius
}

// Passes returns the number of distinct passes that contributed.
func (c Cluster) Passes() int {
	seen := make(map[int]struct{}, len(c.Members))
	for _, m := range c.Members {
		seen[m.Pass] = struct{}{}
	}
	return len(seen)
}

func (c Cluster) matches(cand CircleCandidate, tol ClusterTolerance) bool {
	if c.Center.Distance(cand.Center) > tol.CenterPixels {
		return false
	}
	larger := math.Max(c.Radius, cand.Radius)
	if larger <= 0 {
		return false
	}
	return math.Abs(c.Radius-cand.Radius)/larger <= tol.RadiusRatio
}

// recenter recomputes the strength-weighted mean circle of the members.
func (c *Cluster) recenter() {
	n := len(c.Members)
	xs := make([]float64, n)
	ys := make([]float64, n)
	rs := make([]float64, n)
	ws := make([]float64, n)
	for i, m := range c.Members {
		xs[i], ys[i], rs[i] = m.Center.X, m.Center.Y, m.Radius
		ws[i] = math.Max(m.Strength, 1e-6)
	}
	total := floats.Sum(ws)
	c.Center = geom.Pt(floats.Dot(xs, ws)/total, floats.Dot(ys, ws)/total)
	c.Radius = floats.Dot(rs, ws) / total
	c.Strength = floats.Sum(ws)
}

// ClusterCandidates merges per-pass candidates into clusters. passes[i] holds
// the output of pass i; an empty slice is a pass that found nothing and still
// counts towards the total. Candidates are visited in pass order and join the
// first cluster they match.
func ClusterCandidates(passes [][]CircleCandidate, tol ClusterTolerance) []Cluster {
	if len(passes) == 0 {
		return nil
	}

	var clusters []Cluster
	for i, pass := range passes {
		for _, cand := range pass {
			cand.Pass = i
			placed := false
			for k := range clusters {
				if clusters[k].matches(cand, tol) {
					clusters[k].Members = append(clusters[k].Members, cand)
					clusters[k].recenter()
					placed = true
					break
				}
			}
			if !placed {
				c := Cluster{Members: []CircleCandidate{cand}}
				c.recenter()
				clusters = append(clusters, c)
			}
		}
	}

	total := float64(len(passes))
	for k := range clusters {
		clusters[k].Confidence = float64(clusters[k].Passes()) / total
	}
	return clusters
}

// SelectCluster picks the best cluster: highest score, then the larger
// enclosed area on exact ties, then the stronger vote. It returns false unless
// the winner's score exceeds minConfidence.
func SelectCluster(clusters []Cluster, minConfidence float64) (Cluster, bool) {
	if len(clusters) == 0 {
		return Cluster{}, false
	}

	ranked := make([]Cluster, len(clusters))
	copy(ranked, clusters)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score() != ranked[j].Score() {
			return ranked[i].Score() > ranked[j].Score()
		}
		if ranked[i].Area() != ranked[j].Area() {
			return ranked[i].Area() > ranked[j].Area()
		}
		return ranked[i].Strength > ranked[j].Strength
	})

	best := ranked[0]
	if best.Score() <= minConfidence {
		return best, false
	}
	return best, true
}
