package vision

import (
	"image"
	"image/color"
	"log/slog"
	"math"
	"sort"

	"github.com/teslashibe/go-roulette/internal/log"
	"github.com/teslashibe/go-roulette/pkg/geom"
	"gocv.io/x/gocv"
)

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// BallCandidate is a region that survived the colour vote and shape filters.
type BallCandidate struct {
	Center      geom.Point
	Radius      float64
	Area        float64
	Circularity float64
	Distinct    float64 // 0-1, contrast against the annulus background
	Compactness float64 // 0-1
	Score       float64 // 0-1
}

// BallLocator finds the ball inside the rim annulus of a located wheel.
type BallLocator struct {
	params BallParams
	logger *slog.Logger
}

// NewBallLocator creates a ball locator. A nil logger uses the global one.
func NewBallLocator(params BallParams, logger *slog.Logger) *BallLocator {
	if logger == nil {
		logger = log.Component("ball")
	}
	return &BallLocator{params: params, logger: logger}
}

// Params returns the locator's parameters.
func (l *BallLocator) Params() BallParams {
	return l.params
}

// Locate searches the frame for the ball. Not finding it is not an error: the
// observation simply has a nil Position and zero confidence. Errors are only
// returned for an invalid frame or wheel.
func (l *BallLocator) Locate(frame Frame, wheel WheelGeometry, prior MotionPrior) (BallObservation, error) {
	if err := frame.Validate(); err != nil {
		return NoBall(frame), err
	}
	if err := wheel.Validate(); err != nil {
		return NoBall(frame), err
	}

	candidates, err := l.Candidates(frame, wheel)
	if err != nil {
		return NoBall(frame), err
	}

	obs := NoBall(frame)
	obs.Candidates = len(candidates)

	for _, c := range candidates {
		if c.Score < l.params.MinConfidence {
			break
		}
		if !l.consistent(c.Center, wheel, prior, frame) {
			l.logger.Debug("ball candidate rejected by motion check",
				"frame", frame.Index, "x", c.Center.X, "y", c.Center.Y)
			continue
		}
		pos := c.Center
		obs.Position = &pos
		obs.Confidence = c.Score
		return obs, nil
	}
	return obs, nil
}

// Candidates returns the scored ball candidates inside the annulus, best first.
func (l *BallLocator) Candidates(frame Frame, wheel WheelGeometry) ([]BallCandidate, error) {
	bgr, err := frame.Mat()
	if err != nil {
		return nil, err
	}
	defer bgr.Close()

	rows, cols := bgr.Rows(), bgr.Cols()
	p := l.params

	annulus := annulusMask(rows, cols, wheel, p.InnerRadiusFrac, p.OuterRadiusFrac)
	defer annulus.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(bgr, &gray, gocv.ColorBGRToGray)

	votes := l.voteMask(bgr, gray)
	defer votes.Close()
	gocv.BitwiseAnd(votes, annulus, &votes)

	contours := gocv.FindContours(votes, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	background := gray.MeanWithMask(annulus).Val1

	var out []BallCandidate
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		area := gocv.ContourArea(contour)
		if area < p.MinArea || area > p.MaxArea {
			continue
		}
		perimeter := gocv.ArcLength(contour, true)
		if perimeter <= 0 {
			continue
		}
		circularity := 4 * math.Pi * area / (perimeter * perimeter)
		if circularity < p.MinCircularity {
			continue
		}

		x, y, radius := gocv.MinEnclosingCircle(contour)
		fill := 0.0
		if radius > 0 {
			fill = area / (math.Pi * float64(radius) * float64(radius))
		}

		region := gocv.Zeros(rows, cols, gocv.MatTypeCV8U)
		gocv.DrawContours(&region, contours, i, white, -1)
		regionMean := gray.MeanWithMask(region).Val1
		region.Close()

		c := BallCandidate{
			Center:      geom.Pt(float64(x), float64(y)),
			Radius:      float64(radius),
			Area:        area,
			Circularity: circularity,
			Distinct:    clamp01((regionMean - background) / 255 * p.DistinctScale),
			Compactness: clamp01((math.Min(circularity, 1) + math.Min(fill, 1)) / 2),
		}
		c.Score = clamp01(p.ContrastWeight*c.Distinct + p.ShapeWeight*c.Compactness)
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out, nil
}

// voteMask flags pixels that at least MinVotes of the three colour
// representations consider ball-like. The result is 0/255.
func (l *BallLocator) voteMask(bgr, gray gocv.Mat) gocv.Mat {
	p := l.params

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(bgr, &hsv, gocv.ColorBGRToHSV)
	hsvMask := gocv.NewMat()
	defer hsvMask.Close()
	gocv.InRangeWithScalar(hsv,
		gocv.NewScalar(0, 0, p.ValMin, 0),
		gocv.NewScalar(180, p.SatMax, 255, 0),
		&hsvMask)

	lab := gocv.NewMat()
	defer lab.Close()
	gocv.CvtColor(bgr, &lab, gocv.ColorBGRToLab)
	labMask := gocv.NewMat()
	defer labMask.Close()
	gocv.InRangeWithScalar(lab,
		gocv.NewScalar(p.LightMin, 128-p.ChromaMax, 128-p.ChromaMax, 0),
		gocv.NewScalar(255, 128+p.ChromaMax, 128+p.ChromaMax, 0),
		&labMask)

	k := p.ContrastKernel
	if k%2 == 0 {
		k++
	}
	local := gocv.NewMat()
	defer local.Close()
	gocv.Blur(gray, &local, image.Pt(k, k))
	diff := gocv.NewMat()
	defer diff.Close()
	gocv.Subtract(gray, local, &diff)
	contrastMask := gocv.NewMat()
	defer contrastMask.Close()
	gocv.Threshold(diff, &contrastMask, float32(p.ContrastMin), 255, gocv.ThresholdBinary)

	// 0/255 masks to 0/1 votes, then sum.
	sum := gocv.Zeros(gray.Rows(), gray.Cols(), gocv.MatTypeCV8U)
	defer sum.Close()
	for _, m := range []gocv.Mat{hsvMask, labMask, contrastMask} {
		vote := gocv.NewMat()
		gocv.Threshold(m, &vote, 127, 1, gocv.ThresholdBinary)
		gocv.Add(sum, vote, &sum)
		vote.Close()
	}

	out := gocv.NewMat()
	gocv.Threshold(sum, &out, float32(p.MinVotes)-0.5, 255, gocv.ThresholdBinary)

	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(3, 3))
	defer kernel.Close()
	gocv.MorphologyEx(out, &out, gocv.MorphClose, kernel)
	return out
}

// consistent rejects candidates whose implied angular velocity is implausible
// for a rolling ball given the recent history. With a prior velocity the
// candidate is measured against the extrapolated bearing, so fast spins that
// wrap past 2π between frames still compare correctly.
func (l *BallLocator) consistent(pos geom.Point, wheel WheelGeometry, prior MotionPrior, frame Frame) bool {
	if !prior.Valid {
		return true
	}
	dt := frame.Timestamp.Sub(prior.Timestamp).Seconds()
	if dt <= 0 {
		return true
	}
	bearing := geom.Bearing(pos, wheel.Center)

	if !prior.HasVelocity {
		omega := geom.AngleDiff(prior.Angle, bearing) / dt
		return math.Abs(omega) <= l.params.MaxAngularVelocity
	}

	deviation := geom.AngleDiff(prior.Predict(frame.Timestamp), bearing) / dt
	if math.Abs(deviation) > l.params.MaxVelocityJump {
		return false
	}
	omega := prior.Velocity + deviation
	if math.Abs(omega) > l.params.MaxAngularVelocity {
		return false
	}
	return omega*prior.Velocity >= 0 || math.Abs(omega) <= l.params.ReverseTolerance
}

// annulusMask returns a 0/255 ring around the wheel center.
func annulusMask(rows, cols int, wheel WheelGeometry, innerFrac, outerFrac float64) gocv.Mat {
	mask := gocv.Zeros(rows, cols, gocv.MatTypeCV8U)
	center := image.Pt(int(math.Round(wheel.Center.X)), int(math.Round(wheel.Center.Y)))
	gocv.Circle(&mask, center, int(wheel.Radius*outerFrac), white, -1)
	gocv.Circle(&mask, center, int(wheel.Radius*innerFrac), color.RGBA{A: 255}, -1)
	return mask
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
