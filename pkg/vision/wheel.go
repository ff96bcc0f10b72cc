package vision

import (
	"image"
	"log/slog"
	"math"

	"github.com/teslashibe/go-roulette/internal/log"
	"github.com/teslashibe/go-roulette/pkg/geom"
	"gocv.io/x/gocv"
)

// WheelLocator finds the wheel rim with several independent Hough passes and
// a proximity-clustering vote. It holds no per-frame state and is safe for
// concurrent use.
type WheelLocator struct {
	params WheelParams
	logger *slog.Logger
}

// NewWheelLocator creates a wheel locator. A nil logger uses the global one.
func NewWheelLocator(params WheelParams, logger *slog.Logger) *WheelLocator {
	if logger == nil {
		logger = log.Component("wheel")
	}
	return &WheelLocator{params: params, logger: logger}
}

// Params returns the locator's parameters.
func (l *WheelLocator) Params() WheelParams {
	return l.params
}

// Locate runs every pass over the frame and returns the winning wheel.
// The bool is false when no cluster clears the confidence threshold.
func (l *WheelLocator) Locate(frame Frame) (WheelGeometry, bool, error) {
	bgr, err := frame.Mat()
	if err != nil {
		return WheelGeometry{}, false, err
	}
	defer bgr.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(bgr, &gray, gocv.ColorBGRToGray)

	blurred := gocv.NewMat()
	defer blurred.Close()
	k := l.params.BlurKernel
	if k%2 == 0 {
		k++
	}
	gocv.GaussianBlur(gray, &blurred, image.Pt(k, k), l.params.BlurSigma, l.params.BlurSigma, gocv.BorderDefault)

	passes := make([][]CircleCandidate, len(l.params.Passes))
	for i, pass := range l.params.Passes {
		passes[i] = runHoughPass(blurred, pass, i)
	}

	clusters := ClusterCandidates(passes, l.params.Tolerance)
	if l.params.SurfaceCheck {
		for i := range clusters {
			c := clusters[i]
			b, g, r := meanDiscColor(bgr, image.Pt(int(c.Center.X), int(c.Center.Y)), int(c.Radius))
			if surfaceMatches(b, g, r, l.params) {
				clusters[i].Boost = l.params.SurfaceBoost
			}
		}
	}

	best, ok := SelectCluster(clusters, l.params.MinConfidence)
	if !ok {
		l.logger.Debug("wheel not found",
			"frame", frame.Index, "clusters", len(clusters), "best_score", best.Score())
		return WheelGeometry{}, false, nil
	}

	wheel := WheelGeometry{
		Center:       best.Center,
		Radius:       best.Radius,
		Confidence:   best.Score(),
		PassFraction: best.Confidence,
		SurfaceMatch: best.Boost > 0,
	}
	l.logger.Debug("wheel located",
		"frame", frame.Index,
		"x", math.Round(wheel.Center.X), "y", math.Round(wheel.Center.Y),
		"radius", math.Round(wheel.Radius), "confidence", wheel.Confidence)
	return wheel, true, nil
}

// runHoughPass runs one Hough configuration. Circles that do not fit inside
// the frame are discarded. OpenCV orders circles by accumulator votes, so the
// rank gives a relative strength.
func runHoughPass(blurred gocv.Mat, pass HoughPass, index int) []CircleCandidate {
	rows, cols := blurred.Rows(), blurred.Cols()
	maxRadius := int(float64(min(rows, cols)) * pass.MaxRadiusFrac)
	if maxRadius <= pass.MinRadius {
		return nil
	}

	circles := gocv.NewMat()
	defer circles.Close()
	gocv.HoughCirclesWithParams(blurred, &circles, gocv.HoughGradient,
		pass.DP, pass.MinDist, pass.Param1, pass.Param2,
		pass.MinRadius, maxRadius)

	if circles.Empty() || circles.Cols() == 0 {
		return nil
	}

	var out []CircleCandidate
	for i := 0; i < circles.Cols(); i++ {
		x := float64(circles.GetFloatAt(0, i*3))
		y := float64(circles.GetFloatAt(0, i*3+1))
		r := float64(circles.GetFloatAt(0, i*3+2))
		if x-r < 0 || y-r < 0 || x+r >= float64(cols) || y+r >= float64(rows) {
			continue
		}
		out = append(out, CircleCandidate{
			Center:   geom.Pt(x, y),
			Radius:   r,
			Strength: 1 / float64(i+1),
			Pass:     index,
		})
	}
	return out
}
