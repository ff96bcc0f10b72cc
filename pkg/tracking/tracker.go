// Package tracking turns ball positions into angular samples around the wheel
// center and estimates the ball's angular velocity over a short window.
package tracking

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/go-roulette/internal/log"
	"github.com/teslashibe/go-roulette/pkg/geom"
	"github.com/teslashibe/go-roulette/pkg/vision"
	"gonum.org/v1/gonum/stat"
)

// Estimate is the smoothed kinematic state handed to the simulator.
type Estimate struct {
	Angle      float64   // bearing of the newest sample
	Velocity   float64   // mean of the window velocities (rad/s)
	Variance   float64   // sample variance of the same velocities
	Confidence float64   // mean detection confidence over the window
	Samples    int       // velocities that went into the mean
	Timestamp  time.Time // time of the newest sample
}

// Tracker accumulates angular samples for one wheel. It is not safe for
// concurrent use; the owning session serializes access.
type Tracker struct {
	config  Config
	history *History
	logger  *slog.Logger
}

// New creates a tracker. A nil logger uses the global one.
func New(config Config, logger *slog.Logger) (*Tracker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Component("tracking")
	}
	return &Tracker{
		config:  config,
		history: NewHistory(config.Capacity),
		logger:  logger,
	}, nil
}

// Config returns the tracker configuration.
func (t *Tracker) Config() Config {
	return t.config
}

// Observe converts a ball observation into a sample and appends it.
// An observation without a position leaves the history untouched and
// returns false. Observations not newer than the latest sample are rejected.
func (t *Tracker) Observe(obs vision.BallObservation, wheel vision.WheelGeometry) (Sample, bool, error) {
	if !obs.Found() {
		return Sample{}, false, nil
	}
	if err := wheel.Validate(); err != nil {
		return Sample{}, false, err
	}

	s := Sample{
		Angle:      geom.Bearing(*obs.Position, wheel.Center),
		Confidence: obs.Confidence,
		FrameIndex: obs.FrameIndex,
		Timestamp:  obs.Timestamp,
	}

	if prev, ok := t.history.Latest(); ok {
		dt := s.Timestamp.Sub(prev.Timestamp)
		if dt <= 0 {
			return Sample{}, false, fmt.Errorf("%w: frame %d at %s, latest %s",
				ErrOutOfOrder, obs.FrameIndex, s.Timestamp.Format(time.RFC3339Nano),
				prev.Timestamp.Format(time.RFC3339Nano))
		}
		if t.config.MaxSampleGap == 0 || dt <= t.config.MaxSampleGap {
			s.Velocity = geom.AngleDiff(prev.Angle, s.Angle) / dt.Seconds()
			s.HasVelocity = true
		} else {
			t.logger.Debug("sample gap too large, velocity reset",
				"gap", dt, "frame", obs.FrameIndex)
		}
	}

	t.history.Push(s)
	return s, true, nil
}

// window returns the velocities and confidences of the newest contiguous run
// of samples with defined velocity, at most SmoothingWindow long.
func (t *Tracker) window() (velocities, confidences []float64) {
	for n := 1; n <= t.history.Len() && len(velocities) < t.config.SmoothingWindow; n++ {
		s, _ := t.history.Previous(n)
		if !s.HasVelocity {
			break
		}
		velocities = append(velocities, s.Velocity)
		confidences = append(confidences, s.Confidence)
	}
	return velocities, confidences
}

// SmoothedVelocity returns the mean of the last SmoothingWindow velocities.
// It is undefined until the newest sample carries a velocity.
func (t *Tracker) SmoothedVelocity() (float64, bool) {
	v, _ := t.window()
	if len(v) == 0 {
		return 0, false
	}
	return stat.Mean(v, nil), true
}

// VelocityVariance returns the sample variance of the smoothing window,
// or 0 when fewer than two velocities are available.
func (t *Tracker) VelocityVariance() float64 {
	v, _ := t.window()
	if len(v) < 2 {
		return 0
	}
	return stat.Variance(v, nil)
}

// Estimate returns the smoothed state of the newest run of samples.
func (t *Tracker) Estimate() (Estimate, bool) {
	latest, ok := t.history.Latest()
	if !ok {
		return Estimate{}, false
	}
	v, c := t.window()
	if len(v) == 0 {
		return Estimate{}, false
	}

	e := Estimate{
		Angle:      latest.Angle,
		Velocity:   stat.Mean(v, nil),
		Confidence: stat.Mean(c, nil),
		Samples:    len(v),
		Timestamp:  latest.Timestamp,
	}
	if len(v) >= 2 {
		e.Variance = stat.Variance(v, nil)
	}
	return e, true
}

// Prior summarizes the newest sample for the ball locator's motion check.
func (t *Tracker) Prior() vision.MotionPrior {
	latest, ok := t.history.Latest()
	if !ok {
		return vision.MotionPrior{}
	}
	return vision.MotionPrior{
		Valid:       true,
		Angle:       latest.Angle,
		Velocity:    latest.Velocity,
		HasVelocity: latest.HasVelocity,
		Timestamp:   latest.Timestamp,
	}
}

// Latest returns the newest sample.
func (t *Tracker) Latest() (Sample, bool) {
	return t.history.Latest()
}

// Last returns up to n of the newest samples, oldest first.
func (t *Tracker) Last(n int) []Sample {
	return t.history.Last(n)
}

// Len returns the number of samples held.
func (t *Tracker) Len() int {
	return t.history.Len()
}

// Snapshot returns a copy of the history, oldest first.
func (t *Tracker) Snapshot() []Sample {
	return t.history.Snapshot()
}

// Reset drops the history, e.g. after the wheel moved in the frame.
func (t *Tracker) Reset() {
	t.history.Reset()
}
