// Package physics forward-simulates the ball's angular motion to the pocket
// it comes to rest in.
package physics

import (
	"math"
	"time"

	"github.com/teslashibe/go-roulette/pkg/geom"
)

// Input is the initial condition for a simulation.
type Input struct {
	Angle               float64 // rad in [0, 2π)
	Velocity            float64 // rad/s, sign gives direction
	HasVelocity         bool
	Radius              float64 // wheel radius in pixels
	DetectionConfidence float64 // 0-1
	VelocityVariance    float64 // variance of the recent velocity estimates
	Timestamp           time.Time
}

// Prediction is the predicted resting pocket. It is a plain value.
type Prediction struct {
	Pocket          int           `json:"pocket"`
	PocketIndex     int           `json:"pocket_index"`
	Color           string        `json:"color"`
	Confidence      float64       `json:"confidence"`
	SimulatedSteps  int           `json:"simulated_steps"`
	Capped          bool          `json:"capped"` // hit MaxSteps before stopping
	TerminalAngle   float64       `json:"terminal_angle"`
	TravelTime      time.Duration `json:"travel_time"`
	InitialAngle    float64       `json:"initial_angle"`
	InitialVelocity float64       `json:"initial_velocity"`
	ProducedAt      time.Time     `json:"produced_at"` // timestamp of the input sample
}

// Simulator integrates the ball's deceleration. It holds no mutable state,
// so one instance can be shared.
type Simulator struct {
	params Params
}

// NewSimulator creates a simulator after validating params.
func NewSimulator(params Params) (*Simulator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Simulator{params: params}, nil
}

// Params returns the simulator parameters.
func (s *Simulator) Params() Params {
	return s.params
}

// Deceleration returns the magnitude of angular deceleration at speed omega
// on a wheel of radiusMeters.
func (s *Simulator) Deceleration(omega, radiusMeters float64) float64 {
	p := s.params
	return p.FrictionCoefficient*p.Gravity/radiusMeters + p.AirResistance/p.BallMass*omega*omega
}

// Simulate runs the ball forward until it stops. It returns false when the
// input has no usable velocity yet.
func (s *Simulator) Simulate(in Input) (Prediction, bool) {
	if !in.HasVelocity || math.IsNaN(in.Velocity) || math.IsInf(in.Velocity, 0) {
		return Prediction{}, false
	}
	if !(in.Radius > 0) {
		return Prediction{}, false
	}

	p := s.params
	dt := p.StepDuration.Seconds()
	radius := in.Radius / p.PixelsPerMeter

	angle := geom.NormalizeAngle(in.Angle)
	omega := in.Velocity
	steps := 0

	for math.Abs(omega) >= p.StoppingVelocity && steps < p.MaxSteps {
		dir := math.Copysign(1, omega)
		next := omega - dir*s.Deceleration(omega, radius)*dt
		if next*dir < 0 {
			next = 0
		}
		omega = next
		angle = geom.NormalizeAngle(angle + omega*dt)
		steps++
	}
	capped := math.Abs(omega) >= p.StoppingVelocity

	travel := time.Duration(steps) * p.StepDuration
	relative := geom.NormalizeAngle(angle - s.wheelRotation(travel.Seconds()) - p.ZeroOffset)
	idx := PocketIndex(relative)
	pocket := PocketAt(idx)

	return Prediction{
		Pocket:          pocket,
		PocketIndex:     idx,
		Color:           Color(pocket),
		Confidence:      s.confidence(in, steps, capped),
		SimulatedSteps:  steps,
		Capped:          capped,
		TerminalAngle:   angle,
		TravelTime:      travel,
		InitialAngle:    geom.NormalizeAngle(in.Angle),
		InitialVelocity: in.Velocity,
		ProducedAt:      in.Timestamp,
	}, true
}

// wheelRotation returns how far the wheel turned in t seconds while
// decelerating to a stop.
func (s *Simulator) wheelRotation(t float64) float64 {
	w0, a := s.params.WheelAngularVelocity, s.params.WheelDeceleration
	if w0 == 0 {
		return 0
	}
	if a == 0 {
		return w0 * t
	}
	stop := math.Abs(w0) / a
	if t > stop {
		t = stop
	}
	return w0*t - math.Copysign(a, w0)*t*t/2
}

func (s *Simulator) confidence(in Input, steps int, capped bool) float64 {
	p := s.params

	stability := 1 / (1 + math.Max(in.VelocityVariance, 0)/p.VarianceScale)

	plausibility := 1.0
	switch {
	case steps < p.MinExpectedSteps:
		plausibility = float64(steps) / float64(p.MinExpectedSteps)
	case steps > p.MaxExpectedSteps:
		plausibility = float64(p.MaxExpectedSteps) / float64(steps)
	}
	if capped {
		plausibility *= 0.5
	}

	c := in.DetectionConfidence * stability * plausibility
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	return math.Min(c, 1)
}
