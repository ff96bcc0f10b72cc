package physics

import (
	"fmt"
	"time"
)

// Params holds the physical model and scoring constants.
type Params struct {
	// Ball dynamics
	FrictionCoefficient float64 // rolling friction between ball and track
	AirResistance       float64 // drag coefficient, deceleration grows with ω²
	BallMass            float64 // kg
	Gravity             float64 // m/s²
	PixelsPerMeter      float64 // converts the wheel radius from pixels to meters

	// Integration
	StepDuration     time.Duration
	StoppingVelocity float64 // rad/s, simulation ends below this speed
	MaxSteps         int     // hard cap on integration steps

	// Wheel rotation, both zero for a static camera-aligned wheel
	WheelAngularVelocity float64 // rad/s at the start of the simulation
	WheelDeceleration    float64 // rad/s², applied until the wheel stops
	ZeroOffset           float64 // bearing where slot 0 begins (rad)

	// Confidence scoring
	VarianceScale    float64 // velocity variance at which stability halves
	MinExpectedSteps int     // shorter runs are implausible
	MaxExpectedSteps int     // longer runs are implausible
}

// DefaultParams returns the reference model: a 5g ball on a wheel filmed at
// roughly 300 px per meter, integrated at 100Hz.
func DefaultParams() Params {
	return Params{
		FrictionCoefficient: 0.02,
		AirResistance:       0.001,
		BallMass:            0.005,
		Gravity:             9.81,
		PixelsPerMeter:      300,

		StepDuration:     10 * time.Millisecond,
		StoppingVelocity: 0.1,
		MaxSteps:         10000, // 100s of simulated time

		WheelDeceleration: 0.01,

		VarianceScale:    1.0,
		MinExpectedSteps: 50,   // 0.5s
		MaxExpectedSteps: 3000, // 30s
	}
}

// Validate checks for parameters the integrator cannot run with.
func (p Params) Validate() error {
	switch {
	case p.StepDuration <= 0:
		return fmt.Errorf("%w: step duration must be positive, got %s", ErrInvalidParams, p.StepDuration)
	case p.StoppingVelocity <= 0:
		return fmt.Errorf("%w: stopping velocity must be positive", ErrInvalidParams)
	case p.FrictionCoefficient < 0:
		return fmt.Errorf("%w: negative friction coefficient", ErrInvalidParams)
	case p.FrictionCoefficient == 0 && p.AirResistance <= 0:
		return fmt.Errorf("%w: friction and air resistance both zero, the ball never stops", ErrInvalidParams)
	case p.AirResistance < 0:
		return fmt.Errorf("%w: negative air resistance", ErrInvalidParams)
	case p.BallMass <= 0:
		return fmt.Errorf("%w: ball mass must be positive", ErrInvalidParams)
	case p.Gravity <= 0:
		return fmt.Errorf("%w: gravity must be positive", ErrInvalidParams)
	case p.PixelsPerMeter <= 0:
		return fmt.Errorf("%w: pixels per meter must be positive", ErrInvalidParams)
	case p.MaxSteps <= 0:
		return fmt.Errorf("%w: max steps must be positive", ErrInvalidParams)
	case p.WheelDeceleration < 0:
		return fmt.Errorf("%w: negative wheel deceleration", ErrInvalidParams)
	case p.VarianceScale <= 0:
		return fmt.Errorf("%w: variance scale must be positive", ErrInvalidParams)
	case p.MinExpectedSteps < 0 || p.MaxExpectedSteps < p.MinExpectedSteps:
		return fmt.Errorf("%w: expected step range [%d, %d]", ErrInvalidParams, p.MinExpectedSteps, p.MaxExpectedSteps)
	}
	return nil
}
