package session

import (
	"time"

	"github.com/teslashibe/go-roulette/pkg/physics"
	"github.com/teslashibe/go-roulette/pkg/tracking"
	"github.com/teslashibe/go-roulette/pkg/vision"
)

// Config holds every tunable of a prediction session. Field tags are the
// keys used in config files and ROULETTE_ environment variables.
type Config struct {
	// Wheel detection
	WheelRedetectInterval  int     `mapstructure:"wheel_redetect_interval"`  // frames between full re-detections
	MinWheelConfidence     float64 `mapstructure:"min_wheel_confidence"`     // 0-1
	MissRedetectThreshold  int     `mapstructure:"miss_redetect_threshold"`  // consecutive ball misses forcing a re-detect (0 = never)
	GeometryResetTolerance float64 `mapstructure:"geometry_reset_tolerance"` // px the center may move before history is reset

	// Ball detection
	MinBallConfidence float64 `mapstructure:"min_ball_confidence"`

	// Tracking
	HistoryCapacity        int           `mapstructure:"history_capacity"`
	AngularSmoothingWindow int           `mapstructure:"angular_smoothing_window"`
	MaxSampleGap           time.Duration `mapstructure:"max_sample_gap"`

	// Simulation
	FrictionCoefficient       float64       `mapstructure:"friction_coefficient"`
	AirResistance             float64       `mapstructure:"air_resistance"`
	StoppingVelocityThreshold float64       `mapstructure:"stopping_velocity_threshold"` // rad/s
	StepDuration              time.Duration `mapstructure:"step_duration"`
	PixelsPerMeter            float64       `mapstructure:"pixels_per_meter"`
	WheelAngularVelocity      float64       `mapstructure:"wheel_angular_velocity"` // rad/s
	ZeroOffset                float64       `mapstructure:"zero_offset"`            // rad

	// Driving loop and stats
	TargetFPS               float64 `mapstructure:"target_fps"`
	HighConfidenceThreshold float64 `mapstructure:"high_confidence_threshold"`
}

// DefaultConfig returns the recommended session configuration.
func DefaultConfig() Config {
	tc := tracking.DefaultConfig()
	pp := physics.DefaultParams()
	return Config{
		WheelRedetectInterval:  30, // once a second at 30fps
		MinWheelConfidence:     0.3,
		MissRedetectThreshold:  15,
		GeometryResetTolerance: 10,

		MinBallConfidence: 0.3,

		HistoryCapacity:        tc.Capacity,
		AngularSmoothingWindow: tc.SmoothingWindow,
		MaxSampleGap:           tc.MaxSampleGap,

		FrictionCoefficient:       pp.FrictionCoefficient,
		AirResistance:             pp.AirResistance,
		StoppingVelocityThreshold: pp.StoppingVelocity,
		StepDuration:              pp.StepDuration,
		PixelsPerMeter:            pp.PixelsPerMeter,
		WheelAngularVelocity:      pp.WheelAngularVelocity,
		ZeroOffset:                pp.ZeroOffset,

		TargetFPS:               30,
		HighConfidenceThreshold: 0.7,
	}
}

// Validate returns a *ConfigError for the first rejected field.
func (c Config) Validate() error {
	switch {
	case c.WheelRedetectInterval < 1:
		return configErr("wheel_redetect_interval", "must be at least 1, got %d", c.WheelRedetectInterval)
	case c.MinWheelConfidence < 0 || c.MinWheelConfidence > 1:
		return configErr("min_wheel_confidence", "must be within [0, 1], got %v", c.MinWheelConfidence)
	case c.MissRedetectThreshold < 0:
		return configErr("miss_redetect_threshold", "must not be negative, got %d", c.MissRedetectThreshold)
	case c.GeometryResetTolerance <= 0:
		return configErr("geometry_reset_tolerance", "must be positive, got %v", c.GeometryResetTolerance)
	case c.MinBallConfidence < 0 || c.MinBallConfidence > 1:
		return configErr("min_ball_confidence", "must be within [0, 1], got %v", c.MinBallConfidence)
	case c.HistoryCapacity < 2:
		return configErr("history_capacity", "must be at least 2, got %d", c.HistoryCapacity)
	case c.AngularSmoothingWindow < 1 || c.AngularSmoothingWindow >= c.HistoryCapacity:
		return configErr("angular_smoothing_window", "must be within [1, history_capacity), got %d", c.AngularSmoothingWindow)
	case c.MaxSampleGap < 0:
		return configErr("max_sample_gap", "must not be negative, got %s", c.MaxSampleGap)
	case c.FrictionCoefficient < 0:
		return configErr("friction_coefficient", "must not be negative, got %v", c.FrictionCoefficient)
	case c.AirResistance < 0:
		return configErr("air_resistance", "must not be negative, got %v", c.AirResistance)
	case c.FrictionCoefficient == 0 && c.AirResistance == 0:
		return configErr("friction_coefficient", "friction and air resistance cannot both be zero")
	case c.StoppingVelocityThreshold <= 0:
		return configErr("stopping_velocity_threshold", "must be positive, got %v", c.StoppingVelocityThreshold)
	case c.StepDuration <= 0:
		return configErr("step_duration", "must be positive, got %s", c.StepDuration)
	case c.PixelsPerMeter <= 0:
		return configErr("pixels_per_meter", "must be positive, got %v", c.PixelsPerMeter)
	case c.TargetFPS <= 0:
		return configErr("target_fps", "must be positive, got %v", c.TargetFPS)
	case c.HighConfidenceThreshold < 0 || c.HighConfidenceThreshold > 1:
		return configErr("high_confidence_threshold", "must be within [0, 1], got %v", c.HighConfidenceThreshold)
	}
	return nil
}

// FrameBudget is the time available to one cycle at TargetFPS.
func (c Config) FrameBudget() time.Duration {
	return time.Duration(float64(time.Second) / c.TargetFPS)
}

// TrackingConfig derives the tracker configuration.
func (c Config) TrackingConfig() tracking.Config {
	return tracking.Config{
		Capacity:        c.HistoryCapacity,
		SmoothingWindow: c.AngularSmoothingWindow,
		MaxSampleGap:    c.MaxSampleGap,
	}
}

// WithTracking returns a copy of c using the history and smoothing settings
// of tc, typically a tracking.Preset.
func (c Config) WithTracking(tc tracking.Config) Config {
	c.HistoryCapacity = tc.Capacity
	c.AngularSmoothingWindow = tc.SmoothingWindow
	c.MaxSampleGap = tc.MaxSampleGap
	return c
}

// PhysicsParams derives the simulator parameters.
func (c Config) PhysicsParams() physics.Params {
	p := physics.DefaultParams()
	p.FrictionCoefficient = c.FrictionCoefficient
	p.AirResistance = c.AirResistance
	p.StoppingVelocity = c.StoppingVelocityThreshold
	p.StepDuration = c.StepDuration
	p.PixelsPerMeter = c.PixelsPerMeter
	p.WheelAngularVelocity = c.WheelAngularVelocity
	p.ZeroOffset = c.ZeroOffset
	return p
}

// WheelParams derives the wheel locator parameters.
func (c Config) WheelParams() vision.WheelParams {
	return vision.DefaultWheelParams().WithMinConfidence(c.MinWheelConfidence)
}

// BallParams derives the ball locator parameters.
func (c Config) BallParams() vision.BallParams {
	return vision.DefaultBallParams().WithMinConfidence(c.MinBallConfidence)
}
