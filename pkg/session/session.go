// Package session drives the frame-to-prediction pipeline: wheel location,
// ball location, angular tracking and landing simulation, one frame at a time.
package session

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/go-roulette/internal/log"
	"github.com/teslashibe/go-roulette/pkg/physics"
	"github.com/teslashibe/go-roulette/pkg/tracking"
	"github.com/teslashibe/go-roulette/pkg/vision"
)

// WheelLocator finds the wheel rim in a frame.
type WheelLocator interface {
	Locate(frame vision.Frame) (vision.WheelGeometry, bool, error)
}

// BallLocator finds the ball inside a located wheel.
type BallLocator interface {
	Locate(frame vision.Frame, wheel vision.WheelGeometry, prior vision.MotionPrior) (vision.BallObservation, error)
}

// Simulator predicts the resting pocket from a kinematic state.
type Simulator interface {
	Simulate(in physics.Input) (physics.Prediction, bool)
}

// Cycle is everything one Process call produced. It is a value; the pointer
// fields hold copies owned by the receiver.
type Cycle struct {
	SessionID  string                 `json:"session_id"`
	FrameIndex uint64                 `json:"frame_index"`
	Timestamp  time.Time              `json:"timestamp"`
	State      State                  `json:"state"`
	Wheel      *vision.WheelGeometry  `json:"wheel,omitempty"`
	Redetected bool                   `json:"redetected"`
	Ball       vision.BallObservation `json:"ball"`
	Sample     *tracking.Sample       `json:"sample,omitempty"`
	Prediction *physics.Prediction    `json:"prediction,omitempty"`
}

// Status is a point-in-time view of a session for control surfaces.
type Status struct {
	ID        string                `json:"id"`
	State     State                 `json:"state"`
	Wheel     *vision.WheelGeometry `json:"wheel,omitempty"`
	Samples   int                   `json:"samples"`
	Counters  Counters              `json:"counters"`
	StartedAt time.Time             `json:"started_at"`
}

// Option customizes a session at Start.
type Option func(*Session)

// WithWheelLocator replaces the gocv wheel locator.
func WithWheelLocator(l WheelLocator) Option {
	return func(s *Session) { s.wheelLocator = l }
}

// WithBallLocator replaces the gocv ball locator.
func WithBallLocator(l BallLocator) Option {
	return func(s *Session) { s.ballLocator = l }
}

// WithSimulator replaces the physics simulator.
func WithSimulator(sim Simulator) Option {
	return func(s *Session) { s.simulator = sim }
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// Session owns the per-session pipeline state. Process is serialized by an
// internal mutex so the control surface can be read from other goroutines.
type Session struct {
	id     string
	config Config
	logger *slog.Logger

	wheelLocator WheelLocator
	ballLocator  BallLocator
	simulator    Simulator
	tracker      *tracking.Tracker

	mu              sync.Mutex
	state           State
	wheel           vision.WheelGeometry
	hasWheel        bool
	sinceDetect     int
	consecutiveMiss int
	stats           Stats
	counters        Counters
	startedAt       time.Time
}

// Start validates cfg and creates a session in the Idle state.
func Start(cfg Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Session{
		id:        uuid.New().String(),
		config:    cfg,
		state:     Idle,
		stats:     newStats(),
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Component("session")
	}
	s.logger = s.logger.With("session", s.id)

	if s.wheelLocator == nil {
		s.wheelLocator = vision.NewWheelLocator(cfg.WheelParams(), s.logger.With("component", "wheel"))
	}
	if s.ballLocator == nil {
		s.ballLocator = vision.NewBallLocator(cfg.BallParams(), s.logger.With("component", "ball"))
	}
	if s.simulator == nil {
		sim, err := physics.NewSimulator(cfg.PhysicsParams())
		if err != nil {
			return nil, &ConfigError{Field: "physics", Reason: err.Error()}
		}
		s.simulator = sim
	}

	tracker, err := tracking.New(cfg.TrackingConfig(), s.logger.With("component", "tracking"))
	if err != nil {
		return nil, &ConfigError{Field: "tracking", Reason: err.Error()}
	}
	s.tracker = tracker

	s.logger.Info("session started",
		"redetect_interval", cfg.WheelRedetectInterval,
		"history_capacity", cfg.HistoryCapacity,
		"smoothing_window", cfg.AngularSmoothingWindow,
		"target_fps", cfg.TargetFPS)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Config returns the session configuration.
func (s *Session) Config() Config {
	return s.config
}

// State returns the current pipeline state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Wheel returns the cached wheel geometry.
func (s *Session) Wheel() (vision.WheelGeometry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wheel, s.hasWheel
}

// Process runs one pipeline cycle on frame. Missing wheel, ball or velocity
// are reported through the cycle, not as errors. An invalid frame fails this
// cycle only; the session keeps its state for the next frame.
func (s *Session) Process(frame vision.Frame) (Cycle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Stopped {
		return Cycle{}, ErrSessionClosed
	}

	cycle := Cycle{
		SessionID:  s.id,
		FrameIndex: frame.Index,
		Timestamp:  frame.Timestamp,
		Ball:       vision.NoBall(frame),
	}

	if err := frame.Validate(); err != nil {
		return s.fail(cycle, "invalid frame", err)
	}
	s.counters.FramesProcessed++

	if s.needsDetection() {
		redetected, err := s.detectWheel(frame)
		if err != nil {
			return s.fail(cycle, "wheel detection failed", err)
		}
		cycle.Redetected = redetected
	} else {
		s.sinceDetect++
	}

	if !s.hasWheel {
		s.state = Idle
		cycle.State = s.state
		return cycle, nil
	}
	wheel := s.wheel
	cycle.Wheel = &wheel

	obs, err := s.ballLocator.Locate(frame, s.wheel, s.tracker.Prior())
	if err != nil {
		return s.fail(cycle, "ball detection failed", err)
	}
	cycle.Ball = obs

	if !obs.Found() {
		s.consecutiveMiss++
		s.state = Tracking
		cycle.State = s.state
		return cycle, nil
	}
	s.consecutiveMiss = 0
	s.counters.BallDetections++

	sample, ok, err := s.tracker.Observe(obs, s.wheel)
	if err != nil {
		return s.fail(cycle, "tracking failed", err)
	}
	s.state = Tracking
	if ok {
		cycle.Sample = &sample
		if pred, ok := s.predict(); ok {
			s.stats.record(pred, s.config.HighConfidenceThreshold)
			cycle.Prediction = &pred
			s.state = Predicting
		}
	}

	cycle.State = s.state
	return cycle, nil
}

// needsDetection applies the wheel caching policy.
func (s *Session) needsDetection() bool {
	if !s.hasWheel {
		return true
	}
	if s.sinceDetect+1 >= s.config.WheelRedetectInterval {
		return true
	}
	return s.config.MissRedetectThreshold > 0 && s.consecutiveMiss >= s.config.MissRedetectThreshold
}

// detectWheel runs the full wheel locator. A failed re-detection keeps the
// cached geometry. A geometry that moved resets the angular history.
func (s *Session) detectWheel(frame vision.Frame) (bool, error) {
	s.sinceDetect = 0
	if s.consecutiveMiss >= s.config.MissRedetectThreshold {
		s.consecutiveMiss = 0
	}
	s.counters.WheelDetections++

	wheel, ok, err := s.wheelLocator.Locate(frame)
	if err != nil {
		return false, err
	}
	if !ok || wheel.Confidence < s.config.MinWheelConfidence || wheel.Validate() != nil {
		if s.hasWheel {
			s.logger.Debug("wheel re-detection failed, keeping cached geometry", "frame", frame.Index)
		}
		return false, nil
	}

	if s.hasWheel && s.moved(wheel) {
		s.logger.Info("wheel moved, resetting history",
			"frame", frame.Index,
			"from_x", s.wheel.Center.X, "from_y", s.wheel.Center.Y,
			"to_x", wheel.Center.X, "to_y", wheel.Center.Y)
		s.tracker.Reset()
		s.counters.HistoryResets++
	}
	if !s.hasWheel {
		s.logger.Info("wheel located",
			"frame", frame.Index,
			"x", wheel.Center.X, "y", wheel.Center.Y,
			"radius", wheel.Radius, "confidence", wheel.Confidence)
	}

	s.wheel = wheel
	s.hasWheel = true
	return true, nil
}

func (s *Session) moved(next vision.WheelGeometry) bool {
	tol := s.config.GeometryResetTolerance
	return next.Center.Distance(s.wheel.Center) > tol || math.Abs(next.Radius-s.wheel.Radius) > tol
}

func (s *Session) predict() (physics.Prediction, bool) {
	est, ok := s.tracker.Estimate()
	if !ok {
		return physics.Prediction{}, false
	}
	return s.simulator.Simulate(physics.Input{
		Angle:               est.Angle,
		Velocity:            est.Velocity,
		HasVelocity:         true,
		Radius:              s.wheel.Radius,
		DetectionConfidence: est.Confidence,
		VelocityVariance:    est.Variance,
		Timestamp:           est.Timestamp,
	})
}

func (s *Session) fail(cycle Cycle, msg string, err error) (Cycle, error) {
	s.counters.Errors++
	s.logger.Warn(msg, "frame", cycle.FrameIndex, "error", err)
	cycle.State = s.state
	return cycle, err
}

// CurrentStats returns a copy of the prediction statistics.
func (s *Session) CurrentStats() (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Stopped {
		return Stats{}, ErrSessionClosed
	}
	return s.stats.Clone(), nil
}

// Status returns a snapshot for dashboards. It works after Stop.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		ID:        s.id,
		State:     s.state,
		Samples:   s.tracker.Len(),
		Counters:  s.counters,
		StartedAt: s.startedAt,
	}
	if s.hasWheel {
		w := s.wheel
		st.Wheel = &w
	}
	return st
}

// Stop moves the session to Stopped and releases its per-session state.
// Calling Stop again is a no-op.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Stopped {
		return
	}

	s.logger.Info("session stopped",
		"frames", s.counters.FramesProcessed,
		"detection_rate", s.counters.DetectionRate(),
		"predictions", s.stats.Total,
		"avg_confidence", s.stats.AverageConfidence())

	s.state = Stopped
	s.tracker.Reset()
	s.hasWheel = false
	s.wheel = vision.WheelGeometry{}
	s.stats = newStats()
}
