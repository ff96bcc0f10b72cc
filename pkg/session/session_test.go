package session

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/go-roulette/internal/log"
	"github.com/teslashibe/go-roulette/pkg/geom"
	"github.com/teslashibe/go-roulette/pkg/vision"
)

func start(t *testing.T, cfg Config, wheel *fakeWheel, ball *fakeBall) *Session {
	t.Helper()
	s, err := Start(cfg,
		WithWheelLocator(wheel),
		WithBallLocator(ball),
		WithLogger(log.Discard()))
	require.NoError(t, err)
	return s
}

func TestStart_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		field  string
		mutate func(*Config)
	}{
		{"zero step", "step_duration", func(c *Config) { c.StepDuration = 0 }},
		{"negative step", "step_duration", func(c *Config) { c.StepDuration = -time.Millisecond }},
		{"zero capacity", "history_capacity", func(c *Config) { c.HistoryCapacity = 0 }},
		{"zero interval", "wheel_redetect_interval", func(c *Config) { c.WheelRedetectInterval = 0 }},
		{"window too big", "angular_smoothing_window", func(c *Config) { c.AngularSmoothingWindow = c.HistoryCapacity }},
		{"confidence above one", "min_ball_confidence", func(c *Config) { c.MinBallConfidence = 1.5 }},
		{"no fps", "target_fps", func(c *Config) { c.TargetFPS = 0 }},
		{"zero stop", "stopping_velocity_threshold", func(c *Config) { c.StoppingVelocityThreshold = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			s, err := Start(cfg, WithLogger(log.Discard()))
			assert.Nil(t, s)
			require.ErrorIs(t, err, ErrInvalidConfig)

			var cerr *ConfigError
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}

func TestSession_IdleUntilWheelFound(t *testing.T) {
	wheel := &fakeWheel{}
	s := start(t, DefaultConfig(), wheel, &fakeBall{angle: spinning(0, 3)})

	for i := uint64(0); i < 3; i++ {
		c, err := s.Process(frameAt(i))
		require.NoError(t, err)
		assert.Equal(t, Idle, c.State)
		assert.Nil(t, c.Wheel)
	}
	assert.Equal(t, 3, wheel.Calls(), "idle sessions detect on every frame")

	wheel.set(referenceW, true)
	c, err := s.Process(frameAt(3))
	require.NoError(t, err)
	assert.Equal(t, Tracking, c.State)
	assert.True(t, c.Redetected)
	require.NotNil(t, c.Wheel)
	assert.Equal(t, referenceW, *c.Wheel)
}

func TestSession_LowConfidenceWheelIgnored(t *testing.T) {
	weak := referenceW
	weak.Confidence = 0.1
	s := start(t, DefaultConfig(), &fakeWheel{geom: weak, found: true}, &fakeBall{angle: spinning(0, 3)})

	c, err := s.Process(frameAt(0))
	require.NoError(t, err)
	assert.Equal(t, Idle, c.State)
}

func TestSession_NoBallKeepsTrackingAndStats(t *testing.T) {
	s := start(t, DefaultConfig(), &fakeWheel{geom: referenceW, found: true}, &fakeBall{angle: spinning(0, 3), visible: never})

	before, err := s.CurrentStats()
	require.NoError(t, err)

	for i := uint64(0); i < 5; i++ {
		c, err := s.Process(frameAt(i))
		require.NoError(t, err)
		assert.Equal(t, Tracking, c.State)
		assert.False(t, c.Ball.Found())
		assert.Equal(t, 0.0, c.Ball.Confidence)
		assert.Nil(t, c.Prediction)
	}

	after, err := s.CurrentStats()
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, 0, s.Status().Samples)
}

func TestSession_PredictsOnceVelocityKnown(t *testing.T) {
	s := start(t, DefaultConfig(), &fakeWheel{geom: referenceW, found: true}, &fakeBall{angle: spinning(geom.Radians(60), -3)})

	c, err := s.Process(frameAt(0))
	require.NoError(t, err)
	assert.Equal(t, Tracking, c.State)
	require.NotNil(t, c.Sample)
	assert.False(t, c.Sample.HasVelocity)
	assert.Nil(t, c.Prediction)

	c, err = s.Process(frameAt(1))
	require.NoError(t, err)
	assert.Equal(t, Predicting, c.State)
	require.NotNil(t, c.Prediction)
	assert.InDelta(t, -3.0, c.Sample.Velocity, 1e-6)
	assert.Greater(t, c.Prediction.Confidence, 0.0)
	assert.Equal(t, frameAt(1).Timestamp, c.Prediction.ProducedAt)

	stats, err := s.CurrentStats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Counts[c.Prediction.Pocket])
	require.Len(t, stats.Recent, 1)
	assert.Equal(t, *c.Prediction, stats.Recent[0])
}

func TestSession_PredictionsAreDeterministic(t *testing.T) {
	run := func() []int {
		s := start(t, DefaultConfig(), &fakeWheel{geom: referenceW, found: true}, &fakeBall{angle: spinning(1, -4)})
		var pockets []int
		for i := uint64(0); i < 10; i++ {
			c, err := s.Process(frameAt(i))
			require.NoError(t, err)
			if c.Prediction != nil {
				pockets = append(pockets, c.Prediction.Pocket)
			}
		}
		return pockets
	}

	first := run()
	assert.Len(t, first, 9)
	assert.Equal(t, first, run())
}

func TestSession_RedetectCadence(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WheelRedetectInterval = 5
	wheel := &fakeWheel{geom: referenceW, found: true}
	s := start(t, cfg, wheel, &fakeBall{angle: spinning(0, 3)})

	var redetected []uint64
	for i := uint64(0); i < 12; i++ {
		c, err := s.Process(frameAt(i))
		require.NoError(t, err)
		if c.Redetected {
			redetected = append(redetected, i)
		}
	}
	assert.Equal(t, 3, wheel.Calls())
	assert.Equal(t, []uint64{0, 5, 10}, redetected)
}

func TestSession_MissesTriggerRedetect(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WheelRedetectInterval = 1000
	cfg.MissRedetectThreshold = 3
	wheel := &fakeWheel{geom: referenceW, found: true}
	s := start(t, cfg, wheel, &fakeBall{angle: spinning(0, 3), visible: never})

	for i := uint64(0); i < 7; i++ {
		_, err := s.Process(frameAt(i))
		require.NoError(t, err)
	}
	assert.Equal(t, 3, wheel.Calls(), "frames 0, 3 and 6")
}

func TestSession_FailedRedetectKeepsGeometry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WheelRedetectInterval = 2
	wheel := &fakeWheel{geom: referenceW, found: true}
	s := start(t, cfg, wheel, &fakeBall{angle: spinning(0, 3)})

	_, err := s.Process(frameAt(0))
	require.NoError(t, err)

	wheel.set(vision.WheelGeometry{}, false)
	for i := uint64(1); i < 5; i++ {
		c, err := s.Process(frameAt(i))
		require.NoError(t, err)
		assert.NotEqual(t, Idle, c.State)
	}

	got, ok := s.Wheel()
	assert.True(t, ok)
	assert.Equal(t, referenceW, got)
	assert.Equal(t, 5, s.Status().Samples)
}

func TestSession_MovedWheelResetsHistory(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WheelRedetectInterval = 3
	wheel := &fakeWheel{geom: referenceW, found: true}
	s := start(t, cfg, wheel, &fakeBall{angle: spinning(0, 3)})

	for i := uint64(0); i < 3; i++ {
		_, err := s.Process(frameAt(i))
		require.NoError(t, err)
	}
	assert.Equal(t, 3, s.Status().Samples)

	shifted := referenceW
	shifted.Center = geom.Pt(150, 100)
	wheel.set(shifted, true)

	c, err := s.Process(frameAt(3))
	require.NoError(t, err)
	assert.True(t, c.Redetected)
	assert.Equal(t, 1, s.Status().Samples)
	assert.Equal(t, uint64(1), s.Status().Counters.HistoryResets)
	assert.Nil(t, c.Prediction, "velocity is unknown right after a reset")
}

func TestSession_SmallWheelJitterKeepsHistory(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WheelRedetectInterval = 2
	wheel := &fakeWheel{geom: referenceW, found: true}
	s := start(t, cfg, wheel, &fakeBall{angle: spinning(0, 3)})

	_, _ = s.Process(frameAt(0))
	jitter := referenceW
	jitter.Center = geom.Pt(102, 99)
	wheel.set(jitter, true)
	_, _ = s.Process(frameAt(1))
	_, _ = s.Process(frameAt(2))

	assert.Equal(t, 3, s.Status().Samples)
	assert.Equal(t, uint64(0), s.Status().Counters.HistoryResets)
}

func TestSession_InvalidFrameFailsOnlyThatCycle(t *testing.T) {
	s := start(t, DefaultConfig(), &fakeWheel{geom: referenceW, found: true}, &fakeBall{angle: spinning(0, 3)})

	_, err := s.Process(frameAt(0))
	require.NoError(t, err)

	bad := vision.Frame{Index: 1, Timestamp: frameAt(1).Timestamp}
	c, err := s.Process(bad)
	assert.ErrorIs(t, err, vision.ErrInvalidFrame)
	assert.Equal(t, Tracking, c.State)

	c, err = s.Process(frameAt(2))
	require.NoError(t, err)
	assert.Equal(t, Predicting, c.State)
	assert.Equal(t, uint64(1), s.Status().Counters.Errors)
}

func TestSession_BallLocatorErrorIsolated(t *testing.T) {
	ball := &fakeBall{angle: spinning(0, 3), err: vision.ErrInvalidGeometry}
	s := start(t, DefaultConfig(), &fakeWheel{geom: referenceW, found: true}, ball)

	_, err := s.Process(frameAt(0))
	assert.ErrorIs(t, err, vision.ErrInvalidGeometry)

	ball.err = nil
	c, err := s.Process(frameAt(1))
	require.NoError(t, err)
	assert.True(t, c.Ball.Found())
}

func TestSession_AlternatingCyclesCapHistory(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HistoryCapacity = 6
	cfg.AngularSmoothingWindow = 3
	ball := &fakeBall{
		angle:   spinning(0, 2),
		visible: func(i uint64) bool { return i%2 == 0 },
	}
	s := start(t, cfg, &fakeWheel{geom: referenceW, found: true}, ball)

	for i := uint64(0); i < 20; i++ {
		_, err := s.Process(frameAt(i))
		require.NoError(t, err)
		assert.LessOrEqual(t, s.Status().Samples, cfg.HistoryCapacity)
	}
	assert.Equal(t, cfg.HistoryCapacity, s.Status().Samples)
	assert.Equal(t, uint64(20), s.Status().Counters.FramesProcessed)
	assert.Equal(t, uint64(10), s.Status().Counters.BallDetections)
	assert.InDelta(t, 0.5, s.Status().Counters.DetectionRate(), 1e-9)
}

func TestSession_Stop(t *testing.T) {
	s := start(t, DefaultConfig(), &fakeWheel{geom: referenceW, found: true}, &fakeBall{angle: spinning(0, 3)})
	_, err := s.Process(frameAt(0))
	require.NoError(t, err)

	s.Stop()
	s.Stop()

	assert.Equal(t, Stopped, s.State())
	_, err = s.Process(frameAt(1))
	assert.ErrorIs(t, err, ErrSessionClosed)
	_, err = s.CurrentStats()
	assert.ErrorIs(t, err, ErrSessionClosed)

	_, ok := s.Wheel()
	assert.False(t, ok)
	assert.Equal(t, 0, s.Status().Samples)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "predicting", Predicting.String())
	assert.Equal(t, "unknown", State(42).String())

	b, err := Stopped.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "stopped", string(b))

	var st State
	require.NoError(t, st.UnmarshalText([]byte("tracking")))
	assert.Equal(t, Tracking, st)
	assert.Error(t, st.UnmarshalText([]byte("spinning")))
}
