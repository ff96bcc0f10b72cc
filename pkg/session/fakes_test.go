package session

import (
	"image"
	"sync"
	"time"

	"github.com/teslashibe/go-roulette/pkg/geom"
	"github.com/teslashibe/go-roulette/pkg/vision"
)

var (
	epoch      = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	frameStep  = 33 * time.Millisecond
	referenceW = vision.WheelGeometry{Center: geom.Pt(100, 100), Radius: 80, Confidence: 0.9}
)

func frameAt(i uint64) vision.Frame {
	return vision.NewFrame(image.NewRGBA(image.Rect(0, 0, 8, 8)), i, epoch.Add(time.Duration(i)*frameStep))
}

// fakeWheel returns a fixed geometry, optionally swapped mid-test.
type fakeWheel struct {
	mu    sync.Mutex
	geom  vision.WheelGeometry
	found bool
	err   error
	calls int
}

func (f *fakeWheel) Locate(vision.Frame) (vision.WheelGeometry, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.geom, f.found, f.err
}

func (f *fakeWheel) set(g vision.WheelGeometry, found bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.geom, f.found = g, found
}

func (f *fakeWheel) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeBall puts the ball on a 60px orbit at angle(frame), or reports none
// when visible returns false.
type fakeBall struct {
	angle   func(i uint64) float64
	visible func(i uint64) bool
	err     error
}

func (f *fakeBall) Locate(frame vision.Frame, wheel vision.WheelGeometry, _ vision.MotionPrior) (vision.BallObservation, error) {
	if f.err != nil {
		return vision.NoBall(frame), f.err
	}
	if f.visible != nil && !f.visible(frame.Index) {
		return vision.NoBall(frame), nil
	}
	p := geom.Polar(wheel.Center, f.angle(frame.Index), 60)
	return vision.BallObservation{
		Position:   &p,
		Confidence: 0.8,
		FrameIndex: frame.Index,
		Timestamp:  frame.Timestamp,
	}, nil
}

// spinning returns a ball angle function starting at start rad and moving
// at omega rad/s.
func spinning(start, omega float64) func(uint64) float64 {
	return func(i uint64) float64 {
		return geom.NormalizeAngle(start + omega*float64(i)*frameStep.Seconds())
	}
}

func never(uint64) bool { return false }
