// Package vision locates the roulette wheel and ball in video frames.
package vision

import (
	"fmt"
	"image"
	"time"

	"github.com/teslashibe/go-roulette/pkg/geom"
	"gocv.io/x/gocv"
)

// Frame is one immutable video frame. The pipeline never writes to Image.
type Frame struct {
	Image     image.Image
	Index     uint64
	Timestamp time.Time
}

// NewFrame wraps an image as a pipeline frame.
func NewFrame(img image.Image, index uint64, ts time.Time) Frame {
	return Frame{Image: img, Index: index, Timestamp: ts}
}

// Width returns the frame width in pixels.
func (f Frame) Width() int {
	if f.Image == nil {
		return 0
	}
	return f.Image.Bounds().Dx()
}

// Height returns the frame height in pixels.
func (f Frame) Height() int {
	if f.Image == nil {
		return 0
	}
	return f.Image.Bounds().Dy()
}

// Validate reports ErrInvalidFrame for a missing image or a zero dimension.
func (f Frame) Validate() error {
	if f.Image == nil {
		return fmt.Errorf("%w: no image", ErrInvalidFrame)
	}
	if f.Width() <= 0 || f.Height() <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidFrame, f.Width(), f.Height())
	}
	return nil
}

// Mat converts the frame to an 8-bit BGR gocv.Mat. The caller closes it.
func (f Frame) Mat() (gocv.Mat, error) {
	if err := f.Validate(); err != nil {
		return gocv.NewMat(), err
	}
	return ImageToMat(f.Image)
}

// ImageToMat converts a Go image.Image to a gocv.Mat in BGR format.
func ImageToMat(img image.Image) (gocv.Mat, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	buf := make([]byte, w*h*3)
	i := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			buf[i] = uint8(b >> 8)
			buf[i+1] = uint8(g >> 8)
			buf[i+2] = uint8(r >> 8)
			i += 3
		}
	}

	mat, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC3, buf)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("vision: convert image: %w", err)
	}
	return mat, nil
}

// WheelGeometry is the located wheel rim in pixel coordinates.
type WheelGeometry struct {
	Center       geom.Point `json:"center"`
	Radius       float64    `json:"radius"`
	Confidence   float64    `json:"confidence"`    // 0-1
	PassFraction float64    `json:"pass_fraction"` // fraction of Hough passes that agreed
	SurfaceMatch bool       `json:"surface_match"` // playing-surface colour heuristic fired
}

// Validate reports ErrInvalidGeometry for a non-positive radius.
func (w WheelGeometry) Validate() error {
	if !(w.Radius > 0) {
		return fmt.Errorf("%w: radius %v", ErrInvalidGeometry, w.Radius)
	}
	return nil
}

// BallObservation is the result of one ball search. A nil Position means the
// ball was not found in this frame, which is routine.
type BallObservation struct {
	Position   *geom.Point `json:"position,omitempty"`
	Confidence float64     `json:"confidence"`
	FrameIndex uint64      `json:"frame_index"`
	Timestamp  time.Time   `json:"timestamp"`
	Candidates int         `json:"candidates"` // regions that passed the colour vote
}

// Found reports whether the observation carries a position.
func (o BallObservation) Found() bool {
	return o.Position != nil
}

// NoBall returns the "not found" observation for a frame.
func NoBall(frame Frame) BallObservation {
	return BallObservation{FrameIndex: frame.Index, Timestamp: frame.Timestamp}
}

// MotionPrior summarizes recent angular history for motion-consistency checks.
// The zero value disables the check.
type MotionPrior struct {
	Valid       bool
	Angle       float64   // bearing of the latest accepted sample
	Velocity    float64   // rad/s implied by the last two samples
	HasVelocity bool
	Timestamp   time.Time // time of the latest accepted sample
}

// Predict extrapolates the expected bearing at time t.
func (m MotionPrior) Predict(t time.Time) float64 {
	if !m.Valid || !m.HasVelocity {
		return m.Angle
	}
	return geom.NormalizeAngle(m.Angle + m.Velocity*t.Sub(m.Timestamp).Seconds())
}
