package vision

import "errors"

// Sentinel errors for invariant violations coming from upstream collaborators.
var (
	// ErrInvalidFrame is returned for a frame with no image or a zero dimension.
	ErrInvalidFrame = errors.New("vision: invalid frame")

	// ErrInvalidGeometry is returned when a wheel geometry has a non-positive radius.
	ErrInvalidGeometry = errors.New("vision: invalid wheel geometry")
)
