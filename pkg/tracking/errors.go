package tracking

import "errors"

var (
	// ErrOutOfOrder is returned when an observation is not newer than the
	// latest sample in the history.
	ErrOutOfOrder = errors.New("tracking: observation out of order")

	// ErrInvalidConfig wraps every configuration problem.
	ErrInvalidConfig = errors.New("tracking: invalid config")
)
