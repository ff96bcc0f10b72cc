package physics

import "errors"

// ErrInvalidParams wraps every simulator parameter problem.
var ErrInvalidParams = errors.New("physics: invalid params")
