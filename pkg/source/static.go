package source

import (
	"io"
	"sync"

	"github.com/teslashibe/go-roulette/pkg/vision"
)

// Static serves frames from memory. A nil entry is served as "no frame yet".
type Static struct {
	mu     sync.Mutex
	frames []*vision.Frame
	pos    int
}

// NewStatic creates a source over frames.
func NewStatic(frames ...*vision.Frame) *Static {
	return &Static{frames: frames}
}

// Next returns the next frame, or io.EOF after the last.
func (s *Static) Next() (*vision.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

// Close is a no-op.
func (s *Static) Close() error {
	return nil
}
