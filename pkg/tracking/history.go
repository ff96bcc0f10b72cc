package tracking

import "time"

// Sample is one angular measurement of the ball relative to the wheel center.
type Sample struct {
	Angle       float64   `json:"angle"`    // radians in [0, 2π)
	Velocity    float64   `json:"velocity"` // rad/s, meaningful only if HasVelocity
	HasVelocity bool      `json:"has_velocity"`
	Confidence  float64   `json:"confidence"`
	FrameIndex  uint64    `json:"frame_index"`
	Timestamp   time.Time `json:"timestamp"`
}

// History is a fixed-capacity ring of samples ordered by time.
// Appending never allocates; once full, the oldest sample is overwritten.
type History struct {
	samples []Sample
	head    int // next write position
	size    int
}

// NewHistory creates a history holding at most capacity samples.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{samples: make([]Sample, capacity)}
}

// Push appends a sample, overwriting the oldest one when full.
func (h *History) Push(s Sample) {
	h.samples[h.head] = s
	h.head = (h.head + 1) % len(h.samples)
	if h.size < len(h.samples) {
		h.size++
	}
}

// Len returns the number of stored samples.
func (h *History) Len() int {
	return h.size
}

// Cap returns the maximum number of samples.
func (h *History) Cap() int {
	return len(h.samples)
}

// Previous returns the sample n steps back. Previous(1) is the newest.
func (h *History) Previous(n int) (Sample, bool) {
	if n < 1 || n > h.size {
		return Sample{}, false
	}
	idx := (h.head - n + len(h.samples)) % len(h.samples)
	return h.samples[idx], true
}

// Latest returns the newest sample.
func (h *History) Latest() (Sample, bool) {
	return h.Previous(1)
}

// Last returns up to n of the newest samples, oldest first.
func (h *History) Last(n int) []Sample {
	if n > h.size {
		n = h.size
	}
	if n <= 0 {
		return nil
	}
	out := make([]Sample, n)
	for i := 0; i < n; i++ {
		out[i], _ = h.Previous(n - i)
	}
	return out
}

// Snapshot returns a copy of every stored sample, oldest first.
func (h *History) Snapshot() []Sample {
	return h.Last(h.size)
}

// Reset drops all samples.
func (h *History) Reset() {
	for i := range h.samples {
		h.samples[i] = Sample{}
	}
	h.head = 0
	h.size = 0
}
