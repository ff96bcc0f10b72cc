package sink

import "github.com/teslashibe/go-roulette/pkg/session"

// Multi publishes every cycle to each sink in order.
type Multi []session.Sink

// Publish fans c out.
func (m Multi) Publish(c session.Cycle) {
	for _, s := range m {
		s.Publish(c)
	}
}
