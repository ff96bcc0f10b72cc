package sink

import (
	"log/slog"

	"github.com/teslashibe/go-roulette/internal/log"
	"github.com/teslashibe/go-roulette/pkg/session"
)

// Log writes predictions at info level and other cycles at debug.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a log sink. A nil logger uses the global one.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = log.Component("predictions")
	}
	return &Log{logger: logger}
}

// Publish logs c.
func (l *Log) Publish(c session.Cycle) {
	if p := c.Prediction; p != nil {
		l.logger.Info("prediction",
			"frame", c.FrameIndex,
			"pocket", p.Pocket,
			"color", p.Color,
			"confidence", p.Confidence,
			"steps", p.SimulatedSteps,
			"travel", p.TravelTime)
		return
	}
	l.logger.Debug("cycle",
		"frame", c.FrameIndex,
		"state", c.State,
		"ball", c.Ball.Found(),
		"redetected", c.Redetected)
}
