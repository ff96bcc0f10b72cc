package session

import (
	"time"

	"github.com/teslashibe/go-roulette/pkg/physics"
)

// RecentLimit is how many predictions Stats keeps in Recent.
const RecentLimit = 50

// Stats aggregates the predictions of one session. It only changes when a
// prediction is produced.
type Stats struct {
	Counts           map[int]int          `json:"counts"` // pocket number -> predictions
	Total            int                  `json:"total"`
	HighConfidence   int                  `json:"high_confidence"`
	ConfidenceSum    float64              `json:"confidence_sum"`
	Recent           []physics.Prediction `json:"recent"` // newest last
	LastPredictionAt time.Time            `json:"last_prediction_at"`
}

func newStats() Stats {
	return Stats{Counts: make(map[int]int)}
}

func (s *Stats) record(p physics.Prediction, highThreshold float64) {
	s.Counts[p.Pocket]++
	s.Total++
	s.ConfidenceSum += p.Confidence
	if p.Confidence >= highThreshold {
		s.HighConfidence++
	}
	s.Recent = append(s.Recent, p)
	if len(s.Recent) > RecentLimit {
		s.Recent = append(s.Recent[:0:0], s.Recent[len(s.Recent)-RecentLimit:]...)
	}
	s.LastPredictionAt = p.ProducedAt
}

// AverageConfidence returns the mean prediction confidence, 0 before any.
func (s Stats) AverageConfidence() float64 {
	if s.Total == 0 {
		return 0
	}
	return s.ConfidenceSum / float64(s.Total)
}

// MostPredicted returns the most frequently predicted pocket. Ties go to the
// lower number so the answer is stable.
func (s Stats) MostPredicted() (pocket, count int, ok bool) {
	for p, c := range s.Counts {
		if c > count || (c == count && p < pocket) {
			pocket, count = p, c
		}
	}
	return pocket, count, count > 0
}

// Clone returns a deep copy safe to hand to another goroutine.
func (s Stats) Clone() Stats {
	out := s
	out.Counts = make(map[int]int, len(s.Counts))
	for k, v := range s.Counts {
		out.Counts[k] = v
	}
	out.Recent = append([]physics.Prediction(nil), s.Recent...)
	return out
}

// Counters tracks per-frame work, independent of predictions.
type Counters struct {
	FramesProcessed uint64 `json:"frames_processed"`
	BallDetections  uint64 `json:"ball_detections"`
	WheelDetections uint64 `json:"wheel_detections"` // full wheel locator runs
	HistoryResets   uint64 `json:"history_resets"`
	Errors          uint64 `json:"errors"` // cycles failed by invalid input
}

// DetectionRate is the fraction of processed frames where the ball was found.
func (c Counters) DetectionRate() float64 {
	if c.FramesProcessed == 0 {
		return 0
	}
	return float64(c.BallDetections) / float64(c.FramesProcessed)
}
