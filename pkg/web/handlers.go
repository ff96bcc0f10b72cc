package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/teslashibe/go-roulette/internal/version"
	"github.com/teslashibe/go-roulette/pkg/physics"
	"github.com/teslashibe/go-roulette/pkg/session"
)

// StatsResponse is the /api/stats payload.
type StatsResponse struct {
	Total             int         `json:"total"`
	Counts            map[int]int `json:"counts"`
	HighConfidence    int         `json:"high_confidence"`
	AverageConfidence float64     `json:"average_confidence"`
	MostPredicted     *PocketHit  `json:"most_predicted,omitempty"`
	FramesProcessed   uint64      `json:"frames_processed"`
	DetectionRate     float64     `json:"detection_rate"`
}

// PocketHit is a pocket number with its prediction count.
type PocketHit struct {
	Pocket int    `json:"pocket"`
	Color  string `json:"color"`
	Count  int    `json:"count"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": version.Version,
		"clients": s.cycleHub.ClientCount() + s.predictionHub.ClientCount(),
	})
}

// handleStatus returns the session state, wheel and counters.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	p := s.currentProvider()
	if p == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "no session"})
	}
	return c.JSON(p.Status())
}

// handleStats returns aggregate prediction statistics.
func (s *Server) handleStats(c *fiber.Ctx) error {
	p := s.currentProvider()
	if p == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "no session"})
	}
	stats, err := p.CurrentStats()
	if err != nil {
		return sessionError(c, err)
	}
	counters := p.Status().Counters

	resp := StatsResponse{
		Total:             stats.Total,
		Counts:            stats.Counts,
		HighConfidence:    stats.HighConfidence,
		AverageConfidence: stats.AverageConfidence(),
		FramesProcessed:   counters.FramesProcessed,
		DetectionRate:     counters.DetectionRate(),
	}
	if pocket, count, ok := stats.MostPredicted(); ok {
		resp.MostPredicted = &PocketHit{Pocket: pocket, Color: physics.Color(pocket), Count: count}
	}
	return c.JSON(resp)
}

// handlePredictions returns recent predictions, newest first.
// Query: ?limit=N (default and maximum session.RecentLimit).
func (s *Server) handlePredictions(c *fiber.Ctx) error {
	p := s.currentProvider()
	if p == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "no session"})
	}
	stats, err := p.CurrentStats()
	if err != nil {
		return sessionError(c, err)
	}

	limit := c.QueryInt("limit", session.RecentLimit)
	if limit <= 0 || limit > session.RecentLimit {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "limit must be between 1 and 50",
		})
	}

	recent := stats.Recent
	out := make([]physics.Prediction, 0, limit)
	for i := len(recent) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, recent[i])
	}
	return c.JSON(out)
}

func sessionError(c *fiber.Ctx, err error) error {
	if errors.Is(err, session.ErrSessionClosed) {
		return c.Status(fiber.StatusGone).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}
