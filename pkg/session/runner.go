package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-roulette/pkg/vision"
)

// FrameSource is a pull-based frame provider. Next returns a nil frame when
// nothing is available yet and io.EOF once the source is exhausted. It must
// not block indefinitely.
type FrameSource interface {
	Next() (*vision.Frame, error)
}

// Sink receives cycle results. Publish must not block the pipeline.
type Sink interface {
	Publish(c Cycle)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Cycle)

// Publish calls f(c).
func (f SinkFunc) Publish(c Cycle) { f(c) }

// RunnerStats counts what the driving loop did with the source's frames.
type RunnerStats struct {
	Cycles       uint64 `json:"cycles"`
	Skipped      uint64 `json:"skipped"`   // ticks with no frame available
	Discarded    uint64 `json:"discarded"` // frames dropped to catch up after an overrun
	SourceErrors uint64 `json:"source_errors"`
	CycleErrors  uint64 `json:"cycle_errors"`

	// Time spent in Session.Process, over all cycles
	MeanCycle time.Duration `json:"mean_cycle"`
	MaxCycle  time.Duration `json:"max_cycle"`
}

// Runner paces a session at its target frame rate.
type Runner struct {
	session *Session
	source  FrameSource
	sink    Sink
	logger  *slog.Logger
	budget  time.Duration

	cycles       atomic.Uint64
	cycleNanos   atomic.Int64
	maxNanos     atomic.Int64
	skipped      atomic.Uint64
	discarded    atomic.Uint64
	sourceErrors atomic.Uint64
	cycleErrors  atomic.Uint64
}

// NewRunner creates a driving loop. A nil sink discards results.
func NewRunner(s *Session, source FrameSource, sink Sink) *Runner {
	if sink == nil {
		sink = SinkFunc(func(Cycle) {})
	}
	return &Runner{
		session: s,
		source:  source,
		sink:    sink,
		logger:  s.logger.With("component", "runner"),
		budget:  s.config.FrameBudget(),
	}
}

// Run processes frames until ctx is cancelled or the source is exhausted,
// then stops the session. A cycle in flight always completes first.
func (r *Runner) Run(ctx context.Context) error {
	defer r.session.Stop()

	ticker := time.NewTicker(r.budget)
	defer ticker.Stop()

	r.logger.Info("runner started", "budget", r.budget)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("runner stopped", "reason", ctx.Err(), "stats", r.Stats())
			return nil
		case <-ticker.C:
		}

		done, err := r.step()
		if err != nil {
			return err
		}
		if done {
			r.logger.Info("source exhausted", "stats", r.Stats())
			return nil
		}
	}
}

// step runs one cycle. It reports done when the source is exhausted.
func (r *Runner) step() (bool, error) {
	start := time.Now()

	frame, err := r.source.Next()
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	if err != nil {
		r.sourceErrors.Add(1)
		r.logger.Warn("frame source error", "error", err)
		return false, nil
	}
	if frame == nil {
		r.skipped.Add(1)
		return false, nil
	}

	began := time.Now()
	cycle, err := r.session.Process(*frame)
	if errors.Is(err, ErrSessionClosed) {
		return false, err
	}
	r.recordCycle(time.Since(began))
	if err != nil {
		r.cycleErrors.Add(1)
	} else {
		r.sink.Publish(cycle)
	}

	if elapsed := time.Since(start); elapsed > r.budget {
		return r.catchUp(int(elapsed / r.budget))
	}
	return false, nil
}

func (r *Runner) recordCycle(d time.Duration) {
	r.cycles.Add(1)
	r.cycleNanos.Add(int64(d))
	for {
		peak := r.maxNanos.Load()
		if int64(d) <= peak || r.maxNanos.CompareAndSwap(peak, int64(d)) {
			return
		}
	}
}

// catchUp drops n frames so the next cycle sees a fresh one.
func (r *Runner) catchUp(n int) (bool, error) {
	for i := 0; i < n; i++ {
		frame, err := r.source.Next()
		if errors.Is(err, io.EOF) {
			return true, nil
		}
		if err != nil || frame == nil {
			return false, nil
		}
		r.discarded.Add(1)
	}
	r.logger.Debug("cycle overran budget, frames discarded", "count", n)
	return false, nil
}

// Stats returns the loop counters.
func (r *Runner) Stats() RunnerStats {
	cycles := r.cycles.Load()
	var mean time.Duration
	if cycles > 0 {
		mean = time.Duration(r.cycleNanos.Load() / int64(cycles))
	}
	return RunnerStats{
		Cycles:       cycles,
		Skipped:      r.skipped.Load(),
		Discarded:    r.discarded.Load(),
		SourceErrors: r.sourceErrors.Load(),
		CycleErrors:  r.cycleErrors.Load(),
		MeanCycle:    mean,
		MaxCycle:     time.Duration(r.maxNanos.Load()),
	}
}
