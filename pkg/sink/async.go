// Package sink delivers pipeline results to consumers outside the frame loop.
// Every sink receives session.Cycle values; Async keeps slow consumers from
// ever blocking the pipeline.
package sink

import (
	"sync"

	"github.com/teslashibe/go-roulette/pkg/session"
)

// AsyncStats counts mailbox traffic.
type AsyncStats struct {
	Published uint64 `json:"published"`
	Delivered uint64 `json:"delivered"`
	Dropped   uint64 `json:"dropped"` // overwritten before the consumer took them
}

// Async hands cycles to an inner sink on its own goroutine through a
// single-slot mailbox. A newer cycle overwrites an unconsumed one, so
// Publish never blocks and the consumer always sees the latest result.
type Async struct {
	inner session.Sink

	mu      sync.Mutex
	cond    *sync.Cond
	pending *session.Cycle
	closed  bool
	stats   AsyncStats

	done chan struct{}
}

// NewAsync starts the delivery goroutine for inner.
func NewAsync(inner session.Sink) *Async {
	a := &Async{inner: inner, done: make(chan struct{})}
	a.cond = sync.NewCond(&a.mu)
	go a.loop()
	return a
}

// Publish stores c in the mailbox. It never blocks.
func (a *Async) Publish(c session.Cycle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.stats.Published++
	if a.pending != nil {
		a.stats.Dropped++
	}
	a.pending = &c
	a.cond.Signal()
}

func (a *Async) loop() {
	defer close(a.done)
	for {
		a.mu.Lock()
		for a.pending == nil && !a.closed {
			a.cond.Wait()
		}
		if a.pending == nil {
			a.mu.Unlock()
			return
		}
		c := *a.pending
		a.pending = nil
		a.mu.Unlock()

		a.inner.Publish(c)

		a.mu.Lock()
		a.stats.Delivered++
		a.mu.Unlock()
	}
}

// Stats returns the mailbox counters.
func (a *Async) Stats() AsyncStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// Close delivers a pending cycle, stops the goroutine and waits for it.
func (a *Async) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		<-a.done
		return nil
	}
	a.closed = true
	a.cond.Signal()
	a.mu.Unlock()

	<-a.done
	return nil
}
