package engine

import "sync/atomic"

// Clock is the executor's logical tick counter.
//
// Every Step advances the clock by one. Trace events are stamped with the
// tick they happened in, never with wall-clock time, so that a replay of
// the same inputs produces the same trace.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
// In practice only the goroutine calling Executor.Step advances it.
type Clock struct {
	tick atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific tick.
// Used to continue numbering after a persisted run.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.tick.Store(start)
	return c
}

// Next advances the clock and returns the new tick.
func (c *Clock) Next() int64 {
	return c.tick.Add(1)
}

// Current returns the current tick without advancing.
func (c *Clock) Current() int64 {
	return c.tick.Load()
}
