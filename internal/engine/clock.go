package engine

import "sync/atomic"

// Clock is a monotonic logical clock. Every observer event a run emits
// is stamped with a strictly increasing seq number from one of these,
// so event order is explicit in traces instead of relying on wall-clock
// timestamps.
//
// Thread-safety: atomic, though the engine's single-threaded loop means
// only one goroutine calls Next during a run.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
