// Package seq provides the monotonic logical clock used for event ordering
// and aggregate handle allocation.
//
// All events are stamped with a strictly increasing seq number. Wall-clock
// time is never used for ordering, so a replayed scenario produces identical
// sequence numbers.
package seq

import "sync/atomic"

// Source yields strictly increasing sequence numbers.
// Implemented by Clock (production) and testutil.DeterministicClock (tests).
type Source interface {
	Next() int64
}

// Clock is a monotonic logical clock.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific sequence number.
// Used by heap.WithFirstHandle to offset handle numbering.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
// Calls are linearizable - each call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
