package engine

import "sync/atomic"

// Clock hands out snapshot sequence numbers.
//
// Seq, not wall time, orders snapshots and journal entries: two passes in
// the same millisecond still compare. Values only move forward.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock whose first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock that resumes after last, typically the
// journal's highest stored seq.
func NewClockAt(last int64) *Clock {
	c := NewClock()
	c.Observe(last)
	return c
}

// Next returns a seq greater than every value handed out or observed.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the newest seq handed out or observed, 0 if none.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// Observe moves the clock up to seq. A seq at or below Current is ignored.
// Reports whether the clock moved.
func (c *Clock) Observe(seq int64) bool {
	for {
		cur := c.seq.Load()
		if seq <= cur {
			return false
		}
		if c.seq.CompareAndSwap(cur, seq) {
			return true
		}
	}
}
