package engine

import "sync/atomic"

// Counter is a monotonic count of backend round trips.
//
// Thread-safety: Counter is safe for concurrent use (atomic operations).
type Counter struct {
	n atomic.Int64
}

// Next increments the counter and returns the new value.
func (c *Counter) Next() int64 {
	return c.n.Add(1)
}

// Current returns the current value without incrementing.
func (c *Counter) Current() int64 {
	return c.n.Load()
}
