package capture

import "sync/atomic"

// Counters accumulates input-device events between captures. The OS input
// hooks feed it from their own goroutines; the capture path drains it with
// Snapshot when a row is persisted.
type Counters struct {
	clicks atomic.Int64
	keys   atomic.Int64
}

func (c *Counters) AddClicks(n int64) { c.clicks.Add(n) }
func (c *Counters) AddKeys(n int64)   { c.keys.Add(n) }

// Peek returns the accumulated counts without resetting them.
func (c *Counters) Peek() (clicks, keys int64) {
	return c.clicks.Load(), c.keys.Load()
}

// Snapshot returns the accumulated counts and resets both to zero.
func (c *Counters) Snapshot() (clicks, keys int64) {
	return c.clicks.Swap(0), c.keys.Swap(0)
}
