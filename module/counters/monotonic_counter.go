// Package counters provides lock-free monotonic progress trackers, the
// shape consensus/hotstuff's finalized-view tracking uses for "track the
// highest X seen so far, reject anything lower" bookkeeping.
package counters

import "go.uber.org/atomic"

// StrictMonotonicCounter tracks a uint64 that only ever moves forward. A
// Set call for a value at or below the current one is a no-op, which is
// the behavior a cemented-height or finalized-view tracker needs when
// cementation batches or reorg replay can deliver the same or an older
// height more than once.
type StrictMonotonicCounter struct {
	value atomic.Uint64
}

// NewStrictMonotonicCounter returns a counter initialized to initial.
func NewStrictMonotonicCounter(initial uint64) *StrictMonotonicCounter {
	c := &StrictMonotonicCounter{}
	c.value.Store(initial)
	return c
}

// Set stores newValue if it is strictly greater than the current value.
// Returns whether the store happened.
func (c *StrictMonotonicCounter) Set(newValue uint64) bool {
	for {
		old := c.value.Load()
		if newValue <= old {
			return false
		}
		if c.value.CompareAndSwap(old, newValue) {
			return true
		}
	}
}

// Value returns the current value.
func (c *StrictMonotonicCounter) Value() uint64 {
	return c.value.Load()
}
