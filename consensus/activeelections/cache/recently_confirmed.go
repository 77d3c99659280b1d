// Package cache implements the two bounded FIFO rings Active Elections
// keeps to suppress re-elections and to publish confirmation history,
// grounded on engine/common/fifoqueue.go's deque-backed FIFO idiom.
package cache

import (
	"sync"

	"github.com/ef-ds/deque"

	"github.com/nanolabs/nanod/chain"
)

// RecentlyConfirmed is a bounded FIFO of (qualified_root, winning_hash)
// pairs. An insert for a root already present here must be rejected
// without creating an election, per the no-re-election-in-cache-window
// invariant.
type RecentlyConfirmed struct {
	mu       sync.Mutex
	capacity int
	order    deque.Deque
	index    map[chain.QualifiedRoot]chain.Hash
}

func NewRecentlyConfirmed(capacity int) *RecentlyConfirmed {
	return &RecentlyConfirmed{
		capacity: capacity,
		index:    make(map[chain.QualifiedRoot]chain.Hash, capacity),
	}
}

// Put records root as decided with winner. A no-op if root is already
// present. Evicts the oldest entry if the ring is at capacity.
func (c *RecentlyConfirmed) Put(root chain.QualifiedRoot, winner chain.Hash) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.index[root]; exists {
		return
	}
	if c.order.Len() >= c.capacity {
		if oldest, ok := c.order.PopFront(); ok {
			delete(c.index, oldest.(chain.QualifiedRoot))
		}
	}
	c.order.PushBack(root)
	c.index[root] = winner
}

// Exists reports whether root has a cached outcome, and if so, what it was.
func (c *RecentlyConfirmed) Exists(root chain.QualifiedRoot) (chain.Hash, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.index[root]
	return h, ok
}

func (c *RecentlyConfirmed) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
