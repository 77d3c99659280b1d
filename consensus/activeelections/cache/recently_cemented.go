package cache

import (
	"math/big"
	"sync"
	"time"

	"github.com/nanolabs/nanod/chain"
)

// ConfirmationType classifies how a cemented block came to be cemented,
// for the recently-cemented history record.
type ConfirmationType int

const (
	// ActiveConfirmedQuorum: an active election reached quorum and drove
	// cementation itself.
	ActiveConfirmedQuorum ConfirmationType = iota
	// ActiveConfirmationHeight: an election existed for the block but it
	// was cemented through an ancestor reaching confirmation height
	// first.
	ActiveConfirmationHeight
	// InactiveConfirmationHeight: no election existed for the block; it
	// was cemented purely by confirmation-height advancement.
	InactiveConfirmationHeight
)

func (t ConfirmationType) String() string {
	switch t {
	case ActiveConfirmedQuorum:
		return "active_confirmed_quorum"
	case ActiveConfirmationHeight:
		return "active_confirmation_height"
	case InactiveConfirmationHeight:
		return "inactive_confirmation_height"
	default:
		return "unknown"
	}
}

// CementedRecord is one entry of the recently-cemented history: a
// snapshot of an election's (or a bare cementation's) final status.
type CementedRecord struct {
	Winner     chain.Hash
	FinalTally *big.Int
	Type       ConfirmationType
	Duration   time.Duration
}

// RecentlyCemented is a bounded FIFO history of CementedRecord, published
// for observers (status RPC, metrics) to inspect recent confirmation
// activity. Backed by a plain slice rather than the deque.Deque used
// elsewhere in this package: the history is only ever appended to and
// listed wholesale, so a ring slice is simpler than a double-ended queue.
type RecentlyCemented struct {
	mu       sync.Mutex
	capacity int
	records  []CementedRecord
	start    int
}

func NewRecentlyCemented(capacity int) *RecentlyCemented {
	return &RecentlyCemented{capacity: capacity}
}

// Put appends r, evicting the oldest record if the ring is at capacity.
func (c *RecentlyCemented) Put(r CementedRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.records) < c.capacity {
		c.records = append(c.records, r)
		return
	}
	c.records[c.start] = r
	c.start = (c.start + 1) % c.capacity
}

// List returns a snapshot of the history, oldest first.
func (c *RecentlyCemented) List() []CementedRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]CementedRecord, 0, len(c.records))
	if len(c.records) < c.capacity {
		return append(out, c.records...)
	}
	out = append(out, c.records[c.start:]...)
	out = append(out, c.records[:c.start]...)
	return out
}

func (c *RecentlyCemented) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}
