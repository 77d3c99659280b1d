package blockprocessor

import (
	"sync"

	"github.com/nanolabs/nanod/chain"
)

// uncheckedMap parks blocks behind the dependency hash they are waiting
// on (a missing previous, a missing pending-entry source, or — for
// gap_epoch_open_pending — the account awaiting its epoch-upgrade block),
// so that they can be retried the moment that dependency's block reaches
// progress. Bounded by capacity, oldest-dependency-first eviction; kept
// as an in-memory structure since the unchecked table the persistent
// store layout names (§6) has no adapter operation defined on chain.Ledger
// beyond what the core consumes, and nothing here needs it to survive a
// restart — a missed retry simply waits for the next submission of the
// same block.
type uncheckedMap struct {
	mu       sync.Mutex
	capacity int
	byDep    map[chain.Hash][]chain.Block
	order    []chain.Hash
}

func newUncheckedMap(capacity int) *uncheckedMap {
	return &uncheckedMap{
		capacity: capacity,
		byDep:    make(map[chain.Hash][]chain.Block),
	}
}

// Park records block as waiting on dep.
func (u *uncheckedMap) Park(dep chain.Hash, block chain.Block) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if _, exists := u.byDep[dep]; !exists {
		u.order = append(u.order, dep)
	}
	u.byDep[dep] = append(u.byDep[dep], block)

	for len(u.order) > u.capacity {
		oldest := u.order[0]
		u.order = u.order[1:]
		delete(u.byDep, oldest)
	}
}

// Take removes and returns every block waiting on dep.
func (u *uncheckedMap) Take(dep chain.Hash) []chain.Block {
	u.mu.Lock()
	defer u.mu.Unlock()

	blocks, exists := u.byDep[dep]
	if !exists {
		return nil
	}
	delete(u.byDep, dep)
	for i, h := range u.order {
		if h == dep {
			u.order = append(u.order[:i], u.order[i+1:]...)
			break
		}
	}
	return blocks
}

// Len returns the total number of parked blocks across all dependencies.
func (u *uncheckedMap) Len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	total := 0
	for _, blocks := range u.byDep {
		total += len(blocks)
	}
	return total
}
