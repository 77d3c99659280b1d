// Package fairqueue implements a reusable, source-partitioned, weighted
// round-robin queue with per-source backpressure, used by the block
// processor and available for the request aggregator and vote processor.
// It generalizes engine/common/fifoqueue.FifoQueue (one FIFO ring per
// source, grounded on github.com/ef-ds/deque) with the weighted
// round-robin dequeue order of module/queue.PriorityQueue.
package fairqueue

import (
	"sync"

	"github.com/ef-ds/deque"
	"golang.org/x/time/rate"
)

// SourceLimits describes the admission policy for one source: its
// subqueue capacity, its round-robin weight, and an optional token-bucket
// rate limiter.
type SourceLimits struct {
	MaxSize  int
	Priority int
	// RateLimit, if non-nil, additionally bounds the rate at which items
	// from this source are admitted by Push (not just queued size).
	RateLimit *rate.Limiter
}

// LimitsQuery supplies per-source limits the first time a source is seen.
// Subqueues are created lazily on first Push so callers never need to
// pre-register every possible source.
type LimitsQuery[S comparable] func(source S) SourceLimits

type subqueue struct {
	items   deque.Deque
	limits  SourceLimits
	credits int
}

// Queue is a fair-priority input queue keyed by a comparable source type
// S holding items of type R. It is safe for concurrent Push/Next/Len from
// multiple goroutines.
type Queue[R any, S comparable] struct {
	mu         sync.Mutex
	order      []S
	subqueues  map[S]*subqueue
	limitsFor  LimitsQuery[S]
}

// New creates an empty fair queue. limitsFor is consulted exactly once per
// distinct source, the first time that source is pushed to.
func New[R any, S comparable](limitsFor LimitsQuery[S]) *Queue[R, S] {
	return &Queue[R, S]{
		subqueues: make(map[S]*subqueue),
		limitsFor: limitsFor,
	}
}

// Push enqueues request under source, creating the subqueue on first
// sight. Returns false (and drops the request) if the subqueue is full or
// the source's rate limiter rejects it.
func (q *Queue[R, S]) Push(source S, request R) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	sq, ok := q.subqueues[source]
	if !ok {
		sq = &subqueue{limits: q.limitsFor(source)}
		q.subqueues[source] = sq
		q.order = append(q.order, source)
	}

	if sq.limits.RateLimit != nil && !sq.limits.RateLimit.Allow() {
		return false
	}

	if sq.limits.MaxSize > 0 && sq.items.Len() >= sq.limits.MaxSize {
		return false
	}

	sq.items.PushBack(request)
	return true
}

// Next dequeues one item using weighted round robin: up to Priority(source)
// items are served from the current source's subqueue before the cursor
// advances to the next non-empty source. Returns false when every
// subqueue is empty.
func (q *Queue[R, S]) Next() (R, S, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.next()
}

func (q *Queue[R, S]) next() (R, S, bool) {
	n := len(q.order)
	for i := 0; i < n; i++ {
		src := q.order[0]
		sq := q.subqueues[src]

		if sq.items.Len() == 0 {
			sq.credits = 0
			q.rotate()
			continue
		}

		if sq.credits <= 0 {
			sq.credits = maxInt(sq.limits.Priority, 1)
		}

		v, _ := sq.items.PopFront()
		sq.credits--
		if sq.credits <= 0 || sq.items.Len() == 0 {
			q.rotate()
		}
		return v.(R), src, true
	}
	var zero R
	var zeroSrc S
	return zero, zeroSrc, false
}

// rotate moves the current head of q.order to the tail.
func (q *Queue[R, S]) rotate() {
	if len(q.order) <= 1 {
		return
	}
	head := q.order[0]
	q.order = append(q.order[1:], head)
}

// Len returns the total number of queued items across all sources.
func (q *Queue[R, S]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	total := 0
	for _, sq := range q.subqueues {
		total += sq.items.Len()
	}
	return total
}

// SourceLen returns the queued item count for one source.
func (q *Queue[R, S]) SourceLen(source S) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	sq, ok := q.subqueues[source]
	if !ok {
		return 0
	}
	return sq.items.Len()
}

// Prune evicts any subqueue whose source fails the given alive-check and
// is currently empty. Intended to be called periodically (e.g. every few
// seconds) to drop subqueues for channels that have disconnected.
func (q *Queue[R, S]) Prune(alive func(source S) bool) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	var kept []S
	removed := 0
	for _, src := range q.order {
		sq := q.subqueues[src]
		if sq.items.Len() == 0 && !alive(src) {
			delete(q.subqueues, src)
			removed++
			continue
		}
		kept = append(kept, src)
	}
	q.order = kept
	return removed
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
