package scheduler

import (
	"math/big"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/nanolabs/nanod/chain"
	"github.com/nanolabs/nanod/consensus/election"
)

// candidate is one entry of a bucket's ordered queue: a block awaiting
// activation into an election, ranked by priorityTime ascending (lower is
// more urgent).
type candidate struct {
	priorityTime float64
	block        chain.SidebandBlock
}

// bucket partitions one balance range's worth of "next unconfirmed block"
// candidates. It owns a bounded ordered queue of not-yet-activated
// candidates and an index of the priority elections it has started, so the
// cleanup policy (and this bucket's own admission policy) can find the
// bucket's worst live election.
type bucket struct {
	mu       sync.Mutex
	index    int
	capacity int

	queue     []candidate
	elections *lru.Cache[chain.QualifiedRoot, *election.Election]
}

func newBucket(index, capacity int) *bucket {
	elections, err := lru.New[chain.QualifiedRoot, *election.Election](capacity)
	if err != nil {
		// capacity is always a positive config value by the time New runs;
		// a non-positive size is the only error lru.New returns.
		panic(err)
	}
	return &bucket{index: index, capacity: capacity, elections: elections}
}

// push inserts (priorityTime, block) in ascending order, evicting the
// queue's worst (highest priorityTime) entry if the bucket is full and the
// new entry is better than it. Returns false if the bucket is full and the
// new entry is not an improvement.
func (b *bucket) push(priorityTime float64, block chain.SidebandBlock) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.queue) >= b.capacity {
		worst := b.queue[len(b.queue)-1]
		if priorityTime >= worst.priorityTime {
			return false
		}
		b.queue = b.queue[:len(b.queue)-1]
	}

	i := 0
	for ; i < len(b.queue); i++ {
		if priorityTime < b.queue[i].priorityTime {
			break
		}
	}
	b.queue = append(b.queue, candidate{})
	copy(b.queue[i+1:], b.queue[i:])
	b.queue[i] = candidate{priorityTime: priorityTime, block: block}
	return true
}

// available reports whether the bucket has a candidate ready to activate.
func (b *bucket) available() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue) > 0
}

// peek returns the bucket's best (lowest priorityTime) queued candidate
// without removing it.
func (b *bucket) peek() (candidate, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) == 0 {
		return candidate{}, false
	}
	return b.queue[0], true
}

// pop removes and returns the bucket's best queued candidate.
func (b *bucket) pop() (candidate, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) == 0 {
		return candidate{}, false
	}
	c := b.queue[0]
	b.queue = b.queue[1:]
	return c, true
}

// trackElection records e as started by this bucket, indexed by its
// qualified root. If the bucket's election index is at capacity, the
// least-recently-touched entry is evicted from the index (the election
// itself keeps running in the registry; it just stops being a candidate
// for this bucket's worstLive comparison).
func (b *bucket) trackElection(e *election.Election) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.elections.Add(e.Root(), e)
}

// untrackElection removes e from this bucket's live-election index, called
// once e has left the registry for any reason.
func (b *bucket) untrackElection(e *election.Election) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.elections.Remove(e.Root())
}

// worstLive returns this bucket's currently live election with the
// greatest (worst) priority value, if any.
func (b *bucket) worstLive() (*election.Election, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	keys := b.elections.Keys()
	if len(keys) == 0 {
		return nil, false
	}
	var worst *election.Election
	for _, root := range keys {
		e, ok := b.elections.Peek(root)
		if !ok {
			continue
		}
		if worst == nil || e.Priority() > worst.Priority() {
			worst = e
		}
	}
	return worst, worst != nil
}

func (b *bucket) liveCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.elections.Len()
}

// bucketIndex classifies balance into [0, NumBuckets) by floor(log2(balance)),
// clamping both the zero-balance and overflow ends into the extreme
// buckets.
func bucketIndex(balance *big.Int) int {
	bits := balance.BitLen()
	if bits == 0 {
		return 0
	}
	idx := bits - 1
	if idx >= NumBuckets {
		return NumBuckets - 1
	}
	return idx
}
