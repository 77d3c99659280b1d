package scheduler

import (
	"math/big"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nanolabs/nanod/chain"
	"github.com/nanolabs/nanod/consensus/election"
)

func testHash(b byte) chain.Hash {
	var h chain.Hash
	h[0] = b
	return h
}

func testSidebandBlock(account chain.Hash, previous chain.Hash) chain.SidebandBlock {
	blk := chain.NewStateBlock(account, account, previous, chain.ZeroHash, big.NewInt(1), chain.ZeroHash, [64]byte{}, 0, false)
	return chain.SidebandBlock{Block: blk, Sideband: chain.Sideband{Height: 1}}
}

func noWeight(chain.Hash) *big.Int { return big.NewInt(0) }
func noQuorum() (*big.Int, *big.Int) { return big.NewInt(1), big.NewInt(1) }

func testElectionAt(t *testing.T, root chain.QualifiedRoot, bucketIdx int, priority float64) *election.Election {
	t.Helper()
	first := chain.NewStateBlock(root.Root, root.Root, root.Previous, chain.ZeroHash, big.NewInt(1), chain.ZeroHash, [64]byte{}, 0, false)
	return election.New(root, first, election.BehaviorPriority, bucketIdx, priority,
		time.Hour, time.Minute, noWeight, noQuorum, nil, zerolog.Nop())
}

// TestBucketPushOrdersByPriorityAscending covers bucket admission: entries
// come out of push/pop in priority_time ascending order regardless of
// insertion order.
func TestBucketPushOrdersByPriorityAscending(t *testing.T) {
	b := newBucket(0, 10)

	require.True(t, b.push(5.0, testSidebandBlock(testHash(1), chain.ZeroHash)))
	require.True(t, b.push(1.0, testSidebandBlock(testHash(2), chain.ZeroHash)))
	require.True(t, b.push(3.0, testSidebandBlock(testHash(3), chain.ZeroHash)))

	c, ok := b.pop()
	require.True(t, ok)
	assert.Equal(t, 1.0, c.priorityTime)

	c, ok = b.pop()
	require.True(t, ok)
	assert.Equal(t, 3.0, c.priorityTime)

	c, ok = b.pop()
	require.True(t, ok)
	assert.Equal(t, 5.0, c.priorityTime)

	_, ok = b.pop()
	assert.False(t, ok)
}

// TestBucketPushTrimsWorstWhenFull covers bucket trim: once the queue is at
// capacity, a better (lower priority_time) candidate evicts the current
// worst entry, but a worse candidate is rejected outright.
func TestBucketPushTrimsWorstWhenFull(t *testing.T) {
	b := newBucket(0, 2)

	require.True(t, b.push(5.0, testSidebandBlock(testHash(1), chain.ZeroHash)))
	require.True(t, b.push(10.0, testSidebandBlock(testHash(2), chain.ZeroHash)))

	// Worse than the current worst (10.0): rejected, queue unchanged.
	require.False(t, b.push(20.0, testSidebandBlock(testHash(3), chain.ZeroHash)))
	c, ok := b.peek()
	require.True(t, ok)
	assert.Equal(t, 5.0, c.priorityTime)

	// Better than the current worst (10.0): admitted, 10.0 evicted.
	require.True(t, b.push(3.0, testSidebandBlock(testHash(4), chain.ZeroHash)))

	first, ok := b.pop()
	require.True(t, ok)
	assert.Equal(t, 3.0, first.priorityTime)
	second, ok := b.pop()
	require.True(t, ok)
	assert.Equal(t, 5.0, second.priorityTime, "10.0 should have been trimmed, leaving 5.0 as the new worst")
	_, ok = b.pop()
	assert.False(t, ok)
}

func TestBucketAvailableReflectsQueueState(t *testing.T) {
	b := newBucket(0, 4)
	assert.False(t, b.available())
	require.True(t, b.push(1.0, testSidebandBlock(testHash(1), chain.ZeroHash)))
	assert.True(t, b.available())
}

// TestBucketWorstLiveTracksHighestPriorityElection covers the cleanup path
// the scheduler uses to evict a live election in favor of a better
// candidate: worstLive must return the tracked election with the greatest
// priority value, not whichever was touched most recently in the LRU.
func TestBucketWorstLiveTracksHighestPriorityElection(t *testing.T) {
	b := newBucket(0, 10)

	low := testElectionAt(t, chain.QualifiedRoot{Root: testHash(1)}, 0, 1.0)
	high := testElectionAt(t, chain.QualifiedRoot{Root: testHash(2)}, 0, 9.0)
	mid := testElectionAt(t, chain.QualifiedRoot{Root: testHash(3)}, 0, 5.0)

	b.trackElection(low)
	b.trackElection(high)
	b.trackElection(mid)
	assert.Equal(t, 3, b.liveCount())

	// Touch low again through the LRU's recency tracking; worstLive must
	// still report high, since it walks priority, not recency.
	b.trackElection(low)

	worst, ok := b.worstLive()
	require.True(t, ok)
	assert.Equal(t, high.Root(), worst.Root())

	b.untrackElection(high)
	assert.Equal(t, 2, b.liveCount())

	worst, ok = b.worstLive()
	require.True(t, ok)
	assert.Equal(t, mid.Root(), worst.Root())
}

func TestBucketIndexClassifiesByLog2Balance(t *testing.T) {
	assert.Equal(t, 0, bucketIndex(big.NewInt(0)))
	assert.Equal(t, 0, bucketIndex(big.NewInt(1)))
	assert.Equal(t, 1, bucketIndex(big.NewInt(2)))
	assert.Equal(t, 1, bucketIndex(big.NewInt(3)))
	assert.Equal(t, 2, bucketIndex(big.NewInt(4)))

	huge := new(big.Int).Lsh(big.NewInt(1), uint(NumBuckets+10))
	assert.Equal(t, NumBuckets-1, bucketIndex(huge), "balances beyond the top bucket clamp to NumBuckets-1")
}
