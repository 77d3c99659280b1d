package election

import (
	"math/big"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nanolabs/nanod/chain"
)

func hash(b byte) chain.Hash {
	var h chain.Hash
	h[0] = b
	return h
}

func weightOf(weights map[chain.Hash]int64) WeightFunc {
	return func(rep chain.Hash) *big.Int {
		w, ok := weights[rep]
		if !ok {
			return big.NewInt(0)
		}
		return big.NewInt(w)
	}
}

func fixedQuorum(quorum, final int64) QuorumFunc {
	return func() (*big.Int, *big.Int) { return big.NewInt(quorum), big.NewInt(final) }
}

func newTestElection(t *testing.T, first chain.Block, weights map[chain.Hash]int64, quorum, final int64, onConfirmed ConfirmedFunc) *Election {
	t.Helper()
	return New(first.QualifiedRoot(), first, BehaviorPriority, 0, 0,
		time.Hour, time.Minute, weightOf(weights), fixedQuorum(quorum, final), onConfirmed, zerolog.Nop())
}

func TestVoteReachesQuorumAndConfirms(t *testing.T) {
	account := hash(1)
	block := chain.NewStateBlock(hash(2), account, chain.ZeroHash, hash(3), big.NewInt(100), chain.ZeroHash, [64]byte{}, 0, false)

	var confirmedRoot chain.QualifiedRoot
	var confirmedWinner chain.Hash
	var confirmedFinal bool
	onConfirmed := func(root chain.QualifiedRoot, winner chain.Hash, final bool) {
		confirmedRoot, confirmedWinner, confirmedFinal = root, winner, final
	}

	rep := hash(9)
	e := newTestElection(t, block, map[chain.Hash]int64{rep: 100}, 100, 100, onConfirmed)
	e.Activate()

	require.Equal(t, StateActive, e.State())

	require.NoError(t, e.Vote(rep, 1, false, []chain.Hash{block.Hash()}))

	assert.Equal(t, StateConfirmed, e.State())
	winner, final := e.Winner()
	assert.Equal(t, block.Hash(), winner)
	assert.False(t, final)
	assert.Equal(t, block.QualifiedRoot(), confirmedRoot)
	assert.Equal(t, block.Hash(), confirmedWinner)
	assert.False(t, confirmedFinal)
}

func TestForkResolutionHigherTallyWins(t *testing.T) {
	account := hash(1)
	blockA := chain.NewStateBlock(hash(2), account, chain.ZeroHash, hash(3), big.NewInt(100), chain.ZeroHash, [64]byte{}, 0, false)
	blockB := chain.NewStateBlock(hash(4), account, chain.ZeroHash, hash(3), big.NewInt(50), chain.ZeroHash, [64]byte{}, 0, false)
	require.Equal(t, blockA.QualifiedRoot(), blockB.QualifiedRoot())

	repA, repB := hash(10), hash(11)
	e := newTestElection(t, blockA, map[chain.Hash]int64{repA: 60, repB: 40}, 1000, 1000, nil)
	e.Activate()

	require.True(t, e.Publish(blockB))
	// Publishing an already-known candidate hash is a no-op.
	require.False(t, e.Publish(blockB))

	require.NoError(t, e.Vote(repB, 1, false, []chain.Hash{blockB.Hash()}))
	winner, _ := e.Winner()
	assert.Equal(t, blockB.Hash(), winner, "higher tally should currently lead")

	require.NoError(t, e.Vote(repA, 2, false, []chain.Hash{blockA.Hash()}))
	winner, _ = e.Winner()
	assert.Equal(t, blockA.Hash(), winner, "blockA's 60 weight should overtake blockB's 40")
	assert.Equal(t, StateActive, e.State(), "neither side alone reaches the 1000 quorum")
}

func TestVoteIgnoresUnknownCandidate(t *testing.T) {
	account := hash(1)
	block := chain.NewStateBlock(hash(2), account, chain.ZeroHash, hash(3), big.NewInt(100), chain.ZeroHash, [64]byte{}, 0, false)
	rep := hash(9)
	e := newTestElection(t, block, map[chain.Hash]int64{rep: 100}, 100, 100, nil)
	e.Activate()

	require.NoError(t, e.Vote(rep, 1, false, []chain.Hash{hash(200)}))
	assert.Equal(t, StateActive, e.State())
	assert.Equal(t, 0, e.Status().VoteCount)
}

func TestVoteFromZeroWeightRepresentativeIsIgnored(t *testing.T) {
	account := hash(1)
	block := chain.NewStateBlock(hash(2), account, chain.ZeroHash, hash(3), big.NewInt(100), chain.ZeroHash, [64]byte{}, 0, false)
	rep := hash(9)
	e := newTestElection(t, block, map[chain.Hash]int64{}, 1, 1, nil)
	e.Activate()

	require.NoError(t, e.Vote(rep, 1, false, []chain.Hash{block.Hash()}))
	assert.Equal(t, StateActive, e.State())
}

func TestFinalVoteCannotBeDowngraded(t *testing.T) {
	account := hash(1)
	block := chain.NewStateBlock(hash(2), account, chain.ZeroHash, hash(3), big.NewInt(100), chain.ZeroHash, [64]byte{}, 0, false)
	rep := hash(9)
	e := newTestElection(t, block, map[chain.Hash]int64{rep: 50}, 1000, 1000, nil)
	e.Activate()

	require.NoError(t, e.Vote(rep, 1, true, []chain.Hash{block.Hash()}))
	require.NoError(t, e.Vote(rep, 2, false, []chain.Hash{block.Hash()}))

	status := e.Status()
	assert.Equal(t, int64(50), status.FinalTally.Int64(), "the non-final re-vote must not erase the rep's final contribution")
}

func TestTransitionTimeExpiresUnconfirmedAfterTTL(t *testing.T) {
	account := hash(1)
	block := chain.NewStateBlock(hash(2), account, chain.ZeroHash, hash(3), big.NewInt(100), chain.ZeroHash, [64]byte{}, 0, false)
	e := New(block.QualifiedRoot(), block, BehaviorPriority, 0, 0,
		10*time.Millisecond, time.Minute, weightOf(nil), fixedQuorum(100, 100), nil, zerolog.Nop())
	e.Activate()

	require.False(t, e.TransitionTime(time.Now()))
	assert.True(t, e.TransitionTime(time.Now().Add(time.Hour)))
	assert.Equal(t, StateExpiredUnconfirmed, e.State())
}

func TestCancelIsIdempotentAndTerminal(t *testing.T) {
	account := hash(1)
	block := chain.NewStateBlock(hash(2), account, chain.ZeroHash, hash(3), big.NewInt(100), chain.ZeroHash, [64]byte{}, 0, false)
	e := newTestElection(t, block, nil, 100, 100, nil)
	e.Cancel()
	assert.Equal(t, StateCancelled, e.State())
	e.Cancel()
	assert.Equal(t, StateCancelled, e.State())
}
