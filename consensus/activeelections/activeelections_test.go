package activeelections

import (
	"math/big"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/nanolabs/nanod/chain"
	chainmock "github.com/nanolabs/nanod/chain/mock"
	"github.com/nanolabs/nanod/consensus/activeelections/cache"
	"github.com/nanolabs/nanod/consensus/election"
	"github.com/nanolabs/nanod/module"
)

type fakeReadTx struct{}

func (fakeReadTx) Discard() {}

// fakeActivator records every account it is asked to activate, so tests
// can assert the successor-activation gate fires (or doesn't) without
// a real scheduler.
type fakeActivator struct {
	mu        sync.Mutex
	activated []chain.Hash
}

func (a *fakeActivator) Activate(account chain.Hash) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.activated = append(a.activated, account)
}

func (a *fakeActivator) snapshot() []chain.Hash {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]chain.Hash, len(a.activated))
	copy(out, a.activated)
	return out
}

func testHash(b byte) chain.Hash {
	var h chain.Hash
	h[0] = b
	return h
}

func testBlockAt(b byte) chain.Block {
	h := testHash(b)
	return chain.NewStateBlock(h, h, chain.ZeroHash, chain.ZeroHash, big.NewInt(1), chain.ZeroHash, [64]byte{}, 0, false)
}

// quorumAtWeight returns a weight/quorum pair where any representative
// carries weight 100 and a single vote of that weight reaches (non-final)
// quorum, so tests can drive an election to StateConfirmed deterministically.
func quorumAtWeight() (election.WeightFunc, election.QuorumFunc) {
	weight := func(chain.Hash) *big.Int { return big.NewInt(100) }
	quorum := func() (*big.Int, *big.Int) { return big.NewInt(50), big.NewInt(100000) }
	return weight, quorum
}

func newTestRegistry(t *testing.T, ledger chain.Ledger, activator Activator) *ActiveElections {
	t.Helper()
	weight, quorum := quorumAtWeight()
	cfg := DefaultConfig()
	ae := New(cfg, ledger, module.NoopVoteSink{}, activator, nil, nil, weight, quorum, zerolog.Nop())
	return ae
}

// TestInsertSuppressedByRecentlyConfirmedCache covers the cache suppression
// scenario: once a root's outcome has been recorded via onElectionConfirmed,
// a later Insert for the same root must be rejected rather than spinning up
// a duplicate election.
func TestInsertSuppressedByRecentlyConfirmedCache(t *testing.T) {
	ledger := chainmock.NewLedger(t)
	ae := newTestRegistry(t, ledger, nil)

	block := testBlockAt(1)
	root := block.QualifiedRoot()

	e, created := ae.Insert(block, election.BehaviorPriority, 0, 1.0)
	require.True(t, created)
	require.NotNil(t, e)

	// Record the outcome directly, the same way a quorum-confirmed
	// election's onConfirmed callback would.
	ae.onElectionConfirmed(root, block.Hash(), false)
	ae.eraseElection(e)

	second, created := ae.Insert(block, election.BehaviorPriority, 0, 1.0)
	require.False(t, created)
	require.Nil(t, second, "a root with a cached outcome must not spin up a new election")
}

// TestBlockCementedClassifiesActiveConfirmedQuorum covers the case where the
// cemented block is the winner of a live election that just reached voting
// quorum: the successor-activation gate must fire for it.
func TestBlockCementedClassifiesActiveConfirmedQuorum(t *testing.T) {
	ledger := chainmock.NewLedger(t)
	activator := &fakeActivator{}
	ae := newTestRegistry(t, ledger, activator)

	block := testBlockAt(1)
	e, created := ae.Insert(block, election.BehaviorPriority, 0, 1.0)
	require.True(t, created)

	require.NoError(t, e.Vote(testHash(0x10), 1, false, []chain.Hash{block.Hash()}))
	require.Equal(t, election.StateConfirmed, e.State())

	sb := chain.SidebandBlock{Block: block, Sideband: chain.Sideband{Height: 5}}
	ledger.On("BlockAmount", fakeReadTx{}, block.Hash()).Return(big.NewInt(400), true, nil)
	ledger.On("CementedCount", fakeReadTx{}).Return(uint64(10), nil)
	ledger.On("BootstrapWeightMaxBlocks", fakeReadTx{}).Return(uint64(1))

	event := ae.BlockCemented(fakeReadTx{}, sb)
	require.Equal(t, cache.ActiveConfirmedQuorum, event.Type)
	require.Equal(t, []chain.Hash{block.Account()}, activator.snapshot())

	_, stillTracked := ae.byRoot[block.QualifiedRoot()]
	require.False(t, stillTracked, "a confirmed-and-cemented election must be erased")
}

// TestBlockCementedClassifiesActiveConfirmationHeight covers the case where
// an election for the root is still live but the cemented block reached the
// ledger by confirmation height rather than voting quorum: the gate must
// still fire, since spec.md treats both as active-path cementation.
func TestBlockCementedClassifiesActiveConfirmationHeight(t *testing.T) {
	ledger := chainmock.NewLedger(t)
	activator := &fakeActivator{}
	ae := newTestRegistry(t, ledger, activator)

	block := testBlockAt(2)
	_, created := ae.Insert(block, election.BehaviorPriority, 0, 1.0)
	require.True(t, created)

	sb := chain.SidebandBlock{Block: block, Sideband: chain.Sideband{Height: 7}}
	ledger.On("BlockAmount", fakeReadTx{}, block.Hash()).Return(big.NewInt(0), false, nil)
	ledger.On("CementedCount", fakeReadTx{}).Return(uint64(10), nil)
	ledger.On("BootstrapWeightMaxBlocks", fakeReadTx{}).Return(uint64(1))

	event := ae.BlockCemented(fakeReadTx{}, sb)
	require.Equal(t, cache.ActiveConfirmationHeight, event.Type)
	require.Equal(t, []chain.Hash{block.Account()}, activator.snapshot())
}

// TestBlockCementedClassifiesInactiveConfirmationHeight covers a cemented
// block with no corresponding live election: the gate must not fire, since
// the account isn't being actively scheduled.
func TestBlockCementedClassifiesInactiveConfirmationHeight(t *testing.T) {
	ledger := chainmock.NewLedger(t)
	activator := &fakeActivator{}
	ae := newTestRegistry(t, ledger, activator)

	block := testBlockAt(3)
	sb := chain.SidebandBlock{Block: block, Sideband: chain.Sideband{Height: 9}}
	ledger.On("BlockAmount", fakeReadTx{}, block.Hash()).Return(big.NewInt(0), false, nil)

	event := ae.BlockCemented(fakeReadTx{}, sb)
	require.Equal(t, cache.InactiveConfirmationHeight, event.Type)
	require.Empty(t, activator.snapshot(), "an inactive cementation must not activate the successor")
}
