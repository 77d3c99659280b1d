package confirming

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/nanolabs/nanod/chain"
	chainmock "github.com/nanolabs/nanod/chain/mock"
	"github.com/nanolabs/nanod/consensus/activeelections"
	"github.com/nanolabs/nanod/module/irrecoverable"
)

type noopMetrics struct{}

func (noopMetrics) BlockCemented()                          {}
func (noopMetrics) BlockAlreadyCemented()                   {}
func (noopMetrics) ConfirmingSetSize(pending, processing int) {}
func (noopMetrics) ConfirmBatchDuration(time.Duration)      {}

type fakeWriteTx struct{}

func (fakeWriteTx) Tables() []chain.Table { return nil }
func (fakeWriteTx) Discard()              {}

// fakeBridge records every sideband block it was asked to classify, in
// call order, so tests can assert batch cementation order end to end.
type fakeBridge struct {
	mu    sync.Mutex
	calls []chain.SidebandBlock
}

func (f *fakeBridge) BlockCemented(rtx chain.ReadTx, sb chain.SidebandBlock) activeelections.CementedEvent {
	f.mu.Lock()
	f.calls = append(f.calls, sb)
	f.mu.Unlock()
	return activeelections.CementedEvent{Block: sb, Account: sb.Block.Account()}
}

func (f *fakeBridge) snapshot() []chain.SidebandBlock {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]chain.SidebandBlock, len(f.calls))
	copy(out, f.calls)
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

// TestConfirmingSetCementsInBatchOrder exercises the batch cementation
// order guarantee: hashes added to the set are confirmed in submission
// order within a batch, an already-cemented hash dispatches to the
// already-cemented observer rather than the cemented one, and the
// highest confirmed height advances to the tallest block actually
// cemented.
func TestConfirmingSetCementsInBatchOrder(t *testing.T) {
	ledger := chainmock.NewLedger(t)
	bridge := &fakeBridge{}

	h1, h2, h3 := testHash(1), testHash(2), testHash(3)
	sb1 := chain.SidebandBlock{Block: testBlockAt(1), Sideband: chain.Sideband{Height: 10}}
	sb3 := chain.SidebandBlock{Block: testBlockAt(3), Sideband: chain.Sideband{Height: 20}}

	ledger.On("BeginWrite", context.Background(), chain.PriorityConfirmationHeight,
		[]chain.Table{chain.TableConfirmationHeight}).Return(fakeWriteTx{}, nil)
	ledger.On("Confirm", fakeWriteTx{}, h1).Return([]chain.SidebandBlock{sb1}, nil)
	ledger.On("Confirm", fakeWriteTx{}, h2).Return([]chain.SidebandBlock{}, nil)
	ledger.On("Confirm", fakeWriteTx{}, h3).Return([]chain.SidebandBlock{sb3}, nil)

	cfg := DefaultConfig()
	cfg.BatchTime = time.Second
	s := New(zerolog.Nop(), cfg, ledger, bridge, noopMetrics{})

	var mu sync.Mutex
	var already []chain.Hash
	s.OnCemented(func(activeelections.CementedEvent) {})
	s.OnAlreadyCemented(func(h chain.Hash) {
		mu.Lock()
		already = append(already, h)
		mu.Unlock()
	})

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signalCtx := irrecoverable.NewMockSignalerContext(t, runCtx)
	s.Start(signalCtx)
	<-s.Ready()

	s.Add(h1)
	s.Add(h2)
	s.Add(h3)

	require.Eventually(t, func() bool {
		return len(bridge.snapshot()) == 2
	}, time.Second, 5*time.Millisecond, "both cemented blocks should have reached the bridge")

	calls := bridge.snapshot()
	require.Equal(t, sb1.Block.Hash(), calls[0].Block.Hash(), "h1's cementation must be classified before h3's")
	require.Equal(t, sb3.Block.Hash(), calls[1].Block.Hash())

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(already) == 1
	}, time.Second, 5*time.Millisecond)
	mu.Lock()
	require.Equal(t, h2, already[0])
	mu.Unlock()

	require.Equal(t, uint64(20), s.HighestConfirmedHeight())

	cancel()
	<-s.Done()
}

// TestConfirmingSetAddDeduplicates covers the admission invariant: adding
// the same hash twice while it is still pending is a no-op, not a second
// confirmation attempt.
func TestConfirmingSetAddDeduplicates(t *testing.T) {
	ledger := chainmock.NewLedger(t)
	s := New(zerolog.Nop(), DefaultConfig(), ledger, &fakeBridge{}, noopMetrics{})

	h := testHash(1)
	s.Add(h)
	s.Add(h)
	require.Equal(t, 1, s.Size())
	require.True(t, s.Exists(h))
}
