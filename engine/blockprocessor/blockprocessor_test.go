package blockprocessor

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rs/zerolog"

	"github.com/nanolabs/nanod/chain"
	chainmock "github.com/nanolabs/nanod/chain/mock"
	"github.com/nanolabs/nanod/module/fairqueue"
	"github.com/nanolabs/nanod/module/irrecoverable"
)

// countingMetrics is a hand-rolled module.BlockProcessorMetrics double that
// records call counts instead of discarding them, so tests can assert on
// backpressure and overflow behavior.
type countingMetrics struct {
	mu          sync.Mutex
	overfilled  map[string]int
	processed   int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{overfilled: make(map[string]int)}
}

func (c *countingMetrics) BlockProcessed(status, source string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.processed++
}
func (c *countingMetrics) BlockProcessBlocking()        {}
func (c *countingMetrics) BlockProcessBlockingTimeout() {}
func (c *countingMetrics) BlockOverfilled(source string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overfilled[source]++
}
func (c *countingMetrics) InsufficientWork(source string) {}
func (c *countingMetrics) BlockForced()                   {}
func (c *countingMetrics) QueueOverflow(source string)    {}

func (c *countingMetrics) overfilledCount(source string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.overfilled[source]
}

func testBlock(b byte) chain.Block {
	var account chain.Hash
	account[0] = b
	return chain.NewStateBlock(account, account, chain.ZeroHash, chain.ZeroHash, big.NewInt(1), chain.ZeroHash, [64]byte{}, 0, false)
}

// fakeWriteTx is a zero-sized chain.WriteTx double standing in for the
// ledger's real transaction handle, since these tests exercise the
// engine's queueing and batching, not the ledger's own transaction logic
// (covered separately in storage/badger/nanoledger).
type fakeWriteTx struct{}

func (fakeWriteTx) Tables() []chain.Table { return nil }
func (fakeWriteTx) Discard()              {}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.BlockProcessTimeout = time.Second
	cfg.BatchDeadline = 50 * time.Millisecond
	cfg.PruneInterval = time.Hour
	return cfg
}

// TestAddEnforcesBackpressure covers the backpressure scenario: once a
// source's subqueue is at capacity, further non-blocking submissions are
// rejected and the overfill stat increments, rather than growing the
// queue unbounded.
func TestAddEnforcesBackpressure(t *testing.T) {
	cfg := testConfig()
	cfg.Sources = map[Source]fairqueue.SourceLimits{SourceLive: {MaxSize: 1, Priority: 1}}

	metrics := newCountingMetrics()
	ledger := chainmock.NewLedger(t)
	e := New(zerolog.Nop(), cfg, ledger, metrics, nil, nil, nil)

	require.True(t, e.Add(testBlock(1), SourceLive, ""))
	require.False(t, e.Add(testBlock(2), SourceLive, ""), "second submission should be rejected once the subqueue is full")
	require.Equal(t, 1, metrics.overfilledCount(string(SourceLive)))
}

// TestAddBlockingResolvesSingleValidBlock drives the engine end to end: a
// block submitted via AddBlocking is picked up by the worker, processed
// under one write transaction, and its result delivered back to the
// blocked caller with the ticket correlating the two.
func TestAddBlockingResolvesSingleValidBlock(t *testing.T) {
	cfg := testConfig()
	metrics := newCountingMetrics()
	ledger := chainmock.NewLedger(t)

	block := testBlock(1)
	ledger.On("BeginWrite", context.Background(), chain.PriorityProcessBatch,
		[]chain.Table{chain.TableAccounts, chain.TableBlocks, chain.TableFrontiers, chain.TablePending}).
		Return(fakeWriteTx{}, nil)
	ledger.On("Process", fakeWriteTx{}, block).Return(chain.StatusProgress, nil)
	ledger.On("BlockByHash", fakeWriteTx{}, block.Hash()).
		Return(chain.SidebandBlock{Block: block, Sideband: chain.Sideband{Height: 1}}, true, nil)

	e := New(zerolog.Nop(), cfg, ledger, metrics, nil, nil, nil)

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signalCtx := irrecoverable.NewMockSignalerContext(t, runCtx)
	e.Start(signalCtx)
	<-e.Ready()

	status, ok := e.AddBlocking(context.Background(), block, SourceLive)
	require.True(t, ok)
	require.Equal(t, chain.StatusProgress, status)

	cancel()
	<-e.Done()
}
