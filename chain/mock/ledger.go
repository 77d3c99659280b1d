package mock

import (
	"context"
	"math/big"

	"github.com/stretchr/testify/mock"

	"github.com/nanolabs/nanod/chain"
)

// Ledger is a testify mock of chain.Ledger, for engine-level tests that
// exercise orchestration (queueing, batching, observer dispatch) without
// depending on a real storage backend.
type Ledger struct {
	mock.Mock
}

// NewLedger registers t.Cleanup to assert every expectation set on the
// returned mock was met, mirroring mockery's generated constructors.
func NewLedger(t interface {
	mock.TestingT
	Cleanup(func())
}) *Ledger {
	m := &Ledger{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *Ledger) BeginRead(ctx context.Context) (chain.ReadTx, error) {
	args := m.Called(ctx)
	var rtx chain.ReadTx
	if args.Get(0) != nil {
		rtx = args.Get(0).(chain.ReadTx)
	}
	return rtx, args.Error(1)
}

func (m *Ledger) BeginWrite(ctx context.Context, priority chain.WritePriority, tables ...chain.Table) (chain.WriteTx, error) {
	args := m.Called(ctx, priority, tables)
	var wtx chain.WriteTx
	if args.Get(0) != nil {
		wtx = args.Get(0).(chain.WriteTx)
	}
	return wtx, args.Error(1)
}

func (m *Ledger) Process(wtx chain.WriteTx, blk chain.Block) (chain.BlockStatus, error) {
	args := m.Called(wtx, blk)
	return args.Get(0).(chain.BlockStatus), args.Error(1)
}

func (m *Ledger) Rollback(wtx chain.WriteTx, hash chain.Hash) ([]chain.Block, error) {
	args := m.Called(wtx, hash)
	var blocks []chain.Block
	if args.Get(0) != nil {
		blocks = args.Get(0).([]chain.Block)
	}
	return blocks, args.Error(1)
}

func (m *Ledger) Confirm(wtx chain.WriteTx, hash chain.Hash) ([]chain.SidebandBlock, error) {
	args := m.Called(wtx, hash)
	var sbs []chain.SidebandBlock
	if args.Get(0) != nil {
		sbs = args.Get(0).([]chain.SidebandBlock)
	}
	return sbs, args.Error(1)
}

func (m *Ledger) Successor(rtx chain.ReadTx, qr chain.QualifiedRoot) (chain.Block, bool, error) {
	args := m.Called(rtx, qr)
	var blk chain.Block
	if args.Get(0) != nil {
		blk = args.Get(0).(chain.Block)
	}
	return blk, args.Bool(1), args.Error(2)
}

func (m *Ledger) BlockAmount(rtx chain.ReadTx, hash chain.Hash) (*big.Int, bool, error) {
	args := m.Called(rtx, hash)
	var amount *big.Int
	if args.Get(0) != nil {
		amount = args.Get(0).(*big.Int)
	}
	return amount, args.Bool(1), args.Error(2)
}

func (m *Ledger) BlockSource(rtx chain.ReadTx, blk chain.Block) (chain.Hash, error) {
	args := m.Called(rtx, blk)
	return args.Get(0).(chain.Hash), args.Error(1)
}

func (m *Ledger) CementedCount(rtx chain.ReadTx) (uint64, error) {
	args := m.Called(rtx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *Ledger) Weight(rtx chain.ReadTx, account chain.Hash) (*big.Int, error) {
	args := m.Called(rtx, account)
	return args.Get(0).(*big.Int), args.Error(1)
}

func (m *Ledger) BootstrapWeightMaxBlocks(rtx chain.ReadTx) uint64 {
	args := m.Called(rtx)
	return args.Get(0).(uint64)
}

func (m *Ledger) AccountInfo(rtx chain.ReadTx, account chain.Hash) (*chain.Account, bool, error) {
	args := m.Called(rtx, account)
	var a *chain.Account
	if args.Get(0) != nil {
		a = args.Get(0).(*chain.Account)
	}
	return a, args.Bool(1), args.Error(2)
}

func (m *Ledger) BlockByHash(rtx chain.ReadTx, hash chain.Hash) (chain.SidebandBlock, bool, error) {
	args := m.Called(rtx, hash)
	var sb chain.SidebandBlock
	if args.Get(0) != nil {
		sb = args.Get(0).(chain.SidebandBlock)
	}
	return sb, args.Bool(1), args.Error(2)
}

func (m *Ledger) NextUnconfirmed(rtx chain.ReadTx, account chain.Hash) (chain.SidebandBlock, bool, error) {
	args := m.Called(rtx, account)
	var sb chain.SidebandBlock
	if args.Get(0) != nil {
		sb = args.Get(0).(chain.SidebandBlock)
	}
	return sb, args.Bool(1), args.Error(2)
}

var _ chain.Ledger = (*Ledger)(nil)
