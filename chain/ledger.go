package chain

import (
	"context"
	"math/big"
)

// Table names the write-transaction scopes a caller may request, mirroring
// the underlying store's table set. The tables a write transaction names
// are informational: every write transaction holds the single process-wide
// write lease, whatever its tables; see module/writequeue for the priority
// ordering.
type Table string

const (
	TableAccounts           Table = "accounts"
	TableBlocks             Table = "blocks"
	TableFrontiers          Table = "frontiers"
	TablePending            Table = "pending"
	TableConfirmationHeight Table = "confirmation_height"
)

// ReadTx is a read-only snapshot of the ledger, valid until Discard is
// called.
type ReadTx interface {
	Discard()
}

// WriteTx is an exclusive write lease over the given tables. Discard
// commits the accumulated writes and releases the lease; the transaction
// itself is an opaque handle passed back into the same Ledger instance's
// methods.
type WriteTx interface {
	Tables() []Table
	Discard()
}

// Ledger is the transactional façade the core consumes. Implementations
// (storage/badger/nanoledger) own the on-disk representation; nothing
// outside this package and its implementation knows the table layout.
type Ledger interface {
	// BeginRead acquires a read snapshot. The returned ReadTx must be
	// discarded by the caller.
	BeginRead(ctx context.Context) (ReadTx, error)
	// BeginWrite acquires the exclusive write lease for the given tables,
	// queued by priority as described in module/writequeue. Blocks until
	// granted or ctx is cancelled.
	BeginWrite(ctx context.Context, priority WritePriority, tables ...Table) (WriteTx, error)

	// Process validates and, if accepted, inserts blk with its computed
	// sideband. Never returns an error for a validation outcome; errors
	// are reserved for store I/O failures, which are fatal.
	Process(wtx WriteTx, blk Block) (BlockStatus, error)

	// Rollback undoes hash and every successor of its account chain,
	// returning the removed blocks in reverse (newest-first) order.
	// Returns ErrCemented if any block on the path is already cemented;
	// in that case the ledger is left unchanged.
	Rollback(wtx WriteTx, hash Hash) ([]Block, error)

	// Confirm advances hash's account's confirmation height to at least
	// Height(hash), returning every block newly cemented — including
	// uncemented ancestors in the same account and, for receive/open
	// blocks, implicitly confirmed blocks in source accounts.
	Confirm(wtx WriteTx, hash Hash) ([]SidebandBlock, error)

	// Successor returns the block occupying qr, if any.
	Successor(rtx ReadTx, qr QualifiedRoot) (Block, bool, error)
	// BlockAmount returns the send/receive amount represented by hash,
	// if hash names a send- or receive-like block.
	BlockAmount(rtx ReadTx, hash Hash) (*big.Int, bool, error)
	// BlockSource returns the source block referenced by blk (the
	// pending entry it receives, for receive/open blocks).
	BlockSource(rtx ReadTx, blk Block) (Hash, error)
	// CementedCount returns the total number of cemented blocks across
	// all accounts.
	CementedCount(rtx ReadTx) (uint64, error)
	// Weight returns the delegated voting weight of account.
	Weight(rtx ReadTx, account Hash) (*big.Int, error)
	// BootstrapWeightMaxBlocks returns the height below which bootstrap
	// weights (not live delegation) are authoritative.
	BootstrapWeightMaxBlocks(rtx ReadTx) uint64

	// AccountInfo returns the stored account row for account, if any.
	AccountInfo(rtx ReadTx, account Hash) (*Account, bool, error)
	// BlockByHash retrieves a processed block and its sideband.
	BlockByHash(rtx ReadTx, hash Hash) (SidebandBlock, bool, error)
	// NextUnconfirmed returns the lowest-height uncemented block on
	// account's chain, if any.
	NextUnconfirmed(rtx ReadTx, account Hash) (SidebandBlock, bool, error)
}

// WritePriority orders contention for the single process-wide write
// lease, lowest to highest.
type WritePriority int

const (
	PriorityTesting WritePriority = iota
	PriorityPruning
	PriorityVotingFinal
	PriorityNode
	PriorityConfirmationHeight
	PriorityProcessBatch
	PriorityOnlineWeight
)

func (p WritePriority) String() string {
	switch p {
	case PriorityTesting:
		return "testing"
	case PriorityPruning:
		return "pruning"
	case PriorityVotingFinal:
		return "voting_final"
	case PriorityNode:
		return "node"
	case PriorityConfirmationHeight:
		return "confirmation_height"
	case PriorityProcessBatch:
		return "process_batch"
	case PriorityOnlineWeight:
		return "online_weight"
	default:
		return "unknown"
	}
}
