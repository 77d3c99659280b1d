package confirming

import (
	"github.com/nanolabs/nanod/chain"
	"github.com/nanolabs/nanod/consensus/activeelections"
)

// CementedObserver fires for every block the ledger newly cemented, in
// ledger order within a batch and in batch-submission order across
// batches. Dispatched off a dedicated notification pool, never on the
// cementation write path.
type CementedObserver func(activeelections.CementedEvent)

// AlreadyCementedObserver fires for a hash whose Confirm call returned no
// newly cemented blocks — it (and everything up to its account's
// confirmation height) was already cemented by a prior batch.
type AlreadyCementedObserver func(hash chain.Hash)

// CementationBridge is the core's cementation classification surface,
// implemented by *activeelections.ActiveElections. It must be called
// while rtx is still open over the write transaction that performed the
// cementation, since it reads the ledger for amount/destination context
// and may trigger the next block's scheduling.
type CementationBridge interface {
	BlockCemented(rtx chain.ReadTx, sb chain.SidebandBlock) activeelections.CementedEvent
}
