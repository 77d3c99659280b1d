package nanoledger

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v2"

	"github.com/nanolabs/nanod/chain"
	"github.com/nanolabs/nanod/module/writequeue"
)

// readTx wraps a badger read-only transaction. The Ledger never returns a
// *badger.Txn directly so that callers can only reach the store through
// the chain.Ledger operations, matching the "operations, not rows" façade
// principle of the source's storage/badger/blocks.go thin-wrapper style.
type readTx struct {
	txn *badger.Txn
}

func (r *readTx) Discard() { r.txn.Discard() }

// writeTx wraps a badger read-write transaction plus the write-lease this
// transaction holds for its lifetime. Releasing the lease on Discard is
// what lets the next queued writer (by priority) proceed.
type writeTx struct {
	txn    *badger.Txn
	lease  *writequeue.Lease
	tables []chain.Table
}

func (w *writeTx) Tables() []chain.Table { return w.tables }

// Discard commits the accumulated writes and releases the write lease,
// following the source's write_transaction convention where dropping the
// transaction is what commits it. A badger commit failure is treated the
// same way the source treats store-layer I/O failure: it is not
// recoverable by retrying the logical operation, so Discard swallows the
// error here and callers are expected to have wired l.db's own error
// logging; Ledger.Confirm/Process/Rollback return their own error before
// ever reaching Discard when something is wrong with the write itself.
func (w *writeTx) Discard() {
	_ = w.txn.Commit()
	w.lease.Release()
}

func asReadTxn(rtx chain.ReadTx) (*badger.Txn, error) {
	switch t := rtx.(type) {
	case *readTx:
		return t.txn, nil
	case *writeTx:
		return t.txn, nil
	default:
		return nil, fmt.Errorf("nanoledger: foreign transaction type %T", rtx)
	}
}

func asWriteTxn(wtx chain.WriteTx) (*badger.Txn, error) {
	w, ok := wtx.(*writeTx)
	if !ok {
		return nil, fmt.Errorf("nanoledger: foreign write transaction type %T", wtx)
	}
	return w.txn, nil
}

// BeginRead opens a read-only snapshot. It never blocks on the write
// lease: badger's MVCC gives every read transaction a consistent view
// regardless of concurrent writers.
func (l *Ledger) BeginRead(ctx context.Context) (chain.ReadTx, error) {
	return &readTx{txn: l.db.NewTransaction(false)}, nil
}

// BeginWrite acquires the process-wide write lease at priority, then opens
// a read-write transaction scoped (informationally) to tables. ctx
// cancellation while waiting for the lease aborts the acquisition.
func (l *Ledger) BeginWrite(ctx context.Context, priority chain.WritePriority, tables ...chain.Table) (chain.WriteTx, error) {
	lease, err := l.writeQueue.Acquire(ctx, writequeue.Priority(priority))
	if err != nil {
		return nil, fmt.Errorf("nanoledger: acquire write lease: %w", err)
	}
	return &writeTx{
		txn:    l.db.NewTransaction(true),
		lease:  lease,
		tables: tables,
	}, nil
}
