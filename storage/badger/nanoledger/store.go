// Package nanoledger implements chain.Ledger over a badger/v2 key-value
// store, grounded on the source's storage/badger package: rows are
// msgpack-encoded and snappy-compressed the way storage/badger/operation's
// codec.go does it, and the store exposes a thin set of operations rather
// than raw row access, the way storage/badger/blocks.go wraps db.Update /
// db.View around named procedures. Write access is additionally serialized
// through module/writequeue, replacing the source's prioritized
// process-wide write-transaction semaphore.
package nanoledger

import (
	"github.com/dgraph-io/badger/v2"

	"github.com/nanolabs/nanod/chain"
	"github.com/nanolabs/nanod/module/writequeue"
)

var _ chain.Ledger = (*Ledger)(nil)

// Ledger is the concrete, badger-backed chain.Ledger. One Ledger is shared
// by the block processor, the confirming set, and every read-only query
// path (bucket scheduler admission checks, RPC, etc., the latter out of
// scope here).
type Ledger struct {
	db         *badger.DB
	writeQueue *writequeue.Queue
	verifier   SignatureVerifier
	work       WorkValidator

	bootstrapWeightMaxBlocks uint64
}

// Option configures a Ledger at construction time.
type Option func(*Ledger)

// WithSignatureVerifier overrides the default Ed25519 verifier, mainly for
// tests that want to skip signature checks on synthetic blocks.
func WithSignatureVerifier(v SignatureVerifier) Option {
	return func(l *Ledger) { l.verifier = v }
}

// WithWorkValidator overrides the default blake2b work-threshold check.
func WithWorkValidator(v WorkValidator) Option {
	return func(l *Ledger) { l.work = v }
}

// WithBootstrapWeightMaxBlocks sets the value BootstrapWeightMaxBlocks
// reports. The ledger keeps no bootstrap weight table: Weight always reads
// the live representative weight cache, whatever this value is.
func WithBootstrapWeightMaxBlocks(height uint64) Option {
	return func(l *Ledger) { l.bootstrapWeightMaxBlocks = height }
}

// New opens a Ledger over db. db's lifecycle (Open/Close) is the caller's
// responsibility; New never closes it.
func New(db *badger.DB, opts ...Option) *Ledger {
	l := &Ledger{
		db:         db,
		writeQueue: writequeue.New(),
		verifier:   Ed25519Verifier{},
		work:       NewBlake2bWorkValidator(defaultWorkThreshold),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}
