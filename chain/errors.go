package chain

import "errors"

// ErrCemented is returned by Ledger.Rollback when the requested rollback
// path includes an already-cemented block. The ledger is guaranteed to be
// left unchanged; callers treat this as fatal for the current attempt
// only, not for the process.
var ErrCemented = errors.New("block already cemented, cannot roll back")

// ErrNotFound is returned by lookups that find nothing, distinguished
// from a store I/O failure.
var ErrNotFound = errors.New("not found")
