package blockprocessor

import "github.com/nanolabs/nanod/chain"

// ProcessedObserver fires once per submission the worker loop drains,
// after the write transaction that processed it has been committed.
type ProcessedObserver func(block chain.Block, source Source, status chain.BlockStatus)

// RolledBackObserver fires for every block undone by rollback_competitor,
// newest-first, inside the same write transaction as the replacing block's
// own processing.
type RolledBackObserver func(block chain.Block)

// VoteHistoryPurger is the local-vote-cache surface rollback_competitor
// clears a rolled-back block's own-vote record from. The vote generator
// that owns this cache is an external collaborator; this interface keeps
// the block processor ignorant of its implementation, matching the
// scheduler/ActiveElections non-owning interface pattern.
type VoteHistoryPurger interface {
	Purge(hash chain.Hash)
}

// ElectionEraser is the subset of Active Elections rollback_competitor
// needs: erase the election occupying a qualified root so a rolled-back
// fork position stops being tracked, except the root the incoming block
// is about to occupy itself.
type ElectionEraser interface {
	EraseRoot(qr chain.QualifiedRoot)
}

type noopVoteHistoryPurger struct{}

func (noopVoteHistoryPurger) Purge(chain.Hash) {}
