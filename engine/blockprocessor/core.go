package blockprocessor

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/nanolabs/nanod/chain"
)

// ElectionPublisher is Active Elections' fork-candidate admission surface:
// a status=fork block is handed to the owning election as a competing
// candidate rather than rolled back.
type ElectionPublisher interface {
	Publish(block chain.Block) bool
}

// maxEpochForUncheckedRetry bounds the "below the maximum epoch" clause
// governing the destination-keyed unchecked retry: a send below this
// epoch may still be unblocking a legacy-format receive/open that cannot
// itself carry an epoch tag ahead of its sender.
const maxEpochForUncheckedRetry = chain.EpochV2

// Core holds the single-writer validation logic the worker loop drives
// under one write transaction per batch. It has no knowledge of queues,
// futures, or the worker thread; callers pass it one submission at a time.
type Core struct {
	ledger      chain.Ledger
	publisher   ElectionPublisher
	eraser      ElectionEraser
	voteHistory VoteHistoryPurger
	unchecked   *uncheckedMap

	rolledBackObservers []RolledBackObserver

	log zerolog.Logger
}

func newCore(ledger chain.Ledger, publisher ElectionPublisher, eraser ElectionEraser, voteHistory VoteHistoryPurger, unchecked *uncheckedMap, log zerolog.Logger) *Core {
	if voteHistory == nil {
		voteHistory = noopVoteHistoryPurger{}
	}
	return &Core{
		ledger:      ledger,
		publisher:   publisher,
		eraser:      eraser,
		voteHistory: voteHistory,
		unchecked:   unchecked,
		log:         log.With().Str("component", "block_processor_core").Logger(),
	}
}

func (c *Core) onRolledBack(fn RolledBackObserver) {
	c.rolledBackObservers = append(c.rolledBackObservers, fn)
}

// process validates one block under wtx. On progress it returns the
// blocks retrieved from the unchecked map that should be resubmitted with
// source=unchecked. Store I/O failures are returned as an error; every
// other outcome (including gap/fork statuses) is reported via the
// returned status, never as an error.
func (c *Core) process(wtx chain.WriteTx, block chain.Block, forced bool) (chain.BlockStatus, []chain.Block, error) {
	if forced {
		if err := c.rollbackCompetitor(wtx, block); err != nil {
			return chain.StatusUnknown, nil, err
		}
	}

	status, err := c.ledger.Process(wtx, block)
	if err != nil {
		return status, nil, err
	}

	switch {
	case status.IsGap():
		c.unchecked.Park(gapDependency(block, status), block)
		return status, nil, nil

	case status == chain.StatusFork:
		if c.publisher != nil {
			c.publisher.Publish(block)
		}
		return status, nil, nil

	case status == chain.StatusProgress:
		retriggered := c.unchecked.Take(block.Hash())
		// wtx satisfies chain.ReadTx: the sideband the commit just wrote
		// is visible within the same transaction.
		if sb, ok, err := c.ledger.BlockByHash(wtx, block.Hash()); err == nil && ok {
			if sb.Sideband.Flags.IsSend && sb.Sideband.Epoch < maxEpochForUncheckedRetry {
				retriggered = append(retriggered, c.unchecked.Take(block.Link())...)
			}
		}
		return status, retriggered, nil

	default:
		return status, nil, nil
	}
}

// rollbackCompetitor implements the forced-submission admission rule: if a
// different block already occupies block's qualified root, roll back that
// occupant's successor chain to make room. Every position vacated loses
// its election, except the qualified root block itself is about to
// occupy — that election (if any) continues tracking the fork under its
// new winner.
func (c *Core) rollbackCompetitor(wtx chain.WriteTx, block chain.Block) error {
	qr := block.QualifiedRoot()

	occupant, exists, err := c.ledger.Successor(wtx, qr)
	if err != nil {
		return err
	}
	if !exists || occupant.Hash() == block.Hash() {
		return nil
	}

	removed, err := c.ledger.Rollback(wtx, occupant.Hash())
	if err != nil {
		if errors.Is(err, chain.ErrCemented) {
			c.log.Warn().Str("qualified_root", qr.String()).Msg("refused to roll back cemented competitor")
			return nil
		}
		return err
	}

	for _, b := range removed {
		for _, fn := range c.rolledBackObservers {
			fn(b)
		}
		c.voteHistory.Purge(b.Hash())
		if b.QualifiedRoot() != qr && c.eraser != nil {
			c.eraser.EraseRoot(b.QualifiedRoot())
		}
	}
	return nil
}

// gapDependency returns the hash whose arrival should trigger a retry of
// block, given the gap status ledger.Process reported.
func gapDependency(block chain.Block, status chain.BlockStatus) chain.Hash {
	switch status {
	case chain.StatusGapPrevious:
		return block.Previous()
	case chain.StatusGapSource:
		return block.Link()
	case chain.StatusGapEpochOpenPending:
		return block.Account()
	default:
		return block.Hash()
	}
}
