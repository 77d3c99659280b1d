package activeelections

import (
	"github.com/google/uuid"

	"github.com/nanolabs/nanod/chain"
)

// Solicitor batches confirm_req messages for the request loop's periodic
// rebroadcast, addressed to the current set of principal representatives.
// The transport that actually sends these messages is out of scope (the
// gossip layer); this interface is the contract the request loop drives.
type Solicitor interface {
	// AddConfirmReq queues a confirm_req for winner, to be sent to
	// principals once Flush is called.
	AddConfirmReq(winner chain.Block, principals []chain.Hash)
	// Flush sends every queued confirm_req as batched messages, tagged
	// with a fresh batch correlation id, and clears the solicitor's
	// internal buffer.
	Flush()
}

// SolicitorFactory builds a fresh Solicitor for one request-loop tick,
// given the principal representative set current as of that tick.
type SolicitorFactory func(principals []chain.Hash) Solicitor

// noopSolicitor discards every queued confirm_req. It is the default when
// no SolicitorFactory is wired, e.g. in tests that exercise Active
// Elections without a live gossip layer. batchID is assigned on
// construction so callers that do log solicitation activity (a future,
// non-noop SolicitorFactory) have a correlation id to carry from
// AddConfirmReq through to the eventual Flush, even though this
// implementation never sends anything.
type noopSolicitor struct {
	batchID uuid.UUID
}

func newNoopSolicitor() noopSolicitor {
	return noopSolicitor{batchID: uuid.New()}
}

func (noopSolicitor) AddConfirmReq(winner chain.Block, principals []chain.Hash) {}
func (noopSolicitor) Flush()                                                   {}
