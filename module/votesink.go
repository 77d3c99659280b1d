package module

import "github.com/nanolabs/nanod/chain"

// Election is the subset of an active election that the external vote
// router is allowed to drive. It mirrors consensus/hotstuff.VoteCollector's
// AddVote in spirit: votes are applied synchronously, by hash, with all
// deduplication and tally bookkeeping handled internally.
type Election interface {
	// Vote applies one incoming vote message to the election. hashes lists
	// every candidate block hash the representative is voting for in this
	// message (normally one, but a representative may echo several
	// historical choices); only hashes this election is tracking as
	// candidates have any effect. isFinal marks a final vote, which
	// supersedes any prior non-final contribution from the same
	// representative and is evaluated against the stricter final quorum.
	Vote(representative chain.Hash, timestamp uint64, isFinal bool, hashes []chain.Hash) error
}

// VoteSink is the registration surface the core exposes to the (external)
// vote router, which looks up elections by block hash and applies tally
// updates to them directly. It is the contract side of the "Vote sinks"
// external interface: the router is out of scope, but where it plugs in is
// not.
type VoteSink interface {
	// Connect registers hash as belonging to election, so that future calls
	// to the router's hash lookup reach election.Vote. Called once per
	// candidate hash, including every losing fork candidate.
	Connect(hash chain.Hash, election Election)

	// Disconnect removes every hash currently registered against election.
	// Called when an election is erased from the registry, whether it
	// confirmed, expired, or was cancelled.
	Disconnect(election Election)
}

// NoopVoteSink discards every registration. Useful for running Active
// Elections without a live vote router, e.g. in tests.
type NoopVoteSink struct{}

func (NoopVoteSink) Connect(hash chain.Hash, election Election) {}
func (NoopVoteSink) Disconnect(election Election)                {}
