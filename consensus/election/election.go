// Package election implements the per-root voting state machine described
// by the core: a small tally over competing block candidates sharing a
// qualified root, driven by representative votes arriving through the
// external vote router. It is grounded on the shape of
// consensus/hotstuff/vote_collector.go (a per-subject collector that
// accumulates weighted contributions and reports a decision exactly once)
// generalized from HotStuff's view-scoped QC assembly to the Nano family's
// root-scoped, TTL-bounded fork election.
package election

import (
	"math/big"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nanolabs/nanod/chain"
)

// State is a position in the election's forward-only state machine.
type State int

const (
	StatePassive State = iota
	StateActive
	StateConfirmed
	StateExpiredConfirmed
	StateExpiredUnconfirmed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StatePassive:
		return "passive"
	case StateActive:
		return "active"
	case StateConfirmed:
		return "confirmed"
	case StateExpiredConfirmed:
		return "expired_confirmed"
	case StateExpiredUnconfirmed:
		return "expired_unconfirmed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

func isTerminal(s State) bool {
	return s == StateExpiredConfirmed || s == StateExpiredUnconfirmed || s == StateCancelled
}

// Behavior classifies why an election was started, determining which cap
// Active Elections enforces against it.
type Behavior int

const (
	BehaviorManual Behavior = iota
	BehaviorPriority
	BehaviorHinted
	BehaviorOptimistic
)

func (b Behavior) String() string {
	switch b {
	case BehaviorManual:
		return "manual"
	case BehaviorPriority:
		return "priority"
	case BehaviorHinted:
		return "hinted"
	case BehaviorOptimistic:
		return "optimistic"
	default:
		return "unknown"
	}
}

// Status is a point-in-time, lock-free snapshot of an election, safe to
// read and log without racing the election's own mutations.
type Status struct {
	Winner                   chain.Hash
	FinalTally               *big.Int
	BlockCount               int
	VoteCount                int
	Duration                 time.Duration
	ConfirmationRequestCount int
}

// WeightFunc resolves a representative's current delegated voting weight.
// Election takes this as a dependency instead of a ledger handle, keeping
// it ignorant of the storage layer per the "only one direction as strong
// ownership" design note.
type WeightFunc func(representative chain.Hash) *big.Int

// QuorumFunc reports the current (quorum, finalQuorum) weight thresholds,
// derived from total online weight by the caller.
type QuorumFunc func() (quorum, finalQuorum *big.Int)

// ConfirmedFunc is invoked exactly once, outside the election's lock, the
// instant an election reaches quorum.
type ConfirmedFunc func(root chain.QualifiedRoot, winner chain.Hash, final bool)

type repVote struct {
	hash    chain.Hash
	weight  *big.Int
	isFinal bool
}

// Election is the per-root voting state machine. It is created by Active
// Elections on first insert for a root and shared, by reference, with the
// external vote router (keyed by candidate hash) and with callers holding
// handles. All mutation goes through the embedded mutex; Vote and Publish
// invoke callbacks only after releasing it.
type Election struct {
	mu sync.Mutex

	root     chain.QualifiedRoot
	behavior Behavior
	bucket   int
	priority float64

	candidates map[chain.Hash]chain.Block
	tally      map[chain.Hash]*big.Int
	finalTally map[chain.Hash]*big.Int
	votes      map[chain.Hash]repVote // representative -> current contribution

	winner chain.Hash
	state  State
	final  bool

	created       time.Time
	confirmedAt   time.Time
	lastBroadcast time.Time

	voteCount                int
	confirmationRequestCount int

	ttl               time.Duration
	postConfirmLinger time.Duration

	weight      WeightFunc
	quorum      QuorumFunc
	onConfirmed ConfirmedFunc

	log zerolog.Logger
}

// New constructs a passive election over first, the block that triggered
// its creation.
func New(
	root chain.QualifiedRoot,
	first chain.Block,
	behavior Behavior,
	bucket int,
	priority float64,
	ttl, postConfirmLinger time.Duration,
	weight WeightFunc,
	quorum QuorumFunc,
	onConfirmed ConfirmedFunc,
	log zerolog.Logger,
) *Election {
	h := first.Hash()
	return &Election{
		root:              root,
		behavior:          behavior,
		bucket:            bucket,
		priority:          priority,
		candidates:        map[chain.Hash]chain.Block{h: first},
		tally:             map[chain.Hash]*big.Int{h: big.NewInt(0)},
		finalTally:        map[chain.Hash]*big.Int{h: big.NewInt(0)},
		votes:             map[chain.Hash]repVote{},
		winner:            h,
		state:             StatePassive,
		created:           time.Now(),
		ttl:               ttl,
		postConfirmLinger: postConfirmLinger,
		weight:            weight,
		quorum:            quorum,
		onConfirmed:       onConfirmed,
		log:               log.With().Str("qualified_root", root.String()).Logger(),
	}
}

// Activate transitions a passive election directly to active, bypassing
// the request-loop broadcast-timestamp bookkeeping TransitionTime does.
// Used by Active Elections on insert, for the immediate first broadcast
// spec.md describes as happening outside the request loop's cadence.
func (e *Election) Activate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StatePassive {
		e.state = StateActive
	}
}

func (e *Election) Root() chain.QualifiedRoot { return e.root }
func (e *Election) Behavior() Behavior        { return e.behavior }
func (e *Election) Bucket() int               { return e.bucket }

// Priority returns the priority_time the bucket scheduler assigned this
// election at insertion. Lower values are better; the cleanup loop cancels
// the highest (worst) value first when a bucket exceeds its cap.
func (e *Election) Priority() float64 { return e.priority }

// CandidateBlock returns the stored candidate block for hash, if this
// election is tracking it.
func (e *Election) CandidateBlock(hash chain.Hash) (chain.Block, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.candidates[hash]
	return b, ok
}

// Winner returns the current leading candidate's hash and whether its
// confirmation (if any) rests on final votes.
func (e *Election) Winner() (chain.Hash, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.winner, e.final
}

// State returns the election's current state.
func (e *Election) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Status returns a snapshot for logging and statistics.
func (e *Election) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.finalTally[e.winner]
	if t == nil {
		t = big.NewInt(0)
	}
	return Status{
		Winner:                   e.winner,
		FinalTally:               new(big.Int).Set(t),
		BlockCount:               len(e.candidates),
		VoteCount:                e.voteCount,
		Duration:                 time.Since(e.created),
		ConfirmationRequestCount: e.confirmationRequestCount,
	}
}

// Candidates returns a snapshot copy of the current candidate set.
func (e *Election) Candidates() []chain.Block {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]chain.Block, 0, len(e.candidates))
	for _, b := range e.candidates {
		out = append(out, b)
	}
	return out
}

// Publish adds new_block as a candidate if it is a genuine addition (a
// unique hash sharing the root) and the election has not yet confirmed.
// Returns true iff the block was added.
func (e *Election) Publish(block chain.Block) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateConfirmed || isTerminal(e.state) {
		return false
	}
	h := block.Hash()
	if _, exists := e.candidates[h]; exists {
		return false
	}
	e.candidates[h] = block
	e.tally[h] = big.NewInt(0)
	e.finalTally[h] = big.NewInt(0)
	e.recomputeWinner()
	return true
}

// Vote applies a representative's vote for one of hashes, if it names one
// of this election's candidates. Replacing a representative's prior
// contribution on any candidate, since ledger weight is delegated once,
// not per-candidate; a final vote can never be downgraded by a later
// non-final vote from the same representative.
func (e *Election) Vote(representative chain.Hash, timestamp uint64, isFinal bool, hashes []chain.Hash) error {
	e.mu.Lock()

	if isTerminal(e.state) {
		e.mu.Unlock()
		return nil
	}

	var matched chain.Hash
	found := false
	for _, h := range hashes {
		if _, ok := e.candidates[h]; ok {
			matched = h
			found = true
			break
		}
	}
	if !found {
		e.mu.Unlock()
		return nil
	}

	w := e.weight(representative)
	if w == nil || w.Sign() <= 0 {
		e.mu.Unlock()
		return nil
	}

	if prior, ok := e.votes[representative]; ok {
		if prior.isFinal && !isFinal {
			e.mu.Unlock()
			return nil
		}
		e.tally[prior.hash].Sub(e.tally[prior.hash], prior.weight)
		if prior.isFinal {
			e.finalTally[prior.hash].Sub(e.finalTally[prior.hash], prior.weight)
		}
	}
	e.votes[representative] = repVote{hash: matched, weight: w, isFinal: isFinal}
	e.tally[matched].Add(e.tally[matched], w)
	if isFinal {
		e.finalTally[matched].Add(e.finalTally[matched], w)
	}
	e.voteCount++
	e.recomputeWinner()

	newlyConfirmed, winner, final := e.checkQuorum()
	root := e.root
	e.mu.Unlock()

	if newlyConfirmed && e.onConfirmed != nil {
		e.onConfirmed(root, winner, final)
	}
	return nil
}

// recomputeWinner sets winner to the candidate with strictly maximum
// tally, ties broken by the lexicographically smaller hash.
func (e *Election) recomputeWinner() {
	first := true
	var best chain.Hash
	var bestTally *big.Int
	for h, t := range e.tally {
		if first || t.Cmp(bestTally) > 0 || (t.Cmp(bestTally) == 0 && h.Less(best)) {
			best, bestTally, first = h, t, false
		}
	}
	e.winner = best
}

// checkQuorum must be called with the lock held. It returns whether this
// call newly confirmed the election, transitioning state under the lock;
// the caller invokes onConfirmed after releasing it.
func (e *Election) checkQuorum() (newlyConfirmed bool, winner chain.Hash, final bool) {
	if e.state == StateConfirmed {
		return false, chain.ZeroHash, false
	}
	quorum, finalQuorum := e.quorum()
	if ft := e.finalTally[e.winner]; ft != nil && ft.Cmp(finalQuorum) >= 0 {
		e.state, e.final, e.confirmedAt = StateConfirmed, true, time.Now()
		return true, e.winner, true
	}
	if t := e.tally[e.winner]; t != nil && t.Cmp(quorum) >= 0 {
		e.state, e.final, e.confirmedAt = StateConfirmed, false, time.Now()
		return true, e.winner, false
	}
	return false, chain.ZeroHash, false
}

// TransitionTime advances the election's schedule at a request-loop tick.
// It returns true when the caller should erase the election: unconfirmed
// TTL exceeded, or the post-confirmation linger period has elapsed.
func (e *Election) TransitionTime(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateExpiredConfirmed, StateExpiredUnconfirmed, StateCancelled:
		return true
	case StateConfirmed:
		return now.Sub(e.confirmedAt) >= e.postConfirmLinger
	default:
		if now.Sub(e.created) >= e.ttl {
			e.state = StateExpiredUnconfirmed
			return true
		}
		if e.state == StatePassive {
			e.state = StateActive
		}
		e.lastBroadcast = now
		e.confirmationRequestCount++
		return false
	}
}

// ExpireConfirmed transitions a confirmed election to expired_confirmed,
// called by the cementation bridge once the winner has been cemented.
func (e *Election) ExpireConfirmed() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateConfirmed {
		e.state = StateExpiredConfirmed
	}
}

// Cancel terminates the election externally, e.g. by bucket trim.
func (e *Election) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !isTerminal(e.state) {
		e.state = StateCancelled
	}
}
