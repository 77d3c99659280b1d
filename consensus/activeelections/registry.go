// Package activeelections owns the live set of in-flight elections: it
// admits new elections subject to per-behavior caps, drives their
// rebroadcast and cleanup loops, and bridges cementation events back into
// scheduling. Grounded on consensus/hotstuff/vote_collectors.go's registry
// shape (a mutex-guarded map plus request/cleanup workers built on
// module/component) generalized from HotStuff's view-indexed collectors to
// the Nano family's root-indexed, behavior-capped election registry.
package activeelections

import (
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nanolabs/nanod/chain"
	"github.com/nanolabs/nanod/consensus/activeelections/cache"
	"github.com/nanolabs/nanod/consensus/election"
	"github.com/nanolabs/nanod/module"
	"github.com/nanolabs/nanod/module/component"
	"github.com/nanolabs/nanod/module/counters"
	"github.com/nanolabs/nanod/module/irrecoverable"
)

// Activator is the scheduler's activation surface, called by the
// cementation bridge to feed the next unconfirmed block of a just-cemented
// account (and its send destination) back into scheduling. Active
// Elections holds this as a non-owning interface reference rather than a
// concrete scheduler handle, per the cyclic-ownership design note: the
// scheduler owns a strong reference to Active Elections (to call Insert),
// Active Elections holds only this weak callback surface back.
type Activator interface {
	Activate(account chain.Hash)
}

// ConfirmingSet is the cementation pipeline's admission surface. An
// election reaching quorum calls Add to request cementation of its
// winner; Active Elections does not own the confirming set.
type ConfirmingSet interface {
	Add(hash chain.Hash)
}

// PrincipalsFunc resolves the current principal representative set,
// consulted once per request-loop tick.
type PrincipalsFunc func() []chain.Hash

// CementedEvent is published to cemented-block observers once the
// cementation bridge has classified a newly cemented block.
type CementedEvent struct {
	Block       chain.SidebandBlock
	Account     chain.Hash
	Amount      *big.Int
	IsSend      bool
	IsEpoch     bool
	Destination chain.Hash
	Type        cache.ConfirmationType
}

// StartedObserver and StoppedObserver fire when an election is admitted to
// or removed from the registry.
type StartedObserver func(e *election.Election)
type StoppedObserver func(e *election.Election)
type CementedObserver func(CementedEvent)

// ActiveElections is the live election registry.
type ActiveElections struct {
	mu      sync.Mutex
	stopped bool

	config Config

	byRoot map[chain.QualifiedRoot]*election.Election
	byHash map[chain.Hash]*election.Election
	counts map[election.Behavior]int

	recentlyConfirmed *cache.RecentlyConfirmed
	recentlyCemented  *cache.RecentlyCemented

	ledger        chain.Ledger
	voteSink      module.VoteSink
	activator     Activator
	confirmingSet ConfirmingSet
	principals    PrincipalsFunc
	newSolicitor  SolicitorFactory

	weight election.WeightFunc
	quorum election.QuorumFunc

	startedObservers  []StartedObserver
	stoppedObservers  []StoppedObserver
	cementedObservers []CementedObserver

	// highestCementedHeight tracks the tallest sideband height this
	// registry has seen cemented, across every account. Cementation
	// batches can redeliver a height the registry already observed (e.g.
	// after a cache-suppressed reprocess), so this only ever moves up.
	highestCementedHeight *counters.StrictMonotonicCounter

	log zerolog.Logger
	cm  *component.ComponentManager
}

// New constructs Active Elections. voteSink and activator may be
// module.NoopVoteSink{} / nil respectively when running without a live
// vote router or scheduler (e.g. in isolated tests); confirmingSet and
// principals are likewise optional dependencies the caller may defer
// wiring.
func New(
	config Config,
	ledger chain.Ledger,
	voteSink module.VoteSink,
	activator Activator,
	confirmingSet ConfirmingSet,
	principals PrincipalsFunc,
	weight election.WeightFunc,
	quorum election.QuorumFunc,
	log zerolog.Logger,
) *ActiveElections {
	if config.Size < MinSize {
		config.Size = MinSize
	}
	if voteSink == nil {
		voteSink = module.NoopVoteSink{}
	}

	ae := &ActiveElections{
		config:            config,
		byRoot:            make(map[chain.QualifiedRoot]*election.Election),
		byHash:            make(map[chain.Hash]*election.Election),
		counts:            make(map[election.Behavior]int),
		recentlyConfirmed: cache.NewRecentlyConfirmed(config.ConfirmationCache),
		recentlyCemented:  cache.NewRecentlyCemented(config.ConfirmationHistorySize),
		ledger:            ledger,
		voteSink:          voteSink,
		activator:         activator,
		confirmingSet:     confirmingSet,
		principals:        principals,
		weight:                weight,
		quorum:                quorum,
		highestCementedHeight: counters.NewStrictMonotonicCounter(0),
		log:                   log.With().Str("component", "active_elections").Logger(),
	}

	cm := component.NewComponentManagerBuilder()
	cm.AddWorker(ae.requestLoop)
	cm.AddWorker(ae.cleanupLoop)
	ae.cm = cm.Build()
	return ae
}

func (ae *ActiveElections) Start(ctx irrecoverable.SignalerContext) { ae.cm.Start(ctx) }
func (ae *ActiveElections) Ready() <-chan struct{}                 { return ae.cm.Ready() }
func (ae *ActiveElections) Done() <-chan struct{}                  { return ae.cm.Done() }

// SetSolicitorFactory wires the request loop's confirm_req batching. Left
// unset, the request loop still drives every election's transition_time
// but sends nothing, since the gossip transport is out of scope.
func (ae *ActiveElections) SetSolicitorFactory(f SolicitorFactory) { ae.newSolicitor = f }

// SetActivator and SetConfirmingSet wire the scheduler and the
// confirmation pipeline in after construction: the scheduler's own
// constructor takes this registry as its Registry dependency, so the two
// can't be built in a single non-cyclic pass. Deferred wiring, the same
// way SetSolicitorFactory is set after New returns.
func (ae *ActiveElections) SetActivator(a Activator)          { ae.activator = a }
func (ae *ActiveElections) SetConfirmingSet(cs ConfirmingSet) { ae.confirmingSet = cs }

func (ae *ActiveElections) OnStarted(fn StartedObserver)     { ae.startedObservers = append(ae.startedObservers, fn) }
func (ae *ActiveElections) OnStopped(fn StoppedObserver)     { ae.stoppedObservers = append(ae.stoppedObservers, fn) }
func (ae *ActiveElections) OnCemented(fn CementedObserver)   { ae.cementedObservers = append(ae.cementedObservers, fn) }

// HighestCementedHeight returns the tallest per-account sideband height
// cemented so far, across every account this registry has observed.
func (ae *ActiveElections) HighestCementedHeight() uint64 {
	return ae.highestCementedHeight.Value()
}

// limit returns the admission cap for behavior.
func (ae *ActiveElections) limit(behavior election.Behavior) int {
	switch behavior {
	case election.BehaviorManual:
		return -1 // unbounded
	case election.BehaviorPriority:
		return ae.config.Size
	case election.BehaviorHinted:
		return ae.config.Size * ae.config.HintedLimitPercentage / 100
	case election.BehaviorOptimistic:
		return ae.config.Size * ae.config.OptimisticLimitPercentage / 100
	default:
		return 0
	}
}

// Vacancy returns the remaining admission headroom for behavior (its limit
// minus its current count), or 1<<30 for a behavior with no limit (manual).
func (ae *ActiveElections) Vacancy(behavior election.Behavior) int {
	ae.mu.Lock()
	defer ae.mu.Unlock()
	limit := ae.limit(behavior)
	if limit < 0 {
		return 1 << 30
	}
	return limit - ae.counts[behavior]
}

// Insert admits a new election for block's qualified root, subject to the
// no-re-election cache and per-behavior caps. Returns the election (new or
// pre-existing) and whether this call created it.
func (ae *ActiveElections) Insert(block chain.Block, behavior election.Behavior, bucket int, priority float64) (*election.Election, bool) {
	root := block.QualifiedRoot()

	ae.mu.Lock()
	if ae.stopped {
		ae.mu.Unlock()
		return nil, false
	}
	if e, exists := ae.byRoot[root]; exists {
		ae.mu.Unlock()
		return e, false
	}
	if _, hit := ae.recentlyConfirmed.Exists(root); hit {
		ae.mu.Unlock()
		return nil, false
	}
	limit := ae.limit(behavior)
	if limit >= 0 && ae.counts[behavior] >= limit {
		ae.mu.Unlock()
		return nil, false
	}

	e := election.New(root, block, behavior, bucket, priority, ae.config.ElectionTTL, ae.config.PostConfirmLinger, ae.weight, ae.quorum, ae.onElectionConfirmed, ae.log)
	ae.byRoot[root] = e
	ae.byHash[block.Hash()] = e
	ae.counts[behavior]++
	ae.mu.Unlock()

	ae.voteSink.Connect(block.Hash(), e)
	for _, fn := range ae.startedObservers {
		fn(e)
	}
	e.Activate()
	return e, true
}

// Publish forwards block to the election owning its root, adding it as a
// competing fork candidate. Returns false if no such election exists, the
// election has already confirmed, or block is not a genuine addition.
func (ae *ActiveElections) Publish(block chain.Block) bool {
	ae.mu.Lock()
	e, exists := ae.byRoot[block.QualifiedRoot()]
	ae.mu.Unlock()
	if !exists {
		return false
	}
	if !e.Publish(block) {
		return false
	}
	ae.mu.Lock()
	ae.byHash[block.Hash()] = e
	ae.mu.Unlock()
	ae.voteSink.Connect(block.Hash(), e)
	return true
}

// Erase removes e from the registry unconditionally: disconnects e from
// the vote router and fires every stopped observer once with e. Observers
// receive the whole election, not individual candidate hashes, so no
// candidate (the winner included) is singled out; Erase records nothing
// about e's duration and writes nothing to the recently-cemented history.
func (ae *ActiveElections) Erase(e *election.Election) {
	ae.eraseElection(e)
}

// EraseRoot erases the election owning qr, if one is registered. Used by
// the block processor's rollback_competitor: every position vacated by a
// rolled-back chain loses its election except the qualified root the
// incoming block is about to occupy.
func (ae *ActiveElections) EraseRoot(qr chain.QualifiedRoot) {
	ae.mu.Lock()
	e, exists := ae.byRoot[qr]
	ae.mu.Unlock()
	if !exists {
		return
	}
	ae.eraseElection(e)
}

func (ae *ActiveElections) eraseElection(e *election.Election) {
	root := e.Root()

	ae.mu.Lock()
	if _, exists := ae.byRoot[root]; !exists {
		ae.mu.Unlock()
		return
	}
	delete(ae.byRoot, root)
	for h, cand := range ae.byHash {
		if cand == e {
			delete(ae.byHash, h)
		}
	}
	ae.counts[e.Behavior()]--
	ae.mu.Unlock()

	ae.voteSink.Disconnect(e)
	for _, fn := range ae.stoppedObservers {
		fn(e)
	}
}

// onElectionConfirmed is the election.ConfirmedFunc passed to every
// election this registry creates. It records the root as decided (so a
// later Insert for the same root is suppressed) and requests cementation
// of the winner.
func (ae *ActiveElections) onElectionConfirmed(root chain.QualifiedRoot, winner chain.Hash, final bool) {
	ae.recentlyConfirmed.Put(root, winner)
	if ae.confirmingSet != nil {
		ae.confirmingSet.Add(winner)
	}
}

// requestLoop is the "thread A" of spec.md §4.4: once per
// config.RequestLoopInterval, it snapshots the election list and advances
// each election's broadcast schedule.
func (ae *ActiveElections) requestLoop(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	ready()
	ticker := time.NewTicker(ae.config.RequestLoopInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ae.requestTick()
		case <-ctx.Done():
			return
		}
	}
}

func (ae *ActiveElections) requestTick() {
	ae.mu.Lock()
	elections := make([]*election.Election, 0, len(ae.byRoot))
	for _, e := range ae.byRoot {
		elections = append(elections, e)
	}
	ae.mu.Unlock()

	// Priority order: best (lowest priority value) first, matching the
	// bucket scheduler's own ordering of "better candidate" as lower
	// priority_time.
	sort.Slice(elections, func(i, j int) bool {
		return elections[i].Priority() < elections[j].Priority()
	})

	var principals []chain.Hash
	if ae.principals != nil {
		principals = ae.principals()
	}
	var solicitor Solicitor
	if ae.newSolicitor != nil {
		solicitor = ae.newSolicitor(principals)
	} else {
		solicitor = newNoopSolicitor()
	}

	now := time.Now()
	for _, e := range elections {
		if erase := e.TransitionTime(now); erase {
			ae.eraseElection(e)
			continue
		}
		winnerHash, _ := e.Winner()
		if block, ok := e.CandidateBlock(winnerHash); ok {
			solicitor.AddConfirmReq(block, principals)
		}
	}
	solicitor.Flush()
}

// cleanupLoop is "thread B": once per config.CleanupLoopInterval, it trims
// every (priority, bucket) group exceeding config.MaxPerBucket by
// cancelling its worst (highest priority value) elections.
func (ae *ActiveElections) cleanupLoop(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	ready()
	ticker := time.NewTicker(ae.config.CleanupLoopInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ae.trimBuckets()
		case <-ctx.Done():
			return
		}
	}
}

type bucketKey struct {
	behavior election.Behavior
	bucket   int
}

func (ae *ActiveElections) trimBuckets() {
	ae.mu.Lock()
	groups := make(map[bucketKey][]*election.Election)
	for _, e := range ae.byRoot {
		if e.Behavior() != election.BehaviorPriority {
			continue
		}
		k := bucketKey{e.Behavior(), e.Bucket()}
		groups[k] = append(groups[k], e)
	}
	ae.mu.Unlock()

	for _, group := range groups {
		if len(group) <= ae.config.MaxPerBucket {
			continue
		}
		sort.Slice(group, func(i, j int) bool {
			return group[i].Priority() < group[j].Priority()
		})
		for _, e := range group[ae.config.MaxPerBucket:] {
			e.Cancel()
			ae.eraseElection(e)
		}
	}
}

// BlockCemented is the cementation bridge (`block_cemented_callback`),
// invoked by the confirming set once per newly cemented block, in ledger
// order, with rtx still open over the write transaction that performed the
// cementation (any chain.WriteTx satisfies chain.ReadTx).
func (ae *ActiveElections) BlockCemented(rtx chain.ReadTx, sb chain.SidebandBlock) CementedEvent {
	root := sb.Block.QualifiedRoot()

	ae.mu.Lock()
	e, existed := ae.byRoot[root]
	ae.mu.Unlock()

	var (
		confType   cache.ConfirmationType
		finalTally = new(big.Int)
		duration   time.Duration
	)
	switch {
	case existed && e.State() == election.StateConfirmed:
		winnerHash, _ := e.Winner()
		if winnerHash == sb.Block.Hash() {
			confType = cache.ActiveConfirmedQuorum
			status := e.Status()
			finalTally.Set(status.FinalTally)
			duration = status.Duration
			e.ExpireConfirmed()
		} else {
			confType = cache.ActiveConfirmationHeight
			duration = e.Status().Duration
		}
		ae.eraseElection(e)
	case existed:
		confType = cache.ActiveConfirmationHeight
		duration = e.Status().Duration
		ae.eraseElection(e)
	default:
		confType = cache.InactiveConfirmationHeight
	}

	ae.highestCementedHeight.Set(sb.Sideband.Height)

	ae.recentlyCemented.Put(cache.CementedRecord{
		Winner:     sb.Block.Hash(),
		FinalTally: finalTally,
		Type:       confType,
		Duration:   duration,
	})

	event := CementedEvent{
		Block:   sb,
		Account: sb.Block.Account(),
		IsSend:  sb.Sideband.Flags.IsSend,
		IsEpoch: sb.Sideband.Flags.IsEpoch,
		Type:    confType,
	}
	if amount, ok, err := ae.ledger.BlockAmount(rtx, sb.Block.Hash()); err == nil && ok {
		event.Amount = amount
	}
	if sb.Sideband.Flags.IsSend {
		event.Destination = sb.Block.Link()
	}

	for _, fn := range ae.cementedObservers {
		fn(event)
	}

	if (confType == cache.ActiveConfirmedQuorum || confType == cache.ActiveConfirmationHeight) && ae.activator != nil {
		cemented, err := ae.ledger.CementedCount(rtx)
		watermark := ae.ledger.BootstrapWeightMaxBlocks(rtx)
		if err == nil && cemented >= watermark {
			ae.activator.Activate(event.Account)
			if event.IsSend && !event.Destination.IsZero() && event.Destination != event.Account {
				ae.activator.Activate(event.Destination)
			}
		}
	}

	return event
}

// Stop marks the registry stopped: further Insert calls are rejected.
// Component shutdown (worker loops) goes through the ComponentManager via
// the irrecoverable.SignalerContext's cancellation, not through this flag.
func (ae *ActiveElections) Stop() {
	ae.mu.Lock()
	ae.stopped = true
	ae.mu.Unlock()
}
