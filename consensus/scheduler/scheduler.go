// Package scheduler implements the priority (bucket) scheduler described
// in spec.md §4.6: it partitions "next unconfirmed block" candidates into
// balance-range buckets and feeds the best candidate of each ready bucket
// into Active Elections as a priority-behavior election. Grounded on
// module/mempool's capacity-bounded admission bookkeeping, generalized
// from mempool eviction-by-fee to eviction-by-priority_time, and on
// module/component's dedicated-worker-thread idiom for the scheduler loop
// spec.md §5 calls out as its own thread.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/nanolabs/nanod/chain"
	"github.com/nanolabs/nanod/consensus/activeelections"
	"github.com/nanolabs/nanod/consensus/election"
	"github.com/nanolabs/nanod/module/component"
	"github.com/nanolabs/nanod/module/irrecoverable"
)

// Registry is the subset of Active Elections the scheduler drives.
// Satisfied by *activeelections.ActiveElections; narrowed to an interface
// so this package does not need the registry's full surface.
type Registry interface {
	Insert(block chain.Block, behavior election.Behavior, bucket int, priority float64) (*election.Election, bool)
	Erase(e *election.Election)
	Vacancy(behavior election.Behavior) int
	OnStopped(fn activeelections.StoppedObserver)
}

// PriorityScheduler activates accounts' next unconfirmed block into the
// bucket with the matching balance range, and periodically promotes each
// ready bucket's best candidate into an election.
type PriorityScheduler struct {
	ledger   chain.Ledger
	registry Registry
	buckets  [NumBuckets]*bucket
	config   Config
	log      zerolog.Logger
	cm       *component.ComponentManager
}

// New constructs a priority scheduler over registry. It registers itself
// as registry's stopped-observer so that buckets untrack elections as soon
// as Active Elections erases them — the bucket-local equivalent of
// spec.md §4.6's "erase_callback that unregisters on election end".
func New(config Config, ledger chain.Ledger, registry Registry, log zerolog.Logger) *PriorityScheduler {
	s := &PriorityScheduler{
		ledger:   ledger,
		registry: registry,
		config:   config,
		log:      log.With().Str("component", "priority_scheduler").Logger(),
	}
	for i := range s.buckets {
		s.buckets[i] = newBucket(i, config.BucketCapacity)
	}
	registry.OnStopped(func(e *election.Election) {
		if e.Behavior() != election.BehaviorPriority {
			return
		}
		if e.Bucket() >= 0 && e.Bucket() < NumBuckets {
			s.buckets[e.Bucket()].untrackElection(e)
		}
	})

	cm := component.NewComponentManagerBuilder()
	cm.AddWorker(s.loop)
	s.cm = cm.Build()
	return s
}

func (s *PriorityScheduler) Start(ctx irrecoverable.SignalerContext) { s.cm.Start(ctx) }
func (s *PriorityScheduler) Ready() <-chan struct{}                 { return s.cm.Ready() }
func (s *PriorityScheduler) Done() <-chan struct{}                  { return s.cm.Done() }

// Activate implements activeelections.Activator: it reads account's next
// unconfirmed block from the ledger, classifies it into a balance bucket,
// and pushes it onto that bucket's candidate queue. Called synchronously
// from the cementation bridge's goroutine, so it opens its own short-lived
// read transaction rather than sharing the caller's.
func (s *PriorityScheduler) Activate(account chain.Hash) {
	rtx, err := s.ledger.BeginRead(context.Background())
	if err != nil {
		s.log.Error().Err(err).Msg("could not begin read transaction for activation")
		return
	}
	defer rtx.Discard()

	next, found, err := s.ledger.NextUnconfirmed(rtx, account)
	if err != nil {
		s.log.Error().Err(err).Msg("could not look up next unconfirmed block")
		return
	}
	if !found {
		return
	}

	idx := bucketIndex(next.Block.Balance())
	s.buckets[idx].push(priorityTime(next.Sideband), next)
}

// priorityTime derives the bucket's ranking key from a block's local
// arrival timestamp. spec.md §9 leaves the work-difficulty adjustment term
// unspecified ("intentionally left to the scheduler... reuse the existing
// ledger-provided work-adjusted timestamp helper") and explicitly warns
// against guessing it; no such helper exists anywhere in the retrieved
// source, so this implements only the well-defined arrival-order term
// (lower LocalTimestamp is more urgent) and leaves the work-adjustment
// factor as an identity, documented as an open-question decision rather
// than a guess at the missing formula.
func priorityTime(sb chain.Sideband) float64 {
	return float64(sb.LocalTimestamp)
}

// loop is the scheduler's dedicated thread: once per config.TickInterval,
// call available()+activate() on every bucket with a ready candidate.
func (s *PriorityScheduler) loop(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	ready()
	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			for _, b := range s.buckets {
				if b.available() {
					s.tryActivate(b)
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

// tryActivate pops b's best candidate and hands it to the registry if the
// per-bucket admission policy allows: reserved slots are always allowed;
// beyond that, either the global priority vacancy is positive, or the
// candidate strictly beats the bucket's worst live election (which is then
// cancelled to make room).
func (s *PriorityScheduler) tryActivate(b *bucket) {
	cand, ok := b.peek()
	if !ok {
		return
	}

	admitted := b.liveCount() < s.config.ReservedElections
	if !admitted {
		admitted = s.registry.Vacancy(election.BehaviorPriority) > 0
	}
	var displaced *election.Election
	if !admitted {
		if worst, exists := b.worstLive(); exists && cand.priorityTime < worst.Priority() {
			admitted = true
			displaced = worst
		}
	}
	if !admitted {
		return
	}

	cand, ok = b.pop()
	if !ok {
		return
	}
	if displaced != nil {
		displaced.Cancel()
		s.registry.Erase(displaced)
	}

	e, created := s.registry.Insert(cand.block.Block, election.BehaviorPriority, b.index, cand.priorityTime)
	if created {
		b.trackElection(e)
	}
}
