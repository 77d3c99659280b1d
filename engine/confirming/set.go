// Package confirming implements the Confirming Set: the cementation
// pipeline that serializes confirmation-height advancement into batched
// ledger writes and publishes the resulting notifications asynchronously.
// Grounded on the Active Elections registry's mutex-guarded admission set
// plus request loop shape, with the notification fan-out split onto a
// github.com/gammazero/workerpool pool the way the source's timeout
// aggregator tests drive their own callback dispatch off the critical
// path.
package confirming

import (
	"context"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/rs/zerolog"

	"github.com/nanolabs/nanod/chain"
	"github.com/nanolabs/nanod/consensus/activeelections"
	"github.com/nanolabs/nanod/module"
	"github.com/nanolabs/nanod/module/component"
	"github.com/nanolabs/nanod/module/counters"
	"github.com/nanolabs/nanod/module/irrecoverable"
)

// Set is the confirming set: pending/processing hash sets plus the
// worker that drains pending into batched Ledger.Confirm calls.
type Set struct {
	component.Component
	cm *component.ComponentManager

	mu              sync.Mutex
	pendingOrder    []chain.Hash
	pendingSet      map[chain.Hash]struct{}
	processingOrder []chain.Hash
	processingSet   map[chain.Hash]struct{}

	notify chan struct{}

	config  Config
	ledger  chain.Ledger
	bridge  CementationBridge
	metrics module.ConfirmingSetMetrics
	pool    *workerpool.WorkerPool

	cementedObservers []CementedObserver
	alreadyObservers  []AlreadyCementedObserver

	// highestConfirmedHeight tracks the tallest sideband height cemented
	// by any batch this set has run, for diagnostics and for tests that
	// assert batch cementation order (ascending per account, but never
	// regressing across the whole set).
	highestConfirmedHeight *counters.StrictMonotonicCounter

	log zerolog.Logger
}

func New(log zerolog.Logger, config Config, ledger chain.Ledger, bridge CementationBridge, metrics module.ConfirmingSetMetrics) *Set {
	s := &Set{
		pendingSet:             make(map[chain.Hash]struct{}),
		processingSet:          make(map[chain.Hash]struct{}),
		notify:                 make(chan struct{}, 1),
		config:                 config,
		ledger:                 ledger,
		bridge:                 bridge,
		metrics:                metrics,
		pool:                   workerpool.New(config.NotificationWorkers),
		highestConfirmedHeight: counters.NewStrictMonotonicCounter(0),
		log:                    log.With().Str("component", "confirming_set").Logger(),
	}

	cm := component.NewComponentManagerBuilder()
	cm.AddWorker(s.loop)
	s.cm = cm.Build()
	s.Component = s.cm
	return s
}

func (s *Set) Ready() <-chan struct{} { return s.cm.Ready() }
func (s *Set) Done() <-chan struct{}  { return s.cm.Done() }

func (s *Set) OnCemented(fn CementedObserver)               { s.cementedObservers = append(s.cementedObservers, fn) }
func (s *Set) OnAlreadyCemented(fn AlreadyCementedObserver) { s.alreadyObservers = append(s.alreadyObservers, fn) }

// HighestConfirmedHeight returns the tallest sideband height cemented by
// any batch this set has run so far.
func (s *Set) HighestConfirmedHeight() uint64 {
	return s.highestConfirmedHeight.Value()
}

// Add implements activeelections.ConfirmingSet: inserts hash into pending
// (no-op if already pending or processing) and signals the worker.
func (s *Set) Add(hash chain.Hash) {
	s.mu.Lock()
	if _, exists := s.pendingSet[hash]; exists {
		s.mu.Unlock()
		return
	}
	if _, exists := s.processingSet[hash]; exists {
		s.mu.Unlock()
		return
	}
	s.pendingSet[hash] = struct{}{}
	s.pendingOrder = append(s.pendingOrder, hash)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Exists reports whether hash is awaiting or undergoing confirmation.
func (s *Set) Exists(hash chain.Hash) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, pending := s.pendingSet[hash]
	_, processing := s.processingSet[hash]
	return pending || processing
}

// Size returns the combined pending and processing count.
func (s *Set) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pendingSet) + len(s.processingSet)
}

func (s *Set) loop(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	ready()
	for {
		select {
		case <-ctx.Done():
			s.pool.StopWait()
			return
		case <-s.notify:
			s.runBatch(ctx)
		}
	}
}

// runBatch swaps pending into processing, then drains processing across
// as many write transactions as config.BatchTime requires, committing
// (discarding) each before opening the next.
func (s *Set) runBatch(ctx irrecoverable.SignalerContext) {
	s.mu.Lock()
	if len(s.pendingOrder) == 0 {
		s.mu.Unlock()
		return
	}
	s.processingOrder = s.pendingOrder
	s.processingSet = s.pendingSet
	s.pendingOrder = nil
	s.pendingSet = make(map[chain.Hash]struct{})
	s.mu.Unlock()

	idx := 0
	for idx < len(s.processingOrder) {
		wtx, err := s.ledger.BeginWrite(context.Background(), chain.PriorityConfirmationHeight, chain.TableConfirmationHeight)
		if err != nil {
			s.log.Error().Err(err).Msg("could not acquire write lease for confirmation batch")
			return
		}

		start := time.Now()
		deadline := start.Add(s.config.BatchTime)
		var events []activeelections.CementedEvent
		var already []chain.Hash

		for idx < len(s.processingOrder) && time.Now().Before(deadline) {
			h := s.processingOrder[idx]
			idx++

			cemented, err := s.ledger.Confirm(wtx, h)
			if err != nil {
				wtx.Discard()
				ctx.Throw(err)
				return
			}
			if len(cemented) == 0 {
				already = append(already, h)
				continue
			}
			for _, sb := range cemented {
				s.highestConfirmedHeight.Set(sb.Sideband.Height)
				events = append(events, s.bridge.BlockCemented(wtx, sb))
			}
		}
		wtx.Discard()

		s.metrics.ConfirmBatchDuration(time.Since(start))
		for range events {
			s.metrics.BlockCemented()
		}
		for range already {
			s.metrics.BlockAlreadyCemented()
		}
		s.dispatch(events, already)
	}

	s.mu.Lock()
	s.processingOrder = nil
	s.processingSet = make(map[chain.Hash]struct{})
	pendingLen := len(s.pendingSet)
	s.mu.Unlock()
	s.metrics.ConfirmingSetSize(pendingLen, 0)
}

func (s *Set) dispatch(events []activeelections.CementedEvent, already []chain.Hash) {
	s.pool.Submit(func() {
		for _, event := range events {
			for _, fn := range s.cementedObservers {
				fn(event)
			}
		}
		for _, h := range already {
			for _, fn := range s.alreadyObservers {
				fn(h)
			}
		}
	})
}
