// Package blockprocessor implements the single-writer block validation
// pipeline: a fair-priority input queue feeding a worker thread that
// batches submissions under one ledger write transaction, performs
// forced-submission rollback, and publishes per-block outcomes. Grounded
// on engine/execution/provider/engine.go's ComponentManager-worker engine
// shape, generalized from its chunk-data-pack request queue to
// module/fairqueue's source-partitioned admission policy.
package blockprocessor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nanolabs/nanod/chain"
	"github.com/nanolabs/nanod/module"
	"github.com/nanolabs/nanod/module/component"
	"github.com/nanolabs/nanod/module/fairqueue"
	"github.com/nanolabs/nanod/module/irrecoverable"
)

type submission struct {
	block   chain.Block
	forced  bool
	ticket  uuid.UUID
	result  chan chain.BlockStatus
}

// WorkValidator is an optional pre-queue admission check (e.g. the
// work-proof difficulty table); the work-proof generator itself is an
// external collaborator, so this is a narrow, swappable interface rather
// than a concrete dependency. Nil means every submission reaches the
// ledger's own work check.
type WorkValidator interface {
	Valid(block chain.Block) bool
}

// Engine is the block processor: owns the fair input queue and the
// single worker thread that drains it under the ledger's write lease.
type Engine struct {
	component.Component
	cm *component.ComponentManager

	log     zerolog.Logger
	config  Config
	ledger  chain.Ledger
	metrics module.BlockProcessorMetrics
	core    *Core

	queue  *fairqueue.Queue[*submission, Source]
	notify chan struct{}

	workValidator WorkValidator

	processedObservers []ProcessedObserver
}

// New constructs a block processor engine. publisher and eraser may be
// nil (no fork-publication or election-eviction wiring, e.g. in
// isolation tests); voteHistory defaults to a no-op purger.
func New(
	log zerolog.Logger,
	config Config,
	ledger chain.Ledger,
	metrics module.BlockProcessorMetrics,
	publisher ElectionPublisher,
	eraser ElectionEraser,
	voteHistory VoteHistoryPurger,
) *Engine {
	e := &Engine{
		log:     log.With().Str("engine", "block_processor").Logger(),
		config:  config,
		ledger:  ledger,
		metrics: metrics,
		notify:  make(chan struct{}, 1),
	}
	unchecked := newUncheckedMap(config.UncheckedCapacity)
	e.core = newCore(ledger, publisher, eraser, voteHistory, unchecked, e.log)
	e.core.onRolledBack(func(b chain.Block) { e.log.Debug().Str("hash", b.Hash().String()).Msg("rolled back competitor block") })

	e.queue = fairqueue.New[*submission, Source](func(source Source) fairqueue.SourceLimits {
		if limits, ok := config.Sources[source]; ok {
			return limits
		}
		return fairqueue.SourceLimits{MaxSize: 16384, Priority: 4}
	})

	cm := component.NewComponentManagerBuilder()
	cm.AddWorker(e.worker)
	e.cm = cm.Build()
	e.Component = e.cm
	return e
}

func (e *Engine) Ready() <-chan struct{} { return e.cm.Ready() }
func (e *Engine) Done() <-chan struct{}  { return e.cm.Done() }

func (e *Engine) OnBlockProcessed(fn ProcessedObserver) {
	e.processedObservers = append(e.processedObservers, fn)
}

func (e *Engine) OnRolledBack(fn RolledBackObserver) {
	e.core.onRolledBack(fn)
}

// Add enqueues block non-blocking. Returns false (incrementing the
// appropriate stat) if the work proof is invalid or the source subqueue
// is full.
func (e *Engine) Add(block chain.Block, source Source, channel string) bool {
	if e.workValidator != nil && !e.workValidator.Valid(block) {
		e.metrics.InsufficientWork(string(source))
		return false
	}
	ok := e.queue.Push(source, &submission{block: block})
	if !ok {
		e.metrics.BlockOverfilled(string(source))
		return false
	}
	e.signal()
	return true
}

// AddBlocking enqueues block and waits up to config.BlockProcessTimeout
// for its processing result. A uuid ticket, logged on timeout here and by
// drainBatch when it resolves the submission, correlates the two log
// lines; the ticket is not returned to the caller.
func (e *Engine) AddBlocking(ctx context.Context, block chain.Block, source Source) (chain.BlockStatus, bool) {
	e.metrics.BlockProcessBlocking()
	ticket := uuid.New()
	result := make(chan chain.BlockStatus, 1)
	ok := e.queue.Push(source, &submission{block: block, ticket: ticket, result: result})
	if !ok {
		e.metrics.BlockOverfilled(string(source))
		return chain.StatusUnknown, false
	}
	e.signal()

	timeout := e.config.BlockProcessTimeout
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case status := <-result:
		return status, true
	case <-timer.C:
		e.metrics.BlockProcessBlockingTimeout()
		e.log.Debug().Str("ticket", ticket.String()).Msg("blocking submission timed out")
		return chain.StatusUnknown, false
	case <-ctx.Done():
		return chain.StatusUnknown, false
	}
}

// Force enqueues block as a forced submission: rollback_competitor runs
// before validation, evicting whatever currently occupies block's
// qualified root.
func (e *Engine) Force(block chain.Block) {
	e.metrics.BlockForced()
	if !e.queue.Push(SourceForced, &submission{block: block, forced: true}) {
		// A forced submission bypasses the normal admission rules, so
		// losing one to backpressure is the more severe overload signal
		// distinct from an ordinary source's overfill.
		e.metrics.QueueOverflow(string(SourceForced))
		return
	}
	e.signal()
}

func (e *Engine) signal() {
	select {
	case e.notify <- struct{}{}:
	default:
	}
}

func (e *Engine) worker(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	ready()
	pruneTicker := time.NewTicker(e.config.PruneInterval)
	defer pruneTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-pruneTicker.C:
			e.queue.Prune(func(Source) bool { return true })
		case <-e.notify:
			e.drainBatch(ctx)
			if e.queue.Len() > 0 {
				e.signal()
			}
		}
	}
}

// drainBatch opens one write transaction and processes submissions until
// the queue empties, the batch deadline elapses, or MaxWriteBatch is
// reached — then commits by discarding the transaction.
func (e *Engine) drainBatch(ctx irrecoverable.SignalerContext) {
	wtx, err := e.ledger.BeginWrite(context.Background(), chain.PriorityProcessBatch,
		chain.TableAccounts, chain.TableBlocks, chain.TableFrontiers, chain.TablePending)
	if err != nil {
		e.log.Error().Err(err).Msg("could not acquire write lease for batch")
		return
	}
	defer wtx.Discard()

	deadline := time.Now().Add(e.config.BatchDeadline)
	count := 0
	for count < e.config.MaxWriteBatch && time.Now().Before(deadline) {
		sub, source, ok := e.queue.Next()
		if !ok {
			break
		}
		count++

		status, retriggered, err := e.core.process(wtx, sub.block, sub.forced)
		if err != nil {
			// Store I/O failure: fatal, per the core's error semantics.
			// An irrecoverable error here aborts this component rather
			// than returning a bogus status to the caller.
			ctx.Throw(err)
			return
		}

		e.metrics.BlockProcessed(status.String(), string(source))
		for _, fn := range e.processedObservers {
			fn(sub.block, source, status)
		}
		if sub.result != nil {
			e.log.Debug().Str("ticket", sub.ticket.String()).Str("status", status.String()).Msg("resolved blocking submission")
			sub.result <- status
		}
		for _, rb := range retriggered {
			e.queue.Push(SourceUnchecked, &submission{block: rb})
		}
	}
}
