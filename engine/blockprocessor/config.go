package blockprocessor

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/nanolabs/nanod/module/fairqueue"
)

// Source discriminates a block submission's origin, the key of the fair
// input queue's per-source subqueues.
type Source string

const (
	SourceLive      Source = "live"
	SourceLocal     Source = "local"
	SourceBootstrap Source = "bootstrap"
	SourceForced    Source = "forced"
	SourceUnchecked Source = "unchecked"
)

// Config carries the per-source fair queue limits and worker-loop batching
// parameters.
type Config struct {
	Sources map[Source]fairqueue.SourceLimits

	// BlockProcessTimeout bounds AddBlocking's wait for a result.
	BlockProcessTimeout time.Duration
	// BatchDeadline bounds how long a single write transaction stays open
	// draining the queue before it is committed regardless of how much
	// remains queued.
	BatchDeadline time.Duration
	// MaxWriteBatch caps the number of blocks processed per write
	// transaction even if BatchDeadline has not elapsed.
	MaxWriteBatch int
	// UncheckedCapacity bounds the number of distinct dependency hashes the
	// in-memory unchecked map tracks; once exceeded, the oldest dependency
	// and every block parked behind it are evicted. The number of blocks
	// parked behind one dependency is not bounded.
	UncheckedCapacity int
	// PruneInterval is how often the worker runs the fair queue's Prune
	// sweep. The worker's alive-check reports every source as alive, so the
	// sweep drops no subqueue; submissions are not tracked per channel.
	PruneInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		Sources: map[Source]fairqueue.SourceLimits{
			SourceLive:      {MaxSize: 128, Priority: 1, RateLimit: rate.NewLimiter(rate.Limit(100), 300)},
			SourceLocal:     {MaxSize: 16384, Priority: 16},
			SourceBootstrap: {MaxSize: 16384, Priority: 8},
			SourceForced:    {MaxSize: 16384, Priority: 1},
			SourceUnchecked: {MaxSize: 16384, Priority: 4},
		},
		BlockProcessTimeout: 10 * time.Second,
		BatchDeadline:       250 * time.Millisecond,
		MaxWriteBatch:       256,
		UncheckedCapacity:   65536,
		PruneInterval:       30 * time.Second,
	}
}
