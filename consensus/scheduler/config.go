package scheduler

import "time"

// NumBuckets is the number of balance-range buckets, partitioned by
// floor(log2(balance)) per spec.md §4.6's example partitioning.
const NumBuckets = 63

// Config holds the priority (bucket) scheduler's tunables. Unlike
// consensus/activeelections.Config, none of these fields are named in the
// external configuration surface spec.md §6 enumerates; they are internal
// scheduler parameters left to the implementation.
type Config struct {
	// BucketCapacity bounds each bucket's ordered candidate queue.
	BucketCapacity int
	// ReservedElections is the per-bucket count of elections always
	// admitted regardless of global vacancy.
	ReservedElections int
	// TickInterval is the scheduler loop's polling period.
	TickInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		BucketCapacity:    64,
		ReservedElections: 1,
		TickInterval:      100 * time.Millisecond,
	}
}
