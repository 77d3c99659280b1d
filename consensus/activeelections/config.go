package activeelections

import "time"

// Config holds the `active_elections` configuration section described in
// spec.md §6.
type Config struct {
	// Size is the priority-behavior election cap.
	Size int
	// HintedLimitPercentage and OptimisticLimitPercentage scale Size into
	// the caps for the hinted and optimistic behaviors.
	HintedLimitPercentage     int
	OptimisticLimitPercentage int
	// ConfirmationHistorySize bounds the recently-cemented ring.
	ConfirmationHistorySize int
	// ConfirmationCache bounds the recently-confirmed ring.
	ConfirmationCache int
	// MaxPerBucket is the cleanup loop's per-(behavior=priority, bucket)
	// trim threshold.
	MaxPerBucket int

	// RequestLoopInterval is the request loop's tick period. The source
	// halves this internally for its scheduling granularity; callers
	// should already pass the halved value if they want to match it
	// exactly.
	RequestLoopInterval time.Duration
	// CleanupLoopInterval is the cleanup loop's tick period (spec.md: once
	// per second).
	CleanupLoopInterval time.Duration

	// ElectionTTL bounds how long an unconfirmed election may live.
	ElectionTTL time.Duration
	// PostConfirmLinger bounds how long a confirmed-but-not-yet-cemented
	// election is kept around before forced erase.
	PostConfirmLinger time.Duration
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Size:                      5000,
		HintedLimitPercentage:     20,
		OptimisticLimitPercentage: 10,
		ConfirmationHistorySize:   2048,
		ConfirmationCache:         65536,
		MaxPerBucket:              4,
		RequestLoopInterval:       500 * time.Millisecond,
		CleanupLoopInterval:       time.Second,
		ElectionTTL:               5 * time.Minute,
		PostConfirmLinger:         2 * time.Second,
	}
}

// MinSize is the minimum allowed value of Size; smaller configured values
// are clamped up to it.
const MinSize = 250
