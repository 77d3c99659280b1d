package module

import (
	"time"
)

// BlockProcessorMetrics reports the block processor's observable stats:
// one counter per submission operation plus one per block_status and per
// block_source outcome.
type BlockProcessorMetrics interface {
	BlockProcessed(status string, source string)
	BlockProcessBlocking()
	BlockProcessBlockingTimeout()
	BlockOverfilled(source string)
	InsufficientWork(source string)
	BlockForced()
	QueueOverflow(source string)
}

// ActiveElectionsMetrics reports election lifecycle and registry-capacity
// stats.
type ActiveElectionsMetrics interface {
	ElectionStarted(behavior string)
	ElectionStopped(behavior string, confirmationType string, duration time.Duration)
	ElectionVoted()
	ActiveElectionsCount(behavior string, count int)
}

// ConfirmingSetMetrics reports cementation batch throughput.
type ConfirmingSetMetrics interface {
	BlockCemented()
	BlockAlreadyCemented()
	ConfirmingSetSize(pending int, processing int)
	ConfirmBatchDuration(duration time.Duration)
}
