package config

import (
	"github.com/spf13/pflag"
)

const (
	dataDir       = "datadir"
	logLevel      = "loglevel"
	metricsPort   = "metrics-port"
	workThreshold = "work-threshold"

	electionsSize                  = "active-elections-size"
	electionsHintedLimitPercentage = "active-elections-hinted-limit-percentage"
	electionsRequestLoopInterval   = "active-elections-request-loop-interval"
	electionsCleanupLoopInterval   = "active-elections-cleanup-loop-interval"

	schedulerBucketCapacity    = "scheduler-bucket-capacity"
	schedulerReservedElections = "scheduler-reserved-elections"
	schedulerTickInterval      = "scheduler-tick-interval"

	blockProcessorBatchDeadline     = "block-processor-batch-deadline"
	blockProcessorMaxWriteBatch     = "block-processor-max-write-batch"
	blockProcessorUncheckedCapacity = "block-processor-unchecked-capacity"
	blockProcessorTimeout           = "block-processor-timeout"

	confirmingBatchTime           = "confirming-batch-time"
	confirmingNotificationWorkers = "confirming-notification-workers"

	quorumOnlineWeightMinimum  = "quorum-online-weight-minimum"
	quorumDeltaPercentage      = "quorum-delta-percentage"
	quorumFinalDeltaPercentage = "quorum-final-delta-percentage"
)

// InitializeFlags registers every node flag against flags, using config
// as the set of defaults — the same role network/netconf.Config plays
// for InitializeNetworkFlags.
func InitializeFlags(flags *pflag.FlagSet, config *Config) {
	flags.String(dataDir, config.Node.DataDir, "directory holding the ledger database")
	flags.String(logLevel, config.Node.LogLevel, "zerolog level (trace, debug, info, warn, error)")
	flags.Uint(metricsPort, config.Node.MetricsPort, "port to serve Prometheus metrics on")
	flags.Uint64(workThreshold, config.Node.WorkThreshold, "minimum acceptable proof-of-work threshold for every block the ledger processes")

	flags.Int(electionsSize, config.ActiveElections.Size, "maximum number of concurrently active elections")
	flags.Int(electionsHintedLimitPercentage, config.ActiveElections.HintedLimitPercentage, "percentage of active-elections-size reserved for hinted elections")
	flags.Duration(electionsRequestLoopInterval, config.ActiveElections.RequestLoopInterval, "interval between confirmation-request broadcast rounds")
	flags.Duration(electionsCleanupLoopInterval, config.ActiveElections.CleanupLoopInterval, "interval between active elections cleanup sweeps")

	flags.Int(schedulerBucketCapacity, config.Scheduler.BucketCapacity, "maximum candidates queued per priority bucket")
	flags.Int(schedulerReservedElections, config.Scheduler.ReservedElections, "elections per bucket always admitted regardless of vacancy")
	flags.Duration(schedulerTickInterval, config.Scheduler.TickInterval, "scheduler admission polling interval")

	flags.Duration(blockProcessorBatchDeadline, config.BlockProcessor.BatchDeadline, "maximum time a block processor write transaction stays open")
	flags.Int(blockProcessorMaxWriteBatch, config.BlockProcessor.MaxWriteBatch, "maximum blocks processed per write transaction")
	flags.Int(blockProcessorUncheckedCapacity, config.BlockProcessor.UncheckedCapacity, "maximum number of distinct unresolved dependencies with blocks held behind them")
	flags.Duration(blockProcessorTimeout, config.BlockProcessor.BlockProcessTimeout, "timeout for a blocking process-and-wait submission")

	flags.Duration(confirmingBatchTime, config.Confirming.BatchTime, "maximum time a confirmation write transaction stays open")
	flags.Int(confirmingNotificationWorkers, config.Confirming.NotificationWorkers, "worker pool size for cementation notification dispatch")

	flags.String(quorumOnlineWeightMinimum, config.Quorum.OnlineWeightMinimum.String(), "floor for the online voting weight estimate used to derive quorum thresholds")
	flags.Int64(quorumDeltaPercentage, config.Quorum.QuorumDeltaPercentage, "percentage of online weight required to confirm an election")
	flags.Int64(quorumFinalDeltaPercentage, config.Quorum.FinalQuorumDeltaPercentage, "percentage of online weight required for final confirmation")
}
