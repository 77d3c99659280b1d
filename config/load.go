package config

import (
	"fmt"
	"math/big"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Load binds flags into conf (already populated by viper.BindPFlags
// against a config file and environment, the way cmd/bootstrap/cmd's
// initConfig wires viper.AutomaticEnv) and returns the resulting Config.
// Unlike network/netconf's alias dance, every flag here maps directly to
// a single config field, so no key-remapping pass is needed.
func Load(conf *viper.Viper, flags *pflag.FlagSet) (Config, error) {
	cfg := DefaultConfig()

	cfg.Node.DataDir = conf.GetString(dataDir)
	cfg.Node.LogLevel = conf.GetString(logLevel)
	cfg.Node.MetricsPort = conf.GetUint(metricsPort)
	cfg.Node.WorkThreshold = conf.GetUint64(workThreshold)

	cfg.ActiveElections.Size = conf.GetInt(electionsSize)
	cfg.ActiveElections.HintedLimitPercentage = conf.GetInt(electionsHintedLimitPercentage)
	cfg.ActiveElections.RequestLoopInterval = conf.GetDuration(electionsRequestLoopInterval)
	cfg.ActiveElections.CleanupLoopInterval = conf.GetDuration(electionsCleanupLoopInterval)

	cfg.Scheduler.BucketCapacity = conf.GetInt(schedulerBucketCapacity)
	cfg.Scheduler.ReservedElections = conf.GetInt(schedulerReservedElections)
	cfg.Scheduler.TickInterval = conf.GetDuration(schedulerTickInterval)

	cfg.BlockProcessor.BatchDeadline = conf.GetDuration(blockProcessorBatchDeadline)
	cfg.BlockProcessor.MaxWriteBatch = conf.GetInt(blockProcessorMaxWriteBatch)
	cfg.BlockProcessor.UncheckedCapacity = conf.GetInt(blockProcessorUncheckedCapacity)
	cfg.BlockProcessor.BlockProcessTimeout = conf.GetDuration(blockProcessorTimeout)

	cfg.Confirming.BatchTime = conf.GetDuration(confirmingBatchTime)
	cfg.Confirming.NotificationWorkers = conf.GetInt(confirmingNotificationWorkers)

	minimum, ok := new(big.Int).SetString(conf.GetString(quorumOnlineWeightMinimum), 10)
	if !ok {
		return Config{}, fmt.Errorf("invalid %s: not a base-10 integer", quorumOnlineWeightMinimum)
	}
	cfg.Quorum.OnlineWeightMinimum = minimum
	cfg.Quorum.QuorumDeltaPercentage = conf.GetInt64(quorumDeltaPercentage)
	cfg.Quorum.FinalQuorumDeltaPercentage = conf.GetInt64(quorumFinalDeltaPercentage)

	return cfg, nil
}
