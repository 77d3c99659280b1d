// Package config aggregates the node's subsystem configuration structs
// and binds them to CLI flags and a viper-loaded config file, the same
// split network/netconf uses for the networking layer: a plain struct
// with defaults, a flags.go that registers pflag overrides against it,
// and a loader that lets environment variables and a config file win
// over the compiled-in defaults.
package config

import (
	"math/big"

	"github.com/nanolabs/nanod/consensus/activeelections"
	"github.com/nanolabs/nanod/consensus/quorum"
	"github.com/nanolabs/nanod/consensus/scheduler"
	"github.com/nanolabs/nanod/engine/blockprocessor"
	"github.com/nanolabs/nanod/engine/confirming"
)

// NodeConfig holds the options that are not owned by any one subsystem:
// where the ledger lives on disk, how verbose logging is, and the
// work-proof difficulty the node enforces on every block it processes.
type NodeConfig struct {
	DataDir  string
	LogLevel string
	// MetricsPort is the port module/metrics.Server serves /metrics on.
	MetricsPort uint
	// WorkThreshold is the minimum acceptable proof-of-work difficulty,
	// expressed the way storage/badger/nanoledger.NewBlake2bWorkValidator
	// takes it: work is valid when its blake2b work hash, read as a
	// little-endian uint64, is at least this value.
	WorkThreshold uint64
}

// Config is the complete set of node configuration, one field per
// subsystem plus the node-level options above.
type Config struct {
	Node            NodeConfig
	ActiveElections activeelections.Config
	Scheduler       scheduler.Config
	BlockProcessor  blockprocessor.Config
	Confirming      confirming.Config
	Quorum          quorum.Config
}

func DefaultConfig() Config {
	return Config{
		Node: NodeConfig{
			DataDir:       "./data",
			LogLevel:      "info",
			MetricsPort:   9091,
			WorkThreshold: 0xffffffc000000000,
		},
		ActiveElections: activeelections.DefaultConfig(),
		Scheduler:       scheduler.DefaultConfig(),
		BlockProcessor:  blockprocessor.DefaultConfig(),
		Confirming:      confirming.DefaultConfig(),
		Quorum:          defaultQuorumConfig(),
	}
}

// defaultQuorumConfig seeds OnlineWeightMinimum at zero; operators of a
// live network set it via --quorum-online-weight-minimum to the floor
// their own network publishes, the same role Nano's
// online_weight_minimum setting plays.
func defaultQuorumConfig() quorum.Config {
	c := quorum.DefaultConfig()
	c.OnlineWeightMinimum = big.NewInt(0)
	return c
}
