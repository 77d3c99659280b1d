// Package quorum derives the election package's quorum and final-quorum
// weight thresholds from the network's online voting weight. Tracking
// which representatives are currently online is itself out of scope (it
// depends on the gossip transport and peer table, §1's external
// collaborators); this package takes online weight as a configured floor,
// the same role Nano's own online_weight_minimum setting plays when the
// network is small or just starting.
package quorum

import (
	"math/big"

	"github.com/nanolabs/nanod/consensus/election"
)

// Config carries the quorum derivation parameters (glossary: "quorum
// delta").
type Config struct {
	// OnlineWeightMinimum floors the online-weight estimate used to
	// derive quorum thresholds, so a network with few active voters
	// still reaches consensus rather than requiring a fraction of a
	// weight total nobody is delegating live.
	OnlineWeightMinimum *big.Int
	// QuorumDeltaPercentage is the fraction of online weight a normal
	// vote tally must reach to confirm an election.
	QuorumDeltaPercentage int64
	// FinalQuorumDeltaPercentage is the stricter fraction a final-vote
	// tally must reach.
	FinalQuorumDeltaPercentage int64
}

func DefaultConfig() Config {
	return Config{
		OnlineWeightMinimum:        big.NewInt(0),
		QuorumDeltaPercentage:      67,
		FinalQuorumDeltaPercentage: 80,
	}
}

// OnlineWeightFunc resolves the network's current online voting weight
// estimate; the caller (cmd/nanod) is responsible for whatever external
// mechanism feeds it, defaulting to config.OnlineWeightMinimum when none
// is wired.
type OnlineWeightFunc func() *big.Int

// New builds an election.QuorumFunc deriving both thresholds from
// onlineWeight() at the moment each election checks quorum, floored at
// config.OnlineWeightMinimum.
func New(config Config, onlineWeight OnlineWeightFunc) election.QuorumFunc {
	if onlineWeight == nil {
		onlineWeight = func() *big.Int { return config.OnlineWeightMinimum }
	}
	return func() (*big.Int, *big.Int) {
		total := onlineWeight()
		if total == nil || total.Cmp(config.OnlineWeightMinimum) < 0 {
			total = config.OnlineWeightMinimum
		}
		return percentOf(total, config.QuorumDeltaPercentage), percentOf(total, config.FinalQuorumDeltaPercentage)
	}
}

func percentOf(total *big.Int, pct int64) *big.Int {
	result := new(big.Int).Mul(total, big.NewInt(pct))
	return result.Div(result, big.NewInt(100))
}
