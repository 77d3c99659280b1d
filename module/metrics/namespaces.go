package metrics

// Prometheus namespace/subsystem constants. Every collector in this
// package references one of these by name.
const (
	namespaceConsensus = "consensus"
)

const (
	subsystemActiveElections = "active_elections"
	subsystemBlockProcessor  = "block_processor"
	subsystemConfirmingSet   = "confirming_set"
)
