package chain

// Flags records the coarse classification of a processed block, derived
// once by the ledger during `process` and cached in the sideband so
// downstream consumers (the scheduler, the confirming set) never need to
// re-derive it from block content.
type Flags struct {
	IsSend    bool
	IsReceive bool
	IsEpoch   bool
}

// Sideband is the derived metadata every block gains once it has been
// successfully processed into the ledger. It is never present on a block
// before `process` accepts it, and is immutable afterward.
type Sideband struct {
	// Height is the 1-based position of the block within its account's
	// chain; open blocks have height 1.
	Height uint64
	// Successor is the hash of the next block in this account's chain,
	// or the zero hash if this is still the account's head.
	Successor Hash
	// Epoch is the epoch tag in effect at this block.
	Epoch Epoch
	// Flags classifies the block for scheduler/observer consumption.
	Flags Flags
	// LocalTimestamp is the time (as recorded by this node) the block
	// first reached `progress`, used to derive the scheduler's
	// work-adjusted priority_time.
	LocalTimestamp uint64
}

// SidebandBlock pairs a Block with its derived Sideband. This is the shape
// the Ledger adapter and the Confirming Set pass around once a block has
// entered the ledger.
type SidebandBlock struct {
	Block    Block
	Sideband Sideband
}
