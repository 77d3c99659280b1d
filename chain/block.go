package chain

import "math/big"

// Type tags the five historical Nano block formats. State blocks are the
// current universal format; the other four remain for chains opened before
// the state-block upgrade.
type Type uint8

const (
	TypeInvalid Type = iota
	TypeSend
	TypeReceive
	TypeOpen
	TypeChange
	TypeState
)

func (t Type) String() string {
	switch t {
	case TypeSend:
		return "send"
	case TypeReceive:
		return "receive"
	case TypeOpen:
		return "open"
	case TypeChange:
		return "change"
	case TypeState:
		return "state"
	default:
		return "invalid"
	}
}

// Epoch tags the protocol-version of a block, carried in its sideband once
// processed. Epoch upgrades are themselves encoded as ordinary blocks
// signed by the epoch-upgrade account; the ledger enforces that an
// account's epoch tag never decreases.
type Epoch uint8

const (
	EpochZero Epoch = iota
	EpochV1
	EpochV2
)

func (e Epoch) String() string {
	switch e {
	case EpochV1:
		return "epoch_v1"
	case EpochV2:
		return "epoch_v2"
	default:
		return "epoch_0"
	}
}

// Block is the common accessor trait over the tagged union of the five
// block formats. Every concrete block type below implements it. Blocks are
// immutable once constructed; signature and work are set at construction
// time and never mutated.
type Block interface {
	// Hash returns the block's content identifier.
	Hash() Hash
	// Type returns which of the five formats this block is.
	Type() Type
	// Account returns the account this block belongs to.
	Account() Hash
	// Previous returns the hash of the preceding block in the account's
	// chain, or the zero hash for an open block.
	Previous() Hash
	// Root returns Previous() for non-open blocks and Account() for opens.
	Root() Hash
	// QualifiedRoot pairs Root() with Previous() to uniquely identify the
	// fork point this block competes at.
	QualifiedRoot() QualifiedRoot
	// Balance returns the account's resulting balance after this block,
	// as carried explicitly on state/open/change blocks or inferred for
	// legacy blocks from the ledger's amount bookkeeping.
	Balance() *big.Int
	// Representative returns the representative this block delegates
	// voting weight to, or the zero hash if unchanged.
	Representative() Hash
	// Link returns the destination account for sends, the source block
	// hash for receives/opens, or the zero hash otherwise. State blocks
	// overload this field; the ledger disambiguates using sideband-free
	// structural rules (balance delta sign, pending-entry lookup).
	Link() Hash
	// Signature returns the 64-byte Ed25519 signature over the block.
	Signature() [64]byte
	// Work returns the 8-byte proof-of-work solution.
	Work() uint64
}

// base holds the fields common to every block format.
type base struct {
	hash           Hash
	account        Hash
	previous       Hash
	representative Hash
	balance        *big.Int
	link           Hash
	signature      [64]byte
	work           uint64
}

func (b *base) Hash() Hash                   { return b.hash }
func (b *base) Account() Hash                 { return b.account }
func (b *base) Previous() Hash                { return b.previous }
func (b *base) Balance() *big.Int             { return b.balance }
func (b *base) Representative() Hash          { return b.representative }
func (b *base) Link() Hash                    { return b.link }
func (b *base) Signature() [64]byte           { return b.signature }
func (b *base) Work() uint64                  { return b.work }

// SendBlock debits the sender's balance and credits a pending entry on the
// destination account (Link).
type SendBlock struct{ base }

func (b *SendBlock) Type() Type              { return TypeSend }
func (b *SendBlock) Root() Hash               { return b.previous }
func (b *SendBlock) QualifiedRoot() QualifiedRoot {
	return QualifiedRoot{Root: b.previous, Previous: b.previous}
}

// ReceiveBlock accepts a pending entry created by a prior send, identified
// by Link (the send block's hash).
type ReceiveBlock struct{ base }

func (b *ReceiveBlock) Type() Type { return TypeReceive }
func (b *ReceiveBlock) Root() Hash  { return b.previous }
func (b *ReceiveBlock) QualifiedRoot() QualifiedRoot {
	return QualifiedRoot{Root: b.previous, Previous: b.previous}
}

// OpenBlock is the first block of an account's chain; it has no previous
// and roots at the account's own public key.
type OpenBlock struct{ base }

func (b *OpenBlock) Type() Type { return TypeOpen }
func (b *OpenBlock) Root() Hash  { return b.account }
func (b *OpenBlock) QualifiedRoot() QualifiedRoot {
	return QualifiedRoot{Root: b.account, Previous: ZeroHash}
}

// ChangeBlock updates the account's representative without moving funds.
type ChangeBlock struct{ base }

func (b *ChangeBlock) Type() Type { return TypeChange }
func (b *ChangeBlock) Root() Hash  { return b.previous }
func (b *ChangeBlock) QualifiedRoot() QualifiedRoot {
	return QualifiedRoot{Root: b.previous, Previous: b.previous}
}

// StateBlock is the universal format: every state block carries account,
// previous, representative, balance and link, letting the ledger infer
// send/receive/open/change/epoch semantics from structural rules alone.
type StateBlock struct {
	base
	isEpoch bool
}

func (b *StateBlock) Type() Type { return TypeState }
func (b *StateBlock) Root() Hash {
	if b.previous.IsZero() {
		return b.account
	}
	return b.previous
}
func (b *StateBlock) QualifiedRoot() QualifiedRoot {
	return QualifiedRoot{Root: b.Root(), Previous: b.previous}
}

// IsEpoch reports whether this state block is tagged as an epoch-upgrade
// block (link field set to the epoch-specific canonical link value).
func (b *StateBlock) IsEpoch() bool { return b.isEpoch }

// NewStateBlock constructs a state block. Callers are responsible for
// computing Hash from the canonical preimage and for supplying a valid
// Signature/Work; NewStateBlock performs no cryptographic validation
// (that is the Ledger adapter's job during `process`).
func NewStateBlock(hash, account, previous, representative Hash, balance *big.Int, link Hash, signature [64]byte, work uint64, isEpoch bool) *StateBlock {
	return &StateBlock{
		base: base{
			hash:           hash,
			account:        account,
			previous:       previous,
			representative: representative,
			balance:        balance,
			link:           link,
			signature:      signature,
			work:           work,
		},
		isEpoch: isEpoch,
	}
}
