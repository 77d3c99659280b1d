package chain

import "math/big"

// Account is the ledger's view of a single account: its chain head,
// current representative/balance, and how far that chain has been
// cemented. The Ledger adapter persists this as the canonical row of the
// `accounts` table; callers never mutate it directly.
type Account struct {
	PublicKey      Hash
	Head           Hash
	Height         uint64
	Representative Hash
	Balance        *big.Int
	// ConfirmedHead/ConfirmedHeight mark the highest cemented point of
	// this account's chain. ConfirmedHeight is non-decreasing for the
	// lifetime of the account (spec invariant: confirmation monotonicity).
	ConfirmedHead   Hash
	ConfirmedHeight uint64
	Epoch           Epoch
	BlockCount      uint64
}

// IsConfirmed reports whether the account's entire known chain has been
// cemented.
func (a *Account) IsConfirmed() bool {
	return a.ConfirmedHeight >= a.Height
}
