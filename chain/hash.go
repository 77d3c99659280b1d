package chain

import (
	"encoding/hex"
	"fmt"
)

// HashLength is the size in bytes of a block hash, account public key, or
// any other 256-bit identifier used throughout the ledger.
const HashLength = 32

// Hash is a 32-byte content identifier. It is used both for block hashes
// and for account public keys, following the convention of the Nano
// protocol where an account's identity and its first block's root coincide.
type Hash [HashLength]byte

// ZeroHash is the all-zero hash, used as the previous-hash of open blocks
// and as the burn account's public key.
var ZeroHash = Hash{}

// IsZero reports whether h is the all-zero hash.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// String returns the upper-case hex encoding of the hash, matching the
// wire/RPC representation used across the Nano protocol family.
func (h Hash) String() string {
	return fmt.Sprintf("%X", h[:])
}

// Less reports whether h sorts strictly before other under the
// lexicographic byte-order tie-break used for winner determinism.
func (h Hash) Less(other Hash) bool {
	for i := range h {
		if h[i] != other[i] {
			return h[i] < other[i]
		}
	}
	return false
}

// HashFromHex parses the upper- or lower-case hex encoding of a hash.
func HashFromHex(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("could not decode hash hex: %w", err)
	}
	if len(b) != HashLength {
		return h, fmt.Errorf("invalid hash length %d, expected %d", len(b), HashLength)
	}
	copy(h[:], b)
	return h, nil
}

// QualifiedRoot uniquely identifies a fork point: the pair of an account
// root and the previous-hash shared by every block competing at that
// point in the chain.
type QualifiedRoot struct {
	Root     Hash
	Previous Hash
}

// String renders the qualified root for logging.
func (qr QualifiedRoot) String() string {
	return fmt.Sprintf("%s/%s", qr.Root, qr.Previous)
}
