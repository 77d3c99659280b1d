package nanoledger

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// defaultWorkThreshold is a placeholder difficulty; production deployments
// set this per network (live/beta/test) from configuration. Work
// generation itself is out of scope; the ledger only validates a
// previously-generated solution.
const defaultWorkThreshold uint64 = 0xffffffc000000000

// WorkValidator checks a block's proof-of-work solution against its root
// (the account's public key for an open block, otherwise the previous
// block's hash).
type WorkValidator interface {
	Valid(root [32]byte, work uint64) bool
}

// blake2bWorkValidator hashes work||root with blake2b-64 and compares the
// result, read as a little-endian uint64, against threshold — the same
// construction the source uses for proof-of-work validation.
type blake2bWorkValidator struct {
	threshold uint64
}

// NewBlake2bWorkValidator constructs a WorkValidator for the given
// difficulty threshold.
func NewBlake2bWorkValidator(threshold uint64) WorkValidator {
	return blake2bWorkValidator{threshold: threshold}
}

func (v blake2bWorkValidator) Valid(root [32]byte, work uint64) bool {
	h, err := blake2b.New(8, nil)
	if err != nil {
		return false
	}
	var workBytes [8]byte
	binary.LittleEndian.PutUint64(workBytes[:], work)
	h.Write(workBytes[:])
	h.Write(root[:])
	sum := h.Sum(nil)
	result := binary.LittleEndian.Uint64(sum)
	return result >= v.threshold
}
