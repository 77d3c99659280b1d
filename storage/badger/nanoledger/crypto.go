package nanoledger

import "crypto/ed25519"

// SignatureVerifier checks a block's signature against its signing
// account. Ed25519 has no counterpart among the pack's third-party crypto
// stacks (onflow/flow-go/crypto is BLS, btcsuite/go-ethereum are
// secp256k1) — Nano blocks are Ed25519-signed, so this is one of the few
// places the ledger reaches for crypto/ed25519 from the standard library
// rather than a pack dependency; see DESIGN.md.
type SignatureVerifier interface {
	Verify(account, hash [32]byte, signature [64]byte) bool
}

// Ed25519Verifier is the production SignatureVerifier: an account's public
// key is its 32-byte address, and the signature covers the block hash.
type Ed25519Verifier struct{}

func (Ed25519Verifier) Verify(account, hash [32]byte, signature [64]byte) bool {
	return ed25519.Verify(account[:], hash[:], signature[:])
}
