package chain

import "math/big"

// NewSendBlock constructs a send block debiting amount from the sender's
// chain and crediting the destination account (link).
func NewSendBlock(hash, account, previous, destination Hash, balance *big.Int, signature [64]byte, work uint64) *SendBlock {
	return &SendBlock{base{
		hash: hash, account: account, previous: previous,
		balance: balance, link: destination, signature: signature, work: work,
	}}
}

// NewReceiveBlock constructs a receive block accepting the pending entry
// created by sourceBlock.
func NewReceiveBlock(hash, account, previous, sourceBlock Hash, balance *big.Int, signature [64]byte, work uint64) *ReceiveBlock {
	return &ReceiveBlock{base{
		hash: hash, account: account, previous: previous,
		balance: balance, link: sourceBlock, signature: signature, work: work,
	}}
}

// NewOpenBlock constructs the first block of an account's chain.
func NewOpenBlock(hash, account, sourceBlock, representative Hash, balance *big.Int, signature [64]byte, work uint64) *OpenBlock {
	return &OpenBlock{base{
		hash: hash, account: account, previous: ZeroHash,
		representative: representative, balance: balance, link: sourceBlock,
		signature: signature, work: work,
	}}
}

// NewChangeBlock constructs a representative-change block.
func NewChangeBlock(hash, account, previous, representative Hash, balance *big.Int, signature [64]byte, work uint64) *ChangeBlock {
	return &ChangeBlock{base{
		hash: hash, account: account, previous: previous,
		representative: representative, balance: balance, signature: signature, work: work,
	}}
}
