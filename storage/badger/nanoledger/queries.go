package nanoledger

import (
	"math/big"

	"github.com/nanolabs/nanod/chain"
)

// Successor returns the block occupying qr, if any.
func (l *Ledger) Successor(rtx chain.ReadTx, qr chain.QualifiedRoot) (chain.Block, bool, error) {
	txn, err := asReadTxn(rtx)
	if err != nil {
		return nil, false, err
	}
	successor, found, err := getSuccessor(txn, qr)
	if err != nil || !found {
		return nil, false, err
	}
	sb, found, err := getBlock(txn, successor)
	if err != nil || !found {
		return nil, false, err
	}
	return sb.Block, true, nil
}

// BlockAmount returns the send/receive amount represented by hash, or
// false if hash does not name a send- or receive-like block.
func (l *Ledger) BlockAmount(rtx chain.ReadTx, hash chain.Hash) (*big.Int, bool, error) {
	txn, err := asReadTxn(rtx)
	if err != nil {
		return nil, false, err
	}
	sb, found, err := getBlock(txn, hash)
	if err != nil || !found {
		return nil, false, err
	}
	if !sb.Sideband.Flags.IsSend && !sb.Sideband.Flags.IsReceive {
		return nil, false, nil
	}
	before, err := blockBalanceBefore(txn, sb.Block.Previous())
	if err != nil {
		return nil, false, err
	}
	if sb.Sideband.Flags.IsSend {
		return new(big.Int).Sub(before, sb.Block.Balance()), true, nil
	}
	return new(big.Int).Sub(sb.Block.Balance(), before), true, nil
}

// BlockSource returns the source block referenced by blk: the pending
// entry a receive or open block consumes. For a non-epoch state block it
// returns the link field whatever the block's subtype, so a state send
// yields its destination and a state change the zero hash. Every other
// block type yields the zero hash.
func (l *Ledger) BlockSource(rtx chain.ReadTx, blk chain.Block) (chain.Hash, error) {
	switch blk.Type() {
	case chain.TypeReceive, chain.TypeOpen:
		return blk.Link(), nil
	case chain.TypeState:
		if state, ok := blk.(*chain.StateBlock); ok && !state.IsEpoch() {
			return blk.Link(), nil
		}
	}
	return chain.ZeroHash, nil
}

// CementedCount returns the total number of cemented blocks across all
// accounts.
func (l *Ledger) CementedCount(rtx chain.ReadTx) (uint64, error) {
	txn, err := asReadTxn(rtx)
	if err != nil {
		return 0, err
	}
	return getMetaUint64(txn, metaCementedCount)
}

// Weight returns the delegated voting weight currently cached for
// account.
func (l *Ledger) Weight(rtx chain.ReadTx, account chain.Hash) (*big.Int, error) {
	txn, err := asReadTxn(rtx)
	if err != nil {
		return nil, err
	}
	return getRepWeight(txn, account)
}

// BootstrapWeightMaxBlocks returns the height below which bootstrap
// weights, not live delegation, are authoritative. This is a static
// deployment parameter rather than a derived store value.
func (l *Ledger) BootstrapWeightMaxBlocks(rtx chain.ReadTx) uint64 {
	return l.bootstrapWeightMaxBlocks
}

// AccountInfo returns the stored account row for account, if any.
func (l *Ledger) AccountInfo(rtx chain.ReadTx, account chain.Hash) (*chain.Account, bool, error) {
	txn, err := asReadTxn(rtx)
	if err != nil {
		return nil, false, err
	}
	a, found, err := getAccount(txn, account)
	if err != nil || !found {
		return nil, false, err
	}
	return &a, true, nil
}

// BlockByHash retrieves a processed block and its sideband.
func (l *Ledger) BlockByHash(rtx chain.ReadTx, hash chain.Hash) (chain.SidebandBlock, bool, error) {
	txn, err := asReadTxn(rtx)
	if err != nil {
		return chain.SidebandBlock{}, false, err
	}
	return getBlock(txn, hash)
}

// NextUnconfirmed returns the lowest-height uncemented block on account's
// chain, found by walking backward from the chain head until reaching
// confirmed_height+1. There is no height index, so this is O(unconfirmed
// depth); the confirming set is expected to keep that depth small.
func (l *Ledger) NextUnconfirmed(rtx chain.ReadTx, account chain.Hash) (chain.SidebandBlock, bool, error) {
	txn, err := asReadTxn(rtx)
	if err != nil {
		return chain.SidebandBlock{}, false, err
	}
	a, found, err := getAccount(txn, account)
	if err != nil || !found {
		return chain.SidebandBlock{}, false, err
	}
	if a.IsConfirmed() {
		return chain.SidebandBlock{}, false, nil
	}

	target := a.ConfirmedHeight + 1
	cur, found, err := getBlock(txn, a.Head)
	if err != nil || !found {
		return chain.SidebandBlock{}, false, err
	}
	for cur.Sideband.Height > target {
		prev, found, err := getBlock(txn, cur.Block.Previous())
		if err != nil {
			return chain.SidebandBlock{}, false, err
		}
		if !found {
			return chain.SidebandBlock{}, false, nil
		}
		cur = prev
	}
	return cur, true, nil
}
