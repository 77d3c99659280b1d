package nanoledger

import (
	"math/big"

	"github.com/dgraph-io/badger/v2"

	"github.com/nanolabs/nanod/chain"
)

// Rollback undoes hash and every successor of its account chain, returning
// the removed blocks newest-first — the mirror image of
// rollback_competitor's usage in the block processor's fork-resolution
// path. If any block on the path is already cemented, Rollback returns
// chain.ErrCemented without performing any writes.
func (l *Ledger) Rollback(wtx chain.WriteTx, hash chain.Hash) ([]chain.Block, error) {
	txn, err := asWriteTxn(wtx)
	if err != nil {
		return nil, err
	}

	start, found, err := getBlock(txn, hash)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, chain.ErrNotFound
	}

	account, exists, err := getAccount(txn, start.Block.Account())
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, chain.ErrNotFound
	}
	if start.Sideband.Height <= account.ConfirmedHeight {
		return nil, chain.ErrCemented
	}

	path := []chain.SidebandBlock{start}
	cur := start
	for !cur.Sideband.Successor.IsZero() {
		next, found, err := getBlock(txn, cur.Sideband.Successor)
		if err != nil {
			return nil, err
		}
		if !found {
			break
		}
		path = append(path, next)
		cur = next
	}

	removed := make([]chain.Block, 0, len(path))
	for i := len(path) - 1; i >= 0; i-- {
		item := path[i]
		blk := item.Block

		if blk.Type() == chain.TypeOpen {
			if err := l.undoOpen(txn, account, item); err != nil {
				return nil, err
			}
			if err := deleteBlock(txn, blk.Hash()); err != nil {
				return nil, err
			}
			if err := deleteSuccessor(txn, blk.QualifiedRoot()); err != nil {
				return nil, err
			}
			if err := txn.Delete(accountKey(account.PublicKey)); err != nil {
				return nil, err
			}
		} else {
			if err := l.undoContinuation(txn, &account, item); err != nil {
				return nil, err
			}
			if err := deleteBlock(txn, blk.Hash()); err != nil {
				return nil, err
			}
			if err := deleteSuccessor(txn, blk.QualifiedRoot()); err != nil {
				return nil, err
			}
			if err := clearSuccessorPointer(txn, blk.Previous()); err != nil {
				return nil, err
			}
			if err := putAccount(txn, account); err != nil {
				return nil, err
			}
		}
		removed = append(removed, blk)
	}
	return removed, nil
}

// undoOpen reverses the effects processOpen applied: the representative
// credit and the consumed pending entry. The account row itself is
// deleted by the caller once this returns.
func (l *Ledger) undoOpen(txn *badger.Txn, account chain.Account, item chain.SidebandBlock) error {
	blk := item.Block
	if err := addRepWeight(txn, blk.Representative(), new(big.Int).Neg(blk.Balance())); err != nil {
		return err
	}
	if _, found, err := getPending(txn, blk.Account(), blk.Link()); err != nil {
		return err
	} else if !found {
		return putPending(txn, blk.Account(), blk.Link(), blk.Balance(), account.Epoch)
	}
	return nil
}

// undoContinuation reverses a send/receive/change/state block's effects on
// account in place, leaving account holding the state it had immediately
// before blk was applied.
func (l *Ledger) undoContinuation(txn *badger.Txn, account *chain.Account, item chain.SidebandBlock) error {
	blk := item.Block

	prevBalance, err := blockBalanceBefore(txn, blk.Previous())
	if err != nil {
		return err
	}
	oldRep, err := representativeBefore(txn, blk.Previous())
	if err != nil {
		return err
	}

	switch blk.Type() {
	case chain.TypeSend:
		amount := new(big.Int).Sub(prevBalance, blk.Balance())
		if _, found, err := getPending(txn, blk.Link(), blk.Hash()); err != nil {
			return err
		} else if found {
			if err := deletePending(txn, blk.Link(), blk.Hash()); err != nil {
				return err
			}
		}
		if err := addRepWeight(txn, oldRep, amount); err != nil {
			return err
		}
		account.Balance = prevBalance

	case chain.TypeReceive:
		amount := new(big.Int).Sub(blk.Balance(), prevBalance)
		if err := putPending(txn, account.PublicKey, blk.Link(), amount, account.Epoch); err != nil {
			return err
		}
		if err := addRepWeight(txn, oldRep, new(big.Int).Neg(amount)); err != nil {
			return err
		}
		account.Balance = prevBalance

	case chain.TypeChange:
		newRep := blk.Representative()
		if oldRep != newRep {
			if err := addRepWeight(txn, newRep, new(big.Int).Neg(blk.Balance())); err != nil {
				return err
			}
			if err := addRepWeight(txn, oldRep, blk.Balance()); err != nil {
				return err
			}
		}
		account.Representative = oldRep

	case chain.TypeState:
		if item.Sideband.Flags.IsEpoch {
			if account.Epoch > chain.EpochZero {
				account.Epoch--
			}
		} else {
			newRep := blk.Representative()
			if err := l.inverseTransferWeight(txn, oldRep, newRep, prevBalance, blk.Balance()); err != nil {
				return err
			}
			account.Balance = prevBalance
			account.Representative = oldRep

			switch {
			case item.Sideband.Flags.IsSend:
				if _, found, err := getPending(txn, blk.Link(), blk.Hash()); err != nil {
					return err
				} else if found {
					if err := deletePending(txn, blk.Link(), blk.Hash()); err != nil {
						return err
					}
				}
			case item.Sideband.Flags.IsReceive:
				amount := new(big.Int).Sub(blk.Balance(), prevBalance)
				if err := putPending(txn, account.PublicKey, blk.Link(), amount, account.Epoch); err != nil {
					return err
				}
			}
		}

	default:
		return errUnknownBlockType
	}

	account.Head = blk.Previous()
	account.Height--
	account.BlockCount--
	return nil
}

// inverseTransferWeight reverses transferWeight's effect given the
// representative/balance pair that was in effect before and after the
// block being undone.
func (l *Ledger) inverseTransferWeight(txn *badger.Txn, oldRep, newRep chain.Hash, oldBalance, newBalance *big.Int) error {
	if oldRep == newRep {
		delta := new(big.Int).Sub(newBalance, oldBalance)
		return addRepWeight(txn, newRep, new(big.Int).Neg(delta))
	}
	if err := addRepWeight(txn, oldRep, oldBalance); err != nil {
		return err
	}
	return addRepWeight(txn, newRep, new(big.Int).Neg(newBalance))
}

// blockBalanceBefore returns the balance in effect just before previous's
// successor, i.e. previous's own resulting balance, or zero if previous is
// the zero hash (the block being undone was an open block).
func blockBalanceBefore(txn *badger.Txn, previous chain.Hash) (*big.Int, error) {
	if previous.IsZero() {
		return big.NewInt(0), nil
	}
	sb, found, err := getBlock(txn, previous)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, chain.ErrNotFound
	}
	return sb.Block.Balance(), nil
}

// representativeBefore walks backward from previous until it finds an
// open, change, or state block — the only formats that carry an explicit
// representative — since legacy send/receive blocks never alter it.
func representativeBefore(txn *badger.Txn, previous chain.Hash) (chain.Hash, error) {
	h := previous
	for !h.IsZero() {
		sb, found, err := getBlock(txn, h)
		if err != nil {
			return chain.ZeroHash, err
		}
		if !found {
			return chain.ZeroHash, nil
		}
		switch sb.Block.Type() {
		case chain.TypeOpen, chain.TypeChange, chain.TypeState:
			return sb.Block.Representative(), nil
		}
		h = sb.Block.Previous()
	}
	return chain.ZeroHash, nil
}

// clearSuccessorPointer undoes setSuccessorPointer, removing the
// successor hash a block gained when its (now rolled back) successor was
// committed.
func clearSuccessorPointer(txn *badger.Txn, predecessor chain.Hash) error {
	if predecessor.IsZero() {
		return nil
	}
	predSB, found, err := getBlock(txn, predecessor)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	predSB.Sideband.Successor = chain.ZeroHash
	return putBlock(txn, predSB)
}
