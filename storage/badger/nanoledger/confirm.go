package nanoledger

import (
	"github.com/dgraph-io/badger/v2"

	"github.com/nanolabs/nanod/chain"
)

// Confirm advances hash's account's confirmation height to at least
// Height(hash). Any uncemented ancestor in the same account is cemented
// along with it, and any receive/open ancestor's source account is
// cemented up to the block it received, cascading across accounts the
// same way the source's confirmation_height_processor walks receive
// chains to guarantee a cemented send is never left with an unconfirmed
// matching receive.
func (l *Ledger) Confirm(wtx chain.WriteTx, hash chain.Hash) ([]chain.SidebandBlock, error) {
	txn, err := asWriteTxn(wtx)
	if err != nil {
		return nil, err
	}
	var cemented []chain.SidebandBlock
	if err := l.confirmUpTo(txn, hash, &cemented); err != nil {
		return nil, err
	}
	return cemented, nil
}

// confirmUpTo cements targetHash and every uncemented ancestor on its
// account's chain back to the current confirmation height, recursing into
// source accounts for receive/open blocks along the way. It is a no-op if
// targetHash is already cemented, which also makes the recursion safe
// against revisiting the same block twice.
func (l *Ledger) confirmUpTo(txn *badger.Txn, targetHash chain.Hash, cemented *[]chain.SidebandBlock) error {
	target, found, err := getBlock(txn, targetHash)
	if err != nil {
		return err
	}
	if !found {
		return chain.ErrNotFound
	}

	account, exists, err := getAccount(txn, target.Block.Account())
	if err != nil {
		return err
	}
	if !exists {
		return chain.ErrNotFound
	}
	if target.Sideband.Height <= account.ConfirmedHeight {
		return nil
	}

	var path []chain.SidebandBlock
	cur := target
	for {
		path = append(path, cur)
		if cur.Sideband.Height <= account.ConfirmedHeight+1 {
			break
		}
		prevHash := cur.Block.Previous()
		if prevHash.IsZero() {
			break
		}
		prevSB, found, err := getBlock(txn, prevHash)
		if err != nil {
			return err
		}
		if !found {
			break
		}
		cur = prevSB
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	for _, item := range path {
		if item.Sideband.Flags.IsReceive {
			if source := item.Block.Link(); !source.IsZero() {
				if err := l.confirmUpTo(txn, source, cemented); err != nil {
					return err
				}
			}
		}

		account.ConfirmedHeight = item.Sideband.Height
		account.ConfirmedHead = item.Block.Hash()
		*cemented = append(*cemented, item)

		count, err := getMetaUint64(txn, metaCementedCount)
		if err != nil {
			return err
		}
		if err := putMetaUint64(txn, metaCementedCount, count+1); err != nil {
			return err
		}
	}
	return putAccount(txn, account)
}
