package nanoledger

import (
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/dgraph-io/badger/v2"

	"github.com/nanolabs/nanod/chain"
)

func getAccount(txn *badger.Txn, account chain.Hash) (chain.Account, bool, error) {
	item, err := txn.Get(accountKey(account))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return chain.Account{}, false, nil
	}
	if err != nil {
		return chain.Account{}, false, err
	}
	var w wireAccount
	err = item.Value(func(val []byte) error { return decode(val, &w) })
	if err != nil {
		return chain.Account{}, false, err
	}
	a, err := w.toAccount()
	if err != nil {
		return chain.Account{}, false, err
	}
	return a, true, nil
}

func putAccount(txn *badger.Txn, a chain.Account) error {
	val, err := encode(toWireAccount(a))
	if err != nil {
		return err
	}
	return txn.Set(accountKey(a.PublicKey), val)
}

func getBlock(txn *badger.Txn, hash chain.Hash) (chain.SidebandBlock, bool, error) {
	item, err := txn.Get(blockKey(hash))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return chain.SidebandBlock{}, false, nil
	}
	if err != nil {
		return chain.SidebandBlock{}, false, err
	}
	var w wireBlock
	err = item.Value(func(val []byte) error { return decode(val, &w) })
	if err != nil {
		return chain.SidebandBlock{}, false, err
	}
	sb, err := w.toSidebandBlock()
	if err != nil {
		return chain.SidebandBlock{}, false, err
	}
	return sb, true, nil
}

func putBlock(txn *badger.Txn, sb chain.SidebandBlock) error {
	val, err := encode(toWireBlock(sb))
	if err != nil {
		return err
	}
	return txn.Set(blockKey(sb.Block.Hash()), val)
}

func deleteBlock(txn *badger.Txn, hash chain.Hash) error {
	return txn.Delete(blockKey(hash))
}

func getPending(txn *badger.Txn, destination, source chain.Hash) (wirePending, bool, error) {
	item, err := txn.Get(pendingKey(destination, source))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return wirePending{}, false, nil
	}
	if err != nil {
		return wirePending{}, false, err
	}
	var p wirePending
	err = item.Value(func(val []byte) error { return decode(val, &p) })
	return p, err == nil, err
}

func putPending(txn *badger.Txn, destination, source chain.Hash, amount *big.Int, epoch chain.Epoch) error {
	val, err := encode(wirePending{Source: source, Amount: amount.String(), Epoch: uint8(epoch)})
	if err != nil {
		return err
	}
	return txn.Set(pendingKey(destination, source), val)
}

func deletePending(txn *badger.Txn, destination, source chain.Hash) error {
	return txn.Delete(pendingKey(destination, source))
}

func getSuccessor(txn *badger.Txn, qr chain.QualifiedRoot) (chain.Hash, bool, error) {
	item, err := txn.Get(successorKey(qr))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return chain.ZeroHash, false, nil
	}
	if err != nil {
		return chain.ZeroHash, false, err
	}
	var h chain.Hash
	err = item.Value(func(val []byte) error {
		copy(h[:], val)
		return nil
	})
	return h, err == nil, err
}

func putSuccessor(txn *badger.Txn, qr chain.QualifiedRoot, successor chain.Hash) error {
	return txn.Set(successorKey(qr), successor[:])
}

func deleteSuccessor(txn *badger.Txn, qr chain.QualifiedRoot) error {
	return txn.Delete(successorKey(qr))
}

func getRepWeight(txn *badger.Txn, representative chain.Hash) (*big.Int, error) {
	item, err := txn.Get(repWeightKey(representative))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}
	weight := new(big.Int)
	err = item.Value(func(val []byte) error {
		if _, ok := weight.SetString(string(val), 10); !ok {
			return errors.New("nanoledger: corrupt representative weight row")
		}
		return nil
	})
	return weight, err
}

// addRepWeight adds delta (which may be negative) to representative's
// cached voting weight.
func addRepWeight(txn *badger.Txn, representative chain.Hash, delta *big.Int) error {
	if delta.Sign() == 0 || representative.IsZero() {
		return nil
	}
	current, err := getRepWeight(txn, representative)
	if err != nil {
		return err
	}
	current.Add(current, delta)
	return txn.Set(repWeightKey(representative), []byte(current.String()))
}

func getMetaUint64(txn *badger.Txn, key []byte) (uint64, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var v uint64
	err = item.Value(func(val []byte) error {
		v = binary.BigEndian.Uint64(val)
		return nil
	})
	return v, err
}

func putMetaUint64(txn *badger.Txn, key []byte, v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return txn.Set(key, buf[:])
}
