package nanoledger

import (
	"math/big"

	"github.com/dgraph-io/badger/v2"

	"github.com/nanolabs/nanod/chain"
)

// Process validates blk against the current ledger state within wtx and,
// on success, writes the block, its derived sideband, and every
// account/pending/representative-weight side effect it implies. It
// mirrors the source's ledger_processor::process_one dispatch over
// process_result, grounded on nano/node/blockprocessor.cpp's status
// handling (the statuses themselves come verbatim from that switch).
func (l *Ledger) Process(wtx chain.WriteTx, blk chain.Block) (chain.BlockStatus, error) {
	txn, err := asWriteTxn(wtx)
	if err != nil {
		return chain.StatusUnknown, err
	}

	if _, exists, err := getBlock(txn, blk.Hash()); err != nil {
		return chain.StatusUnknown, err
	} else if exists {
		return chain.StatusOld, nil
	}

	if !l.verifier.Verify(blk.Account(), blk.Hash(), blk.Signature()) {
		return chain.StatusBadSignature, nil
	}

	if blk.Previous().IsZero() {
		return l.processOpen(txn, blk)
	}
	return l.processContinuation(txn, blk)
}

func (l *Ledger) processOpen(txn *badger.Txn, blk chain.Block) (chain.BlockStatus, error) {
	_, exists, err := getAccount(txn, blk.Account())
	if err != nil {
		return chain.StatusUnknown, err
	}
	if exists {
		// An open already exists for this root; this candidate is a
		// competing fork at the (account, zero) qualified root.
		return chain.StatusFork, nil
	}

	if blk.Account() == chain.ZeroHash {
		return chain.StatusOpenedBurnAccount, nil
	}

	if !l.work.Valid(blk.Account(), blk.Work()) {
		return chain.StatusInsufficientWork, nil
	}

	source := blk.Link()
	pending, found, err := getPending(txn, blk.Account(), source)
	if err != nil {
		return chain.StatusUnknown, err
	}
	if !found {
		return chain.StatusGapSource, nil
	}

	amount, ok := new(big.Int).SetString(pending.Amount, 10)
	if !ok {
		return chain.StatusUnknown, errCorruptPending
	}
	if amount.Cmp(blk.Balance()) != 0 {
		return chain.StatusBalanceMismatch, nil
	}

	if err := deletePending(txn, blk.Account(), source); err != nil {
		return chain.StatusUnknown, err
	}
	if err := addRepWeight(txn, blk.Representative(), blk.Balance()); err != nil {
		return chain.StatusUnknown, err
	}

	newAccount := chain.Account{
		PublicKey:       blk.Account(),
		Head:            blk.Hash(),
		Height:          1,
		Representative:  blk.Representative(),
		Balance:         blk.Balance(),
		ConfirmedHead:   chain.ZeroHash,
		ConfirmedHeight: 0,
		Epoch:           chain.Epoch(pending.Epoch),
		BlockCount:      1,
	}
	if err := putAccount(txn, newAccount); err != nil {
		return chain.StatusUnknown, err
	}

	sb := chain.SidebandBlock{
		Block: blk,
		Sideband: chain.Sideband{
			Height: 1,
			Flags:  chain.Flags{IsReceive: true},
			Epoch:  newAccount.Epoch,
		},
	}
	if err := putBlock(txn, sb); err != nil {
		return chain.StatusUnknown, err
	}
	if err := putSuccessor(txn, blk.QualifiedRoot(), blk.Hash()); err != nil {
		return chain.StatusUnknown, err
	}

	return chain.StatusProgress, nil
}

func (l *Ledger) processContinuation(txn *badger.Txn, blk chain.Block) (chain.BlockStatus, error) {
	account, exists, err := getAccount(txn, blk.Account())
	if err != nil {
		return chain.StatusUnknown, err
	}
	if !exists {
		return chain.StatusGapPrevious, nil
	}

	if blk.Previous() != account.Head {
		if _, prevExists, err := getBlock(txn, blk.Previous()); err != nil {
			return chain.StatusUnknown, err
		} else if !prevExists {
			return chain.StatusGapPrevious, nil
		}

		qr := chain.QualifiedRoot{Root: blk.Previous(), Previous: blk.Previous()}
		successor, occupied, err := getSuccessor(txn, qr)
		if err != nil {
			return chain.StatusUnknown, err
		}
		if occupied && successor != blk.Hash() {
			return chain.StatusFork, nil
		}
		return chain.StatusBlockPosition, nil
	}

	if !l.work.Valid(blk.Previous(), blk.Work()) {
		return chain.StatusInsufficientWork, nil
	}

	switch blk.Type() {
	case chain.TypeSend:
		return l.processSend(txn, blk, account)
	case chain.TypeReceive:
		return l.processReceive(txn, blk, account)
	case chain.TypeChange:
		return l.processChange(txn, blk, account)
	case chain.TypeState:
		return l.processState(txn, blk, account)
	default:
		return chain.StatusUnknown, errUnknownBlockType
	}
}

func (l *Ledger) processSend(txn *badger.Txn, blk chain.Block, account chain.Account) (chain.BlockStatus, error) {
	amount := new(big.Int).Sub(account.Balance, blk.Balance())
	if amount.Sign() < 0 {
		return chain.StatusNegativeSpend, nil
	}
	if blk.Link().IsZero() {
		return chain.StatusUnreceivable, nil
	}

	if err := putPending(txn, blk.Link(), blk.Hash(), amount, account.Epoch); err != nil {
		return chain.StatusUnknown, err
	}
	if err := addRepWeight(txn, account.Representative, new(big.Int).Neg(amount)); err != nil {
		return chain.StatusUnknown, err
	}

	account.Head = blk.Hash()
	account.Height++
	account.Balance = blk.Balance()
	account.BlockCount++
	if err := putAccount(txn, account); err != nil {
		return chain.StatusUnknown, err
	}

	sb := chain.SidebandBlock{
		Block:    blk,
		Sideband: chain.Sideband{Height: account.Height, Flags: chain.Flags{IsSend: true}, Epoch: account.Epoch},
	}
	return l.commitContinuation(txn, blk, sb)
}

func (l *Ledger) processReceive(txn *badger.Txn, blk chain.Block, account chain.Account) (chain.BlockStatus, error) {
	pending, found, err := getPending(txn, account.PublicKey, blk.Link())
	if err != nil {
		return chain.StatusUnknown, err
	}
	if !found {
		return chain.StatusGapSource, nil
	}
	amount, ok := new(big.Int).SetString(pending.Amount, 10)
	if !ok {
		return chain.StatusUnknown, errCorruptPending
	}
	expected := new(big.Int).Add(account.Balance, amount)
	if expected.Cmp(blk.Balance()) != 0 {
		return chain.StatusBalanceMismatch, nil
	}

	if err := deletePending(txn, account.PublicKey, blk.Link()); err != nil {
		return chain.StatusUnknown, err
	}
	if err := addRepWeight(txn, account.Representative, amount); err != nil {
		return chain.StatusUnknown, err
	}

	account.Head = blk.Hash()
	account.Height++
	account.Balance = blk.Balance()
	account.BlockCount++
	if err := putAccount(txn, account); err != nil {
		return chain.StatusUnknown, err
	}

	sb := chain.SidebandBlock{
		Block:    blk,
		Sideband: chain.Sideband{Height: account.Height, Flags: chain.Flags{IsReceive: true}, Epoch: account.Epoch},
	}
	return l.commitContinuation(txn, blk, sb)
}

func (l *Ledger) processChange(txn *badger.Txn, blk chain.Block, account chain.Account) (chain.BlockStatus, error) {
	if blk.Balance().Cmp(account.Balance) != 0 {
		return chain.StatusBalanceMismatch, nil
	}

	oldRep := account.Representative
	if err := addRepWeight(txn, oldRep, new(big.Int).Neg(account.Balance)); err != nil {
		return chain.StatusUnknown, err
	}
	if err := addRepWeight(txn, blk.Representative(), account.Balance); err != nil {
		return chain.StatusUnknown, err
	}

	account.Head = blk.Hash()
	account.Height++
	account.Representative = blk.Representative()
	account.BlockCount++
	if err := putAccount(txn, account); err != nil {
		return chain.StatusUnknown, err
	}

	sb := chain.SidebandBlock{
		Block:    blk,
		Sideband: chain.Sideband{Height: account.Height, Epoch: account.Epoch},
	}
	return l.commitContinuation(txn, blk, sb)
}

// processState dispatches a universal state block to a send/receive/change
// subtype inferred structurally from the balance delta, the way the
// source's state_block_impl::sideband_set determines
// block_details.is_send/is_receive from the signed balance delta rather
// than a subtype tag.
func (l *Ledger) processState(txn *badger.Txn, blk chain.Block, account chain.Account) (chain.BlockStatus, error) {
	state, ok := blk.(*chain.StateBlock)
	if !ok {
		return chain.StatusUnknown, errUnknownBlockType
	}

	if state.IsEpoch() {
		if blk.Balance().Cmp(account.Balance) != 0 {
			return chain.StatusBalanceMismatch, nil
		}
		if blk.Representative() != account.Representative {
			return chain.StatusRepresentativeMismatch, nil
		}
		account.Head = blk.Hash()
		account.Height++
		account.BlockCount++
		if account.Epoch < chain.EpochV2 {
			account.Epoch++
		}
		if err := putAccount(txn, account); err != nil {
			return chain.StatusUnknown, err
		}
		sb := chain.SidebandBlock{
			Block:    blk,
			Sideband: chain.Sideband{Height: account.Height, Flags: chain.Flags{IsEpoch: true}, Epoch: account.Epoch},
		}
		return l.commitContinuation(txn, blk, sb)
	}

	delta := new(big.Int).Sub(blk.Balance(), account.Balance)

	switch delta.Sign() {
	case 1: // receive-like
		pending, found, err := getPending(txn, account.PublicKey, blk.Link())
		if err != nil {
			return chain.StatusUnknown, err
		}
		if !found {
			return chain.StatusGapSource, nil
		}
		amount, ok := new(big.Int).SetString(pending.Amount, 10)
		if !ok {
			return chain.StatusUnknown, errCorruptPending
		}
		if amount.Cmp(delta) != 0 {
			return chain.StatusBalanceMismatch, nil
		}
		if err := deletePending(txn, account.PublicKey, blk.Link()); err != nil {
			return chain.StatusUnknown, err
		}
		if err := l.transferWeight(txn, account, blk.Representative(), blk.Balance()); err != nil {
			return chain.StatusUnknown, err
		}

		account.Head = blk.Hash()
		account.Height++
		account.Balance = blk.Balance()
		account.Representative = blk.Representative()
		account.BlockCount++
		if err := putAccount(txn, account); err != nil {
			return chain.StatusUnknown, err
		}
		sb := chain.SidebandBlock{
			Block:    blk,
			Sideband: chain.Sideband{Height: account.Height, Flags: chain.Flags{IsReceive: true}, Epoch: account.Epoch},
		}
		return l.commitContinuation(txn, blk, sb)

	case -1: // send-like
		if blk.Link().IsZero() {
			return chain.StatusUnreceivable, nil
		}
		amount := new(big.Int).Neg(delta)
		if err := putPending(txn, blk.Link(), blk.Hash(), amount, account.Epoch); err != nil {
			return chain.StatusUnknown, err
		}
		if err := l.transferWeight(txn, account, blk.Representative(), blk.Balance()); err != nil {
			return chain.StatusUnknown, err
		}

		account.Head = blk.Hash()
		account.Height++
		account.Balance = blk.Balance()
		account.Representative = blk.Representative()
		account.BlockCount++
		if err := putAccount(txn, account); err != nil {
			return chain.StatusUnknown, err
		}
		sb := chain.SidebandBlock{
			Block:    blk,
			Sideband: chain.Sideband{Height: account.Height, Flags: chain.Flags{IsSend: true}, Epoch: account.Epoch},
		}
		return l.commitContinuation(txn, blk, sb)

	default: // pure representative change
		if blk.Representative() != account.Representative {
			if err := l.transferWeight(txn, account, blk.Representative(), blk.Balance()); err != nil {
				return chain.StatusUnknown, err
			}
		}
		account.Head = blk.Hash()
		account.Height++
		account.Representative = blk.Representative()
		account.BlockCount++
		if err := putAccount(txn, account); err != nil {
			return chain.StatusUnknown, err
		}
		sb := chain.SidebandBlock{
			Block:    blk,
			Sideband: chain.Sideband{Height: account.Height, Epoch: account.Epoch},
		}
		return l.commitContinuation(txn, blk, sb)
	}
}

// transferWeight moves account's delegated weight from its previous
// representative to newRep, using newBalance as the post-block balance.
func (l *Ledger) transferWeight(txn *badger.Txn, account chain.Account, newRep chain.Hash, newBalance *big.Int) error {
	if account.Representative == newRep {
		delta := new(big.Int).Sub(newBalance, account.Balance)
		return addRepWeight(txn, newRep, delta)
	}
	if err := addRepWeight(txn, account.Representative, new(big.Int).Neg(account.Balance)); err != nil {
		return err
	}
	return addRepWeight(txn, newRep, newBalance)
}

// commitContinuation persists the new block and its sideband, records it
// as the successor at its qualified root, and back-patches the previous
// block's sideband with the successor pointer it just gained — the
// sideband field spec.md describes as "zero until set".
func (l *Ledger) commitContinuation(txn *badger.Txn, blk chain.Block, sb chain.SidebandBlock) (chain.BlockStatus, error) {
	if err := putBlock(txn, sb); err != nil {
		return chain.StatusUnknown, err
	}
	if err := putSuccessor(txn, blk.QualifiedRoot(), blk.Hash()); err != nil {
		return chain.StatusUnknown, err
	}
	if err := setSuccessorPointer(txn, blk.Previous(), blk.Hash()); err != nil {
		return chain.StatusUnknown, err
	}
	return chain.StatusProgress, nil
}

// setSuccessorPointer back-patches predecessor's sideband so it records
// successor as its own successor hash. No-op if predecessor is zero.
func setSuccessorPointer(txn *badger.Txn, predecessor, successor chain.Hash) error {
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
	predSB.Sideband.Successor = successor
	return putBlock(txn, predSB)
}
