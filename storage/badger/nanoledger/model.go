package nanoledger

import (
	"fmt"
	"math/big"

	"github.com/nanolabs/nanod/chain"
)

// wireBlock is the on-disk encoding of a chain.Block plus its sideband. The
// domain model keeps block kinds as distinct Go types (chain.Block
// implementations); the store needs one flat shape to round-trip through
// msgpack, so wireBlock flattens every field the five block kinds use and
// reconstructs the right concrete type on load.
type wireBlock struct {
	Type            uint8
	Hash            [32]byte
	Account         [32]byte
	Previous        [32]byte
	Representative  [32]byte
	Balance         string
	Link            [32]byte
	Signature       [64]byte
	Work            uint64
	IsEpoch         bool
	Height          uint64
	Successor       [32]byte
	Epoch           uint8
	FlagIsSend      bool
	FlagIsReceive   bool
	FlagIsEpoch     bool
	LocalTimestamp  uint64
}

func toWireBlock(sb chain.SidebandBlock) wireBlock {
	b := sb.Block
	var isEpoch bool
	if s, ok := b.(*chain.StateBlock); ok {
		isEpoch = s.IsEpoch()
	}
	return wireBlock{
		Type:           uint8(b.Type()),
		Hash:           b.Hash(),
		Account:        b.Account(),
		Previous:       b.Previous(),
		Representative: b.Representative(),
		Balance:        b.Balance().String(),
		Link:           b.Link(),
		Signature:      b.Signature(),
		Work:           b.Work(),
		IsEpoch:        isEpoch,
		Height:         sb.Sideband.Height,
		Successor:      sb.Sideband.Successor,
		Epoch:          uint8(sb.Sideband.Epoch),
		FlagIsSend:     sb.Sideband.Flags.IsSend,
		FlagIsReceive:  sb.Sideband.Flags.IsReceive,
		FlagIsEpoch:    sb.Sideband.Flags.IsEpoch,
		LocalTimestamp: sb.Sideband.LocalTimestamp,
	}
}

func (w wireBlock) toSidebandBlock() (chain.SidebandBlock, error) {
	balance, ok := new(big.Int).SetString(w.Balance, 10)
	if !ok {
		return chain.SidebandBlock{}, fmt.Errorf("corrupt balance %q for block %x", w.Balance, w.Hash)
	}

	var blk chain.Block
	switch chain.Type(w.Type) {
	case chain.TypeSend:
		blk = chain.NewSendBlock(w.Hash, w.Account, w.Previous, w.Link, balance, w.Signature, w.Work)
	case chain.TypeReceive:
		blk = chain.NewReceiveBlock(w.Hash, w.Account, w.Previous, w.Link, balance, w.Signature, w.Work)
	case chain.TypeOpen:
		blk = chain.NewOpenBlock(w.Hash, w.Account, w.Link, w.Representative, balance, w.Signature, w.Work)
	case chain.TypeChange:
		blk = chain.NewChangeBlock(w.Hash, w.Account, w.Previous, w.Representative, balance, w.Signature, w.Work)
	case chain.TypeState:
		blk = chain.NewStateBlock(w.Hash, w.Account, w.Previous, w.Representative, balance, w.Link, w.Signature, w.Work, w.IsEpoch)
	default:
		return chain.SidebandBlock{}, fmt.Errorf("unknown block type %d for block %x", w.Type, w.Hash)
	}

	return chain.SidebandBlock{
		Block: blk,
		Sideband: chain.Sideband{
			Height:    w.Height,
			Successor: w.Successor,
			Epoch:     chain.Epoch(w.Epoch),
			Flags: chain.Flags{
				IsSend:    w.FlagIsSend,
				IsReceive: w.FlagIsReceive,
				IsEpoch:   w.FlagIsEpoch,
			},
			LocalTimestamp: w.LocalTimestamp,
		},
	}, nil
}

// wireAccount is the on-disk encoding of a chain.Account.
type wireAccount struct {
	PublicKey       [32]byte
	Head            [32]byte
	Height          uint64
	Representative  [32]byte
	Balance         string
	ConfirmedHead   [32]byte
	ConfirmedHeight uint64
	Epoch           uint8
	BlockCount      uint64
}

func toWireAccount(a chain.Account) wireAccount {
	return wireAccount{
		PublicKey:       a.PublicKey,
		Head:            a.Head,
		Height:          a.Height,
		Representative:  a.Representative,
		Balance:         a.Balance.String(),
		ConfirmedHead:   a.ConfirmedHead,
		ConfirmedHeight: a.ConfirmedHeight,
		Epoch:           uint8(a.Epoch),
		BlockCount:      a.BlockCount,
	}
}

func (w wireAccount) toAccount() (chain.Account, error) {
	balance, ok := new(big.Int).SetString(w.Balance, 10)
	if !ok {
		return chain.Account{}, fmt.Errorf("corrupt balance %q for account %x", w.Balance, w.PublicKey)
	}
	return chain.Account{
		PublicKey:       w.PublicKey,
		Head:            w.Head,
		Height:          w.Height,
		Representative:  w.Representative,
		Balance:         balance,
		ConfirmedHead:   w.ConfirmedHead,
		ConfirmedHeight: w.ConfirmedHeight,
		Epoch:           chain.Epoch(w.Epoch),
		BlockCount:      w.BlockCount,
	}, nil
}

// wirePending is the on-disk encoding of one receivable entry: a send
// awaiting its matching receive/open block.
type wirePending struct {
	Source chain.Hash
	Amount string
	Epoch  uint8
}
