package nanoledger

import (
	"context"
	"math/big"
	"testing"

	"github.com/dgraph-io/badger/v2"
	"github.com/stretchr/testify/require"

	"github.com/nanolabs/nanod/chain"
)

// alwaysValid skips signature/work checks so tests can build blocks
// without real Ed25519 keys or proof-of-work solutions.
type alwaysValidVerifier struct{}

func (alwaysValidVerifier) Verify(account, hash [32]byte, signature [64]byte) bool { return true }

type alwaysValidWork struct{}

func (alwaysValidWork) Valid(root [32]byte, work uint64) bool { return true }

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	dir := t.TempDir()
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db, WithSignatureVerifier(alwaysValidVerifier{}), WithWorkValidator(alwaysValidWork{}))
}

// seedAccount directly installs a as the current row for its account and
// credits its representative with a's balance, skipping the
// open-block/pending machinery Process would otherwise require — a
// test-only shortcut for "this account already existed with this
// balance/head before the test began".
func seedAccount(t *testing.T, l *Ledger, a chain.Account) {
	t.Helper()
	wtx, err := l.BeginWrite(context.Background(), chain.PriorityTesting, chain.TableAccounts)
	require.NoError(t, err)
	defer wtx.Discard()
	txn, err := asWriteTxn(wtx)
	require.NoError(t, err)
	require.NoError(t, putAccount(txn, a))
	require.NoError(t, addRepWeight(txn, a.Representative, a.Balance))
}

func h(b byte) chain.Hash {
	var out chain.Hash
	out[0] = b
	return out
}

func TestProcessSingleValidSend(t *testing.T) {
	l := openTestLedger(t)

	sender, rep, genesisHash := h(1), h(2), h(0xAA)
	seedAccount(t, l, chain.Account{
		PublicKey: sender, Head: genesisHash, Height: 1, BlockCount: 1,
		Representative: rep, Balance: big.NewInt(1000),
	})

	destination := h(3)
	sendBlock := chain.NewSendBlock(h(10), sender, genesisHash, destination, big.NewInt(600), [64]byte{}, 0)

	wtx, err := l.BeginWrite(context.Background(), chain.PriorityProcessBatch,
		chain.TableAccounts, chain.TableBlocks, chain.TablePending)
	require.NoError(t, err)
	status, err := l.Process(wtx, sendBlock)
	require.NoError(t, err)
	wtx.Discard()

	require.Equal(t, chain.StatusProgress, status)

	rtx, err := l.BeginRead(context.Background())
	require.NoError(t, err)
	defer rtx.Discard()

	acc, found, err := l.AccountInfo(rtx, sender)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int64(600), acc.Balance.Int64())
	require.Equal(t, uint64(2), acc.Height)

	sb, found, err := l.BlockByHash(rtx, sendBlock.Hash())
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, sb.Sideband.Flags.IsSend)

	weight, err := l.Weight(rtx, rep)
	require.NoError(t, err)
	require.Equal(t, int64(600), weight.Int64(), "representative weight should track the sender's post-send balance")
}

func TestProcessContinuationRejectsGapPrevious(t *testing.T) {
	l := openTestLedger(t)
	sender, genesisHash := h(1), h(0xAA)
	seedAccount(t, l, chain.Account{
		PublicKey: sender, Head: genesisHash, Height: 1, BlockCount: 1,
		Representative: h(2), Balance: big.NewInt(1000),
	})

	badPrevious := h(99) // does not match account.Head and is not itself a known block
	sendBlock := chain.NewSendBlock(h(10), sender, badPrevious, h(3), big.NewInt(600), [64]byte{}, 0)

	wtx, err := l.BeginWrite(context.Background(), chain.PriorityProcessBatch, chain.TableAccounts, chain.TableBlocks)
	require.NoError(t, err)
	defer wtx.Discard()
	status, err := l.Process(wtx, sendBlock)
	require.NoError(t, err)
	require.Equal(t, chain.StatusGapPrevious, status)
}

// TestProcessOpenForkRejectsCompetingOpen exercises fork resolution at the
// ledger layer: once an open block has been accepted for an account, a
// second, different open block naming the same account is rejected
// outright rather than silently overwriting the first.
func TestProcessOpenForkRejectsCompetingOpen(t *testing.T) {
	l := openTestLedger(t)

	sender, genesisHash := h(1), h(0xAA)
	seedAccount(t, l, chain.Account{
		PublicKey: sender, Head: genesisHash, Height: 1, BlockCount: 1,
		Representative: h(2), Balance: big.NewInt(1000),
	})
	destination := h(3)
	sendBlock := chain.NewSendBlock(h(10), sender, genesisHash, destination, big.NewInt(600), [64]byte{}, 0)

	wtx, err := l.BeginWrite(context.Background(), chain.PriorityProcessBatch,
		chain.TableAccounts, chain.TableBlocks, chain.TablePending)
	require.NoError(t, err)
	status, err := l.Process(wtx, sendBlock)
	require.NoError(t, err)
	wtx.Discard()
	require.Equal(t, chain.StatusProgress, status)

	openA := chain.NewOpenBlock(h(20), destination, sendBlock.Hash(), h(4), big.NewInt(400), [64]byte{}, 0)
	wtx, err = l.BeginWrite(context.Background(), chain.PriorityProcessBatch,
		chain.TableAccounts, chain.TableBlocks, chain.TablePending)
	require.NoError(t, err)
	status, err = l.Process(wtx, openA)
	require.NoError(t, err)
	wtx.Discard()
	require.Equal(t, chain.StatusProgress, status)

	openB := chain.NewOpenBlock(h(21), destination, sendBlock.Hash(), h(5), big.NewInt(400), [64]byte{}, 0)
	wtx, err = l.BeginWrite(context.Background(), chain.PriorityProcessBatch,
		chain.TableAccounts, chain.TableBlocks, chain.TablePending)
	require.NoError(t, err)
	status, err = l.Process(wtx, openB)
	require.NoError(t, err)
	wtx.Discard()
	require.Equal(t, chain.StatusFork, status, "a second open for an already-opened account must be rejected as a fork")
}

// TestConfirmCascadesIntoSourceAccount exercises the batch cementation
// order guarantee: confirming a receive also confirms the send it
// received from, even though the send lives on a different account's
// chain and was never itself passed to Confirm.
func TestConfirmCascadesIntoSourceAccount(t *testing.T) {
	l := openTestLedger(t)

	sender, genesisHash := h(1), h(0xAA)
	seedAccount(t, l, chain.Account{
		PublicKey: sender, Head: genesisHash, Height: 1, BlockCount: 1,
		Representative: h(2), Balance: big.NewInt(1000),
	})
	destination := h(3)
	sendBlock := chain.NewSendBlock(h(10), sender, genesisHash, destination, big.NewInt(600), [64]byte{}, 0)
	openBlock := chain.NewOpenBlock(h(20), destination, sendBlock.Hash(), h(4), big.NewInt(400), [64]byte{}, 0)

	for _, blk := range []chain.Block{sendBlock, openBlock} {
		wtx, err := l.BeginWrite(context.Background(), chain.PriorityProcessBatch,
			chain.TableAccounts, chain.TableBlocks, chain.TablePending)
		require.NoError(t, err)
		status, err := l.Process(wtx, blk)
		require.NoError(t, err)
		wtx.Discard()
		require.Equal(t, chain.StatusProgress, status)
	}

	wtx, err := l.BeginWrite(context.Background(), chain.PriorityConfirmationHeight, chain.TableConfirmationHeight)
	require.NoError(t, err)
	cemented, err := l.Confirm(wtx, openBlock.Hash())
	require.NoError(t, err)
	wtx.Discard()

	require.Len(t, cemented, 2, "confirming the receive must also cement the send it sourced from")
	require.Equal(t, sendBlock.Hash(), cemented[0].Block.Hash(), "the source account's send cements before the receive that depends on it")
	require.Equal(t, openBlock.Hash(), cemented[1].Block.Hash())

	rtx, err := l.BeginRead(context.Background())
	require.NoError(t, err)
	defer rtx.Discard()
	count, err := l.CementedCount(rtx)
	require.NoError(t, err)
	require.Equal(t, uint64(2), count)

	// Re-confirming the same target is a no-op: both blocks are already
	// at or below their accounts' confirmed height.
	wtx, err = l.BeginWrite(context.Background(), chain.PriorityConfirmationHeight, chain.TableConfirmationHeight)
	require.NoError(t, err)
	cemented, err = l.Confirm(wtx, openBlock.Hash())
	require.NoError(t, err)
	wtx.Discard()
	require.Empty(t, cemented)
}
