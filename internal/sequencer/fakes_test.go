package sequencer

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/bridgeswap/settlement-engine/internal/model"
)

// fakeStore is a minimal in-memory StoreOps, keyed the same way the
// real BridgeStore keys lookups: (sourceChain, sourceID).
type fakeStore struct {
	bridges map[string]*model.BridgeTransaction

	serials map[string]string

	guardedErr      error
	guardedBatchErr error
	removeErr       error

	removedChain, removedToken string
	removedTxs                 []*model.TransferAmountTransaction
	removedHash                string
}

func newFakeStore() *fakeStore {
	return &fakeStore{bridges: map[string]*model.BridgeTransaction{}, serials: map[string]string{}}
}

func bridgeKey(sourceChain, sourceID string) string { return sourceChain + "|" + sourceID }

func (f *fakeStore) put(bt *model.BridgeTransaction) {
	f.bridges[bridgeKey(bt.SourceChain, bt.SourceID)] = bt
}

func (f *fakeStore) FindBridgeTxBySource(sourceChain, sourceID string) (*model.BridgeTransaction, error) {
	bt, ok := f.bridges[bridgeKey(sourceChain, sourceID)]
	if !ok {
		return nil, errNotFoundFake
	}
	return bt, nil
}

func (f *fakeStore) UpdateStatusGuarded(id uint, from, to model.BridgeTxStatus, extra map[string]interface{}) error {
	if f.guardedErr != nil {
		return f.guardedErr
	}
	for _, bt := range f.bridges {
		if bt.ID == id {
			if bt.Status != from {
				return errRowMismatchFake
			}
			bt.Status = to
			applyExtra(bt, extra)
			return nil
		}
	}
	return errNotFoundFake
}

func (f *fakeStore) UpdateStatusGuardedBatch(ids []uint, from, to model.BridgeTxStatus, extra map[string]interface{}) error {
	if f.guardedBatchErr != nil {
		return f.guardedBatchErr
	}
	byID := map[uint]*model.BridgeTransaction{}
	for _, bt := range f.bridges {
		byID[bt.ID] = bt
	}
	for _, id := range ids {
		bt, ok := byID[id]
		if !ok || bt.Status != from {
			return errRowMismatchFake
		}
	}
	for _, id := range ids {
		bt := byID[id]
		bt.Status = to
		applyExtra(bt, extra)
	}
	return nil
}

func applyExtra(bt *model.BridgeTransaction, extra map[string]interface{}) {
	if v, ok := extra["target_id"]; ok {
		bt.TargetID = v.(string)
	}
	if v, ok := extra["target_maker"]; ok {
		bt.TargetMaker = v.(string)
	}
}

func (f *fakeStore) GetSerialRecord(sourceID string) (string, bool, error) {
	hash, ok := f.serials[sourceID]
	return hash, ok, nil
}

func (f *fakeStore) SaveSerialRelTxHash(sourceIDs []string, txHash string) error {
	for _, id := range sourceIDs {
		f.serials[id] = txHash
	}
	return nil
}

func (f *fakeStore) RemoveTransactionsAndSetSerial(chain, token, txHash string, txs []*model.TransferAmountTransaction) (func(), error) {
	if f.removeErr != nil {
		return nil, f.removeErr
	}
	f.removedChain, f.removedToken, f.removedHash, f.removedTxs = chain, token, txHash, txs
	for _, tx := range txs {
		f.serials[tx.SourceID] = txHash
	}
	return func() {}, nil
}

// fakeAccount is a scriptable SenderAccount.
type fakeAccount struct {
	address string

	transferErr    error
	transfersErr   error
	transferTokensErr error
	broadcastErr   error
	confirmErr     error

	signedHash string

	submitted, rolledBack int
	broadcastCalls        int
}

func (a *fakeAccount) Address() string { return a.address }

func (a *fakeAccount) sign() *SignedTx {
	return &SignedTx{
		Hash:     a.signedHash,
		Signed:   &types.Transaction{},
		Submit:   func() { a.submitted++ },
		Rollback: func() { a.rolledBack++ },
	}
}

func (a *fakeAccount) Transfer(ctx context.Context, to string, amount *big.Int, forced ForcedFeeType) (*SignedTx, error) {
	if a.transferErr != nil {
		return nil, a.transferErr
	}
	return a.sign(), nil
}

func (a *fakeAccount) TransferToken(ctx context.Context, token, to string, amount *big.Int, forced ForcedFeeType) (*SignedTx, error) {
	if a.transferErr != nil {
		return nil, a.transferErr
	}
	return a.sign(), nil
}

func (a *fakeAccount) Transfers(ctx context.Context, router string, tos []string, values []*big.Int, forced ForcedFeeType) (*SignedTx, error) {
	if a.transfersErr != nil {
		return nil, a.transfersErr
	}
	return a.sign(), nil
}

func (a *fakeAccount) TransferTokens(ctx context.Context, router, token string, tos []string, values []*big.Int, forced ForcedFeeType) (*SignedTx, error) {
	if a.transferTokensErr != nil {
		return nil, a.transferTokensErr
	}
	return a.sign(), nil
}

func (a *fakeAccount) Broadcast(ctx context.Context, signed *types.Transaction) error {
	a.broadcastCalls++
	return a.broadcastErr
}

func (a *fakeAccount) WaitForTransactionConfirmation(ctx context.Context, txHash string) (*types.Receipt, error) {
	if a.confirmErr != nil {
		return nil, a.confirmErr
	}
	return &types.Receipt{ContractAddress: common.HexToAddress("0xMAKER")}, nil
}

// fakeAlerts records every message sent.
type fakeAlerts struct {
	sent []string
}

func (a *fakeAlerts) SendMessage(text string, channels []string) {
	a.sent = append(a.sent, text)
}

type fakeErr string

func (e fakeErr) Error() string { return string(e) }

const (
	errNotFoundFake    = fakeErr("fake: not found")
	errRowMismatchFake = fakeErr("fake: row count mismatch")
)
