package sequencer

import (
	"context"
	"log"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bridgeswap/settlement-engine/internal/lock"
	"github.com/bridgeswap/settlement-engine/internal/model"
	"github.com/bridgeswap/settlement-engine/internal/store"
)

// Sequencer is the payout orchestrator (spec.md §4.3). The signing
// account is resolved per target chain (ResolveAccount) because the same sender private key signs
// with a different nonce cursor and RPC client on each chain.
type Sequencer struct {
	Store         StoreOps
	Exclusivity   *lock.Exclusivity
	InFlight      *store.InFlightSet
	Alerts        Alerts
	ResolveAccount func(chainID string) (SenderAccount, error)
}

// SingleSendTransactionByTransfer pops a specific sourceId from the
// in-flight set and, under the per-sender exclusive section, drives it
// through execSingleTransfer (spec.md §4.3).
func (s *Sequencer) SingleSendTransactionByTransfer(ctx context.Context, chain, token, sourceID string) error {
	tx, ok := s.InFlight.GetTransaction(chain, token, sourceID)
	if !ok {
		return &TransactionSendIgError{Err: errNotQueued(sourceID)}
	}

	acct, err := s.ResolveAccount(tx.TargetChain)
	if err != nil {
		return &TransactionSendBeforeError{Err: err}
	}

	var result error
	err = s.Exclusivity.AccountRunExclusive(ctx, acct.Address(), func() error {
		result = s.execSingleTransfer(ctx, acct, tx)
		return nil // AccountRunExclusive's error is about lock acquisition, not the payout outcome
	})
	if err != nil {
		return &TransactionSendBeforeError{Err: err}
	}
	return result
}

// execSingleTransfer is the state machine from spec.md §4.3: it
// advances the bridge row to READY_PAID, attempts broadcast, and
// leaves the row at PAID_SUCCESS/PAID_CRASH/back-to-CREATED depending
// on how far the attempt got. Each transition is its own guarded
// status update; no database transaction is held open across the
// broadcast, so the moves into and out of READY_PAID are separate
// commits. T2 (the async receipt wait) happens after this function
// returns.
func (s *Sequencer) execSingleTransfer(ctx context.Context, acct SenderAccount, tx *model.TransferAmountTransaction) error {
	bt, err := s.Store.FindBridgeTxBySource(tx.Chain, tx.SourceID)
	if err != nil {
		return &TransactionSendBeforeError{Err: err}
	}

	if bt.Status != model.StatusCreated {
		return &TransactionSendIgError{Err: errWrongStatus(bt.Status)}
	}
	if bt.TargetID != "" {
		return &TransactionSendIgError{Err: errAlreadyPaid()}
	}
	if bt.TargetChain != tx.TargetChain || bt.TargetSymbol != tx.TargetSymbol {
		return &TransactionSendBeforeError{Err: errIntentMismatch()}
	}
	if !validatingValueMatches(bt.TargetAmount, tx.TargetAmount) {
		s.Alerts.SendMessage(alertAmountMismatch(bt, tx), []string{"TG"})
		return &TransactionSendBeforeError{Err: errAmountMismatch()}
	}

	if err := s.Store.UpdateStatusGuarded(bt.ID, model.StatusCreated, model.StatusReadyPaid, nil); err != nil {
		return &TransactionSendBeforeError{Err: err}
	}

	signed, err := s.prepareBroadcast(ctx, acct, bt, tx)
	if err != nil {
		// prepareBroadcast only signs: fee estimation, address
		// validation, and signing all fail before anything reaches the
		// chain, so every error here is a before-error (spec.md §4.4/§7).
		_ = s.Store.UpdateStatusGuarded(bt.ID, model.StatusReadyPaid, model.StatusCreated, nil)
		return &TransactionSendBeforeError{Err: err}
	}

	rollback, err := s.Store.RemoveTransactionsAndSetSerial(tx.Chain, tx.Token, signed.Hash, []*model.TransferAmountTransaction{tx})
	if err != nil {
		signed.Rollback()
		_ = s.Store.UpdateStatusGuarded(bt.ID, model.StatusReadyPaid, model.StatusCreated, nil)
		return &TransactionSendBeforeError{Err: err}
	}

	if err := acct.Broadcast(ctx, signed.Signed); err != nil {
		if isNonceExpired(err) {
			signed.Rollback()
			rollback()
			_ = s.Store.UpdateStatusGuarded(bt.ID, model.StatusReadyPaid, model.StatusCreated, nil)
			return &TransactionSendBeforeError{Err: err}
		}
		signed.Submit() // the nonce may have been consumed on-chain even though SendTransaction errored
		s.markCrashed(bt, signed.Hash, acct.Address())
		s.Alerts.SendMessage(alertCrash(bt, err), []string{"TG"})
		return &TransactionSendAfterError{Err: err}
	}
	signed.Submit()

	if err := s.Store.UpdateStatusGuarded(bt.ID, model.StatusReadyPaid, model.StatusPaidSuccess, map[string]interface{}{
		"target_id": signed.Hash,
	}); err != nil {
		log.Printf("sequencer: post-broadcast status update failed for bridge tx %d: %v", bt.ID, err)
	}

	go s.awaitReceipt(acct, bt.ID, signed.Hash)
	return nil
}

func (s *Sequencer) prepareBroadcast(ctx context.Context, acct SenderAccount, bt *model.BridgeTransaction, tx *model.TransferAmountTransaction) (*SignedTx, error) {
	amount := decimalToBig(bt.TargetAmount)
	// tx.Token is the source-chain token; the payout broadcasts
	// tx.TargetToken on the destination chain (DESIGN.md Open Question #4).
	if tx.TargetToken == "" || strings.EqualFold(tx.TargetToken, "native") {
		return acct.Transfer(ctx, bt.TargetAddress, amount, ForcedFeeType{})
	}
	return acct.TransferToken(ctx, tx.TargetToken, bt.TargetAddress, amount, ForcedFeeType{})
}

// awaitReceipt is T2: it runs after the guarded update that moved the
// bridge row to PAID_SUCCESS and closes it with a second guarded
// update (spec.md §4.3).
func (s *Sequencer) awaitReceipt(acct SenderAccount, bridgeTxID uint, hash string) {
	_, err := acct.WaitForTransactionConfirmation(context.Background(), hash)
	if err != nil {
		s.Alerts.SendMessage("receipt wait failed for "+hash+": "+err.Error(), []string{"TG"})
		return // leave the row at PAID_SUCCESS for the dest sweep to close later
	}

	// targetMaker is the signing account, not the (zero, for ordinary
	// transfers) receipt.ContractAddress (spec.md §4.3).
	if err := s.Store.UpdateStatusGuarded(bridgeTxID, model.StatusPaidSuccess, model.StatusBridgeSuccess, map[string]interface{}{
		"target_maker": acct.Address(),
	}); err != nil {
		log.Printf("sequencer: could not close bridge tx %d after receipt: %v", bridgeTxID, err)
	}
}

func (s *Sequencer) markCrashed(bt *model.BridgeTransaction, hash, from string) {
	extra := map[string]interface{}{"target_maker": from}
	if hash != "" {
		extra["target_id"] = hash
	}
	if err := s.Store.UpdateStatusGuarded(bt.ID, model.StatusReadyPaid, model.StatusPaidCrash, extra); err != nil {
		log.Printf("sequencer: could not mark bridge tx %d crashed: %v", bt.ID, err)
	}
}

func decimalToBig(d decimal.Decimal) *big.Int {
	return d.BigInt()
}

func isNonceExpired(err error) bool {
	return strings.Contains(strings.ToUpper(err.Error()), "NONCE")
}
