package sequencer

import (
	"context"
	"log"
	"math/big"
	"strings"

	"github.com/bridgeswap/settlement-engine/internal/model"
)

// BatchSendTransactionByTransfer drains the in-flight queue for a
// (source chain, source token) pair — the same key AddTransaction
// enqueues under — filters out anything already reserved or failing
// validatingValueMatches, then splits what remains by the chain/token
// the payout actually broadcasts on (TargetChain/TargetToken), since a
// single router call can only land on one chain. Each target group
// runs through execBatchTransfer under that group's per-sender
// exclusive section (spec.md §4.3).
func (s *Sequencer) BatchSendTransactionByTransfer(ctx context.Context, chain, token string, routerAddresses map[string]string) error {
	candidates := s.InFlight.ListByChainToken(chain, token)

	groups := make(map[string][]*model.TransferAmountTransaction)
	bridgeRows := make(map[string]*model.BridgeTransaction, len(candidates))

	for _, tx := range candidates {
		if _, found, _ := s.Store.GetSerialRecord(tx.SourceID); found {
			continue // already recorded, a previous attempt landed or is landing
		}
		bt, err := s.Store.FindBridgeTxBySource(tx.Chain, tx.SourceID)
		if err != nil || bt.Status != model.StatusCreated || bt.TargetID != "" {
			continue
		}
		if !validatingValueMatches(bt.TargetAmount, tx.TargetAmount) {
			s.Alerts.SendMessage(alertAmountMismatch(bt, tx), []string{"TG"})
			continue
		}
		key := tx.TargetChain + ":" + tx.TargetToken
		groups[key] = append(groups[key], tx)
		bridgeRows[tx.SourceID] = bt
	}

	var firstErr error
	for _, txs := range groups {
		targetChain, targetToken := txs[0].TargetChain, txs[0].TargetToken

		acct, err := s.ResolveAccount(targetChain)
		if err != nil {
			firstErr = firstNonNil(firstErr, &TransactionSendBeforeError{Err: err})
			continue
		}
		router := routerAddresses[targetChain]

		var result error
		lockErr := s.Exclusivity.AccountRunExclusive(ctx, acct.Address(), func() error {
			result = s.execBatchTransfer(ctx, acct, chain, token, router, targetToken, txs, bridgeRows)
			return nil
		})
		if lockErr != nil {
			firstErr = firstNonNil(firstErr, &TransactionSendBeforeError{Err: lockErr})
			continue
		}
		firstErr = firstNonNil(firstErr, result)
	}
	return firstErr
}

func firstNonNil(a, b error) error {
	if a != nil {
		return a
	}
	return b
}

// execBatchTransfer lifts the single-transfer state machine over a
// set of rows: all rows move to READY_PAID under one row-count check
// before broadcast, and all are demoted together on crash (spec.md
// §4.3, scenario S5).
func (s *Sequencer) execBatchTransfer(
	ctx context.Context,
	acct SenderAccount,
	sourceChain, sourceToken, routerAddress, targetToken string,
	txs []*model.TransferAmountTransaction,
	bridgeRows map[string]*model.BridgeTransaction,
) error {
	ids := make([]uint, len(txs))
	tos := make([]string, len(txs))
	values := make([]*big.Int, len(txs))
	for i, tx := range txs {
		bt := bridgeRows[tx.SourceID]
		ids[i] = bt.ID
		tos[i] = bt.TargetAddress
		values[i] = decimalToBig(bt.TargetAmount)
	}

	if err := s.Store.UpdateStatusGuardedBatch(ids, model.StatusCreated, model.StatusReadyPaid, nil); err != nil {
		return &TransactionSendBeforeError{Err: err}
	}

	var signed *SignedTx
	var err error
	if targetToken == "" || strings.EqualFold(targetToken, "native") {
		signed, err = acct.Transfers(ctx, routerAddress, tos, values, ForcedFeeType{})
	} else {
		signed, err = acct.TransferTokens(ctx, routerAddress, targetToken, tos, values, ForcedFeeType{})
	}
	if err != nil {
		// Transfers/TransferTokens only sign: every error here happens
		// before broadcast, so it is always a before-error (spec.md §4.4/§7).
		_ = s.Store.UpdateStatusGuardedBatch(ids, model.StatusReadyPaid, model.StatusCreated, nil)
		return &TransactionSendBeforeError{Err: err}
	}

	rollback, err := s.Store.RemoveTransactionsAndSetSerial(sourceChain, sourceToken, signed.Hash, txs)
	if err != nil {
		signed.Rollback()
		_ = s.Store.UpdateStatusGuardedBatch(ids, model.StatusReadyPaid, model.StatusCreated, nil)
		return &TransactionSendBeforeError{Err: err}
	}

	if err := acct.Broadcast(ctx, signed.Signed); err != nil {
		if isNonceExpired(err) {
			signed.Rollback()
			rollback()
			_ = s.Store.UpdateStatusGuardedBatch(ids, model.StatusReadyPaid, model.StatusCreated, nil)
			return &TransactionSendBeforeError{Err: err}
		}
		signed.Submit()
		s.markCrashedBatch(ids, signed.Hash, acct.Address())
		s.Alerts.SendMessage("batch payout broadcast failed: "+err.Error(), []string{"TG"})
		return &TransactionSendAfterError{Err: err}
	}
	signed.Submit()

	if err := s.Store.UpdateStatusGuardedBatch(ids, model.StatusReadyPaid, model.StatusPaidSuccess, map[string]interface{}{
		"target_id": signed.Hash,
	}); err != nil {
		log.Printf("sequencer: post-broadcast batch status update failed: %v", err)
	}

	go s.awaitReceiptBatch(acct, ids, signed.Hash)
	return nil
}

func (s *Sequencer) awaitReceiptBatch(acct SenderAccount, ids []uint, hash string) {
	_, err := acct.WaitForTransactionConfirmation(context.Background(), hash)
	if err != nil {
		s.Alerts.SendMessage("batch receipt wait failed for "+hash+": "+err.Error(), []string{"TG"})
		return
	}
	if err := s.Store.UpdateStatusGuardedBatch(ids, model.StatusPaidSuccess, model.StatusBridgeSuccess, map[string]interface{}{
		"target_maker": acct.Address(),
	}); err != nil {
		log.Printf("sequencer: could not close batch bridge txs after receipt: %v", err)
	}
}

func (s *Sequencer) markCrashedBatch(ids []uint, hash, from string) {
	extra := map[string]interface{}{"target_maker": from}
	if hash != "" {
		extra["target_id"] = hash
	}
	if err := s.Store.UpdateStatusGuardedBatch(ids, model.StatusReadyPaid, model.StatusPaidCrash, extra); err != nil {
		log.Printf("sequencer: could not mark batch bridge txs crashed: %v", err)
	}
}
