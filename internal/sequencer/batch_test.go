package sequencer

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/bridgeswap/settlement-engine/internal/model"
)

func bridgeTxWithID(id uint, sourceID string, amount decimal.Decimal) *model.BridgeTransaction {
	bt := baseBridgeTx()
	bt.ID = id
	bt.SourceID = sourceID
	bt.TargetAmount = amount
	return bt
}

func transferTxFor(sourceID string, amount decimal.Decimal) *model.TransferAmountTransaction {
	tx := baseTransferTx()
	tx.SourceID = sourceID
	tx.TargetAmount = amount
	return tx
}

func TestExecBatchTransferHappyPath(t *testing.T) {
	store := newFakeStore()
	bt1 := bridgeTxWithID(1, "src-1", decimal.NewFromInt(1000))
	bt2 := bridgeTxWithID(2, "src-2", decimal.NewFromInt(2000))
	store.put(bt1)
	store.put(bt2)

	txs := []*model.TransferAmountTransaction{
		transferTxFor("src-1", decimal.NewFromInt(1000)),
		transferTxFor("src-2", decimal.NewFromInt(2000)),
	}
	bridgeRows := map[string]*model.BridgeTransaction{"src-1": bt1, "src-2": bt2}

	acct := &fakeAccount{address: "0xSENDER", signedHash: "0xBATCHHASH"}
	seq := newTestSequencer(store, &fakeAlerts{})

	err := seq.execBatchTransfer(context.Background(), acct, "1", "0xETH", "0xROUTER", "0xUSDC", txs, bridgeRows)
	if err != nil {
		t.Fatalf("execBatchTransfer: %v", err)
	}

	if bt1.Status != model.StatusPaidSuccess || bt2.Status != model.StatusPaidSuccess {
		t.Errorf("statuses = %v, %v, want both StatusPaidSuccess", bt1.Status, bt2.Status)
	}
	if bt1.TargetID != "0xBATCHHASH" || bt2.TargetID != "0xBATCHHASH" {
		t.Errorf("TargetID not set to the batch hash on both rows")
	}
	if acct.broadcastCalls != 1 {
		t.Errorf("broadcastCalls = %d, want 1 (one router call for the whole batch)", acct.broadcastCalls)
	}
	if len(store.removedTxs) != 2 {
		t.Errorf("removedTxs = %d, want 2", len(store.removedTxs))
	}
}

func TestExecBatchTransferNativeUsesTransfers(t *testing.T) {
	store := newFakeStore()
	bt := bridgeTxWithID(1, "src-1", decimal.NewFromInt(500))
	store.put(bt)
	txs := []*model.TransferAmountTransaction{transferTxFor("src-1", decimal.NewFromInt(500))}
	bridgeRows := map[string]*model.BridgeTransaction{"src-1": bt}

	acct := &fakeAccount{address: "0xSENDER", signedHash: "0xHASH", transferTokensErr: fakeErr("should not use token path")}
	seq := newTestSequencer(store, &fakeAlerts{})

	if err := seq.execBatchTransfer(context.Background(), acct, "1", "0xETH", "0xROUTER", "native", txs, bridgeRows); err != nil {
		t.Fatalf("execBatchTransfer: %v", err)
	}
}

func TestExecBatchTransferGuardedUpdateFailureIsBeforeError(t *testing.T) {
	store := newFakeStore()
	bt := bridgeTxWithID(1, "src-1", decimal.NewFromInt(500))
	store.put(bt)
	store.guardedBatchErr = errRowMismatchFake

	txs := []*model.TransferAmountTransaction{transferTxFor("src-1", decimal.NewFromInt(500))}
	bridgeRows := map[string]*model.BridgeTransaction{"src-1": bt}
	seq := newTestSequencer(store, &fakeAlerts{})

	err := seq.execBatchTransfer(context.Background(), &fakeAccount{}, "1", "0xETH", "0xROUTER", "0xUSDC", txs, bridgeRows)
	if _, ok := err.(*TransactionSendBeforeError); !ok {
		t.Fatalf("err = %v (%T), want *TransactionSendBeforeError", err, err)
	}
}

func TestExecBatchTransferBroadcastFailureCrashesAll(t *testing.T) {
	store := newFakeStore()
	bt1 := bridgeTxWithID(1, "src-1", decimal.NewFromInt(500))
	bt2 := bridgeTxWithID(2, "src-2", decimal.NewFromInt(700))
	store.put(bt1)
	store.put(bt2)

	txs := []*model.TransferAmountTransaction{
		transferTxFor("src-1", decimal.NewFromInt(500)),
		transferTxFor("src-2", decimal.NewFromInt(700)),
	}
	bridgeRows := map[string]*model.BridgeTransaction{"src-1": bt1, "src-2": bt2}

	acct := &fakeAccount{address: "0xSENDER", signedHash: "0xHASH", broadcastErr: fakeErr("rpc down")}
	alerts := &fakeAlerts{}
	seq := newTestSequencer(store, alerts)

	err := seq.execBatchTransfer(context.Background(), acct, "1", "0xETH", "0xROUTER", "0xUSDC", txs, bridgeRows)
	if _, ok := err.(*TransactionSendAfterError); !ok {
		t.Fatalf("err = %v (%T), want *TransactionSendAfterError", err, err)
	}
	if bt1.Status != model.StatusPaidCrash || bt2.Status != model.StatusPaidCrash {
		t.Errorf("statuses = %v, %v, want both StatusPaidCrash", bt1.Status, bt2.Status)
	}
	if len(alerts.sent) != 1 {
		t.Fatalf("expected one crash alert, got %d", len(alerts.sent))
	}
}

// TestBatchGroupingByTargetChainToken exercises the same sub-grouping
// BatchSendTransactionByTransfer performs (one router call per target
// chain), without going through AccountRunExclusive, which needs a
// live Redis pool.
func TestBatchGroupingByTargetChainToken(t *testing.T) {
	tx1 := transferTxFor("src-1", decimal.NewFromInt(100))
	tx1.TargetChain, tx1.TargetToken = "137", "0xUSDC"
	tx2 := transferTxFor("src-2", decimal.NewFromInt(200))
	tx2.TargetChain, tx2.TargetToken = "10", "0xUSDT"
	candidates := []*model.TransferAmountTransaction{tx1, tx2}

	groups := map[string][]*model.TransferAmountTransaction{}
	for _, tx := range candidates {
		key := tx.TargetChain + ":" + tx.TargetToken
		groups[key] = append(groups[key], tx)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 target groups, got %d: %v", len(groups), groups)
	}
	if len(groups["137:0xUSDC"]) != 1 || len(groups["10:0xUSDT"]) != 1 {
		t.Errorf("unexpected group membership: %v", groups)
	}
}
