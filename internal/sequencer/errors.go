package sequencer

import (
	"fmt"

	"github.com/bridgeswap/settlement-engine/internal/model"
)

func errNotQueued(sourceID string) error {
	return fmt.Errorf("sequencer: sourceId %s is not in the in-flight set", sourceID)
}

func errWrongStatus(status model.BridgeTxStatus) error {
	return fmt.Errorf("sequencer: bridge tx not in payable status (have %d, want %d)", status, model.StatusCreated)
}

func errAlreadyPaid() error {
	return fmt.Errorf("sequencer: bridge tx already has a targetId")
}

func errIntentMismatch() error {
	return fmt.Errorf("sequencer: caller's intended target chain/symbol does not match the bridge row")
}

func errAmountMismatch() error {
	return fmt.Errorf("sequencer: caller's intended target amount fails validatingValueMatches")
}

func alertAmountMismatch(bt *model.BridgeTransaction, tx *model.TransferAmountTransaction) string {
	return fmt.Sprintf("amount mismatch on bridge tx %d: recorded=%s intended=%s", bt.ID, bt.TargetAmount, tx.TargetAmount)
}

func alertCrash(bt *model.BridgeTransaction, err error) string {
	return fmt.Sprintf("payout for bridge tx %d (%s/%s) may have crashed post-broadcast: %v", bt.ID, bt.SourceChain, bt.SourceID, err)
}
