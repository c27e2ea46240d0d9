package matcher

import (
	"log"

	"github.com/bridgeswap/settlement-engine/internal/matchcache"
	"github.com/bridgeswap/settlement-engine/internal/model"
	"github.com/bridgeswap/settlement-engine/internal/store"
)

// defaultDestBatchSize bounds one dest-sweep tick.
const defaultDestBatchSize = 1000

// DestSweep implements the dest->close half of the Matcher for a
// single version family (V1 or V2).
type DestSweep struct {
	Store     *store.BridgeStore
	Cache     *matchcache.Cache
	Versions  []model.Version
	BatchSize int
}

func NewDestSweep(bridgeStore *store.BridgeStore, cache *matchcache.Cache, versions []model.Version) *DestSweep {
	return &DestSweep{Store: bridgeStore, Cache: cache, Versions: versions, BatchSize: defaultDestBatchSize}
}

func (d *DestSweep) Run() error {
	candidates, err := d.Store.SelectDestCandidates(d.Versions, d.BatchSize)
	if err != nil {
		return err
	}

	for i := range candidates {
		d.processOne(&candidates[i])
	}
	return nil
}

func (d *DestSweep) processOne(t *model.Transfer) {
	success := t.Status == model.TransferStatusSuccess

	// Lookup path A: memory cache (spec.md §4.2 dest sweep step 1).
	if pending, ok := d.Cache.MatchTransfer(t.ChainID, t.Symbol, t.Receiver, t.Amount, t.Sender, t.Timestamp); ok {
		d.close(pending.BridgeTxID, pending.SourceChain, pending.SourceID, t, success)
		return
	}

	// Lookup path B, first leg: (targetChain, targetId).
	if bt, err := d.Store.FindBridgeTxByTargetID(t.ChainID, t.Hash); err == nil {
		d.close(bt.ID, bt.SourceChain, bt.SourceID, t, success)
		return
	} else if err != store.ErrNotFound {
		log.Printf("matcher: dest sweep lookup by target id failed for transfer %d: %v", t.ID, err)
		return
	}

	// Lookup path B, second leg: content match.
	if bt, err := d.Store.FindBridgeTxByContentMatch(t.ChainID, t.Symbol, t.Receiver, t.Amount, t.Sender, t.Timestamp); err == nil {
		d.close(bt.ID, bt.SourceChain, bt.SourceID, t, success)
		return
	} else if err != store.ErrNotFound {
		log.Printf("matcher: dest sweep content match failed for transfer %d: %v", t.ID, err)
		return
	}

	// No match yet: publish for a later source sweep to find.
	d.Cache.PublishTransfer(matchcache.PendingTransfer{
		TransferID: t.ID,
		ChainID:    t.ChainID,
		Hash:       t.Hash,
		Symbol:     t.Symbol,
		Receiver:   t.Receiver,
		Amount:     t.Amount,
		Sender:     t.Sender,
		Nonce:      t.Nonce,
		Timestamp:  t.Timestamp,
		FeeAmount:  t.FeeAmount,
		FeeToken:   t.FeeToken,
		Success:    success,
	})
}

func (d *DestSweep) close(bridgeTxID uint, sourceChain, sourceHash string, t *model.Transfer, success bool) {
	sourceTransferID, err := d.Store.FindTransferIDByHash(sourceChain, sourceHash)
	if err != nil {
		log.Printf("matcher: dest sweep could not resolve source transfer for bridge tx %d: %v", bridgeTxID, err)
		return
	}

	err = d.Store.CloseMatch(bridgeTxID, sourceTransferID, t.ID, store.CloseMatchFields{
		TargetID:        t.Hash,
		TargetTime:      t.Timestamp,
		TargetFee:       t.FeeAmount,
		TargetFeeSymbol: t.FeeToken,
		TargetNonce:     t.Nonce,
		TargetMaker:     t.Sender,
		Success:         success,
	})
	if err == store.ErrRowCountMismatch {
		return // a concurrent sweep already closed this row; not an error (spec.md §4.2 ordering)
	}
	if err != nil {
		log.Printf("matcher: dest sweep close failed for bridge tx %d: %v", bridgeTxID, err)
	}
}
