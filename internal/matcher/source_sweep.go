// Package matcher runs the two periodic sweeps over the Transfers
// table (spec.md §4.2): the source sweep turns a deposit into a
// BridgeTransaction, the destination sweep closes it against a
// maker's outbound payout.
package matcher

import (
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bridgeswap/settlement-engine/internal/matchcache"
	"github.com/bridgeswap/settlement-engine/internal/model"
	"github.com/bridgeswap/settlement-engine/internal/ruleengine"
	"github.com/bridgeswap/settlement-engine/internal/store"
)

// defaultBatchSize and defaultLookback bound one source-sweep tick
// (spec.md §4.2: "up to 500-1000 transfers ... timestamp >= now-24h").
const (
	defaultBatchSize = 1000
	defaultLookback  = 24 * time.Hour
)

// SourceSweep implements the source->bridge half of the Matcher for a
// single version family (V1 or V2).
type SourceSweep struct {
	Store     *store.BridgeStore
	Cache     *matchcache.Cache
	Evaluator ruleengine.RuleEvaluator
	Versions  []model.Version
	BatchSize int
	Lookback  time.Duration
}

func NewSourceSweep(bridgeStore *store.BridgeStore, cache *matchcache.Cache, evaluator ruleengine.RuleEvaluator, versions []model.Version) *SourceSweep {
	return &SourceSweep{
		Store:     bridgeStore,
		Cache:     cache,
		Evaluator: evaluator,
		Versions:  versions,
		BatchSize: defaultBatchSize,
		Lookback:  defaultLookback,
	}
}

// Run executes one sweep tick: select candidates, evaluate each, and
// upsert/publish as spec.md §4.2 describes. It never returns an error
// for a single transfer's failure: an evaluation failure marks the
// transfer with the error sentinel op_status, other failures are only
// logged, and the sweep moves on.
func (s *SourceSweep) Run() error {
	since := time.Now().Add(-s.Lookback)
	candidates, err := s.Store.SelectSourceCandidates(s.Versions, since, s.BatchSize)
	if err != nil {
		return err
	}

	for i := range candidates {
		s.processOne(&candidates[i])
	}
	return nil
}

func (s *SourceSweep) processOne(t *model.Transfer) {
	existing, err := s.Store.FindBridgeTxBySource(t.ChainID, t.Hash)
	if err == nil && existing.Status.InOperation() {
		return // status >= 90: source sweep must never rebuild a row mid-payout (spec.md §3/§8 property 1)
	}

	derivation, err := s.Evaluator.Evaluate(t)
	if err != nil {
		log.Printf("matcher: source sweep evaluate failed for %s/%s: %v", t.ChainID, t.Hash, err)
		if serr := s.Store.SetTransferOpStatus(t.ID, model.OpStatusErrorSentinel); serr != nil {
			log.Printf("matcher: failed to record error sentinel for transfer %d: %v", t.ID, serr)
		}
		return
	}

	targetAmount := decimal.NewFromBigInt(derivation.TargetAmount, 0)

	bt := &model.BridgeTransaction{
		SourceChain:   t.ChainID,
		SourceID:      t.Hash,
		SourceAddress: t.Sender,
		SourceMaker:   t.Receiver,
		SourceAmount:  t.Amount,
		SourceSymbol:  t.Symbol,
		SourceToken:   t.Token,
		SourceNonce:   t.Nonce,
		SourceTime:    t.Timestamp,

		TargetChain:   derivation.TargetChain,
		TargetToken:   derivation.TargetToken,
		TargetSymbol:  derivation.TargetSymbol,
		TargetAddress: derivation.TargetAddress,
		TargetAmount:  targetAmount,

		RuleID:         derivation.RuleID,
		EBCAddress:     derivation.EBCAddress,
		DealerAddress:  derivation.DealerAddress,
		WithholdingFee: decimal.NewFromBigInt(derivation.WithholdingFee, 0),
		TradeFee:       decimal.NewFromBigInt(derivation.TradeFee, 0),
		ResponseMaker:  derivation.ResponseMaker,
	}

	err = s.Store.Tx(func(tx *store.BridgeStore) error {
		if err := tx.UpsertSourceSide(bt); err != nil {
			return err
		}
		return tx.SetTransferOpStatus(t.ID, model.OpStatusSourceBuilt)
	})
	if err != nil {
		log.Printf("matcher: source sweep upsert failed for %s/%s: %v", t.ChainID, t.Hash, err)
		return
	}

	// Check whether a destination transfer already waiting in the
	// cache (published by an earlier dest-sweep miss) satisfies this
	// row before publishing it as unmatched — closes S6-style races
	// the instant the source side appears, instead of waiting for the
	// dest sweep's next tick.
	if pending, ok := s.Cache.MatchBridgeTx(derivation.TargetChain, derivation.TargetSymbol, derivation.TargetAddress, targetAmount, derivation.ResponseMaker, t.Timestamp); ok {
		if err := s.Store.CloseMatch(bt.ID, t.ID, pending.TransferID, store.CloseMatchFields{
			TargetID:        pending.Hash,
			TargetTime:      pending.Timestamp,
			TargetFee:       pending.FeeAmount,
			TargetFeeSymbol: pending.FeeToken,
			TargetMaker:     pending.Sender,
			TargetNonce:     pending.Nonce,
			Success:         pending.Success,
		}); err != nil {
			log.Printf("matcher: source sweep accelerated close failed for bridge tx %d: %v", bt.ID, err)
		}
		return
	}

	s.Cache.PublishBridgeTx(matchcache.PendingBridgeTx{
		BridgeTxID:    bt.ID,
		SourceChain:   t.ChainID,
		SourceID:      t.Hash,
		TargetChain:   derivation.TargetChain,
		TargetSymbol:  derivation.TargetSymbol,
		TargetAddress: derivation.TargetAddress,
		TargetAmount:  targetAmount,
		SourceTime:    t.Timestamp,
		ResponseMaker: derivation.ResponseMaker,
	})
}
