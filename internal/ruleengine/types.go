// Package ruleengine derives the exact payout amount for a source
// deposit (spec.md §4.1): decode the security code, resolve the rule
// via the (out-of-scope) rule-graph provider, and produce a
// deterministic Derivation the Matcher persists as a BridgeTransaction.
package ruleengine

import (
	"math/big"
	"time"

	"github.com/bridgeswap/settlement-engine/internal/model"
)

// Rule is the flattened shape of one entry from the maker-N.json
// documents (spec.md §6), keyed by (sourceChainId, targetChainId,
// sourceSymbol, targetSymbol) once loaded.
type Rule struct {
	ID          string
	EBCAddress  string
	DealerAddress string

	Chain0 string
	Chain1 string

	Chain0TradeFeeBps      int64
	Chain0WithholdingFee   *big.Int
	Chain1TradeFeeBps      int64
	Chain1WithholdingFee   *big.Int

	MinPrice *big.Int
	MaxPrice *big.Int

	ResponseMakerList []string

	SourceToken string
	TargetToken string
	TargetChain string
	TargetSymbol string
}

// side returns the trade-fee/withholding-fee pair to use, selected by
// which chain leg the transfer originated on (spec.md §4.1 step 5).
func (r *Rule) side(sourceChain string) (tradeFeeBps int64, withholdingFee *big.Int) {
	if r.Chain0 == sourceChain {
		return r.Chain0TradeFeeBps, r.Chain0WithholdingFee
	}
	return r.Chain1TradeFeeBps, r.Chain1WithholdingFee
}

// SecurityCode is the decoded 4-digit code from spec.md §4.1 step 1.
type SecurityCode struct {
	DealerID          int
	EBCID             int
	TargetChainIndex  int
}

// RuleProvider resolves a Rule given the decoded security code and
// deposit context. It stands in for the out-of-scope "mdc"/"manager"
// rule-graph collaborator named in spec.md §1.
type RuleProvider interface {
	// Resolve serves the V2 dialect: the target chain is encoded in
	// the security code (spec.md §4.1 steps 1-3).
	Resolve(owner string, ts time.Time, code SecurityCode, sourceChainID, sourceToken string) (*Rule, error)

	// ResolveV1 serves the V1 dialect: the target chain is decoded
	// directly from the deposit calldata (spec.md §4.1 "second
	// dialect"), so it is supplied rather than derived from a code.
	ResolveV1(owner string, ts time.Time, targetChainID, sourceChainID, sourceToken string) (*Rule, error)
}

// Derivation is the output of a RuleEvaluator, ready to populate a new
// BridgeTransaction's derived fields (spec.md §3/§4.1).
type Derivation struct {
	RuleID         string
	EBCAddress     string
	DealerAddress  string
	WithholdingFee *big.Int
	TradeFee       *big.Int

	TargetChain   string
	TargetToken   string
	TargetSymbol  string
	TargetAddress string // address to receive the payout on the target chain
	TargetAmount  *big.Int
	TargetNonce   string // source nonce as given on the transfer (V2 splices it into TargetAmount)

	ResponseMaker model.StringList
}

// RuleEvaluator is the capability behind spec.md §4.1's V1/V2 dialect
// split: a pure function of (transfer, rule snapshot) producing a
// Derivation, or one of the three named errors.
type RuleEvaluator interface {
	Evaluate(transfer *model.Transfer) (*Derivation, error)
}
