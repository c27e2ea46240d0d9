package ruleengine

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/bridgeswap/settlement-engine/internal/model"
)

// v2Evaluator implements the primary dialect (spec.md §4.1 steps 1-8):
// the target chain and dealer/EBC identity are folded into the raw
// value as a 4-digit security code, and the payout's own trailing 4
// digits carry the source nonce back out as a safety code.
type v2Evaluator struct {
	provider RuleProvider
}

func NewV2Evaluator(provider RuleProvider) RuleEvaluator {
	return &v2Evaluator{provider: provider}
}

func (e *v2Evaluator) Evaluate(transfer *model.Transfer) (*Derivation, error) {
	nonce, err := strconv.ParseInt(transfer.Nonce, 10, 64)
	if err != nil || nonce > 9999 || nonce < 0 {
		return nil, ErrSecurityCodeInvalid
	}

	value, ok := new(big.Int).SetString(transfer.Value, 10)
	if !ok {
		return nil, ErrSecurityCodeInvalid
	}

	code := decodeSecurityCode(value)

	rule, err := e.provider.Resolve(transfer.Receiver, transfer.Timestamp, code, transfer.ChainID, transfer.Token)
	if err != nil {
		return nil, errors.Wrap(err, "ruleengine: resolve rule")
	}
	if rule == nil {
		return nil, ErrRuleNotFound
	}

	tradeFeeBps, withholdingFee := rule.side(transfer.ChainID)

	// tradeAmount = raw value, less the security code digits, less the
	// fixed withholding fee for this leg (spec.md §4.1 step 4).
	tradeAmount := new(big.Int).Sub(value, securityCodeValue(value))
	tradeAmount.Sub(tradeAmount, withholdingFee)

	tradingFee := new(big.Int).Mul(tradeAmount, big.NewInt(tradeFeeBps))
	tradingFee.Div(tradingFee, big.NewInt(10000))

	// Truncate to a multiple of 10000 so the low 4 digits are clear
	// before the safety code is spliced in (spec.md §4.1 step 6).
	responseAmountRaw := new(big.Int).Sub(tradeAmount, tradingFee)
	responseAmountRaw.Div(responseAmountRaw, tenThousand)
	responseAmountRaw.Mul(responseAmountRaw, tenThousand)

	responseAmount := spliceSafetyCode(responseAmountRaw, nonce)

	if rule.MaxPrice != nil && responseAmount.Cmp(rule.MaxPrice) > 0 {
		return nil, ErrAmountOutOfRange
	}
	// Min-price enforcement intentionally left disabled; see DESIGN.md
	// Open Question #3.

	return &Derivation{
		RuleID:         rule.ID,
		EBCAddress:     rule.EBCAddress,
		DealerAddress:  rule.DealerAddress,
		WithholdingFee: withholdingFee,
		TradeFee:       tradingFee,
		TargetChain:    rule.TargetChain,
		TargetToken:    rule.TargetToken,
		TargetSymbol:   rule.TargetSymbol,
		TargetAddress:  transfer.Sender, // V2 dialect: payout lands on the depositor's own address (spec.md §4.1)
		TargetAmount:   responseAmount,
		TargetNonce:    transfer.Nonce,
		ResponseMaker:  buildResponseMaker(transfer.Receiver, rule.ResponseMakerList),
	}, nil
}

// buildResponseMaker is the lowercased, deduplicated union of the
// deposit's receiver (the maker the deposit was paid to) and the
// rule's configured maker list (spec.md §4.1 step 7 / §6): any one of
// them paying out satisfies the destination sweep's membership check.
func buildResponseMaker(receiver string, extra []string) model.StringList {
	seen := make(map[string]bool, len(extra)+1)
	out := make(model.StringList, 0, len(extra)+1)

	add := func(addr string) {
		addr = strings.ToLower(addr)
		if addr == "" || seen[addr] {
			return
		}
		seen[addr] = true
		out = append(out, addr)
	}

	add(receiver)
	for _, a := range extra {
		add(a)
	}
	return out
}
