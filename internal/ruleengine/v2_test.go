package ruleengine

import (
	"math/big"
	"testing"
	"time"

	"github.com/bridgeswap/settlement-engine/internal/model"
)

func zeroFeeRule() *Rule {
	r := flatRule("1", "137")
	r.Chain0TradeFeeBps = 0
	r.Chain0WithholdingFee = big.NewInt(0)
	r.Chain1TradeFeeBps = 0
	r.Chain1WithholdingFee = big.NewInt(0)
	r.MaxPrice = nil
	return r
}

func v2Transfer(value, nonce string) *model.Transfer {
	return &model.Transfer{
		ChainID:   "1",
		Token:     "0xSRC",
		Receiver:  "0xReceiver",
		Sender:    "0xDepositor",
		Value:     value,
		Nonce:     nonce,
		Timestamp: time.Now(),
		Version:   model.VersionV2Source,
	}
}

func TestV2EvaluateHappyPath(t *testing.T) {
	provider := &fakeProvider{rule: zeroFeeRule()}
	eval := NewV2Evaluator(provider)

	// value ends in security code 0000, nonce 7 -> response amount 50007
	d, err := eval.Evaluate(v2Transfer("50000", "7"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.TargetAmount.Cmp(big.NewInt(50007)) != 0 {
		t.Errorf("TargetAmount = %s, want 50007", d.TargetAmount)
	}
	if d.TargetAddress != "0xDepositor" {
		t.Errorf("TargetAddress = %q, want the depositor's own address (V2 self-payout)", d.TargetAddress)
	}
	if d.TargetChain != "137" {
		t.Errorf("TargetChain = %q, want 137", d.TargetChain)
	}
	if d.RuleID != "rule-1" || d.EBCAddress != "0xEBC" || d.DealerAddress != "0xDEALER" {
		t.Errorf("derivation identity fields not carried through: %+v", d)
	}
}

func TestV2EvaluateAppliesFeesAndWithholding(t *testing.T) {
	rule := flatRule("1", "137")
	rule.Chain0TradeFeeBps = 100 // 1%
	rule.Chain0WithholdingFee = big.NewInt(500)
	rule.MaxPrice = nil
	provider := &fakeProvider{rule: rule}
	eval := NewV2Evaluator(provider)

	// value = 1,000,000 with security code 0000
	d, err := eval.Evaluate(v2Transfer("1000000", "0"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	// tradeAmount = 1000000 - 0 (code) - 500 (withhold) = 999500
	// fee = 999500 * 100 / 10000 = 9995
	// raw = 999500 - 9995 = 989505, truncated to a multiple of 10000 = 980000
	// response = 980000 + nonce(0) = 980000
	want := big.NewInt(980000)
	if d.TargetAmount.Cmp(want) != 0 {
		t.Errorf("TargetAmount = %s, want %s", d.TargetAmount, want)
	}
	if d.WithholdingFee.Cmp(big.NewInt(500)) != 0 {
		t.Errorf("WithholdingFee = %s, want 500", d.WithholdingFee)
	}
	if d.TradeFee.Cmp(big.NewInt(9995)) != 0 {
		t.Errorf("TradeFee = %s, want 9995", d.TradeFee)
	}
}

func TestV2EvaluateRejectsInvalidNonce(t *testing.T) {
	provider := &fakeProvider{rule: zeroFeeRule()}
	eval := NewV2Evaluator(provider)

	if _, err := eval.Evaluate(v2Transfer("50000", "10000")); err != ErrSecurityCodeInvalid {
		t.Errorf("err = %v, want ErrSecurityCodeInvalid for nonce > 9999", err)
	}
	if _, err := eval.Evaluate(v2Transfer("50000", "not-a-number")); err != ErrSecurityCodeInvalid {
		t.Errorf("err = %v, want ErrSecurityCodeInvalid for non-numeric nonce", err)
	}
}

func TestV2EvaluateRejectsBadValue(t *testing.T) {
	provider := &fakeProvider{rule: zeroFeeRule()}
	eval := NewV2Evaluator(provider)

	if _, err := eval.Evaluate(v2Transfer("not-a-number", "1")); err != ErrSecurityCodeInvalid {
		t.Errorf("err = %v, want ErrSecurityCodeInvalid for a non-numeric value", err)
	}
}

func TestV2EvaluatePropagatesRuleNotFound(t *testing.T) {
	provider := &fakeProvider{rule: nil}
	eval := NewV2Evaluator(provider)

	if _, err := eval.Evaluate(v2Transfer("50000", "1")); err != ErrRuleNotFound {
		t.Errorf("err = %v, want ErrRuleNotFound", err)
	}
}

func TestV2EvaluateRejectsAmountOverMaxPrice(t *testing.T) {
	rule := zeroFeeRule()
	rule.MaxPrice = big.NewInt(100)
	provider := &fakeProvider{rule: rule}
	eval := NewV2Evaluator(provider)

	if _, err := eval.Evaluate(v2Transfer("50000", "7")); err != ErrAmountOutOfRange {
		t.Errorf("err = %v, want ErrAmountOutOfRange", err)
	}
}

func TestBuildResponseMakerDedupesAndLowercases(t *testing.T) {
	got := buildResponseMaker("0xABC", []string{"0xabc", "0xDEF"})
	want := model.StringList{"0xabc", "0xdef"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
