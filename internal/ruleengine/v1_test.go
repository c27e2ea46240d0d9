package ruleengine

import (
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bridgeswap/settlement-engine/internal/model"
)

// buildV1Calldata assembles a 4-byte selector + left-padded uint256
// chain id + left-padded address, matching decodeV1SwapData's layout.
func buildV1Calldata(t *testing.T, chainID int64, addr string) string {
	t.Helper()
	chainIDWord := strings.Repeat("0", 64-len(big.NewInt(chainID).Text(16))) + big.NewInt(chainID).Text(16)
	addrHex := strings.TrimPrefix(addr, "0x")
	addrWord := strings.Repeat("0", 64-len(addrHex)) + addrHex
	return "0xaabbccdd" + chainIDWord + addrWord
}

func v1Transfer(calldata, value string) *model.Transfer {
	return &model.Transfer{
		ChainID:   "1",
		Token:     "0xSRC",
		Receiver:  "0xReceiver",
		Sender:    "0xDepositor",
		Value:     value,
		Nonce:     "5",
		CallData:  calldata,
		Timestamp: time.Now(),
		Version:   model.VersionV1Source,
	}
}

func TestV1EvaluateHappyPath(t *testing.T) {
	addr := "1234567890123456789012345678901234567890"
	calldata := buildV1Calldata(t, 137, addr)

	rule := zeroFeeRule()
	provider := &fakeProvider{rule: rule}
	eval := NewV1Evaluator(provider)

	d, err := eval.Evaluate(v1Transfer(calldata, "100000"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	wantAddr := common.HexToAddress(addr).Hex()
	if d.TargetAddress != wantAddr {
		t.Errorf("TargetAddress = %q, want %q", d.TargetAddress, wantAddr)
	}
	if d.TargetAmount.Cmp(big.NewInt(100000)) != 0 {
		t.Errorf("TargetAmount = %s, want 100000 (zero fees/withholding)", d.TargetAmount)
	}
	if provider.lastSourceChainID != "1" {
		t.Errorf("provider saw sourceChainID = %q, want 1", provider.lastSourceChainID)
	}
}

func TestV1EvaluateAppliesFeesAndWithholding(t *testing.T) {
	addr := "1234567890123456789012345678901234567890"
	calldata := buildV1Calldata(t, 137, addr)

	rule := flatRule("1", "137")
	rule.Chain0TradeFeeBps = 100
	rule.Chain0WithholdingFee = big.NewInt(1000)
	rule.MaxPrice = nil
	provider := &fakeProvider{rule: rule}
	eval := NewV1Evaluator(provider)

	d, err := eval.Evaluate(v1Transfer(calldata, "1000000"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	// tradeAmount = 1000000 - 1000 = 999000
	// fee = 999000 * 100 / 10000 = 9990
	// response = 999000 - 9990 = 989010
	want := big.NewInt(989010)
	if d.TargetAmount.Cmp(want) != 0 {
		t.Errorf("TargetAmount = %s, want %s", d.TargetAmount, want)
	}
}

func TestV1EvaluateRejectsShortCalldata(t *testing.T) {
	provider := &fakeProvider{rule: zeroFeeRule()}
	eval := NewV1Evaluator(provider)

	if _, err := eval.Evaluate(v1Transfer("0xaabbccdd", "1000")); err == nil {
		t.Error("expected an error for calldata too short to hold (chainId, address)")
	}
}

func TestV1EvaluateRejectsNonHexCalldata(t *testing.T) {
	provider := &fakeProvider{rule: zeroFeeRule()}
	eval := NewV1Evaluator(provider)

	if _, err := eval.Evaluate(v1Transfer("not-hex-at-all", "1000")); err == nil {
		t.Error("expected an error for non-hex calldata")
	}
}

func TestV1EvaluateRejectsAmountOverMaxPrice(t *testing.T) {
	addr := "1234567890123456789012345678901234567890"
	calldata := buildV1Calldata(t, 137, addr)

	rule := zeroFeeRule()
	rule.MaxPrice = big.NewInt(10)
	provider := &fakeProvider{rule: rule}
	eval := NewV1Evaluator(provider)

	if _, err := eval.Evaluate(v1Transfer(calldata, "100000")); err != ErrAmountOutOfRange {
		t.Errorf("err = %v, want ErrAmountOutOfRange", err)
	}
}
