package ruleengine

import (
	"math/big"
	"testing"
)

func TestDecodeSecurityCode(t *testing.T) {
	cases := []struct {
		value                              int64
		dealerID, ebcID, targetChainIndex int
	}{
		{1234, 4, 3, 12},
		{50000, 0, 0, 0},
		{9999, 9, 9, 99},
		{123450001, 1, 0, 0},
	}
	for _, c := range cases {
		got := decodeSecurityCode(big.NewInt(c.value))
		if got.DealerID != c.dealerID || got.EBCID != c.ebcID || got.TargetChainIndex != c.targetChainIndex {
			t.Errorf("decodeSecurityCode(%d) = %+v, want {DealerID:%d EBCID:%d TargetChainIndex:%d}",
				c.value, got, c.dealerID, c.ebcID, c.targetChainIndex)
		}
	}
}

func TestSpliceSafetyCode(t *testing.T) {
	got := spliceSafetyCode(big.NewInt(980000), 42)
	if got.Cmp(big.NewInt(980042)) != 0 {
		t.Errorf("spliceSafetyCode(980000, 42) = %s, want 980042", got)
	}
}

func TestSecurityCodeValue(t *testing.T) {
	got := securityCodeValue(big.NewInt(100001234))
	if got.Cmp(big.NewInt(1234)) != 0 {
		t.Errorf("securityCodeValue(100001234) = %s, want 1234", got)
	}
}
