package config

import (
	"math/big"
	"testing"
)

func TestLoadChainsPopulatesFeeFloor(t *testing.T) {
	Config.ChainList = []chainEntry{
		{
			Name:                 "polygon",
			ChainID:              137,
			RPCList:              []string{"https://rpc-a", "https://rpc-b"},
			RouterAddress:        "0xRouter",
			MinConfirmations:     12,
			MinFeePerGasWei:      "30000000000",
			MinPriorityPerGasWei: "2000000000",
		},
	}
	Chains = map[int64]ChainConfig{}

	loadChains()

	c, ok := Chains[137]
	if !ok {
		t.Fatal("Chains[137] not populated")
	}
	if c.Name != "polygon" {
		t.Errorf("Name = %q, want polygon", c.Name)
	}
	if len(c.RPCList) != 2 {
		t.Errorf("RPCList len = %d, want 2", len(c.RPCList))
	}

	minFee, minPriority, ok := FeeFloor(137)
	if !ok {
		t.Fatal("FeeFloor(137) ok = false")
	}
	if minFee.Cmp(big.NewInt(30000000000)) != 0 {
		t.Errorf("minFee = %s, want 30000000000", minFee)
	}
	if minPriority.Cmp(big.NewInt(2000000000)) != 0 {
		t.Errorf("minPriority = %s, want 2000000000", minPriority)
	}
}

func TestLoadChainsBadFeeStringDefaultsToZero(t *testing.T) {
	Config.ChainList = []chainEntry{
		{ChainID: 1, MinFeePerGasWei: "not-a-number", MinPriorityPerGasWei: ""},
	}
	Chains = map[int64]ChainConfig{}

	loadChains()

	c := Chains[1]
	if c.MinFeePerGas.Sign() != 0 {
		t.Errorf("MinFeePerGas = %s, want 0 for unparsable input", c.MinFeePerGas)
	}
	if c.MinPriorityPerGas.Sign() != 0 {
		t.Errorf("MinPriorityPerGas = %s, want 0 for empty input", c.MinPriorityPerGas)
	}
}

func TestFeeFloorUnknownChainNotOK(t *testing.T) {
	Chains = map[int64]ChainConfig{}

	if _, _, ok := FeeFloor(9999); ok {
		t.Error("FeeFloor for unknown chain id, want ok = false")
	}
}
