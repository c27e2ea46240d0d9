package ruleengine

import (
	"math/big"
	"time"
)

// fakeProvider is a scriptable RuleProvider returning a fixed rule (or
// error) regardless of its arguments, capturing the last call made.
type fakeProvider struct {
	rule *Rule
	err  error

	lastOwner         string
	lastSourceChainID string
	lastSourceToken   string
}

func (p *fakeProvider) Resolve(owner string, ts time.Time, code SecurityCode, sourceChainID, sourceToken string) (*Rule, error) {
	p.lastOwner, p.lastSourceChainID, p.lastSourceToken = owner, sourceChainID, sourceToken
	return p.rule, p.err
}

func (p *fakeProvider) ResolveV1(owner string, ts time.Time, targetChainID, sourceChainID, sourceToken string) (*Rule, error) {
	p.lastOwner, p.lastSourceChainID, p.lastSourceToken = owner, sourceChainID, sourceToken
	return p.rule, p.err
}

func flatRule(chain0, chain1 string) *Rule {
	return &Rule{
		ID:                   "rule-1",
		EBCAddress:           "0xEBC",
		DealerAddress:        "0xDEALER",
		Chain0:               chain0,
		Chain1:               chain1,
		Chain0TradeFeeBps:    30,
		Chain0WithholdingFee: big.NewInt(1000),
		Chain1TradeFeeBps:    50,
		Chain1WithholdingFee: big.NewInt(2000),
		MaxPrice:             big.NewInt(1_000_000_000_000),
		ResponseMakerList:    []string{"0xMakerA"},
		TargetChain:          chain1,
		TargetToken:          "0xTARGETTOKEN",
		TargetSymbol:         "USDC",
	}
}
