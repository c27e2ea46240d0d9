// Package ruleprovider implements ruleengine.RuleProvider: load the
// maker-N.json rule documents at startup into an in-memory table, and
// resolve dealer/ebc identity and (for V2) the target chain through
// the out-of-scope rule-graph collaborator (spec.md §1's "mdc",
// "manager") over JSON-RPC.
package ruleprovider

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/bridgeswap/settlement-engine/internal/ruleengine"
)

// makerDocument is the on-disk shape of one maker-N.json file: outer
// key is "<chainA>-<chainB>", inner key is "<symA>-<symB>" (spec.md
// §6 Rule config files).
type makerDocument map[string]map[string]makerEntry

type makerEntry struct {
	EBCAddress    string `json:"ebcAddress"`
	DealerAddress string `json:"dealerAddress"`

	Chain0TradeFeeBps    int64  `json:"chain0TradeFee"`
	Chain0WithholdingFee string `json:"chain0WithholdingFee"`
	Chain1TradeFeeBps    int64  `json:"chain1TradeFee"`
	Chain1WithholdingFee string `json:"chain1WithholdingFee"`

	MinPrice string `json:"minPrice"`
	MaxPrice string `json:"maxPrice"`

	ResponseMakers struct {
		ResponseMakerList []string `json:"response_maker_list"`
	} `json:"responseMakers"`

	SourceToken string `json:"sourceToken"`
	TargetToken string `json:"targetToken"`
}

// Table is the flattened, queryable form of every loaded maker
// document, keyed by (sourceChainId, targetChainId, sourceSymbol,
// targetSymbol).
type Table struct {
	rules map[string]*ruleengine.Rule
}

func ruleKey(sourceChain, targetChain, sourceSymbol, targetSymbol string) string {
	return sourceChain + "|" + targetChain + "|" + sourceSymbol + "|" + targetSymbol
}

// LoadTable reads every path in paths (the configured maker-1..4.json
// documents) and flattens their union into one Table. Later files win
// on key collision, matching the teacher's own last-write-wins config
// merge in config/init.go.
func LoadTable(paths []string) (*Table, error) {
	t := &Table{rules: make(map[string]*ruleengine.Rule)}
	for _, p := range paths {
		if err := t.loadOne(p); err != nil {
			return nil, errors.Wrapf(err, "ruleprovider: load %s", p)
		}
	}
	return t, nil
}

func (t *Table) loadOne(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var doc makerDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}

	for chainPair, symbols := range doc {
		chain0, chain1, err := splitPair(chainPair)
		if err != nil {
			return err
		}
		for symPair, entry := range symbols {
			sym0, sym1, err := splitPair(symPair)
			if err != nil {
				return err
			}
			base, err := entry.toRule(chainPair, chain0, chain1, sym1)
			if err != nil {
				return err
			}

			// both directions are queryable: chain0->chain1 and chain1->chain0.
			// Each direction needs its own TargetChain/TargetSymbol and its
			// own Source/TargetToken orientation, so these are two distinct
			// copies sharing everything else (fee legs are selected off the
			// fixed Chain0/Chain1 pair, not the direction).
			fwd := *base
			fwd.TargetChain = chain1
			fwd.TargetSymbol = sym1
			t.rules[ruleKey(chain0, chain1, sym0, sym1)] = &fwd

			rev := *base
			rev.TargetChain = chain0
			rev.TargetSymbol = sym0
			rev.SourceToken, rev.TargetToken = base.TargetToken, base.SourceToken
			t.rules[ruleKey(chain1, chain0, sym1, sym0)] = &rev
		}
	}
	return nil
}

func (e makerEntry) toRule(id, chain0, chain1, targetSymbol string) (*ruleengine.Rule, error) {
	chain0Withhold, ok := new(big.Int).SetString(e.Chain0WithholdingFee, 10)
	if !ok {
		return nil, fmt.Errorf("ruleprovider: bad chain0WithholdingFee %q", e.Chain0WithholdingFee)
	}
	chain1Withhold, ok := new(big.Int).SetString(e.Chain1WithholdingFee, 10)
	if !ok {
		return nil, fmt.Errorf("ruleprovider: bad chain1WithholdingFee %q", e.Chain1WithholdingFee)
	}
	minPrice, ok := new(big.Int).SetString(e.MinPrice, 10)
	if !ok {
		return nil, fmt.Errorf("ruleprovider: bad minPrice %q", e.MinPrice)
	}
	maxPrice, ok := new(big.Int).SetString(e.MaxPrice, 10)
	if !ok {
		return nil, fmt.Errorf("ruleprovider: bad maxPrice %q", e.MaxPrice)
	}

	return &ruleengine.Rule{
		ID:                   id,
		EBCAddress:           e.EBCAddress,
		DealerAddress:        e.DealerAddress,
		Chain0:               chain0,
		Chain1:               chain1,
		Chain0TradeFeeBps:    e.Chain0TradeFeeBps,
		Chain0WithholdingFee: chain0Withhold,
		Chain1TradeFeeBps:    e.Chain1TradeFeeBps,
		Chain1WithholdingFee: chain1Withhold,
		MinPrice:             minPrice,
		MaxPrice:             maxPrice,
		ResponseMakerList:    e.ResponseMakers.ResponseMakerList,
		SourceToken:          e.SourceToken,
		TargetToken:          e.TargetToken,
		TargetChain:          chain1,
		TargetSymbol:         targetSymbol,
	}, nil
}

func splitPair(s string) (a, b string, err error) {
	for i := 0; i < len(s); i++ {
		if s[i] == '-' {
			return s[:i], s[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("ruleprovider: malformed pair key %q", s)
}

// lookup finds the rule for (sourceChain, targetChain, sourceToken):
// token identity is matched by mainnet_token across chains (spec.md
// §4.1 step 4), so sourceToken is checked against the matched
// direction's SourceToken, the token on the side of the pair
// (chain0/chain1) the source chain occupies. Each matched entry fixes
// its own target symbol, so callers never supply one.
func (t *Table) lookup(sourceChain, targetChain, sourceToken string) (*ruleengine.Rule, bool) {
	for _, r := range t.rules {
		if r.TargetChain != targetChain {
			continue
		}
		if r.Chain0 != sourceChain && r.Chain1 != sourceChain {
			continue
		}
		want := r.SourceToken
		if want != "" && sourceToken != "" && !strings.EqualFold(want, sourceToken) {
			continue
		}
		return r, true
	}
	return nil, false
}
