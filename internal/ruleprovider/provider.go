package ruleprovider

import (
	"time"

	"github.com/pkg/errors"
	"github.com/ybbus/jsonrpc"

	"github.com/bridgeswap/settlement-engine/internal/ruleengine"
)

// directoryResult is the shape returned by the rule-graph collaborator
// ("mdc"/"manager", spec.md §1) for a given owner/timestamp/identity
// triple: which on-chain maker is authoritative right now, and, for
// the V2 dialect, which chain the encoded index actually names.
type directoryResult struct {
	DealerAddress string `json:"dealerAddress"`
	EBCAddress    string `json:"ebcAddress"`
	TargetChainID string `json:"targetChainId"`
}

// Provider implements ruleengine.RuleProvider against a local rule
// Table (the maker-N.json fee/limit documents, spec.md §6) plus a
// JSON-RPC call to the out-of-scope directory service for the
// point-in-time dealer/ebc/chain-index resolution spec.md §4.1 step 3
// describes.
type Provider struct {
	table *Table
	rpc   jsonrpc.RPCClient
}

func NewProvider(table *Table, directoryURL string) *Provider {
	return &Provider{table: table, rpc: jsonrpc.NewClient(directoryURL)}
}

func (p *Provider) Resolve(owner string, ts time.Time, code ruleengine.SecurityCode, sourceChainID, sourceToken string) (*ruleengine.Rule, error) {
	var dir directoryResult
	if err := p.rpc.CallFor(&dir, "mdc_resolve", owner, ts.Unix(), code.DealerID, code.EBCID, code.TargetChainIndex); err != nil {
		return nil, errors.Wrap(err, "ruleprovider: resolve directory entry")
	}
	return p.merge(sourceChainID, dir, sourceToken)
}

func (p *Provider) ResolveV1(owner string, ts time.Time, targetChainID, sourceChainID, sourceToken string) (*ruleengine.Rule, error) {
	var dir directoryResult
	if err := p.rpc.CallFor(&dir, "mdc_resolveV1", owner, ts.Unix()); err != nil {
		return nil, errors.Wrap(err, "ruleprovider: resolve directory entry")
	}
	dir.TargetChainID = targetChainID
	return p.merge(sourceChainID, dir, sourceToken)
}

func (p *Provider) merge(sourceChainID string, dir directoryResult, sourceToken string) (*ruleengine.Rule, error) {
	rule, ok := p.table.lookup(sourceChainID, dir.TargetChainID, sourceToken)
	if !ok {
		return nil, nil // RuleNotFound: let the caller translate nil into ruleengine.ErrRuleNotFound
	}

	merged := *rule
	merged.DealerAddress = dir.DealerAddress
	merged.EBCAddress = dir.EBCAddress
	return &merged, nil
}
