package ruleprovider

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ybbus/jsonrpc"

	"github.com/bridgeswap/settlement-engine/internal/ruleengine"
)

// fakeRPC implements jsonrpc.RPCClient against a canned CallFor result,
// standing in for the out-of-scope directory service.
type fakeRPC struct {
	result     directoryResult
	err        error
	lastMethod string
	lastParams []interface{}
}

func (f *fakeRPC) Call(method string, params ...interface{}) (*jsonrpc.RPCResponse, error) {
	panic("Call not used by Provider")
}

func (f *fakeRPC) CallFor(out interface{}, method string, params ...interface{}) error {
	f.lastMethod = method
	f.lastParams = params
	if f.err != nil {
		return f.err
	}
	b, err := json.Marshal(f.result)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func (f *fakeRPC) CallRaw(request *jsonrpc.RPCRequest) (*jsonrpc.RPCResponse, error) {
	panic("CallRaw not used by Provider")
}

func (f *fakeRPC) CallBatch(requests jsonrpc.RPCRequests) (jsonrpc.RPCResponses, error) {
	panic("CallBatch not used by Provider")
}

func (f *fakeRPC) CallBatchRaw(requests jsonrpc.RPCRequests) (jsonrpc.RPCResponses, error) {
	panic("CallBatchRaw not used by Provider")
}

func testTable(t *testing.T) *Table {
	t.Helper()
	path := writeDoc(t, sampleDoc)
	tbl, err := LoadTable([]string{path})
	if err != nil {
		t.Fatalf("LoadTable: %v", err)
	}
	return tbl
}

func TestProviderResolveMergesDirectoryFields(t *testing.T) {
	tbl := testTable(t)
	rpc := &fakeRPC{result: directoryResult{
		DealerAddress: "0xDealer",
		EBCAddress:    "0xEBC",
		TargetChainID: "137",
	}}
	p := &Provider{table: tbl, rpc: rpc}

	code := ruleengine.SecurityCode{DealerID: 1, EBCID: 2, TargetChainIndex: 0}
	rule, err := p.Resolve("0xowner", time.Unix(1000, 0), code, "1", "0xETHTOKEN")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rule == nil {
		t.Fatal("Resolve returned nil rule, want a match")
	}
	if rule.DealerAddress != "0xDealer" || rule.EBCAddress != "0xEBC" {
		t.Errorf("merged dealer/ebc = %q/%q, want 0xDealer/0xEBC", rule.DealerAddress, rule.EBCAddress)
	}
	if rpc.lastMethod != "mdc_resolve" {
		t.Errorf("lastMethod = %q, want mdc_resolve", rpc.lastMethod)
	}
}

func TestProviderResolveV1UsesGivenTargetChain(t *testing.T) {
	tbl := testTable(t)
	rpc := &fakeRPC{result: directoryResult{DealerAddress: "0xD", EBCAddress: "0xE"}}
	p := &Provider{table: tbl, rpc: rpc}

	rule, err := p.ResolveV1("0xowner", time.Unix(2000, 0), "137", "1", "0xETHTOKEN")
	if err != nil {
		t.Fatalf("ResolveV1: %v", err)
	}
	if rule == nil {
		t.Fatal("ResolveV1 returned nil rule, want a match")
	}
	if rpc.lastMethod != "mdc_resolveV1" {
		t.Errorf("lastMethod = %q, want mdc_resolveV1", rpc.lastMethod)
	}
}

func TestProviderResolveNoMatchReturnsNilNotError(t *testing.T) {
	tbl := testTable(t)
	rpc := &fakeRPC{result: directoryResult{TargetChainID: "999999"}}
	p := &Provider{table: tbl, rpc: rpc}

	code := ruleengine.SecurityCode{}
	rule, err := p.Resolve("0xowner", time.Unix(0, 0), code, "1", "0xTokenA")
	if err != nil {
		t.Fatalf("Resolve returned an error for an unmatched pair: %v", err)
	}
	if rule != nil {
		t.Error("expected nil rule for an unknown chain pair")
	}
}

func TestProviderResolvePropagatesRPCError(t *testing.T) {
	tbl := testTable(t)
	rpc := &fakeRPC{err: errRPCDown}
	p := &Provider{table: tbl, rpc: rpc}

	code := ruleengine.SecurityCode{}
	if _, err := p.Resolve("0xowner", time.Unix(0, 0), code, "1", "0xTokenA"); err == nil {
		t.Error("expected an error when the directory call fails")
	}
}

type fakeErrRPC string

func (e fakeErrRPC) Error() string { return string(e) }

var errRPCDown = fakeErrRPC("rpc: connection refused")
