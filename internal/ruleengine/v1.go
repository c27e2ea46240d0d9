package ruleengine

import (
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/bridgeswap/settlement-engine/internal/model"
)

// v1Evaluator implements the legacy dialect (spec.md §4.1 "second
// dialect"): the target chain and target address are carried
// explicitly in the deposit calldata rather than folded into the
// value, so there is no security code to decode and no safety code to
// splice back out.
type v1Evaluator struct {
	provider RuleProvider
}

func NewV1Evaluator(provider RuleProvider) RuleEvaluator {
	return &v1Evaluator{provider: provider}
}

func (e *v1Evaluator) Evaluate(transfer *model.Transfer) (*Derivation, error) {
	targetChainID, targetAddress, err := decodeV1SwapData(transfer.CallData)
	if err != nil {
		return nil, errors.Wrap(err, "ruleengine: decode v1 swap data")
	}

	value, ok := new(big.Int).SetString(transfer.Value, 10)
	if !ok {
		return nil, ErrSecurityCodeInvalid
	}

	rule, err := e.provider.ResolveV1(transfer.Receiver, transfer.Timestamp, targetChainID, transfer.ChainID, transfer.Token)
	if err != nil {
		return nil, errors.Wrap(err, "ruleengine: resolve v1 rule")
	}
	if rule == nil {
		return nil, ErrRuleNotFound
	}

	tradeFeeBps, withholdingFee := rule.side(transfer.ChainID)

	tradeAmount := new(big.Int).Sub(value, withholdingFee)

	tradingFee := new(big.Int).Mul(tradeAmount, big.NewInt(tradeFeeBps))
	tradingFee.Div(tradingFee, big.NewInt(10000))

	responseAmount := new(big.Int).Sub(tradeAmount, tradingFee)

	if rule.MaxPrice != nil && responseAmount.Cmp(rule.MaxPrice) > 0 {
		return nil, ErrAmountOutOfRange
	}

	return &Derivation{
		RuleID:         rule.ID,
		EBCAddress:     rule.EBCAddress,
		DealerAddress:  rule.DealerAddress,
		WithholdingFee: withholdingFee,
		TradeFee:       tradingFee,
		TargetChain:    rule.TargetChain,
		TargetToken:    rule.TargetToken,
		TargetSymbol:   rule.TargetSymbol,
		TargetAddress:  targetAddress, // V1 dialect: decoded explicitly from calldata
		TargetAmount:   responseAmount,
		TargetNonce:    transfer.Nonce,
		ResponseMaker:  buildResponseMaker(transfer.Receiver, rule.ResponseMakerList),
	}, nil
}

// decodeV1SwapData reads the ABI-encoded tail of a deposit's calldata:
// a 4-byte selector, a left-padded uint256 target chain id, then a
// left-padded address. Layout mirrors the teacher's swap() call shape.
func decodeV1SwapData(calldata string) (targetChainID, targetAddress string, err error) {
	raw, err := hexDecode(calldata)
	if err != nil {
		return "", "", errors.Wrap(err, "v1 calldata is not valid hex")
	}
	const selectorLen = 4
	const wordLen = 32
	if len(raw) < selectorLen+2*wordLen {
		return "", "", errors.New("v1 calldata too short for (chainId, address) swap arguments")
	}

	body := raw[selectorLen:]
	chainIDWord := body[0:wordLen]
	addrWord := body[wordLen : 2*wordLen]

	chainID := new(big.Int).SetBytes(chainIDWord)
	addr := common.BytesToAddress(addrWord)

	return chainID.String(), addr.Hex(), nil
}

func hexDecode(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	return hex.DecodeString(s)
}
