package account

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"

	"github.com/bridgeswap/settlement-engine/internal/config"
)

// feeTimeout bounds the whole fee computation end-to-end (spec.md
// §4.4/§5: "Fee computation is bounded to 30s ... exceeding it raises
// TransactionSendBeforeError").
const feeTimeout = 30 * time.Second

// FeeParams is the resolved fee for one broadcast: either legacy
// GasPrice or EIP-1559 FeeCap/TipCap is populated, never both.
type FeeParams struct {
	Type         uint8 // 0 = legacy, 2 = EIP-1559
	GasPrice     *big.Int
	FeeCap       *big.Int
	TipCap       *big.Int
	GasLimit     uint64
}

// ForcedType lets a caller override dynamic detection (spec.md §4.4:
// "if caller forced type in {0,2}, honor it").
type ForcedType struct {
	Set   bool
	Value uint8
}

// getGasPrice estimates gas and picks EIP-1559 vs legacy, flooring
// both fee components against the chain's configured minimums.
func getGasPrice(ctx context.Context, chainID int64, forced ForcedType) (*FeeParams, error) {
	ctx, cancel := context.WithTimeout(ctx, feeTimeout)
	defer cancel()

	minFee, minTip, haveFloor := config.FeeFloor(chainID)

	type feeData struct {
		gasPrice   *big.Int
		feeCap     *big.Int
		tipCap     *big.Int
		use1559    bool
	}

	data, err := WithClient(chainID, func(client *ethclient.Client) (feeData, error) {
		var fd feeData

		if !forced.Set || forced.Value == 2 {
			tip, tipErr := client.SuggestGasTipCap(ctx)
			head, headErr := client.HeaderByNumber(ctx, nil)
			if tipErr == nil && headErr == nil && head.BaseFee != nil {
				fd.use1559 = true
				fd.tipCap = tip
				fd.feeCap = new(big.Int).Add(head.BaseFee, tip)
				fd.feeCap.Mul(fd.feeCap, big.NewInt(2)) // headroom for the next base-fee adjustment
			}
		}

		if !fd.use1559 {
			gp, err := client.SuggestGasPrice(ctx)
			if err != nil {
				return fd, err
			}
			fd.gasPrice = gp
		}
		return fd, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "account: fetch fee data")
	}

	params := &FeeParams{GasLimit: 200000}

	if forced.Set {
		params.Type = forced.Value
	} else if data.use1559 {
		params.Type = 2
	}

	if params.Type == 2 {
		params.FeeCap = data.feeCap
		params.TipCap = data.tipCap
		if haveFloor {
			if params.FeeCap == nil || params.FeeCap.Cmp(minFee) < 0 {
				params.FeeCap = new(big.Int).Set(minFee)
			}
			if params.TipCap == nil || params.TipCap.Cmp(minTip) < 0 {
				params.TipCap = new(big.Int).Set(minTip)
			}
		}
		if params.FeeCap == nil || params.FeeCap.Sign() == 0 || params.TipCap == nil || params.TipCap.Sign() == 0 {
			return nil, errors.New("account: EIP1559 Fee fail")
		}
		return params, nil
	}

	params.GasPrice = data.gasPrice
	if haveFloor && (params.GasPrice == nil || params.GasPrice.Cmp(minFee) < 0) {
		params.GasPrice = new(big.Int).Set(minFee)
	}
	if params.GasPrice == nil || params.GasPrice.Sign() == 0 {
		return nil, errors.New("account: gasPrice Fee fail")
	}
	return params, nil
}
