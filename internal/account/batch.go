package account

import (
	"context"
	"math/big"

	ethav "github.com/KOREAN139/ethereum-address-validator"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"

	"github.com/bridgeswap/settlement-engine/internal/contracts"
)

// Transfers prepares a batch native-coin payout via OrbiterRouterV3's
// transfers() (spec.md §4.3 execBatchTransfer).
func (a *Account) Transfers(ctx context.Context, router string, tos []string, values []*big.Int, forced ForcedType) (*PregeneratedRequestParameters, error) {
	total := big.NewInt(0)
	addrs := make([]common.Address, len(tos))
	for i, to := range tos {
		if err := ethav.Validate(common.HexToAddress(to).Hex()); err != nil {
			return nil, errors.Wrapf(err, "account: invalid recipient address at index %d", i)
		}
		addrs[i] = common.HexToAddress(to)
		total.Add(total, values[i])
	}

	fee, err := getGasPrice(ctx, a.ChainID, forced)
	if err != nil {
		return nil, err
	}
	lease := a.nonces.GetNextNonce()

	opts, err := bind.NewKeyedTransactorWithChainID(a.privateKey, big.NewInt(a.ChainID))
	if err != nil {
		lease.Rollback()
		return nil, errors.Wrap(err, "account: build transactor")
	}
	opts.Nonce = new(big.Int).SetUint64(lease.Nonce)
	opts.GasLimit = fee.GasLimit * uint64(len(tos)+1)
	opts.Value = total
	opts.NoSend = true
	applyFee(opts, fee)

	signed, err := WithClient(a.ChainID, func(client *ethclient.Client) (*types.Transaction, error) {
		r, cerr := contracts.NewOrbiterRouterV3(common.HexToAddress(router), client)
		if cerr != nil {
			return nil, cerr
		}
		return r.Transfers(opts, addrs, values)
	})
	if err != nil {
		lease.Rollback()
		return nil, errors.Wrap(err, "account: build batch transfer")
	}
	return &PregeneratedRequestParameters{Lease: lease, Signed: signed, Hash: signed.Hash().Hex()}, nil
}

// TransferTokens prepares a batch ERC-20 payout via OrbiterRouterV3's
// transferTokens().
func (a *Account) TransferTokens(ctx context.Context, router, token string, tos []string, values []*big.Int, forced ForcedType) (*PregeneratedRequestParameters, error) {
	addrs := make([]common.Address, len(tos))
	for i, to := range tos {
		if err := ethav.Validate(common.HexToAddress(to).Hex()); err != nil {
			return nil, errors.Wrapf(err, "account: invalid recipient address at index %d", i)
		}
		addrs[i] = common.HexToAddress(to)
	}

	fee, err := getGasPrice(ctx, a.ChainID, forced)
	if err != nil {
		return nil, err
	}
	lease := a.nonces.GetNextNonce()

	opts, err := bind.NewKeyedTransactorWithChainID(a.privateKey, big.NewInt(a.ChainID))
	if err != nil {
		lease.Rollback()
		return nil, errors.Wrap(err, "account: build transactor")
	}
	opts.Nonce = new(big.Int).SetUint64(lease.Nonce)
	opts.GasLimit = fee.GasLimit * uint64(len(tos)+1)
	opts.Value = big.NewInt(0)
	opts.NoSend = true
	applyFee(opts, fee)

	signed, err := WithClient(a.ChainID, func(client *ethclient.Client) (*types.Transaction, error) {
		r, cerr := contracts.NewOrbiterRouterV3(common.HexToAddress(router), client)
		if cerr != nil {
			return nil, cerr
		}
		return r.TransferTokens(opts, common.HexToAddress(token), addrs, values)
	})
	if err != nil {
		lease.Rollback()
		return nil, errors.Wrap(err, "account: build batch token transfer")
	}
	return &PregeneratedRequestParameters{Lease: lease, Signed: signed, Hash: signed.Hash().Hex()}, nil
}

func applyFee(opts *bind.TransactOpts, fee *FeeParams) {
	if fee.Type == 2 {
		opts.GasFeeCap = fee.FeeCap
		opts.GasTipCap = fee.TipCap
	} else {
		opts.GasPrice = fee.GasPrice
	}
}
