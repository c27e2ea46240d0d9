package account

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"time"

	ethav "github.com/KOREAN139/ethereum-address-validator"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"

	"github.com/bridgeswap/settlement-engine/internal/contracts"
)

// Account is the per-(chainId, privateKey) signer the Sequencer uses
// for both single and batch payouts (spec.md §4.4).
type Account struct {
	ChainID    int64
	Address    common.Address
	privateKey *ecdsa.PrivateKey
	nonces     *NonceManager
}

func NewAccount(chainID int64, privateKeyHex string) (*Account, error) {
	pk, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, errors.Wrap(err, "account: parse private key")
	}
	addr := crypto.PubkeyToAddress(pk.PublicKey)
	return &Account{
		ChainID:    chainID,
		Address:    addr,
		privateKey: pk,
		nonces:     NewNonceManager(chainID, addr),
	}, nil
}

// ForceRefreshNonce re-syncs this account's nonce cursor with the
// chain (spec.md §4.4). The server calls it once per account at startup.
func (a *Account) ForceRefreshNonce(ctx context.Context) error {
	return a.nonces.ForceRefreshNonce(ctx)
}

// PregeneratedRequestParameters is everything a broadcast needs,
// already signed, with the hash available before `submit()` is called
// on the nonce lease (spec.md §4.4: "persist SerialRelation before
// calling submit()").
type PregeneratedRequestParameters struct {
	Lease  *Lease
	Signed *types.Transaction
	Hash   string
}

// Transfer prepares (signs, does not broadcast) a native-coin payout
// to a single recipient.
func (a *Account) Transfer(ctx context.Context, to string, amount *big.Int, forced ForcedType) (*PregeneratedRequestParameters, error) {
	if err := ethav.Validate(common.HexToAddress(to).Hex()); err != nil {
		return nil, errors.Wrap(err, "account: invalid recipient address")
	}

	fee, err := getGasPrice(ctx, a.ChainID, forced)
	if err != nil {
		return nil, err
	}
	lease := a.nonces.GetNextNonce()

	signed, err := a.signTransfer(lease, common.HexToAddress(to), amount, fee)
	if err != nil {
		lease.Rollback()
		return nil, err
	}
	return &PregeneratedRequestParameters{Lease: lease, Signed: signed, Hash: signed.Hash().Hex()}, nil
}

func (a *Account) signTransfer(lease *Lease, to common.Address, amount *big.Int, fee *FeeParams) (*types.Transaction, error) {
	var tx *types.Transaction
	if fee.Type == 2 {
		tx = types.NewTx(&types.DynamicFeeTx{
			ChainID:   big.NewInt(a.ChainID),
			Nonce:     lease.Nonce,
			GasTipCap: fee.TipCap,
			GasFeeCap: fee.FeeCap,
			Gas:       fee.GasLimit,
			To:        &to,
			Value:     amount,
		})
	} else {
		tx = types.NewTx(&types.LegacyTx{
			Nonce:    lease.Nonce,
			GasPrice: fee.GasPrice,
			Gas:      fee.GasLimit,
			To:       &to,
			Value:    amount,
		})
	}

	signer := types.LatestSignerForChainID(big.NewInt(a.ChainID))
	return types.SignTx(tx, signer, a.privateKey)
}

// TransferToken prepares (signs, does not broadcast) an ERC-20 payout
// to a single recipient.
func (a *Account) TransferToken(ctx context.Context, token, to string, amount *big.Int, forced ForcedType) (*PregeneratedRequestParameters, error) {
	if err := ethav.Validate(common.HexToAddress(to).Hex()); err != nil {
		return nil, errors.Wrap(err, "account: invalid recipient address")
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
	opts.GasLimit = fee.GasLimit
	opts.Value = big.NewInt(0)
	opts.NoSend = true // sign only; broadcast is a separate explicit step (spec.md §4.4 ordering)
	if fee.Type == 2 {
		opts.GasFeeCap = fee.FeeCap
		opts.GasTipCap = fee.TipCap
	} else {
		opts.GasPrice = fee.GasPrice
	}

	signed, err := WithClient(a.ChainID, func(client *ethclient.Client) (*types.Transaction, error) {
		erc20, cerr := contracts.NewERC20(common.HexToAddress(token), client)
		if cerr != nil {
			return nil, cerr
		}
		return erc20.Transfer(opts, common.HexToAddress(to), amount)
	})
	if err != nil {
		lease.Rollback()
		return nil, errors.Wrap(err, "account: build token transfer")
	}
	return &PregeneratedRequestParameters{Lease: lease, Signed: signed, Hash: signed.Hash().Hex()}, nil
}

// Broadcast submits an already-signed transaction. Callers must have
// already persisted SerialRelation for this hash before calling this
// (spec.md §4.4).
func (a *Account) Broadcast(ctx context.Context, signed *types.Transaction) error {
	_, err := WithClient(a.ChainID, func(client *ethclient.Client) (struct{}, error) {
		return struct{}{}, client.SendTransaction(ctx, signed)
	})
	return err
}

// GetBalance reads native coin balance.
func (a *Account) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	return WithClient(a.ChainID, func(client *ethclient.Client) (*big.Int, error) {
		return client.BalanceAt(ctx, common.HexToAddress(address), nil)
	})
}

// GetTokenBalance reads an ERC-20 balance.
func (a *Account) GetTokenBalance(ctx context.Context, token, address string) (*big.Int, error) {
	return WithClient(a.ChainID, func(client *ethclient.Client) (*big.Int, error) {
		erc20, err := contracts.NewERC20(common.HexToAddress(token), client)
		if err != nil {
			return nil, err
		}
		return erc20.BalanceOf(&bind.CallOpts{Context: ctx}, common.HexToAddress(address))
	})
}

// WaitForTransactionConfirmation polls for a mined receipt. It has no
// hard timeout (spec.md §5): callers that need one should wrap ctx.
func (a *Account) WaitForTransactionConfirmation(ctx context.Context, txHash string) (*types.Receipt, error) {
	hash := common.HexToHash(txHash)
	for {
		receipt, err := WithClient(a.ChainID, func(client *ethclient.Client) (*types.Receipt, error) {
			return client.TransactionReceipt(ctx, hash)
		})
		if err == nil {
			return receipt, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
}
