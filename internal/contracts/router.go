package contracts

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const orbiterRouterV3ABIJSON = `[
	{"inputs":[{"name":"tos","type":"address[]"},{"name":"values","type":"uint256[]"}],"name":"transfers","outputs":[],"stateMutability":"payable","type":"function"},
	{"inputs":[{"name":"token","type":"address"},{"name":"tos","type":"address[]"},{"name":"values","type":"uint256[]"}],"name":"transferTokens","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

// OrbiterRouterV3 is the batch payout router used by
// execBatchTransfer (spec.md §4.3): transfers() pays out native coin
// to many recipients in one call, transferTokens() does the same for
// one ERC-20.
type OrbiterRouterV3 struct {
	contract *bind.BoundContract
	address  common.Address
}

func NewOrbiterRouterV3(address common.Address, backend bind.ContractBackend) (*OrbiterRouterV3, error) {
	parsed, err := abi.JSON(stringsReader(orbiterRouterV3ABIJSON))
	if err != nil {
		return nil, err
	}
	return &OrbiterRouterV3{
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
		address:  address,
	}, nil
}

func (r *OrbiterRouterV3) Transfers(opts *bind.TransactOpts, tos []common.Address, values []*big.Int) (*types.Transaction, error) {
	return r.contract.Transact(opts, "transfers", tos, values)
}

func (r *OrbiterRouterV3) TransferTokens(opts *bind.TransactOpts, token common.Address, tos []common.Address, values []*big.Int) (*types.Transaction, error) {
	return r.contract.Transact(opts, "transferTokens", token, tos, values)
}
