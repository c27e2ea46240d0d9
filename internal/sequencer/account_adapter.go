package sequencer

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/bridgeswap/settlement-engine/internal/account"
)

// AccountAdapter satisfies SenderAccount over a concrete
// *account.Account, translating its PregeneratedRequestParameters
// into the package-local SignedTx shape.
type AccountAdapter struct {
	Account *account.Account
}

func NewAccountAdapter(a *account.Account) *AccountAdapter { return &AccountAdapter{Account: a} }

func (a *AccountAdapter) Address() string { return a.Account.Address.Hex() }

func wrap(p *account.PregeneratedRequestParameters, err error) (*SignedTx, error) {
	if err != nil {
		return nil, err
	}
	return &SignedTx{
		Hash:     p.Hash,
		Signed:   p.Signed,
		Submit:   p.Lease.Submit,
		Rollback: p.Lease.Rollback,
	}, nil
}

func toAccountForced(f ForcedFeeType) account.ForcedType {
	return account.ForcedType{Set: f.Set, Value: f.Value}
}

func (a *AccountAdapter) Transfer(ctx context.Context, to string, amount *big.Int, forced ForcedFeeType) (*SignedTx, error) {
	return wrap(a.Account.Transfer(ctx, to, amount, toAccountForced(forced)))
}

func (a *AccountAdapter) TransferToken(ctx context.Context, token, to string, amount *big.Int, forced ForcedFeeType) (*SignedTx, error) {
	return wrap(a.Account.TransferToken(ctx, token, to, amount, toAccountForced(forced)))
}

func (a *AccountAdapter) Transfers(ctx context.Context, router string, tos []string, values []*big.Int, forced ForcedFeeType) (*SignedTx, error) {
	return wrap(a.Account.Transfers(ctx, router, tos, values, toAccountForced(forced)))
}

func (a *AccountAdapter) TransferTokens(ctx context.Context, router, token string, tos []string, values []*big.Int, forced ForcedFeeType) (*SignedTx, error) {
	return wrap(a.Account.TransferTokens(ctx, router, token, tos, values, toAccountForced(forced)))
}

// Broadcast detaches from ctx's cancellation so a shutdown cannot
// interrupt a payout that has reached the broadcast step.
func (a *AccountAdapter) Broadcast(ctx context.Context, signed *types.Transaction) error {
	return a.Account.Broadcast(context.WithoutCancel(ctx), signed)
}

func (a *AccountAdapter) WaitForTransactionConfirmation(ctx context.Context, txHash string) (*types.Receipt, error) {
	return a.Account.WaitForTransactionConfirmation(ctx, txHash)
}
