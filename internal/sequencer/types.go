// Package sequencer orchestrates payouts (spec.md §4.3): popping
// in-flight work, acquiring the per-sender exclusive section, and
// driving a BridgeTransaction through its broadcast state machine.
//
// The three consumer-defined interfaces below resolve what would
// otherwise be a cyclic dependency between the sequencer, the store,
// and the account/signing layer (spec.md §9): concrete
// implementations from internal/account and internal/store are
// injected at construction rather than imported directly by type.
package sequencer

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/bridgeswap/settlement-engine/internal/model"
)

// SignedTx is the broadcast-ready output of a SenderAccount prepare
// call, matching account.PregeneratedRequestParameters's shape
// without the sequencer importing the account package's lease type
// directly.
type SignedTx struct {
	Hash   string
	Signed *types.Transaction
	Submit func()
	Rollback func()
}

// ForcedFeeType mirrors account.ForcedType without a direct import.
type ForcedFeeType struct {
	Set   bool
	Value uint8
}

// SenderAccount is the signing/broadcast capability the Sequencer
// needs, implemented by AccountAdapter over *account.Account.
type SenderAccount interface {
	Address() string
	Transfer(ctx context.Context, to string, amount *big.Int, forced ForcedFeeType) (*SignedTx, error)
	TransferToken(ctx context.Context, token, to string, amount *big.Int, forced ForcedFeeType) (*SignedTx, error)
	Transfers(ctx context.Context, router string, tos []string, values []*big.Int, forced ForcedFeeType) (*SignedTx, error)
	TransferTokens(ctx context.Context, router, token string, tos []string, values []*big.Int, forced ForcedFeeType) (*SignedTx, error)
	Broadcast(ctx context.Context, signed *types.Transaction) error
	WaitForTransactionConfirmation(ctx context.Context, txHash string) (*types.Receipt, error)
}

// StoreOps is the persistence capability the Sequencer needs,
// implemented by the Store adapter in this package over
// internal/store.BridgeStore, internal/lock.SerialStore, and
// internal/store.InFlightSet.
type StoreOps interface {
	FindBridgeTxBySource(sourceChain, sourceID string) (*model.BridgeTransaction, error)
	UpdateStatusGuarded(id uint, from, to model.BridgeTxStatus, extra map[string]interface{}) error
	UpdateStatusGuardedBatch(ids []uint, from, to model.BridgeTxStatus, extra map[string]interface{}) error

	GetSerialRecord(sourceID string) (txHash string, found bool, err error)
	SaveSerialRelTxHash(sourceIDs []string, txHash string) error

	// RemoveTransactionsAndSetSerial detaches sourceIDs from the
	// in-flight set and reserves them in SerialRelation in one call
	// (spec.md §4.3 rollback contract). The returned rollback thunk
	// re-inserts them into the in-flight set; callers must invoke it
	// on a before-error and must NOT invoke it on an after-error.
	RemoveTransactionsAndSetSerial(chain, token, txHash string, txs []*model.TransferAmountTransaction) (rollback func(), err error)
}

// Alerts is the one-shot notification capability (spec.md §6).
type Alerts interface {
	SendMessage(text string, channels []string)
}

// The three error kinds driving the state machine (spec.md §7).
type TransactionSendBeforeError struct{ Err error }

func (e *TransactionSendBeforeError) Error() string { return "sequencer: before error: " + e.Err.Error() }
func (e *TransactionSendBeforeError) Unwrap() error  { return e.Err }

type TransactionSendIgError struct{ Err error }

func (e *TransactionSendIgError) Error() string { return "sequencer: ignorable error: " + e.Err.Error() }
func (e *TransactionSendIgError) Unwrap() error  { return e.Err }

type TransactionSendAfterError struct{ Err error }

func (e *TransactionSendAfterError) Error() string { return "sequencer: after error: " + e.Err.Error() }
func (e *TransactionSendAfterError) Unwrap() error  { return e.Err }
