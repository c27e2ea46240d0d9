package sequencer

import (
	"github.com/bridgeswap/settlement-engine/internal/lock"
	"github.com/bridgeswap/settlement-engine/internal/model"
	"github.com/bridgeswap/settlement-engine/internal/store"
)

// StoreAdapter satisfies StoreOps over the concrete BridgeStore,
// SerialStore, and InFlightSet collaborators.
type StoreAdapter struct {
	Bridge   *store.BridgeStore
	Serial   *lock.SerialStore
	InFlight *store.InFlightSet
}

func NewStoreAdapter(bridge *store.BridgeStore, serial *lock.SerialStore, inFlight *store.InFlightSet) *StoreAdapter {
	return &StoreAdapter{Bridge: bridge, Serial: serial, InFlight: inFlight}
}

func (s *StoreAdapter) FindBridgeTxBySource(sourceChain, sourceID string) (*model.BridgeTransaction, error) {
	return s.Bridge.FindBridgeTxBySource(sourceChain, sourceID)
}

func (s *StoreAdapter) UpdateStatusGuarded(id uint, from, to model.BridgeTxStatus, extra map[string]interface{}) error {
	return s.Bridge.UpdateStatusGuarded(id, from, to, extra)
}

func (s *StoreAdapter) UpdateStatusGuardedBatch(ids []uint, from, to model.BridgeTxStatus, extra map[string]interface{}) error {
	return s.Bridge.UpdateStatusGuardedBatch(ids, from, to, extra)
}

func (s *StoreAdapter) GetSerialRecord(sourceID string) (string, bool, error) {
	return s.Serial.Get(sourceID)
}

func (s *StoreAdapter) SaveSerialRelTxHash(sourceIDs []string, txHash string) error {
	return s.Serial.Save(sourceIDs, txHash)
}

// RemoveTransactionsAndSetSerial implements the spec.md §4.3 rollback
// contract: detach from the in-flight set and reserve in
// SerialRelation together, returning a rollback thunk that only
// re-inserts into the in-flight set (the serial reservation is never
// undone, since a before-error could still mean the relation write
// itself already landed durably).
func (s *StoreAdapter) RemoveTransactionsAndSetSerial(chain, token, txHash string, txs []*model.TransferAmountTransaction) (func(), error) {
	sourceIDs := make([]string, len(txs))
	for i, tx := range txs {
		sourceIDs[i] = tx.SourceID
		s.InFlight.RemoveTransaction(chain, token, tx.SourceID)
	}

	if err := s.Serial.Save(sourceIDs, txHash); err != nil {
		s.InFlight.Reinsert(txs...)
		return nil, err
	}

	return func() { s.InFlight.Reinsert(txs...) }, nil
}
