package store

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bridgeswap/settlement-engine/internal/model"
)

// ErrNotFound is returned when a lookup finds no matching row.
var ErrNotFound = errors.New("store: not found")

// ErrRowCountMismatch is returned when an update that must affect an
// exact number of rows (the dest-sweep close, spec.md §4.2 step 3)
// touches a different count, signalling a concurrent winner already
// closed the match.
var ErrRowCountMismatch = errors.New("store: row count mismatch, concurrent writer won")

// BridgeStore is the gorm-backed persistence for BridgeTransaction and
// Transfer rows, used by both the Matcher and the Sequencer.
type BridgeStore struct {
	db *gorm.DB
}

func NewBridgeStore(db *gorm.DB) *BridgeStore {
	return &BridgeStore{db: db}
}

// Tx runs fn inside a database transaction, rolling back on any
// returned error (spec.md §5 suspension-point contract).
func (s *BridgeStore) Tx(fn func(tx *BridgeStore) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&BridgeStore{db: tx})
	})
}

// FindBridgeTxBySource looks up the logical identity (sourceChain,
// sourceId). Returns ErrNotFound if absent.
func (s *BridgeStore) FindBridgeTxBySource(sourceChain, sourceID string) (*model.BridgeTransaction, error) {
	var bt model.BridgeTransaction
	err := s.db.Where("source_chain = ? AND source_id = ?", sourceChain, sourceID).First(&bt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "store: find bridge tx by source")
	}
	return &bt, nil
}

// UpsertSourceSide creates or refreshes the source side of a bridge
// row (spec.md §4.2 source sweep step 3). Status stays 0 for new rows
// and is left untouched for existing ones; callers must have already
// verified the row is not InOperation.
func (s *BridgeStore) UpsertSourceSide(bt *model.BridgeTransaction) error {
	var existing model.BridgeTransaction
	err := s.db.Where("source_chain = ? AND source_id = ?", bt.SourceChain, bt.SourceID).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		bt.Status = model.StatusCreated
		return errors.Wrap(s.db.Create(bt).Error, "store: create bridge tx")
	case err != nil:
		return errors.Wrap(err, "store: load bridge tx for upsert")
	}

	if existing.Status.InOperation() {
		return errors.New("store: bridge tx already in operation, refusing rebuild")
	}

	bt.ID = existing.ID
	bt.Status = existing.Status
	return errors.Wrap(s.db.Model(&existing).Updates(bt).Error, "store: update bridge tx")
}

// FindBridgeTxByTargetID is dest-sweep lookup path B, first leg
// (spec.md §4.2 step 2): match by (targetChain, targetId) restricted
// to the closable status set.
func (s *BridgeStore) FindBridgeTxByTargetID(targetChain, targetID string) (*model.BridgeTransaction, error) {
	var bt model.BridgeTransaction
	err := s.db.Where(
		"target_chain = ? AND target_id = ? AND status IN (?)",
		targetChain, targetID, closableStatuses(),
	).First(&bt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "store: find bridge tx by target id")
	}
	return &bt, nil
}

// FindBridgeTxByContentMatch is dest-sweep lookup path B, second leg,
// and the DB fallback of lookup path A's cache predicate (spec.md
// §4.2 step 1/2): (targetChain, targetSymbol, targetAddress,
// targetAmount, sender ∈ responseMaker), restricted to closable
// statuses and the source/dest time bound.
func (s *BridgeStore) FindBridgeTxByContentMatch(
	targetChain, targetSymbol, targetAddress string,
	targetAmount decimal.Decimal,
	sender string,
	destTime time.Time,
) (*model.BridgeTransaction, error) {
	containment, err := json.Marshal([]string{strings.ToLower(sender)})
	if err != nil {
		return nil, errors.Wrap(err, "store: marshal response maker containment filter")
	}

	var bt model.BridgeTransaction
	err = s.db.Where(
		"target_chain = ? AND target_symbol = ? AND target_address = ? AND target_amount = ? AND status IN (?) "+
			"AND response_maker @> ? AND source_time BETWEEN ? AND ?",
		targetChain, targetSymbol, strings.ToLower(targetAddress), targetAmount, closableStatuses(),
		string(containment),
		destTime.Add(-120*time.Minute), destTime.Add(5*time.Minute),
	).First(&bt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "store: find bridge tx by content match")
	}
	return &bt, nil
}

// FindByStatus lists every bridge row currently at the given status,
// used by the startup reconciler to find payouts stranded mid-broadcast
// (spec.md §5, scenario S3).
func (s *BridgeStore) FindByStatus(status model.BridgeTxStatus) ([]model.BridgeTransaction, error) {
	var rows []model.BridgeTransaction
	err := s.db.Where("status = ?", status).Find(&rows).Error
	return rows, errors.Wrap(err, "store: find bridge tx by status")
}

func closableStatuses() []model.BridgeTxStatus {
	return []model.BridgeTxStatus{
		model.StatusCreated, model.StatusDestFailed, model.StatusPaidCrash, model.StatusPaidSuccess,
	}
}

// CloseMatchFields are the columns set when the dest sweep closes a
// match (spec.md §4.2 step 3).
type CloseMatchFields struct {
	TargetID        string
	TargetTime      time.Time
	TargetFee       decimal.Decimal
	TargetFeeSymbol string
	TargetNonce     string
	TargetMaker     string
	Success         bool // true -> status 99, false -> status 97
}

// CloseMatch applies the dest-sweep close inside one DB transaction:
// it updates the bridge row and flips opStatus=99 on exactly two
// Transfer rows (source and dest). A row-count mismatch means a
// concurrent sweep already won and this call rolls back and returns
// ErrRowCountMismatch (spec.md §4.2 step 3, §8 property 5/6).
func (s *BridgeStore) CloseMatch(bridgeTxID uint, sourceTransferID, destTransferID uint, f CloseMatchFields) error {
	return s.Tx(func(tx *BridgeStore) error {
		newStatus := model.StatusDestFailed
		if f.Success {
			newStatus = model.StatusBridgeSuccess
		}

		res := tx.db.Model(&model.BridgeTransaction{}).
			Where("id = ? AND status IN (?)", bridgeTxID, closableStatuses()).
			Updates(map[string]interface{}{
				"target_id":         f.TargetID,
				"target_time":       f.TargetTime,
				"target_fee":        f.TargetFee,
				"target_fee_symbol": f.TargetFeeSymbol,
				"target_nonce":      f.TargetNonce,
				"target_maker":      f.TargetMaker,
				"status":            newStatus,
			})
		if res.Error != nil {
			return errors.Wrap(res.Error, "store: update bridge tx on close")
		}
		if res.RowsAffected != 1 {
			return ErrRowCountMismatch
		}

		res = tx.db.Model(&model.Transfer{}).
			Where("id IN (?)", []uint{sourceTransferID, destTransferID}).
			Update("op_status", model.OpStatusMatched)
		if res.Error != nil {
			return errors.Wrap(res.Error, "store: set transfer op_status on close")
		}
		if res.RowsAffected != 2 {
			return ErrRowCountMismatch
		}
		return nil
	})
}

// UpdateStatusGuarded flips status from `from` to `to` (plus any extra
// field updates), failing with ErrRowCountMismatch unless exactly one
// row currently at `from` is touched. This is the primitive behind
// every Sequencer transition in spec.md §4.3.
func (s *BridgeStore) UpdateStatusGuarded(id uint, from, to model.BridgeTxStatus, extra map[string]interface{}) error {
	fields := map[string]interface{}{"status": to}
	for k, v := range extra {
		fields[k] = v
	}
	res := s.db.Model(&model.BridgeTransaction{}).Where("id = ? AND status = ?", id, from).Updates(fields)
	if res.Error != nil {
		return errors.Wrap(res.Error, "store: guarded status update")
	}
	if res.RowsAffected != 1 {
		return ErrRowCountMismatch
	}
	return nil
}

// UpdateStatusGuardedBatch is UpdateStatusGuarded lifted over a set of
// ids for execBatchTransfer (spec.md §4.3): the update must affect
// exactly len(ids) rows.
func (s *BridgeStore) UpdateStatusGuardedBatch(ids []uint, from, to model.BridgeTxStatus, extra map[string]interface{}) error {
	fields := map[string]interface{}{"status": to}
	for k, v := range extra {
		fields[k] = v
	}
	res := s.db.Model(&model.BridgeTransaction{}).Where("id IN (?) AND status = ?", ids, from).Updates(fields)
	if res.Error != nil {
		return errors.Wrap(res.Error, "store: guarded batch status update")
	}
	if int(res.RowsAffected) != len(ids) {
		return ErrRowCountMismatch
	}
	return nil
}

// SetTransferOpStatus marks matcher progress on a Transfer row
// (spec.md §4.2 step 3/step 4).
func (s *BridgeStore) SetTransferOpStatus(transferID uint, opStatus int) error {
	return errors.Wrap(
		s.db.Model(&model.Transfer{}).Where("id = ?", transferID).Update("op_status", opStatus).Error,
		"store: set transfer op_status",
	)
}
