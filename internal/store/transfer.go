package store

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/bridgeswap/settlement-engine/internal/model"
)

// SelectSourceCandidates loads deposit-leg transfers for the source
// sweep (spec.md §4.2): status success, unprocessed, within the given
// versions and lookback window, newest first, capped at limit.
func (s *BridgeStore) SelectSourceCandidates(versions []model.Version, since time.Time, limit int) ([]model.Transfer, error) {
	var out []model.Transfer
	err := s.db.
		Where("status = ? AND op_status = ? AND version IN (?) AND timestamp >= ?",
			model.TransferStatusSuccess, model.OpStatusUnprocessed, versions, since).
		Order("id desc").
		Limit(limit).
		Find(&out).Error
	return out, errors.Wrap(err, "store: select source candidates")
}

// FindTransferIDByHash resolves a Transfer's primary key from its
// (chainId, hash) identity, used by the dest sweep to flip opStatus on
// the originating source-leg row when it closes a match.
func (s *BridgeStore) FindTransferIDByHash(chainID, hash string) (uint, error) {
	var t model.Transfer
	err := s.db.Select("id").Where("chain_id = ? AND hash = ?", chainID, hash).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, errors.Wrap(err, "store: find transfer id by hash")
	}
	return t.ID, nil
}

// SelectDestCandidates loads payout-leg transfers for the dest sweep
// (spec.md §4.2): success or failed, unprocessed, within the given
// versions.
func (s *BridgeStore) SelectDestCandidates(versions []model.Version, limit int) ([]model.Transfer, error) {
	var out []model.Transfer
	err := s.db.
		Where("status IN (?) AND op_status = ? AND version IN (?)",
			[]model.TransferStatus{model.TransferStatusSuccess, model.TransferStatusFailed},
			model.OpStatusUnprocessed, versions).
		Order("id desc").
		Limit(limit).
		Find(&out).Error
	return out, errors.Wrap(err, "store: select dest candidates")
}
