// Package store is the relational persistence layer for Transfer and
// BridgeTransaction rows, plus the in-memory in-flight work queue
// (spec.md §3 InFlightSet). DB access is gorm over Postgres, the same
// combination used for relayer/bridge transaction rows elsewhere in
// the retrieval pack (see DESIGN.md).
package store

import (
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bridgeswap/settlement-engine/internal/model"
)

// Open dials the configured Postgres DSN and returns a ready *gorm.DB.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, errors.Wrap(err, "store: open database")
	}
	return db, nil
}

// AutoMigrate creates/updates the tables this engine owns. It is run
// once at startup behind a CLI flag, matching the pack's convention of
// relying on gorm.AutoMigrate rather than a migration-file framework.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.Transfer{}, &model.BridgeTransaction{})
}
