package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferAmountTransaction is a unit of scheduled payout work sitting
// in the in-flight set, keyed by SourceID (spec.md §3 InFlightSet).
type TransferAmountTransaction struct {
	SourceID     string
	Chain        string
	Token        string
	Sender       string
	TargetChain  string
	TargetToken  string
	TargetSymbol string
	TargetAmount decimal.Decimal
	QueuedAt     time.Time
}

// SerialRecord is the durable per-sender `{sourceId -> payoutHash}`
// anchor described in spec.md §3/§4.4/§9. It lives in the lock
// package's Redis-backed store, not in the relational DB, because it
// must be written synchronously and outside any DB transaction.
type SerialRecord struct {
	SourceID string
	TxHash   string
}
