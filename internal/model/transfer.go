// Package model holds the persisted row shapes of the match-and-pay
// pipeline: Transfer (input, written by an external ingester) and
// BridgeTransaction (the durable match record this engine owns).
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferStatus mirrors the on-chain settlement status of a Transfer
// row, as written by the ingester.
type TransferStatus int

const (
	TransferStatusPending TransferStatus = 0
	TransferStatusSuccess TransferStatus = 2
	TransferStatusFailed  TransferStatus = 3
)

// Matcher progress sentinel values for Transfer.OpStatus (spec.md §3).
const (
	OpStatusUnprocessed  = 0
	OpStatusSourceBuilt  = 1
	OpStatusMatched      = 99
	OpStatusErrorSentinel = -1
)

// Version identifies the bridge-protocol dialect a Transfer belongs
// to. "-0" suffixes are user->maker (source legs), "-1" suffixes are
// maker->user (destination legs).
type Version string

const (
	VersionV1Source Version = "1-0"
	VersionV1Dest   Version = "1-1"
	VersionV2Source Version = "2-0"
	VersionV2Dest   Version = "2-1"
)

// IsSource reports whether this version denotes a deposit leg.
func (v Version) IsSource() bool {
	return v == VersionV1Source || v == VersionV2Source
}

// IsDest reports whether this version denotes a payout leg.
func (v Version) IsDest() bool {
	return v == VersionV1Dest || v == VersionV2Dest
}

// IsV1 reports the "1-x" dialect, decoded via calldata rather than the
// security-code splice (spec.md §4.1).
func (v Version) IsV1() bool {
	return v == VersionV1Source || v == VersionV1Dest
}

// Transfer is an already-decoded chain transfer row. It is immutable
// after ingest except for OpStatus, which records matcher progress.
type Transfer struct {
	ID        uint           `gorm:"primaryKey"`
	Hash      string         `gorm:"size:128;uniqueIndex:idx_transfer_chain_hash"`
	ChainID   string         `gorm:"size:64;uniqueIndex:idx_transfer_chain_hash;index:idx_transfer_opstatus_version"`
	Sender    string         `gorm:"size:64"`
	Receiver  string         `gorm:"size:64;index"`
	Token     string         `gorm:"size:64"`
	Symbol    string         `gorm:"size:32"`
	Amount    decimal.Decimal `gorm:"type:numeric"`
	Value     string          `gorm:"size:80"` // raw integer string, carries the security code (V2 dialect)
	CallData  string          `gorm:"type:text"` // raw deposit calldata, populated for V1-dialect source legs only
	Nonce     string          `gorm:"size:32"`
	Timestamp time.Time       `gorm:"index"`
	FeeAmount decimal.Decimal `gorm:"type:numeric"`
	FeeToken  string          `gorm:"size:64"`
	Version   Version         `gorm:"size:8;index:idx_transfer_opstatus_version"`
	Status    TransferStatus  `gorm:"index"`
	OpStatus  int             `gorm:"index:idx_transfer_opstatus_version"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Transfer) TableName() string { return "transfers" }
