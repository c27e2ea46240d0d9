package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BridgeTxStatus is the status machine driving the Sequencer
// (spec.md §3/§4.3). Values are fixed by the original on-chain
// convention and must not be renumbered.
type BridgeTxStatus int

const (
	StatusCreated     BridgeTxStatus = 0  // awaiting payout
	StatusReadyPaid   BridgeTxStatus = 90 // DB lock held, payout being attempted
	StatusDestFailed  BridgeTxStatus = 97 // payout broadcast but on-chain failed
	StatusPaidCrash   BridgeTxStatus = 98 // broadcast crashed after partial side effect
	StatusPaidSuccess BridgeTxStatus = 95 // broadcast accepted, awaiting receipt (Open Question #1: chosen over 98)
	StatusBridgeSuccess BridgeTxStatus = 99 // receipt observed, matched
)

// ClosableByDestSweep is the status set the destination sweep may
// close over (spec.md §4.2 step 2, Open Question #1).
func (s BridgeTxStatus) ClosableByDestSweep() bool {
	return s == StatusCreated || s == StatusDestFailed || s == StatusPaidCrash || s == StatusPaidSuccess
}

// InOperation reports whether the row is past the point where the
// source sweep may rebuild it (spec.md §3 invariants).
func (s BridgeTxStatus) InOperation() bool {
	return s >= StatusReadyPaid
}

// StringList is a small comma-free JSON-backed string array column,
// used for ResponseMaker. No pack example ships a Postgres text-array
// helper, so this is implemented directly on encoding/json + database/sql
// rather than pulling in an array-type library for one field.
type StringList []string

func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	return string(b), err
}

func (s *StringList) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("model: unsupported StringList scan source")
	}
	if len(raw) == 0 {
		*s = nil
		return nil
	}
	return json.Unmarshal(raw, s)
}

// Contains reports membership case-insensitively, matching spec.md
// §4.2's "sender ∈ responseMaker" predicate.
func (s StringList) Contains(addr string) bool {
	addr = strings.ToLower(addr)
	for _, a := range s {
		if strings.ToLower(a) == addr {
			return true
		}
	}
	return false
}

// BridgeTransaction is the durable match record. Identity is
// (SourceChain, SourceID); primary key is ID (spec.md §3).
type BridgeTransaction struct {
	ID uint `gorm:"primaryKey"`

	// Source side
	SourceChain   string          `gorm:"size:64;uniqueIndex:idx_bridgetx_source"`
	SourceID      string          `gorm:"size:128;uniqueIndex:idx_bridgetx_source"`
	SourceAddress string          `gorm:"size:64"`
	SourceMaker   string          `gorm:"size:64"`
	SourceAmount  decimal.Decimal `gorm:"type:numeric"`
	SourceSymbol  string          `gorm:"size:32"`
	SourceToken   string          `gorm:"size:64"`
	SourceNonce   string          `gorm:"size:32"`
	SourceTime    time.Time

	// Target side
	TargetChain     string          `gorm:"size:64;index:idx_bridgetx_target"`
	TargetID        string          `gorm:"size:128;index:idx_bridgetx_target"`
	TargetAddress   string          `gorm:"size:64;index:idx_bridgetx_content_match"`
	TargetAmount    decimal.Decimal `gorm:"type:numeric;index:idx_bridgetx_content_match"`
	TargetSymbol    string          `gorm:"size:32;index:idx_bridgetx_content_match"`
	TargetToken     string          `gorm:"size:64"`
	TargetMaker     string          `gorm:"size:64"`
	TargetTime      time.Time
	TargetNonce     string `gorm:"size:32"`
	TargetFee       decimal.Decimal `gorm:"type:numeric"`
	TargetFeeSymbol string          `gorm:"size:32"`

	// Derivation
	RuleID          string     `gorm:"size:64"`
	EBCAddress      string     `gorm:"size:64"`
	DealerAddress   string     `gorm:"size:64"`
	WithholdingFee  decimal.Decimal `gorm:"type:numeric"`
	TradeFee        decimal.Decimal `gorm:"type:numeric"`
	ResponseMaker   StringList `gorm:"type:jsonb"`

	Status BridgeTxStatus `gorm:"index:idx_bridgetx_content_match"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (BridgeTransaction) TableName() string { return "bridge_transactions" }
