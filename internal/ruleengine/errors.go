package ruleengine

import "errors"

// The three recoverable evaluator failures from spec.md §4.1. The
// Matcher's source sweep treats any of these as a per-transfer
// recoverable error: it records the error sentinel opStatus and moves
// on (spec.md §4.2 step 2).
var (
	ErrSecurityCodeInvalid = errors.New("ruleengine: security code invalid (nonce > 9999)")
	ErrRuleNotFound        = errors.New("ruleengine: no rule mapping for owner/timestamp/code")
	ErrAmountOutOfRange    = errors.New("ruleengine: response amount exceeds max price")
)
