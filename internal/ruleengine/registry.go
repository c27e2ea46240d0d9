package ruleengine

import "github.com/bridgeswap/settlement-engine/internal/model"

// Registry dispatches a Transfer to the evaluator for its dialect
// (spec.md §4.1: "dispatch on transfer.version prefix").
type Registry struct {
	v1 RuleEvaluator
	v2 RuleEvaluator
}

func NewRegistry(provider RuleProvider) *Registry {
	return &Registry{
		v1: NewV1Evaluator(provider),
		v2: NewV2Evaluator(provider),
	}
}

// For returns the evaluator for a transfer's version.
func (r *Registry) For(version model.Version) RuleEvaluator {
	if version.IsV1() {
		return r.v1
	}
	return r.v2
}

// Evaluate is a convenience wrapper equivalent to
// r.For(transfer.Version).Evaluate(transfer).
func (r *Registry) Evaluate(transfer *model.Transfer) (*Derivation, error) {
	return r.For(transfer.Version).Evaluate(transfer)
}
