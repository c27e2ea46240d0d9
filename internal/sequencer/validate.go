package sequencer

import "github.com/shopspring/decimal"

// maxAcceptableLossBps bounds how far an invoked payout's intended
// amount may drift from the bridge row's own recorded target amount
// before the Sequencer refuses to broadcast (spec.md §4.3
// validatingValueMatches, scenario S4).
const maxAcceptableLossBps = 50 // 0.5%

// validatingValueMatches compares the amount a caller is about to
// broadcast against the amount the Rule Evaluator actually derived
// and persisted on the bridge row. A mismatch beyond the tolerance is
// a before-error: it must not reach broadcast.
func validatingValueMatches(recorded, intended decimal.Decimal) bool {
	if recorded.IsZero() {
		return intended.IsZero()
	}
	diff := recorded.Sub(intended).Abs()
	maxLoss := recorded.Mul(decimal.NewFromInt(maxAcceptableLossBps)).Div(decimal.NewFromInt(10000))
	return diff.LessThanOrEqual(maxLoss)
}
