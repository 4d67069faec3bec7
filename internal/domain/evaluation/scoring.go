package evaluation

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ScoringConfig selects the aggregation and, for weighted_average, the
// per-question weights. Questions without a weight count as 1.
type ScoringConfig struct {
	Method  ScoringMethod
	Weights map[string]decimal.Decimal
}

// ComputeFinalScore aggregates the employee's self ratings and the manager's
// ratings. Zero means unrated and is ignored. The result is null when nothing
// was rated.
func ComputeFinalScore(e Evaluation, cfg ScoringConfig) (decimal.NullDecimal, error) {
	if !cfg.Method.Valid() {
		return decimal.NullDecimal{}, fmt.Errorf("%w: %q", ErrUnknownScoringMethod, cfg.Method)
	}

	var sum, total decimal.Decimal
	add := func(questionID string, score float64) {
		if score <= 0 {
			return
		}
		weight := decimal.NewFromInt(1)
		if cfg.Method == ScoringWeightedAverage {
			if w, ok := cfg.Weights[questionID]; ok && w.IsPositive() {
				weight = w
			}
		}
		sum = sum.Add(decimal.NewFromFloat(score).Mul(weight))
		total = total.Add(weight)
	}

	for questionID, response := range e.Responses {
		add(questionID, response.Score)
	}
	for questionID, score := range e.ManagerScores {
		add(questionID, score)
	}

	if total.IsZero() {
		return decimal.NullDecimal{}, nil
	}
	return decimal.NewNullDecimal(sum.Div(total)), nil
}
