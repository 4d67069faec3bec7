package evaluation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeFinalScore(t *testing.T) {
	responses := map[string]Response{"q1": {Score: 4}, "q2": {Score: 2}}

	tests := []struct {
		name  string
		eval  Evaluation
		cfg   ScoringConfig
		want  string
		valid bool
	}{
		{
			name:  "simple average",
			eval:  Evaluation{Responses: responses},
			cfg:   ScoringConfig{Method: ScoringSimpleAverage},
			want:  "3",
			valid: true,
		},
		{
			name: "weighted average",
			eval: Evaluation{Responses: responses},
			cfg: ScoringConfig{Method: ScoringWeightedAverage, Weights: map[string]decimal.Decimal{
				"q1": decimal.NewFromInt(2),
				"q2": decimal.NewFromInt(1),
			}},
			want:  "3.3333",
			valid: true,
		},
		{
			name:  "weighted without weights falls back to one",
			eval:  Evaluation{Responses: responses},
			cfg:   ScoringConfig{Method: ScoringWeightedAverage},
			want:  "3",
			valid: true,
		},
		{
			name: "manager scores count and unrated are ignored",
			eval: Evaluation{
				Responses:     map[string]Response{"q1": {Score: 4}, "q2": {Score: 0}},
				ManagerScores: map[string]float64{"q1": 5, "q3": 0},
			},
			cfg:   ScoringConfig{Method: ScoringSimpleAverage},
			want:  "4.5",
			valid: true,
		},
		{
			name: "nothing rated",
			eval: Evaluation{Responses: map[string]Response{"q1": {Score: 0}}},
			cfg:  ScoringConfig{Method: ScoringSimpleAverage},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, err := ComputeFinalScore(tt.eval, tt.cfg)
			require.NoError(t, err)
			require.Equal(t, tt.valid, score.Valid)
			if tt.valid {
				assert.Equal(t, tt.want, score.Decimal.Round(scorePrecision).String())
			}
		})
	}
}

func TestComputeFinalScoreUnknownMethod(t *testing.T) {
	_, err := ComputeFinalScore(Evaluation{}, ScoringConfig{Method: "median"})
	require.ErrorIs(t, err, ErrUnknownScoringMethod)
}
