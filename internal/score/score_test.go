package score_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/finopshub/advisor/internal/config"
	"github.com/finopshub/advisor/internal/score"
	"github.com/finopshub/advisor/pkg/recommend"
)

func scoringDefaults() config.ScoringConfig {
	return config.Default().Scoring
}

func TestScoreBestCase(t *testing.T) {
	s := score.New(scoringDefaults())
	rec := recommend.Recommendation{
		MonthlySavings: 5000, // above the ceiling
		Effort:         recommend.EffortLow,
		Risks:          nil,
	}

	got, level := s.Score(&rec)
	assert.Equal(t, 100.0, got)
	assert.Equal(t, recommend.PriorityHigh, level)
}

func TestScoreWorstCase(t *testing.T) {
	s := score.New(scoringDefaults())
	rec := recommend.Recommendation{
		MonthlySavings: 0,
		Effort:         recommend.EffortHigh,
		Risks:          []string{"r1", "r2", "r3", "r4", "r5"},
	}

	got, level := s.Score(&rec)
	assert.Equal(t, 0.0, got)
	assert.Equal(t, recommend.PriorityLow, level)
}

func TestScoreWeightsAreApplied(t *testing.T) {
	s := score.New(scoringDefaults())
	rec := recommend.Recommendation{
		MonthlySavings: 500, // half the ceiling
		Effort:         recommend.EffortMedium,
		Risks:          []string{"one risk"},
	}

	// 100 * (0.5*0.5 + 0.3*0.5 + 0.2*0.8) = 56
	got, level := s.Score(&rec)
	assert.InDelta(t, 56.0, got, 1e-9)
	assert.Equal(t, recommend.PriorityMedium, level)
}

func TestScoreIsDeterministic(t *testing.T) {
	s := score.New(scoringDefaults())
	rec := recommend.Recommendation{
		MonthlySavings: 321.5,
		Effort:         recommend.EffortLow,
		Risks:          []string{"a", "b"},
	}

	first, _ := s.Score(&rec)
	for i := 0; i < 10; i++ {
		again, _ := s.Score(&rec)
		assert.Equal(t, first, again)
	}
}

func TestLevelThresholds(t *testing.T) {
	tests := []struct {
		score float64
		want  recommend.PriorityLevel
	}{
		{100, recommend.PriorityHigh},
		{70, recommend.PriorityHigh},
		{69.999, recommend.PriorityMedium},
		{40, recommend.PriorityMedium},
		{39.999, recommend.PriorityLow},
		{0, recommend.PriorityLow},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, score.Level(tt.score), "score %v", tt.score)
	}
}

func TestApplySetsLevelConsistentWithScore(t *testing.T) {
	s := score.New(scoringDefaults())
	recs := []recommend.Recommendation{
		{MonthlySavings: 2000, Effort: recommend.EffortLow},
		{MonthlySavings: 100, Effort: recommend.EffortMedium, Risks: []string{"x"}},
		{MonthlySavings: 0, Effort: recommend.EffortHigh, Risks: []string{"a", "b", "c", "d", "e", "f"}},
	}

	s.Apply(recs)

	for _, rec := range recs {
		assert.Equal(t, score.Level(rec.PriorityScore), rec.PriorityLevel)
		assert.GreaterOrEqual(t, rec.PriorityScore, 0.0)
		assert.LessOrEqual(t, rec.PriorityScore, 100.0)
	}
}
