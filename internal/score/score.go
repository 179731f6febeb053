// Package score computes the priority score and level for a
// recommendation. Scoring is a pure function of the recommendation's own
// fields: normalization caps are fixed configuration, never derived from
// the rest of the set, so re-running on the same merged set always yields
// the same scores.
package score

import (
	"github.com/finopshub/advisor/internal/config"
	"github.com/finopshub/advisor/pkg/constants"
	"github.com/finopshub/advisor/pkg/recommend"
)

// Scorer assigns priority scores using configured weights.
type Scorer struct {
	cfg config.ScoringConfig
}

// New creates a scorer. Weights are assumed validated by config.Load.
func New(cfg config.ScoringConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score computes the priority score (0-100) and level for one
// recommendation.
//
// score = 100 * (wS*savingsNorm + wE*(1 - effortOrd/2) + wR*(1 - riskNorm))
//
// savingsNorm saturates at the configured savings ceiling and riskNorm at
// the configured max risk count.
func (s *Scorer) Score(rec *recommend.Recommendation) (float64, recommend.PriorityLevel) {
	savingsNorm := rec.MonthlySavings / s.cfg.SavingsCeiling
	if savingsNorm > 1 {
		savingsNorm = 1
	}

	effortFactor := 1 - float64(rec.Effort.Ordinal())/2

	riskNorm := float64(len(rec.Risks)) / float64(s.cfg.MaxRiskCount)
	if riskNorm > 1 {
		riskNorm = 1
	}

	score := 100 * (s.cfg.SavingsWeight*savingsNorm +
		s.cfg.EffortWeight*effortFactor +
		s.cfg.RiskWeight*(1-riskNorm))

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return score, Level(score)
}

// Apply scores every recommendation in place.
func (s *Scorer) Apply(recs []recommend.Recommendation) {
	for i := range recs {
		recs[i].PriorityScore, recs[i].PriorityLevel = s.Score(&recs[i])
	}
}

// Level maps a score onto its priority bucket. The thresholds are a fixed,
// testable contract: >=70 high, >=40 medium, else low.
func Level(score float64) recommend.PriorityLevel {
	switch {
	case score >= constants.HighPriorityThreshold:
		return recommend.PriorityHigh
	case score >= constants.MediumPriorityThreshold:
		return recommend.PriorityMedium
	default:
		return recommend.PriorityLow
	}
}
