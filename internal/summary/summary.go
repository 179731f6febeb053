// Package summary builds the executive summary over the final
// recommendation set: aggregate savings, priority counts, top categories
// and the phased implementation roadmap.
package summary

import (
	"sort"

	"github.com/finopshub/advisor/pkg/recommend"
)

// Phase names for the roadmap. All three phases are always emitted, even
// when empty, so the roadmap view is complete.
const (
	PhaseQuickWins = "quick-wins"
	PhaseMedium    = "medium"
	PhaseStrategic = "strategic"
)

// Builder aggregates recommendation sets into executive summaries.
type Builder struct {
	topCategories int
}

// New creates a summary builder that reports the top n categories.
func New(topCategories int) *Builder {
	if topCategories <= 0 {
		topCategories = 1
	}
	return &Builder{topCategories: topCategories}
}

// Build computes the executive summary for a recommendation set.
func (b *Builder) Build(recs []recommend.Recommendation) recommend.ExecutiveSummary {
	out := recommend.ExecutiveSummary{
		TotalRecommendations: len(recs),
		CountsByPriority: map[recommend.PriorityLevel]int{
			recommend.PriorityHigh:   0,
			recommend.PriorityMedium: 0,
			recommend.PriorityLow:    0,
		},
	}

	categories := make(map[string]*catAgg)

	phases := map[recommend.Effort]*recommend.RoadmapPhase{
		recommend.EffortLow:    {Phase: PhaseQuickWins, Effort: recommend.EffortLow},
		recommend.EffortMedium: {Phase: PhaseMedium, Effort: recommend.EffortMedium},
		recommend.EffortHigh:   {Phase: PhaseStrategic, Effort: recommend.EffortHigh},
	}

	for _, rec := range recs {
		out.TotalMonthlySavings += rec.MonthlySavings
		out.TotalAnnualSavings += rec.AnnualSavings
		out.CountsByPriority[rec.PriorityLevel]++

		cat := rec.Category
		if cat == "" {
			cat = rec.Service
		}
		agg, ok := categories[cat]
		if !ok {
			agg = &catAgg{}
			categories[cat] = agg
		}
		agg.count++
		agg.savings += rec.MonthlySavings

		phase := phases[normalizeEffort(rec.Effort)]
		phase.Count++
		phase.MonthlySavings += rec.MonthlySavings
	}

	out.TopCategories = topCategories(categories, b.topCategories)
	out.Roadmap = []recommend.RoadmapPhase{
		*phases[recommend.EffortLow],
		*phases[recommend.EffortMedium],
		*phases[recommend.EffortHigh],
	}
	return out
}

func normalizeEffort(e recommend.Effort) recommend.Effort {
	if !e.Valid() {
		return recommend.EffortMedium
	}
	return e
}

type catAgg struct {
	count   int
	savings float64
}

func topCategories(categories map[string]*catAgg, n int) []recommend.CategorySavings {
	out := make([]recommend.CategorySavings, 0, len(categories))
	for name, agg := range categories {
		out = append(out, recommend.CategorySavings{
			Category:       name,
			Count:          agg.count,
			MonthlySavings: agg.savings,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].MonthlySavings != out[j].MonthlySavings {
			return out[i].MonthlySavings > out[j].MonthlySavings
		}
		return out[i].Category < out[j].Category
	})

	if len(out) > n {
		out = out[:n]
	}
	return out
}
