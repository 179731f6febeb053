package recommend

import "time"

// CategorySavings is one entry in the summary's category breakdown.
type CategorySavings struct {
	Category       string  `json:"category"`
	Count          int     `json:"count"`
	MonthlySavings float64 `json:"monthlySavings"`
}

// RoadmapPhase buckets recommendations of one effort band into an
// implementation phase. Empty phases are still emitted so the roadmap
// view is always complete.
type RoadmapPhase struct {
	Phase          string  `json:"phase"`
	Effort         Effort  `json:"effort"`
	Count          int     `json:"count"`
	MonthlySavings float64 `json:"monthlySavings"`
}

// ExecutiveSummary aggregates the final recommendation set.
type ExecutiveSummary struct {
	TotalRecommendations int     `json:"totalRecommendations"`
	TotalMonthlySavings  float64 `json:"totalMonthlySavings"`
	TotalAnnualSavings   float64 `json:"totalAnnualSavings"`

	CountsByPriority map[PriorityLevel]int `json:"countsByPriority"`

	TopCategories []CategorySavings `json:"topCategories"`
	Roadmap       []RoadmapPhase    `json:"roadmap"`
}

// SourceError is one non-fatal error accumulated during a collection cycle.
// Record-level errors never abort a batch, region-level errors never abort
// a source, and source-level errors never abort the cycle, so the consumer
// needs this report to render completeness indicators.
type SourceError struct {
	Source  SourceTag `json:"source"`
	Region  string    `json:"region,omitempty"`
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
}

// SourceStats describes how one source contributed to a cycle.
type SourceStats struct {
	Source    SourceTag `json:"source"`
	Fetched   int       `json:"fetched"`
	Kept      int       `json:"kept"`
	Dropped   int       `json:"dropped"`
	Malformed int       `json:"malformed"`
	Failed    bool      `json:"failed"`
}

// Report is the single structured document handed to the rendering and
// export layer after a collection cycle.
type Report struct {
	CycleID         string           `json:"cycleId"`
	CollectedAt     time.Time        `json:"collectedAt"`
	Partial         bool             `json:"partial"`
	Recommendations []Recommendation `json:"recommendations"`
	Summary         ExecutiveSummary `json:"summary"`
	SourceStats     []SourceStats    `json:"sourceStats"`
	Errors          []SourceError    `json:"errors,omitempty"`
}
