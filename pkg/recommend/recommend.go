// Package recommend defines the unified recommendation data model produced
// by the collection pipeline. Field names on the JSON-tagged types are a
// stable contract: the rendering layer binds to them by key.
package recommend

import (
	"strings"
	"time"
)

// SourceTag identifies one of the external cost-optimization APIs.
type SourceTag string

// Known sources.
const (
	SourceHub             SourceTag = "hub"
	SourceCostAnalysis    SourceTag = "cost-analysis"
	SourceCommitmentPlans SourceTag = "commitment-plans"
)

// String returns the string representation of a source tag.
func (s SourceTag) String() string {
	return string(s)
}

// Tags returns all known source tags in their canonical order.
func Tags() []SourceTag {
	return []SourceTag{SourceHub, SourceCostAnalysis, SourceCommitmentPlans}
}

// Confidence is a source's declared confidence in its savings estimate.
type Confidence string

// Confidence levels.
const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Rank returns the ordinal rank of a confidence level, higher is more
// confident. Unknown values rank below low.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	}
	return 0
}

// Valid reports whether the confidence level is one of the defined values.
func (c Confidence) Valid() bool {
	return c.Rank() > 0
}

// Effort is the estimated implementation effort for a recommendation.
type Effort string

// Effort levels.
const (
	EffortLow    Effort = "low"
	EffortMedium Effort = "medium"
	EffortHigh   Effort = "high"
)

// Ordinal returns the effort as an ordinal, low=0 medium=1 high=2.
// Unknown values are treated as medium.
func (e Effort) Ordinal() int {
	switch e {
	case EffortLow:
		return 0
	case EffortHigh:
		return 2
	}
	return 1
}

// Valid reports whether the effort level is one of the defined values.
func (e Effort) Valid() bool {
	return e == EffortLow || e == EffortMedium || e == EffortHigh
}

// PriorityLevel is the discrete priority bucket derived from the score.
type PriorityLevel string

// Priority levels.
const (
	PriorityHigh   PriorityLevel = "high"
	PriorityMedium PriorityLevel = "medium"
	PriorityLow    PriorityLevel = "low"
)

// Status tracks the lifecycle of a recommendation. It is mutated only by
// explicit user action, never by the pipeline.
type Status string

// Recommendation statuses.
const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusDismissed  Status = "dismissed"
	StatusFailed     Status = "failed"
)

// Valid reports whether the status is one of the defined values.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusCompleted, StatusDismissed, StatusFailed:
		return true
	}
	return false
}

// Resource is a cloud resource affected by a recommendation.
type Resource struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	Region string `json:"region"`
}

// Recommendation is the unified cost-saving recommendation entity. Records
// from different sources that describe the same underlying change share one
// identity key and are merged into a single Recommendation.
type Recommendation struct {
	ID string `json:"id"`

	Service      string `json:"service"`
	ResourceType string `json:"resourceType"`
	ResourceID   string `json:"resourceId"`
	Region       string `json:"region"`
	ActionType   string `json:"actionType"`

	Title    string `json:"title,omitempty"`
	Category string `json:"category,omitempty"`

	Sources []SourceTag `json:"sources"`

	MonthlySavings  float64    `json:"monthlySavings"`
	AnnualSavings   float64    `json:"annualSavings"`
	ConfidenceLevel Confidence `json:"confidenceLevel"`

	Effort      Effort   `json:"effort"`
	Steps       []string `json:"steps,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	Risks       []string `json:"risks,omitempty"`

	Resources     []Resource `json:"resources,omitempty"`
	ResourceCount int        `json:"resourceCount"`

	PriorityScore float64       `json:"priorityScore"`
	PriorityLevel PriorityLevel `json:"priorityLevel"`

	Status Status `json:"status"`
	Notes  string `json:"notes,omitempty"`

	CreatedAt   time.Time `json:"createdAt"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Key derives the stable identity key for a recommendation. Sources assign
// their own ids to the same underlying action, so identity is structural:
// service, resource type, resource id, region and action type.
func (r *Recommendation) Key() string {
	return Key(r.Service, r.ResourceType, r.ResourceID, r.Region, r.ActionType)
}

// Key builds an identity key from its component fields. Components are
// lowercased and trimmed so cosmetic differences between sources do not
// split identities.
func Key(service, resourceType, resourceID, region, actionType string) string {
	parts := []string{service, resourceType, resourceID, region, actionType}
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return strings.Join(parts, "|")
}

// HasSource reports whether the recommendation carries the given source tag.
func (r *Recommendation) HasSource(tag SourceTag) bool {
	for _, s := range r.Sources {
		if s == tag {
			return true
		}
	}
	return false
}
