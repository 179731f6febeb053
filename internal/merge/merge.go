// Package merge deduplicates normalized recommendations that describe the
// same underlying change. Grouping is by the structural identity key, so a
// recommendation visible to two sources collapses into one record whose
// sources set carries both attributions.
//
// Merge rules are deliberately asymmetric: savings come from the most
// credible source (highest declared confidence, larger value on ties)
// while effort and risks take the most cautious view (ordinal max, union).
package merge

import (
	"sort"

	"github.com/finopshub/advisor/pkg/recommend"
)

// Merge collapses duplicates by identity key. It is idempotent: merging an
// already-merged set returns an equal set.
func Merge(recs []recommend.Recommendation) []recommend.Recommendation {
	groups := make(map[string][]recommend.Recommendation)
	order := make([]string, 0, len(recs))
	for _, rec := range recs {
		key := rec.Key()
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], rec)
	}

	// Deterministic output regardless of collection order.
	sort.Strings(order)

	merged := make([]recommend.Recommendation, 0, len(order))
	for _, key := range order {
		merged = append(merged, mergeGroup(groups[key]))
	}
	return merged
}

func mergeGroup(group []recommend.Recommendation) recommend.Recommendation {
	if len(group) == 1 {
		out := group[0]
		out.AnnualSavings = out.MonthlySavings * 12
		return out
	}

	// Savings donor: highest confidence wins over higher value.
	donor := group[0]
	for _, rec := range group[1:] {
		if rec.ConfidenceLevel.Rank() > donor.ConfidenceLevel.Rank() {
			donor = rec
			continue
		}
		if rec.ConfidenceLevel.Rank() == donor.ConfidenceLevel.Rank() &&
			rec.MonthlySavings > donor.MonthlySavings {
			donor = rec
		}
	}

	out := donor
	out.Sources = unionSources(group)
	out.MonthlySavings = donor.MonthlySavings
	out.AnnualSavings = donor.MonthlySavings * 12
	out.ConfidenceLevel = donor.ConfidenceLevel

	// Most cautious implementation view across members.
	out.Effort = maxEffort(group)
	out.Steps = unionStrings(group, func(r recommend.Recommendation) []string { return r.Steps })
	out.Risks = unionStrings(group, func(r recommend.Recommendation) []string { return r.Risks })
	out.Permissions = unionStrings(group, func(r recommend.Recommendation) []string { return r.Permissions })
	out.Resources = unionResources(group)
	out.ResourceCount = len(out.Resources)

	out.CreatedAt = group[0].CreatedAt
	out.LastUpdated = group[0].LastUpdated
	for _, rec := range group[1:] {
		if rec.CreatedAt.Before(out.CreatedAt) {
			out.CreatedAt = rec.CreatedAt
		}
		if rec.LastUpdated.After(out.LastUpdated) {
			out.LastUpdated = rec.LastUpdated
		}
	}

	return out
}

// unionSources returns the union of all member source sets in canonical
// tag order, with unknown tags appended in first-seen order.
func unionSources(group []recommend.Recommendation) []recommend.SourceTag {
	seen := make(map[recommend.SourceTag]bool)
	for _, rec := range group {
		for _, tag := range rec.Sources {
			seen[tag] = true
		}
	}

	out := make([]recommend.SourceTag, 0, len(seen))
	for _, tag := range recommend.Tags() {
		if seen[tag] {
			out = append(out, tag)
			delete(seen, tag)
		}
	}
	for _, rec := range group {
		for _, tag := range rec.Sources {
			if seen[tag] {
				out = append(out, tag)
				delete(seen, tag)
			}
		}
	}
	return out
}

func maxEffort(group []recommend.Recommendation) recommend.Effort {
	out := group[0].Effort
	for _, rec := range group[1:] {
		if rec.Effort.Ordinal() > out.Ordinal() {
			out = rec.Effort
		}
	}
	return out
}

// unionStrings unions list fields across members, de-duplicated by exact
// text match, preserving first-seen order.
func unionStrings(group []recommend.Recommendation, get func(recommend.Recommendation) []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, rec := range group {
		for _, s := range get(rec) {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

func unionResources(group []recommend.Recommendation) []recommend.Resource {
	seen := make(map[recommend.Resource]bool)
	var out []recommend.Resource
	for _, rec := range group {
		for _, res := range rec.Resources {
			if !seen[res] {
				seen[res] = true
				out = append(out, res)
			}
		}
	}
	return out
}
