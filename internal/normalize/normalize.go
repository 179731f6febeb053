// Package normalize maps each source's raw response schema into the
// unified Recommendation record. Normalization is pure and table-driven:
// a per-source field mapping is the only source-specific knowledge that
// survives past this stage.
//
// Missing optional fields get explicit defaults (effort medium, confidence
// low). Savings are never defaulted: a record with missing or invalid
// savings is dropped with a logged reason, since a silent zero would
// corrupt aggregate totals. Malformed records are skipped and tallied,
// never fatal for the batch.
package normalize

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/finopshub/advisor/internal/sources"
	"github.com/finopshub/advisor/pkg/errors"
	"github.com/finopshub/advisor/pkg/logging"
	"github.com/finopshub/advisor/pkg/recommend"
)

// Tally counts the outcomes of normalizing one source's batch.
type Tally struct {
	Fetched   int
	Kept      int
	Dropped   int // missing or invalid savings
	Malformed int // unparseable required identity field
}

// Normalizer converts raw records into Recommendations.
type Normalizer struct {
	mappings map[recommend.SourceTag]Mapping
	now      func() time.Time
}

// New creates a normalizer with the built-in per-source mappings.
func New() *Normalizer {
	return &Normalizer{
		mappings: defaultMappings(),
		now:      time.Now,
	}
}

// Batch normalizes a batch of raw records, returning the kept
// recommendations and a per-source tally. Record-level failures are
// logged and counted, never returned as errors.
func (n *Normalizer) Batch(ctx context.Context, raws []sources.RawRecord) ([]recommend.Recommendation, map[recommend.SourceTag]Tally) {
	log := logging.Ctx(ctx)
	tallies := make(map[recommend.SourceTag]Tally)

	recs := make([]recommend.Recommendation, 0, len(raws))
	for _, raw := range raws {
		tally := tallies[raw.Source]
		tally.Fetched++

		rec, err := n.Normalize(raw)
		switch {
		case err == nil:
			tally.Kept++
			recs = append(recs, rec)
		case errors.IsMalformedRecord(err):
			var mre *errors.MalformedRecordError
			if errors.As(err, &mre) && mre.Field == "monthlySavings" {
				tally.Dropped++
			} else {
				tally.Malformed++
			}
			log.Warn().Err(err).
				Str("source", raw.Source.String()).
				Str("region", raw.Region).
				Msg("Skipping raw record")
		default:
			tally.Malformed++
			log.Warn().Err(err).
				Str("source", raw.Source.String()).
				Msg("Skipping raw record")
		}

		tallies[raw.Source] = tally
	}

	return recs, tallies
}

// Normalize converts one raw record. The returned error is always a
// MalformedRecordError; callers decide whether to tally it as dropped
// (savings) or malformed (identity).
func (n *Normalizer) Normalize(raw sources.RawRecord) (recommend.Recommendation, error) {
	mapping, ok := n.mappings[raw.Source]
	if !ok {
		return recommend.Recommendation{}, errors.NewMalformedRecordError(raw.Source.String(), "", "unknown source")
	}

	service := getString(raw.Fields, mapping.Service)
	if service == "" {
		return recommend.Recommendation{}, errors.NewMalformedRecordError(raw.Source.String(), mapping.Service, "missing service")
	}

	resourceType := getString(raw.Fields, mapping.ResourceType)
	actionType := getString(raw.Fields, mapping.ActionType)
	if actionType == "" {
		return recommend.Recommendation{}, errors.NewMalformedRecordError(raw.Source.String(), mapping.ActionType, "missing action type")
	}

	title := getString(raw.Fields, mapping.Title)

	// Some sources omit a stable resource id for certain recommendation
	// types (commitment plans in particular). Fall back to the slugified
	// title plus resource type so identity stays deterministic.
	resourceID := getString(raw.Fields, mapping.ResourceID)
	if resourceID == "" {
		if title == "" {
			return recommend.Recommendation{}, errors.NewMalformedRecordError(raw.Source.String(), mapping.ResourceID, "missing resource id and title")
		}
		resourceID = slug(title)
	}

	region := getString(raw.Fields, mapping.Region)
	if region == "" {
		region = raw.Region
	}

	savings, ok := getFloat(raw.Fields, mapping.MonthlySavings)
	if !ok || savings < 0 {
		return recommend.Recommendation{}, errors.NewMalformedRecordError(raw.Source.String(), "monthlySavings", "missing or invalid savings")
	}

	confidence := recommend.Confidence(strings.ToLower(getString(raw.Fields, mapping.Confidence)))
	if !confidence.Valid() {
		confidence = recommend.ConfidenceLow
	}

	effort := recommend.Effort(strings.ToLower(getString(raw.Fields, mapping.Effort)))
	if !effort.Valid() {
		effort = recommend.EffortMedium
	}

	category := getString(raw.Fields, mapping.Category)
	if category == "" {
		category = service
	}

	now := n.now()
	rec := recommend.Recommendation{
		Service:         service,
		ResourceType:    resourceType,
		ResourceID:      resourceID,
		Region:          region,
		ActionType:      actionType,
		Title:           title,
		Category:        category,
		Sources:         []recommend.SourceTag{raw.Source},
		MonthlySavings:  savings,
		AnnualSavings:   savings * 12,
		ConfidenceLevel: confidence,
		Effort:          effort,
		Steps:           getStrings(raw.Fields, mapping.Steps),
		Permissions:     getStrings(raw.Fields, mapping.Permissions),
		Risks:           getStrings(raw.Fields, mapping.Risks),
		Resources: []recommend.Resource{
			{Type: resourceType, ID: resourceID, Region: region},
		},
		ResourceCount: 1,
		Status:        recommend.StatusNew,
		CreatedAt:     now,
		LastUpdated:   now,
	}
	rec.ID = rec.Key()

	return rec, nil
}

func getString(fields map[string]any, key string) string {
	if key == "" {
		return ""
	}
	v, ok := fields[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

func getFloat(fields map[string]any, key string) (float64, bool) {
	if key == "" {
		return 0, false
	}
	switch v := fields[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func getStrings(fields map[string]any, key string) []string {
	if key == "" {
		return nil
	}
	items, ok := fields[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// slug lowercases a title and collapses non-alphanumerics to hyphens so it
// can stand in for a missing resource id.
func slug(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
