package collector_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finopshub/advisor/internal/breaker"
	"github.com/finopshub/advisor/internal/collector"
	"github.com/finopshub/advisor/internal/config"
	"github.com/finopshub/advisor/internal/sources"
	"github.com/finopshub/advisor/internal/sources/hub"
	"github.com/finopshub/advisor/pkg/errors"
	"github.com/finopshub/advisor/pkg/recommend"
)

// fakeSource returns a canned result without any network access.
type fakeSource struct {
	tag    recommend.SourceTag
	result sources.FetchResult
}

func (f *fakeSource) Tag() recommend.SourceTag { return f.tag }

func (f *fakeSource) Fetch(_ context.Context, _ []string) sources.FetchResult {
	return f.result
}

func hubRecord(id string, savings float64) sources.RawRecord {
	return sources.RawRecord{
		Source: recommend.SourceHub,
		Region: "us-east-1",
		Fields: map[string]any{
			"service":                 "ec2",
			"resourceType":            "instance",
			"resourceId":              id,
			"action":                  "rightsize",
			"title":                   "Rightsize " + id,
			"estimatedMonthlySavings": savings,
			"confidence":              "high",
			"effort":                  "low",
		},
	}
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Regions = []string{"us-east-1"}
	return cfg
}

func TestCollectAssemblesReport(t *testing.T) {
	srcs := []sources.Source{
		&fakeSource{
			tag: recommend.SourceHub,
			result: sources.FetchResult{
				Records: []sources.RawRecord{
					hubRecord("i-1", 500),
					hubRecord("i-2", 120),
				},
			},
		},
	}
	c := collector.New(testConfig(), srcs)

	report, err := c.Collect(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, report.CycleID)
	assert.False(t, report.CollectedAt.IsZero())
	assert.False(t, report.Partial)
	assert.Len(t, report.Recommendations, 2)
	assert.Equal(t, 2, report.Summary.TotalRecommendations)
	assert.InDelta(t, 620, report.Summary.TotalMonthlySavings, 0.001)
	assert.Equal(t, collector.StateDone, c.State())

	for _, rec := range report.Recommendations {
		assert.NotZero(t, rec.PriorityScore, "every surviving record gets a score")
		assert.NotEmpty(t, rec.PriorityLevel)
	}
}

func TestCollectPartialWhenOneSourceFails(t *testing.T) {
	srcs := []sources.Source{
		&fakeSource{
			tag: recommend.SourceHub,
			result: sources.FetchResult{
				Records: []sources.RawRecord{hubRecord("i-1", 500)},
			},
		},
		&fakeSource{
			tag: recommend.SourceCostAnalysis,
			result: sources.FetchResult{
				Errors: []error{
					errors.NewSourceUnavailableError("cost-analysis", "us-east-1", 503, nil),
				},
			},
		},
	}
	c := collector.New(testConfig(), srcs)

	report, err := c.Collect(context.Background())
	require.NoError(t, err, "one healthy source is enough for a cycle")

	assert.True(t, report.Partial)
	assert.Len(t, report.Recommendations, 1)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, recommend.SourceCostAnalysis, report.Errors[0].Source)
	assert.Equal(t, "source_unavailable", report.Errors[0].Kind)
	assert.Equal(t, "us-east-1", report.Errors[0].Region)
}

func TestCollectAllSourcesFailed(t *testing.T) {
	srcs := []sources.Source{
		&fakeSource{tag: recommend.SourceHub, result: sources.FetchResult{
			Errors: []error{errors.NewRateLimitedError("hub", "us-east-1", 3)},
		}},
		&fakeSource{tag: recommend.SourceCostAnalysis, result: sources.FetchResult{}},
		&fakeSource{tag: recommend.SourceCommitmentPlans, result: sources.FetchResult{
			Errors: []error{errors.NewSourceUnavailableError("commitment-plans", "us-east-1", 500, nil)},
		}},
	}
	c := collector.New(testConfig(), srcs)

	report, err := c.Collect(context.Background())
	require.Error(t, err, "empty and failed responses must not produce an empty summary")
	assert.Nil(t, report)
	assert.True(t, errors.IsAllSourcesFailed(err))
	assert.Equal(t, collector.StateFailed, c.State())
}

func TestCollectMergesDuplicatesAcrossSources(t *testing.T) {
	srcs := []sources.Source{
		&fakeSource{
			tag: recommend.SourceHub,
			result: sources.FetchResult{
				Records: []sources.RawRecord{hubRecord("i-1", 100)},
			},
		},
		&fakeSource{
			tag: recommend.SourceCostAnalysis,
			result: sources.FetchResult{
				Records: []sources.RawRecord{{
					Source: recommend.SourceCostAnalysis,
					Region: "us-east-1",
					Fields: map[string]any{
						"service_name":       "ec2",
						"resource_type":      "instance",
						"resource_id":        "i-1",
						"recommended_action": "rightsize",
						"display_name":       "Rightsize i-1",
						"savings_per_month":  80.0,
						"confidence_level":   "low",
					},
				}},
			},
		},
	}
	c := collector.New(testConfig(), srcs)

	report, err := c.Collect(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Recommendations, 1, "same identity key collapses to one record")
	rec := report.Recommendations[0]
	assert.InDelta(t, 100, rec.MonthlySavings, 0.001, "higher confidence source wins savings")
	assert.ElementsMatch(t,
		[]recommend.SourceTag{recommend.SourceHub, recommend.SourceCostAnalysis},
		rec.Sources)
}

func TestCollectSourceStats(t *testing.T) {
	srcs := []sources.Source{
		&fakeSource{
			tag: recommend.SourceHub,
			result: sources.FetchResult{
				Records: []sources.RawRecord{
					hubRecord("i-1", 500),
					{
						// No savings field: dropped, not fatal.
						Source: recommend.SourceHub,
						Region: "us-east-1",
						Fields: map[string]any{
							"service":      "ec2",
							"resourceType": "instance",
							"resourceId":   "i-9",
							"action":       "rightsize",
							"title":        "Rightsize i-9",
						},
					},
				},
			},
		},
		&fakeSource{
			tag: recommend.SourceCommitmentPlans,
			result: sources.FetchResult{
				Errors: []error{errors.NewRateLimitedError("commitment-plans", "us-east-1", 3)},
			},
		},
	}
	c := collector.New(testConfig(), srcs)

	report, err := c.Collect(context.Background())
	require.NoError(t, err)

	stats := make(map[recommend.SourceTag]recommend.SourceStats)
	for _, s := range report.SourceStats {
		stats[s.Source] = s
	}

	hubStats := stats[recommend.SourceHub]
	assert.Equal(t, 2, hubStats.Fetched)
	assert.Equal(t, 1, hubStats.Kept)
	assert.Equal(t, 1, hubStats.Dropped)
	assert.False(t, hubStats.Failed)

	plans := stats[recommend.SourceCommitmentPlans]
	assert.Equal(t, 0, plans.Fetched)
	assert.True(t, plans.Failed)
}

// stubAnnotator records calls so annotation wiring can be asserted
// without a database.
type stubAnnotator struct {
	applied bool
	pruned  bool
	status  recommend.Status
}

func (s *stubAnnotator) Apply(recs []recommend.Recommendation) error {
	s.applied = true
	for i := range recs {
		recs[i].Status = s.status
	}
	return nil
}

func (s *stubAnnotator) Prune(_ []recommend.Recommendation) error {
	s.pruned = true
	return nil
}

func TestCollectAppliesAnnotations(t *testing.T) {
	srcs := []sources.Source{
		&fakeSource{
			tag: recommend.SourceHub,
			result: sources.FetchResult{
				Records: []sources.RawRecord{hubRecord("i-1", 500)},
			},
		},
	}
	ann := &stubAnnotator{status: recommend.StatusInProgress}
	c := collector.New(testConfig(), srcs, collector.WithAnnotator(ann))

	report, err := c.Collect(context.Background())
	require.NoError(t, err)

	assert.True(t, ann.applied)
	assert.True(t, ann.pruned)
	assert.Equal(t, recommend.StatusInProgress, report.Recommendations[0].Status)
}

// TestCircuitOpensAcrossFailingCycles drives the real fetch machinery
// end to end: a hub client whose endpoint rejects every request, plus a
// healthy source so each cycle still produces a report. After the
// failure threshold is reached the hub must be short-circuited in
// later cycles instead of being re-fetched.
func TestCircuitOpensAcrossFailingCycles(t *testing.T) {
	var pageCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&pageCalls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	breakers := breaker.NewSet(2, time.Hour)
	opts := sources.Options{
		MaxRetries:        1,
		RetryBackoff:      time.Millisecond,
		MaxRetryBackoff:   time.Millisecond,
		RegionConcurrency: 1,
		MaxPages:          3,
		PageSize:          10,
	}
	failing := hub.New(config.SourceConfig{Endpoint: srv.URL}, opts, breakers.Get(recommend.SourceHub))

	healthy := &fakeSource{
		tag: recommend.SourceCostAnalysis,
		result: sources.FetchResult{
			Records: []sources.RawRecord{{
				Source: recommend.SourceCostAnalysis,
				Region: "us-east-1",
				Fields: map[string]any{
					"service_name":       "ec2",
					"resource_type":      "instance",
					"resource_id":        "i-1",
					"recommended_action": "rightsize",
					"display_name":       "Rightsize i-1",
					"savings_per_month":  80.0,
				},
			}},
		},
	}

	c := collector.New(testConfig(), []sources.Source{failing, healthy})

	// The first two cycles reach the endpoint and fail hard.
	for i := 0; i < 2; i++ {
		report, err := c.Collect(context.Background())
		require.NoError(t, err)
		require.Len(t, report.Errors, 1)
		assert.Equal(t, "source_unavailable", report.Errors[0].Kind, "cycle %d", i+1)
	}
	require.True(t, breakers.Get(recommend.SourceHub).Open(),
		"two consecutive hard-failing cycles must open the circuit")
	callsBeforeShortCircuit := atomic.LoadInt32(&pageCalls)

	// Later cycles fast-fail without touching the endpoint.
	report, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "circuit_open", report.Errors[0].Kind)
	assert.Equal(t, recommend.SourceHub, report.Errors[0].Source)
	assert.Equal(t, callsBeforeShortCircuit, atomic.LoadInt32(&pageCalls),
		"an open circuit must not generate page fetches")
}
