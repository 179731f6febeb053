// Package collector orchestrates one collection cycle: it drives the
// three source clients concurrently under a shared deadline, then runs
// the synchronous pipeline (normalize, merge, score, summarize) over
// whatever was collected and assembles the final report.
//
// Downstream stages always observe a fully materialized collection
// result; there is no streaming partial merge. The collector is not
// internally re-entrant: the caller ensures at most one active cycle.
package collector

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/finopshub/advisor/internal/config"
	"github.com/finopshub/advisor/internal/merge"
	"github.com/finopshub/advisor/internal/normalize"
	"github.com/finopshub/advisor/internal/score"
	"github.com/finopshub/advisor/internal/sources"
	"github.com/finopshub/advisor/internal/summary"
	"github.com/finopshub/advisor/pkg/errors"
	"github.com/finopshub/advisor/pkg/logging"
	"github.com/finopshub/advisor/pkg/recommend"
)

// State is the collector's position in the cycle state machine.
type State string

// Cycle states.
const (
	StateIdle        State = "idle"
	StateCollecting  State = "collecting"
	StateMerging     State = "merging"
	StateScoring     State = "scoring"
	StateSummarizing State = "summarizing"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// Annotator re-attaches persisted user state to a rebuilt recommendation
// set and prunes state for vanished keys.
type Annotator interface {
	Apply([]recommend.Recommendation) error
	Prune([]recommend.Recommendation) error
}

// Collector runs collection cycles.
type Collector struct {
	cfg        *config.Config
	sources    []sources.Source
	normalizer *normalize.Normalizer
	scorer     *score.Scorer
	builder    *summary.Builder
	annotator  Annotator

	mu    sync.Mutex
	state State
}

// Option configures a Collector.
type Option func(*Collector)

// WithAnnotator attaches an annotation store to the collector.
func WithAnnotator(a Annotator) Option {
	return func(c *Collector) { c.annotator = a }
}

// WithNormalizer replaces the default normalizer (e.g. one with mapping
// overrides loaded).
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(c *Collector) { c.normalizer = n }
}

// New creates a collector over the given source clients.
func New(cfg *config.Config, srcs []sources.Source, opts ...Option) *Collector {
	c := &Collector{
		cfg:        cfg,
		sources:    srcs,
		normalizer: normalize.New(),
		scorer:     score.New(cfg.Scoring),
		builder:    summary.New(cfg.TopCategories),
		state:      StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current cycle state.
func (c *Collector) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Collector) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// sourceResult pairs a source with what it fetched.
type sourceResult struct {
	tag    recommend.SourceTag
	result sources.FetchResult
}

// Collect runs one cycle. It returns the assembled report, or a
// CollectionError when zero sources produced usable data. On error the
// caller keeps serving the cached report.
func (c *Collector) Collect(ctx context.Context) (*recommend.Report, error) {
	cycleID := uuid.NewString()
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CollectionDeadline)
	defer cancel()
	ctx = logging.WithCycleID(ctx, cycleID)
	log := logging.Ctx(ctx)

	// Circuit breaker state deliberately survives cycles: a source that
	// went down last cycle stays short-circuited until its failure
	// window lapses, instead of starting from a clean slate every run.
	c.setState(StateCollecting)
	log.Info().
		Int("sources", len(c.sources)).
		Strs("regions", c.cfg.Regions).
		Msg("Starting collection cycle")

	results := c.collect(ctx)

	var (
		raws      []sources.RawRecord
		allErrs   []error
		errReport []recommend.SourceError
	)
	for _, sr := range results {
		raws = append(raws, sr.result.Records...)
		allErrs = append(allErrs, sr.result.Errors...)
		for _, err := range sr.result.Errors {
			errReport = append(errReport, classify(sr.tag, err))
		}
	}

	recs, tallies := c.normalizer.Batch(ctx, raws)

	if len(recs) == 0 {
		c.setState(StateFailed)
		log.Error().
			Int("raw_records", len(raws)).
			Int("source_errors", len(allErrs)).
			Msg("Collection cycle produced no usable data")
		return nil, errors.NewCollectionError(cycleID, allErrs)
	}

	c.setState(StateMerging)
	merged := merge.Merge(recs)

	if c.annotator != nil {
		if err := c.annotator.Apply(merged); err != nil {
			// Annotations are auxiliary; the cycle still succeeds.
			log.Warn().Err(err).Msg("Failed to re-attach annotations")
		}
	}

	c.setState(StateScoring)
	c.scorer.Apply(merged)

	c.setState(StateSummarizing)
	report := &recommend.Report{
		CycleID:         cycleID,
		CollectedAt:     time.Now().UTC(),
		Partial:         len(allErrs) > 0,
		Recommendations: merged,
		Summary:         c.builder.Build(merged),
		SourceStats:     c.stats(results, tallies),
		Errors:          errReport,
	}

	if c.annotator != nil {
		if err := c.annotator.Prune(merged); err != nil {
			log.Warn().Err(err).Msg("Failed to prune annotations")
		}
	}

	c.setState(StateDone)
	log.Info().
		Int("recommendations", len(merged)).
		Bool("partial", report.Partial).
		Float64("monthly_savings", report.Summary.TotalMonthlySavings).
		Msg("Collection cycle complete")

	return report, nil
}

// collect fans out to all sources concurrently and waits for them to
// finish or hit the cycle deadline. Each source produces an independent
// result; nothing is shared until all goroutines join.
func (c *Collector) collect(ctx context.Context) []sourceResult {
	results := make([]sourceResult, len(c.sources))

	var wg sync.WaitGroup
	for i, src := range c.sources {
		wg.Add(1)
		go func(i int, src sources.Source) {
			defer wg.Done()
			results[i] = sourceResult{
				tag:    src.Tag(),
				result: src.Fetch(ctx, c.cfg.Regions),
			}
		}(i, src)
	}
	wg.Wait()

	return results
}

func (c *Collector) stats(results []sourceResult, tallies map[recommend.SourceTag]normalize.Tally) []recommend.SourceStats {
	out := make([]recommend.SourceStats, 0, len(results))
	for _, sr := range results {
		tally := tallies[sr.tag]
		out = append(out, recommend.SourceStats{
			Source:    sr.tag,
			Fetched:   len(sr.result.Records),
			Kept:      tally.Kept,
			Dropped:   tally.Dropped,
			Malformed: tally.Malformed,
			Failed:    len(sr.result.Errors) > 0 && len(sr.result.Records) == 0,
		})
	}
	return out
}

// classify converts a typed fetch error into its report entry.
func classify(tag recommend.SourceTag, err error) recommend.SourceError {
	entry := recommend.SourceError{
		Source:  tag,
		Message: err.Error(),
	}

	var rle *errors.RateLimitedError
	var sue *errors.SourceUnavailableError
	var coe *errors.CircuitOpenError
	var toe *errors.TimeoutError

	switch {
	case errors.As(err, &rle):
		entry.Kind = "rate_limited"
		entry.Region = rle.Region
	case errors.As(err, &sue):
		entry.Kind = "source_unavailable"
		entry.Region = sue.Region
	case errors.As(err, &coe):
		entry.Kind = "circuit_open"
	case errors.As(err, &toe):
		entry.Kind = "timeout"
		entry.Region = toe.Region
	default:
		entry.Kind = "error"
	}
	return entry
}
