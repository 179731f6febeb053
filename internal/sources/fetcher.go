package sources

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/semaphore"

	"github.com/finopshub/advisor/internal/breaker"
	"github.com/finopshub/advisor/pkg/errors"
	"github.com/finopshub/advisor/pkg/logging"
	"github.com/finopshub/advisor/pkg/recommend"
)

// Options tune the shared fetch machinery.
type Options struct {
	MaxRetries        int
	RetryBackoff      time.Duration
	MaxRetryBackoff   time.Duration
	RegionConcurrency int64
	MaxPages          int
	PageSize          int
}

// PageFunc fetches one page of raw records for a region. cursor is the
// source-specific pagination cursor ("" for the first page); the returned
// next cursor is "" when no further pages exist.
type PageFunc func(ctx context.Context, region, cursor string) (records []map[string]any, next string, err error)

// Fetcher runs the resilient collection loop on behalf of a source client.
type Fetcher struct {
	tag       recommend.SourceTag
	opts      Options
	breaker   *breaker.Breaker
	fetchPage PageFunc
}

// NewFetcher creates a fetcher for one source.
func NewFetcher(tag recommend.SourceTag, opts Options, b *breaker.Breaker, page PageFunc) *Fetcher {
	if opts.RegionConcurrency <= 0 {
		opts.RegionConcurrency = 1
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 1
	}
	return &Fetcher{tag: tag, opts: opts, breaker: b, fetchPage: page}
}

// Fetch collects records for all regions concurrently, bounded by the
// region worker pool. Region failures are isolated: each failed region
// contributes a typed error, and partial records are always kept.
//
// The breaker is consulted per region, not just once up front, so a
// circuit that opens mid-cycle cuts off the remaining regions instead of
// letting them keep burning the deadline.
func (f *Fetcher) Fetch(ctx context.Context, regions []string) FetchResult {
	if f.breaker != nil && !f.breaker.Allow() {
		return FetchResult{
			Errors: []error{errors.NewCircuitOpenError(f.tag.String(), f.breaker.Failures())},
		}
	}

	var (
		mu     sync.Mutex
		result FetchResult
		wg     sync.WaitGroup
	)

	sem := semaphore.NewWeighted(f.opts.RegionConcurrency)
	for _, region := range regions {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Deadline hit while waiting for a worker slot; remaining
			// regions contribute nothing.
			break
		}
		wg.Add(1)
		go func(region string) {
			defer wg.Done()
			defer sem.Release(1)

			if f.breaker != nil && !f.breaker.Allow() {
				mu.Lock()
				defer mu.Unlock()
				result.Errors = append(result.Errors,
					errors.NewCircuitOpenError(f.tag.String(), f.breaker.Failures()))
				return
			}

			records, err := f.fetchRegion(ctx, region)
			f.observe(ctx, err)

			mu.Lock()
			defer mu.Unlock()
			result.Records = append(result.Records, records...)
			if err != nil {
				result.Errors = append(result.Errors, err)
			}
		}(region)
	}
	wg.Wait()

	return result
}

// observe feeds one region's outcome into the circuit breaker. Hard
// failures count toward opening the circuit, clean regions close the
// failure streak. Rate limits, deadline expiry and circuit rejections
// are neutral: they say nothing about whether the source is down.
func (f *Fetcher) observe(ctx context.Context, err error) {
	if f.breaker == nil || ctx.Err() != nil {
		return
	}
	switch {
	case err == nil:
		f.breaker.Success()
	case errors.IsSourceUnavailable(err):
		if f.breaker.Failure() {
			logging.Ctx(ctx).Warn().
				Str("source", f.tag.String()).
				Msg("Circuit opened for source")
		}
	}
}

// fetchRegion paginates through one region, retrying each page with
// exponential backoff. It returns whatever pages it managed to collect
// even when the final page attempt failed.
func (f *Fetcher) fetchRegion(ctx context.Context, region string) ([]RawRecord, error) {
	ctx = logging.WithRegion(logging.WithSource(ctx, f.tag.String()), region)
	log := logging.Ctx(ctx)

	var collected []RawRecord
	cursor := ""

	for page := 0; page < f.opts.MaxPages; page++ {
		if ctx.Err() != nil {
			return collected, nil
		}
		if f.breaker != nil && !f.breaker.Allow() {
			return collected, errors.NewCircuitOpenError(f.tag.String(), f.breaker.Failures())
		}

		records, next, err := f.fetchPageWithRetry(ctx, region, cursor)
		if err != nil {
			return collected, err
		}

		for _, fields := range records {
			collected = append(collected, RawRecord{
				Source: f.tag,
				Region: region,
				Fields: fields,
			})
		}

		if next == "" {
			break
		}
		cursor = next
	}

	log.Debug().Int("records", len(collected)).Msg("Region fetch complete")
	return collected, nil
}

// fetchPageWithRetry fetches one page, retrying rate limits and server
// errors with exponential backoff and jitter. Auth rejections are not
// retried. The returned error is already classified into the advisor
// taxonomy.
func (f *Fetcher) fetchPageWithRetry(ctx context.Context, region, cursor string) ([]map[string]any, string, error) {
	var (
		records []map[string]any
		next    string
	)

	op := func() error {
		var err error
		records, next, err = f.fetchPage(ctx, region, cursor)
		if err == nil {
			return nil
		}

		switch {
		case errors.IsRateLimited(err):
			return err // retryable
		case errors.IsSourceUnavailable(err):
			var apiErr *errors.APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode >= 500 {
				return err // retryable
			}
			return backoff.Permanent(err) // auth and friends
		default:
			return backoff.Permanent(err)
		}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = f.opts.RetryBackoff
	bo.MaxInterval = f.opts.MaxRetryBackoff
	bo.MaxElapsedTime = 0 // bounded by retry count and ctx deadline

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(f.opts.MaxRetries)), ctx))
	if err == nil {
		return records, next, nil
	}

	switch {
	case errors.IsRateLimited(err):
		return nil, "", errors.NewRateLimitedError(f.tag.String(), region, f.opts.MaxRetries)
	case errors.IsSourceUnavailable(err):
		var apiErr *errors.APIError
		status := 0
		if errors.As(err, &apiErr) {
			status = apiErr.StatusCode
		}
		return nil, "", errors.NewSourceUnavailableError(f.tag.String(), region, status, err)
	case ctx.Err() != nil:
		// Deadline expired mid-retry. Not a source failure, but the
		// region was truncated and the report should say so.
		return nil, "", errors.NewTimeoutError(f.tag.String(), region)
	default:
		return nil, "", errors.NewSourceUnavailableError(f.tag.String(), region, 0, err)
	}
}
