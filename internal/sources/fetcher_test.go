package sources_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finopshub/advisor/internal/breaker"
	"github.com/finopshub/advisor/internal/sources"
	"github.com/finopshub/advisor/pkg/errors"
	"github.com/finopshub/advisor/pkg/recommend"
)

func testOptions() sources.Options {
	return sources.Options{
		MaxRetries:        2,
		RetryBackoff:      time.Millisecond,
		MaxRetryBackoff:   5 * time.Millisecond,
		RegionConcurrency: 2,
		MaxPages:          10,
		PageSize:          100,
	}
}

func record(id string) map[string]any {
	return map[string]any{"resourceId": id}
}

func TestFetcherPaginatesUntilDone(t *testing.T) {
	pages := map[string][]map[string]any{
		"":  {record("i-1"), record("i-2")},
		"2": {record("i-3")},
	}
	next := map[string]string{"": "2", "2": ""}

	f := sources.NewFetcher(recommend.SourceHub, testOptions(), nil,
		func(_ context.Context, region, cursor string) ([]map[string]any, string, error) {
			return pages[cursor], next[cursor], nil
		})

	result := f.Fetch(context.Background(), []string{"us-east-1"})

	require.Empty(t, result.Errors)
	require.Len(t, result.Records, 3)
	assert.Equal(t, recommend.SourceHub, result.Records[0].Source)
	assert.Equal(t, "us-east-1", result.Records[0].Region)
}

func TestFetcherStopsAtPageCap(t *testing.T) {
	opts := testOptions()
	opts.MaxPages = 3

	var calls int
	var mu sync.Mutex
	f := sources.NewFetcher(recommend.SourceHub, opts, nil,
		func(_ context.Context, region, cursor string) ([]map[string]any, string, error) {
			mu.Lock()
			calls++
			mu.Unlock()
			return []map[string]any{record("x")}, "more", nil // always claims another page
		})

	result := f.Fetch(context.Background(), []string{"us-east-1"})

	assert.Len(t, result.Records, 3)
	assert.Equal(t, 3, calls)
}

func TestFetcherRetriesRateLimitThenSucceeds(t *testing.T) {
	var attempts int
	f := sources.NewFetcher(recommend.SourceHub, testOptions(), nil,
		func(_ context.Context, region, cursor string) ([]map[string]any, string, error) {
			attempts++
			if attempts == 1 {
				return nil, "", errors.NewAPIError("hub", 429, "slow down")
			}
			return []map[string]any{record("i-1")}, "", nil
		})

	result := f.Fetch(context.Background(), []string{"us-east-1"})

	assert.Empty(t, result.Errors)
	assert.Len(t, result.Records, 1)
	assert.Equal(t, 2, attempts)
}

func TestFetcherRateLimitExhaustionIsRegionScoped(t *testing.T) {
	f := sources.NewFetcher(recommend.SourceHub, testOptions(), nil,
		func(_ context.Context, region, cursor string) ([]map[string]any, string, error) {
			if region == "us-east-1" {
				return nil, "", errors.NewAPIError("hub", 429, "slow down")
			}
			return []map[string]any{record("i-9")}, "", nil
		})

	result := f.Fetch(context.Background(), []string{"us-east-1", "eu-west-1"})

	// The healthy region's records survive the rate-limited one.
	require.Len(t, result.Records, 1)
	assert.Equal(t, "eu-west-1", result.Records[0].Region)

	require.Len(t, result.Errors, 1)
	assert.True(t, errors.IsRateLimited(result.Errors[0]))

	var rle *errors.RateLimitedError
	require.True(t, errors.As(result.Errors[0], &rle))
	assert.Equal(t, "us-east-1", rle.Region)
}

func TestFetcherAuthFailureIsNotRetried(t *testing.T) {
	var attempts int
	f := sources.NewFetcher(recommend.SourceHub, testOptions(), nil,
		func(_ context.Context, region, cursor string) ([]map[string]any, string, error) {
			attempts++
			return nil, "", errors.NewAPIError("hub", 401, "bad key")
		})

	result := f.Fetch(context.Background(), []string{"us-east-1"})

	assert.Equal(t, 1, attempts)
	require.Len(t, result.Errors, 1)
	assert.True(t, errors.IsSourceUnavailable(result.Errors[0]))
}

func TestFetcherKeepsPartialPagesOnFailure(t *testing.T) {
	var page int
	f := sources.NewFetcher(recommend.SourceHub, testOptions(), nil,
		func(_ context.Context, region, cursor string) ([]map[string]any, string, error) {
			page++
			if page == 1 {
				return []map[string]any{record("i-1")}, "2", nil
			}
			return nil, "", errors.NewAPIError("hub", 403, "forbidden")
		})

	result := f.Fetch(context.Background(), []string{"us-east-1"})

	assert.Len(t, result.Records, 1, "first page survives the second page's failure")
	require.Len(t, result.Errors, 1)
}

func TestFetcherCircuitOpenShortCircuits(t *testing.T) {
	b := breaker.New(1, time.Minute)
	b.Failure() // open

	var called bool
	f := sources.NewFetcher(recommend.SourceHub, testOptions(), b,
		func(_ context.Context, region, cursor string) ([]map[string]any, string, error) {
			called = true
			return nil, "", nil
		})

	result := f.Fetch(context.Background(), []string{"us-east-1"})

	assert.False(t, called)
	require.Len(t, result.Errors, 1)
	assert.True(t, errors.IsCircuitOpen(result.Errors[0]))
}

func TestFetcherTripsBreakerOnTotalHardFailure(t *testing.T) {
	b := breaker.New(1, time.Minute)
	f := sources.NewFetcher(recommend.SourceHub, testOptions(), b,
		func(_ context.Context, region, cursor string) ([]map[string]any, string, error) {
			return nil, "", errors.NewAPIError("hub", 401, "bad key")
		})

	f.Fetch(context.Background(), []string{"us-east-1"})

	assert.True(t, b.Open())
}

func TestFetcherDeadlineIsCooperative(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	var calls int
	f := sources.NewFetcher(recommend.SourceHub, testOptions(), nil,
		func(ctx context.Context, region, cursor string) ([]map[string]any, string, error) {
			mu.Lock()
			calls++
			if calls == 1 {
				cancel()
			}
			mu.Unlock()
			return []map[string]any{record("i-1")}, "more", nil
		})

	result := f.Fetch(ctx, []string{"us-east-1"})

	// The page fetched before cancellation is kept; pagination stops at
	// the next cooperative check.
	assert.NotEmpty(t, result.Records)
	mu.Lock()
	assert.LessOrEqual(t, calls, 2)
	mu.Unlock()
}

func TestFetcherOpenCircuitCutsOffRemainingRegions(t *testing.T) {
	opts := testOptions()
	opts.RegionConcurrency = 1

	b := breaker.New(1, time.Minute)

	var mu sync.Mutex
	calls := map[string]int{}
	f := sources.NewFetcher(recommend.SourceHub, opts, b,
		func(_ context.Context, region, cursor string) ([]map[string]any, string, error) {
			mu.Lock()
			calls[region]++
			mu.Unlock()
			return nil, "", errors.NewAPIError("hub", 401, "bad key")
		})

	result := f.Fetch(context.Background(), []string{"us-east-1", "eu-west-1", "ap-south-1"})

	// The first region's hard failure opens the circuit; the later
	// regions are rejected without ever reaching the endpoint.
	mu.Lock()
	assert.Equal(t, map[string]int{"us-east-1": 1}, calls)
	mu.Unlock()

	require.Len(t, result.Errors, 3)
	assert.True(t, errors.IsSourceUnavailable(result.Errors[0]))
	assert.True(t, errors.IsCircuitOpen(result.Errors[1]))
	assert.True(t, errors.IsCircuitOpen(result.Errors[2]))
}

func TestFetcherOpenCircuitStopsPagination(t *testing.T) {
	b := breaker.New(1, time.Minute)

	var calls int
	f := sources.NewFetcher(recommend.SourceHub, testOptions(), b,
		func(_ context.Context, region, cursor string) ([]map[string]any, string, error) {
			calls++
			b.Failure() // circuit opens while this region is mid-pagination
			return []map[string]any{record("i-1")}, "more", nil
		})

	result := f.Fetch(context.Background(), []string{"us-east-1"})

	assert.Equal(t, 1, calls, "pagination stops at the next breaker check")
	assert.Len(t, result.Records, 1, "the page fetched before the circuit opened is kept")
	require.Len(t, result.Errors, 1)
	assert.True(t, errors.IsCircuitOpen(result.Errors[0]))
}

func TestFetcherDeadlineExpiryReportedAsTimeout(t *testing.T) {
	opts := testOptions()
	opts.RetryBackoff = 250 * time.Millisecond
	opts.MaxRetryBackoff = 250 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	f := sources.NewFetcher(recommend.SourceHub, opts, nil,
		func(_ context.Context, region, cursor string) ([]map[string]any, string, error) {
			return nil, "", errors.NewAPIError("hub", 429, "slow down")
		})

	result := f.Fetch(ctx, []string{"us-east-1"})

	// The deadline fires during the retry backoff. That truncation is
	// reported as a timeout, not blamed on the source.
	require.Len(t, result.Errors, 1)
	assert.True(t, errors.IsTimeout(result.Errors[0]))

	var toe *errors.TimeoutError
	require.True(t, errors.As(result.Errors[0], &toe))
	assert.Equal(t, "us-east-1", toe.Region)
}

func TestFetcherTimeoutDoesNotTripBreaker(t *testing.T) {
	opts := testOptions()
	opts.RetryBackoff = 250 * time.Millisecond
	opts.MaxRetryBackoff = 250 * time.Millisecond

	b := breaker.New(1, time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	f := sources.NewFetcher(recommend.SourceHub, opts, b,
		func(_ context.Context, region, cursor string) ([]map[string]any, string, error) {
			return nil, "", errors.NewAPIError("hub", 429, "slow down")
		})

	f.Fetch(ctx, []string{"us-east-1"})

	assert.False(t, b.Open(), "a truncated cycle says nothing about source health")
}
