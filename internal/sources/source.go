// Package sources defines the source client abstraction for the three
// external cost-optimization APIs and the shared fetch machinery they use:
// bounded per-region fan-out, pagination with a page cap, retry with
// exponential backoff and jitter, and circuit-breaker integration.
//
// Each source handles its own pagination and schema quirks in its page
// function; everything else about resilient collection lives here.
package sources

import (
	"context"

	"github.com/finopshub/advisor/pkg/recommend"
)

// RawRecord is one undecoded recommendation as returned by a source API.
// Field names are source-specific; the normalizer owns the mapping.
type RawRecord struct {
	Source recommend.SourceTag
	Region string
	Fields map[string]any
}

// FetchResult carries whatever a source managed to collect plus the
// non-fatal errors encountered along the way. A region that failed after
// retries contributes an error entry without suppressing records from
// sibling regions.
type FetchResult struct {
	Records []RawRecord
	Errors  []error
}

// Source is one external cost-optimization API.
type Source interface {
	// Tag returns the origin tag attached to every record from this source.
	Tag() recommend.SourceTag

	// Fetch retrieves raw records for the given regions. It never returns
	// a fatal error: partial results and per-region typed errors come back
	// together in the FetchResult.
	Fetch(ctx context.Context, regions []string) FetchResult
}
