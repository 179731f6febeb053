// Package registry wires the configured source clients together so the
// collector does not need to know about individual client packages.
package registry

import (
	"github.com/finopshub/advisor/internal/breaker"
	"github.com/finopshub/advisor/internal/config"
	"github.com/finopshub/advisor/internal/sources"
	"github.com/finopshub/advisor/internal/sources/commitments"
	"github.com/finopshub/advisor/internal/sources/costanalysis"
	"github.com/finopshub/advisor/internal/sources/hub"
	"github.com/finopshub/advisor/pkg/recommend"
)

// New constructs the enabled source clients from configuration. The
// breaker set is shared across cycles; one breaker per source.
func New(cfg *config.Config, breakers *breaker.Set) []sources.Source {
	opts := sources.Options{
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
		MaxRetryBackoff:   cfg.MaxRetryBackoff,
		RegionConcurrency: int64(cfg.RegionConcurrency),
		MaxPages:          cfg.MaxPages,
		PageSize:          cfg.PageSize,
	}

	var list []sources.Source

	if sc := cfg.Source(recommend.SourceHub.String()); !sc.Disabled {
		list = append(list, hub.New(sc, opts, breakers.Get(recommend.SourceHub)))
	}
	if sc := cfg.Source(recommend.SourceCostAnalysis.String()); !sc.Disabled {
		list = append(list, costanalysis.New(sc, opts, breakers.Get(recommend.SourceCostAnalysis)))
	}
	if sc := cfg.Source(recommend.SourceCommitmentPlans.String()); !sc.Disabled {
		list = append(list, commitments.New(sc, opts, breakers.Get(recommend.SourceCommitmentPlans)))
	}

	return list
}
