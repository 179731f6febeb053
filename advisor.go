// Package advisor provides the embeddable entry point to the
// recommendation pipeline. It wraps configuration, the source clients,
// and the collector behind a small interface so host programs can run
// collection cycles without touching the internal packages.
package advisor

import (
	"context"
	"fmt"
	"sync"

	"github.com/finopshub/advisor/internal/annotations"
	"github.com/finopshub/advisor/internal/breaker"
	"github.com/finopshub/advisor/internal/cache"
	"github.com/finopshub/advisor/internal/collector"
	"github.com/finopshub/advisor/internal/config"
	"github.com/finopshub/advisor/internal/normalize"
	"github.com/finopshub/advisor/internal/sources"
	"github.com/finopshub/advisor/internal/sources/registry"
	"github.com/finopshub/advisor/pkg/constants"
	"github.com/finopshub/advisor/pkg/recommend"
)

// Advisor runs collection cycles and retains the latest usable report.
type Advisor interface {
	// Collect runs one collection cycle and returns the report. On a
	// cycle where no source produced usable data it returns an error and
	// the previous report stays available through Latest.
	Collect(ctx context.Context) (*recommend.Report, error)

	// Latest returns the most recent usable report, or nil when none has
	// been produced within the cache TTL.
	Latest() *recommend.Report

	// Close releases resources held by the pipeline.
	Close() error
}

type advisor struct {
	mu        sync.Mutex
	cfg       *config.Config
	collector *collector.Collector
	reports   *cache.ReportCache
	store     *annotations.Store
}

// Option configures an Advisor instance.
type Option func(*options) error

type options struct {
	configFile  string
	cfg         *config.Config
	annotations bool
	extraSrcs   []sources.Source
}

// WithConfigFile loads configuration from the given file.
func WithConfigFile(path string) Option {
	return func(o *options) error {
		o.configFile = path
		return nil
	}
}

// WithConfig uses an already constructed configuration.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return fmt.Errorf("nil config")
		}
		o.cfg = cfg
		return nil
	}
}

// WithAnnotations enables persistent status annotations under the
// configured data directory.
func WithAnnotations(enabled bool) Option {
	return func(o *options) error {
		o.annotations = enabled
		return nil
	}
}

// WithSource adds a custom source client alongside the built-in ones.
func WithSource(src sources.Source) Option {
	return func(o *options) error {
		if src == nil {
			return fmt.Errorf("nil source")
		}
		o.extraSrcs = append(o.extraSrcs, src)
		return nil
	}
}

// New creates an Advisor with the given options.
func New(opts ...Option) (Advisor, error) {
	var o options
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, fmt.Errorf("applying options: %w", err)
		}
	}

	cfg := o.cfg
	if cfg == nil {
		loaded, err := config.Load(o.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	breakers := breaker.NewSet(cfg.BreakerThreshold, cfg.BreakerWindow)
	srcs := append(registry.New(cfg, breakers), o.extraSrcs...)

	normalizer := normalize.New()
	if cfg.MappingFile != "" {
		if err := normalizer.LoadOverrides(cfg.MappingFile); err != nil {
			return nil, err
		}
	}

	collectorOpts := []collector.Option{collector.WithNormalizer(normalizer)}

	var store *annotations.Store
	if o.annotations {
		opened, err := annotations.Open(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		store = opened
		collectorOpts = append(collectorOpts, collector.WithAnnotator(store))
	}

	return &advisor{
		cfg:       cfg,
		collector: collector.New(cfg, srcs, collectorOpts...),
		reports:   cache.New(cfg.CacheTTL, constants.CacheCleanupInterval),
		store:     store,
	}, nil
}

// Collect runs one cycle. Cycles are serialized; concurrent callers
// block until the running cycle finishes.
func (a *advisor) Collect(ctx context.Context) (*recommend.Report, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	report, err := a.collector.Collect(ctx)
	if err != nil {
		return nil, err
	}
	a.reports.Put(report)
	return report, nil
}

// Latest returns the cached report from the last usable cycle.
func (a *advisor) Latest() *recommend.Report {
	return a.reports.Latest()
}

// Close releases the annotation store if one was opened.
func (a *advisor) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}
