// Package cmd implements the advisor CLI commands.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/finopshub/advisor/internal/annotations"
	"github.com/finopshub/advisor/internal/breaker"
	"github.com/finopshub/advisor/internal/collector"
	"github.com/finopshub/advisor/internal/config"
	"github.com/finopshub/advisor/internal/normalize"
	"github.com/finopshub/advisor/internal/server"
	"github.com/finopshub/advisor/internal/sources/registry"
	"github.com/finopshub/advisor/pkg/logging"
)

var (
	configFile string
	verbose    bool
	quiet      bool

	// Version information set by main.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
	// Date is the build date.
	Date = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "advisor",
	Short: "Cloud cost-saving recommendation aggregator",
	Long: `Advisor collects cost-saving recommendations from the Hub,
Cost-Analysis and Commitment-Plans APIs, deduplicates records that
describe the same underlying change, scores them by savings, effort and
risk, and produces a single prioritized report.

Run 'advisor collect' for a one-shot report on stdout, or
'advisor serve' to keep collecting on a schedule and serve the latest
report over HTTP.`,
}

// Execute runs the root command with signal-aware context.
func Execute(version, commit, date string) error {
	Version = version
	Commit = commit
	Date = date
	server.Version = version

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(configureLogging)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ./advisor.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log warnings and errors")
}

// configureLogging sets the global log level from flags and environment.
func configureLogging() {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	if quiet {
		level = zerolog.WarnLevel
	}
	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		if parsed, err := zerolog.ParseLevel(envLevel); err == nil {
			level = parsed
		}
	}
	zerolog.SetGlobalLevel(level)
	logging.SetDefault(logging.Default().Level(level))
}

// buildCollector assembles the collection pipeline from configuration.
// The returned store may be nil when annotation persistence is
// unavailable; the pipeline degrades gracefully without it.
func buildCollector(cfg *config.Config) (*collector.Collector, *annotations.Store, error) {
	breakers := breaker.NewSet(cfg.BreakerThreshold, cfg.BreakerWindow)
	srcs := registry.New(cfg, breakers)

	normalizer := normalize.New()
	if cfg.MappingFile != "" {
		if err := normalizer.LoadOverrides(cfg.MappingFile); err != nil {
			return nil, nil, err
		}
	}

	store, err := annotations.Open(cfg.DataDir)
	if err != nil {
		logging.Warn().Err(err).Str("data_dir", cfg.DataDir).
			Msg("Annotation store unavailable, statuses will not persist")
		store = nil
	}

	opts := []collector.Option{collector.WithNormalizer(normalizer)}
	if store != nil {
		opts = append(opts, collector.WithAnnotator(store))
	}

	return collector.New(cfg, srcs, opts...), store, nil
}
