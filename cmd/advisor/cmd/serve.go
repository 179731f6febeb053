package cmd

import (
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/finopshub/advisor/internal/cache"
	"github.com/finopshub/advisor/internal/config"
	"github.com/finopshub/advisor/internal/server"
	"github.com/finopshub/advisor/pkg/constants"
	"github.com/finopshub/advisor/pkg/logging"
)

// serveCmd runs scheduled collection cycles and serves the latest report.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Collect on a schedule and serve reports over HTTP",
	Long: `Serve runs collection cycles on the configured cron schedule and
exposes the latest report over HTTP. When a cycle fails entirely the
previously cached report keeps being served until it expires.

An initial cycle runs at startup so the API has data as soon as the
first collection completes.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	c, store, err := buildCollector(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer func() { _ = store.Close() }()
	}

	reports := cache.New(cfg.CacheTTL, constants.CacheCleanupInterval)
	ctx := cmd.Context()

	// At most one cycle runs at a time. Overlapping triggers are skipped
	// rather than queued; the next scheduled run picks up the work.
	var cycleMu sync.Mutex
	runCycle := func() {
		if !cycleMu.TryLock() {
			logging.Warn().Msg("Collection cycle already running, skipping")
			return
		}
		defer cycleMu.Unlock()

		report, err := c.Collect(ctx)
		if err != nil {
			logging.Error().Err(err).Msg("Collection cycle failed, serving cached report")
			return
		}
		reports.Put(report)
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.CronSchedule, runCycle); err != nil {
		return err
	}
	scheduler.Start()
	defer func() {
		stopCtx := scheduler.Stop()
		<-stopCtx.Done()
	}()
	logging.Info().Str("schedule", cfg.CronSchedule).Msg("Collection scheduler started")

	go runCycle()

	opts := []server.Option{
		server.WithTrigger(func() { go runCycle() }),
	}
	if store != nil {
		opts = append(opts, server.WithAnnotations(store))
	}

	srv := server.New(cfg, reports, logging.Default(), opts...)
	return srv.Start(ctx)
}
