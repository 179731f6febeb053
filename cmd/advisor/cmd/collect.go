package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/finopshub/advisor/internal/config"
	"github.com/finopshub/advisor/pkg/logging"
)

var collectOutput string

// collectCmd runs one collection cycle and writes the report as JSON.
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run one collection cycle and print the report",
	Long: `Collect fetches recommendations from all configured sources,
runs the pipeline, and writes the resulting report as JSON to stdout
or to the file given with --output.

The command exits non-zero when no source returned usable data.`,
	RunE: runCollect,
}

func init() {
	collectCmd.Flags().StringVarP(&collectOutput, "output", "o", "", "write the report to a file instead of stdout")
	rootCmd.AddCommand(collectCmd)
}

func runCollect(cmd *cobra.Command, _ []string) error {
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

	report, err := c.Collect(cmd.Context())
	if err != nil {
		logging.Error().Err(err).Msg("Collection failed")
		return err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}

	if collectOutput != "" {
		if err := os.WriteFile(collectOutput, data, 0o644); err != nil {
			return err
		}
		logging.Info().Str("path", collectOutput).Msg("Report written")
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
