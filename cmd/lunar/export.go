package main

import (
	"fmt"
	"time"

	"github.com/newthinker/lunar/internal/app"
	"github.com/newthinker/lunar/internal/archive"
	"github.com/newthinker/lunar/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Simulate a series and write a report snapshot to the archive",
	Long: `Export generates a series, runs the analytics and writes the result
to the configured archive (local directory or S3 bucket).`,
	RunE: runExport,
}

var (
	exportDays   int
	exportFormat string
	exportOut    string
	exportList   bool
)

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().IntVarP(&exportDays, "days", "n", 0, "number of days to simulate (default from config)")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", archive.FormatJSON, "snapshot format (json or yaml)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "archive path (default reports/<date>/...)")
	exportCmd.Flags().BoolVar(&exportList, "list", false, "list stored snapshots instead of exporting")
}

func runExport(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app.App, cfg *config.Config, log *zap.Logger) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if exportList {
			paths, err := a.Exporter().List(ctx)
			if err != nil {
				return fmt.Errorf("listing snapshots: %w", err)
			}
			if len(paths) == 0 {
				fmt.Fprintln(out, "No snapshots found.")
				return nil
			}
			for _, p := range paths {
				fmt.Fprintln(out, p)
			}
			return nil
		}

		sim, err := simulate(ctx, a, cfg, exportDays)
		if err != nil {
			return err
		}
		latest, _ := sim.Series.Latest()
		forecast := a.Forecaster().ForecastNextDay(latest.Price)

		path, err := a.Exporter().Export(ctx, &archive.Snapshot{
			GeneratedAt: time.Now().UTC(),
			Series:      sim.Series,
			Report:      sim.Report,
			Narration:   sim.Narration,
			Forecast:    &forecast,
		}, exportFormat, exportOut)
		if err != nil {
			return fmt.Errorf("exporting snapshot: %w", err)
		}

		fmt.Fprintf(out, "Snapshot written: %s\n", path)
		log.Debug("export complete", zap.String("archive", cfg.Archive.Type))
		return nil
	})
}
