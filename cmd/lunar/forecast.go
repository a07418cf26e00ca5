package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/newthinker/lunar/internal/app"
	"github.com/newthinker/lunar/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Draw speculative next-day forecasts from a fresh series",
	RunE:  runForecast,
}

var (
	forecastDays  int
	forecastCount int
)

func init() {
	rootCmd.AddCommand(forecastCmd)
	forecastCmd.Flags().IntVarP(&forecastDays, "days", "n", 0, "number of days to simulate (default from config)")
	forecastCmd.Flags().IntVar(&forecastCount, "count", 1, "number of independent forecasts to draw")
}

func runForecast(cmd *cobra.Command, args []string) error {
	if forecastCount < 1 {
		return fmt.Errorf("count must be at least 1, got %d", forecastCount)
	}

	return withApp(func(a *app.App, cfg *config.Config, log *zap.Logger) error {
		days := forecastDays
		if days == 0 {
			days = cfg.Simulation.DefaultDays
		}
		if err := cfg.Simulation.CheckDays(days); err != nil {
			return err
		}

		series, err := a.Generator().Generate(days)
		if err != nil {
			return fmt.Errorf("generating series: %w", err)
		}
		latest, _ := series.Latest()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Latest close: %.2f after %d days\n\n", latest.Price, days)

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "#\tPRICE\tCHANGE\tPHASE\t")
		fmt.Fprintln(w, "-\t-----\t------\t-----\t")
		for i := 1; i <= forecastCount; i++ {
			f := a.Forecaster().ForecastNextDay(latest.Price)
			fmt.Fprintf(w, "%d\t%.2f\t%+.2f%%\t%s %s\t\n", i, f.Price, f.PriceChangePercent, f.Glyph, f.PhaseName)
		}
		w.Flush()

		fmt.Fprintln(out, "\nForecasts are speculative draws, not predictions.")
		log.Info("forecasts drawn", zap.Int("days", days), zap.Int("count", forecastCount))
		return nil
	})
}
