package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/newthinker/lunar/internal/analytics"
	"github.com/newthinker/lunar/internal/app"
	"github.com/newthinker/lunar/internal/config"
	"github.com/newthinker/lunar/internal/core"
	"github.com/newthinker/lunar/internal/lunar"
	"github.com/newthinker/lunar/internal/narrator"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Generate a series and print its lunar analytics",
	RunE:  runSimulate,
}

var (
	simDays int
	simRows int
)

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().IntVarP(&simDays, "days", "n", 0, "number of days to simulate (default from config)")
	simulateCmd.Flags().IntVar(&simRows, "rows", 10, "most recent days to print (0 prints all)")
}

// simulation is one generated series with its report and narration.
type simulation struct {
	Series    core.Series
	Report    *analytics.Report
	Narration narrator.Narration
}

// simulate generates days and runs the full report over them.
func simulate(ctx context.Context, a *app.App, cfg *config.Config, days int) (*simulation, error) {
	if days == 0 {
		days = cfg.Simulation.DefaultDays
	}
	if err := cfg.Simulation.CheckDays(days); err != nil {
		return nil, err
	}

	series, err := a.Generator().Generate(days)
	if err != nil {
		return nil, fmt.Errorf("generating series: %w", err)
	}
	report, err := analytics.Run(series)
	if err != nil {
		return nil, fmt.Errorf("running analytics: %w", err)
	}
	return &simulation{
		Series:    series,
		Report:    report,
		Narration: a.Narrator().Narrate(ctx, report),
	}, nil
}

func runSimulate(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app.App, cfg *config.Config, log *zap.Logger) error {
		sim, err := simulate(cmd.Context(), a, cfg, simDays)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		printSeries(out, sim.Series.Tail(simRows))
		fmt.Fprintln(out)
		printReport(out, sim.Report)
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Outlook (%s)\n", sim.Narration.Source)
		fmt.Fprintln(out, "-------")
		fmt.Fprintln(out, sim.Narration.Text)

		log.Info("simulation complete",
			zap.Int("days", sim.Report.Days),
			zap.String("best_phase", sim.Report.BestPhase.Name),
			zap.String("narration", sim.Narration.Source),
		)
		return nil
	})
}

func printSeries(out io.Writer, series core.Series) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tPRICE\tCHANGE\tPHASE\t")
	fmt.Fprintln(w, "----\t-----\t------\t-----\t")
	for _, d := range series {
		p := lunar.FromIndex(d.PhaseIndex)
		fmt.Fprintf(w, "%s\t%.2f\t%+.2f%%\t%s %s\t\n",
			d.Date.Format(core.DateLayout), d.Price, d.PriceChangePercent, p.Glyph(), p.Name())
	}
	w.Flush()
}

func printReport(out io.Writer, r *analytics.Report) {
	fmt.Fprintf(out, "Summary (%d days)\n", r.Days)
	fmt.Fprintln(out, "-------")
	fmt.Fprintf(out, "Mean daily change:  %+.2f%%\n", r.OverallMean)
	fmt.Fprintf(out, "Std deviation:      %.2f%%\n", r.OverallStdDev)
	if r.Latest.HasPrevious {
		fmt.Fprintf(out, "Latest close:       %.2f (%+.2f, %+.2f%%) %s %s\n",
			r.Latest.Price, r.Latest.Change, r.Latest.ChangePercent, r.Latest.Glyph, r.Latest.Phase)
	} else {
		fmt.Fprintf(out, "Latest close:       %.2f %s %s\n", r.Latest.Price, r.Latest.Glyph, r.Latest.Phase)
	}
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PHASE\tDAYS\tMEAN CHANGE\t")
	fmt.Fprintln(w, "-----\t----\t-----------\t")
	for _, s := range r.ByPhase {
		mean := "-"
		if s.Count > 0 {
			mean = fmt.Sprintf("%+.2f%%", s.Mean)
		}
		fmt.Fprintf(w, "%s %s\t%d\t%s\t\n", s.Glyph, s.Name, s.Count, mean)
	}
	w.Flush()
	fmt.Fprintln(out)

	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "EFFECT\tDAYS\tMEAN CHANGE\tTENDENCY\t")
	fmt.Fprintln(w, "------\t----\t-----------\t--------\t")
	for _, e := range []struct {
		label  string
		effect analytics.Effect
	}{
		{"Full moon", r.FullMoonEffect},
		{"New moon", r.NewMoonEffect},
		{"Quarters", r.QuarterEffect},
	} {
		mean := "n/a"
		if e.effect.Defined {
			mean = fmt.Sprintf("%+.2f%%", e.effect.Mean)
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t\n", e.label, e.effect.Count, mean, analytics.Tendency(e.effect))
	}
	w.Flush()

	if r.BestPhase.Count > 0 {
		fmt.Fprintf(out, "\nBest phase: %s %s (%+.2f%% over %d days)\n",
			r.BestPhase.Glyph, r.BestPhase.Name, r.BestPhase.Mean, r.BestPhase.Count)
	}
}
