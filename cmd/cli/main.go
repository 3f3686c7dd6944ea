package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/qe-tools/quality-atlas/pkg/models/domain"
	"github.com/qe-tools/quality-atlas/pkg/services/analytics"
	"github.com/qe-tools/quality-atlas/pkg/services/config"
	"github.com/qe-tools/quality-atlas/pkg/store/sqlite"
	devstore "github.com/qe-tools/quality-atlas/pkg/store/sqlite/deviation"
)

var (
	cfgPath string
	from    string
	to      string
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "report",
		Short: "Print the deviation KPI snapshot for a reporting window",
		RunE:  runReport,
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "quality-atlas.yaml",
		"Path to the quality-atlas config file")
	rootCmd.Flags().StringVar(&from, "from", "", "Window start (YYYY-MM-DD), default 90 days ago")
	rootCmd.Flags().StringVar(&to, "to", "", "Window end (YYYY-MM-DD), default today")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runReport(cmd *cobra.Command, _ []string) error {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	window, err := parseWindow()
	if err != nil {
		return err
	}

	db, err := sqlite.NewDB(sqlite.Settings{DbPath: cfg.DBPath})
	if err != nil {
		return fmt.Errorf("failed to open record store: %w", err)
	}
	defer db.Close()

	deviations, err := devstore.NewStore(db)
	if err != nil {
		return fmt.Errorf("failed to create deviation store: %w", err)
	}
	analyticsSvc, err := analytics.NewService(deviations)
	if err != nil {
		return fmt.Errorf("failed to create analytics service: %w", err)
	}

	snapshot, err := analyticsSvc.Snapshot(cmd.Context(), window, cfg.TargetDaysToClose)
	if err != nil {
		return fmt.Errorf("failed to compute snapshot: %w", err)
	}

	logger.Info().
		Time("from", window.Start).
		Time("to", window.End).
		Msg("snapshot computed")

	printSnapshot(snapshot)
	return nil
}

func parseWindow() (domain.Window, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -90)

	if from != "" {
		parsed, err := time.Parse("2006-01-02", from)
		if err != nil {
			return domain.Window{}, fmt.Errorf("invalid --from date: %w", err)
		}
		start = parsed
	}
	if to != "" {
		parsed, err := time.Parse("2006-01-02", to)
		if err != nil {
			return domain.Window{}, fmt.Errorf("invalid --to date: %w", err)
		}
		end = parsed
	}
	return domain.Window{Start: start, End: end}, nil
}

func printSnapshot(s domain.AnalyticsSnapshot) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "METRIC\tCURRENT\tPRIOR YEAR\tCHANGE\tDIRECTION")
	row := func(name string, current, prior string, t domain.Trend) {
		marker := ""
		if t.IsImprovement {
			marker = " (improved)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.1f%%\t%s%s\n",
			name, current, prior, t.PercentChange, t.Direction, marker)
	}

	row("Avg days to close",
		fmt.Sprintf("%.1f", s.Current.AvgDaysToClose),
		fmt.Sprintf("%.1f", s.PriorPeriod.AvgDaysToClose),
		s.Trends.AvgDaysToClose)
	row("Total backlog",
		fmt.Sprintf("%d", s.Current.TotalBacklog),
		fmt.Sprintf("%d", s.PriorPeriod.TotalBacklog),
		s.Trends.TotalBacklog)
	row("Closed on target",
		fmt.Sprintf("%.1f%%", s.Current.ClosedOnTargetPct),
		fmt.Sprintf("%.1f%%", s.PriorPeriod.ClosedOnTargetPct),
		s.Trends.ClosedOnTargetPct)
	row("Projected on target",
		fmt.Sprintf("%.1f%%", s.Current.ProjectedOnTargetPct),
		fmt.Sprintf("%.1f%%", s.PriorPeriod.ProjectedOnTargetPct),
		s.Trends.ProjectedOnTargetPct)

	b := s.Current.BacklogBreakdown
	fmt.Fprintf(w, "\nBACKLOG AGE\tCOUNT\n")
	fmt.Fprintf(w, "0-30 days\t%d\n", b.Under30)
	fmt.Fprintf(w, "31-60 days\t%d\n", b.Days31To60)
	fmt.Fprintf(w, "61-90 days\t%d\n", b.Days61To90)
	fmt.Fprintf(w, "over 90 days\t%d\n", b.Over90)
}
