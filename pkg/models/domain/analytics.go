package domain

import "time"

type Window struct {
	Start time.Time
	End   time.Time
}

// PriorYear shifts the window back by exactly one year, keeping the
// same calendar dates.
func (w Window) PriorYear() Window {
	return Window{
		Start: w.Start.AddDate(-1, 0, 0),
		End:   w.End.AddDate(-1, 0, 0),
	}
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

type BacklogBreakdown struct {
	Under30    int
	Days31To60 int
	Days61To90 int
	Over90     int
}

type PeriodMetrics struct {
	AvgDaysToClose       float64
	TotalBacklog         int
	ClosedOnTargetPct    float64
	ProjectedOnTargetPct float64
	BacklogBreakdown     BacklogBreakdown
}

type TrendDirection string

const (
	TrendUp      TrendDirection = "up"
	TrendDown    TrendDirection = "down"
	TrendNeutral TrendDirection = "neutral"
)

// Trend compares one metric across the current and prior periods.
// Direction follows the raw delta sign; IsImprovement depends on which
// way is better for the particular metric.
type Trend struct {
	PercentChange float64
	IsImprovement bool
	Direction     TrendDirection
}

type TrendSet struct {
	AvgDaysToClose       Trend
	TotalBacklog         Trend
	ClosedOnTargetPct    Trend
	ProjectedOnTargetPct Trend
}

// AnalyticsSnapshot is a value object recomputed on demand, never persisted.
type AnalyticsSnapshot struct {
	Current     PeriodMetrics
	PriorPeriod PeriodMetrics
	Trends      TrendSet
}
