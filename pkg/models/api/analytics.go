package api

type BacklogBreakdown struct {
	Under30    int `json:"under_30"`
	Days31To60 int `json:"days_31_to_60"`
	Days61To90 int `json:"days_61_to_90"`
	Over90     int `json:"over_90"`
}

type PeriodMetrics struct {
	AvgDaysToClose       float64          `json:"avg_days_to_close"`
	TotalBacklog         int              `json:"total_backlog"`
	ClosedOnTargetPct    float64          `json:"closed_on_target_pct"`
	ProjectedOnTargetPct float64          `json:"projected_on_target_pct"`
	BacklogBreakdown     BacklogBreakdown `json:"backlog_breakdown"`
}

type Trend struct {
	PercentChange float64 `json:"percent_change"`
	IsImprovement bool    `json:"is_improvement"`
	Direction     string  `json:"direction"`
}

type TrendSet struct {
	AvgDaysToClose       Trend `json:"avg_days_to_close"`
	TotalBacklog         Trend `json:"total_backlog"`
	ClosedOnTargetPct    Trend `json:"closed_on_target_pct"`
	ProjectedOnTargetPct Trend `json:"projected_on_target_pct"`
}

type AnalyticsSnapshot struct {
	Current     PeriodMetrics `json:"current"`
	PriorPeriod PeriodMetrics `json:"prior_period"`
	Trends      TrendSet      `json:"trends"`
}
