package adapters

import (
	"github.com/qe-tools/quality-atlas/pkg/models/api"
	"github.com/qe-tools/quality-atlas/pkg/models/domain"
)

func MapDomainSnapshotToAPI(s domain.AnalyticsSnapshot) api.AnalyticsSnapshot {
	return api.AnalyticsSnapshot{
		Current:     mapPeriodMetrics(s.Current),
		PriorPeriod: mapPeriodMetrics(s.PriorPeriod),
		Trends: api.TrendSet{
			AvgDaysToClose:       mapTrend(s.Trends.AvgDaysToClose),
			TotalBacklog:         mapTrend(s.Trends.TotalBacklog),
			ClosedOnTargetPct:    mapTrend(s.Trends.ClosedOnTargetPct),
			ProjectedOnTargetPct: mapTrend(s.Trends.ProjectedOnTargetPct),
		},
	}
}

func mapPeriodMetrics(m domain.PeriodMetrics) api.PeriodMetrics {
	return api.PeriodMetrics{
		AvgDaysToClose:       m.AvgDaysToClose,
		TotalBacklog:         m.TotalBacklog,
		ClosedOnTargetPct:    m.ClosedOnTargetPct,
		ProjectedOnTargetPct: m.ProjectedOnTargetPct,
		BacklogBreakdown: api.BacklogBreakdown{
			Under30:    m.BacklogBreakdown.Under30,
			Days31To60: m.BacklogBreakdown.Days31To60,
			Days61To90: m.BacklogBreakdown.Days61To90,
			Over90:     m.BacklogBreakdown.Over90,
		},
	}
}

func mapTrend(t domain.Trend) api.Trend {
	return api.Trend{
		PercentChange: t.PercentChange,
		IsImprovement: t.IsImprovement,
		Direction:     string(t.Direction),
	}
}
