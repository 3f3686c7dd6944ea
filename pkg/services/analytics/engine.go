package analytics

import (
	"math"
	"time"

	"github.com/qe-tools/quality-atlas/pkg/models/domain"
)

// DefaultTargetDaysToClose is used when configuration does not supply
// a closure target.
const DefaultTargetDaysToClose = 30

// ComputeSnapshot derives the KPI snapshot for the window and the same
// calendar window one year earlier, with per-metric trends. Pure and
// idempotent: safe to run concurrently over the same record set.
func ComputeSnapshot(records []domain.Deviation, window domain.Window, now time.Time, targetDays int) domain.AnalyticsSnapshot {
	if targetDays <= 0 {
		targetDays = DefaultTargetDaysToClose
	}

	current := computePeriod(records, window, now, targetDays)
	prior := computePeriod(records, window.PriorYear(), now, targetDays)

	return domain.AnalyticsSnapshot{
		Current:     current,
		PriorPeriod: prior,
		Trends: domain.TrendSet{
			AvgDaysToClose:       trend(current.AvgDaysToClose, prior.AvgDaysToClose, false),
			TotalBacklog:         trend(float64(current.TotalBacklog), float64(prior.TotalBacklog), false),
			ClosedOnTargetPct:    trend(current.ClosedOnTargetPct, prior.ClosedOnTargetPct, true),
			ProjectedOnTargetPct: trend(current.ProjectedOnTargetPct, prior.ProjectedOnTargetPct, true),
		},
	}
}

func computePeriod(records []domain.Deviation, window domain.Window, now time.Time, targetDays int) domain.PeriodMetrics {
	var m domain.PeriodMetrics

	var closedCount, closedOnTarget int
	var openOnTrack int
	var totalDaysToClose float64

	for _, d := range records {
		if !window.Contains(d.DateDiscovered) {
			continue
		}

		days := d.DaysOpen(now)
		if d.Status == domain.DeviationStatusClosed {
			closedCount++
			totalDaysToClose += float64(days)
			if days <= targetDays {
				closedOnTarget++
			}
			continue
		}

		m.TotalBacklog++
		switch {
		case days <= 30:
			m.BacklogBreakdown.Under30++
		case days <= 60:
			m.BacklogBreakdown.Days31To60++
		case days <= 90:
			m.BacklogBreakdown.Days61To90++
		default:
			m.BacklogBreakdown.Over90++
		}
		if days <= targetDays {
			openOnTrack++
		}
	}

	if closedCount > 0 {
		m.AvgDaysToClose = totalDaysToClose / float64(closedCount)
		m.ClosedOnTargetPct = 100 * float64(closedOnTarget) / float64(closedCount)
	}
	if m.TotalBacklog > 0 {
		m.ProjectedOnTargetPct = 100 * float64(openOnTrack) / float64(m.TotalBacklog)
	}

	return m
}

// trend compares a metric across periods. Direction follows the raw
// delta sign; increaseIsGood flips which direction counts as an
// improvement.
func trend(current, prior float64, increaseIsGood bool) domain.Trend {
	delta := current - prior

	t := domain.Trend{Direction: domain.TrendNeutral}
	if prior != 0 {
		t.PercentChange = math.Abs(delta) / prior * 100
	}

	switch {
	case delta > 0:
		t.Direction = domain.TrendUp
		t.IsImprovement = increaseIsGood
	case delta < 0:
		t.Direction = domain.TrendDown
		t.IsImprovement = !increaseIsGood
	}

	return t
}
