package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/qe-tools/quality-atlas/pkg/adapters"
	"github.com/qe-tools/quality-atlas/pkg/models/domain"
	"github.com/qe-tools/quality-atlas/pkg/models/store"
	devstore "github.com/qe-tools/quality-atlas/pkg/store/sqlite/deviation"
)

// Service computes snapshots over the persisted record set. Reads are
// idempotent; no locking is needed.
type Service interface {
	Snapshot(ctx context.Context, window domain.Window, targetDays int) (domain.AnalyticsSnapshot, error)
}

type defaultService struct {
	deviations devstore.Store
	now        func() time.Time
}

func NewService(deviations devstore.Store) (Service, error) {
	if deviations == nil {
		return nil, fmt.Errorf("deviation store is nil")
	}
	return &defaultService{
		deviations: deviations,
		now:        time.Now,
	}, nil
}

func (s *defaultService) Snapshot(ctx context.Context, window domain.Window, targetDays int) (domain.AnalyticsSnapshot, error) {
	// Fetch everything discovered since the start of the prior-year
	// window; ComputeSnapshot filters per period.
	after := window.PriorYear().Start
	before := window.End

	records, err := s.deviations.List(ctx, store.DeviationFilter{
		DiscoveredAfter:  &after,
		DiscoveredBefore: &before,
	})
	if err != nil {
		return domain.AnalyticsSnapshot{}, fmt.Errorf("failed to load deviations for snapshot: %w", err)
	}

	deviations := make([]domain.Deviation, 0, len(records))
	for _, r := range records {
		deviations = append(deviations, *adapters.MapStoreDeviationToDomain(r))
	}

	return ComputeSnapshot(deviations, window, s.now(), targetDays), nil
}
