package escalation

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/qe-tools/quality-atlas/pkg/adapters"
	"github.com/qe-tools/quality-atlas/pkg/models/domain"
	"github.com/qe-tools/quality-atlas/pkg/models/store"
	capastore "github.com/qe-tools/quality-atlas/pkg/store/sqlite/capa"
)

// Notifier delivers escalation notices to an external channel.
type Notifier interface {
	CapaOverdue(ctx context.Context, action *domain.CapaAction)
	EffectivenessCheckRequired(ctx context.Context, action *domain.CapaAction)
}

// Sweeper periodically scans for overdue CAPA actions and emits
// notices. Overdue status is informational and never blocks the board.
type Sweeper struct {
	actions  capastore.Store
	notifier Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

func NewSweeper(actions capastore.Store, notifier Notifier, logger zerolog.Logger) (*Sweeper, error) {
	if actions == nil {
		return nil, fmt.Errorf("capa store is nil")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier is nil")
	}
	return &Sweeper{
		actions:  actions,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Run performs a single sweep.
func (s *Sweeper) Run(ctx context.Context) error {
	now := s.now()
	records, err := s.actions.List(ctx, store.CapaFilter{
		Statuses: []string{
			string(domain.CapaStatusOpen),
			string(domain.CapaStatusInProgress),
			string(domain.CapaStatusEffectivenessCheck),
		},
		DueBefore: &now,
	})
	if err != nil {
		return fmt.Errorf("failed to scan for overdue capa actions: %w", err)
	}

	for _, r := range records {
		action := adapters.MapStoreCapaToDomain(r)
		s.logger.Info().
			Str("capa_id", action.CapaID).
			Str("owner", action.Owner).
			Time("due_date", action.DueDate).
			Msg("capa action overdue")
		s.notifier.CapaOverdue(ctx, action)
	}
	return nil
}

// Schedule registers the sweep on the given cron runner.
func (s *Sweeper) Schedule(c *cron.Cron, spec string) error {
	_, err := c.AddFunc(spec, func() {
		if err := s.Run(context.Background()); err != nil {
			s.logger.Error().Err(err).Msg("overdue sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule overdue sweep: %w", err)
	}
	return nil
}
