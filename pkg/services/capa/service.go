package capa

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/qe-tools/quality-atlas/pkg/adapters"
	"github.com/qe-tools/quality-atlas/pkg/models/domain"
	"github.com/qe-tools/quality-atlas/pkg/models/store"
	auditstore "github.com/qe-tools/quality-atlas/pkg/store/sqlite/audit"
	capastore "github.com/qe-tools/quality-atlas/pkg/store/sqlite/capa"
	devstore "github.com/qe-tools/quality-atlas/pkg/store/sqlite/deviation"
	seqstore "github.com/qe-tools/quality-atlas/pkg/store/sqlite/sequence"
)

// boardOrder is the Kanban column order. Moves advance by exactly one
// column per operation (Start, Review, Verify).
var boardOrder = []domain.CapaStatus{
	domain.CapaStatusOpen,
	domain.CapaStatusInProgress,
	domain.CapaStatusEffectivenessCheck,
	domain.CapaStatusClosedVerified,
}

var boardIndex = func() map[domain.CapaStatus]int {
	m := make(map[domain.CapaStatus]int, len(boardOrder))
	for i, s := range boardOrder {
		m[s] = i
	}
	return m
}()

const maxWriteAttempts = 3

const sequencePrefix = "CAPA"

// Notifier receives board events meant for external escalation
// channels. Implementations must not block the transition.
type Notifier interface {
	EffectivenessCheckRequired(ctx context.Context, action *domain.CapaAction)
}

type CreateFields struct {
	DeviationID string
	Title       string
	Description string
	Owner       string
	DueDate     time.Time
}

type Service interface {
	Create(ctx context.Context, fields CreateFields) (*domain.CapaAction, error)
	Get(ctx context.Context, id string) (*domain.CapaAction, error)
	List(ctx context.Context, filter store.CapaFilter) ([]*domain.CapaAction, error)
	Transition(ctx context.Context, id string, target domain.CapaStatus, actor string) (*domain.CapaAction, error)
	Delete(ctx context.Context, id string) error
}

type boardService struct {
	actions    capastore.Store
	deviations devstore.Store
	sequences  seqstore.Store
	audit      auditstore.Store
	notifier   Notifier
	now        func() time.Time
}

func NewService(
	actions capastore.Store,
	deviations devstore.Store,
	sequences seqstore.Store,
	audit auditstore.Store,
	notifier Notifier,
) (Service, error) {
	if actions == nil || deviations == nil || sequences == nil || audit == nil {
		return nil, fmt.Errorf("capa service requires capa, deviation, sequence and audit stores")
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &boardService{
		actions:    actions,
		deviations: deviations,
		sequences:  sequences,
		audit:      audit,
		notifier:   notifier,
		now:        time.Now,
	}, nil
}

type noopNotifier struct{}

func (noopNotifier) EffectivenessCheckRequired(context.Context, *domain.CapaAction) {}

func (s *boardService) Create(ctx context.Context, fields CreateFields) (*domain.CapaAction, error) {
	// The parent must exist; the reference is not ownership, a
	// deviation may carry any number of actions.
	if _, err := s.deviations.Get(ctx, fields.DeviationID); err != nil {
		return nil, fmt.Errorf("parent deviation %s: %w", fields.DeviationID, err)
	}

	now := s.now()
	year := now.Year()

	seq, err := s.sequences.Next(ctx, sequencePrefix, year)
	if err != nil {
		return nil, fmt.Errorf("failed to assign capa code: %w", err)
	}

	record := &store.CapaAction{
		ID:          uuid.NewString(),
		CapaID:      fmt.Sprintf("%s-%d-%03d", sequencePrefix, year, seq),
		DeviationID: fields.DeviationID,
		Title:       fields.Title,
		Description: fields.Description,
		Owner:       fields.Owner,
		DueDate:     fields.DueDate,
		Status:      string(domain.CapaStatusOpen),
		CreatedAt:   now,
	}

	if err := s.actions.Create(ctx, record); err != nil {
		return nil, err
	}
	return adapters.MapStoreCapaToDomain(record), nil
}

func (s *boardService) Get(ctx context.Context, id string) (*domain.CapaAction, error) {
	record, err := s.actions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return adapters.MapStoreCapaToDomain(record), nil
}

func (s *boardService) List(ctx context.Context, filter store.CapaFilter) ([]*domain.CapaAction, error) {
	records, err := s.actions.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	result := make([]*domain.CapaAction, 0, len(records))
	for _, r := range records {
		result = append(result, adapters.MapStoreCapaToDomain(r))
	}
	return result, nil
}

func (s *boardService) Transition(ctx context.Context, id string, target domain.CapaStatus, actor string) (*domain.CapaAction, error) {
	targetIdx, known := boardIndex[target]
	if !known {
		return nil, fmt.Errorf("unknown capa status %q: %w", target, domain.ErrInvalidTransition)
	}

	var lastErr error
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		record, err := s.actions.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		current := domain.CapaStatus(record.Status)
		if current == domain.CapaStatusClosedVerified {
			return nil, fmt.Errorf("capa %s is verified closed: %w", record.CapaID, domain.ErrTerminalStateViolation)
		}
		currentIdx, ok := boardIndex[current]
		if !ok {
			return nil, fmt.Errorf("capa %s has unknown status %q: %w", record.CapaID, current, domain.ErrInvalidTransition)
		}
		if targetIdx != currentIdx+1 {
			return nil, fmt.Errorf("capa %s cannot move %q -> %q: %w", record.CapaID, current, target, domain.ErrInvalidTransition)
		}

		from := record.Status
		record.Status = string(target)

		if err := s.actions.Update(ctx, record, record.Version); err != nil {
			if errors.Is(err, domain.ErrStaleWriteConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}

		entry := &store.AuditEntry{
			RecordID:  record.ID,
			FromState: from,
			ToState:   string(target),
			Actor:     actor,
			CreatedAt: s.now(),
		}
		if err := s.audit.Append(ctx, entry); err != nil {
			return nil, fmt.Errorf("transition applied but audit entry failed: %w", err)
		}

		action := adapters.MapStoreCapaToDomain(record)
		if target == domain.CapaStatusEffectivenessCheck {
			s.notifier.EffectivenessCheckRequired(ctx, action)
		}
		return action, nil
	}

	return nil, lastErr
}

func (s *boardService) Delete(ctx context.Context, id string) error {
	record, err := s.actions.Get(ctx, id)
	if err != nil {
		return err
	}
	if record.Status != string(domain.CapaStatusOpen) {
		return fmt.Errorf("capa %s is %s: %w", record.CapaID, record.Status, domain.ErrCannotDeleteInProgressAction)
	}
	return s.actions.Delete(ctx, id)
}
