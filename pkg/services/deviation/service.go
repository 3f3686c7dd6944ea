package deviation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/qe-tools/quality-atlas/pkg/adapters"
	"github.com/qe-tools/quality-atlas/pkg/models/domain"
	"github.com/qe-tools/quality-atlas/pkg/models/store"
	"github.com/qe-tools/quality-atlas/pkg/services/risk"
	auditstore "github.com/qe-tools/quality-atlas/pkg/store/sqlite/audit"
	devstore "github.com/qe-tools/quality-atlas/pkg/store/sqlite/deviation"
	seqstore "github.com/qe-tools/quality-atlas/pkg/store/sqlite/sequence"
)

// stateOrder is the transition table: a normal-path move advances by
// exactly one entry. New states are added here, not in code.
var stateOrder = []domain.DeviationStatus{
	domain.DeviationStatusOpen,
	domain.DeviationStatusInvestigation,
	domain.DeviationStatusRCAProgress,
	domain.DeviationStatusCapaPlanning,
	domain.DeviationStatusEffectivenessCheck,
	domain.DeviationStatusClosed,
}

var stateIndex = func() map[domain.DeviationStatus]int {
	m := make(map[domain.DeviationStatus]int, len(stateOrder))
	for i, s := range stateOrder {
		m[s] = i
	}
	return m
}()

// maxWriteAttempts bounds the re-read/re-validate loop on stale writes.
const maxWriteAttempts = 3

const sequencePrefix = "DEV"

type CreateFields struct {
	BatchNumber    string
	EquipmentID    string
	ProductName    string
	Area           string
	DateDiscovered time.Time
	Severity       domain.Severity
}

type UpdateFields struct {
	BatchNumber *string
	EquipmentID *string
	ProductName *string
	Area        *string
	Severity    *domain.Severity
}

type Service interface {
	Create(ctx context.Context, fields CreateFields) (*domain.Deviation, error)
	Get(ctx context.Context, id string) (*domain.Deviation, error)
	List(ctx context.Context, filter store.DeviationFilter) ([]*domain.Deviation, error)
	Update(ctx context.Context, id string, fields UpdateFields) (*domain.Deviation, error)
	UpdateRisk(ctx context.Context, id string, severity, occurrence, detection int) (*domain.Deviation, error)
	Transition(ctx context.Context, id string, target domain.DeviationStatus, actor string, override bool) (*domain.Deviation, error)
	SetProblemStatement(ctx context.Context, id, statement string) (*domain.Deviation, error)
	SetComplianceStatus(ctx context.Context, id string, status domain.ComplianceStatus) (*domain.Deviation, error)
}

type lifecycleService struct {
	deviations devstore.Store
	sequences  seqstore.Store
	audit      auditstore.Store
	now        func() time.Time
}

func NewService(deviations devstore.Store, sequences seqstore.Store, audit auditstore.Store) (Service, error) {
	if deviations == nil || sequences == nil || audit == nil {
		return nil, fmt.Errorf("deviation service requires deviation, sequence and audit stores")
	}
	return &lifecycleService{
		deviations: deviations,
		sequences:  sequences,
		audit:      audit,
		now:        time.Now,
	}, nil
}

func (s *lifecycleService) Create(ctx context.Context, fields CreateFields) (*domain.Deviation, error) {
	now := s.now()
	year := now.Year()

	seq, err := s.sequences.Next(ctx, sequencePrefix, year)
	if err != nil {
		return nil, fmt.Errorf("failed to assign deviation code: %w", err)
	}

	record := &store.Deviation{
		ID:                    uuid.NewString(),
		DeviationID:           fmt.Sprintf("%s-%d-%03d", sequencePrefix, year, seq),
		BatchNumber:           fields.BatchNumber,
		EquipmentID:           fields.EquipmentID,
		ProductName:           fields.ProductName,
		Area:                  fields.Area,
		DateDiscovered:        fields.DateDiscovered,
		CreatedAt:             now,
		Severity:              string(fields.Severity),
		ComplianceCheckStatus: string(domain.ComplianceStatusPending),
		Status:                string(domain.DeviationStatusOpen),
	}

	if err := s.deviations.Create(ctx, record); err != nil {
		return nil, err
	}
	return adapters.MapStoreDeviationToDomain(record), nil
}

func (s *lifecycleService) Get(ctx context.Context, id string) (*domain.Deviation, error) {
	record, err := s.deviations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return adapters.MapStoreDeviationToDomain(record), nil
}

func (s *lifecycleService) List(ctx context.Context, filter store.DeviationFilter) ([]*domain.Deviation, error) {
	records, err := s.deviations.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	result := make([]*domain.Deviation, 0, len(records))
	for _, r := range records {
		result = append(result, adapters.MapStoreDeviationToDomain(r))
	}
	return result, nil
}

func (s *lifecycleService) Update(ctx context.Context, id string, fields UpdateFields) (*domain.Deviation, error) {
	return s.mutate(ctx, id, func(record *store.Deviation) error {
		if fields.BatchNumber != nil {
			record.BatchNumber = *fields.BatchNumber
		}
		if fields.EquipmentID != nil {
			record.EquipmentID = *fields.EquipmentID
		}
		if fields.ProductName != nil {
			record.ProductName = *fields.ProductName
		}
		if fields.Area != nil {
			record.Area = *fields.Area
		}
		if fields.Severity != nil {
			record.Severity = string(*fields.Severity)
		}
		return nil
	})
}

func (s *lifecycleService) UpdateRisk(ctx context.Context, id string, severity, occurrence, detection int) (*domain.Deviation, error) {
	score, err := risk.Score(severity, occurrence, detection)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, id, func(record *store.Deviation) error {
		record.SeverityScore = severity
		record.OccurrenceScore = occurrence
		record.DetectionScore = detection
		record.RPNScore = score
		return nil
	})
}

func (s *lifecycleService) SetProblemStatement(ctx context.Context, id, statement string) (*domain.Deviation, error) {
	return s.mutate(ctx, id, func(record *store.Deviation) error {
		record.ProblemStatement = statement
		return nil
	})
}

func (s *lifecycleService) SetComplianceStatus(ctx context.Context, id string, status domain.ComplianceStatus) (*domain.Deviation, error) {
	return s.mutate(ctx, id, func(record *store.Deviation) error {
		record.ComplianceCheckStatus = string(status)
		return nil
	})
}

func (s *lifecycleService) Transition(ctx context.Context, id string, target domain.DeviationStatus, actor string, override bool) (*domain.Deviation, error) {
	targetIdx, known := stateIndex[target]
	if !known {
		return nil, fmt.Errorf("unknown deviation status %q: %w", target, domain.ErrInvalidTransition)
	}

	var lastErr error
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		record, err := s.deviations.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		// Guards run against the state persisted right now, not a
		// client-cached copy.
		if err := validateTransition(record, target, targetIdx, override); err != nil {
			return nil, err
		}

		from := record.Status
		record.Status = string(target)
		if target == domain.DeviationStatusClosed && record.ClosedAt == nil {
			closedAt := s.now()
			record.ClosedAt = &closedAt
		}

		if err := s.deviations.Update(ctx, record, record.Version); err != nil {
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
			Override:  override,
			CreatedAt: s.now(),
		}
		if err := s.audit.Append(ctx, entry); err != nil {
			return nil, fmt.Errorf("transition applied but audit entry failed: %w", err)
		}

		return adapters.MapStoreDeviationToDomain(record), nil
	}

	return nil, lastErr
}

func validateTransition(record *store.Deviation, target domain.DeviationStatus, targetIdx int, override bool) error {
	current := domain.DeviationStatus(record.Status)
	if current == domain.DeviationStatusClosed {
		return fmt.Errorf("deviation %s is closed: %w", record.DeviationID, domain.ErrTerminalStateViolation)
	}

	currentIdx, known := stateIndex[current]
	if !known {
		return fmt.Errorf("deviation %s has unknown status %q: %w", record.DeviationID, current, domain.ErrInvalidTransition)
	}

	if override {
		// Administrative correction: ordering and guards do not apply,
		// the move is only recorded in the audit log.
		if current == target {
			return fmt.Errorf("deviation %s already in %q: %w", record.DeviationID, target, domain.ErrInvalidTransition)
		}
		return nil
	}

	if targetIdx != currentIdx+1 {
		return fmt.Errorf("deviation %s cannot move %q -> %q: %w", record.DeviationID, current, target, domain.ErrInvalidTransition)
	}
	if targetIdx >= stateIndex[domain.DeviationStatusRCAProgress] &&
		record.ComplianceCheckStatus != string(domain.ComplianceStatusApproved) {
		return fmt.Errorf("deviation %s compliance status %q: %w", record.DeviationID, record.ComplianceCheckStatus, domain.ErrComplianceGateNotSatisfied)
	}
	if targetIdx >= stateIndex[domain.DeviationStatusCapaPlanning] && record.RPNScore <= 0 {
		return fmt.Errorf("deviation %s has no risk classification: %w", record.DeviationID, domain.ErrClassificationIncomplete)
	}

	return nil
}

// mutate applies a field-level edit under the optimistic concurrency
// loop. Closed records are immutable.
func (s *lifecycleService) mutate(ctx context.Context, id string, apply func(*store.Deviation) error) (*domain.Deviation, error) {
	var lastErr error
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		record, err := s.deviations.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if record.Status == string(domain.DeviationStatusClosed) {
			return nil, fmt.Errorf("deviation %s is closed: %w", record.DeviationID, domain.ErrTerminalStateViolation)
		}

		if err := apply(record); err != nil {
			return nil, err
		}

		if err := s.deviations.Update(ctx, record, record.Version); err != nil {
			if errors.Is(err, domain.ErrStaleWriteConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return adapters.MapStoreDeviationToDomain(record), nil
	}
	return nil, lastErr
}
