package deviation

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/qe-tools/quality-atlas/pkg/models/domain"
	"github.com/qe-tools/quality-atlas/pkg/models/store"
)

// Store persists deviation records. Writes use optimistic concurrency:
// Update carries the version the record was read at and fails with
// domain.ErrStaleWriteConflict when the row moved on since.
type Store interface {
	Create(ctx context.Context, d *store.Deviation) error
	Get(ctx context.Context, id string) (*store.Deviation, error)
	Update(ctx context.Context, d *store.Deviation, expectedVersion int64) error
	List(ctx context.Context, filter store.DeviationFilter) ([]*store.Deviation, error)
}

type defaultStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &defaultStore{db: db}, nil
}

const deviationColumns = `id, deviation_id, batch_number, equipment_id, product_name, area,
	date_discovered, created_at, severity, severity_score, occurrence_score, detection_score,
	rpn_score, problem_statement, compliance_check_status, status, closed_at, version`

func (s *defaultStore) Create(ctx context.Context, d *store.Deviation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deviations (`+deviationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		d.ID, d.DeviationID, d.BatchNumber, d.EquipmentID, d.ProductName, d.Area,
		d.DateDiscovered, d.CreatedAt, d.Severity, d.SeverityScore, d.OccurrenceScore,
		d.DetectionScore, d.RPNScore, d.ProblemStatement, d.ComplianceCheckStatus,
		d.Status, d.ClosedAt)
	if err != nil {
		return fmt.Errorf("failed to insert deviation %s: %w", d.DeviationID, err)
	}
	d.Version = 1
	return nil
}

func (s *defaultStore) Get(ctx context.Context, id string) (*store.Deviation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+deviationColumns+` FROM deviations WHERE id = ?`, id)
	return scanDeviation(row)
}

func (s *defaultStore) Update(ctx context.Context, d *store.Deviation, expectedVersion int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE deviations SET
			batch_number = ?, equipment_id = ?, product_name = ?, area = ?,
			severity = ?, severity_score = ?, occurrence_score = ?, detection_score = ?,
			rpn_score = ?, problem_statement = ?, compliance_check_status = ?,
			status = ?, closed_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		d.BatchNumber, d.EquipmentID, d.ProductName, d.Area,
		d.Severity, d.SeverityScore, d.OccurrenceScore, d.DetectionScore,
		d.RPNScore, d.ProblemStatement, d.ComplianceCheckStatus,
		d.Status, d.ClosedAt,
		d.ID, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update deviation %s: %w", d.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result for deviation %s: %w", d.ID, err)
	}
	if affected == 0 {
		if _, err := s.Get(ctx, d.ID); err != nil {
			return err
		}
		return fmt.Errorf("deviation %s at version %d: %w", d.ID, expectedVersion, domain.ErrStaleWriteConflict)
	}

	d.Version = expectedVersion + 1
	return nil
}

func (s *defaultStore) List(ctx context.Context, filter store.DeviationFilter) ([]*store.Deviation, error) {
	query := `SELECT ` + deviationColumns + ` FROM deviations`
	var conditions []string
	var args []any

	if len(filter.Statuses) > 0 {
		placeholders := strings.Repeat("?,", len(filter.Statuses))
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", placeholders[:len(placeholders)-1]))
		for _, st := range filter.Statuses {
			args = append(args, st)
		}
	}
	if filter.DiscoveredAfter != nil {
		conditions = append(conditions, "date_discovered >= ?")
		args = append(args, *filter.DiscoveredAfter)
	}
	if filter.DiscoveredBefore != nil {
		conditions = append(conditions, "date_discovered <= ?")
		args = append(args, *filter.DiscoveredBefore)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list deviations: %w", err)
	}
	defer rows.Close()

	var records []*store.Deviation
	for rows.Next() {
		d, err := scanDeviation(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, d)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDeviation(row scanner) (*store.Deviation, error) {
	var d store.Deviation
	var closedAt sql.NullTime
	err := row.Scan(
		&d.ID, &d.DeviationID, &d.BatchNumber, &d.EquipmentID, &d.ProductName, &d.Area,
		&d.DateDiscovered, &d.CreatedAt, &d.Severity, &d.SeverityScore, &d.OccurrenceScore,
		&d.DetectionScore, &d.RPNScore, &d.ProblemStatement, &d.ComplianceCheckStatus,
		&d.Status, &closedAt, &d.Version)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan deviation: %w", err)
	}
	if closedAt.Valid {
		d.ClosedAt = &closedAt.Time
	}
	return &d, nil
}
