package capa

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/qe-tools/quality-atlas/pkg/models/domain"
	"github.com/qe-tools/quality-atlas/pkg/models/store"
)

type Store interface {
	Create(ctx context.Context, c *store.CapaAction) error
	Get(ctx context.Context, id string) (*store.CapaAction, error)
	Update(ctx context.Context, c *store.CapaAction, expectedVersion int64) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter store.CapaFilter) ([]*store.CapaAction, error)
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

const capaColumns = `id, capa_id, deviation_id, title, description, owner, due_date, status, created_at, version`

func (s *defaultStore) Create(ctx context.Context, c *store.CapaAction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO capa_actions (`+capaColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		c.ID, c.CapaID, c.DeviationID, c.Title, c.Description, c.Owner,
		c.DueDate, c.Status, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert capa action %s: %w", c.CapaID, err)
	}
	c.Version = 1
	return nil
}

func (s *defaultStore) Get(ctx context.Context, id string) (*store.CapaAction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+capaColumns+` FROM capa_actions WHERE id = ?`, id)
	return scanCapa(row)
}

func (s *defaultStore) Update(ctx context.Context, c *store.CapaAction, expectedVersion int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE capa_actions SET
			title = ?, description = ?, owner = ?, due_date = ?, status = ?,
			version = version + 1
		WHERE id = ? AND version = ?`,
		c.Title, c.Description, c.Owner, c.DueDate, c.Status,
		c.ID, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update capa action %s: %w", c.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result for capa action %s: %w", c.ID, err)
	}
	if affected == 0 {
		if _, err := s.Get(ctx, c.ID); err != nil {
			return err
		}
		return fmt.Errorf("capa action %s at version %d: %w", c.ID, expectedVersion, domain.ErrStaleWriteConflict)
	}

	c.Version = expectedVersion + 1
	return nil
}

func (s *defaultStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM capa_actions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete capa action %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result for capa action %s: %w", id, err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *defaultStore) List(ctx context.Context, filter store.CapaFilter) ([]*store.CapaAction, error) {
	query := `SELECT ` + capaColumns + ` FROM capa_actions`
	var conditions []string
	var args []any

	if filter.DeviationID != "" {
		conditions = append(conditions, "deviation_id = ?")
		args = append(args, filter.DeviationID)
	}
	if len(filter.Statuses) > 0 {
		placeholders := strings.Repeat("?,", len(filter.Statuses))
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", placeholders[:len(placeholders)-1]))
		for _, st := range filter.Statuses {
			args = append(args, st)
		}
	}
	if filter.DueBefore != nil {
		conditions = append(conditions, "due_date < ?")
		args = append(args, *filter.DueBefore)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list capa actions: %w", err)
	}
	defer rows.Close()

	var records []*store.CapaAction
	for rows.Next() {
		c, err := scanCapa(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, c)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCapa(row scanner) (*store.CapaAction, error) {
	var c store.CapaAction
	err := row.Scan(
		&c.ID, &c.CapaID, &c.DeviationID, &c.Title, &c.Description, &c.Owner,
		&c.DueDate, &c.Status, &c.CreatedAt, &c.Version)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan capa action: %w", err)
	}
	return &c, nil
}
