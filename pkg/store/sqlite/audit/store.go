package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/qe-tools/quality-atlas/pkg/models/store"
)

// Store is the append-only transition log. Entries are never updated
// or deleted.
type Store interface {
	Append(ctx context.Context, e *store.AuditEntry) error
	ListByRecord(ctx context.Context, recordID string) ([]*store.AuditEntry, error)
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

func (s *defaultStore) Append(ctx context.Context, e *store.AuditEntry) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_entries (record_id, from_state, to_state, actor, override, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.RecordID, e.FromState, e.ToState, e.Actor, e.Override, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append audit entry for %s: %w", e.RecordID, err)
	}
	e.ID, _ = res.LastInsertId()
	return nil
}

func (s *defaultStore) ListByRecord(ctx context.Context, recordID string) ([]*store.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, record_id, from_state, to_state, actor, override, created_at
		FROM audit_entries WHERE record_id = ? ORDER BY id`, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries for %s: %w", recordID, err)
	}
	defer rows.Close()

	var entries []*store.AuditEntry
	for rows.Next() {
		var e store.AuditEntry
		if err := rows.Scan(&e.ID, &e.RecordID, &e.FromState, &e.ToState,
			&e.Actor, &e.Override, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
