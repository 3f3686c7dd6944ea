package sequence

import (
	"context"
	"database/sql"
	"fmt"
)

// Store hands out per-prefix, per-year monotonic sequence numbers used
// to mint human-readable record codes (DEV-2026-001, CAPA-2026-014).
type Store interface {
	Next(ctx context.Context, prefix string, year int) (int, error)
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

func (s *defaultStore) Next(ctx context.Context, prefix string, year int) (int, error) {
	var seq int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO id_sequences (prefix, year, seq) VALUES (?, ?, 1)
		ON CONFLICT(prefix, year) DO UPDATE SET seq = seq + 1
		RETURNING seq`, prefix, year).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("failed to advance sequence %s-%d: %w", prefix, year, err)
	}
	return seq, nil
}
