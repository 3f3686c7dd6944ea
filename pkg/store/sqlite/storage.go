package sqlite

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const DeviationTableSchema = `
	CREATE TABLE IF NOT EXISTS deviations (
		id VARCHAR PRIMARY KEY,
		deviation_id VARCHAR NOT NULL UNIQUE,
		batch_number VARCHAR NOT NULL DEFAULT '',
		equipment_id VARCHAR NOT NULL DEFAULT '',
		product_name VARCHAR NOT NULL DEFAULT '',
		area VARCHAR NOT NULL DEFAULT '',
		date_discovered TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL,
		severity VARCHAR NOT NULL,
		severity_score INTEGER NOT NULL DEFAULT 0,
		occurrence_score INTEGER NOT NULL DEFAULT 0,
		detection_score INTEGER NOT NULL DEFAULT 0,
		rpn_score INTEGER NOT NULL DEFAULT 0,
		problem_statement TEXT NOT NULL DEFAULT '',
		compliance_check_status VARCHAR NOT NULL DEFAULT 'pending',
		status VARCHAR NOT NULL DEFAULT 'open',
		closed_at TIMESTAMP NULL,
		version INTEGER NOT NULL DEFAULT 1
	);
	CREATE INDEX IF NOT EXISTS idx_deviations_status ON deviations(status);
	CREATE INDEX IF NOT EXISTS idx_deviations_discovered ON deviations(date_discovered);
`

const CapaTableSchema = `
	CREATE TABLE IF NOT EXISTS capa_actions (
		id VARCHAR PRIMARY KEY,
		capa_id VARCHAR NOT NULL UNIQUE,
		deviation_id VARCHAR NOT NULL,
		title VARCHAR NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		owner VARCHAR NOT NULL DEFAULT '',
		due_date TIMESTAMP NOT NULL,
		status VARCHAR NOT NULL DEFAULT 'open',
		created_at TIMESTAMP NOT NULL,
		version INTEGER NOT NULL DEFAULT 1
	);
	CREATE INDEX IF NOT EXISTS idx_capa_deviation ON capa_actions(deviation_id);
	CREATE INDEX IF NOT EXISTS idx_capa_status ON capa_actions(status);
`

const AuditTableSchema = `
	CREATE TABLE IF NOT EXISTS audit_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		record_id VARCHAR NOT NULL,
		from_state VARCHAR NOT NULL,
		to_state VARCHAR NOT NULL,
		actor VARCHAR NOT NULL,
		override INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audit_record ON audit_entries(record_id);
`

const SequenceTableSchema = `
	CREATE TABLE IF NOT EXISTS id_sequences (
		prefix VARCHAR NOT NULL,
		year INTEGER NOT NULL,
		seq INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (prefix, year)
	);
`

var bootQueries = []string{
	DeviationTableSchema,
	CapaTableSchema,
	AuditTableSchema,
	SequenceTableSchema,
}

type Settings struct {
	DbPath string
}

func NewDB(settings Settings) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", settings.DbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// sqlite handles one writer at a time; a single pooled connection
	// also keeps :memory: databases shared across callers.
	db.SetMaxOpenConns(1)

	for _, query := range bootQueries {
		if _, err := db.Exec(query); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	return db, nil
}
