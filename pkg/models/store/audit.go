package store

import "time"

type AuditEntry struct {
	ID        int64
	RecordID  string
	FromState string
	ToState   string
	Actor     string
	Override  bool
	CreatedAt time.Time
}
