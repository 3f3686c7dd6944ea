package domain

import "time"

// AuditEntry records a single lifecycle transition. The log itself is
// append-only; this core only emits entries.
type AuditEntry struct {
	Timestamp time.Time
	RecordID  string
	FromState string
	ToState   string
	Actor     string
	Override  bool
}
