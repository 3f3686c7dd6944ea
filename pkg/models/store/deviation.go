package store

import "time"

// Deviation is the persisted shape of a deviation record. Version backs
// optimistic concurrency: every successful write increments it, and an
// update must carry the version the record was read at.
type Deviation struct {
	ID                    string
	DeviationID           string
	BatchNumber           string
	EquipmentID           string
	ProductName           string
	Area                  string
	DateDiscovered        time.Time
	CreatedAt             time.Time
	Severity              string
	SeverityScore         int
	OccurrenceScore       int
	DetectionScore        int
	RPNScore              int
	ProblemStatement      string
	ComplianceCheckStatus string
	Status                string
	ClosedAt              *time.Time
	Version               int64
}

type DeviationFilter struct {
	Statuses         []string
	DiscoveredAfter  *time.Time
	DiscoveredBefore *time.Time
}
