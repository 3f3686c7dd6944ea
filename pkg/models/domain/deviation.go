package domain

import "time"

type DeviationStatus string

const (
	DeviationStatusOpen               DeviationStatus = "open"
	DeviationStatusInvestigation      DeviationStatus = "investigation"
	DeviationStatusRCAProgress        DeviationStatus = "rca_progress"
	DeviationStatusCapaPlanning       DeviationStatus = "capa_planning"
	DeviationStatusEffectivenessCheck DeviationStatus = "effectiveness_check"
	DeviationStatusClosed             DeviationStatus = "closed"
)

type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityMajor    Severity = "major"
	SeverityCritical Severity = "critical"
)

type ComplianceStatus string

const (
	ComplianceStatusPending       ComplianceStatus = "pending"
	ComplianceStatusApproved      ComplianceStatus = "approved"
	ComplianceStatusNeedsRevision ComplianceStatus = "needs_revision"
)

// RPN holds the three ordinal risk factors. A zero factor means the
// record has not been classified yet.
type RPN struct {
	SeverityScore   int
	OccurrenceScore int
	DetectionScore  int
}

// Score is the product of the three factors, 0 while any factor is unset.
func (r RPN) Score() int {
	return r.SeverityScore * r.OccurrenceScore * r.DetectionScore
}

type Deviation struct {
	ID                    string
	DeviationID           string // DEV-<year>-<seq>, assigned once at creation
	BatchNumber           string
	EquipmentID           string
	ProductName           string
	Area                  string
	DateDiscovered        time.Time
	CreatedAt             time.Time
	Severity              Severity
	RPN                   RPN
	RPNScore              int
	ProblemStatement      string
	ComplianceCheckStatus ComplianceStatus
	Status                DeviationStatus
	ClosedAt              *time.Time
}

// DaysOpen is derived on every read, never stored. Once the record is
// closed the value is frozen at ClosedAt.
func (d Deviation) DaysOpen(now time.Time) int {
	end := now
	if d.ClosedAt != nil {
		end = *d.ClosedAt
	}
	days := int(end.Sub(d.DateDiscovered).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
