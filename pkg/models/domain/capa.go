package domain

import "time"

type CapaStatus string

const (
	CapaStatusOpen               CapaStatus = "open"
	CapaStatusInProgress         CapaStatus = "in_progress"
	CapaStatusEffectivenessCheck CapaStatus = "effectiveness_check"
	CapaStatusClosedVerified     CapaStatus = "closed_verified"
)

type CapaAction struct {
	ID          string
	CapaID      string // CAPA-<year>-<seq>
	DeviationID string // parent deviation reference, not ownership
	Title       string
	Description string
	Owner       string
	DueDate     time.Time
	Status      CapaStatus
	CreatedAt   time.Time
}

// IsOverdue is informational only and never blocks a transition.
func (c CapaAction) IsOverdue(now time.Time) bool {
	return c.DueDate.Before(now) && c.Status != CapaStatusClosedVerified
}
