package store

import "time"

type CapaAction struct {
	ID          string
	CapaID      string
	DeviationID string
	Title       string
	Description string
	Owner       string
	DueDate     time.Time
	Status      string
	CreatedAt   time.Time
	Version     int64
}

type CapaFilter struct {
	DeviationID string
	Statuses    []string
	DueBefore   *time.Time
}
