package api

import "time"

type CreateCapaRequest struct {
	DeviationID string `json:"deviation_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Owner       string `json:"owner"`
	DueDate     string `json:"due_date"` // YYYY-MM-DD
}

type CapaTransitionRequest struct {
	TargetStatus string `json:"target_status"`
}

type CapaAction struct {
	ID          string    `json:"id"`
	CapaID      string    `json:"capa_id"`
	DeviationID string    `json:"deviation_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Owner       string    `json:"owner"`
	DueDate     time.Time `json:"due_date"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	IsOverdue   bool      `json:"is_overdue"`
}
