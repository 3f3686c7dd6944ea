package api

import "time"

type CreateDeviationRequest struct {
	BatchNumber    string `json:"batch_number"`
	EquipmentID    string `json:"equipment_id"`
	ProductName    string `json:"product_name"`
	Area           string `json:"area"`
	DateDiscovered string `json:"date_discovered"` // YYYY-MM-DD
	Severity       string `json:"severity"`
}

type UpdateDeviationRequest struct {
	BatchNumber *string `json:"batch_number,omitempty"`
	EquipmentID *string `json:"equipment_id,omitempty"`
	ProductName *string `json:"product_name,omitempty"`
	Area        *string `json:"area,omitempty"`
	Severity    *string `json:"severity,omitempty"`
}

type UpdateRiskRequest struct {
	SeverityScore   int `json:"severity_score"`
	OccurrenceScore int `json:"occurrence_score"`
	DetectionScore  int `json:"detection_score"`
}

type TransitionRequest struct {
	TargetStatus string `json:"target_status"`
	Actor        string `json:"actor"`
	Override     bool   `json:"override,omitempty"`
}

type Deviation struct {
	ID                    string     `json:"id"`
	DeviationID           string     `json:"deviation_id"`
	BatchNumber           string     `json:"batch_number"`
	EquipmentID           string     `json:"equipment_id"`
	ProductName           string     `json:"product_name"`
	Area                  string     `json:"area"`
	DateDiscovered        time.Time  `json:"date_discovered"`
	CreatedAt             time.Time  `json:"created_at"`
	Severity              string     `json:"severity"`
	SeverityScore         int        `json:"severity_score"`
	OccurrenceScore       int        `json:"occurrence_score"`
	DetectionScore        int        `json:"detection_score"`
	RPNScore              int        `json:"rpn_score"`
	RiskBand              string     `json:"risk_band"`
	ProblemStatement      string     `json:"problem_statement,omitempty"`
	ComplianceCheckStatus string     `json:"compliance_check_status"`
	Status                string     `json:"status"`
	ClosedAt              *time.Time `json:"closed_at,omitempty"`
	DaysOpen              int        `json:"days_open"`
}
