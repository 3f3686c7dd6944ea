package adapters

import (
	"time"

	"github.com/qe-tools/quality-atlas/pkg/models/api"
	"github.com/qe-tools/quality-atlas/pkg/models/domain"
	"github.com/qe-tools/quality-atlas/pkg/models/store"
	"github.com/qe-tools/quality-atlas/pkg/services/risk"
)

func MapStoreDeviationToDomain(d *store.Deviation) *domain.Deviation {
	if d == nil {
		return nil
	}

	return &domain.Deviation{
		ID:             d.ID,
		DeviationID:    d.DeviationID,
		BatchNumber:    d.BatchNumber,
		EquipmentID:    d.EquipmentID,
		ProductName:    d.ProductName,
		Area:           d.Area,
		DateDiscovered: d.DateDiscovered,
		CreatedAt:      d.CreatedAt,
		Severity:       domain.Severity(d.Severity),
		RPN: domain.RPN{
			SeverityScore:   d.SeverityScore,
			OccurrenceScore: d.OccurrenceScore,
			DetectionScore:  d.DetectionScore,
		},
		RPNScore:              d.RPNScore,
		ProblemStatement:      d.ProblemStatement,
		ComplianceCheckStatus: domain.ComplianceStatus(d.ComplianceCheckStatus),
		Status:                domain.DeviationStatus(d.Status),
		ClosedAt:              d.ClosedAt,
	}
}

func MapDomainDeviationToStore(d *domain.Deviation) *store.Deviation {
	return &store.Deviation{
		ID:                    d.ID,
		DeviationID:           d.DeviationID,
		BatchNumber:           d.BatchNumber,
		EquipmentID:           d.EquipmentID,
		ProductName:           d.ProductName,
		Area:                  d.Area,
		DateDiscovered:        d.DateDiscovered,
		CreatedAt:             d.CreatedAt,
		Severity:              string(d.Severity),
		SeverityScore:         d.RPN.SeverityScore,
		OccurrenceScore:       d.RPN.OccurrenceScore,
		DetectionScore:        d.RPN.DetectionScore,
		RPNScore:              d.RPNScore,
		ProblemStatement:      d.ProblemStatement,
		ComplianceCheckStatus: string(d.ComplianceCheckStatus),
		Status:                string(d.Status),
		ClosedAt:              d.ClosedAt,
	}
}

func MapDomainDeviationToAPI(d *domain.Deviation, now time.Time) api.Deviation {
	return api.Deviation{
		ID:                    d.ID,
		DeviationID:           d.DeviationID,
		BatchNumber:           d.BatchNumber,
		EquipmentID:           d.EquipmentID,
		ProductName:           d.ProductName,
		Area:                  d.Area,
		DateDiscovered:        d.DateDiscovered,
		CreatedAt:             d.CreatedAt,
		Severity:              string(d.Severity),
		SeverityScore:         d.RPN.SeverityScore,
		OccurrenceScore:       d.RPN.OccurrenceScore,
		DetectionScore:        d.RPN.DetectionScore,
		RPNScore:              d.RPNScore,
		RiskBand:              string(risk.BandFor(d.RPNScore)),
		ProblemStatement:      d.ProblemStatement,
		ComplianceCheckStatus: string(d.ComplianceCheckStatus),
		Status:                string(d.Status),
		ClosedAt:              d.ClosedAt,
		DaysOpen:              d.DaysOpen(now),
	}
}
