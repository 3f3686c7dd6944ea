package adapters

import (
	"time"

	"github.com/qe-tools/quality-atlas/pkg/models/api"
	"github.com/qe-tools/quality-atlas/pkg/models/domain"
	"github.com/qe-tools/quality-atlas/pkg/models/store"
)

func MapStoreCapaToDomain(c *store.CapaAction) *domain.CapaAction {
	if c == nil {
		return nil
	}

	return &domain.CapaAction{
		ID:          c.ID,
		CapaID:      c.CapaID,
		DeviationID: c.DeviationID,
		Title:       c.Title,
		Description: c.Description,
		Owner:       c.Owner,
		DueDate:     c.DueDate,
		Status:      domain.CapaStatus(c.Status),
		CreatedAt:   c.CreatedAt,
	}
}

func MapDomainCapaToStore(c *domain.CapaAction) *store.CapaAction {
	return &store.CapaAction{
		ID:          c.ID,
		CapaID:      c.CapaID,
		DeviationID: c.DeviationID,
		Title:       c.Title,
		Description: c.Description,
		Owner:       c.Owner,
		DueDate:     c.DueDate,
		Status:      string(c.Status),
		CreatedAt:   c.CreatedAt,
	}
}

func MapDomainCapaToAPI(c *domain.CapaAction, now time.Time) api.CapaAction {
	return api.CapaAction{
		ID:          c.ID,
		CapaID:      c.CapaID,
		DeviationID: c.DeviationID,
		Title:       c.Title,
		Description: c.Description,
		Owner:       c.Owner,
		DueDate:     c.DueDate,
		Status:      string(c.Status),
		CreatedAt:   c.CreatedAt,
		IsOverdue:   c.IsOverdue(now),
	}
}
