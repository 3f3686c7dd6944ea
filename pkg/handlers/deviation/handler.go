package deviation

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/qe-tools/quality-atlas/pkg/adapters"
	"github.com/qe-tools/quality-atlas/pkg/models/api"
	"github.com/qe-tools/quality-atlas/pkg/models/domain"
	"github.com/qe-tools/quality-atlas/pkg/models/store"
	"github.com/qe-tools/quality-atlas/pkg/services/analytics"
	capasvc "github.com/qe-tools/quality-atlas/pkg/services/capa"
	"github.com/qe-tools/quality-atlas/pkg/services/compliance"
	devsvc "github.com/qe-tools/quality-atlas/pkg/services/deviation"
	"github.com/qe-tools/quality-atlas/pkg/services/problem"
)

const dateLayout = "2006-01-02"

type Handler struct {
	deviations devsvc.Service
	actions    capasvc.Service
	analytics  analytics.Service
	generator  problem.Generator
	checker    compliance.Checker
	targetDays int
}

func NewHandler(
	deviations devsvc.Service,
	actions capasvc.Service,
	analyticsSvc analytics.Service,
	generator problem.Generator,
	checker compliance.Checker,
	targetDays int,
) *Handler {
	return &Handler{
		deviations: deviations,
		actions:    actions,
		analytics:  analyticsSvc,
		generator:  generator,
		checker:    checker,
		targetDays: targetDays,
	}
}

func (h *Handler) CreateDeviation(w http.ResponseWriter, r *http.Request) {
	var req api.CreateDeviationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	discovered, err := time.Parse(dateLayout, req.DateDiscovered)
	if err != nil {
		http.Error(w, "invalid 'date_discovered' format. Expected format: YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	d, err := h.deviations.Create(r.Context(), devsvc.CreateFields{
		BatchNumber:    req.BatchNumber,
		EquipmentID:    req.EquipmentID,
		ProductName:    req.ProductName,
		Area:           req.Area,
		DateDiscovered: discovered,
		Severity:       domain.Severity(req.Severity),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	encodeDeviation(w, r, d)
}

func (h *Handler) ListDeviations(w http.ResponseWriter, r *http.Request) {
	var filter store.DeviationFilter
	if status := r.URL.Query().Get("status"); status != "" {
		filter.Statuses = []string{status}
	}

	records, err := h.deviations.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	now := time.Now()
	response := make([]api.Deviation, 0, len(records))
	for _, d := range records {
		response = append(response, adapters.MapDomainDeviationToAPI(d, now))
	}
	encode(w, r, response)
}

func (h *Handler) GetDeviation(w http.ResponseWriter, r *http.Request) {
	d, err := h.deviations.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	encodeDeviation(w, r, d)
}

func (h *Handler) UpdateDeviation(w http.ResponseWriter, r *http.Request) {
	var req api.UpdateDeviationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var severity *domain.Severity
	if req.Severity != nil {
		s := domain.Severity(*req.Severity)
		severity = &s
	}

	d, err := h.deviations.Update(r.Context(), chi.URLParam(r, "id"), devsvc.UpdateFields{
		BatchNumber: req.BatchNumber,
		EquipmentID: req.EquipmentID,
		ProductName: req.ProductName,
		Area:        req.Area,
		Severity:    severity,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	encodeDeviation(w, r, d)
}

func (h *Handler) UpdateRisk(w http.ResponseWriter, r *http.Request) {
	var req api.UpdateRiskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	d, err := h.deviations.UpdateRisk(r.Context(), chi.URLParam(r, "id"),
		req.SeverityScore, req.OccurrenceScore, req.DetectionScore)
	if err != nil {
		writeError(w, r, err)
		return
	}
	encodeDeviation(w, r, d)
}

func (h *Handler) TransitionDeviation(w http.ResponseWriter, r *http.Request) {
	var req api.TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	d, err := h.deviations.Transition(r.Context(), chi.URLParam(r, "id"),
		domain.DeviationStatus(req.TargetStatus), req.Actor, req.Override)
	if err != nil {
		writeError(w, r, err)
		return
	}
	encodeDeviation(w, r, d)
}

// GenerateProblemStatement asks the text-generation collaborator for a
// problem statement and stores the result. Best-effort: a collaborator
// failure maps to 503 and the caller may retry.
func (h *Handler) GenerateProblemStatement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	d, err := h.deviations.Get(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	statement, err := h.generator.Generate(ctx, d)
	if err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := h.deviations.SetProblemStatement(ctx, id, statement)
	if err != nil {
		writeError(w, r, err)
		return
	}
	encodeDeviation(w, r, updated)
}

func (h *Handler) RunComplianceCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	d, err := h.deviations.Get(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	verdict, err := h.checker.Check(ctx, d)
	if err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := h.deviations.SetComplianceStatus(ctx, id, verdict)
	if err != nil {
		writeError(w, r, err)
		return
	}
	encodeDeviation(w, r, updated)
}

func (h *Handler) CreateCapaAction(w http.ResponseWriter, r *http.Request) {
	var req api.CreateCapaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	dueDate, err := time.Parse(dateLayout, req.DueDate)
	if err != nil {
		http.Error(w, "invalid 'due_date' format. Expected format: YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	action, err := h.actions.Create(r.Context(), capasvc.CreateFields{
		DeviationID: req.DeviationID,
		Title:       req.Title,
		Description: req.Description,
		Owner:       req.Owner,
		DueDate:     dueDate,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	encodeCapa(w, r, action)
}

func (h *Handler) ListCapaActions(w http.ResponseWriter, r *http.Request) {
	filter := store.CapaFilter{
		DeviationID: r.URL.Query().Get("deviation_id"),
	}
	if status := r.URL.Query().Get("status"); status != "" {
		filter.Statuses = []string{status}
	}

	records, err := h.actions.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	now := time.Now()
	response := make([]api.CapaAction, 0, len(records))
	for _, a := range records {
		response = append(response, adapters.MapDomainCapaToAPI(a, now))
	}
	encode(w, r, response)
}

func (h *Handler) TransitionCapaAction(w http.ResponseWriter, r *http.Request) {
	var req api.CapaTransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	action, err := h.actions.Transition(r.Context(), chi.URLParam(r, "id"),
		domain.CapaStatus(req.TargetStatus), actorFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	encodeCapa(w, r, action)
}

func (h *Handler) DeleteCapaAction(w http.ResponseWriter, r *http.Request) {
	if err := h.actions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetAnalyticsSnapshot(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	snapshot, err := h.analytics.Snapshot(r.Context(), window, h.targetDays)
	if err != nil {
		writeError(w, r, err)
		return
	}
	encode(w, r, adapters.MapDomainSnapshotToAPI(snapshot))
}

func parseWindow(r *http.Request) (domain.Window, error) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")

	// default window: trailing 90 days
	end := time.Now()
	start := end.AddDate(0, 0, -90)

	if from != "" {
		parsed, err := time.Parse(dateLayout, from)
		if err != nil {
			return domain.Window{}, errors.New("invalid 'from' date format. Expected format: YYYY-MM-DD")
		}
		start = parsed
	}
	if to != "" {
		parsed, err := time.Parse(dateLayout, to)
		if err != nil {
			return domain.Window{}, errors.New("invalid 'to' date format. Expected format: YYYY-MM-DD")
		}
		end = parsed
	}
	return domain.Window{Start: start, End: end}, nil
}

func actorFrom(r *http.Request) string {
	if actor := r.Header.Get("X-Actor"); actor != "" {
		return actor
	}
	return "system"
}

func encodeDeviation(w http.ResponseWriter, r *http.Request, d *domain.Deviation) {
	encode(w, r, adapters.MapDomainDeviationToAPI(d, time.Now()))
}

func encodeCapa(w http.ResponseWriter, r *http.Request, a *domain.CapaAction) {
	encode(w, r, adapters.MapDomainCapaToAPI(a, time.Now()))
}

func encode(w http.ResponseWriter, r *http.Request, payload any) {
	logger := zerolog.Ctx(r.Context())
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error().Err(err).Msg("failed to encode response")
	}
}

// writeError maps domain error kinds to HTTP statuses so API callers
// can branch the same way in-process callers do with errors.Is.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	logger := zerolog.Ctx(r.Context())

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidScoreRange):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrComplianceGateNotSatisfied),
		errors.Is(err, domain.ErrClassificationIncomplete),
		errors.Is(err, domain.ErrCannotDeleteInProgressAction):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrTerminalStateViolation),
		errors.Is(err, domain.ErrStaleWriteConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrExternalServiceUnavailable):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Msg("request failed")
	}
	http.Error(w, err.Error(), status)
}
