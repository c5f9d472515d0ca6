/*
handlers.go - HTTP API handlers for the approval engine

PURPOSE:
  Exposes the decision engine via REST API. Handles HTTP request/response,
  JSON serialization, DTO validation, and delegates to domain logic.

ENDPOINTS:
  Calendar:
    GET  /api/calendar/business-days?start=&end=  Business day computation
    GET  /api/calendar/events                     List calendar events

  Requests:
    POST /api/requests/validate       Dry-run evaluation
    POST /api/requests                Submit a request
    GET  /api/requests/{id}           Request status
    POST /api/requests/{id}/resolve   Manager decision

  Escalations:
    GET  /api/escalations/pending     Requests awaiting a human
    POST /api/escalations             Escalate (fallback-by-recency)

  Employees:
    GET  /api/employees/{id}/balance  Leave balance view

  Audit:
    GET  /api/audit?entity_id=&actor_id=  Audit trail query

  Admin:
    POST /api/admin/calendar-events   Register holiday/blackout

ERROR HANDLING:
  Domain errors map to HTTP status via the engine taxonomy:
  - 400: ErrValidation, ErrInvalidRange
  - 404: ErrNotFound
  - 409: ErrInvalidTransition, ErrConflict
  - 500: ErrStorage and everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/warp/approval-engine/approval"
	"github.com/warp/approval-engine/engine"
	"github.com/warp/approval-engine/store/sqlite"
	"go.uber.org/zap"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   *sqlite.Store
	Service *approval.Service
	Logger  *zap.Logger
	Metrics *Metrics

	validate *validator.Validate
}

// NewHandler creates a new handler with the given dependencies.
func NewHandler(store *sqlite.Store, service *approval.Service, logger *zap.Logger, metrics *Metrics) *Handler {
	return &Handler{
		Store:    store,
		Service:  service,
		Logger:   logger,
		Metrics:  metrics,
		validate: validator.New(),
	}
}

// =============================================================================
// CALENDAR HANDLERS
// =============================================================================

// ComputeBusinessDays returns the business day breakdown for a range.
// GET /api/calendar/business-days?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *Handler) ComputeBusinessDays(w http.ResponseWriter, r *http.Request) {
	start, err := engine.ParseDate(r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start date (use YYYY-MM-DD)", err)
		return
	}
	end, err := engine.ParseDate(r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end date (use YYYY-MM-DD)", err)
		return
	}

	events, err := h.Store.CalendarEventsInRange(r.Context(), start, end)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	report, err := engine.ComputeBusinessDays(start, end, events)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	holidays := make([]string, len(report.Holidays))
	for i, d := range report.Holidays {
		holidays[i] = d.String()
	}

	writeJSON(w, http.StatusOK, BusinessDaysDTO{
		Start:        start.String(),
		End:          end.String(),
		BusinessDays: report.BusinessDays,
		WeekendDays:  report.WeekendDays,
		Holidays:     holidays,
	})
}

// ListCalendarEvents returns all calendar events.
func (h *Handler) ListCalendarEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Store.ListCalendarEvents(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]CalendarEventDTO, len(events))
	for i, e := range events {
		dtos[i] = toCalendarEventDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCalendarEvent registers a holiday or blackout period.
// POST /api/admin/calendar-events
func (h *Handler) CreateCalendarEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateCalendarEventRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	start, _ := engine.ParseDate(req.StartDate)
	end, _ := engine.ParseDate(req.EndDate)
	if start.After(end) {
		writeError(w, http.StatusBadRequest, "start_date after end_date", nil)
		return
	}

	event := engine.CalendarEvent{
		ID:        req.ID,
		Kind:      engine.EventKind(req.Kind),
		StartDate: start,
		EndDate:   end,
		Name:      req.Name,
	}
	if event.ID == "" {
		event.ID = newEventID()
	}

	if err := h.Store.SaveCalendarEvent(r.Context(), event); err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toCalendarEventDTO(event))
}

// =============================================================================
// REQUEST HANDLERS
// =============================================================================

// ValidateRequest runs the evaluator without persisting anything.
// POST /api/requests/validate
func (h *Handler) ValidateRequest(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequestRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	draft, err := h.toDraft(req)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	eval, err := h.Service.Validate(r.Context(), draft)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toEvaluationDTO(eval))
}

// SubmitRequest runs the full intake flow.
// POST /api/requests
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequestRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	draft, err := h.toDraft(req)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	record, eval, err := h.Service.SubmitRequest(r.Context(), draft)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.Metrics.RecordDecision(string(draft.Type), string(eval.Recommendation))

	writeJSON(w, http.StatusCreated, SubmitResponseDTO{
		Request:    toRequestDTO(record),
		Evaluation: toEvaluationDTO(eval),
	})
}

// GetRequestStatus returns a request by id.
// GET /api/requests/{id}
func (h *Handler) GetRequestStatus(w http.ResponseWriter, r *http.Request) {
	id := engine.RequestID(chi.URLParam(r, "id"))

	req, err := h.Service.GetRequestStatus(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// ResolveEscalation applies a manager decision.
// POST /api/requests/{id}/resolve
func (h *Handler) ResolveEscalation(w http.ResponseWriter, r *http.Request) {
	id := engine.RequestID(chi.URLParam(r, "id"))

	var req ResolveEscalationRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	record, err := h.Service.ResolveEscalation(r.Context(), id,
		approval.Decision(req.Decision), req.Reason, engine.EmployeeID(req.ActorID))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.Metrics.RecordResolution(req.Decision)

	writeJSON(w, http.StatusOK, toRequestDTO(record))
}

// =============================================================================
// ESCALATION HANDLERS
// =============================================================================

// ListPendingEscalations returns requests awaiting a human decision.
// GET /api/escalations/pending?manager_id=
func (h *Handler) ListPendingEscalations(w http.ResponseWriter, r *http.Request) {
	var managerID *engine.EmployeeID
	if raw := r.URL.Query().Get("manager_id"); raw != "" {
		mid := engine.EmployeeID(raw)
		managerID = &mid
	}

	requests, err := h.Service.ListPendingEscalations(r.Context(), managerID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]RequestDTO, len(requests))
	for i, req := range requests {
		dtos[i] = toRequestDTO(req)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// EscalateRequest routes an escalation, falling back by recency when the
// request id is missing or unknown.
// POST /api/escalations
func (h *Handler) EscalateRequest(w http.ResponseWriter, r *http.Request) {
	var req EscalateRequestRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	var requestID *engine.RequestID
	if req.RequestID != nil && *req.RequestID != "" {
		rid := engine.RequestID(*req.RequestID)
		requestID = &rid
	}

	result, err := h.Service.Escalate(r.Context(), requestID,
		engine.RequestType(req.Type), req.Reason, engine.EmployeeID(req.EmployeeID))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.Metrics.RecordEscalation(result.UsedFallback)

	writeJSON(w, http.StatusOK, EscalationResultDTO{
		Success:      result.Success,
		RequestID:    string(result.RequestID),
		ManagerID:    string(result.ManagerID),
		Message:      result.Message,
		UsedFallback: result.UsedFallback,
	})
}

// =============================================================================
// BALANCE AND AUDIT HANDLERS
// =============================================================================

// GetBalance returns the leave balance view for an employee.
// GET /api/employees/{id}/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id := engine.EmployeeID(chi.URLParam(r, "id"))

	balance, err := h.Store.GetLeaveBalance(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if balance == nil {
		writeError(w, http.StatusNotFound, "balance not found", nil)
		return
	}

	current, _ := balance.CurrentBalance.Value.Float64()
	accrued, _ := balance.TotalAccrued.Value.Float64()
	used, _ := balance.TotalUsed.Value.Float64()
	rollover, _ := balance.Rollover.Value.Float64()

	writeJSON(w, http.StatusOK, BalanceDTO{
		EmployeeID:     string(id),
		CurrentBalance: current,
		TotalAccrued:   accrued,
		TotalUsed:      used,
		Rollover:       rollover,
	})
}

// QueryAudit returns the audit trail, optionally filtered.
// GET /api/audit?entity_id=&entity_type=&actor_id=
func (h *Handler) QueryAudit(w http.ResponseWriter, r *http.Request) {
	var filter approval.AuditFilter
	if v := r.URL.Query().Get("entity_id"); v != "" {
		filter.EntityID = &v
	}
	if v := r.URL.Query().Get("entity_type"); v != "" {
		filter.EntityType = &v
	}
	if v := r.URL.Query().Get("actor_id"); v != "" {
		filter.ActorID = &v
	}

	entries, err := h.Store.QueryAudit(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toAuditEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

// decodeAndValidate decodes the JSON body into dst and runs the struct
// validator. Writes the error response itself and reports success.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed", err)
		return false
	}
	return true
}

// toDraft converts a submit body into an evaluator draft.
func (h *Handler) toDraft(req SubmitRequestRequest) (engine.RequestDraft, error) {
	draft := engine.RequestDraft{
		EmployeeID: engine.EmployeeID(req.EmployeeID),
		Type:       engine.RequestType(req.Type),
		Reason:     req.Reason,
	}

	switch draft.Type {
	case engine.TypePTO:
		start, err := engine.ParseDate(req.StartDate)
		if err != nil {
			return draft, &engine.ValidationError{Field: "start_date", Message: "use YYYY-MM-DD"}
		}
		end, err := engine.ParseDate(req.EndDate)
		if err != nil {
			return draft, &engine.ValidationError{Field: "end_date", Message: "use YYYY-MM-DD"}
		}
		draft.DateRange = &engine.DateRange{Start: start, End: end}
	case engine.TypeExpense:
		draft.Amount = engine.NewAmount(req.Amount, engine.UnitUSD)
		draft.Category = req.Category
	}

	return draft, nil
}

// writeDomainError maps the engine error taxonomy to HTTP status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case engine.IsClientError(err):
		status := http.StatusBadRequest
		if errors.Is(err, engine.ErrInvalidTransition) {
			status = http.StatusConflict
		}
		writeError(w, status, err.Error(), nil)
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, engine.ErrConflict):
		writeError(w, http.StatusConflict, err.Error(), nil)
	default:
		h.Logger.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error", err)
	}
}

func newEventID() string {
	return "evt-" + uuid.NewString()
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
