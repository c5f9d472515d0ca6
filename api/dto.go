/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request bodies carry go-playground/validator struct tags; handlers run
  the validator before touching domain logic. Domain-level validation
  (date semantics, balance checks) stays in the engine.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/approval-engine/approval"
	"github.com/warp/approval-engine/engine"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// SubmitRequestRequest is the body for POST /api/requests.
type SubmitRequestRequest struct {
	EmployeeID string  `json:"employee_id" validate:"required"`
	Type       string  `json:"type" validate:"required,oneof=pto expense"`
	StartDate  string  `json:"start_date,omitempty" validate:"required_if=Type pto,omitempty,datetime=2006-01-02"`
	EndDate    string  `json:"end_date,omitempty" validate:"required_if=Type pto,omitempty,datetime=2006-01-02"`
	Amount     float64 `json:"amount,omitempty" validate:"required_if=Type expense,omitempty,gt=0"`
	Category   string  `json:"category,omitempty" validate:"required_if=Type expense"`
	Reason     string  `json:"reason,omitempty"`
}

// EscalateRequestRequest is the body for POST /api/escalations.
type EscalateRequestRequest struct {
	RequestID  *string `json:"request_id,omitempty"`
	Type       string  `json:"type" validate:"required,oneof=pto expense"`
	Reason     string  `json:"reason" validate:"required"`
	EmployeeID string  `json:"employee_id" validate:"required"`
}

// ResolveEscalationRequest is the body for POST /api/requests/{id}/resolve.
type ResolveEscalationRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve deny"`
	Reason   string `json:"reason,omitempty"`
	ActorID  string `json:"actor_id" validate:"required"`
}

// CreateCalendarEventRequest is the body for POST /api/admin/calendar-events.
type CreateCalendarEventRequest struct {
	ID        string `json:"id,omitempty"`
	Kind      string `json:"kind" validate:"required,oneof=holiday blackout"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Name      string `json:"name" validate:"required"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// BusinessDaysDTO is the response for GET /api/calendar/business-days.
type BusinessDaysDTO struct {
	Start        string   `json:"start"`
	End          string   `json:"end"`
	BusinessDays int      `json:"business_days"`
	WeekendDays  int      `json:"weekend_days"`
	Holidays     []string `json:"holidays"`
}

// EvaluationDTO is the evaluator result in API responses.
type EvaluationDTO struct {
	IsValid            bool     `json:"is_valid"`
	CanAutoApprove     bool     `json:"can_auto_approve"`
	RequiresEscalation bool     `json:"requires_escalation"`
	Violations         []string `json:"violations"`
	Recommendation     string   `json:"recommendation"`
	Quantity           float64  `json:"quantity"`
	Threshold          float64  `json:"threshold"`
}

// RequestDTO represents a request record in API responses.
type RequestDTO struct {
	ID               string  `json:"id"`
	EmployeeID       string  `json:"employee_id"`
	ManagerID        *string `json:"manager_id,omitempty"`
	Type             string  `json:"type"`
	StartDate        string  `json:"start_date,omitempty"`
	EndDate          string  `json:"end_date,omitempty"`
	Amount           float64 `json:"amount,omitempty"`
	Category         string  `json:"category,omitempty"`
	Status           string  `json:"status"`
	EscalationReason *string `json:"escalation_reason,omitempty"`
	Reason           string  `json:"reason,omitempty"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

// SubmitResponseDTO is the response after submitting a request.
type SubmitResponseDTO struct {
	Request    RequestDTO    `json:"request"`
	Evaluation EvaluationDTO `json:"evaluation"`
}

// EscalationResultDTO is the escalation router's response.
type EscalationResultDTO struct {
	Success      bool   `json:"success"`
	RequestID    string `json:"request_id"`
	ManagerID    string `json:"manager_id"`
	Message      string `json:"message"`
	UsedFallback bool   `json:"used_fallback"`
}

// BalanceDTO is the leave balance view.
type BalanceDTO struct {
	EmployeeID     string  `json:"employee_id"`
	CurrentBalance float64 `json:"current_balance"`
	TotalAccrued   float64 `json:"total_accrued"`
	TotalUsed      float64 `json:"total_used"`
	Rollover       float64 `json:"rollover"`
}

// AuditEntryDTO represents an audit entry.
type AuditEntryDTO struct {
	ID         string         `json:"id"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Action     string         `json:"action"`
	ActorID    string         `json:"actor_id"`
	ActorType  string         `json:"actor_type"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  string         `json:"created_at"`
}

// CalendarEventDTO represents a calendar event.
type CalendarEventDTO struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Name      string `json:"name"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toRequestDTO(req *approval.Request) RequestDTO {
	dto := RequestDTO{
		ID:               string(req.ID),
		EmployeeID:       string(req.EmployeeID),
		Type:             string(req.Type),
		Category:         req.Category,
		Status:           string(req.Status),
		EscalationReason: req.EscalationReason,
		Reason:           req.Reason,
		CreatedAt:        req.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        req.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if req.ManagerID != nil {
		mid := string(*req.ManagerID)
		dto.ManagerID = &mid
	}
	if req.StartDate != nil {
		dto.StartDate = req.StartDate.String()
	}
	if req.EndDate != nil {
		dto.EndDate = req.EndDate.String()
	}
	if req.Type == engine.TypeExpense {
		dto.Amount, _ = req.Amount.Value.Float64()
	}
	return dto
}

func toEvaluationDTO(eval *engine.Evaluation) EvaluationDTO {
	quantity, _ := eval.Quantity.Value.Float64()
	threshold, _ := eval.Threshold.Value.Float64()

	violations := make([]string, len(eval.Violations))
	for i, v := range eval.Violations {
		violations[i] = string(v)
	}

	return EvaluationDTO{
		IsValid:            eval.IsValid,
		CanAutoApprove:     eval.CanAutoApprove,
		RequiresEscalation: eval.RequiresEscalation,
		Violations:         violations,
		Recommendation:     string(eval.Recommendation),
		Quantity:           quantity,
		Threshold:          threshold,
	}
}

func toAuditEntryDTO(entry approval.AuditEntry) AuditEntryDTO {
	return AuditEntryDTO{
		ID:         entry.ID,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Action:     string(entry.Action),
		ActorID:    entry.ActorID,
		ActorType:  string(entry.ActorType),
		Details:    entry.Details,
		CreatedAt:  entry.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toCalendarEventDTO(e engine.CalendarEvent) CalendarEventDTO {
	return CalendarEventDTO{
		ID:        e.ID,
		Kind:      string(e.Kind),
		StartDate: e.StartDate.String(),
		EndDate:   e.EndDate.String(),
		Name:      e.Name,
	}
}
