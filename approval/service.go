/*
service.go - Request lifecycle orchestration

PURPOSE:
  Wires the pure engine decisions to persistence. Every operation follows
  the same shape:
  1. Read inputs (employee, balance, calendar)
  2. Decide (engine.Evaluator / engine.Transition)
  3. Commit the decision, its ledger effect, and its audit entry in ONE
     store transaction
  4. Dispatch best-effort notifications strictly after the commit

CONCURRENCY:
  The deduction re-validates the balance at commit time; a ConflictError
  from the store retries the whole transaction once (see ledger.go).
  Operations are safe to repeat at the state-transition layer: retrying a
  failed call cannot double-deduct because the transition guard rejects
  terminal states.

SEE ALSO:
  - escalation.go: Escalate with fallback-by-recency
  - engine/evaluator.go: Decision precedence rules
*/
package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/warp/approval-engine/engine"
	"go.uber.org/zap"
)

// Service orchestrates the approval workflow.
type Service struct {
	Store     Store
	Evaluator *engine.Evaluator
	Notifier  Notifier
	Logger    *zap.Logger

	now func() time.Time
}

// NewService creates a service with the given dependencies.
func NewService(store Store, evaluator *engine.Evaluator, notifier Notifier, logger *zap.Logger) *Service {
	return &Service{
		Store:     store,
		Evaluator: evaluator,
		Notifier:  notifier,
		Logger:    logger,
		now:       time.Now,
	}
}

// =============================================================================
// VALIDATE - Dry-run evaluation, nothing persisted
// =============================================================================

// Validate evaluates a draft without persisting anything. This is the
// dry-run surface exposed to callers before they submit.
func (s *Service) Validate(ctx context.Context, draft engine.RequestDraft) (*engine.Evaluation, error) {
	emp, err := s.employee(ctx, draft.EmployeeID)
	if err != nil {
		return nil, err
	}

	available, events, err := s.evaluationInputs(ctx, draft)
	if err != nil {
		return nil, err
	}

	return s.Evaluator.Evaluate(draft, emp.Level, available, events)
}

// =============================================================================
// SUBMIT - Intake through decision in one transaction
// =============================================================================

// SubmitRequest runs the full intake flow: evaluate the draft, persist
// the request, apply the recommended transition, decrement the ledger for
// auto-approvals, and audit every state change. Escalations resolve the
// manager immediately and notify after commit.
func (s *Service) SubmitRequest(ctx context.Context, draft engine.RequestDraft) (*Request, *engine.Evaluation, error) {
	emp, err := s.employee(ctx, draft.EmployeeID)
	if err != nil {
		return nil, nil, err
	}

	available, events, err := s.evaluationInputs(ctx, draft)
	if err != nil {
		return nil, nil, err
	}

	eval, err := s.Evaluator.Evaluate(draft, emp.Level, available, events)
	if err != nil {
		return nil, nil, err
	}

	now := s.now().UTC()
	req := &Request{
		ID:         engine.RequestID(uuid.NewString()),
		EmployeeID: draft.EmployeeID,
		Type:       draft.Type,
		Amount:     draft.Amount,
		Category:   draft.Category,
		Status:     engine.StatusPendingApproval,
		Reason:     draft.Reason,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if draft.DateRange != nil {
		start, end := draft.DateRange.Start, draft.DateRange.End
		req.StartDate, req.EndDate = &start, &end
	}

	// Escalations need a manager before anything is persisted.
	if eval.Recommendation == engine.RecommendEscalate {
		if emp.ManagerID == nil {
			return nil, nil, &engine.NotFoundError{Kind: "manager", ID: string(emp.ID)}
		}
		req.ManagerID = emp.ManagerID
	}

	err = withConflictRetry(func() error {
		return s.Store.WithTx(ctx, func(tx Store) error {
			if err := tx.InsertRequest(ctx, req); err != nil {
				return err
			}
			if err := tx.AppendAudit(ctx, s.auditEntry(req, AuditRequestSubmitted, string(req.EmployeeID), ActorEmployee, map[string]any{
				"quantity": eval.Quantity.Value.String(),
			})); err != nil {
				return err
			}

			switch eval.Recommendation {
			case engine.RecommendAutoApprove:
				return s.applyDecision(ctx, tx, req, engine.StatusAutoApproved, eval.Quantity,
					AuditAutoApproved, string(ActorSystem), ActorSystem, nil)

			case engine.RecommendDeny:
				return s.applyDecision(ctx, tx, req, engine.StatusDenied, engine.Amount{},
					AuditDenied, string(ActorSystem), ActorSystem, map[string]any{
						"violations": violationStrings(eval.Violations),
					})

			case engine.RecommendEscalate:
				reason := "exceeds auto-approval threshold"
				req.EscalationReason = &reason
				return s.applyDecision(ctx, tx, req, engine.StatusPending, engine.Amount{},
					AuditEscalated, string(ActorSystem), ActorSystem, map[string]any{
						"manager_id": string(*req.ManagerID),
						"reason":     reason,
					})
			}
			return nil
		})
	})
	if err != nil {
		return nil, nil, err
	}

	// Notification happens strictly after the commit is durable.
	if req.Status == engine.StatusPending && req.ManagerID != nil {
		s.notify(ctx, *req.ManagerID,
			fmt.Sprintf("request %s from %s awaits your approval", req.ID, req.EmployeeID),
			NotifyEscalation)
	}

	return req, eval, nil
}

// applyDecision transitions a request, applies the ledger effect for
// approvals, persists the new status, and appends the audit entry. Runs
// inside the caller's transaction.
func (s *Service) applyDecision(ctx context.Context, tx Store, req *Request, to engine.Status, quantity engine.Amount, action AuditAction, actorID string, actorType ActorType, details map[string]any) error {
	if err := engine.Transition(req.ID, req.Status, to); err != nil {
		return err
	}

	if to == engine.StatusAutoApproved || to == engine.StatusApproved {
		if err := deductForRequest(ctx, tx, req, quantity); err != nil {
			return err
		}
	}

	req.Status = to
	req.UpdatedAt = s.now().UTC()
	if err := tx.UpdateRequest(ctx, req); err != nil {
		return err
	}

	return tx.AppendAudit(ctx, s.auditEntry(req, action, actorID, actorType, details))
}

// =============================================================================
// QUERIES
// =============================================================================

// GetRequestStatus returns a request by id, searching both variants.
func (s *Service) GetRequestStatus(ctx context.Context, id engine.RequestID) (*Request, error) {
	req, err := s.Store.FindRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, &engine.NotFoundError{Kind: "request", ID: string(id)}
	}
	return req, nil
}

// ListPendingEscalations returns requests awaiting a human decision,
// optionally narrowed to one manager.
func (s *Service) ListPendingEscalations(ctx context.Context, managerID *engine.EmployeeID) ([]*Request, error) {
	return s.Store.ListPendingRequests(ctx, managerID)
}

// =============================================================================
// RESOLVE - Manager decision on an escalated request
// =============================================================================

// Decision is a manager's verdict on a pending request.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionDeny    Decision = "deny"
)

// ResolveEscalation applies a manager decision to a pending request.
// Approvals decrement the ledger atomically with the status write;
// denials never mutate the ledger.
func (s *Service) ResolveEscalation(ctx context.Context, id engine.RequestID, decision Decision, reason string, actorID engine.EmployeeID) (*Request, error) {
	if decision != DecisionApprove && decision != DecisionDeny {
		return nil, &engine.ValidationError{Field: "decision", Message: "must be approve or deny"}
	}

	req, err := s.GetRequestStatus(ctx, id)
	if err != nil {
		return nil, err
	}

	to := engine.StatusApproved
	action := AuditApproved
	if decision == DecisionDeny {
		to = engine.StatusDenied
		action = AuditDenied
	}

	err = withConflictRetry(func() error {
		return s.Store.WithTx(ctx, func(tx Store) error {
			quantity := engine.Amount{}
			if to == engine.StatusApproved {
				var err error
				quantity, err = s.quantityFor(ctx, tx, req)
				if err != nil {
					return err
				}
			}
			return s.applyDecision(ctx, tx, req, to, quantity, action, string(actorID), ActorManager, map[string]any{
				"decision": string(decision),
				"reason":   reason,
			})
		})
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, req.EmployeeID,
		fmt.Sprintf("your request %s was %s", req.ID, req.Status), NotifyDecision)

	return req, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Service) employee(ctx context.Context, id engine.EmployeeID) (*engine.Employee, error) {
	if id == "" {
		return nil, &engine.ValidationError{Field: "employee_id", Message: "required"}
	}
	emp, err := s.Store.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, &engine.NotFoundError{Kind: "employee", ID: string(id)}
	}
	return emp, nil
}

// evaluationInputs reads the available balance and the calendar slice the
// evaluator needs. Calendar reads are read-only and cacheable.
func (s *Service) evaluationInputs(ctx context.Context, draft engine.RequestDraft) (engine.Amount, []engine.CalendarEvent, error) {
	switch draft.Type {
	case engine.TypePTO:
		if draft.DateRange == nil {
			return engine.Amount{}, nil, &engine.ValidationError{Field: "date_range", Message: "required for pto requests"}
		}
		balance, err := s.Store.GetLeaveBalance(ctx, draft.EmployeeID)
		if err != nil {
			return engine.Amount{}, nil, err
		}
		if balance == nil {
			return engine.Amount{}, nil, &engine.NotFoundError{Kind: "balance", ID: string(draft.EmployeeID)}
		}
		events, err := s.Store.CalendarEventsInRange(ctx, draft.DateRange.Start, draft.DateRange.End)
		if err != nil {
			return engine.Amount{}, nil, err
		}
		return balance.CurrentBalance, events, nil

	case engine.TypeExpense:
		budget, err := s.Store.GetCategoryBudget(ctx, draft.Category)
		if err != nil {
			return engine.Amount{}, nil, err
		}
		if budget == nil {
			return engine.Amount{}, nil, &engine.NotFoundError{Kind: "budget", ID: draft.Category}
		}
		return budget.Remaining(), nil, nil

	default:
		return engine.Amount{}, nil, &engine.ValidationError{Field: "type", Message: "unknown request type"}
	}
}

// quantityFor recomputes the ledger quantity for a persisted request:
// business days for PTO (calendar-aware), the amount for expenses.
func (s *Service) quantityFor(ctx context.Context, store Store, req *Request) (engine.Amount, error) {
	if req.Type == engine.TypeExpense {
		return req.Amount, nil
	}
	rng := req.DateRange()
	if rng == nil {
		return engine.Amount{}, &engine.ValidationError{Field: "date_range", Message: "missing on pto request"}
	}
	events, err := store.CalendarEventsInRange(ctx, rng.Start, rng.End)
	if err != nil {
		return engine.Amount{}, err
	}
	report, err := engine.ComputeBusinessDays(rng.Start, rng.End, events)
	if err != nil {
		return engine.Amount{}, err
	}
	return engine.NewAmountFromInt(report.BusinessDays, engine.UnitDays), nil
}

func (s *Service) auditEntry(req *Request, action AuditAction, actorID string, actorType ActorType, details map[string]any) AuditEntry {
	return AuditEntry{
		ID:         uuid.NewString(),
		EntityType: EntityType(req.Type),
		EntityID:   string(req.ID),
		Action:     action,
		ActorID:    actorID,
		ActorType:  actorType,
		Details:    details,
		CreatedAt:  s.now().UTC(),
	}
}

// Remind re-notifies the assigned manager about a request still awaiting
// a decision. Best-effort, like all notifications.
func (s *Service) Remind(ctx context.Context, req *Request) {
	if req.ManagerID == nil {
		return
	}
	message := fmt.Sprintf("reminder: %s request %s from %s is still awaiting your decision",
		req.Type, req.ID, req.EmployeeID)
	s.notify(ctx, *req.ManagerID, message, NotifyReminder)
}

// notify dispatches best-effort. Failures are logged, never returned.
func (s *Service) notify(ctx context.Context, recipient engine.EmployeeID, message string, kind NotifyKind) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Notify(ctx, recipient, message, kind); err != nil {
		s.Logger.Warn("notification failed",
			zap.String("recipient", string(recipient)),
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
}

func violationStrings(violations []engine.Violation) []string {
	out := make([]string, len(violations))
	for i, v := range violations {
		out[i] = string(v)
	}
	return out
}
