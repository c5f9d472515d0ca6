/*
escalation.go - Escalation router with fallback-by-recency

PURPOSE:
  Resolves which request an escalation call refers to, assigns the target
  approver, and persists the escalation. Callers often don't hold the
  request id (the chat surface loses it), so an unknown or missing id
  falls back to the caller's most recently created open request of the
  matching type.

FALLBACK SCOPE:
  Fallback is scoped BY REQUEST TYPE: an escalation for "pto" never
  resolves to an expense request. The response message always names the
  concrete request id acted upon and says when fallback was used.

REPEATED ESCALATIONS:
  Escalating the same request twice is allowed and produces one audit
  entry per call. The final state is idempotent: one manager assignment,
  latest escalation reason persisted.

SEE ALSO:
  - service.go: applyDecision, audit helpers
*/
package approval

import (
	"context"
	"fmt"

	"github.com/warp/approval-engine/engine"
)

// EscalationResult is the router's response.
type EscalationResult struct {
	Success      bool
	RequestID    engine.RequestID
	ManagerID    engine.EmployeeID
	Message      string
	UsedFallback bool
}

// Escalate resolves the target request (directly or via fallback), assigns
// the manager, persists the escalation, and appends one audit entry. The
// manager notification is dispatched after the commit and is best-effort.
func (s *Service) Escalate(ctx context.Context, requestID *engine.RequestID, requestType engine.RequestType, reason string, actorID engine.EmployeeID) (*EscalationResult, error) {
	actor, err := s.employee(ctx, actorID)
	if err != nil {
		return nil, err
	}

	req, usedFallback, err := s.resolveTarget(ctx, requestID, requestType, actor)
	if err != nil {
		return nil, err
	}

	managerID, err := s.resolveManager(ctx, req)
	if err != nil {
		return nil, err
	}

	if req.Status.IsTerminal() {
		return nil, &engine.InvalidTransitionError{RequestID: req.ID, From: req.Status, To: engine.StatusPending}
	}

	err = s.Store.WithTx(ctx, func(tx Store) error {
		// pending -> pending is a re-escalation, not a transition; only the
		// initial pending_approval -> pending goes through the state machine.
		if req.Status == engine.StatusPendingApproval {
			if err := engine.Transition(req.ID, req.Status, engine.StatusPending); err != nil {
				return err
			}
			req.Status = engine.StatusPending
		}

		req.ManagerID = &managerID
		req.EscalationReason = &reason
		req.UpdatedAt = s.now().UTC()
		if err := tx.UpdateRequest(ctx, req); err != nil {
			return err
		}

		// One audit entry per call, intentionally not deduplicated.
		return tx.AppendAudit(ctx, s.auditEntry(req, AuditEscalated, string(actorID), ActorEmployee, map[string]any{
			"manager_id":    string(managerID),
			"reason":        reason,
			"used_fallback": usedFallback,
		}))
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, managerID,
		fmt.Sprintf("request %s from %s was escalated: %s", req.ID, req.EmployeeID, reason),
		NotifyEscalation)

	message := fmt.Sprintf("request %s escalated to manager %s", req.ID, managerID)
	if usedFallback {
		message = fmt.Sprintf("no matching request id; fell back to your most recent open %s request %s, escalated to manager %s",
			requestType, req.ID, managerID)
	}

	return &EscalationResult{
		Success:      true,
		RequestID:    req.ID,
		ManagerID:    managerID,
		Message:      message,
		UsedFallback: usedFallback,
	}, nil
}

// resolveTarget finds the request the caller means. A resolvable id owned
// by the caller (directly, or transitively for a manager) wins; otherwise
// fallback-by-recency applies.
func (s *Service) resolveTarget(ctx context.Context, requestID *engine.RequestID, requestType engine.RequestType, actor *engine.Employee) (*Request, bool, error) {
	if requestID != nil && *requestID != "" {
		req, err := s.Store.FindRequest(ctx, *requestID)
		if err != nil {
			return nil, false, err
		}
		if req != nil {
			owned, err := s.ownsRequest(ctx, actor.ID, req.EmployeeID)
			if err != nil {
				return nil, false, err
			}
			if owned {
				return req, false, nil
			}
		}
		// Unknown or foreign id: fall through to recency.
	}

	req, err := s.Store.LatestOpenRequest(ctx, actor.ID, requestType)
	if err != nil {
		return nil, false, err
	}
	if req == nil {
		return nil, false, &engine.NotFoundError{Kind: "request", ID: fmt.Sprintf("open %s for %s", requestType, actor.ID)}
	}
	return req, true, nil
}

// ownsRequest reports whether actorID is the request owner or a manager
// above the owner in the reporting chain.
func (s *Service) ownsRequest(ctx context.Context, actorID, ownerID engine.EmployeeID) (bool, error) {
	if actorID == ownerID {
		return true, nil
	}

	// Walk up from the owner; a short chain with a hop cap guards cycles.
	current := ownerID
	for i := 0; i < 16; i++ {
		emp, err := s.Store.GetEmployee(ctx, current)
		if err != nil {
			return false, err
		}
		if emp == nil || emp.ManagerID == nil {
			return false, nil
		}
		if *emp.ManagerID == actorID {
			return true, nil
		}
		current = *emp.ManagerID
	}
	return false, nil
}

// resolveManager uses the request's existing manager when set, otherwise
// the owner's manager.
func (s *Service) resolveManager(ctx context.Context, req *Request) (engine.EmployeeID, error) {
	if req.ManagerID != nil && *req.ManagerID != "" {
		return *req.ManagerID, nil
	}
	owner, err := s.employee(ctx, req.EmployeeID)
	if err != nil {
		return "", err
	}
	if owner.ManagerID == nil {
		return "", &engine.NotFoundError{Kind: "manager", ID: string(owner.ID)}
	}
	return *owner.ManagerID, nil
}
