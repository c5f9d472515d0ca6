/*
transition.go - Request lifecycle state machine

PURPOSE:
  Governs which status changes a request may make. The graph is small but
  strict; any transition out of a terminal state fails.

STATES:
  pending_approval  initial; awaiting automated evaluation
  auto_approved     terminal; evaluator approved without a human
  pending           awaiting a human approver (distinct from the initial
                    pending_approval label)
  approved          terminal; manager approved
  denied            terminal; evaluator hard-rejected or manager denied

TRANSITIONS:
  pending_approval -> auto_approved | pending | denied
  pending          -> approved | denied

LEDGER COUPLING:
  Transitioning into auto_approved or approved must decrement the balance
  ledger in the same commit as the status write. Denials never touch the
  ledger. That coupling lives in the approval package; this file only
  answers "is this transition legal".
*/
package engine

// Status is the lifecycle state of a request.
type Status string

const (
	StatusPendingApproval Status = "pending_approval"
	StatusAutoApproved    Status = "auto_approved"
	StatusPending         Status = "pending"
	StatusApproved        Status = "approved"
	StatusDenied          Status = "denied"
)

var transitions = map[Status][]Status{
	StatusPendingApproval: {StatusAutoApproved, StatusPending, StatusDenied},
	StatusPending:         {StatusApproved, StatusDenied},
}

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return s == StatusAutoApproved || s == StatusApproved || s == StatusDenied
}

// CanTransition reports whether from -> to is a legal transition.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates from -> to and returns InvalidTransitionError when
// the state machine forbids it.
func Transition(requestID RequestID, from, to Status) error {
	if !CanTransition(from, to) {
		return &InvalidTransitionError{RequestID: requestID, From: from, To: to}
	}
	return nil
}
