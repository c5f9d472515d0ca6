/*
errors.go - Centralized error types for the decision engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers classify errors with errors.Is/errors.As; HTTP and service
  layers map them to status codes and retry behavior.

ERROR TAXONOMY:
  ErrValidation         - malformed input, caller must correct it
  ErrNotFound           - unknown employee/request/manager
  ErrInvalidTransition  - a terminal request was re-acted upon
  ErrConflict           - ledger race detected at commit, retryable once
  ErrStorage            - persistence failure, state unchanged, retryable
  ErrNotification       - notify failure, logged only, never fatal

  Policy violations are NOT errors. They are first-class fields of the
  evaluator result (see evaluator.go).

USAGE:
  if engine.IsRetryable(err) { retry once }
  var tErr *engine.InvalidTransitionError
  if errors.As(err, &tErr) { ... tErr.From, tErr.To ... }
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed input (bad date range,
	// missing required field). Not retryable without input correction.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidRange is returned when a date range has start after end.
	ErrInvalidRange = errors.New("invalid range: start after end")

	// ErrNotFound is returned when a referenced employee, request, or
	// manager does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when a request in a terminal state
	// is acted upon again.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrConflict is returned when the balance check fails at commit time
	// even though it looked sufficient at evaluation time. Retryable once.
	ErrConflict = errors.New("ledger conflict")

	// ErrStorage is returned on persistence failures. The request state is
	// left unchanged; the caller should retry.
	ErrStorage = errors.New("storage failure")

	// ErrNotification is returned by notifiers. It is logged and never
	// fails the triggering operation.
	ErrNotification = errors.New("notification failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidRangeError reports a date range whose start is after its end.
type InvalidRangeError struct {
	Start Date
	End   Date
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range: start %s after end %s", e.Start, e.End)
}

func (e *InvalidRangeError) Unwrap() error { return ErrInvalidRange }

// ValidationError reports a malformed field on a request draft.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError reports a missing entity by kind and id.
type NotFoundError struct {
	Kind string // "employee", "request", "manager", "balance", "budget"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InvalidTransitionError reports an attempted transition out of a
// terminal state (or any transition the state machine forbids).
type InvalidTransitionError struct {
	RequestID RequestID
	From      Status
	To        Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("request %s: cannot transition from %s to %s", e.RequestID, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// ConflictError reports a balance that was insufficient by the time the
// deduction committed.
type ConflictError struct {
	EmployeeID EmployeeID
	Available  Amount
	Requested  Amount
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("ledger conflict for %s: available %v, requested %v",
		e.EmployeeID, e.Available.Value, e.Requested.Value)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error is retried automatically. Only
// ledger conflicts qualify; storage errors are surfaced for the caller
// to retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrInvalidTransition)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
