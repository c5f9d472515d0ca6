/*
ledger.go - Balance deduction coupled to approval transitions

PURPOSE:
  The balance ledger is the only contended resource in the engine. The
  evaluator's balance read happens before the commit; the deduction
  re-validates at commit time inside the store transaction. If the balance
  turned insufficient in between, the store returns ConflictError and the
  whole transaction (status write, audit entry, deduction) rolls back.

RETRY POLICY:
  ConflictError is retried exactly once, automatically. Both attempts
  re-run the full transaction, so a retry that still conflicts surfaces
  the error to the caller. Denials never reach this file.
*/
package approval

import (
	"context"

	"github.com/warp/approval-engine/engine"
)

// deductForRequest decrements the correct ledger for an approved request:
// leave days for PTO, category budget for expenses. Must be called inside
// the same store transaction as the status write.
func deductForRequest(ctx context.Context, store Store, req *Request, quantity engine.Amount) error {
	if req.Type == engine.TypeExpense {
		return store.DeductBudget(ctx, req.Category, quantity)
	}
	return store.DeductLeave(ctx, req.EmployeeID, quantity)
}

// withConflictRetry runs fn and, when it fails with a ledger conflict,
// runs it one more time. Any second failure is returned as-is.
func withConflictRetry(fn func() error) error {
	err := fn()
	if err == nil || !engine.IsRetryable(err) {
		return err
	}
	return fn()
}
