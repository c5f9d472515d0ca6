/*
Package approval orchestrates the request lifecycle on top of the engine
package: intake, evaluation, state transitions, ledger deductions,
audit logging, and escalation routing.

The engine package decides; this package persists. Every state-changing
decision runs inside a single store transaction and appends exactly one
audit entry in that same transaction.

SEE ALSO:
  - service.go: SubmitRequest / ResolveEscalation orchestration
  - escalation.go: Escalation router with fallback-by-recency
  - ledger.go: Check-and-commit balance deduction
*/
package approval

import (
	"context"
	"time"

	"github.com/warp/approval-engine/engine"
)

// =============================================================================
// REQUEST - Persisted record (two variants sharing one shape)
// =============================================================================

// Request is a persisted PTO or Expense request. The two variants live in
// separate tables but share this shape; Type discriminates the payload.
type Request struct {
	ID         engine.RequestID
	EmployeeID engine.EmployeeID
	ManagerID  *engine.EmployeeID // nil until escalated
	Type       engine.RequestType

	// PTO payload
	StartDate *engine.Date
	EndDate   *engine.Date

	// Expense payload
	Amount   engine.Amount
	Category string

	Status           engine.Status
	EscalationReason *string
	Reason           string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DateRange returns the PTO payload as a range, or nil for expenses.
func (r *Request) DateRange() *engine.DateRange {
	if r.StartDate == nil || r.EndDate == nil {
		return nil
	}
	return &engine.DateRange{Start: *r.StartDate, End: *r.EndDate}
}

// =============================================================================
// AUDIT - Append-only trail of every state-changing decision
// =============================================================================

type AuditAction string

const (
	AuditRequestSubmitted AuditAction = "request_submitted"
	AuditAutoApproved     AuditAction = "request_auto_approved"
	AuditDenied           AuditAction = "request_denied"
	AuditEscalated        AuditAction = "request_escalated"
	AuditApproved         AuditAction = "request_approved"
)

// ActorType identifies who performed an audited action.
type ActorType string

const (
	ActorSystem   ActorType = "system"
	ActorEmployee ActorType = "employee"
	ActorManager  ActorType = "manager"
)

// AuditEntry records who did what when. Entries are never updated or
// deleted; repeated escalations of one request each append a new entry.
type AuditEntry struct {
	ID         string
	EntityType string // "pto_request", "expense_request"
	EntityID   string
	Action     AuditAction
	ActorID    string
	ActorType  ActorType
	Details    map[string]any
	CreatedAt  time.Time
}

// AuditFilter narrows audit queries.
type AuditFilter struct {
	EntityType *string
	EntityID   *string
	ActorID    *string
	Actions    []AuditAction
}

// EntityType returns the audit entity type for a request variant.
func EntityType(t engine.RequestType) string {
	if t == engine.TypeExpense {
		return "expense_request"
	}
	return "pto_request"
}

// =============================================================================
// STORE - Repository interface (implemented by store/sqlite)
// =============================================================================

// Store is the persistence boundary for the approval workflow. WithTx
// runs fn against a transactional view of the same interface; a non-nil
// error from fn rolls everything back, including audit entries, which
// preserves "every committed decision has exactly one audit entry".
type Store interface {
	// Read replicas (owned by external collaborators)
	GetEmployee(ctx context.Context, id engine.EmployeeID) (*engine.Employee, error)
	CalendarEventsInRange(ctx context.Context, from, to engine.Date) ([]engine.CalendarEvent, error)

	// Balance ledger
	GetLeaveBalance(ctx context.Context, employeeID engine.EmployeeID) (*engine.LeaveBalance, error)
	GetCategoryBudget(ctx context.Context, category string) (*engine.CategoryBudget, error)
	DeductLeave(ctx context.Context, employeeID engine.EmployeeID, days engine.Amount) error
	DeductBudget(ctx context.Context, category string, amount engine.Amount) error

	// Requests (two tables, shared shape)
	InsertRequest(ctx context.Context, req *Request) error
	FindRequest(ctx context.Context, id engine.RequestID) (*Request, error)
	UpdateRequest(ctx context.Context, req *Request) error
	LatestOpenRequest(ctx context.Context, employeeID engine.EmployeeID, requestType engine.RequestType) (*Request, error)
	ListPendingRequests(ctx context.Context, managerID *engine.EmployeeID) ([]*Request, error)

	// Audit (append-only)
	AppendAudit(ctx context.Context, entry AuditEntry) error
	QueryAudit(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)

	// WithTx executes fn within a storage transaction.
	WithTx(ctx context.Context, fn func(Store) error) error
}
