/*
Package sqlite provides the SQLite-backed implementation of the approval
store.

PURPOSE:
  Implements approval.Store using SQLite. In production, the same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  employees:        Read replica of the employee directory
  calendar_events:  Read replica of holidays and blackout periods
  leave_balances:   Per-employee leave ledger
  category_budgets: Per-category expense ledger
  pto_requests:     PTO request records
  expense_requests: Expense request records (same column shape)
  audit_entries:    Append-only decision trail

APPEND-ONLY ENFORCEMENT:
  audit_entries has no UPDATE or DELETE path in this package. Audit writes
  happen inside the same transaction as the mutation they describe; a
  failed audit write rolls the mutation back.

CHECK-AND-COMMIT:
  DeductLeave/DeductBudget re-read the balance inside the transaction and
  fail with engine.ConflictError when it no longer covers the deduction.
  The store mutex serializes writers, so the re-read is authoritative.

WAL MODE:
  SQLite is opened with WAL for better concurrency: readers don't block,
  one writer at a time, better crash recovery.

USAGE:
  store, err := sqlite.New("./data/approvals.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - approval/types.go: Store interface definition
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/approval-engine/approval"
	"github.com/warp/approval-engine/engine"
)

// Store implements approval.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ approval.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Employees (read replica; the engine never writes these in production)
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		level TEXT NOT NULL DEFAULT 'standard',
		manager_id TEXT,
		hire_date TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Calendar events (read replica)
	CREATE TABLE IF NOT EXISTS calendar_events (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		name TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_calendar_events_range
		ON calendar_events(start_date, end_date);

	-- Leave balances (one row per employee)
	CREATE TABLE IF NOT EXISTS leave_balances (
		employee_id TEXT PRIMARY KEY,
		current_balance TEXT NOT NULL,
		total_accrued TEXT NOT NULL,
		total_used TEXT NOT NULL,
		rollover TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Expense category budgets
	CREATE TABLE IF NOT EXISTS category_budgets (
		category TEXT PRIMARY KEY,
		total_budget TEXT NOT NULL,
		used TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- PTO requests
	CREATE TABLE IF NOT EXISTS pto_requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		manager_id TEXT,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		amount TEXT,
		category TEXT,
		status TEXT NOT NULL DEFAULT 'pending_approval',
		escalation_reason TEXT,
		reason TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_pto_requests_employee_status
		ON pto_requests(employee_id, status);
	CREATE INDEX IF NOT EXISTS idx_pto_requests_status
		ON pto_requests(status);

	-- Expense requests (same column shape; payload columns swap roles)
	CREATE TABLE IF NOT EXISTS expense_requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		manager_id TEXT,
		start_date TEXT,
		end_date TEXT,
		amount TEXT NOT NULL,
		category TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending_approval',
		escalation_reason TEXT,
		reason TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_expense_requests_employee_status
		ON expense_requests(employee_id, status);
	CREATE INDEX IF NOT EXISTS idx_expense_requests_status
		ON expense_requests(status);

	-- Audit entries (append-only; no UPDATE or DELETE path exists)
	CREATE TABLE IF NOT EXISTS audit_entries (
		id TEXT PRIMARY KEY,
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		action TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		actor_type TEXT NOT NULL,
		details_json TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_entries_entity
		ON audit_entries(entity_type, entity_id);
	CREATE INDEX IF NOT EXISTS idx_audit_entries_actor
		ON audit_entries(actor_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// querier abstracts *sql.DB and *sql.Tx so every query helper works both
// inside and outside WithTx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// EMPLOYEES (read replica)
// =============================================================================

// SaveEmployee upserts an employee. Used by seeding and tests; production
// replication happens upstream.
func (s *Store) SaveEmployee(ctx context.Context, emp engine.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO employees (id, name, level, manager_id, hire_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			level = excluded.level,
			manager_id = excluded.manager_id,
			hire_date = excluded.hire_date
	`

	var managerID sql.NullString
	if emp.ManagerID != nil {
		managerID = sql.NullString{String: string(*emp.ManagerID), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		emp.ID, emp.Name, emp.Level, managerID,
		emp.HireDate.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetEmployee retrieves an employee by ID. Returns (nil, nil) when absent.
func (s *Store) GetEmployee(ctx context.Context, id engine.EmployeeID) (*engine.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getEmployee(ctx, s.db, id)
}

func getEmployee(ctx context.Context, q querier, id engine.EmployeeID) (*engine.Employee, error) {
	var (
		emp       engine.Employee
		managerID sql.NullString
		hireDate  string
	)

	err := q.QueryRowContext(ctx,
		"SELECT id, name, level, manager_id, hire_date FROM employees WHERE id = ?",
		id,
	).Scan(&emp.ID, &emp.Name, &emp.Level, &managerID, &hireDate)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get employee", err)
	}

	if managerID.Valid {
		mid := engine.EmployeeID(managerID.String)
		emp.ManagerID = &mid
	}
	emp.HireDate, err = engine.ParseDate(hireDate)
	if err != nil {
		return nil, storageErr("parse employee hire date", err)
	}
	return &emp, nil
}

// =============================================================================
// CALENDAR EVENTS (read replica)
// =============================================================================

// SaveCalendarEvent upserts a calendar event.
func (s *Store) SaveCalendarEvent(ctx context.Context, event engine.CalendarEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO calendar_events (id, kind, start_date, end_date, name)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			name = excluded.name
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID, event.Kind, event.StartDate.String(), event.EndDate.String(), event.Name)
	return err
}

// CalendarEventsInRange returns events overlapping [from, to], inclusive.
func (s *Store) CalendarEventsInRange(ctx context.Context, from, to engine.Date) ([]engine.CalendarEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return calendarEventsInRange(ctx, s.db, from, to)
}

func calendarEventsInRange(ctx context.Context, q querier, from, to engine.Date) ([]engine.CalendarEvent, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, kind, start_date, end_date, name
		FROM calendar_events
		WHERE start_date <= ? AND end_date >= ?
		ORDER BY start_date ASC
	`, to.String(), from.String())
	if err != nil {
		return nil, storageErr("query calendar events", err)
	}
	defer rows.Close()

	var events []engine.CalendarEvent
	for rows.Next() {
		var (
			e          engine.CalendarEvent
			start, end string
		)
		if err := rows.Scan(&e.ID, &e.Kind, &start, &end, &e.Name); err != nil {
			return nil, storageErr("scan calendar event", err)
		}
		if e.StartDate, err = engine.ParseDate(start); err != nil {
			return nil, storageErr("parse calendar event start", err)
		}
		if e.EndDate, err = engine.ParseDate(end); err != nil {
			return nil, storageErr("parse calendar event end", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ListCalendarEvents returns all events.
func (s *Store) ListCalendarEvents(ctx context.Context) ([]engine.CalendarEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Wide range keeps one scan path.
	return calendarEventsInRange(ctx, s.db,
		engine.NewDate(1970, time.January, 1), engine.NewDate(9999, time.December, 31))
}

// =============================================================================
// BALANCE LEDGER
// =============================================================================

// SaveLeaveBalance upserts the full balance row (seeding/accrual).
func (s *Store) SaveLeaveBalance(ctx context.Context, balance engine.LeaveBalance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO leave_balances (employee_id, current_balance, total_accrued, total_used, rollover, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id) DO UPDATE SET
			current_balance = excluded.current_balance,
			total_accrued = excluded.total_accrued,
			total_used = excluded.total_used,
			rollover = excluded.rollover,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		balance.EmployeeID,
		balance.CurrentBalance.Value.String(),
		balance.TotalAccrued.Value.String(),
		balance.TotalUsed.Value.String(),
		balance.Rollover.Value.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetLeaveBalance returns the balance row, or (nil, nil) when absent.
func (s *Store) GetLeaveBalance(ctx context.Context, employeeID engine.EmployeeID) (*engine.LeaveBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getLeaveBalance(ctx, s.db, employeeID)
}

func getLeaveBalance(ctx context.Context, q querier, employeeID engine.EmployeeID) (*engine.LeaveBalance, error) {
	var current, accrued, used, rollover string

	err := q.QueryRowContext(ctx, `
		SELECT current_balance, total_accrued, total_used, rollover
		FROM leave_balances WHERE employee_id = ?
	`, employeeID).Scan(&current, &accrued, &used, &rollover)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get leave balance", err)
	}

	balance := engine.LeaveBalance{EmployeeID: employeeID}
	if balance.CurrentBalance, err = daysAmount(current); err != nil {
		return nil, storageErr("parse leave balance", err)
	}
	if balance.TotalAccrued, err = daysAmount(accrued); err != nil {
		return nil, storageErr("parse leave balance", err)
	}
	if balance.TotalUsed, err = daysAmount(used); err != nil {
		return nil, storageErr("parse leave balance", err)
	}
	if balance.Rollover, err = daysAmount(rollover); err != nil {
		return nil, storageErr("parse leave balance", err)
	}
	return &balance, nil
}

// DeductLeave decrements an employee's leave balance, re-validating at
// commit time. Fails with engine.ConflictError when the balance no longer
// covers the deduction.
func (s *Store) DeductLeave(ctx context.Context, employeeID engine.EmployeeID, days engine.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deductLeave(ctx, s.db, employeeID, days)
}

func deductLeave(ctx context.Context, q querier, employeeID engine.EmployeeID, days engine.Amount) error {
	balance, err := getLeaveBalance(ctx, q, employeeID)
	if err != nil {
		return err
	}
	if balance == nil {
		return &engine.NotFoundError{Kind: "balance", ID: string(employeeID)}
	}
	if days.GreaterThan(balance.CurrentBalance) {
		return &engine.ConflictError{
			EmployeeID: employeeID,
			Available:  balance.CurrentBalance,
			Requested:  days,
		}
	}

	_, err = q.ExecContext(ctx, `
		UPDATE leave_balances
		SET current_balance = ?, total_used = ?, updated_at = ?
		WHERE employee_id = ?
	`,
		balance.CurrentBalance.Sub(days).Value.String(),
		balance.TotalUsed.Add(days).Value.String(),
		time.Now().UTC().Format(time.RFC3339),
		employeeID,
	)
	if err != nil {
		return storageErr("deduct leave", err)
	}
	return nil
}

// SaveCategoryBudget upserts a category budget row.
func (s *Store) SaveCategoryBudget(ctx context.Context, budget engine.CategoryBudget) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO category_budgets (category, total_budget, used, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(category) DO UPDATE SET
			total_budget = excluded.total_budget,
			used = excluded.used,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		budget.Category,
		budget.TotalBudget.Value.String(),
		budget.Used.Value.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetCategoryBudget returns the budget row, or (nil, nil) when absent.
func (s *Store) GetCategoryBudget(ctx context.Context, category string) (*engine.CategoryBudget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getCategoryBudget(ctx, s.db, category)
}

func getCategoryBudget(ctx context.Context, q querier, category string) (*engine.CategoryBudget, error) {
	var total, used string

	err := q.QueryRowContext(ctx,
		"SELECT total_budget, used FROM category_budgets WHERE category = ?",
		category,
	).Scan(&total, &used)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get category budget", err)
	}

	budget := engine.CategoryBudget{Category: category}
	if budget.TotalBudget, err = usdAmount(total); err != nil {
		return nil, storageErr("parse category budget", err)
	}
	if budget.Used, err = usdAmount(used); err != nil {
		return nil, storageErr("parse category budget", err)
	}
	return &budget, nil
}

// DeductBudget decrements a category budget with the same check-and-commit
// semantics as DeductLeave.
func (s *Store) DeductBudget(ctx context.Context, category string, amount engine.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deductBudget(ctx, s.db, category, amount)
}

func deductBudget(ctx context.Context, q querier, category string, amount engine.Amount) error {
	budget, err := getCategoryBudget(ctx, q, category)
	if err != nil {
		return err
	}
	if budget == nil {
		return &engine.NotFoundError{Kind: "budget", ID: category}
	}
	if amount.GreaterThan(budget.Remaining()) {
		return &engine.ConflictError{
			Available: budget.Remaining(),
			Requested: amount,
		}
	}

	_, err = q.ExecContext(ctx, `
		UPDATE category_budgets SET used = ?, updated_at = ? WHERE category = ?
	`,
		budget.Used.Add(amount).Value.String(),
		time.Now().UTC().Format(time.RFC3339),
		category,
	)
	if err != nil {
		return storageErr("deduct budget", err)
	}
	return nil
}

// =============================================================================
// REQUESTS (two tables, shared column shape)
// =============================================================================

func requestTable(t engine.RequestType) string {
	if t == engine.TypeExpense {
		return "expense_requests"
	}
	return "pto_requests"
}

const requestColumns = `id, employee_id, manager_id, start_date, end_date, amount, category,
	status, escalation_reason, reason, created_at, updated_at`

// InsertRequest persists a new request record.
func (s *Store) InsertRequest(ctx context.Context, req *approval.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertRequest(ctx, s.db, req)
}

func insertRequest(ctx context.Context, q querier, req *approval.Request) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, requestTable(req.Type), requestColumns)

	// PTO rows carry no monetary amount; the column stays NULL so reads
	// do not rehydrate a spurious zero Amount.
	var amount string
	if req.Type == engine.TypeExpense {
		amount = req.Amount.Value.String()
	}

	_, err := q.ExecContext(ctx, query,
		req.ID,
		req.EmployeeID,
		nullEmployeeID(req.ManagerID),
		nullDate(req.StartDate),
		nullDate(req.EndDate),
		nullString(amount),
		nullString(req.Category),
		req.Status,
		nullStringPtr(req.EscalationReason),
		nullString(req.Reason),
		req.CreatedAt.UTC().Format(time.RFC3339),
		req.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return storageErr("insert request", err)
	}
	return nil
}

// UpdateRequest persists status, manager, and escalation reason changes.
func (s *Store) UpdateRequest(ctx context.Context, req *approval.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateRequest(ctx, s.db, req)
}

func updateRequest(ctx context.Context, q querier, req *approval.Request) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET manager_id = ?, status = ?, escalation_reason = ?, updated_at = ?
		WHERE id = ?
	`, requestTable(req.Type))

	result, err := q.ExecContext(ctx, query,
		nullEmployeeID(req.ManagerID),
		req.Status,
		nullStringPtr(req.EscalationReason),
		req.UpdatedAt.UTC().Format(time.RFC3339),
		req.ID,
	)
	if err != nil {
		return storageErr("update request", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return &engine.NotFoundError{Kind: "request", ID: string(req.ID)}
	}
	return nil
}

func getRequest(ctx context.Context, q querier, id engine.RequestID, requestType engine.RequestType) (*approval.Request, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", requestColumns, requestTable(requestType))
	rows, err := q.QueryContext(ctx, query, id)
	if err != nil {
		return nil, storageErr("get request", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	req, err := scanRequest(rows, requestType)
	if err != nil {
		return nil, err
	}
	return req, nil
}

// FindRequest searches both variant tables for an id.
func (s *Store) FindRequest(ctx context.Context, id engine.RequestID) (*approval.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findRequest(ctx, s.db, id)
}

func findRequest(ctx context.Context, q querier, id engine.RequestID) (*approval.Request, error) {
	for _, t := range []engine.RequestType{engine.TypePTO, engine.TypeExpense} {
		req, err := getRequest(ctx, q, id, t)
		if err != nil {
			return nil, err
		}
		if req != nil {
			return req, nil
		}
	}
	return nil, nil
}

// LatestOpenRequest returns the most recently created request of the given
// type in status pending or pending_approval for the employee. This backs
// fallback-by-recency in the escalation router. (nil, nil) when none.
func (s *Store) LatestOpenRequest(ctx context.Context, employeeID engine.EmployeeID, requestType engine.RequestType) (*approval.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return latestOpenRequest(ctx, s.db, employeeID, requestType)
}

func latestOpenRequest(ctx context.Context, q querier, employeeID engine.EmployeeID, requestType engine.RequestType) (*approval.Request, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE employee_id = ? AND status IN ('pending', 'pending_approval')
		ORDER BY rowid DESC
		LIMIT 1
	`, requestColumns, requestTable(requestType))

	rows, err := q.QueryContext(ctx, query, employeeID)
	if err != nil {
		return nil, storageErr("latest open request", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanRequest(rows, requestType)
}

// ListPendingRequests returns all requests awaiting a human decision,
// across both variants, optionally filtered by assigned manager.
func (s *Store) ListPendingRequests(ctx context.Context, managerID *engine.EmployeeID) ([]*approval.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listPendingRequests(ctx, s.db, managerID)
}

func listPendingRequests(ctx context.Context, q querier, managerID *engine.EmployeeID) ([]*approval.Request, error) {
	var all []*approval.Request
	for _, t := range []engine.RequestType{engine.TypePTO, engine.TypeExpense} {
		query := fmt.Sprintf(`
			SELECT %s FROM %s WHERE status = 'pending'
		`, requestColumns, requestTable(t))
		args := []any{}
		if managerID != nil {
			query += " AND manager_id = ?"
			args = append(args, *managerID)
		}
		query += " ORDER BY created_at ASC"

		rows, err := q.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, storageErr("list pending requests", err)
		}
		for rows.Next() {
			req, err := scanRequest(rows, t)
			if err != nil {
				rows.Close()
				return nil, err
			}
			all = append(all, req)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return all, nil
}

func scanRequest(rows *sql.Rows, requestType engine.RequestType) (*approval.Request, error) {
	var (
		req              approval.Request
		managerID        sql.NullString
		startDate        sql.NullString
		endDate          sql.NullString
		amount           sql.NullString
		category         sql.NullString
		escalationReason sql.NullString
		reason           sql.NullString
		createdAt        string
		updatedAt        string
	)

	err := rows.Scan(
		&req.ID, &req.EmployeeID, &managerID, &startDate, &endDate,
		&amount, &category, &req.Status, &escalationReason, &reason,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, storageErr("scan request", err)
	}

	req.Type = requestType
	if managerID.Valid {
		mid := engine.EmployeeID(managerID.String)
		req.ManagerID = &mid
	}
	if startDate.Valid && startDate.String != "" {
		d, err := engine.ParseDate(startDate.String)
		if err != nil {
			return nil, storageErr("parse request start date", err)
		}
		req.StartDate = &d
	}
	if endDate.Valid && endDate.String != "" {
		d, err := engine.ParseDate(endDate.String)
		if err != nil {
			return nil, storageErr("parse request end date", err)
		}
		req.EndDate = &d
	}
	if amount.Valid && amount.String != "" {
		if req.Amount, err = usdAmount(amount.String); err != nil {
			return nil, storageErr("parse request amount", err)
		}
	}
	req.Category = category.String
	if escalationReason.Valid {
		req.EscalationReason = &escalationReason.String
	}
	req.Reason = reason.String
	if req.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, storageErr("parse request created_at", err)
	}
	if req.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, storageErr("parse request updated_at", err)
	}

	return &req, nil
}

// =============================================================================
// AUDIT (append-only)
// =============================================================================

// AppendAudit writes an audit entry. This is the ONLY write operation on
// audit_entries.
func (s *Store) AppendAudit(ctx context.Context, entry approval.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendAudit(ctx, s.db, entry)
}

func appendAudit(ctx context.Context, q querier, entry approval.AuditEntry) error {
	detailsJSON, _ := json.Marshal(entry.Details)

	_, err := q.ExecContext(ctx, `
		INSERT INTO audit_entries (id, entity_type, entity_id, action, actor_id, actor_type, details_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.ID,
		entry.EntityType,
		entry.EntityID,
		entry.Action,
		entry.ActorID,
		entry.ActorType,
		string(detailsJSON),
		entry.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return storageErr("append audit entry", err)
	}
	return nil
}

// QueryAudit returns audit entries matching the filter, chronologically.
func (s *Store) QueryAudit(ctx context.Context, filter approval.AuditFilter) ([]approval.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryAudit(ctx, s.db, filter)
}

func queryAudit(ctx context.Context, q querier, filter approval.AuditFilter) ([]approval.AuditEntry, error) {
	query := `
		SELECT id, entity_type, entity_id, action, actor_id, actor_type, details_json, created_at
		FROM audit_entries WHERE 1=1
	`
	var args []any

	if filter.EntityType != nil {
		query += " AND entity_type = ?"
		args = append(args, *filter.EntityType)
	}
	if filter.EntityID != nil {
		query += " AND entity_id = ?"
		args = append(args, *filter.EntityID)
	}
	if filter.ActorID != nil {
		query += " AND actor_id = ?"
		args = append(args, *filter.ActorID)
	}
	if len(filter.Actions) > 0 {
		placeholders := make([]string, len(filter.Actions))
		for i, a := range filter.Actions {
			placeholders[i] = "?"
			args = append(args, a)
		}
		query += " AND action IN (" + strings.Join(placeholders, ",") + ")"
	}
	// rowid preserves insertion order even when two entries in one
	// transaction share a created_at second.
	query += " ORDER BY rowid ASC"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("query audit entries", err)
	}
	defer rows.Close()

	var entries []approval.AuditEntry
	for rows.Next() {
		var (
			entry       approval.AuditEntry
			detailsJSON sql.NullString
			createdAt   string
		)
		if err := rows.Scan(&entry.ID, &entry.EntityType, &entry.EntityID, &entry.Action,
			&entry.ActorID, &entry.ActorType, &detailsJSON, &createdAt); err != nil {
			return nil, storageErr("scan audit entry", err)
		}
		if detailsJSON.Valid && detailsJSON.String != "" {
			json.Unmarshal([]byte(detailsJSON.String), &entry.Details)
		}
		entry.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a database transaction. A non-nil error from
// fn rolls everything back, including audit writes, so a committed
// mutation always carries its audit entry.
func (s *Store) WithTx(ctx context.Context, fn func(store approval.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin transaction", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return storageErr("commit transaction", err)
	}
	return nil
}

// txStore is the transactional view handed to WithTx callbacks. It runs
// every operation against the open *sql.Tx; nested WithTx reuses it.
type txStore struct {
	tx *sql.Tx
}

var _ approval.Store = (*txStore)(nil)

func (ts *txStore) GetEmployee(ctx context.Context, id engine.EmployeeID) (*engine.Employee, error) {
	return getEmployee(ctx, ts.tx, id)
}

func (ts *txStore) CalendarEventsInRange(ctx context.Context, from, to engine.Date) ([]engine.CalendarEvent, error) {
	return calendarEventsInRange(ctx, ts.tx, from, to)
}

func (ts *txStore) GetLeaveBalance(ctx context.Context, employeeID engine.EmployeeID) (*engine.LeaveBalance, error) {
	return getLeaveBalance(ctx, ts.tx, employeeID)
}

func (ts *txStore) GetCategoryBudget(ctx context.Context, category string) (*engine.CategoryBudget, error) {
	return getCategoryBudget(ctx, ts.tx, category)
}

func (ts *txStore) DeductLeave(ctx context.Context, employeeID engine.EmployeeID, days engine.Amount) error {
	return deductLeave(ctx, ts.tx, employeeID, days)
}

func (ts *txStore) DeductBudget(ctx context.Context, category string, amount engine.Amount) error {
	return deductBudget(ctx, ts.tx, category, amount)
}

func (ts *txStore) InsertRequest(ctx context.Context, req *approval.Request) error {
	return insertRequest(ctx, ts.tx, req)
}

func (ts *txStore) FindRequest(ctx context.Context, id engine.RequestID) (*approval.Request, error) {
	return findRequest(ctx, ts.tx, id)
}

func (ts *txStore) UpdateRequest(ctx context.Context, req *approval.Request) error {
	return updateRequest(ctx, ts.tx, req)
}

func (ts *txStore) LatestOpenRequest(ctx context.Context, employeeID engine.EmployeeID, requestType engine.RequestType) (*approval.Request, error) {
	return latestOpenRequest(ctx, ts.tx, employeeID, requestType)
}

func (ts *txStore) ListPendingRequests(ctx context.Context, managerID *engine.EmployeeID) ([]*approval.Request, error) {
	return listPendingRequests(ctx, ts.tx, managerID)
}

func (ts *txStore) AppendAudit(ctx context.Context, entry approval.AuditEntry) error {
	return appendAudit(ctx, ts.tx, entry)
}

func (ts *txStore) QueryAudit(ctx context.Context, filter approval.AuditFilter) ([]approval.AuditEntry, error) {
	return queryAudit(ctx, ts.tx, filter)
}

func (ts *txStore) WithTx(ctx context.Context, fn func(store approval.Store) error) error {
	return fn(ts)
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullEmployeeID(id *engine.EmployeeID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*id), Valid: true}
}

func nullDate(d *engine.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func daysAmount(value string) (engine.Amount, error) {
	return engine.ParseAmount(value, engine.UnitDays)
}

func usdAmount(value string) (engine.Amount, error) {
	return engine.ParseAmount(value, engine.UnitUSD)
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, engine.ErrStorage, err)
}
