/*
Package engine implements the policy validation and escalation decision core.

PURPOSE:
  This package contains the pure decision logic for employee requests:
  calendar math over business days, role-based policy evaluation, and the
  request lifecycle state machine. Nothing in this package touches storage;
  callers read the inputs (balances, calendar events, thresholds), call a
  pure function, and persist the outcome themselves.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A quantity with a unit (e.g., 5 days, $500)
  - Date: A day-granularity point in time
  - DateRange: An inclusive span of dates (PTO payload)
  - Employee / LeaveBalance / CalendarEvent: Read-side inputs

DESIGN PRINCIPLES:
  1. Purity: Evaluation never mutates state; the caller owns writes
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. Type Safety: Strong typing for IDs prevents mixing employee/request IDs

SEE ALSO:
  - calendar.go: Business-day computation
  - evaluator.go: Policy rule evaluation
  - transition.go: Request state machine
*/
package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity with unit (days for PTO, currency for expenses)
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitDays Unit = "days"
	UnitUSD  Unit = "usd"
)

func NewAmount(value float64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Unit: unit}
}

func NewAmountFromInt(value int, unit Unit) Amount {
	return Amount{Value: decimal.NewFromInt(int64(value)), Unit: unit}
}

// ParseAmount parses a stored decimal string. Unparseable input is an
// error, never a silent zero.
func ParseAmount(value string, unit Unit) (Amount, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Amount{}, fmt.Errorf("parse amount %q: %w", value, err)
	}
	return Amount{Value: d, Unit: unit}, nil
}

func (a Amount) Add(b Amount) Amount       { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Sub(b Amount) Amount       { return Amount{Value: a.Value.Sub(b.Value), Unit: a.Unit} }
func (a Amount) Neg() Amount               { return Amount{Value: a.Value.Neg(), Unit: a.Unit} }
func (a Amount) IsNegative() bool          { return a.Value.IsNegative() }
func (a Amount) IsZero() bool              { return a.Value.IsZero() }
func (a Amount) IsPositive() bool          { return a.Value.IsPositive() }
func (a Amount) Equal(b Amount) bool       { return a.Value.Equal(b.Value) }
func (a Amount) GreaterThan(b Amount) bool { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool    { return a.Value.LessThan(b.Value) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type RequestID string

// Level is the two-tier employee role used for threshold lookup.
type Level string

const (
	LevelStandard Level = "standard"
	LevelElevated Level = "elevated"
)

// RequestType discriminates the two request variants.
type RequestType string

const (
	TypePTO     RequestType = "pto"
	TypeExpense RequestType = "expense"
)

// =============================================================================
// DATE - Day-granularity time point
// =============================================================================

type Date struct {
	Time time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), now.Month(), now.Day())
}

// Comparison
func (d Date) Before(other Date) bool { return d.normalize().Before(other.normalize()) }
func (d Date) Equal(other Date) bool  { return d.normalize().Equal(other.normalize()) }
func (d Date) After(other Date) bool  { return d.normalize().After(other.normalize()) }

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic and properties
func (d Date) AddDays(n int) Date { return Date{Time: d.Time.AddDate(0, 0, n)} }
func (d Date) Weekday() time.Weekday {
	return d.Time.Weekday()
}
func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
func (d Date) IsZero() bool    { return d.Time.IsZero() }
func (d Date) String() string  { return d.normalize().Format("2006-01-02") }

// DateRange is an inclusive span of dates.
type DateRange struct {
	Start Date
	End   Date
}

// TotalDays returns the number of calendar days in the inclusive range.
func (r DateRange) TotalDays() int {
	return int(r.End.normalize().Sub(r.Start.normalize()).Hours()/24) + 1
}

// Contains reports whether d falls within the range, inclusive on both ends.
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// Overlaps reports whether two ranges share at least one day, inclusive.
func (r DateRange) Overlaps(other DateRange) bool {
	return !r.Start.After(other.End) && !other.Start.After(r.End)
}

// =============================================================================
// READ-SIDE ENTITIES - Owned by external collaborators, read replicas here
// =============================================================================

// Employee is the read replica of an employee record. The engine never
// writes employees; managerId reassignment happens upstream.
type Employee struct {
	ID        EmployeeID
	Name      string
	Level     Level
	ManagerID *EmployeeID
	HireDate  Date
}

// LeaveBalance tracks per-employee leave accounting.
//
// INVARIANT: CurrentBalance = TotalAccrued + Rollover - TotalUsed,
// and never negative after a committed deduction.
type LeaveBalance struct {
	EmployeeID     EmployeeID
	CurrentBalance Amount
	TotalAccrued   Amount
	TotalUsed      Amount
	Rollover       Amount
}

// CategoryBudget tracks spend against an expense category.
type CategoryBudget struct {
	Category    string
	TotalBudget Amount
	Used        Amount
}

// Remaining returns what can still be spent in the category.
func (b CategoryBudget) Remaining() Amount {
	return b.TotalBudget.Sub(b.Used)
}

// EventKind distinguishes calendar event semantics.
type EventKind string

const (
	KindHoliday  EventKind = "holiday"
	KindBlackout EventKind = "blackout"
)

// CalendarEvent is a holiday or blackout span. Read-only to the engine.
type CalendarEvent struct {
	ID        string
	Kind      EventKind
	StartDate Date
	EndDate   Date
	Name      string
}

// Range returns the event's date span.
func (e CalendarEvent) Range() DateRange {
	return DateRange{Start: e.StartDate, End: e.EndDate}
}

// =============================================================================
// REQUEST DRAFT - Evaluator input before anything is persisted
// =============================================================================

// RequestDraft is what an employee submits. Exactly one payload is set:
// DateRange for PTO, Amount+Category for expenses.
type RequestDraft struct {
	EmployeeID EmployeeID
	Type       RequestType

	// PTO payload
	DateRange *DateRange

	// Expense payload
	Amount   Amount
	Category string

	Reason string
}
