/*
seed.go - Demo data loader for testing and demonstrations

PURPOSE:

	Populates the database with a small, deterministic org chart plus
	balances, budgets, and calendar events so every decision path can be
	exercised from a fresh database.

WHAT GETS SEEDED:

	Employees:
	  mgr-dana     elevated, no manager (top of chain)
	  emp-alice    standard, reports to mgr-dana
	  emp-bob      elevated, reports to mgr-dana

	Balances:     alice 12 days, bob 20 days
	Budgets:      travel $2000, equipment $5000
	Calendar:     Christmas holiday, end-of-quarter blackout

DECISION PATHS COVERED:

	emp-alice, 2 weekdays          -> auto-approved (under threshold 3)
	emp-alice, 5 weekdays          -> escalated to mgr-dana
	emp-bob, 5 weekdays            -> auto-approved (elevated threshold 10)
	expense over category budget   -> denied (insufficient_balance)
	pto overlapping the blackout   -> denied (blackout_conflict)

NOTE:

	Seeding upserts. Re-running against an existing database refreshes
	the demo rows but never touches requests or audit entries.

SEE ALSO:
  - cmd/server/main.go: -seed flag
  - store/sqlite/sqlite.go: Save* upserts
*/
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/approval-engine/engine"
	"github.com/warp/approval-engine/store/sqlite"
)

// SeedDemoData loads the demo org chart, balances, budgets, and calendar.
func SeedDemoData(ctx context.Context, store *sqlite.Store) error {
	managerID := engine.EmployeeID("mgr-dana")

	employees := []engine.Employee{
		{
			ID:       managerID,
			Name:     "Dana Okafor",
			Level:    engine.LevelElevated,
			HireDate: mustDate("2019-03-01"),
		},
		{
			ID:        "emp-alice",
			Name:      "Alice Moreau",
			Level:     engine.LevelStandard,
			ManagerID: &managerID,
			HireDate:  mustDate("2023-06-15"),
		},
		{
			ID:        "emp-bob",
			Name:      "Bob Tanaka",
			Level:     engine.LevelElevated,
			ManagerID: &managerID,
			HireDate:  mustDate("2021-01-10"),
		},
	}
	for _, emp := range employees {
		if err := store.SaveEmployee(ctx, emp); err != nil {
			return fmt.Errorf("seeding employee %s: %w", emp.ID, err)
		}
	}

	balances := []engine.LeaveBalance{
		{
			EmployeeID:     "emp-alice",
			CurrentBalance: engine.NewAmountFromInt(12, engine.UnitDays),
			TotalAccrued:   engine.NewAmountFromInt(15, engine.UnitDays),
			TotalUsed:      engine.NewAmountFromInt(3, engine.UnitDays),
			Rollover:       engine.NewAmountFromInt(0, engine.UnitDays),
		},
		{
			EmployeeID:     "emp-bob",
			CurrentBalance: engine.NewAmountFromInt(20, engine.UnitDays),
			TotalAccrued:   engine.NewAmountFromInt(20, engine.UnitDays),
			TotalUsed:      engine.NewAmountFromInt(0, engine.UnitDays),
			Rollover:       engine.NewAmountFromInt(0, engine.UnitDays),
		},
	}
	for _, bal := range balances {
		if err := store.SaveLeaveBalance(ctx, bal); err != nil {
			return fmt.Errorf("seeding balance for %s: %w", bal.EmployeeID, err)
		}
	}

	budgets := []engine.CategoryBudget{
		{
			Category:    "travel",
			TotalBudget: engine.NewAmountFromInt(2000, engine.UnitUSD),
			Used:        engine.NewAmountFromInt(250, engine.UnitUSD),
		},
		{
			Category:    "equipment",
			TotalBudget: engine.NewAmountFromInt(5000, engine.UnitUSD),
			Used:        engine.NewAmountFromInt(0, engine.UnitUSD),
		},
	}
	for _, budget := range budgets {
		if err := store.SaveCategoryBudget(ctx, budget); err != nil {
			return fmt.Errorf("seeding budget %s: %w", budget.Category, err)
		}
	}

	year := time.Now().UTC().Year()
	events := []engine.CalendarEvent{
		{
			ID:        "evt-christmas",
			Kind:      engine.KindHoliday,
			StartDate: mustDate(fmt.Sprintf("%d-12-25", year)),
			EndDate:   mustDate(fmt.Sprintf("%d-12-25", year)),
			Name:      "Christmas Day",
		},
		{
			ID:        "evt-q4-close",
			Kind:      engine.KindBlackout,
			StartDate: mustDate(fmt.Sprintf("%d-12-29", year)),
			EndDate:   mustDate(fmt.Sprintf("%d-12-31", year)),
			Name:      "Q4 close",
		},
	}
	for _, event := range events {
		if err := store.SaveCalendarEvent(ctx, event); err != nil {
			return fmt.Errorf("seeding event %s: %w", event.ID, err)
		}
	}

	return nil
}

func mustDate(s string) engine.Date {
	d, err := engine.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}
