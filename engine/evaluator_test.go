package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/approval-engine/engine"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newEvaluator() *engine.Evaluator {
	return &engine.Evaluator{Thresholds: engine.DefaultThresholds()}
}

func ptoDraft(employeeID string, start, end engine.Date) engine.RequestDraft {
	return engine.RequestDraft{
		EmployeeID: engine.EmployeeID(employeeID),
		Type:       engine.TypePTO,
		DateRange:  &engine.DateRange{Start: start, End: end},
	}
}

func expenseDraft(employeeID string, amount float64, category string) engine.RequestDraft {
	return engine.RequestDraft{
		EmployeeID: engine.EmployeeID(employeeID),
		Type:       engine.TypeExpense,
		Amount:     engine.NewAmount(amount, engine.UnitUSD),
		Category:   category,
	}
}

func days(n int) engine.Amount { return engine.NewAmountFromInt(n, engine.UnitDays) }
func usd(n int) engine.Amount  { return engine.NewAmountFromInt(n, engine.UnitUSD) }

// =============================================================================
// PTO DECISIONS
// =============================================================================

func TestEvaluate_PTO_UnderThreshold_AutoApproved(t *testing.T) {
	// GIVEN: Standard employee, 3 business days (Wed-Fri), balance 10
	// WHEN: Evaluating
	// THEN: Auto-approve; 3 days does not exceed the standard threshold of 3

	draft := ptoDraft("emp-1",
		engine.NewDate(2025, time.December, 3),
		engine.NewDate(2025, time.December, 5))

	eval, err := newEvaluator().Evaluate(draft, engine.LevelStandard, days(10), nil)
	require.NoError(t, err)

	assert.True(t, eval.IsValid)
	assert.True(t, eval.CanAutoApprove)
	assert.False(t, eval.RequiresEscalation)
	assert.Equal(t, engine.RecommendAutoApprove, eval.Recommendation)
	assert.True(t, eval.Quantity.Equal(days(3)))
}

func TestEvaluate_PTO_OverThreshold_Escalates(t *testing.T) {
	// GIVEN: Standard employee, Mon Dec 1 through Fri Dec 5 (5 business days)
	// WHEN: Evaluating with ample balance
	// THEN: Valid but escalates; 5 exceeds the standard threshold of 3

	draft := ptoDraft("emp-1",
		engine.NewDate(2025, time.December, 1),
		engine.NewDate(2025, time.December, 5))

	eval, err := newEvaluator().Evaluate(draft, engine.LevelStandard, days(10), nil)
	require.NoError(t, err)

	assert.True(t, eval.IsValid)
	assert.False(t, eval.CanAutoApprove)
	assert.True(t, eval.RequiresEscalation)
	assert.Equal(t, engine.RecommendEscalate, eval.Recommendation)
}

func TestEvaluate_PTO_ElevatedThreshold_SameRangeAutoApproved(t *testing.T) {
	// GIVEN: The same 5 business day range, but an elevated employee
	// WHEN: Evaluating
	// THEN: Auto-approve; elevated threshold is 10 days

	draft := ptoDraft("emp-2",
		engine.NewDate(2025, time.December, 1),
		engine.NewDate(2025, time.December, 5))

	eval, err := newEvaluator().Evaluate(draft, engine.LevelElevated, days(20), nil)
	require.NoError(t, err)

	assert.True(t, eval.CanAutoApprove)
	assert.Equal(t, engine.RecommendAutoApprove, eval.Recommendation)
}

func TestEvaluate_PTO_InsufficientBalance_Denied(t *testing.T) {
	// GIVEN: 3 business days requested, only 2 days of balance
	// WHEN: Evaluating
	// THEN: insufficient_balance violation and a DENY recommendation

	draft := ptoDraft("emp-1",
		engine.NewDate(2025, time.December, 3),
		engine.NewDate(2025, time.December, 5))

	eval, err := newEvaluator().Evaluate(draft, engine.LevelStandard, days(2), nil)
	require.NoError(t, err)

	assert.False(t, eval.IsValid)
	assert.Contains(t, eval.Violations, engine.ViolationInsufficientBalance)
	assert.Equal(t, engine.RecommendDeny, eval.Recommendation)
	assert.False(t, eval.RequiresEscalation, "hard violations never escalate")
}

func TestEvaluate_PTO_BlackoutConflict_Denied(t *testing.T) {
	// GIVEN: A request overlapping a blackout period by one day
	// WHEN: Evaluating with ample balance
	// THEN: blackout_conflict violation and a DENY recommendation

	draft := ptoDraft("emp-1",
		engine.NewDate(2025, time.December, 26),
		engine.NewDate(2025, time.December, 29))

	events := []engine.CalendarEvent{{
		ID:        "evt-q4",
		Kind:      engine.KindBlackout,
		StartDate: engine.NewDate(2025, time.December, 29),
		EndDate:   engine.NewDate(2025, time.December, 31),
		Name:      "Q4 close",
	}}

	eval, err := newEvaluator().Evaluate(draft, engine.LevelStandard, days(30), events)
	require.NoError(t, err)

	assert.Contains(t, eval.Violations, engine.ViolationBlackoutConflict)
	assert.Equal(t, engine.RecommendDeny, eval.Recommendation)
}

func TestEvaluate_PTO_WeekendOnly_ZeroQuantityAutoApproved(t *testing.T) {
	// GIVEN: A Saturday-Sunday range consuming zero business days
	// WHEN: Evaluating
	// THEN: Quantity is zero and the request auto-approves

	draft := ptoDraft("emp-1",
		engine.NewDate(2025, time.December, 6),
		engine.NewDate(2025, time.December, 7))

	eval, err := newEvaluator().Evaluate(draft, engine.LevelStandard, days(1), nil)
	require.NoError(t, err)

	assert.True(t, eval.Quantity.IsZero())
	assert.True(t, eval.CanAutoApprove)
}

func TestEvaluate_PTO_MissingRange_IsError(t *testing.T) {
	// GIVEN: A PTO draft without a date range
	// WHEN: Evaluating
	// THEN: A validation error, not a violation

	draft := engine.RequestDraft{EmployeeID: "emp-1", Type: engine.TypePTO}

	eval, err := newEvaluator().Evaluate(draft, engine.LevelStandard, days(10), nil)

	assert.Nil(t, eval)
	assert.ErrorIs(t, err, engine.ErrValidation)
}

func TestEvaluate_PTO_InvertedRange_IsError(t *testing.T) {
	// GIVEN: A PTO draft whose start is after its end
	// WHEN: Evaluating
	// THEN: InvalidRangeError surfaces from the calendar

	draft := ptoDraft("emp-1",
		engine.NewDate(2025, time.December, 10),
		engine.NewDate(2025, time.December, 5))

	_, err := newEvaluator().Evaluate(draft, engine.LevelStandard, days(10), nil)
	assert.ErrorIs(t, err, engine.ErrInvalidRange)
}

// =============================================================================
// EXPENSE DECISIONS
// =============================================================================

func TestEvaluate_Expense_UnderThreshold_AutoApproved(t *testing.T) {
	// GIVEN: Standard employee, $100 expense, budget remaining $500
	// WHEN: Evaluating
	// THEN: Auto-approve; $100 does not exceed the $100 threshold

	draft := expenseDraft("emp-1", 100, "travel")

	eval, err := newEvaluator().Evaluate(draft, engine.LevelStandard, usd(500), nil)
	require.NoError(t, err)

	assert.True(t, eval.CanAutoApprove)
	assert.Equal(t, engine.RecommendAutoApprove, eval.Recommendation)
}

func TestEvaluate_Expense_OverThreshold_Escalates(t *testing.T) {
	// GIVEN: Standard employee, $250 expense, ample budget
	// WHEN: Evaluating
	// THEN: Escalate; $250 exceeds the $100 standard threshold

	draft := expenseDraft("emp-1", 250, "travel")

	eval, err := newEvaluator().Evaluate(draft, engine.LevelStandard, usd(2000), nil)
	require.NoError(t, err)

	assert.True(t, eval.RequiresEscalation)
	assert.Equal(t, engine.RecommendEscalate, eval.Recommendation)
}

func TestEvaluate_Expense_OverBudget_Denied(t *testing.T) {
	// GIVEN: A $250 expense against only $200 of remaining budget
	// WHEN: Evaluating
	// THEN: insufficient_balance violation and a DENY recommendation

	draft := expenseDraft("emp-1", 250, "travel")

	eval, err := newEvaluator().Evaluate(draft, engine.LevelStandard, usd(200), nil)
	require.NoError(t, err)

	assert.Contains(t, eval.Violations, engine.ViolationInsufficientBalance)
	assert.Equal(t, engine.RecommendDeny, eval.Recommendation)
}

func TestEvaluate_Expense_NonPositiveAmount_IsError(t *testing.T) {
	// GIVEN: A zero-amount expense
	// WHEN: Evaluating
	// THEN: A validation error about the amount

	draft := engine.RequestDraft{EmployeeID: "emp-1", Type: engine.TypeExpense, Category: "travel"}

	_, err := newEvaluator().Evaluate(draft, engine.LevelStandard, usd(500), nil)

	var valErr *engine.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "amount", valErr.Field)
}

func TestEvaluate_Expense_MissingCategory_IsError(t *testing.T) {
	// GIVEN: An expense draft without a category
	// WHEN: Evaluating
	// THEN: A validation error about the category

	draft := engine.RequestDraft{
		EmployeeID: "emp-1",
		Type:       engine.TypeExpense,
		Amount:     engine.NewAmount(50, engine.UnitUSD),
	}

	_, err := newEvaluator().Evaluate(draft, engine.LevelStandard, usd(500), nil)

	var valErr *engine.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "category", valErr.Field)
}

// =============================================================================
// DECISION INVARIANT
// =============================================================================

func TestEvaluate_DecisionFlagsAreMutuallyConsistent(t *testing.T) {
	// GIVEN: Drafts covering every decision branch
	// WHEN: Evaluating each
	// THEN: CanAutoApprove implies no escalation and no violations,
	//       and exactly one outcome flag fits the recommendation

	cases := []struct {
		name      string
		draft     engine.RequestDraft
		level     engine.Level
		available engine.Amount
	}{
		{"auto approve", ptoDraft("e", engine.NewDate(2025, time.December, 3), engine.NewDate(2025, time.December, 5)), engine.LevelStandard, days(10)},
		{"escalate", ptoDraft("e", engine.NewDate(2025, time.December, 1), engine.NewDate(2025, time.December, 5)), engine.LevelStandard, days(10)},
		{"deny", ptoDraft("e", engine.NewDate(2025, time.December, 1), engine.NewDate(2025, time.December, 5)), engine.LevelStandard, days(1)},
		{"expense auto", expenseDraft("e", 50, "travel"), engine.LevelStandard, usd(500)},
		{"expense escalate", expenseDraft("e", 500, "travel"), engine.LevelStandard, usd(2000)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			eval, err := newEvaluator().Evaluate(tc.draft, tc.level, tc.available, nil)
			require.NoError(t, err)

			if eval.CanAutoApprove {
				assert.False(t, eval.RequiresEscalation)
				assert.Empty(t, eval.Violations)
			}
			if eval.RequiresEscalation {
				assert.Empty(t, eval.Violations)
			}
			if len(eval.Violations) > 0 {
				assert.Equal(t, engine.RecommendDeny, eval.Recommendation)
			}
			assert.Equal(t, eval.IsValid, len(eval.Violations) == 0)
		})
	}
}
