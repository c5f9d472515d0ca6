/*
evaluator.go - Policy rule evaluation

PURPOSE:
  Combines calendar output, available balance, and role thresholds into a
  single recommendation. This is a pure decision: the evaluator reads its
  inputs and returns an Evaluation; it never writes anything.

DECISION PRECEDENCE (holds exactly, in this order):
  1. Any violation              => CanAutoApprove = false
  2. Hard violation present     => Recommendation = DENY
     (insufficient_balance, blackout_conflict are terminal rejections,
      not escalations)
  3. No violations, qty <= threshold => AUTO_APPROVE
  4. No violations, qty >  threshold => ESCALATE

INVARIANT (tested):
  CanAutoApprove => !RequiresEscalation => len(Violations) == 0

VIOLATIONS ARE NOT ERRORS:
  A policy violation is a first-class field of the result. Errors from
  Evaluate mean the input was malformed (bad range, missing payload), not
  that policy said no.

SEE ALSO:
  - calendar.go: Business-day quantities and blackout detection
  - thresholds.go: Role/type threshold resolution
*/
package engine

// Violation identifies a policy rule the draft breaks.
type Violation string

const (
	ViolationInsufficientBalance Violation = "insufficient_balance"
	ViolationBlackoutConflict    Violation = "blackout_conflict"
)

// Recommendation is the evaluator's verdict.
type Recommendation string

const (
	RecommendAutoApprove Recommendation = "AUTO_APPROVE"
	RecommendEscalate    Recommendation = "ESCALATE"
	RecommendDeny        Recommendation = "DENY"
)

// Evaluation is the full evaluator output.
type Evaluation struct {
	IsValid            bool
	CanAutoApprove     bool
	RequiresEscalation bool
	Violations         []Violation
	Recommendation     Recommendation

	// Quantity is what the request consumes: business days for PTO,
	// the requested amount for expenses.
	Quantity  Amount
	Threshold Amount

	// Calendar is set for PTO drafts only.
	Calendar *BusinessDayReport
}

// Evaluator applies policy rules to request drafts.
type Evaluator struct {
	Thresholds ThresholdSource
}

// Evaluate validates the draft against the available balance (leave days
// for PTO, remaining category budget for expenses), the calendar, and the
// employee's threshold. events should cover the draft's date range for
// PTO; it is ignored for expenses.
func (e *Evaluator) Evaluate(draft RequestDraft, level Level, available Amount, events []CalendarEvent) (*Evaluation, error) {
	quantity, calendar, violations, err := e.quantify(draft, events)
	if err != nil {
		return nil, err
	}

	if quantity.GreaterThan(available) {
		violations = append(violations, ViolationInsufficientBalance)
	}

	threshold := ResolveThreshold(e.Thresholds, draft.Type, level)

	eval := &Evaluation{
		IsValid:    len(violations) == 0,
		Violations: violations,
		Quantity:   quantity,
		Threshold:  threshold,
		Calendar:   calendar,
	}

	switch {
	case len(violations) > 0:
		// Hard violations are terminal rejections, never escalations.
		eval.Recommendation = RecommendDeny
	case quantity.GreaterThan(threshold):
		eval.RequiresEscalation = true
		eval.Recommendation = RecommendEscalate
	default:
		eval.CanAutoApprove = true
		eval.Recommendation = RecommendAutoApprove
	}

	return eval, nil
}

// quantify computes the consumed quantity and collects payload-specific
// violations. Malformed payloads are errors, not violations.
func (e *Evaluator) quantify(draft RequestDraft, events []CalendarEvent) (Amount, *BusinessDayReport, []Violation, error) {
	switch draft.Type {
	case TypePTO:
		if draft.DateRange == nil {
			return Amount{}, nil, nil, &ValidationError{Field: "date_range", Message: "required for pto requests"}
		}
		report, err := ComputeBusinessDays(draft.DateRange.Start, draft.DateRange.End, events)
		if err != nil {
			return Amount{}, nil, nil, err
		}

		var violations []Violation
		if len(BlackoutConflicts(*draft.DateRange, events)) > 0 {
			violations = append(violations, ViolationBlackoutConflict)
		}
		return NewAmountFromInt(report.BusinessDays, UnitDays), report, violations, nil

	case TypeExpense:
		if !draft.Amount.IsPositive() {
			return Amount{}, nil, nil, &ValidationError{Field: "amount", Message: "must be positive"}
		}
		if draft.Category == "" {
			return Amount{}, nil, nil, &ValidationError{Field: "category", Message: "required for expense requests"}
		}
		return draft.Amount, nil, nil, nil

	default:
		return Amount{}, nil, nil, &ValidationError{Field: "type", Message: "unknown request type"}
	}
}
