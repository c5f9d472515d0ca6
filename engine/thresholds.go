/*
thresholds.go - Role- and type-specific auto-approval thresholds

PURPOSE:
  Thresholds are data, not constants. The ThresholdSource interface is the
  seam for the external policy-lookup collaborator (handbook service); the
  numeric defaults below are the documented fallback when the lookup has
  no answer.

DEFAULTS:
  pto/standard       3 business days
  pto/elevated      10 business days
  expense/standard  $100
  expense/elevated  $1000
*/
package engine

// ThresholdSource resolves the auto-approval threshold for a request
// type and employee level. The second return is false when the source
// has no entry, in which case the evaluator falls back to defaults.
type ThresholdSource interface {
	Threshold(requestType RequestType, level Level) (Amount, bool)
}

// StaticThresholds is a map-backed ThresholdSource. It backs both the
// built-in defaults and config-file overrides.
type StaticThresholds map[RequestType]map[Level]Amount

func (s StaticThresholds) Threshold(requestType RequestType, level Level) (Amount, bool) {
	byLevel, ok := s[requestType]
	if !ok {
		return Amount{}, false
	}
	amount, ok := byLevel[level]
	return amount, ok
}

// DefaultThresholds returns the fallback threshold table.
func DefaultThresholds() StaticThresholds {
	return StaticThresholds{
		TypePTO: {
			LevelStandard: NewAmountFromInt(3, UnitDays),
			LevelElevated: NewAmountFromInt(10, UnitDays),
		},
		TypeExpense: {
			LevelStandard: NewAmountFromInt(100, UnitUSD),
			LevelElevated: NewAmountFromInt(1000, UnitUSD),
		},
	}
}

// ResolveThreshold consults the source and falls back to defaults when the
// source is nil or has no entry.
func ResolveThreshold(source ThresholdSource, requestType RequestType, level Level) Amount {
	if source != nil {
		if amount, ok := source.Threshold(requestType, level); ok {
			return amount
		}
	}
	amount, _ := DefaultThresholds().Threshold(requestType, level)
	return amount
}
