/*
calendar.go - Business calendar computation

PURPOSE:
  Pure calendar math over an inclusive date range and a holiday/blackout
  set. The evaluator uses this to convert a PTO date range into a business
  day quantity and to detect blackout overlaps.

BUCKETING RULES:
  Each day in [start, end] lands in exactly one bucket:
  1. Weekend (Saturday/Sunday) - takes precedence over holiday
  2. Holiday (date inside a CalendarEvent of kind holiday)
  3. Business day (everything else)

  The returned Holidays slice is the distinct set of holiday dates actually
  encountered in range, not the full calendar.

INVARIANT (tested):
  businessDays + weekendDays + len(holidays) == total inclusive days

SEE ALSO:
  - evaluator.go: Consumes BusinessDayReport for PTO quantities
*/
package engine

// BusinessDayReport is the result of ComputeBusinessDays.
type BusinessDayReport struct {
	BusinessDays int
	WeekendDays  int
	Holidays     []Date // distinct weekday holiday dates in range
}

// ComputeBusinessDays walks each calendar day in the inclusive range and
// buckets it as weekend, holiday, or business day. Weekend takes
// precedence: a holiday landing on a Saturday counts as a weekend day.
func ComputeBusinessDays(start, end Date, events []CalendarEvent) (*BusinessDayReport, error) {
	if start.After(end) {
		return nil, &InvalidRangeError{Start: start, End: end}
	}

	report := &BusinessDayReport{}
	seen := make(map[string]bool)

	for d := start; !d.After(end); d = d.AddDays(1) {
		if d.IsWeekend() {
			report.WeekendDays++
			continue
		}
		if isHoliday(d, events) {
			if !seen[d.String()] {
				seen[d.String()] = true
				report.Holidays = append(report.Holidays, d)
			}
			continue
		}
		report.BusinessDays++
	}

	return report, nil
}

func isHoliday(d Date, events []CalendarEvent) bool {
	for _, e := range events {
		if e.Kind == KindHoliday && e.Range().Contains(d) {
			return true
		}
	}
	return false
}

// BlackoutConflicts returns the blackout events whose span overlaps the
// requested range, inclusive on both ends.
func BlackoutConflicts(rng DateRange, events []CalendarEvent) []CalendarEvent {
	var conflicts []CalendarEvent
	for _, e := range events {
		if e.Kind == KindBlackout && rng.Overlaps(e.Range()) {
			conflicts = append(conflicts, e)
		}
	}
	return conflicts
}
