package recurrence

import (
	"github.com/example/calendar-service/internal/calendar"
)

// Options defines optional range bounds for occurrence expansion. When a
// range is supplied the engine only returns occurrences inside it, without
// materializing the rest of the series.
type Options struct {
	RangeStart *calendar.Date
	RangeEnd   *calendar.Date
}

// Engine expands recurrence rules into ordered occurrence dates.
type Engine struct {
	horizon    calendar.Date
	hasHorizon bool
}

// NewEngine constructs an Engine. The optional horizon bounds open-ended
// rules when the caller supplies no window; it is host configuration, not a
// compiled-in constant.
func NewEngine(horizon *calendar.Date) *Engine {
	e := &Engine{}
	if horizon != nil {
		e.horizon = *horizon
		e.hasHorizon = true
	}
	return e
}

// Expand produces the ordered, duplicate-free occurrence dates of a rule
// anchored at start.
//
// The engine enforces the following semantics:
//   - The first occurrence is the start date itself whenever it satisfies
//     the rule's bounds.
//   - Monthly and yearly steps re-target the seed day each step; a step whose
//     target day does not exist in the target month is clamped to that
//     month's last day for that step only.
//   - An Until bound earlier than start yields an empty, non-error result.
//   - Count rules yield exactly their count of dates; clamped steps still
//     count as one occurrence.
//   - Open-ended rules without a window fall back to the engine horizon and
//     fail with ErrUnboundedRule when none is configured.
func (e *Engine) Expand(start calendar.Date, rule Rule, opts Options) ([]calendar.Date, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	var rangeStart, rangeEnd calendar.Date
	hasRangeStart := opts.RangeStart != nil
	hasRangeEnd := opts.RangeEnd != nil
	if hasRangeStart {
		rangeStart = *opts.RangeStart
	}
	if hasRangeEnd {
		rangeEnd = *opts.RangeEnd
	}

	if !rule.Frequency.IsRecurring() {
		if hasRangeStart && start.Before(rangeStart) {
			return nil, nil
		}
		if hasRangeEnd && start.After(rangeEnd) {
			return nil, nil
		}
		return []calendar.Date{start}, nil
	}

	// Resolve the inclusive upper bound for step generation. Count rules are
	// bounded by their step count; everything else needs a date bound.
	upperBound := calendar.Date{}
	hasUpper := false
	if until, ok := rule.Termination.UntilDate(); ok {
		upperBound = until
		hasUpper = true
	}
	if hasRangeEnd && (!hasUpper || rangeEnd.Before(upperBound)) {
		upperBound = rangeEnd
		hasUpper = true
	}
	maxSteps, countBounded := rule.Termination.CountValue()
	if !hasUpper && !countBounded {
		if !e.hasHorizon {
			return nil, ErrUnboundedRule
		}
		upperBound = e.horizon
		hasUpper = true
	}

	occurrences := make([]calendar.Date, 0)
	for step := 0; ; step++ {
		if countBounded && step >= maxSteps {
			break
		}

		occurrence, err := occurrenceAt(start, rule, step)
		if err != nil {
			return nil, err
		}
		if hasUpper && occurrence.After(upperBound) {
			break
		}
		if hasRangeStart && occurrence.Before(rangeStart) {
			continue
		}
		occurrences = append(occurrences, occurrence)
	}

	return occurrences, nil
}

// occurrenceAt computes the date of a single step. Each step targets the
// seed's original day-of-month (and month, for yearly rules) and clamps only
// when the target month is too short, so a clamped step never shifts the
// steps that follow it.
func occurrenceAt(start calendar.Date, rule Rule, step int) (calendar.Date, error) {
	switch rule.Frequency {
	case FrequencyDaily:
		return start.AddDays(step * rule.Interval), nil
	case FrequencyWeekly:
		return start.AddWeeks(step * rule.Interval), nil
	case FrequencyMonthly:
		return clampToMonth(start.AddMonths(step * rule.Interval))
	case FrequencyYearly:
		return clampToMonth(start.AddYears(step * rule.Interval))
	default:
		return calendar.Date{}, ErrInvalidFrequency
	}
}

// clampToMonth substitutes the month's last day when the target day does not
// exist, e.g. February 31 or February 29 outside leap years.
func clampToMonth(target calendar.Date) (calendar.Date, error) {
	days, err := calendar.DaysInMonth(target.Year, target.Month)
	if err != nil {
		return calendar.Date{}, err
	}
	if target.Day > days {
		target.Day = days
	}
	return target, nil
}
