package recurrence

import (
	"errors"
	"fmt"
	"strings"

	"github.com/example/calendar-service/internal/calendar"
)

// Frequency represents the repetition unit of a recurrence rule.
type Frequency int

const (
	// FrequencyUnspecified indicates the rule frequency is not set.
	FrequencyUnspecified Frequency = iota
	// FrequencyNone marks a non-repeating event; expansion yields only the seed date.
	FrequencyNone
	// FrequencyDaily repeats every Interval days.
	FrequencyDaily
	// FrequencyWeekly repeats every Interval weeks.
	FrequencyWeekly
	// FrequencyMonthly repeats every Interval months, targeting the seed day-of-month.
	FrequencyMonthly
	// FrequencyYearly repeats every Interval years, targeting the seed month and day.
	FrequencyYearly
)

// ParseFrequency maps the wire representation onto a Frequency.
func ParseFrequency(value string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "none":
		return FrequencyNone, nil
	case "daily":
		return FrequencyDaily, nil
	case "weekly":
		return FrequencyWeekly, nil
	case "monthly":
		return FrequencyMonthly, nil
	case "yearly":
		return FrequencyYearly, nil
	default:
		return FrequencyUnspecified, fmt.Errorf("%w: %q", ErrInvalidFrequency, value)
	}
}

// String renders the frequency in its wire representation.
func (f Frequency) String() string {
	switch f {
	case FrequencyNone:
		return "none"
	case FrequencyDaily:
		return "daily"
	case FrequencyWeekly:
		return "weekly"
	case FrequencyMonthly:
		return "monthly"
	case FrequencyYearly:
		return "yearly"
	default:
		return "unspecified"
	}
}

// IsRecurring reports whether the frequency produces more than the seed date.
func (f Frequency) IsRecurring() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	default:
		return false
	}
}

// TerminationKind discriminates the three ways a series can end.
type TerminationKind int

const (
	// TerminationNever leaves the series open ended; expansion requires a
	// window or a configured horizon.
	TerminationNever TerminationKind = iota
	// TerminationUntil bounds the series by an inclusive end date.
	TerminationUntil
	// TerminationCount bounds the series by an exact occurrence count.
	TerminationCount
)

// Termination is the tagged end condition of a rule. Exactly one of the three
// kinds is active; construct values through Never, Until or Count.
type Termination struct {
	kind  TerminationKind
	until calendar.Date
	count int
}

// Never returns an open-ended termination.
func Never() Termination {
	return Termination{kind: TerminationNever}
}

// Until returns a termination bounded by an inclusive end date.
func Until(date calendar.Date) Termination {
	return Termination{kind: TerminationUntil, until: date}
}

// Count returns a termination bounded by an exact number of occurrences.
func Count(n int) Termination {
	return Termination{kind: TerminationCount, count: n}
}

// NewTermination builds a Termination from the optional fields a form layer
// collects. Supplying both an end date and a count is rejected rather than
// silently preferring one.
func NewTermination(until *calendar.Date, count *int) (Termination, error) {
	switch {
	case until != nil && count != nil:
		return Termination{}, ErrAmbiguousTermination
	case until != nil:
		return Until(*until), nil
	case count != nil:
		return Count(*count), nil
	default:
		return Never(), nil
	}
}

// Kind returns the active termination variant.
func (t Termination) Kind() TerminationKind { return t.kind }

// UntilDate returns the inclusive end date when the kind is TerminationUntil.
func (t Termination) UntilDate() (calendar.Date, bool) {
	return t.until, t.kind == TerminationUntil
}

// CountValue returns the occurrence count when the kind is TerminationCount.
func (t Termination) CountValue() (int, bool) {
	return t.count, t.kind == TerminationCount
}

// Rule describes how a seed date repeats.
type Rule struct {
	Frequency   Frequency
	Interval    int
	Termination Termination
}

// None is the rule carried by non-repeating events.
func None() Rule {
	return Rule{Frequency: FrequencyNone, Interval: 1, Termination: Never()}
}

var (
	// ErrInvalidFrequency indicates an unsupported recurrence frequency.
	ErrInvalidFrequency = errors.New("recurrence: invalid frequency")
	// ErrInvalidInterval indicates an interval below one.
	ErrInvalidInterval = errors.New("recurrence: interval must be at least 1")
	// ErrInvalidCount indicates a count termination below one.
	ErrInvalidCount = errors.New("recurrence: occurrence count must be at least 1")
	// ErrAmbiguousTermination indicates both an end date and a count were supplied.
	ErrAmbiguousTermination = errors.New("recurrence: end date and count are mutually exclusive")
	// ErrUnboundedRule indicates an open-ended rule was expanded without a
	// window or a configured horizon.
	ErrUnboundedRule = errors.New("recurrence: open-ended rule requires a window or default horizon")
)

// Validate rejects rules that would produce an undefined or unbounded series.
// A FrequencyNone rule always validates; it expands to the seed date alone.
func (r Rule) Validate() error {
	switch r.Frequency {
	case FrequencyNone:
		return nil
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
	default:
		return ErrInvalidFrequency
	}
	if r.Interval < 1 {
		return ErrInvalidInterval
	}
	if n, ok := r.Termination.CountValue(); ok && n < 1 {
		return ErrInvalidCount
	}
	return nil
}
