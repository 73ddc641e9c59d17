package event

import (
	"reflect"
	"testing"
	"time"

	"github.com/example/calendar-service/internal/calendar"
	"github.com/example/calendar-service/internal/recurrence"
)

func TestDetachProducesStandaloneEvent(t *testing.T) {
	t.Parallel()

	instance := newSeed("series-1-2025-06-09", calendar.NewDate(2025, time.June, 9))
	instance.Generated = true
	instance.GroupID = "group-1"
	instance.Rule = recurrence.Rule{
		Frequency:   recurrence.FrequencyWeekly,
		Interval:    2,
		Termination: recurrence.Count(10),
	}

	detached := Detach(instance)

	if detached.Rule.Frequency != recurrence.FrequencyNone {
		t.Fatalf("detached frequency = %v, want none", detached.Rule.Frequency)
	}
	if detached.Rule.Interval != 1 {
		t.Fatalf("detached interval = %d, want neutral 1", detached.Rule.Interval)
	}
	if detached.GroupID != "" || detached.Generated {
		t.Fatalf("detached event must leave its series, got %+v", detached)
	}

	// Identity and content survive the transition.
	if detached.ID != instance.ID || !detached.Date.Equal(instance.Date) || detached.Title != instance.Title {
		t.Fatalf("detach must not rewrite identity or content, got %+v", detached)
	}

	// The input is untouched.
	if instance.GroupID != "group-1" || !instance.Generated {
		t.Fatalf("detach mutated its input: %+v", instance)
	}
}

func TestDetachIsIdempotent(t *testing.T) {
	t.Parallel()

	instance := newSeed("x", calendar.NewDate(2025, time.June, 9))
	instance.Generated = true
	instance.GroupID = "g"
	instance.Rule = recurrence.Rule{Frequency: recurrence.FrequencyDaily, Interval: 1, Termination: recurrence.Never()}

	once := Detach(instance)
	twice := Detach(once)

	if !sameEvent(once, twice) {
		t.Fatalf("detach is not idempotent: %+v vs %+v", once, twice)
	}
	if twice.Rule.Frequency != recurrence.FrequencyNone {
		t.Fatalf("double detach frequency = %v, want none", twice.Rule.Frequency)
	}
}

func sameEvent(a, b Event) bool {
	return reflect.DeepEqual(a, b)
}
