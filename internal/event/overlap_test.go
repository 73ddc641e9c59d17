package event

import (
	"testing"
	"time"

	"github.com/example/calendar-service/internal/calendar"
)

func TestDetectOverlapsSameDayCollision(t *testing.T) {
	t.Parallel()

	date := calendar.NewDate(2025, time.June, 10)

	existing := newSeed("a", date)
	existing.StartTime = "10:00"
	existing.EndTime = "11:00"

	candidate := newSeed("b", date)
	candidate.StartTime = "10:30"
	candidate.EndTime = "12:00"

	warnings := DetectOverlaps([]Event{existing}, candidate)
	if len(warnings) != 1 {
		t.Fatalf("warning count = %d, want 1", len(warnings))
	}
	if warnings[0].EventID != "b" || warnings[0].WithEventID != "a" {
		t.Fatalf("unexpected warning %+v", warnings[0])
	}
	if warnings[0].Date != "2025-06-10" {
		t.Fatalf("warning date = %q, want 2025-06-10", warnings[0].Date)
	}
}

func TestDetectOverlapsIgnoresAdjacentAndOtherDays(t *testing.T) {
	t.Parallel()

	date := calendar.NewDate(2025, time.June, 10)

	backToBack := newSeed("a", date)
	backToBack.StartTime = "09:00"
	backToBack.EndTime = "10:00"

	otherDay := newSeed("c", date.AddDays(1))
	otherDay.StartTime = "10:00"
	otherDay.EndTime = "11:00"

	candidate := newSeed("b", date)
	candidate.StartTime = "10:00"
	candidate.EndTime = "11:00"

	if warnings := DetectOverlaps([]Event{backToBack, otherDay}, candidate); warnings != nil {
		t.Fatalf("expected no warnings, got %+v", warnings)
	}
}

func TestDetectOverlapsSkipsSelf(t *testing.T) {
	t.Parallel()

	date := calendar.NewDate(2025, time.June, 10)
	candidate := newSeed("a", date)

	if warnings := DetectOverlaps([]Event{candidate}, candidate); warnings != nil {
		t.Fatalf("an event must not collide with itself, got %+v", warnings)
	}
}

func TestDetectOverlapsAllDayFallback(t *testing.T) {
	t.Parallel()

	date := calendar.NewDate(2025, time.June, 10)

	allDay := newSeed("a", date)
	allDay.StartTime = ""
	allDay.EndTime = ""

	candidate := newSeed("b", date)
	candidate.StartTime = "16:00"
	candidate.EndTime = "17:00"

	warnings := DetectOverlaps([]Event{allDay}, candidate)
	if len(warnings) != 1 {
		t.Fatalf("all-day event should collide with any timed event, got %+v", warnings)
	}
}
