package event

import (
	"testing"
	"time"

	"github.com/example/calendar-service/internal/calendar"
	"github.com/example/calendar-service/internal/recurrence"
)

func TestProjectMergesPlainAndRecurringEvents(t *testing.T) {
	t.Parallel()

	projector := NewProjector(NewMaterializer(recurrence.NewEngine(nil), func() string { return "g" }))

	plain := newSeed("plain-1", calendar.NewDate(2025, time.June, 10))

	series := newSeed("series-1", calendar.NewDate(2025, time.May, 19))
	series.GroupID = "series-group"
	series.Rule = recurrence.Rule{
		Frequency:   recurrence.FrequencyWeekly,
		Interval:    1,
		Termination: recurrence.Until(calendar.NewDate(2025, time.August, 31)),
	}

	outside := newSeed("plain-2", calendar.NewDate(2025, time.July, 1))

	windowStart := calendar.NewDate(2025, time.June, 1)
	windowEnd := calendar.NewDate(2025, time.June, 30)
	projected, err := projector.Project([]Event{plain, series, outside}, windowStart, windowEnd)
	if err != nil {
		t.Fatalf("Project returned error: %v", err)
	}

	want := []string{
		"series-1-2025-06-02", // Mondays of June
		"series-1-2025-06-09",
		"plain-1",
		"series-1-2025-06-16",
		"series-1-2025-06-23",
		"series-1-2025-06-30",
	}
	if len(projected) != len(want) {
		t.Fatalf("projected %d events, want %d: %+v", len(projected), len(want), projected)
	}
	for i, id := range want {
		if projected[i].ID != id {
			t.Fatalf("projected[%d].ID = %s, want %s", i, projected[i].ID, id)
		}
	}

	for i := 1; i < len(projected); i++ {
		if projected[i].Date.Before(projected[i-1].Date) {
			t.Fatalf("projection not sorted ascending at %d", i)
		}
	}
}

func TestProjectDropsExcludedDates(t *testing.T) {
	t.Parallel()

	projector := NewProjector(NewMaterializer(recurrence.NewEngine(nil), nil))

	series := newSeed("series-2", calendar.NewDate(2025, time.June, 2))
	series.GroupID = "g2"
	series.Rule = recurrence.Rule{
		Frequency:   recurrence.FrequencyWeekly,
		Interval:    1,
		Termination: recurrence.Never(),
	}
	series.Exclusions = []calendar.Date{calendar.NewDate(2025, time.June, 9)}

	projected, err := projector.Project([]Event{series},
		calendar.NewDate(2025, time.June, 1), calendar.NewDate(2025, time.June, 30))
	if err != nil {
		t.Fatalf("Project returned error: %v", err)
	}

	for _, instance := range projected {
		if instance.Date.Equal(calendar.NewDate(2025, time.June, 9)) {
			t.Fatalf("excluded date leaked into projection: %+v", instance)
		}
	}
	if len(projected) != 4 {
		t.Fatalf("projected %d events, want 4 Mondays after exclusion", len(projected))
	}
}

func TestProjectSameDateKeepsInputOrder(t *testing.T) {
	t.Parallel()

	projector := NewProjector(nil)
	date := calendar.NewDate(2025, time.June, 10)

	first := newSeed("a", date)
	second := newSeed("b", date)

	projected, err := projector.Project([]Event{first, second}, date, date)
	if err != nil {
		t.Fatalf("Project returned error: %v", err)
	}
	if len(projected) != 2 || projected[0].ID != "a" || projected[1].ID != "b" {
		t.Fatalf("expected stable input order for same-date events, got %+v", projected)
	}
}

func TestProjectEmptyWindow(t *testing.T) {
	t.Parallel()

	projector := NewProjector(nil)
	events := []Event{newSeed("a", calendar.NewDate(2025, time.June, 10))}

	projected, err := projector.Project(events,
		calendar.NewDate(2025, time.June, 20), calendar.NewDate(2025, time.June, 10))
	if err != nil {
		t.Fatalf("Project returned error: %v", err)
	}
	if len(projected) != 0 {
		t.Fatalf("inverted window should project nothing, got %+v", projected)
	}
}

func TestProjectMatchesFullExpansion(t *testing.T) {
	t.Parallel()

	engine := recurrence.NewEngine(nil)
	projector := NewProjector(NewMaterializer(engine, nil))

	series := newSeed("series-3", calendar.NewDate(2025, time.January, 31))
	series.GroupID = "g3"
	series.Rule = recurrence.Rule{
		Frequency:   recurrence.FrequencyMonthly,
		Interval:    1,
		Termination: recurrence.Until(calendar.NewDate(2026, time.December, 31)),
	}

	full, err := engine.Expand(series.Date, series.Rule, recurrence.Options{})
	if err != nil {
		t.Fatalf("full expansion failed: %v", err)
	}

	windowStart := calendar.NewDate(2025, time.April, 1)
	windowEnd := calendar.NewDate(2025, time.September, 30)
	projected, err := projector.Project([]Event{series}, windowStart, windowEnd)
	if err != nil {
		t.Fatalf("Project returned error: %v", err)
	}

	manual := make([]calendar.Date, 0)
	for _, d := range full {
		if !d.Before(windowStart) && !d.After(windowEnd) {
			manual = append(manual, d)
		}
	}
	if len(projected) != len(manual) {
		t.Fatalf("projection size = %d, want %d", len(projected), len(manual))
	}
	for i := range manual {
		if !projected[i].Date.Equal(manual[i]) {
			t.Fatalf("projected[%d].Date = %v, want %v", i, projected[i].Date, manual[i])
		}
	}
}
