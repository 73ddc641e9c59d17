// Package ics renders stored calendar events as iCalendar documents for
// subscription feeds and one-off exports.
package ics

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/example/calendar-service/internal/event"
	"github.com/example/calendar-service/internal/recurrence"
)

const productID = "-//calendar-service//KO"

// Export renders events as a VCALENDAR document.
//
// Recurring series appear once, as their seed VEVENT carrying an RRULE and
// the excluded dates as EXDATE; generated instance rows are skipped because
// the rule already describes them. Detached and plain events become plain
// VEVENTs. Events without times are emitted as all-day entries.
func Export(events []event.Event, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	for _, evt := range events {
		if evt.Generated {
			continue
		}
		writeVEvent(cal, evt, now)
	}

	return cal.Serialize()
}

func writeVEvent(cal *ical.Calendar, evt event.Event, now time.Time) {
	ve := cal.AddEvent(evt.ID)
	ve.SetDtStampTime(now.UTC())
	ve.SetSummary(evt.Title)

	if evt.Description != "" {
		ve.SetDescription(evt.Description)
	}
	if evt.Location != "" {
		ve.SetLocation(evt.Location)
	}
	if evt.Category != "" {
		ve.SetProperty(ical.ComponentPropertyCategories, evt.Category)
	}

	start, end, allDay := eventTimes(evt)
	if allDay {
		ve.SetAllDayStartAt(start)
		ve.SetAllDayEndAt(end)
	} else {
		ve.SetStartAt(start)
		ve.SetEndAt(end)
	}

	if evt.IsSeriesSeed() {
		ve.SetProperty(ical.ComponentPropertyRrule, rruleString(evt.Rule))
		if len(evt.Exclusions) > 0 {
			ve.SetProperty(ical.ComponentPropertyExdate, exdateString(evt))
		}
	}
}

// eventTimes resolves the DTSTART/DTEND pair. Events without a parsable
// start time cover the whole day; a missing end defaults to one hour.
func eventTimes(evt event.Event) (time.Time, time.Time, bool) {
	startOfDay, err := time.Parse("15:04", evt.StartTime)
	if err != nil {
		dayStart := evt.Date.Time()
		return dayStart, dayStart.AddDate(0, 0, 1), true
	}

	start := evt.Date.At(startOfDay.Hour(), startOfDay.Minute(), time.UTC)
	endOfDay, err := time.Parse("15:04", evt.EndTime)
	if err != nil {
		return start, start.Add(time.Hour), false
	}
	end := evt.Date.At(endOfDay.Hour(), endOfDay.Minute(), time.UTC)
	if !end.After(start) {
		end = start.Add(time.Hour)
	}
	return start, end, false
}

func rruleString(rule recurrence.Rule) string {
	parts := []string{"FREQ=" + strings.ToUpper(rule.Frequency.String())}
	if rule.Interval > 1 {
		parts = append(parts, fmt.Sprintf("INTERVAL=%d", rule.Interval))
	}
	if until, ok := rule.Termination.UntilDate(); ok {
		parts = append(parts, "UNTIL="+until.Time().Format("20060102T150405Z"))
	}
	if count, ok := rule.Termination.CountValue(); ok {
		parts = append(parts, fmt.Sprintf("COUNT=%d", count))
	}
	return strings.Join(parts, ";")
}

func exdateString(evt event.Event) string {
	dates := make([]string, 0, len(evt.Exclusions))
	for _, excluded := range evt.Exclusions {
		dates = append(dates, excluded.Time().Format("20060102"))
	}
	return strings.Join(dates, ",")
}
