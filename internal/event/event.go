package event

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/example/calendar-service/internal/calendar"
	"github.com/example/calendar-service/internal/recurrence"
)

// Event is a single displayable calendar entry. A recurring series is stored
// as its seed event plus one generated sibling per later occurrence; all of
// them share a GroupID.
type Event struct {
	ID                 string
	OwnerID            string
	Title              string
	Date               calendar.Date
	StartTime          string
	EndTime            string
	Description        string
	Location           string
	Category           string
	NotificationOffset int
	Rule               recurrence.Rule
	GroupID            string
	Generated          bool
	Exclusions         []calendar.Date
}

// IsSeriesSeed reports whether the event anchors a recurring series.
func (e Event) IsSeriesSeed() bool {
	return e.Rule.Frequency.IsRecurring() && !e.Generated
}

// Excludes reports whether the date is on the event's skip list.
func (e Event) Excludes(date calendar.Date) bool {
	for _, excluded := range e.Exclusions {
		if excluded.Equal(date) {
			return true
		}
	}
	return false
}

// InstanceID derives the identity of a generated occurrence. It is stable
// for a given seed and date, so re-projecting a window yields the same IDs
// as save-time bulk generation.
func InstanceID(seedID string, date calendar.Date) string {
	return seedID + "-" + date.String()
}

// minutesOfDay parses a 15:04 clock value into minutes since midnight.
func minutesOfDay(value string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(value), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("event: invalid clock value %q", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("event: invalid hour in %q", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("event: invalid minute in %q", value)
	}
	return hour*60 + minute, nil
}
