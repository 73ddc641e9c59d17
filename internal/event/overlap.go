package event

// OverlapWarning describes a same-day time collision that callers can
// surface to users before saving. It is advisory; overlapping events are
// still allowed.
type OverlapWarning struct {
	EventID     string
	WithEventID string
	Date        string
}

// DetectOverlaps reports which existing events collide with the candidate.
// Two events collide when they fall on the same calendar day and their time
// ranges intersect; an event with unparsable or missing times is treated as
// covering the whole day.
func DetectOverlaps(existing []Event, candidate Event) []OverlapWarning {
	warnings := make([]OverlapWarning, 0)

	candStart, candEnd := timeRange(candidate)
	for _, other := range existing {
		if other.ID == candidate.ID {
			continue
		}
		if !other.Date.Equal(candidate.Date) {
			continue
		}
		otherStart, otherEnd := timeRange(other)
		if candStart < otherEnd && otherStart < candEnd {
			warnings = append(warnings, OverlapWarning{
				EventID:     candidate.ID,
				WithEventID: other.ID,
				Date:        candidate.Date.String(),
			})
		}
	}

	if len(warnings) == 0 {
		return nil
	}
	return warnings
}

// timeRange resolves an event's minutes-of-day interval. A missing or
// malformed start covers the whole day; a missing, malformed or inverted end
// extends the interval from the start to the end of the day.
func timeRange(e Event) (int, int) {
	start, err := minutesOfDay(e.StartTime)
	if err != nil {
		return 0, 24 * 60
	}
	end, err := minutesOfDay(e.EndTime)
	if err != nil || end <= start {
		return start, 24 * 60
	}
	return start, end
}
