package event

import (
	"sort"

	"github.com/example/calendar-service/internal/calendar"
	"github.com/example/calendar-service/internal/recurrence"
)

// Projector returns the occurrences of stored events that fall inside a
// visible window, expanding recurring series lazily instead of materializing
// whole, possibly open-ended series.
type Projector struct {
	materializer *Materializer
}

// NewProjector wires the projector onto a materializer.
func NewProjector(materializer *Materializer) *Projector {
	if materializer == nil {
		materializer = NewMaterializer(nil, nil)
	}
	return &Projector{materializer: materializer}
}

// Project filters and expands events into the inclusive window
// [windowStart, windowEnd].
//
// Each recurring series must be represented once, by its seed event; plain
// events and already-generated instances are kept by date filtering alone.
// Exclusion-listed dates are dropped even when the rule produces them. The
// result is sorted ascending by date; events on the same date preserve their
// relative input order.
func (p *Projector) Project(events []Event, windowStart, windowEnd calendar.Date) ([]Event, error) {
	if windowEnd.Before(windowStart) {
		return nil, nil
	}

	opts := recurrence.Options{RangeStart: &windowStart, RangeEnd: &windowEnd}
	projected := make([]Event, 0)

	for _, stored := range events {
		if !stored.IsSeriesSeed() {
			if stored.Date.Before(windowStart) || stored.Date.After(windowEnd) {
				continue
			}
			if stored.Excludes(stored.Date) {
				continue
			}
			projected = append(projected, stored)
			continue
		}

		instances, err := p.materializer.Materialize(stored, stored.Rule, opts)
		if err != nil {
			return nil, err
		}
		for _, instance := range instances {
			if stored.Excludes(instance.Date) {
				continue
			}
			projected = append(projected, instance)
		}
	}

	sort.SliceStable(projected, func(i, j int) bool {
		return projected[i].Date.Before(projected[j].Date)
	})

	return projected, nil
}
