package event

import (
	"github.com/example/calendar-service/internal/recurrence"
)

// Materializer maps occurrence dates produced by the recurrence engine onto
// full event records.
type Materializer struct {
	engine     *recurrence.Engine
	newGroupID func() string
}

// NewMaterializer wires the engine and the group identifier source. When
// newGroupID is nil, series are materialized with the seed's ID as group.
func NewMaterializer(engine *recurrence.Engine, newGroupID func() string) *Materializer {
	if engine == nil {
		engine = recurrence.NewEngine(nil)
	}
	if newGroupID == nil {
		newGroupID = func() string { return "" }
	}
	return &Materializer{engine: engine, newGroupID: newGroupID}
}

// Materialize expands the seed's rule and returns one event per occurrence.
//
// The first occurrence equals the seed date and keeps the seed's identity;
// every later occurrence carries a derived ID, the Generated flag, and the
// shared GroupID. A non-repeating rule yields the seed alone with no group.
// The function is pure; persisting the result is the caller's concern.
func (m *Materializer) Materialize(seed Event, rule recurrence.Rule, opts recurrence.Options) ([]Event, error) {
	occurrences, err := m.engine.Expand(seed.Date, rule, opts)
	if err != nil {
		return nil, err
	}

	if !rule.Frequency.IsRecurring() {
		instances := make([]Event, 0, len(occurrences))
		for _, date := range occurrences {
			instance := seed
			instance.Date = date
			instance.Rule = recurrence.None()
			instance.GroupID = ""
			instance.Generated = false
			instances = append(instances, instance)
		}
		return instances, nil
	}

	groupID := seed.GroupID
	if groupID == "" {
		groupID = m.newGroupID()
		if groupID == "" {
			groupID = seed.ID
		}
	}

	instances := make([]Event, 0, len(occurrences))
	for _, date := range occurrences {
		instance := seed
		instance.Date = date
		instance.Rule = rule
		instance.GroupID = groupID
		if date.Equal(seed.Date) {
			instance.ID = seed.ID
			instance.Generated = false
		} else {
			instance.ID = InstanceID(seed.ID, date)
			instance.Generated = true
		}
		instances = append(instances, instance)
	}
	return instances, nil
}
