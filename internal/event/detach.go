package event

import (
	"github.com/example/calendar-service/internal/recurrence"
)

// Detach converts one occurrence of a recurring series into an independent,
// non-recurring event. Editing or deleting "just this one" instance fires
// this transition; it is one way and never touches sibling occurrences.
// Detaching an already detached event is a no-op.
func Detach(instance Event) Event {
	detached := instance
	detached.Rule = recurrence.None()
	detached.GroupID = ""
	detached.Generated = false
	return detached
}
