// Package testfixtures provides deterministic clocks, identifier sequences
// and domain fixtures shared by integration style tests.
package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/calendar-service/internal/application"
	"github.com/example/calendar-service/internal/calendar"
	"github.com/example/calendar-service/internal/event"
	"github.com/example/calendar-service/internal/persistence"
	"github.com/example/calendar-service/internal/recurrence"
)

var (
	userCounter  uint64
	eventCounter uint64
)

var referenceTime = time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// UserFixture represents a deterministic account record.
type UserFixture struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic user fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := UserFixture{
		ID:           id,
		Email:        fmt.Sprintf("%s@example.com", id),
		DisplayName:  fmt.Sprintf("사용자 %03d", idx),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) {
		f.ID = id
	}
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) {
		f.Email = email
	}
}

// WithUserPasswordHash overrides the generated password hash.
func WithUserPasswordHash(hash string) UserOption {
	return func(f *UserFixture) {
		f.PasswordHash = hash
	}
}

// Persistence returns the fixture as a persistence.User value.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:           f.ID,
		Email:        f.Email,
		DisplayName:  f.DisplayName,
		PasswordHash: f.PasswordHash,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// Principal returns an application.Principal derived from the fixture.
func (f UserFixture) Principal() application.Principal {
	return application.Principal{UserID: f.ID}
}

// EventFixture represents a deterministic calendar event record.
type EventFixture struct {
	ID         string
	OwnerID    string
	Title      string
	Date       calendar.Date
	StartTime  string
	EndTime    string
	Location   string
	Category   string
	Rule       recurrence.Rule
	GroupID    string
	Generated  bool
	Exclusions []calendar.Date
}

// EventOption configures the generated event fixture.
type EventOption func(*EventFixture)

// NewEventFixture returns a deterministic standalone event. Recurrence and
// series membership are layered on through options.
func NewEventFixture(ownerID string, opts ...EventOption) EventFixture {
	idx := atomic.AddUint64(&eventCounter, 1)
	fixture := EventFixture{
		ID:        fmt.Sprintf("event-%03d", idx),
		OwnerID:   ownerID,
		Title:     fmt.Sprintf("일정 %03d", idx),
		Date:      calendar.DateOf(referenceTime).AddDays(int(idx)),
		StartTime: "10:00",
		EndTime:   "11:00",
		Rule:      recurrence.None(),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEventID overrides the generated event ID.
func WithEventID(id string) EventOption {
	return func(f *EventFixture) {
		f.ID = id
	}
}

// WithEventDate pins the event to a specific date.
func WithEventDate(date calendar.Date) EventOption {
	return func(f *EventFixture) {
		f.Date = date
	}
}

// WithEventTimes sets the start and end times, formatted as HH:MM.
func WithEventTimes(start, end string) EventOption {
	return func(f *EventFixture) {
		f.StartTime = start
		f.EndTime = end
	}
}

// WithEventTitle overrides the generated title.
func WithEventTitle(title string) EventOption {
	return func(f *EventFixture) {
		f.Title = title
	}
}

// WithEventRule attaches a recurrence rule and series group to the fixture.
func WithEventRule(rule recurrence.Rule, groupID string) EventOption {
	return func(f *EventFixture) {
		f.Rule = rule
		f.GroupID = groupID
	}
}

// WithEventGenerated marks the fixture as a materialized series instance.
func WithEventGenerated(generated bool) EventOption {
	return func(f *EventFixture) {
		f.Generated = generated
	}
}

// WithEventExclusions sets the skipped dates carried by the fixture.
func WithEventExclusions(dates ...calendar.Date) EventOption {
	return func(f *EventFixture) {
		f.Exclusions = append([]calendar.Date(nil), dates...)
	}
}

// Domain returns the fixture as an event.Event value.
func (f EventFixture) Domain() event.Event {
	return event.Event{
		ID:         f.ID,
		OwnerID:    f.OwnerID,
		Title:      f.Title,
		Date:       f.Date,
		StartTime:  f.StartTime,
		EndTime:    f.EndTime,
		Location:   f.Location,
		Category:   f.Category,
		Rule:       f.Rule,
		GroupID:    f.GroupID,
		Generated:  f.Generated,
		Exclusions: append([]calendar.Date(nil), f.Exclusions...),
	}
}

// Input returns the fixture as an application.EventInput.
func (f EventFixture) Input() application.EventInput {
	interval := f.Rule.Interval
	input := application.EventInput{
		Title:     f.Title,
		Date:      f.Date,
		StartTime: f.StartTime,
		EndTime:   f.EndTime,
		Location:  f.Location,
		Category:  f.Category,
		Frequency: f.Rule.Frequency,
		Interval:  &interval,
	}
	if until, ok := f.Rule.Termination.UntilDate(); ok {
		u := until
		input.UntilDate = &u
	}
	if count, ok := f.Rule.Termination.CountValue(); ok {
		c := count
		input.OccurrenceCount = &c
	}
	return input
}
