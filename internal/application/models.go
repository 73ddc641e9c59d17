package application

import (
	"time"

	"github.com/example/calendar-service/internal/calendar"
	"github.com/example/calendar-service/internal/recurrence"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID string
}

// EventInput captures caller provided event fields.
type EventInput struct {
	Title              string
	Date               calendar.Date
	StartTime          string
	EndTime            string
	Description        string
	Location           string
	Category           string
	NotificationOffset int
	Frequency          recurrence.Frequency
	Interval           *int
	UntilDate          *calendar.Date
	OccurrenceCount    *int
}

// CreateEventParams wraps the data required to create an event or series.
type CreateEventParams struct {
	Principal Principal
	Input     EventInput
}

// UpdateScope selects how far an edit or delete reaches into a recurring series.
type UpdateScope string

const (
	// ScopeOne targets a single instance, detaching it from its series if needed.
	ScopeOne UpdateScope = "one"
	// ScopeAll targets every instance of the series.
	ScopeAll UpdateScope = "all"
)

// UpdateEventParams wraps the data required to update an existing event.
type UpdateEventParams struct {
	Principal Principal
	EventID   string
	Scope     UpdateScope
	Input     EventInput
}

// DeleteEventParams wraps the data required to delete an event.
type DeleteEventParams struct {
	Principal Principal
	EventID   string
	Scope     UpdateScope
}

// ListPeriod identifies the range preset requested for event listings.
type ListPeriod string

const (
	// ListPeriodNone indicates no preset; caller supplied explicit bounds.
	ListPeriodNone ListPeriod = ""
	// ListPeriodDay constrains results to a single day.
	ListPeriodDay ListPeriod = "day"
	// ListPeriodWeek constrains results to the Monday-start week containing the reference date.
	ListPeriodWeek ListPeriod = "week"
	// ListPeriodMonth constrains results to the month containing the reference date.
	ListPeriodMonth ListPeriod = "month"
)

// ListEventsParams wraps the data required to list events.
type ListEventsParams struct {
	Principal       Principal
	From            *calendar.Date
	To              *calendar.Date
	Period          ListPeriod
	PeriodReference calendar.Date
}

// SearchEventsParams wraps the data required to search events by text.
type SearchEventsParams struct {
	Principal Principal
	Query     string
}

// OccurrencesParams wraps the data required to project occurrences of one event.
type OccurrencesParams struct {
	Principal Principal
	EventID   string
	From      calendar.Date
	To        calendar.Date
}

// UserInput captures caller provided account attributes.
type UserInput struct {
	Email       string
	DisplayName string
	Password    string
}

// User represents an account exposed by the application services.
type User struct {
	ID          string
	Email       string
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Session represents an authenticated session issued to a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Email    string
	Password string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	User    User
	Session Session
}
