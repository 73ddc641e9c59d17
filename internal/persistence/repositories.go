package persistence

import (
	"context"
	"time"

	"github.com/example/calendar-service/internal/calendar"
	"github.com/example/calendar-service/internal/event"
)

// EventFilter narrows event queries.
type EventFilter struct {
	OwnerID  string
	GroupID  string
	DateFrom *calendar.Date
	DateTo   *calendar.Date
	// Query matches case-insensitively against title, description and location.
	Query string
}

// EventRepository stores calendar events, including generated series instances.
type EventRepository interface {
	CreateEvent(ctx context.Context, evt event.Event) error
	// CreateEvents stores a materialized series atomically.
	CreateEvents(ctx context.Context, events []event.Event) error
	GetEvent(ctx context.Context, id string) (event.Event, error)
	UpdateEvent(ctx context.Context, evt event.Event) error
	DeleteEvent(ctx context.Context, id string) error
	ListEvents(ctx context.Context, filter EventFilter) ([]event.Event, error)
	// DeleteGroup removes every instance sharing a group, returning the
	// number of rows removed.
	DeleteGroup(ctx context.Context, groupID string) (int, error)
}

// UserRepository exposes CRUD operations for calendar accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	DeleteUser(ctx context.Context, id string) error
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) error
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}
