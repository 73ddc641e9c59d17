package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/calendar-service/internal/calendar"
	"github.com/example/calendar-service/internal/event"
	"github.com/example/calendar-service/internal/persistence"
	"github.com/example/calendar-service/internal/recurrence"
)

// EventRepository implements persistence.EventRepository on SQLite.
type EventRepository struct {
	store *Store
}

// NewEventRepository wires the repository onto a store.
func NewEventRepository(store *Store) *EventRepository {
	return &EventRepository{store: store}
}

const eventColumns = `id, owner_id, title, event_date, start_time, end_time, description,
	location, category, notification_offset, frequency, repeat_interval,
	until_date, occurrence_count, group_id, generated, exclusions`

// CreateEvent inserts a single event.
func (r *EventRepository) CreateEvent(ctx context.Context, evt event.Event) error {
	if evt.ID == "" {
		return persistence.ErrConstraintViolation
	}
	return r.store.withTx(ctx, func(tx *sql.Tx) error {
		return insertEventTx(tx, evt)
	})
}

// CreateEvents inserts a materialized series atomically; either every
// instance is stored or none is.
func (r *EventRepository) CreateEvents(ctx context.Context, events []event.Event) error {
	if len(events) == 0 {
		return nil
	}
	return r.store.withTx(ctx, func(tx *sql.Tx) error {
		for _, evt := range events {
			if evt.ID == "" {
				return persistence.ErrConstraintViolation
			}
			if err := insertEventTx(tx, evt); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertEventTx(tx *sql.Tx, evt event.Event) error {
	_, err := tx.Exec(`INSERT INTO events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		evt.ID,
		evt.OwnerID,
		evt.Title,
		evt.Date.String(),
		evt.StartTime,
		evt.EndTime,
		evt.Description,
		evt.Location,
		evt.Category,
		evt.NotificationOffset,
		evt.Rule.Frequency.String(),
		normalizeInterval(evt.Rule.Interval),
		untilColumn(evt.Rule),
		countColumn(evt.Rule),
		evt.GroupID,
		boolToInt(evt.Generated),
		joinExclusions(evt.Exclusions),
	)
	return mapError(err)
}

// GetEvent retrieves an event by ID.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (event.Event, error) {
	if id == "" {
		return event.Event{}, persistence.ErrNotFound
	}
	row := r.store.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	evt, err := scanEvent(row)
	if err != nil {
		return event.Event{}, mapError(err)
	}
	return evt, nil
}

// UpdateEvent rewrites an existing event row.
func (r *EventRepository) UpdateEvent(ctx context.Context, evt event.Event) error {
	if evt.ID == "" {
		return persistence.ErrNotFound
	}
	result, err := r.store.db.ExecContext(ctx, `UPDATE events SET
		title = ?, event_date = ?, start_time = ?, end_time = ?, description = ?,
		location = ?, category = ?, notification_offset = ?, frequency = ?,
		repeat_interval = ?, until_date = ?, occurrence_count = ?, group_id = ?,
		generated = ?, exclusions = ?
		WHERE id = ?`,
		evt.Title,
		evt.Date.String(),
		evt.StartTime,
		evt.EndTime,
		evt.Description,
		evt.Location,
		evt.Category,
		evt.NotificationOffset,
		evt.Rule.Frequency.String(),
		normalizeInterval(evt.Rule.Interval),
		untilColumn(evt.Rule),
		countColumn(evt.Rule),
		evt.GroupID,
		boolToInt(evt.Generated),
		joinExclusions(evt.Exclusions),
		evt.ID,
	)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// DeleteEvent removes an event by ID.
func (r *EventRepository) DeleteEvent(ctx context.Context, id string) error {
	result, err := r.store.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// DeleteGroup removes every instance of a recurring series.
func (r *EventRepository) DeleteGroup(ctx context.Context, groupID string) (int, error) {
	if groupID == "" {
		return 0, persistence.ErrNotFound
	}
	result, err := r.store.db.ExecContext(ctx, `DELETE FROM events WHERE group_id = ?`, groupID)
	if err != nil {
		return 0, mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: rows affected: %w", err)
	}
	return int(affected), nil
}

// ListEvents returns events matching the filter, ordered by date then ID.
func (r *EventRepository) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]event.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events`
	clauses := make([]string, 0, 4)
	args := make([]any, 0, 5)

	if filter.OwnerID != "" {
		clauses = append(clauses, "owner_id = ?")
		args = append(args, filter.OwnerID)
	}
	if filter.GroupID != "" {
		clauses = append(clauses, "group_id = ?")
		args = append(args, filter.GroupID)
	}
	if filter.DateFrom != nil {
		clauses = append(clauses, "event_date >= ?")
		args = append(args, filter.DateFrom.String())
	}
	if filter.DateTo != nil {
		clauses = append(clauses, "event_date <= ?")
		args = append(args, filter.DateTo.String())
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		clauses = append(clauses, "(title LIKE ? OR description LIKE ? OR location LIKE ?)")
		pattern := "%" + q + "%"
		args = append(args, pattern, pattern, pattern)
	}

	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY event_date ASC, id ASC"

	rows, err := r.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	events := make([]event.Event, 0)
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return events, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (event.Event, error) {
	var (
		evt        event.Event
		date       string
		frequency  string
		interval   int
		until      sql.NullString
		count      sql.NullInt64
		generated  int
		exclusions string
	)
	err := row.Scan(
		&evt.ID,
		&evt.OwnerID,
		&evt.Title,
		&date,
		&evt.StartTime,
		&evt.EndTime,
		&evt.Description,
		&evt.Location,
		&evt.Category,
		&evt.NotificationOffset,
		&frequency,
		&interval,
		&until,
		&count,
		&evt.GroupID,
		&generated,
		&exclusions,
	)
	if err != nil {
		return event.Event{}, err
	}

	evt.Date, err = calendar.ParseDate(date)
	if err != nil {
		return event.Event{}, fmt.Errorf("sqlite: event %s: %w", evt.ID, err)
	}
	evt.Generated = generated != 0
	evt.Exclusions, err = splitExclusions(exclusions)
	if err != nil {
		return event.Event{}, fmt.Errorf("sqlite: event %s: %w", evt.ID, err)
	}
	evt.Rule, err = scanRule(frequency, interval, until, count)
	if err != nil {
		return event.Event{}, fmt.Errorf("sqlite: event %s: %w", evt.ID, err)
	}
	return evt, nil
}

func scanRule(frequency string, interval int, until sql.NullString, count sql.NullInt64) (recurrence.Rule, error) {
	freq, err := recurrence.ParseFrequency(frequency)
	if err != nil {
		return recurrence.Rule{}, err
	}

	var untilDate *calendar.Date
	if until.Valid && strings.TrimSpace(until.String) != "" {
		parsed, err := calendar.ParseDate(until.String)
		if err != nil {
			return recurrence.Rule{}, err
		}
		untilDate = &parsed
	}
	var occurrences *int
	if count.Valid {
		n := int(count.Int64)
		occurrences = &n
	}

	termination, err := recurrence.NewTermination(untilDate, occurrences)
	if err != nil {
		return recurrence.Rule{}, err
	}
	return recurrence.Rule{Frequency: freq, Interval: interval, Termination: termination}, nil
}

func untilColumn(rule recurrence.Rule) sql.NullString {
	if until, ok := rule.Termination.UntilDate(); ok {
		return sql.NullString{String: until.String(), Valid: true}
	}
	return sql.NullString{}
}

func countColumn(rule recurrence.Rule) sql.NullInt64 {
	if n, ok := rule.Termination.CountValue(); ok {
		return sql.NullInt64{Int64: int64(n), Valid: true}
	}
	return sql.NullInt64{}
}

func normalizeInterval(interval int) int {
	if interval < 1 {
		return 1
	}
	return interval
}

func joinExclusions(dates []calendar.Date) string {
	if len(dates) == 0 {
		return ""
	}
	parts := make([]string, 0, len(dates))
	for _, d := range dates {
		parts = append(parts, d.String())
	}
	return strings.Join(parts, ",")
}

func splitExclusions(value string) ([]calendar.Date, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parts := strings.Split(value, ",")
	dates := make([]calendar.Date, 0, len(parts))
	for _, part := range parts {
		d, err := calendar.ParseDate(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
