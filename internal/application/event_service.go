package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/calendar-service/internal/calendar"
	"github.com/example/calendar-service/internal/event"
	"github.com/example/calendar-service/internal/persistence"
	"github.com/example/calendar-service/internal/recurrence"
)

// EventService orchestrates validation, materialization and persistence for
// calendar events. Recurring series are expanded into concrete instance rows
// at save time; one row per occurrence, all sharing a group identifier.
type EventService struct {
	events       persistence.EventRepository
	materializer *event.Materializer
	projector    *event.Projector
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
	listWarnings *warningCache
}

// NewEventService wires dependencies for event operations.
func NewEventService(events persistence.EventRepository, materializer *event.Materializer, idGenerator func() string, now func() time.Time, logger *slog.Logger) *EventService {
	if materializer == nil {
		materializer = event.NewMaterializer(nil, nil)
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &EventService{
		events:       events,
		materializer: materializer,
		projector:    event.NewProjector(materializer),
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
		listWarnings: newWarningCache(30*time.Second, 128, now),
	}
}

func (s *EventService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EventService", operation, attrs...)
}

// Create validates the input, expands any recurrence rule and stores the
// resulting instances atomically. It returns the seed instance together with
// advisory overlap warnings for every stored occurrence.
func (s *EventService) Create(ctx context.Context, params CreateEventParams) (event.Event, []event.OverlapWarning, error) {
	if s == nil {
		return event.Event{}, nil, fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return event.Event{}, nil, fmt.Errorf("event repository not configured")
	}

	input := params.Input
	logger := s.loggerWith(ctx, "Create", "owner_id", params.Principal.UserID)

	vErr := &ValidationError{}
	validateEventCore(input, vErr)
	rule := buildRule(input, vErr)
	if vErr.HasErrors() {
		return event.Event{}, nil, vErr
	}

	seed := event.Event{
		ID:                 s.idGenerator(),
		OwnerID:            params.Principal.UserID,
		Title:              strings.TrimSpace(input.Title),
		Date:               input.Date,
		StartTime:          input.StartTime,
		EndTime:            input.EndTime,
		Description:        input.Description,
		Location:           input.Location,
		Category:           input.Category,
		NotificationOffset: input.NotificationOffset,
	}

	instances, err := s.materializer.Materialize(seed, rule, recurrence.Options{})
	if err != nil {
		return event.Event{}, nil, mapExpansionError(err)
	}

	warnings, err := s.detectOverlaps(ctx, params.Principal.UserID, instances, "")
	if err != nil {
		return event.Event{}, nil, err
	}

	if len(instances) == 1 && !rule.Frequency.IsRecurring() {
		err = s.events.CreateEvent(ctx, instances[0])
	} else {
		err = s.events.CreateEvents(ctx, instances)
	}
	if err != nil {
		logger.ErrorContext(ctx, "event creation failed", "error", err, "error_kind", ErrorKind(err))
		return event.Event{}, nil, mapEventRepoError(err)
	}

	s.listWarnings.Invalidate()
	logger.With("event_id", instances[0].ID, "instances", len(instances)).
		InfoContext(ctx, "event created")
	return instances[0], warnings, nil
}

// Get returns a single stored event owned by the principal.
func (s *EventService) Get(ctx context.Context, principal Principal, eventID string) (event.Event, error) {
	if s == nil {
		return event.Event{}, fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return event.Event{}, fmt.Errorf("event repository not configured")
	}

	stored, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return event.Event{}, mapEventRepoError(err)
	}
	if stored.OwnerID != principal.UserID {
		return event.Event{}, ErrUnauthorized
	}
	return stored, nil
}

// Update applies an edit to one instance or to a whole series.
//
// ScopeOne on a series member detaches the instance from its group; the
// series seed records the original date as excluded so lazy projections stay
// consistent with the stored rows. ScopeAll rewrites every instance of the
// group from the new input, preserving the seed and group identifiers.
func (s *EventService) Update(ctx context.Context, params UpdateEventParams) (event.Event, []event.OverlapWarning, error) {
	if s == nil {
		return event.Event{}, nil, fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return event.Event{}, nil, fmt.Errorf("event repository not configured")
	}

	existing, err := s.events.GetEvent(ctx, params.EventID)
	if err != nil {
		return event.Event{}, nil, mapEventRepoError(err)
	}
	if existing.OwnerID != params.Principal.UserID {
		return event.Event{}, nil, ErrUnauthorized
	}

	scope := params.Scope
	if scope == "" {
		scope = ScopeOne
	}
	if scope != ScopeOne && scope != ScopeAll {
		vErr := &ValidationError{}
		vErr.add("scope", "scope must be one or all")
		return event.Event{}, nil, vErr
	}

	input := params.Input
	logger := s.loggerWith(ctx, "Update",
		"event_id", params.EventID,
		"scope", string(scope),
	)

	vErr := &ValidationError{}
	validateEventCore(input, vErr)

	if existing.GroupID == "" {
		rule := buildRule(input, vErr)
		if vErr.HasErrors() {
			return event.Event{}, nil, vErr
		}
		updated, warnings, err := s.updateStandalone(ctx, existing, input, rule)
		if err != nil {
			logger.ErrorContext(ctx, "event update failed", "error", err, "error_kind", ErrorKind(err))
			return event.Event{}, nil, err
		}
		s.listWarnings.Invalidate()
		logger.InfoContext(ctx, "event updated")
		return updated, warnings, nil
	}

	if scope == ScopeOne {
		if input.Frequency.IsRecurring() {
			vErr.add("scope", "recurrence cannot be changed for a single instance")
		}
		if vErr.HasErrors() {
			return event.Event{}, nil, vErr
		}
		updated, warnings, err := s.detachAndUpdate(ctx, existing, input)
		if err != nil {
			logger.ErrorContext(ctx, "instance update failed", "error", err, "error_kind", ErrorKind(err))
			return event.Event{}, nil, err
		}
		s.listWarnings.Invalidate()
		logger.InfoContext(ctx, "instance detached and updated")
		return updated, warnings, nil
	}

	rule := buildRule(input, vErr)
	if vErr.HasErrors() {
		return event.Event{}, nil, vErr
	}
	updated, warnings, err := s.rewriteSeries(ctx, existing, input, rule)
	if err != nil {
		logger.ErrorContext(ctx, "series update failed", "error", err, "error_kind", ErrorKind(err))
		return event.Event{}, nil, err
	}
	s.listWarnings.Invalidate()
	logger.InfoContext(ctx, "series rewritten")
	return updated, warnings, nil
}

// Delete removes one instance or a whole series.
//
// ScopeOne on a series member removes its row and records the date as an
// exclusion on the surviving seed. Deleting the seed itself promotes the
// earliest remaining instance to carry the rule. ScopeAll removes every row
// sharing the group.
func (s *EventService) Delete(ctx context.Context, params DeleteEventParams) error {
	if s == nil {
		return fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return fmt.Errorf("event repository not configured")
	}

	existing, err := s.events.GetEvent(ctx, params.EventID)
	if err != nil {
		return mapEventRepoError(err)
	}
	if existing.OwnerID != params.Principal.UserID {
		return ErrUnauthorized
	}

	scope := params.Scope
	if scope == "" {
		scope = ScopeOne
	}

	logger := s.loggerWith(ctx, "Delete",
		"event_id", params.EventID,
		"scope", string(scope),
	)

	if existing.GroupID == "" {
		if err := s.events.DeleteEvent(ctx, params.EventID); err != nil {
			return mapEventRepoError(err)
		}
		s.listWarnings.Invalidate()
		logger.InfoContext(ctx, "event deleted")
		return nil
	}

	if scope == ScopeAll {
		removed, err := s.events.DeleteGroup(ctx, existing.GroupID)
		if err != nil {
			return mapEventRepoError(err)
		}
		s.listWarnings.Invalidate()
		logger.With("instances", removed).InfoContext(ctx, "series deleted")
		return nil
	}

	if err := s.events.DeleteEvent(ctx, params.EventID); err != nil {
		return mapEventRepoError(err)
	}
	if err := s.excludeFromSeries(ctx, existing); err != nil {
		return err
	}
	s.listWarnings.Invalidate()
	logger.InfoContext(ctx, "instance deleted")
	return nil
}

// List returns the principal's stored events inside a window, along with
// advisory overlap warnings among them.
func (s *EventService) List(ctx context.Context, params ListEventsParams) ([]event.Event, []event.OverlapWarning, error) {
	if s == nil {
		return nil, nil, fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return nil, nil, fmt.Errorf("event repository not configured")
	}

	from, to := params.From, params.To
	if params.Period != ListPeriodNone {
		start, end := computePeriodRange(params.Period, params.PeriodReference)
		if from == nil {
			from = &start
		}
		if to == nil {
			to = &end
		}
	}

	rows, err := s.events.ListEvents(ctx, persistence.EventFilter{
		OwnerID:  params.Principal.UserID,
		DateFrom: from,
		DateTo:   to,
	})
	if err != nil {
		return nil, nil, mapEventRepoError(err)
	}

	cacheKey := buildWarningCacheKey(params.Principal.UserID, from, to)
	warnings, ok := s.listWarnings.Get(cacheKey)
	if !ok {
		warnings = detectListOverlaps(rows)
		s.listWarnings.Store(cacheKey, warnings)
	}

	return rows, warnings, nil
}

// Search returns the principal's events whose title, description or location
// matches the query text.
func (s *EventService) Search(ctx context.Context, params SearchEventsParams) ([]event.Event, error) {
	if s == nil {
		return nil, fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return nil, fmt.Errorf("event repository not configured")
	}

	query := strings.TrimSpace(params.Query)
	if query == "" {
		vErr := &ValidationError{}
		vErr.add("query", "query is required")
		return nil, vErr
	}

	rows, err := s.events.ListEvents(ctx, persistence.EventFilter{
		OwnerID: params.Principal.UserID,
		Query:   query,
	})
	if err != nil {
		return nil, mapEventRepoError(err)
	}
	return rows, nil
}

// Occurrences lazily projects the occurrences of a single stored event into
// the requested window, without touching sibling rows.
func (s *EventService) Occurrences(ctx context.Context, params OccurrencesParams) ([]event.Event, error) {
	if s == nil {
		return nil, fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return nil, fmt.Errorf("event repository not configured")
	}

	stored, err := s.events.GetEvent(ctx, params.EventID)
	if err != nil {
		return nil, mapEventRepoError(err)
	}
	if stored.OwnerID != params.Principal.UserID {
		return nil, ErrUnauthorized
	}

	if !params.From.Valid() || !params.To.Valid() {
		vErr := &ValidationError{}
		vErr.add("window", "from and to dates are required")
		return nil, vErr
	}

	projected, err := s.projector.Project([]event.Event{stored}, params.From, params.To)
	if err != nil {
		return nil, mapExpansionError(err)
	}
	return projected, nil
}

func (s *EventService) updateStandalone(ctx context.Context, existing event.Event, input EventInput, rule recurrence.Rule) (event.Event, []event.OverlapWarning, error) {
	updated := existing
	applyInput(&updated, input)

	if !rule.Frequency.IsRecurring() {
		warnings, err := s.detectOverlaps(ctx, existing.OwnerID, []event.Event{updated}, "")
		if err != nil {
			return event.Event{}, nil, err
		}
		if err := s.events.UpdateEvent(ctx, updated); err != nil {
			return event.Event{}, nil, mapEventRepoError(err)
		}
		return updated, warnings, nil
	}

	// The edit introduced a rule; replace the single row with a series.
	instances, err := s.materializer.Materialize(updated, rule, recurrence.Options{})
	if err != nil {
		return event.Event{}, nil, mapExpansionError(err)
	}
	warnings, err := s.detectOverlaps(ctx, existing.OwnerID, instances, "")
	if err != nil {
		return event.Event{}, nil, err
	}
	if err := s.events.DeleteEvent(ctx, existing.ID); err != nil {
		return event.Event{}, nil, mapEventRepoError(err)
	}
	if err := s.events.CreateEvents(ctx, instances); err != nil {
		return event.Event{}, nil, mapEventRepoError(err)
	}
	return instances[0], warnings, nil
}

func (s *EventService) detachAndUpdate(ctx context.Context, existing event.Event, input EventInput) (event.Event, []event.OverlapWarning, error) {
	detached := event.Detach(existing)
	applyInput(&detached, input)

	warnings, err := s.detectOverlaps(ctx, existing.OwnerID, []event.Event{detached}, "")
	if err != nil {
		return event.Event{}, nil, err
	}
	if err := s.events.UpdateEvent(ctx, detached); err != nil {
		return event.Event{}, nil, mapEventRepoError(err)
	}
	if err := s.excludeFromSeries(ctx, existing); err != nil {
		return event.Event{}, nil, err
	}
	return detached, warnings, nil
}

func (s *EventService) rewriteSeries(ctx context.Context, existing event.Event, input EventInput, rule recurrence.Rule) (event.Event, []event.OverlapWarning, error) {
	seedID := existing.ID
	if existing.Generated {
		if seed, ok, err := s.findSeriesSeed(ctx, existing.GroupID); err != nil {
			return event.Event{}, nil, err
		} else if ok {
			seedID = seed.ID
		}
	}

	seed := event.Event{
		ID:                 seedID,
		OwnerID:            existing.OwnerID,
		Date:               input.Date,
		GroupID:            existing.GroupID,
		NotificationOffset: input.NotificationOffset,
	}
	applyInput(&seed, input)
	if !rule.Frequency.IsRecurring() {
		seed.GroupID = ""
	}

	instances, err := s.materializer.Materialize(seed, rule, recurrence.Options{})
	if err != nil {
		return event.Event{}, nil, mapExpansionError(err)
	}
	warnings, err := s.detectOverlaps(ctx, existing.OwnerID, instances, existing.GroupID)
	if err != nil {
		return event.Event{}, nil, err
	}

	if _, err := s.events.DeleteGroup(ctx, existing.GroupID); err != nil {
		return event.Event{}, nil, mapEventRepoError(err)
	}
	if err := s.events.CreateEvents(ctx, instances); err != nil {
		return event.Event{}, nil, mapEventRepoError(err)
	}
	return instances[0], warnings, nil
}

// excludeFromSeries records a removed or detached date on the series so lazy
// projections stop producing it. When the removed row was the seed itself,
// the earliest surviving instance inherits the rule.
func (s *EventService) excludeFromSeries(ctx context.Context, removed event.Event) error {
	if removed.GroupID == "" {
		return nil
	}

	siblings, err := s.events.ListEvents(ctx, persistence.EventFilter{GroupID: removed.GroupID})
	if err != nil {
		return mapEventRepoError(err)
	}
	if len(siblings) == 0 {
		return nil
	}

	if !removed.Generated {
		// Seed removed; promote the earliest surviving instance. A count
		// termination would restart at the heir's date when projected, so it
		// is pinned to the last materialized occurrence instead.
		heir := siblings[0]
		heir.Generated = false
		heir.Rule = removed.Rule
		if _, ok := removed.Rule.Termination.CountValue(); ok {
			heir.Rule.Termination = recurrence.Until(siblings[len(siblings)-1].Date)
		}
		heir.Exclusions = appendExclusion(removed.Exclusions, removed.Date)
		if err := s.events.UpdateEvent(ctx, heir); err != nil {
			return mapEventRepoError(err)
		}
		return nil
	}

	for _, sibling := range siblings {
		if sibling.IsSeriesSeed() {
			sibling.Exclusions = appendExclusion(sibling.Exclusions, removed.Date)
			if err := s.events.UpdateEvent(ctx, sibling); err != nil {
				return mapEventRepoError(err)
			}
			return nil
		}
	}
	return nil
}

func (s *EventService) findSeriesSeed(ctx context.Context, groupID string) (event.Event, bool, error) {
	rows, err := s.events.ListEvents(ctx, persistence.EventFilter{GroupID: groupID})
	if err != nil {
		return event.Event{}, false, mapEventRepoError(err)
	}
	for _, row := range rows {
		if row.IsSeriesSeed() {
			return row, true, nil
		}
	}
	return event.Event{}, false, nil
}

// detectOverlaps compares candidate instances against the owner's stored
// events on the affected date span. Rows from skipGroupID are ignored so a
// series being rewritten does not collide with itself.
func (s *EventService) detectOverlaps(ctx context.Context, ownerID string, candidates []event.Event, skipGroupID string) ([]event.OverlapWarning, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	first, last := candidates[0].Date, candidates[0].Date
	for _, candidate := range candidates[1:] {
		if candidate.Date.Before(first) {
			first = candidate.Date
		}
		if candidate.Date.After(last) {
			last = candidate.Date
		}
	}

	stored, err := s.events.ListEvents(ctx, persistence.EventFilter{
		OwnerID:  ownerID,
		DateFrom: &first,
		DateTo:   &last,
	})
	if err != nil {
		return nil, mapEventRepoError(err)
	}

	existing := make([]event.Event, 0, len(stored))
	for _, row := range stored {
		if skipGroupID != "" && row.GroupID == skipGroupID {
			continue
		}
		existing = append(existing, row)
	}

	warnings := make([]event.OverlapWarning, 0)
	for _, candidate := range candidates {
		warnings = append(warnings, event.DetectOverlaps(existing, candidate)...)
	}
	if len(warnings) == 0 {
		return nil, nil
	}
	return warnings, nil
}

func detectListOverlaps(rows []event.Event) []event.OverlapWarning {
	if len(rows) <= 1 {
		return nil
	}
	warnings := make([]event.OverlapWarning, 0)
	for i, candidate := range rows {
		if i+1 >= len(rows) {
			break
		}
		warnings = append(warnings, event.DetectOverlaps(rows[i+1:], candidate)...)
	}
	if len(warnings) == 0 {
		return nil
	}
	return warnings
}

func appendExclusion(exclusions []calendar.Date, date calendar.Date) []calendar.Date {
	for _, d := range exclusions {
		if d.Equal(date) {
			return exclusions
		}
	}
	out := make([]calendar.Date, len(exclusions), len(exclusions)+1)
	copy(out, exclusions)
	return append(out, date)
}

func applyInput(target *event.Event, input EventInput) {
	target.Title = strings.TrimSpace(input.Title)
	target.Date = input.Date
	target.StartTime = input.StartTime
	target.EndTime = input.EndTime
	target.Description = input.Description
	target.Location = input.Location
	target.Category = input.Category
	target.NotificationOffset = input.NotificationOffset
}

func validateEventCore(input EventInput, vErr *ValidationError) {
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	if !input.Date.Valid() {
		vErr.add("date", "a valid date is required")
	}

	startOK := input.StartTime == ""
	if input.StartTime != "" {
		if _, err := time.Parse("15:04", input.StartTime); err != nil {
			vErr.add("start_time", "start time must be HH:MM")
		} else {
			startOK = true
		}
	}
	endOK := input.EndTime == ""
	if input.EndTime != "" {
		if _, err := time.Parse("15:04", input.EndTime); err != nil {
			vErr.add("end_time", "end time must be HH:MM")
		} else {
			endOK = true
		}
	}
	if startOK && endOK && input.StartTime != "" && input.EndTime != "" && input.EndTime <= input.StartTime {
		vErr.add("time", "start time must be before end time")
	}

	if input.NotificationOffset < 0 {
		vErr.add("notification_offset", "notification offset cannot be negative")
	}
}

func buildRule(input EventInput, vErr *ValidationError) recurrence.Rule {
	if !input.Frequency.IsRecurring() {
		if input.Frequency != recurrence.FrequencyNone && input.Frequency != recurrence.FrequencyUnspecified {
			vErr.add("frequency", "unsupported frequency")
		}
		return recurrence.None()
	}

	termination, err := recurrence.NewTermination(input.UntilDate, input.OccurrenceCount)
	if err != nil {
		vErr.add("termination", "end date and count are mutually exclusive")
		return recurrence.None()
	}

	// Absent interval means every occurrence; an explicit zero is rejected
	// by Validate below.
	interval := 1
	if input.Interval != nil {
		interval = *input.Interval
	}

	rule := recurrence.Rule{
		Frequency:   input.Frequency,
		Interval:    interval,
		Termination: termination,
	}
	switch err := rule.Validate(); {
	case errors.Is(err, recurrence.ErrInvalidInterval):
		vErr.add("interval", "interval must be at least 1")
	case errors.Is(err, recurrence.ErrInvalidCount):
		vErr.add("count", "occurrence count must be at least 1")
	case errors.Is(err, recurrence.ErrInvalidFrequency):
		vErr.add("frequency", "unsupported frequency")
	}

	if until, ok := termination.UntilDate(); ok && !until.Valid() {
		vErr.add("until_date", "a valid end date is required")
	}
	return rule
}

func computePeriodRange(period ListPeriod, reference calendar.Date) (calendar.Date, calendar.Date) {
	switch period {
	case ListPeriodDay:
		return reference, reference
	case ListPeriodWeek:
		// Monday-start week. In Go, Monday == 1, Sunday == 0.
		offset := (int(reference.Time().Weekday()) + 6) % 7
		start := reference.AddDays(-offset)
		return start, start.AddDays(6)
	case ListPeriodMonth:
		start := calendar.NewDate(reference.Year, reference.Month, 1)
		end, err := calendar.LastDayOfMonth(reference.Year, reference.Month)
		if err != nil {
			return start, start
		}
		return start, end
	default:
		return reference, reference
	}
}

func mapExpansionError(err error) error {
	if err == nil {
		return nil
	}
	vErr := &ValidationError{}
	switch {
	case errors.Is(err, recurrence.ErrUnboundedRule):
		vErr.add("termination", "open-ended series requires an end date, a count, or a configured horizon")
	case errors.Is(err, recurrence.ErrInvalidInterval):
		vErr.add("interval", "interval must be at least 1")
	case errors.Is(err, recurrence.ErrInvalidCount):
		vErr.add("count", "occurrence count must be at least 1")
	case errors.Is(err, recurrence.ErrInvalidFrequency):
		vErr.add("frequency", "unsupported frequency")
	default:
		return err
	}
	return vErr
}

func mapEventRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) || errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("event", "related records are missing or invalid")
		return vErr
	}
	return err
}
