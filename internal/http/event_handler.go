package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/example/calendar-service/internal/application"
	"github.com/example/calendar-service/internal/calendar"
	"github.com/example/calendar-service/internal/event"
	"github.com/example/calendar-service/internal/recurrence"
)

type eventService interface {
	Create(ctx context.Context, params application.CreateEventParams) (event.Event, []event.OverlapWarning, error)
	Get(ctx context.Context, principal application.Principal, eventID string) (event.Event, error)
	Update(ctx context.Context, params application.UpdateEventParams) (event.Event, []event.OverlapWarning, error)
	Delete(ctx context.Context, params application.DeleteEventParams) error
	List(ctx context.Context, params application.ListEventsParams) ([]event.Event, []event.OverlapWarning, error)
	Search(ctx context.Context, params application.SearchEventsParams) ([]event.Event, error)
	Occurrences(ctx context.Context, params application.OccurrencesParams) ([]event.Event, error)
}

type EventHandler struct {
	service   eventService
	responder responder
	logger    *slog.Logger
}

func NewEventHandler(service eventService, logger *slog.Logger) *EventHandler {
	base := defaultLogger(logger)
	return &EventHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *EventHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "EventHandler", operation, attrs...)
}

// Create handles POST /events.
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	created, warnings, err := h.service.Create(r.Context(), application.CreateEventParams{
		Principal: principal,
		Input:     input,
	})
	if err != nil {
		h.log(r.Context(), "Create", "error_kind", application.ErrorKind(err)).
			ErrorContext(r.Context(), "event creation failed", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.renderEvent(r.Context(), w, created, warnings, http.StatusCreated)
}

// Get handles GET /events/{id}.
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	stored, err := h.service.Get(r.Context(), principal, eventID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, eventResponse{Event: toEventDTO(stored)})
}

// Update handles PUT /events/{id}?scope=one|all.
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	updated, warnings, err := h.service.Update(r.Context(), application.UpdateEventParams{
		Principal: principal,
		EventID:   eventID,
		Scope:     application.UpdateScope(strings.TrimSpace(r.URL.Query().Get("scope"))),
		Input:     input,
	})
	if err != nil {
		h.log(r.Context(), "Update", "event_id", eventID, "error_kind", application.ErrorKind(err)).
			ErrorContext(r.Context(), "event update failed", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.renderEvent(r.Context(), w, updated, warnings, http.StatusOK)
}

// Delete handles DELETE /events/{id}?scope=one|all.
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	err := h.service.Delete(r.Context(), application.DeleteEventParams{
		Principal: principal,
		EventID:   eventID,
		Scope:     application.UpdateScope(strings.TrimSpace(r.URL.Query().Get("scope"))),
	})
	if err != nil {
		h.log(r.Context(), "Delete", "event_id", eventID, "error_kind", application.ErrorKind(err)).
			ErrorContext(r.Context(), "event deletion failed", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// List handles GET /events with from/to bounds or day/week/month presets.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	events, warnings, err := h.service.List(r.Context(), buildListParams(r.URL.Query(), principal))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEventsResponse{
		Events:   toEventDTOs(events),
		Warnings: toWarningDTOs(warnings),
	})
}

// Search handles GET /search?q=.
func (h *EventHandler) Search(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	events, err := h.service.Search(r.Context(), application.SearchEventsParams{
		Principal: principal,
		Query:     r.URL.Query().Get("q"),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEventsResponse{Events: toEventDTOs(events)})
}

// Occurrences handles GET /events/{id}/occurrences?from=&to=.
func (h *EventHandler) Occurrences(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	query := r.URL.Query()
	from, fromErr := calendar.ParseDate(strings.TrimSpace(query.Get("from")))
	to, toErr := calendar.ParseDate(strings.TrimSpace(query.Get("to")))
	if fromErr != nil || toErr != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	occurrences, err := h.service.Occurrences(r.Context(), application.OccurrencesParams{
		Principal: principal,
		EventID:   eventID,
		From:      from,
		To:        to,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEventsResponse{Events: toEventDTOs(occurrences)})
}

func (h *EventHandler) renderEvent(ctx context.Context, w http.ResponseWriter, evt event.Event, warnings []event.OverlapWarning, status int) {
	h.responder.writeJSON(ctx, w, status, eventResponse{
		Event:    toEventDTO(evt),
		Warnings: toWarningDTOs(warnings),
	})
}

type repeatRequest struct {
	Frequency string `json:"frequency"`
	Interval  *int   `json:"interval"`
	UntilDate string `json:"until_date"`
	Count     *int   `json:"count"`
}

type eventRequest struct {
	Title              string         `json:"title"`
	Date               string         `json:"date"`
	StartTime          string         `json:"start_time"`
	EndTime            string         `json:"end_time"`
	Description        string         `json:"description"`
	Location           string         `json:"location"`
	Category           string         `json:"category"`
	NotificationOffset int            `json:"notification_offset"`
	Repeat             *repeatRequest `json:"repeat"`
}

func (r eventRequest) toInput() (application.EventInput, error) {
	input := application.EventInput{
		Title:              strings.TrimSpace(r.Title),
		StartTime:          strings.TrimSpace(r.StartTime),
		EndTime:            strings.TrimSpace(r.EndTime),
		Description:        r.Description,
		Location:           strings.TrimSpace(r.Location),
		Category:           strings.TrimSpace(r.Category),
		NotificationOffset: r.NotificationOffset,
		Frequency:          recurrence.FrequencyNone,
	}

	if date := strings.TrimSpace(r.Date); date != "" {
		parsed, err := calendar.ParseDate(date)
		if err != nil {
			return application.EventInput{}, errBadRequestBody
		}
		input.Date = parsed
	}

	if r.Repeat != nil {
		frequency, err := recurrence.ParseFrequency(r.Repeat.Frequency)
		if err != nil {
			return application.EventInput{}, errBadRequestBody
		}
		input.Frequency = frequency
		input.Interval = r.Repeat.Interval
		input.OccurrenceCount = r.Repeat.Count
		if until := strings.TrimSpace(r.Repeat.UntilDate); until != "" {
			parsed, err := calendar.ParseDate(until)
			if err != nil {
				return application.EventInput{}, errBadRequestBody
			}
			input.UntilDate = &parsed
		}
	}

	return input, nil
}

type eventResponse struct {
	Event    eventDTO            `json:"event"`
	Warnings []overlapWarningDTO `json:"warnings,omitempty"`
}

type listEventsResponse struct {
	Events   []eventDTO          `json:"events"`
	Warnings []overlapWarningDTO `json:"warnings,omitempty"`
}

type repeatDTO struct {
	Frequency string `json:"frequency"`
	Interval  int    `json:"interval"`
	UntilDate string `json:"until_date,omitempty"`
	Count     *int   `json:"count,omitempty"`
}

type eventDTO struct {
	ID                 string     `json:"id"`
	OwnerID            string     `json:"owner_id"`
	Title              string     `json:"title"`
	Date               string     `json:"date"`
	StartTime          string     `json:"start_time,omitempty"`
	EndTime            string     `json:"end_time,omitempty"`
	Description        string     `json:"description,omitempty"`
	Location           string     `json:"location,omitempty"`
	Category           string     `json:"category,omitempty"`
	NotificationOffset int        `json:"notification_offset"`
	Repeat             *repeatDTO `json:"repeat,omitempty"`
	GroupID            string     `json:"group_id,omitempty"`
	Generated          bool       `json:"generated,omitempty"`
	Exclusions         []string   `json:"exclusions,omitempty"`
}

func toEventDTO(evt event.Event) eventDTO {
	dto := eventDTO{
		ID:                 evt.ID,
		OwnerID:            evt.OwnerID,
		Title:              evt.Title,
		Date:               evt.Date.String(),
		StartTime:          evt.StartTime,
		EndTime:            evt.EndTime,
		Description:        evt.Description,
		Location:           evt.Location,
		Category:           evt.Category,
		NotificationOffset: evt.NotificationOffset,
		GroupID:            evt.GroupID,
		Generated:          evt.Generated,
	}

	if evt.Rule.Frequency.IsRecurring() {
		repeat := &repeatDTO{
			Frequency: evt.Rule.Frequency.String(),
			Interval:  evt.Rule.Interval,
		}
		if until, ok := evt.Rule.Termination.UntilDate(); ok {
			repeat.UntilDate = until.String()
		}
		if count, ok := evt.Rule.Termination.CountValue(); ok {
			repeat.Count = &count
		}
		dto.Repeat = repeat
	}

	for _, excluded := range evt.Exclusions {
		dto.Exclusions = append(dto.Exclusions, excluded.String())
	}
	return dto
}

func toEventDTOs(events []event.Event) []eventDTO {
	out := make([]eventDTO, 0, len(events))
	for _, evt := range events {
		out = append(out, toEventDTO(evt))
	}
	return out
}

type overlapWarningDTO struct {
	EventID     string `json:"event_id"`
	WithEventID string `json:"with_event_id"`
	Date        string `json:"date"`
}

func toWarningDTOs(warnings []event.OverlapWarning) []overlapWarningDTO {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]overlapWarningDTO, 0, len(warnings))
	for _, warning := range warnings {
		out = append(out, overlapWarningDTO{
			EventID:     warning.EventID,
			WithEventID: warning.WithEventID,
			Date:        warning.Date,
		})
	}
	return out
}

func buildListParams(values url.Values, principal application.Principal) application.ListEventsParams {
	params := application.ListEventsParams{Principal: principal}

	if from := strings.TrimSpace(values.Get("from")); from != "" {
		if parsed, err := calendar.ParseDate(from); err == nil {
			params.From = &parsed
		}
	}
	if to := strings.TrimSpace(values.Get("to")); to != "" {
		if parsed, err := calendar.ParseDate(to); err == nil {
			params.To = &parsed
		}
	}

	if day := strings.TrimSpace(values.Get("day")); day != "" {
		if parsed, err := calendar.ParseDate(day); err == nil {
			params.Period = application.ListPeriodDay
			params.PeriodReference = parsed
		}
	} else if week := strings.TrimSpace(values.Get("week")); week != "" {
		if parsed, err := calendar.ParseDate(week); err == nil {
			params.Period = application.ListPeriodWeek
			params.PeriodReference = parsed
		}
	} else if month := strings.TrimSpace(values.Get("month")); month != "" {
		if parsed, err := calendar.ParseDate(month + "-01"); err == nil {
			params.Period = application.ListPeriodMonth
			params.PeriodReference = parsed
		}
	}

	return params
}
