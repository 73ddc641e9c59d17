package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/calendar-service/internal/application"
	"github.com/example/calendar-service/internal/calendar"
	"github.com/example/calendar-service/internal/event"
	"github.com/example/calendar-service/internal/recurrence"
)

type eventServiceStub struct {
	createFn      func(application.CreateEventParams) (event.Event, []event.OverlapWarning, error)
	getFn         func(application.Principal, string) (event.Event, error)
	updateFn      func(application.UpdateEventParams) (event.Event, []event.OverlapWarning, error)
	deleteFn      func(application.DeleteEventParams) error
	listFn        func(application.ListEventsParams) ([]event.Event, []event.OverlapWarning, error)
	searchFn      func(application.SearchEventsParams) ([]event.Event, error)
	occurrencesFn func(application.OccurrencesParams) ([]event.Event, error)
}

func (s *eventServiceStub) Create(_ context.Context, params application.CreateEventParams) (event.Event, []event.OverlapWarning, error) {
	if s.createFn == nil {
		return event.Event{}, nil, nil
	}
	return s.createFn(params)
}

func (s *eventServiceStub) Get(_ context.Context, principal application.Principal, eventID string) (event.Event, error) {
	if s.getFn == nil {
		return event.Event{}, application.ErrNotFound
	}
	return s.getFn(principal, eventID)
}

func (s *eventServiceStub) Update(_ context.Context, params application.UpdateEventParams) (event.Event, []event.OverlapWarning, error) {
	if s.updateFn == nil {
		return event.Event{}, nil, application.ErrNotFound
	}
	return s.updateFn(params)
}

func (s *eventServiceStub) Delete(_ context.Context, params application.DeleteEventParams) error {
	if s.deleteFn == nil {
		return application.ErrNotFound
	}
	return s.deleteFn(params)
}

func (s *eventServiceStub) List(_ context.Context, params application.ListEventsParams) ([]event.Event, []event.OverlapWarning, error) {
	if s.listFn == nil {
		return nil, nil, nil
	}
	return s.listFn(params)
}

func (s *eventServiceStub) Search(_ context.Context, params application.SearchEventsParams) ([]event.Event, error) {
	if s.searchFn == nil {
		return nil, nil
	}
	return s.searchFn(params)
}

func (s *eventServiceStub) Occurrences(_ context.Context, params application.OccurrencesParams) ([]event.Event, error) {
	if s.occurrencesFn == nil {
		return nil, nil
	}
	return s.occurrencesFn(params)
}

type authServiceStub struct {
	authenticateFn func(application.AuthenticateParams) (application.AuthenticateResult, error)
	revokeFn       func(string) error
}

func (s *authServiceStub) Authenticate(_ context.Context, params application.AuthenticateParams) (application.AuthenticateResult, error) {
	if s.authenticateFn == nil {
		return application.AuthenticateResult{}, application.ErrInvalidCredentials
	}
	return s.authenticateFn(params)
}

func (s *authServiceStub) RevokeSession(_ context.Context, token string) error {
	if s.revokeFn == nil {
		return nil
	}
	return s.revokeFn(token)
}

type userServiceStub struct {
	registerFn func(application.UserInput) (application.User, error)
	deleteFn   func(application.Principal, string) error
}

func (s *userServiceStub) Register(_ context.Context, input application.UserInput) (application.User, error) {
	if s.registerFn == nil {
		return application.User{}, application.ErrAlreadyExists
	}
	return s.registerFn(input)
}

func (s *userServiceStub) Get(context.Context, string) (application.User, error) {
	return application.User{}, application.ErrNotFound
}

func (s *userServiceStub) List(context.Context) ([]application.User, error) {
	return nil, nil
}

func (s *userServiceStub) Delete(_ context.Context, principal application.Principal, id string) error {
	if s.deleteFn == nil {
		return application.ErrUnauthorized
	}
	return s.deleteFn(principal, id)
}

func newTestRouter(t *testing.T, events *eventServiceStub, auth *authServiceStub, users *userServiceStub) http.Handler {
	t.Helper()
	if events == nil {
		events = &eventServiceStub{}
	}
	if auth == nil {
		auth = &authServiceStub{}
	}
	if users == nil {
		users = &userServiceStub{}
	}
	now := func() time.Time { return time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC) }
	return NewRouter(RouterConfig{
		Auth:   NewAuthHandler(auth, nil),
		Users:  NewUserHandler(users, nil),
		Events: NewEventHandler(events, nil),
		Feed:   NewFeedHandler(events, now, nil),
	})
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(target); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}

func TestRouterMethodNotAllowed(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, nil, nil, nil)

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodPut, "/sessions"},
		{http.MethodPost, "/sessions/current"},
		{http.MethodPatch, "/events"},
		{http.MethodPost, "/events/event-1"},
		{http.MethodPost, "/search"},
		{http.MethodPost, "/calendar.ics"},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: status = %d, want %d", tc.method, tc.path, rec.Code, http.StatusMethodNotAllowed)
		}
		if rec.Header().Get("Allow") == "" {
			t.Errorf("%s %s: missing Allow header", tc.method, tc.path)
		}
	}
}

func TestCreateSession(t *testing.T) {
	t.Parallel()

	expires := time.Date(2025, 5, 2, 9, 0, 0, 0, time.UTC)
	auth := &authServiceStub{
		authenticateFn: func(params application.AuthenticateParams) (application.AuthenticateResult, error) {
			if params.Email != "hana@example.com" || params.Password != "correct horse battery" {
				return application.AuthenticateResult{}, application.ErrInvalidCredentials
			}
			return application.AuthenticateResult{
				User:    application.User{ID: "user-1", Email: params.Email, DisplayName: "하나"},
				Session: application.Session{Token: "token-1", ExpiresAt: expires},
			}, nil
		},
	}
	router := newTestRouter(t, nil, auth, nil)

	body := strings.NewReader(`{"email":"Hana@Example.com","password":"correct horse battery"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sessions", body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if got := rec.Header().Get("X-Session-Token"); got != "token-1" {
		t.Errorf("X-Session-Token = %q, want %q", got, "token-1")
	}

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "session_token" {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != "token-1" {
		t.Fatalf("session cookie not set: %+v", rec.Result().Cookies())
	}
	if !cookie.HttpOnly {
		t.Error("session cookie should be HttpOnly")
	}

	var resp loginResponse
	decodeBody(t, rec, &resp)
	if resp.Token != "token-1" {
		t.Errorf("Token = %q, want %q", resp.Token, "token-1")
	}
	if resp.User.DisplayName != "하나" {
		t.Errorf("DisplayName = %q, want %q", resp.User.DisplayName, "하나")
	}
}

func TestCreateSessionInvalidCredentials(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, nil, &authServiceStub{}, nil)

	body := strings.NewReader(`{"email":"hana@example.com","password":"wrong"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sessions", body))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	var resp errorResponse
	decodeBody(t, rec, &resp)
	if resp.ErrorCode != "AUTH_INVALID_CREDENTIALS" {
		t.Errorf("ErrorCode = %q, want AUTH_INVALID_CREDENTIALS", resp.ErrorCode)
	}
}

func TestCreateEventParsesRepeat(t *testing.T) {
	t.Parallel()

	var captured application.CreateEventParams
	events := &eventServiceStub{
		createFn: func(params application.CreateEventParams) (event.Event, []event.OverlapWarning, error) {
			captured = params
			return event.Event{
				ID:      "event-1",
				OwnerID: params.Principal.UserID,
				Title:   params.Input.Title,
				Date:    params.Input.Date,
				Rule: recurrence.Rule{
					Frequency:   params.Input.Frequency,
					Interval:    *params.Input.Interval,
					Termination: recurrence.Count(*params.Input.OccurrenceCount),
				},
				GroupID: "group-1",
			}, nil, nil
		},
	}
	router := newTestRouter(t, events, nil, nil)

	body := strings.NewReader(`{
		"title": "주간 회의",
		"date": "2025-06-02",
		"start_time": "10:00",
		"end_time": "11:00",
		"repeat": {"frequency": "weekly", "interval": 2, "count": 5}
	}`)
	req := httptest.NewRequest(http.MethodPost, "/events", body)
	req = req.WithContext(ContextWithPrincipal(req.Context(), application.Principal{UserID: "user-1"}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if captured.Input.Frequency != recurrence.FrequencyWeekly {
		t.Errorf("Frequency = %v, want weekly", captured.Input.Frequency)
	}
	if captured.Input.Interval == nil || *captured.Input.Interval != 2 {
		t.Errorf("Interval = %v, want 2", captured.Input.Interval)
	}
	if captured.Input.OccurrenceCount == nil || *captured.Input.OccurrenceCount != 5 {
		t.Errorf("OccurrenceCount = %v, want 5", captured.Input.OccurrenceCount)
	}

	var resp eventResponse
	decodeBody(t, rec, &resp)
	if resp.Event.Repeat == nil {
		t.Fatal("expected repeat block in response")
	}
	if resp.Event.Repeat.Frequency != "weekly" || resp.Event.Repeat.Interval != 2 {
		t.Errorf("repeat = %+v, want weekly interval 2", resp.Event.Repeat)
	}
}

func TestCreateEventKeepsAbsentIntervalUnset(t *testing.T) {
	t.Parallel()

	var captured application.CreateEventParams
	events := &eventServiceStub{
		createFn: func(params application.CreateEventParams) (event.Event, []event.OverlapWarning, error) {
			captured = params
			return event.Event{ID: "event-1", Date: params.Input.Date}, nil, nil
		},
	}
	router := newTestRouter(t, events, nil, nil)

	// Omitted interval stays nil so the service applies its default; an
	// explicit zero must survive decoding to be rejected downstream.
	body := strings.NewReader(`{
		"title": "아침 운동",
		"date": "2025-06-02",
		"repeat": {"frequency": "daily", "count": 2}
	}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events", body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if captured.Input.Interval != nil {
		t.Errorf("Interval = %v, want nil", *captured.Input.Interval)
	}

	body = strings.NewReader(`{
		"title": "아침 운동",
		"date": "2025-06-02",
		"repeat": {"frequency": "daily", "interval": 0, "count": 2}
	}`)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events", body))

	if captured.Input.Interval == nil || *captured.Input.Interval != 0 {
		t.Errorf("Interval = %v, want explicit 0", captured.Input.Interval)
	}
}

func TestCreateEventRejectsMalformedBody(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &eventServiceStub{}, nil, nil)

	cases := []struct {
		name string
		body string
	}{
		{"invalid json", `{"title": `},
		{"bad date", `{"title": "x", "date": "2025/06/02"}`},
		{"bad frequency", `{"title": "x", "date": "2025-06-02", "repeat": {"frequency": "hourly"}}`},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(tc.body)))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestCreateEventLocalizesValidationErrors(t *testing.T) {
	t.Parallel()

	vErr := &application.ValidationError{FieldErrors: map[string]string{
		"interval": "interval must be at least 1",
		"title":    "title is required",
	}}
	events := &eventServiceStub{
		createFn: func(application.CreateEventParams) (event.Event, []event.OverlapWarning, error) {
			return event.Event{}, nil, vErr
		},
	}
	router := newTestRouter(t, events, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`{"title":""}`)))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
	var resp errorResponse
	decodeBody(t, rec, &resp)
	if got := resp.Errors["interval"]; got != "반복 간격은 1 이상이어야 합니다." {
		t.Errorf("interval message = %q", got)
	}
	if got := resp.Errors["title"]; got != "제목은 필수입니다." {
		t.Errorf("title message = %q", got)
	}
}

func TestUpdateEventPassesScope(t *testing.T) {
	t.Parallel()

	var captured application.UpdateEventParams
	events := &eventServiceStub{
		updateFn: func(params application.UpdateEventParams) (event.Event, []event.OverlapWarning, error) {
			captured = params
			return event.Event{ID: params.EventID, Title: params.Input.Title, Date: params.Input.Date, Rule: recurrence.None()}, nil, nil
		},
	}
	router := newTestRouter(t, events, nil, nil)

	body := strings.NewReader(`{"title": "옮긴 회의", "date": "2025-06-11"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/events/event-7?scope=all", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	if captured.EventID != "event-7" {
		t.Errorf("EventID = %q, want event-7", captured.EventID)
	}
	if captured.Scope != application.ScopeAll {
		t.Errorf("Scope = %q, want %q", captured.Scope, application.ScopeAll)
	}
}

func TestDeleteEvent(t *testing.T) {
	t.Parallel()

	var captured application.DeleteEventParams
	events := &eventServiceStub{
		deleteFn: func(params application.DeleteEventParams) error {
			captured = params
			return nil
		},
	}
	router := newTestRouter(t, events, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/events/event-3?scope=one", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if captured.EventID != "event-3" || captured.Scope != application.ScopeOne {
		t.Errorf("captured = %+v, want event-3 scope one", captured)
	}
}

func TestOccurrencesParsesWindow(t *testing.T) {
	t.Parallel()

	var captured application.OccurrencesParams
	events := &eventServiceStub{
		occurrencesFn: func(params application.OccurrencesParams) ([]event.Event, error) {
			captured = params
			return []event.Event{{
				ID:   params.EventID,
				Date: calendar.NewDate(2025, time.June, 9),
				Rule: recurrence.None(),
			}}, nil
		},
	}
	router := newTestRouter(t, events, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events/series-1/occurrences?from=2025-06-01&to=2025-06-30", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	if captured.EventID != "series-1" {
		t.Errorf("EventID = %q, want series-1", captured.EventID)
	}
	if captured.From.String() != "2025-06-01" || captured.To.String() != "2025-06-30" {
		t.Errorf("window = %s..%s, want 2025-06-01..2025-06-30", captured.From, captured.To)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events/series-1/occurrences?from=bad&to=2025-06-30", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed window: status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestListBuildsPeriodParams(t *testing.T) {
	t.Parallel()

	var captured application.ListEventsParams
	events := &eventServiceStub{
		listFn: func(params application.ListEventsParams) ([]event.Event, []event.OverlapWarning, error) {
			captured = params
			return nil, nil, nil
		},
	}
	router := newTestRouter(t, events, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events?month=2025-06", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if captured.Period != application.ListPeriodMonth {
		t.Errorf("Period = %q, want month", captured.Period)
	}
	if captured.PeriodReference.String() != "2025-06-01" {
		t.Errorf("PeriodReference = %s, want 2025-06-01", captured.PeriodReference)
	}
}

func TestSearchPassesQuery(t *testing.T) {
	t.Parallel()

	var captured application.SearchEventsParams
	events := &eventServiceStub{
		searchFn: func(params application.SearchEventsParams) ([]event.Event, error) {
			captured = params
			return nil, nil
		},
	}
	router := newTestRouter(t, events, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search?q=%EC%B9%98%EA%B3%BC", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if captured.Query != "치과" {
		t.Errorf("Query = %q, want 치과", captured.Query)
	}
}

func TestRegisterUser(t *testing.T) {
	t.Parallel()

	users := &userServiceStub{
		registerFn: func(input application.UserInput) (application.User, error) {
			return application.User{ID: "user-9", Email: input.Email, DisplayName: input.DisplayName}, nil
		},
	}
	router := newTestRouter(t, nil, nil, users)

	body := strings.NewReader(`{"email":"new@example.com","display_name":"새 사용자","password":"password123"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/users", body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var resp userResponse
	decodeBody(t, rec, &resp)
	if resp.User.ID != "user-9" {
		t.Errorf("ID = %q, want user-9", resp.User.ID)
	}
}

func TestCalendarFeed(t *testing.T) {
	t.Parallel()

	events := &eventServiceStub{
		listFn: func(params application.ListEventsParams) ([]event.Event, []event.OverlapWarning, error) {
			return []event.Event{
				{
					ID:    "seed-1",
					Title: "주간 회의",
					Date:  calendar.NewDate(2025, time.June, 2),
					Rule: recurrence.Rule{
						Frequency:   recurrence.FrequencyWeekly,
						Interval:    1,
						Termination: recurrence.Count(4),
					},
					GroupID: "group-1",
				},
				{
					ID:        "seed-1-2",
					Title:     "주간 회의",
					Date:      calendar.NewDate(2025, time.June, 9),
					Rule:      recurrence.Rule{Frequency: recurrence.FrequencyWeekly, Interval: 1, Termination: recurrence.Count(4)},
					GroupID:   "group-1",
					Generated: true,
				},
			}, nil, nil
		},
	}
	router := newTestRouter(t, events, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/calendar.ics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/calendar") {
		t.Errorf("Content-Type = %q, want text/calendar", got)
	}
	payload := rec.Body.String()
	if !strings.Contains(payload, "BEGIN:VCALENDAR") {
		t.Error("payload missing VCALENDAR envelope")
	}
	if got := strings.Count(payload, "BEGIN:VEVENT"); got != 1 {
		t.Errorf("VEVENT count = %d, want 1 (generated rows are folded into the seed)", got)
	}
	if !strings.Contains(payload, "RRULE:FREQ=WEEKLY;COUNT=4") {
		t.Error("payload missing series rule")
	}
}

func TestRequireSession(t *testing.T) {
	t.Parallel()

	validator := sessionValidatorStub{
		principals: map[string]application.Principal{"token-1": {UserID: "user-1"}},
	}

	var seen application.Principal
	protected := RequireSession(validator, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing token: status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.Header.Set("Authorization", "Bearer token-1")
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token: status = %d, want %d", rec.Code, http.StatusOK)
	}
	if seen.UserID != "user-1" {
		t.Errorf("principal = %+v, want user-1", seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/events", nil)
	req.AddCookie(&http.Cookie{Name: "session_token", Value: "token-1"})
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("cookie token: status = %d, want %d", rec.Code, http.StatusOK)
	}
}

type sessionValidatorStub struct {
	principals map[string]application.Principal
}

func (s sessionValidatorStub) ValidateSession(_ context.Context, token string) (application.Principal, error) {
	principal, ok := s.principals[token]
	if !ok {
		return application.Principal{}, application.ErrUnauthorized
	}
	return principal, nil
}
