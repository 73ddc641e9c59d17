package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/example/calendar-service/internal/application"
	"github.com/example/calendar-service/internal/ics"
)

// FeedHandler serves the authenticated user's events as an iCalendar feed.
type FeedHandler struct {
	service   eventService
	now       func() time.Time
	responder responder
	logger    *slog.Logger
}

func NewFeedHandler(service eventService, now func() time.Time, logger *slog.Logger) *FeedHandler {
	if now == nil {
		now = time.Now
	}
	base := defaultLogger(logger)
	return &FeedHandler{service: service, now: now, responder: newResponder(base), logger: base}
}

// Calendar handles GET /calendar.ics.
func (h *FeedHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	events, _, err := h.service.List(r.Context(), application.ListEventsParams{Principal: principal})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	payload := ics.Export(events, h.now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="calendar.ics"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(payload)); err != nil {
		handlerLogger(r.Context(), h.logger, "FeedHandler", "Calendar").
			ErrorContext(r.Context(), "failed to write feed", "error", err)
	}
}
