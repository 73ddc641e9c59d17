// Package http provides HTTP handlers and middleware for the calendar API.
//
// The router exposes the following endpoints:
//   - POST /sessions: issues a session token. Body: {"email","password"}.
//     The token is also surfaced via the `X-Session-Token` header and a
//     `session_token` cookie. DELETE /sessions/current revokes it.
//   - POST /users: registers an account. GET /users lists accounts,
//     DELETE /users/{id} removes the caller's own account.
//   - GET /events, POST /events, GET/PUT/DELETE /events/{id}: event management
//     exchanging the `eventDTO` payload defined in event_handler.go. Mutations
//     on series members accept `?scope=one|all`; responses include advisory
//     overlap warnings. GET /events/{id}/occurrences projects a single event
//     into a `from`/`to` window without touching stored siblings.
//   - GET /search?q=: full text search over title, description and location.
//   - GET /calendar.ics: iCalendar export of the caller's stored events.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
