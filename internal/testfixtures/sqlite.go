package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/calendar-service/internal/persistence"
	"github.com/example/calendar-service/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration style persistence tests.
type SQLiteHarness struct {
	Users    persistence.UserRepository
	Events   persistence.EventRepository
	Sessions persistence.SessionRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a migrated harness over a temporary database
// file. A cleanup callback is registered with the provided testing.TB, so
// calling Close is optional.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := "file:" + filepath.Join(tb.TempDir(), "calendar.db")

	storage, err := sqlite.Open(path)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := storage.Migrate(context.Background()); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Users:    sqlite.NewUserRepository(storage),
		Events:   sqlite.NewEventRepository(storage),
		Sessions: sqlite.NewSessionRepository(storage),
		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
