package application

import (
	"testing"
	"time"

	"github.com/example/calendar-service/internal/calendar"
	"github.com/example/calendar-service/internal/event"
)

func TestWarningCacheCopiesEntries(t *testing.T) {
	t.Parallel()

	current := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	cache := newWarningCache(time.Minute, 4, func() time.Time { return current })

	original := []event.OverlapWarning{{EventID: "event-1", WithEventID: "event-2", Date: "2025-06-10"}}
	cache.Store("key", original)

	// Mutating the original slice must not affect the cached copy.
	original[0].EventID = "mutated"

	cached, ok := cache.Get("key")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if cached[0].EventID != "event-1" {
		t.Fatalf("cached event id = %q, want event-1", cached[0].EventID)
	}

	// Mutating a returned slice must not poison later reads either.
	cached[0].EventID = "changed"
	cachedAgain, ok := cache.Get("key")
	if !ok {
		t.Fatal("expected cache hit on second read")
	}
	if cachedAgain[0].EventID != "event-1" {
		t.Fatalf("cached event id after mutation = %q, want event-1", cachedAgain[0].EventID)
	}
}

func TestWarningCacheExpiresEntries(t *testing.T) {
	t.Parallel()

	current := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	cache := newWarningCache(30*time.Second, 4, func() time.Time { return current })

	cache.Store("key", []event.OverlapWarning{{EventID: "event-1"}})
	current = current.Add(31 * time.Second)

	if _, ok := cache.Get("key"); ok {
		t.Fatal("expected entry to expire")
	}
}

func TestWarningCacheInvalidate(t *testing.T) {
	t.Parallel()

	cache := newWarningCache(time.Minute, 4, nil)
	cache.Store("key", []event.OverlapWarning{{EventID: "event-1"}})
	cache.Invalidate()

	if _, ok := cache.Get("key"); ok {
		t.Fatal("expected cache to be empty after invalidation")
	}
}

func TestWarningCacheKeyIncludesWindow(t *testing.T) {
	t.Parallel()

	from := calendar.NewDate(2025, time.June, 1)
	to := calendar.NewDate(2025, time.June, 30)

	open := buildWarningCacheKey("user-1", nil, nil)
	bounded := buildWarningCacheKey("user-1", &from, &to)
	other := buildWarningCacheKey("user-2", &from, &to)

	if open == bounded {
		t.Fatal("expected window bounds to change the key")
	}
	if bounded == other {
		t.Fatal("expected owner to change the key")
	}
}
