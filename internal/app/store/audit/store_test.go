package audit_test

import (
	"testing"
	"time"

	"github.com/civicapp/civichub/internal/app/store/audit"
	"github.com/civicapp/civichub/internal/testutil"
)

func TestStore_LogAndListForUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	events := []audit.Event{
		{EventType: audit.EventSignup, UserID: "u1", Success: true, Timestamp: now.Add(-2 * time.Minute)},
		{EventType: audit.EventLoginSuccess, UserID: "u1", Success: true, Timestamp: now.Add(-time.Minute)},
		{EventType: audit.EventLoginSuccess, UserID: "u2", Success: true, Timestamp: now},
	}
	for _, e := range events {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	got, err := store.ListForUser(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("ListForUser failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	if got[0].EventType != audit.EventLoginSuccess || got[1].EventType != audit.EventSignup {
		t.Errorf("order = [%s %s], want newest first", got[0].EventType, got[1].EventType)
	}
	if got[0].ID.IsZero() {
		t.Error("expected generated id")
	}
}

func TestStore_Log_SetsTimestamp(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	before := time.Now().Add(-time.Second)
	if err := store.Log(ctx, audit.Event{EventType: audit.EventLoginFailed, Email: "x@example.com"}); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	got, err := store.Query(ctx, audit.Filter{EventType: audit.EventLoginFailed})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d events, want 1", len(got))
	}
	if got[0].Timestamp.Before(before) {
		t.Errorf("timestamp %v not set on insert", got[0].Timestamp)
	}
	if got[0].Success {
		t.Error("failed login recorded as success")
	}
}

func TestStore_QueryFilters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	_ = store.Log(ctx, audit.Event{EventType: audit.EventLogout, UserID: "u1", Timestamp: now.Add(-48 * time.Hour)})
	_ = store.Log(ctx, audit.Event{EventType: audit.EventLogout, UserID: "u1", Timestamp: now})
	_ = store.Log(ctx, audit.Event{EventType: audit.EventLoginSuccess, UserID: "u1", Timestamp: now})

	tests := []struct {
		name string
		f    audit.Filter
		want int
	}{
		{"all", audit.Filter{}, 3},
		{"by type", audit.Filter{EventType: audit.EventLogout}, 2},
		{"since", audit.Filter{Since: now.Add(-time.Hour)}, 2},
		{"type and since", audit.Filter{EventType: audit.EventLogout, Since: now.Add(-time.Hour)}, 1},
		{"limit", audit.Filter{Limit: 1}, 1},
		{"other user", audit.Filter{UserID: "u2"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Query(ctx, tt.f)
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d events, want %d", len(got), tt.want)
			}
		})
	}
}

func TestStore_DeleteBefore(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	_ = store.Log(ctx, audit.Event{EventType: audit.EventLogout, Timestamp: now.Add(-100 * 24 * time.Hour)})
	_ = store.Log(ctx, audit.Event{EventType: audit.EventLogout, Timestamp: now})

	n, err := store.DeleteBefore(ctx, now.Add(-90*24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteBefore failed: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d, want 1", n)
	}
	left, _ := store.Query(ctx, audit.Filter{})
	if len(left) != 1 {
		t.Errorf("%d events left, want 1", len(left))
	}
}
