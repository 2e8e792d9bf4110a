package oauthstate_test

import (
	"testing"
	"time"

	"github.com/civicapp/civichub/internal/app/store/oauthstate"
	"github.com/civicapp/civichub/internal/testutil"
)

func TestStore_SaveAndConsume(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := oauthstate.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := store.Save(ctx, oauthstate.Entry{
		State:     "abc",
		ReturnURL: "/missions",
		Client:    oauthstate.ClientMobile,
		ExpiresAt: time.Now().Add(10 * time.Minute),
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	e, ok, err := store.Consume(ctx, "abc")
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if !ok {
		t.Fatal("expected state to be valid")
	}
	if e.ReturnURL != "/missions" || e.Client != oauthstate.ClientMobile {
		t.Errorf("entry = %+v", e)
	}

	// One-time use.
	if _, ok, _ := store.Consume(ctx, "abc"); ok {
		t.Fatal("state should not be usable twice")
	}
}

func TestStore_Save_DefaultsToWeb(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := oauthstate.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.Save(ctx, oauthstate.Entry{State: "w", ExpiresAt: time.Now().Add(time.Minute)}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	e, ok, err := store.Consume(ctx, "w")
	if err != nil || !ok {
		t.Fatalf("Consume = %v, %v", ok, err)
	}
	if e.Client != oauthstate.ClientWeb {
		t.Errorf("Client = %q, want web", e.Client)
	}
}

func TestStore_Consume_Expired(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := oauthstate.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.Save(ctx, oauthstate.Entry{State: "old", ExpiresAt: time.Now().Add(-time.Minute)}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, ok, err := store.Consume(ctx, "old"); err != nil || ok {
		t.Fatalf("Consume(expired) = %v, %v; want false, nil", ok, err)
	}
}

func TestStore_CleanupExpired(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := oauthstate.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_ = store.Save(ctx, oauthstate.Entry{State: "old", ExpiresAt: time.Now().Add(-time.Minute)})
	_ = store.Save(ctx, oauthstate.Entry{State: "new", ExpiresAt: time.Now().Add(time.Minute)})

	n, err := store.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("CleanupExpired failed: %v", err)
	}
	if n != 1 {
		t.Errorf("removed %d, want 1", n)
	}
	if _, ok, _ := store.Consume(ctx, "new"); !ok {
		t.Error("unexpired state should survive cleanup")
	}
}
