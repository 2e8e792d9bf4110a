package participation

import (
	"context"
	"errors"
	"testing"

	"github.com/civicapp/civichub/internal/app/system/apperr"
	"github.com/civicapp/civichub/internal/domain/models"
)

func newTestCoordinator(s *memStore, opts Options) *Coordinator {
	return New(fakeMissions{s}, fakeUsers{s}, directTx{}, opts, nil)
}

func assertMember(t *testing.T, s *memStore, userID, missionID string, want bool) {
	t.Helper()
	inMission := contains(s.missions[missionID].Participants, userID)
	inUser := contains(s.users[userID].ActiveMissions, missionID)
	if inMission != want || inUser != want {
		t.Fatalf("membership(%s, %s): mission side %v, user side %v, want %v",
			userID, missionID, inMission, inUser, want)
	}
}

func TestJoinLeave_Scenario(t *testing.T) {
	s := newMemStore()
	s.addUser("u1")
	s.addMission("m1", "owner", 0)
	c := newTestCoordinator(s, Options{})
	ctx := context.Background()

	if err := c.Join(ctx, "u1", "m1"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if got := s.missions["m1"].Participants; len(got) != 1 || got[0] != "u1" {
		t.Fatalf("participants = %v, want [u1]", got)
	}
	if got := s.users["u1"].ActiveMissions; len(got) != 1 || got[0] != "m1" {
		t.Fatalf("active_missions = %v, want [m1]", got)
	}

	if err := c.Leave(ctx, "u1", "m1"); err != nil {
		t.Fatalf("Leave failed: %v", err)
	}
	if len(s.missions["m1"].Participants) != 0 || len(s.users["u1"].ActiveMissions) != 0 {
		t.Fatalf("after leave: participants %v, active %v",
			s.missions["m1"].Participants, s.users["u1"].ActiveMissions)
	}
}

func TestJoin_Idempotent(t *testing.T) {
	s := newMemStore()
	s.addUser("u1")
	s.addMission("m1", "owner", 0)
	c := newTestCoordinator(s, Options{})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := c.Join(ctx, "u1", "m1"); err != nil {
			t.Fatalf("Join #%d failed: %v", i+1, err)
		}
	}
	if n := len(s.missions["m1"].Participants); n != 1 {
		t.Fatalf("participants has %d entries, want 1", n)
	}
	if s.missions["m1"].ParticipantsCount != 1 {
		t.Fatalf("participants_count = %d, want 1", s.missions["m1"].ParticipantsCount)
	}
	if n := len(s.users["u1"].ActiveMissions); n != 1 {
		t.Fatalf("active_missions has %d entries, want 1", n)
	}
}

func TestLeave_WithoutJoin(t *testing.T) {
	s := newMemStore()
	s.addUser("u1")
	s.addMission("m1", "owner", 0)
	c := newTestCoordinator(s, Options{})

	if err := c.Leave(context.Background(), "u1", "m1"); err != nil {
		t.Fatalf("Leave failed: %v", err)
	}
	assertMember(t, s, "u1", "m1", false)
}

func TestJoin_Validation(t *testing.T) {
	s := newMemStore()
	c := newTestCoordinator(s, Options{})

	tests := []struct{ user, mission string }{
		{"", "m1"},
		{"u1", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if err := c.Join(context.Background(), tt.user, tt.mission); apperr.KindOf(err) != apperr.KindValidation {
			t.Errorf("Join(%q, %q): expected validation error, got %v", tt.user, tt.mission, err)
		}
		if err := c.Leave(context.Background(), tt.user, tt.mission); apperr.KindOf(err) != apperr.KindValidation {
			t.Errorf("Leave(%q, %q): expected validation error, got %v", tt.user, tt.mission, err)
		}
	}
}

func TestJoin_MissingMission(t *testing.T) {
	s := newMemStore()
	s.addUser("u1")
	c := newTestCoordinator(s, Options{})

	err := c.Join(context.Background(), "u1", "nope")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(s.users["u1"].ActiveMissions) != 0 {
		t.Fatal("user side must not change when the mission is missing")
	}
}

func TestJoin_UserSideFails_Compensated(t *testing.T) {
	s := newMemStore()
	s.addUser("u1")
	s.addMission("m1", "owner", 0)
	s.failUserAdd = errBackend
	c := newTestCoordinator(s, Options{})

	err := c.Join(context.Background(), "u1", "m1")
	if !errors.Is(err, errBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}
	if apperr.KindOf(err) == apperr.KindPartial {
		t.Fatal("compensated failure must not be reported as partial")
	}
	assertMember(t, s, "u1", "m1", false)
	if s.missions["m1"].ParticipantsCount != 0 {
		t.Fatalf("participants_count = %d after compensation", s.missions["m1"].ParticipantsCount)
	}
}

func TestJoin_CompensationFails_Partial(t *testing.T) {
	s := newMemStore()
	s.addUser("u1")
	s.addMission("m1", "owner", 0)
	s.failUserAdd = errBackend
	s.failMissionRemove = errBackend
	c := newTestCoordinator(s, Options{})

	err := c.Join(context.Background(), "u1", "m1")
	if apperr.KindOf(err) != apperr.KindPartial {
		t.Fatalf("expected partial error, got %v", err)
	}
	// The residual gap: mission side applied, user side did not.
	if !contains(s.missions["m1"].Participants, "u1") {
		t.Fatal("mission should still list the user")
	}
	if contains(s.users["u1"].ActiveMissions, "m1") {
		t.Fatal("user should not list the mission")
	}
}

func TestJoin_AlreadyListed_NoCompensation(t *testing.T) {
	s := newMemStore()
	s.addUser("u1")
	s.addMission("m1", "owner", 0)
	c := newTestCoordinator(s, Options{})
	if err := c.Join(context.Background(), "u1", "m1"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	s.failUserAdd = errBackend
	if err := c.Join(context.Background(), "u1", "m1"); !errors.Is(err, errBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}
	// The earlier membership must survive a failed repeat join.
	if !contains(s.missions["m1"].Participants, "u1") {
		t.Fatal("existing membership was undone")
	}
}

func TestLeave_UserSideFails_Compensated(t *testing.T) {
	s := newMemStore()
	s.addUser("u1")
	s.addMission("m1", "owner", 1)
	c := newTestCoordinator(s, Options{EnforceCapacity: true})
	if err := c.Join(context.Background(), "u1", "m1"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	s.failUserRemove = errBackend
	err := c.Leave(context.Background(), "u1", "m1")
	if !errors.Is(err, errBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}
	assertMember(t, s, "u1", "m1", true)
}

func TestLeave_CompensationFails_Partial(t *testing.T) {
	s := newMemStore()
	s.addUser("u1")
	s.addMission("m1", "owner", 0)
	c := newTestCoordinator(s, Options{})
	if err := c.Join(context.Background(), "u1", "m1"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	s.failUserRemove = errBackend
	s.failMissionAdd = errBackend
	if err := c.Leave(context.Background(), "u1", "m1"); apperr.KindOf(err) != apperr.KindPartial {
		t.Fatalf("expected partial error, got %v", err)
	}
}

func TestJoin_Capacity(t *testing.T) {
	s := newMemStore()
	s.addUser("u1")
	s.addUser("u2")
	s.addMission("m1", "owner", 1)
	ctx := context.Background()

	enforced := newTestCoordinator(s, Options{EnforceCapacity: true})
	if err := enforced.Join(ctx, "u1", "m1"); err != nil {
		t.Fatalf("first Join failed: %v", err)
	}
	if err := enforced.Join(ctx, "u2", "m1"); apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected conflict for full mission, got %v", err)
	}
	assertMember(t, s, "u2", "m1", false)

	advisory := newTestCoordinator(s, Options{})
	if err := advisory.Join(ctx, "u2", "m1"); err != nil {
		t.Fatalf("Join without enforcement failed: %v", err)
	}
	assertMember(t, s, "u2", "m1", true)
}

func TestComplete(t *testing.T) {
	s := newMemStore()
	s.addUser("u1")
	s.addUser("u2")
	s.addMission("m1", "owner", 0)
	c := newTestCoordinator(s, Options{PointsPerMission: 25})
	ctx := context.Background()

	for _, u := range []string{"u1", "u2"} {
		if err := c.Join(ctx, u, "m1"); err != nil {
			t.Fatalf("Join(%s) failed: %v", u, err)
		}
	}

	if err := c.Complete(ctx, "owner", "m1"); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	for _, u := range []string{"u1", "u2"} {
		if s.users[u].Points != 25 || s.users[u].CompletedMissions != 1 {
			t.Errorf("%s: points %d, completed %d", u, s.users[u].Points, s.users[u].CompletedMissions)
		}
	}

	// Completing again awards nothing.
	if err := c.Complete(ctx, "owner", "m1"); err != nil {
		t.Fatalf("second Complete failed: %v", err)
	}
	if s.users["u1"].Points != 25 {
		t.Errorf("points = %d after repeat, want 25", s.users["u1"].Points)
	}
}

func TestComplete_ReopenRejected(t *testing.T) {
	s := newMemStore()
	s.addUser("u1")
	s.addMission("m1", "owner", 0)
	c := newTestCoordinator(s, Options{})
	ctx := context.Background()

	if err := c.Join(ctx, "u1", "m1"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := c.Complete(ctx, "owner", "m1"); err != nil {
			t.Fatalf("Complete #%d failed: %v", i+1, err)
		}
		_, err := fakeMissions{s}.UpdateStatus(ctx, "m1", "owner", models.MissionPending)
		if apperr.KindOf(err) != apperr.KindConflict {
			t.Fatalf("reopen #%d: expected conflict, got %v", i+1, err)
		}
	}
	if u := s.users["u1"]; u.Points != DefaultPointsPerMission || u.CompletedMissions != 1 {
		t.Errorf("points %d, completed %d; want %d, 1", u.Points, u.CompletedMissions, DefaultPointsPerMission)
	}
}

func TestComplete_NotCreator(t *testing.T) {
	s := newMemStore()
	s.addMission("m1", "owner", 0)
	c := newTestCoordinator(s, Options{})

	if err := c.Complete(context.Background(), "intruder", "m1"); apperr.KindOf(err) != apperr.KindPermission {
		t.Fatalf("expected permission error, got %v", err)
	}
}

func TestComplete_SkipsDeletedUsers(t *testing.T) {
	s := newMemStore()
	s.addUser("u1")
	s.addMission("m1", "owner", 0)
	s.missions["m1"].Participants = []string{"gone", "u1"}
	c := newTestCoordinator(s, Options{})

	if err := c.Complete(context.Background(), "owner", "m1"); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if s.users["u1"].Points != DefaultPointsPerMission {
		t.Errorf("points = %d, want %d", s.users["u1"].Points, DefaultPointsPerMission)
	}
}

func TestComplete_AwardFails_Partial(t *testing.T) {
	s := newMemStore()
	s.addUser("u1")
	s.addUser("u2")
	s.addMission("m1", "owner", 0)
	s.missions["m1"].Participants = []string{"u1", "u2"}
	s.failPoints["u1"] = errBackend
	c := newTestCoordinator(s, Options{})

	err := c.Complete(context.Background(), "owner", "m1")
	if apperr.KindOf(err) != apperr.KindPartial {
		t.Fatalf("expected partial error, got %v", err)
	}
	if s.users["u2"].Points != DefaultPointsPerMission {
		t.Error("remaining participants should still be credited")
	}
}
