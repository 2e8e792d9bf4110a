package missionsvm

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/civicapp/civichub/internal/app/system/apperr"
	"github.com/civicapp/civichub/internal/domain/models"
)

type fakeMissions struct {
	mu       sync.Mutex
	missions []models.Mission
	listErr  error
	lists    int
}

func (f *fakeMissions) List(context.Context) ([]models.Mission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.Mission(nil), f.missions...), nil
}

func (f *fakeMissions) ListByCategory(ctx context.Context, category string) ([]models.Mission, error) {
	if category == "" || category == "all" {
		return f.List(ctx)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Mission{}
	for _, m := range f.missions {
		if m.Category == category {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMissions) Search(ctx context.Context, q string) ([]models.Mission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Mission{}
	for _, m := range f.missions {
		if strings.Contains(strings.ToLower(m.Title), strings.ToLower(q)) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMissions) Create(_ context.Context, m models.Mission) (models.Mission, error) {
	if strings.TrimSpace(m.Title) == "" {
		return models.Mission{}, apperr.Validation("title is required")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	m.ID = "new"
	m.Status = models.MissionPending
	f.missions = append(f.missions, m)
	return m, nil
}

func (f *fakeMissions) UpdateStatus(_ context.Context, missionID, creatorID, status string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.missions {
		if f.missions[i].ID == missionID {
			if f.missions[i].CreatedBy != creatorID {
				return false, apperr.New(apperr.KindPermission, "only the mission creator can change its status")
			}
			f.missions[i].Status = status
			return true, nil
		}
	}
	return false, apperr.NotFound("mission")
}

type fakeParticipation struct {
	mu        sync.Mutex
	joins     []string
	leaves    []string
	completes []string
	err       error
}

func (f *fakeParticipation) Join(_ context.Context, userID, missionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joins = append(f.joins, userID+"/"+missionID)
	return f.err
}

func (f *fakeParticipation) Leave(_ context.Context, userID, missionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaves = append(f.leaves, userID+"/"+missionID)
	return f.err
}

func (f *fakeParticipation) Complete(_ context.Context, creatorID, missionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completes = append(f.completes, creatorID+"/"+missionID)
	return f.err
}

func seed() *fakeMissions {
	return &fakeMissions{missions: []models.Mission{
		{ID: "m1", Title: "Park Cleanup", Category: "Environment", CreatedBy: "owner"},
		{ID: "m2", Title: "Food Drive", Category: "Community", CreatedBy: "owner"},
	}}
}

func nextResult(t *testing.T, h *Holder) apperr.Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	res, err := h.Operations.Next(ctx)
	if err != nil {
		t.Fatalf("no result: %v", err)
	}
	return res
}

func TestLoadAll(t *testing.T) {
	h := New(context.Background(), "", seed(), &fakeParticipation{}, nil)
	defer h.Close()

	h.LoadAll()
	h.Wait()

	if got := h.Missions.Value(); len(got) != 2 {
		t.Fatalf("got %d missions, want 2", len(got))
	}
	if !h.LoadStatus.Value().OK {
		t.Errorf("LoadStatus = %+v", h.LoadStatus.Value())
	}
}

func TestLoad_FailureKeepsList(t *testing.T) {
	store := seed()
	h := New(context.Background(), "", store, &fakeParticipation{}, nil)
	defer h.Close()

	h.LoadAll()
	h.Wait()
	store.listErr = context.DeadlineExceeded

	h.LoadAll()
	h.Wait()

	if len(h.Missions.Value()) != 2 {
		t.Error("a failed load should keep the last good list")
	}
	st := h.LoadStatus.Value()
	if st.OK || st.Kind != apperr.KindTransient {
		t.Errorf("LoadStatus = %+v, want transient failure", st)
	}
}

func TestSearchAndFilter(t *testing.T) {
	h := New(context.Background(), "", seed(), &fakeParticipation{}, nil)
	defer h.Close()

	h.Search("park")
	h.Wait()
	if got := h.Missions.Value(); len(got) != 1 || got[0].ID != "m1" {
		t.Fatalf("Search = %v", got)
	}

	h.Search("zzz")
	h.Wait()
	if got := h.Missions.Value(); len(got) != 0 {
		t.Fatalf("Search(zzz) = %v, want empty", got)
	}

	h.FilterByCategory("Community")
	h.Wait()
	if got := h.Missions.Value(); len(got) != 1 || got[0].ID != "m2" {
		t.Fatalf("FilterByCategory = %v", got)
	}

	h.FilterByCategory("all")
	h.Wait()
	if got := h.Missions.Value(); len(got) != 2 {
		t.Fatalf("FilterByCategory(all) = %v", got)
	}
}

func TestJoin_EmitsThenReloads(t *testing.T) {
	store := seed()
	part := &fakeParticipation{}
	h := New(context.Background(), "u1", store, part, nil)
	defer h.Close()

	h.Join("m1")
	if res := nextResult(t, h); !res.OK {
		t.Fatalf("result = %+v", res)
	}
	h.Wait()

	if len(part.joins) != 1 || part.joins[0] != "u1/m1" {
		t.Errorf("joins = %v", part.joins)
	}
	if store.lists != 1 {
		t.Errorf("list reloaded %d times, want 1", store.lists)
	}
	if len(h.Missions.Value()) != 2 {
		t.Error("list should be reloaded after the mutation")
	}
}

func TestLeave_FailureStillReloads(t *testing.T) {
	store := seed()
	part := &fakeParticipation{err: apperr.New(apperr.KindPartial, "leave applied to the mission only")}
	h := New(context.Background(), "u1", store, part, nil)
	defer h.Close()

	h.Leave("m1")
	res := nextResult(t, h)
	if res.OK || res.Kind != apperr.KindPartial {
		t.Fatalf("result = %+v", res)
	}
	h.Wait()
	if store.lists != 1 {
		t.Errorf("list reloaded %d times, want 1", store.lists)
	}
}

func TestMutation_SignedOut(t *testing.T) {
	part := &fakeParticipation{}
	h := New(context.Background(), "", seed(), part, nil)
	defer h.Close()

	h.Join("m1")
	res := nextResult(t, h)
	if res.OK || res.Kind != apperr.KindPermission {
		t.Fatalf("result = %+v", res)
	}
	h.Wait()
	if len(part.joins) != 0 {
		t.Error("coordinator must not be called without a user")
	}
}

func TestCreate(t *testing.T) {
	store := seed()
	h := New(context.Background(), "u1", store, &fakeParticipation{}, nil)
	defer h.Close()

	h.Create(models.Mission{Title: "Beach Day"})
	if res := nextResult(t, h); !res.OK {
		t.Fatalf("result = %+v", res)
	}
	created, ok := h.Created.TryNext()
	if !ok || created.CreatedBy != "u1" {
		t.Fatalf("created = %+v, %v", created, ok)
	}
	h.Wait()
	if len(h.Missions.Value()) != 3 {
		t.Errorf("list has %d missions after create, want 3", len(h.Missions.Value()))
	}

	h.Create(models.Mission{Title: " "})
	if res := nextResult(t, h); res.OK || res.Kind != apperr.KindValidation {
		t.Fatalf("blank title result = %+v", res)
	}
}

func TestUpdateStatus(t *testing.T) {
	t.Run("completed goes through the coordinator", func(t *testing.T) {
		part := &fakeParticipation{}
		h := New(context.Background(), "owner", seed(), part, nil)
		defer h.Close()

		h.UpdateStatus("m1", models.MissionCompleted)
		if res := nextResult(t, h); !res.OK {
			t.Fatalf("result = %+v", res)
		}
		h.Wait()
		if len(part.completes) != 1 || part.completes[0] != "owner/m1" {
			t.Errorf("completes = %v", part.completes)
		}
	})

	t.Run("canceled by creator", func(t *testing.T) {
		store := seed()
		h := New(context.Background(), "owner", store, &fakeParticipation{}, nil)
		defer h.Close()

		h.UpdateStatus("m2", models.MissionCanceled)
		if res := nextResult(t, h); !res.OK {
			t.Fatalf("result = %+v", res)
		}
		h.Wait()
		if store.missions[1].Status != models.MissionCanceled {
			t.Errorf("status = %q", store.missions[1].Status)
		}
	})

	t.Run("not creator", func(t *testing.T) {
		h := New(context.Background(), "intruder", seed(), &fakeParticipation{}, nil)
		defer h.Close()

		h.UpdateStatus("m1", models.MissionCanceled)
		if res := nextResult(t, h); res.OK || res.Kind != apperr.KindPermission {
			t.Fatalf("result = %+v", res)
		}
	})
}
