package participation

import (
	"context"
	"errors"
	"sync"

	"github.com/civicapp/civichub/internal/app/system/apperr"
	"github.com/civicapp/civichub/internal/domain/models"
)

var errBackend = errors.New("backend unavailable")

// memStore backs both fakes so the invariant can be checked across sides.
type memStore struct {
	mu       sync.Mutex
	missions map[string]*models.Mission
	users    map[string]*models.User

	failUserAdd       error
	failUserRemove    error
	failMissionRemove error
	failMissionAdd    error
	failPoints        map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		missions:   map[string]*models.Mission{},
		users:      map[string]*models.User{},
		failPoints: map[string]error{},
	}
}

func (s *memStore) addMission(id, creator string, max int) {
	s.missions[id] = &models.Mission{ID: id, CreatedBy: creator, Status: models.MissionPending, MaxParticipants: max, Participants: []string{}}
}

func (s *memStore) addUser(id string) {
	s.users[id] = &models.User{ID: id, ActiveMissions: []string{}}
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func without(list []string, v string) []string {
	out := []string{}
	for _, x := range list {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

type fakeMissions struct{ s *memStore }

func (f fakeMissions) GetByID(_ context.Context, id string) (*models.Mission, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	m, ok := f.s.missions[id]
	if !ok {
		return nil, apperr.NotFound("mission")
	}
	cp := *m
	cp.Participants = append([]string(nil), m.Participants...)
	return &cp, nil
}

func (f fakeMissions) AddParticipant(_ context.Context, missionID, userID string, enforce bool) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	m, ok := f.s.missions[missionID]
	if !ok {
		return false, apperr.NotFound("mission")
	}
	if contains(m.Participants, userID) {
		return false, nil
	}
	if f.s.failMissionAdd != nil {
		return false, f.s.failMissionAdd
	}
	if enforce && m.MaxParticipants > 0 && len(m.Participants) >= m.MaxParticipants {
		return false, apperr.New(apperr.KindConflict, "mission is full")
	}
	m.Participants = append(m.Participants, userID)
	m.ParticipantsCount++
	return true, nil
}

func (f fakeMissions) RemoveParticipant(_ context.Context, missionID, userID string) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	m, ok := f.s.missions[missionID]
	if !ok {
		return false, apperr.NotFound("mission")
	}
	if !contains(m.Participants, userID) {
		return false, nil
	}
	if f.s.failMissionRemove != nil {
		return false, f.s.failMissionRemove
	}
	m.Participants = without(m.Participants, userID)
	m.ParticipantsCount--
	return true, nil
}

func (f fakeMissions) UpdateStatus(_ context.Context, missionID, creatorID, status string) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	m, ok := f.s.missions[missionID]
	if !ok {
		return false, apperr.NotFound("mission")
	}
	if m.CreatedBy != creatorID {
		return false, apperr.New(apperr.KindPermission, "only the mission creator can change its status")
	}
	if m.Status == status {
		return false, nil
	}
	if m.Status == models.MissionCompleted {
		return false, apperr.New(apperr.KindConflict, "a completed mission cannot change status")
	}
	m.Status = status
	return true, nil
}

type fakeUsers struct{ s *memStore }

func (f fakeUsers) AddActiveMission(_ context.Context, userID, missionID string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.failUserAdd != nil {
		return f.s.failUserAdd
	}
	u, ok := f.s.users[userID]
	if !ok {
		return apperr.NotFound("user")
	}
	if !contains(u.ActiveMissions, missionID) {
		u.ActiveMissions = append(u.ActiveMissions, missionID)
	}
	return nil
}

func (f fakeUsers) RemoveActiveMission(_ context.Context, userID, missionID string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.failUserRemove != nil {
		return f.s.failUserRemove
	}
	u, ok := f.s.users[userID]
	if !ok {
		return apperr.NotFound("user")
	}
	u.ActiveMissions = without(u.ActiveMissions, missionID)
	return nil
}

func (f fakeUsers) IncrementPoints(_ context.Context, userID string, delta int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.failPoints[userID]; err != nil {
		return err
	}
	u, ok := f.s.users[userID]
	if !ok {
		return apperr.NotFound("user")
	}
	u.Points += delta
	return nil
}

func (f fakeUsers) IncrementCompleted(_ context.Context, userID string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	u, ok := f.s.users[userID]
	if !ok {
		return apperr.NotFound("user")
	}
	u.CompletedMissions++
	return nil
}

// directTx runs fn without a transaction, like a standalone server.
type directTx struct{}

func (directTx) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
