// Package missionsvm holds the mission list screen: the current list and
// the outcome of each create, join, leave or status change. Every mutation
// emits its result and then reloads the full list.
package missionsvm

import (
	"context"

	"github.com/civicapp/civichub/internal/app/system/apperr"
	"github.com/civicapp/civichub/internal/app/system/timeouts"
	"github.com/civicapp/civichub/internal/app/system/viewstate"
	"github.com/civicapp/civichub/internal/domain/models"
	"go.uber.org/zap"
)

// Missions is the mission store.
type Missions interface {
	List(ctx context.Context) ([]models.Mission, error)
	ListByCategory(ctx context.Context, category string) ([]models.Mission, error)
	Search(ctx context.Context, query string) ([]models.Mission, error)
	Create(ctx context.Context, m models.Mission) (models.Mission, error)
	UpdateStatus(ctx context.Context, missionID, creatorID, status string) (bool, error)
}

// Participation is the join/leave coordinator.
type Participation interface {
	Join(ctx context.Context, userID, missionID string) error
	Leave(ctx context.Context, userID, missionID string) error
	Complete(ctx context.Context, creatorID, missionID string) error
}

var errSignedOut = apperr.New(apperr.KindPermission, "sign in to change missions")

type Holder struct {
	Missions *viewstate.State[[]models.Mission]
	// LoadStatus is the outcome of the latest list load.
	LoadStatus *viewstate.State[apperr.Result]
	Operations *viewstate.Events[apperr.Result]
	// Created carries each mission Create inserted.
	Created *viewstate.Events[models.Mission]

	userID string
	store  Missions
	part   Participation
	scope  *viewstate.Scope
	log    *zap.Logger
}

// New builds the holder for userID, which may be empty for a signed-out
// visitor who can only browse.
func New(ctx context.Context, userID string, store Missions, part Participation, logger *zap.Logger) *Holder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Holder{
		Missions:   viewstate.NewState([]models.Mission{}),
		LoadStatus: viewstate.NewState(apperr.Success()),
		Operations: viewstate.NewEvents[apperr.Result](),
		Created:    viewstate.NewEvents[models.Mission](),
		userID:     userID,
		store:      store,
		part:       part,
		scope:      viewstate.NewScope(ctx, logger),
		log:        logger,
	}
}

// LoadAll replaces the list with every mission.
func (h *Holder) LoadAll() {
	h.load("list missions", func(ctx context.Context) ([]models.Mission, error) {
		return h.store.List(ctx)
	})
}

// Search replaces the list with missions matching query.
func (h *Holder) Search(query string) {
	h.load("search missions", func(ctx context.Context) ([]models.Mission, error) {
		return h.store.Search(ctx, query)
	})
}

// FilterByCategory replaces the list with one category ("all" for every mission).
func (h *Holder) FilterByCategory(category string) {
	h.load("filter missions", func(ctx context.Context) ([]models.Mission, error) {
		return h.store.ListByCategory(ctx, category)
	})
}

func (h *Holder) load(op string, fetch func(ctx context.Context) ([]models.Mission, error)) {
	h.scope.Launch(func(ctx context.Context) {
		h.loadNow(ctx, op, fetch)
	})
}

func (h *Holder) loadNow(ctx context.Context, op string, fetch func(ctx context.Context) ([]models.Mission, error)) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), h.log, op)
	defer cancel()

	list, err := fetch(ctx)
	h.scope.Publish(func() {
		if err != nil {
			h.LoadStatus.Set(apperr.ResultOf(err))
			return
		}
		h.LoadStatus.Set(apperr.Success())
		h.Missions.Set(list)
	})
}

// Create inserts a mission owned by the current user.
func (h *Holder) Create(m models.Mission) {
	h.mutate("create mission", func(ctx context.Context) error {
		m.CreatedBy = h.userID
		created, err := h.store.Create(ctx, m)
		if err == nil {
			h.scope.Publish(func() { h.Created.Emit(created) })
		}
		return err
	})
}

// Join adds the current user to missionID.
func (h *Holder) Join(missionID string) {
	h.mutate("join mission", func(ctx context.Context) error {
		return h.part.Join(ctx, h.userID, missionID)
	})
}

// Leave removes the current user from missionID.
func (h *Holder) Leave(missionID string) {
	h.mutate("leave mission", func(ctx context.Context) error {
		return h.part.Leave(ctx, h.userID, missionID)
	})
}

// UpdateStatus changes a mission's status. Completing a mission goes
// through the coordinator so participants are credited.
func (h *Holder) UpdateStatus(missionID, status string) {
	h.mutate("update mission status", func(ctx context.Context) error {
		if status == models.MissionCompleted {
			return h.part.Complete(ctx, h.userID, missionID)
		}
		_, err := h.store.UpdateStatus(ctx, missionID, h.userID, status)
		return err
	})
}

// mutate runs op, emits its Result, then reloads the full list.
func (h *Holder) mutate(name string, op func(ctx context.Context) error) {
	if h.userID == "" {
		h.Operations.Emit(apperr.ResultOf(errSignedOut))
		return
	}
	h.scope.Launch(func(ctx context.Context) {
		opCtx, cancel := timeouts.WithTimeout(ctx, timeouts.Long(), h.log, name)
		err := op(opCtx)
		cancel()

		if err != nil {
			h.log.Debug("mission operation failed", zap.String("op", name), zap.Error(err))
		}
		h.scope.Publish(func() { h.Operations.Emit(apperr.ResultOf(err)) })
		h.loadNow(ctx, "reload missions", func(ctx context.Context) ([]models.Mission, error) {
			return h.store.List(ctx)
		})
	})
}

// Wait blocks until pending work has finished.
func (h *Holder) Wait() { h.scope.Wait() }

// Close cancels pending work. Results that arrive afterwards are dropped.
func (h *Holder) Close() { h.scope.Close() }
