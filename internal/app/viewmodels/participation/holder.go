// Package participationvm holds the "my missions" screen: the missions the
// user has joined and the outcome of each join or leave.
package participationvm

import (
	"context"

	"github.com/civicapp/civichub/internal/app/system/apperr"
	"github.com/civicapp/civichub/internal/app/system/timeouts"
	"github.com/civicapp/civichub/internal/app/system/viewstate"
	"github.com/civicapp/civichub/internal/domain/models"
	"go.uber.org/zap"
)

// Coordinator joins and leaves missions.
type Coordinator interface {
	Join(ctx context.Context, userID, missionID string) error
	Leave(ctx context.Context, userID, missionID string) error
}

// Missions lists the missions a user has joined.
type Missions interface {
	ListByParticipant(ctx context.Context, userID string) ([]models.Mission, error)
}

type Holder struct {
	Joined     *viewstate.State[[]models.Mission]
	LoadStatus *viewstate.State[apperr.Result]
	Operations *viewstate.Events[apperr.Result]

	userID   string
	coord    Coordinator
	missions Missions
	scope    *viewstate.Scope
	log      *zap.Logger
}

func New(ctx context.Context, userID string, coord Coordinator, missions Missions, logger *zap.Logger) *Holder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Holder{
		Joined:     viewstate.NewState([]models.Mission{}),
		LoadStatus: viewstate.NewState(apperr.Success()),
		Operations: viewstate.NewEvents[apperr.Result](),
		userID:     userID,
		coord:      coord,
		missions:   missions,
		scope:      viewstate.NewScope(ctx, logger),
		log:        logger,
	}
}

// LoadJoined replaces Joined with the user's missions.
func (h *Holder) LoadJoined() {
	h.scope.Launch(h.loadJoined)
}

func (h *Holder) loadJoined(ctx context.Context) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), h.log, "list joined missions")
	defer cancel()

	list, err := h.missions.ListByParticipant(ctx, h.userID)
	h.scope.Publish(func() {
		h.LoadStatus.Set(apperr.ResultOf(err))
		if err == nil {
			h.Joined.Set(list)
		}
	})
}

// Join adds the user to missionID and emits the outcome.
func (h *Holder) Join(missionID string) {
	h.run(func(ctx context.Context) error { return h.coord.Join(ctx, h.userID, missionID) })
}

// Leave removes the user from missionID and emits the outcome.
func (h *Holder) Leave(missionID string) {
	h.run(func(ctx context.Context) error { return h.coord.Leave(ctx, h.userID, missionID) })
}

func (h *Holder) run(op func(ctx context.Context) error) {
	h.scope.Launch(func(ctx context.Context) {
		err := op(ctx)
		h.scope.Publish(func() { h.Operations.Emit(apperr.ResultOf(err)) })
		if err == nil {
			h.loadJoined(ctx)
		}
	})
}

// Wait blocks until pending work has finished.
func (h *Holder) Wait() { h.scope.Wait() }

// Close cancels pending work. Results that arrive afterwards are dropped.
func (h *Holder) Close() { h.scope.Close() }
