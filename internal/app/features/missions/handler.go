package missions

import (
	"context"
	"net/http"

	"github.com/civicapp/civichub/internal/app/system/auth"
	missionsvm "github.com/civicapp/civichub/internal/app/viewmodels/missions"
	"github.com/civicapp/civichub/internal/domain/models"
	"go.uber.org/zap"
)

// Store is the mission store as the handlers use it.
type Store interface {
	missionsvm.Missions
	GetByID(ctx context.Context, id string) (*models.Mission, error)
}

// Users resolves participant ids to names.
type Users interface {
	ListByIDs(ctx context.Context, ids []string) ([]models.User, error)
}

// Handler serves the mission list, mission detail and mission actions.
type Handler struct {
	Log           *zap.Logger
	Missions      Store
	Users         Users
	Participation missionsvm.Participation
}

func NewHandler(missions Store, users Users, part missionsvm.Participation, logger *zap.Logger) *Handler {
	return &Handler{
		Log:           logger,
		Missions:      missions,
		Users:         users,
		Participation: part,
	}
}

// holder builds the mission holder for the caller. Signed-out visitors get
// an empty user id and can only browse.
func (h *Handler) holder(r *http.Request) *missionsvm.Holder {
	var userID string
	if u, ok := auth.CurrentUser(r); ok {
		userID = u.ID
	}
	return missionsvm.New(r.Context(), userID, h.Missions, h.Participation, h.Log)
}
