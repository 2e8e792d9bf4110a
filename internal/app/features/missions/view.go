package missions

import (
	"net/http"

	"github.com/civicapp/civichub/internal/app/system/inputval"
	"github.com/civicapp/civichub/internal/app/system/respond"
	"github.com/civicapp/civichub/internal/app/system/timeouts"
	"github.com/civicapp/civichub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type participantView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type missionView struct {
	Mission      *models.Mission   `json:"mission"`
	Participants []participantView `json:"participants"`
}

// ServeMission handles GET /missions/{id}. Participant ids are resolved to
// names; ids whose profile is gone are left out.
func (h *Handler) ServeMission(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !inputval.IsValidObjectID(id) {
		respond.Error(w, h.Log, errBadMissionID)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "view mission")
	defer cancel()

	m, err := h.Missions.GetByID(ctx, id)
	if err != nil {
		respond.Error(w, h.Log, err, zap.String("mission_id", id))
		return
	}

	view := missionView{Mission: m, Participants: []participantView{}}
	if len(m.Participants) > 0 {
		users, err := h.Users.ListByIDs(ctx, m.Participants)
		if err != nil {
			respond.Error(w, h.Log, err, zap.String("mission_id", id))
			return
		}
		for _, u := range users {
			view.Participants = append(view.Participants, participantView{ID: u.ID, Name: u.Name})
		}
	}
	respond.JSON(w, http.StatusOK, view)
}
