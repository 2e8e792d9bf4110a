// Package participation serves the signed-in user's "my missions" list and
// the join/leave actions behind it.
package participation

import (
	"net/http"

	"github.com/civicapp/civichub/internal/app/system/apperr"
	"github.com/civicapp/civichub/internal/app/system/auth"
	"github.com/civicapp/civichub/internal/app/system/inputval"
	"github.com/civicapp/civichub/internal/app/system/respond"
	participationvm "github.com/civicapp/civichub/internal/app/viewmodels/participation"
	"github.com/civicapp/civichub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var errBadMissionID = apperr.Validation("invalid mission id")

type Handler struct {
	Log         *zap.Logger
	Coordinator participationvm.Coordinator
	Missions    participationvm.Missions
}

func NewHandler(coord participationvm.Coordinator, missions participationvm.Missions, logger *zap.Logger) *Handler {
	return &Handler{Log: logger, Coordinator: coord, Missions: missions}
}

type joinedResponse struct {
	Missions []models.Mission `json:"missions"`
	Count    int              `json:"count"`
}

func (h *Handler) holder(r *http.Request) *participationvm.Holder {
	u, _ := auth.CurrentUser(r)
	return participationvm.New(r.Context(), u.ID, h.Coordinator, h.Missions, h.Log)
}

// ServeJoined handles GET /participation.
func (h *Handler) ServeJoined(w http.ResponseWriter, r *http.Request) {
	vm := h.holder(r)
	defer vm.Close()

	vm.LoadJoined()
	vm.Wait()

	if res := vm.LoadStatus.Value(); !res.OK {
		respond.Result(w, res)
		return
	}
	list := vm.Joined.Value()
	respond.JSON(w, http.StatusOK, joinedResponse{Missions: list, Count: len(list)})
}

// HandleJoin handles POST /participation/{missionID}/join.
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "join", (*participationvm.Holder).Join)
}

// HandleLeave handles POST /participation/{missionID}/leave.
func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "leave", (*participationvm.Holder).Leave)
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request, op string, start func(*participationvm.Holder, string)) {
	missionID := chi.URLParam(r, "missionID")
	if !inputval.IsValidObjectID(missionID) {
		respond.Error(w, h.Log, errBadMissionID)
		return
	}

	vm := h.holder(r)
	defer vm.Close()

	start(vm, missionID)
	res, err := vm.Operations.Next(r.Context())
	if err != nil {
		return
	}
	if res.Kind == apperr.KindPartial {
		h.Log.Error("participation left inconsistent",
			zap.String("op", op), zap.String("mission_id", missionID), zap.String("message", res.Message))
	}
	respond.Result(w, res)
}
