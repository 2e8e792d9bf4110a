package missions

import (
	"net/http"
	"time"

	"github.com/civicapp/civichub/internal/app/system/apperr"
	"github.com/civicapp/civichub/internal/app/system/inputval"
	"github.com/civicapp/civichub/internal/app/system/respond"
	missionsvm "github.com/civicapp/civichub/internal/app/viewmodels/missions"
	"github.com/civicapp/civichub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var errBadMissionID = apperr.Validation("invalid mission id")

type createInput struct {
	Title           string    `json:"title" validate:"notblank,max=200" label:"Title"`
	Description     string    `json:"description" validate:"max=5000" label:"Description"`
	Category        string    `json:"category" validate:"notblank,max=50" label:"Category"`
	Location        string    `json:"location" validate:"max=200" label:"Location"`
	Date            time.Time `json:"date" validate:"required" label:"Date"`
	ImageURL        string    `json:"image_url" validate:"omitempty,httpurl" label:"Image URL"`
	MaxParticipants int       `json:"max_participants" validate:"min=0" label:"Max participants"`
}

type statusInput struct {
	Status string `json:"status" validate:"required,missionstatus" label:"Status"`
}

type createResponse struct {
	apperr.Result
	Mission *models.Mission `json:"mission,omitempty"`
}

// HandleCreate handles POST /missions. The caller becomes the creator.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in createInput
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := inputval.Validate(in).Err(); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	vm := h.holder(r)
	defer vm.Close()

	vm.Create(models.Mission{
		Title:           in.Title,
		Description:     in.Description,
		Category:        in.Category,
		Location:        in.Location,
		Date:            in.Date.UTC(),
		ImageURL:        in.ImageURL,
		MaxParticipants: in.MaxParticipants,
	})
	res, err := vm.Operations.Next(r.Context())
	if err != nil {
		return
	}
	if !res.OK {
		respond.Result(w, res)
		return
	}

	out := createResponse{Result: res}
	if m, ok := vm.Created.TryNext(); ok {
		out.Mission = &m
		h.Log.Info("mission created", zap.String("mission_id", m.ID), zap.String("created_by", m.CreatedBy))
	}
	respond.JSON(w, http.StatusCreated, out)
}

// HandleJoin handles POST /missions/{id}/join.
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	h.runAction(w, r, func(vm *missionsvm.Holder, id string) { vm.Join(id) })
}

// HandleLeave handles POST /missions/{id}/leave.
func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	h.runAction(w, r, func(vm *missionsvm.Holder, id string) { vm.Leave(id) })
}

// HandleStatus handles POST /missions/{id}/status. Only the creator may
// change the status; "completed" credits every participant.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	var in statusInput
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := inputval.Validate(in).Err(); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	h.runAction(w, r, func(vm *missionsvm.Holder, id string) { vm.UpdateStatus(id, in.Status) })
}

func (h *Handler) runAction(w http.ResponseWriter, r *http.Request, start func(vm *missionsvm.Holder, missionID string)) {
	id := chi.URLParam(r, "id")
	if !inputval.IsValidObjectID(id) {
		respond.Error(w, h.Log, errBadMissionID)
		return
	}

	vm := h.holder(r)
	defer vm.Close()

	start(vm, id)
	res, err := vm.Operations.Next(r.Context())
	if err != nil {
		return
	}
	if !res.OK && (res.Kind == apperr.KindPartial || res.Kind == apperr.KindInternal) {
		h.Log.Error("mission action failed", zap.String("mission_id", id), zap.String("kind", string(res.Kind)))
	}
	respond.Result(w, res)
}
