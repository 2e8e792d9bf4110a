package profile

import (
	"net/http"

	"github.com/civicapp/civichub/internal/app/system/apperr"
	"github.com/civicapp/civichub/internal/app/system/auth"
	"github.com/civicapp/civichub/internal/app/system/inputval"
	"github.com/civicapp/civichub/internal/app/system/respond"
	profilevm "github.com/civicapp/civichub/internal/app/viewmodels/profile"
	"github.com/civicapp/civichub/internal/domain/models"
	"go.uber.org/zap"
)

// editInput is the PATCH body. Omitted or blank fields are left unchanged.
type editInput struct {
	Name     string `json:"name" validate:"max=100" label:"Name"`
	Email    string `json:"email" validate:"omitempty,email" label:"Email"`
	Password string `json:"password" validate:"omitempty,min=6" label:"Password"`
	Bio      string `json:"bio" validate:"max=1000" label:"Bio"`
}

type profileResponse struct {
	apperr.Result
	User *models.User `json:"user,omitempty"`
}

func (h *Handler) holder(w http.ResponseWriter, r *http.Request) *profilevm.Holder {
	u, _ := auth.CurrentUser(r)
	return profilevm.New(r.Context(), u.ID, h.Users, h.Identity, h.Participation,
		h.SessionMgr.ForRequest(w, r), h.Log)
}

// ServeProfile handles GET /profile.
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	vm := h.holder(w, r)
	defer vm.Close()

	vm.LoadCurrentUser()
	vm.Wait()

	if res := vm.LoadStatus.Value(); !res.OK {
		respond.Result(w, res)
		return
	}
	respond.JSON(w, http.StatusOK, profileResponse{Result: apperr.Success(), User: vm.User.Value()})
}

// HandleUpdate handles PATCH /profile and answers with the reloaded profile.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in editInput
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := inputval.Validate(in).Err(); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	vm := h.holder(w, r)
	defer vm.Close()

	vm.UpdateProfile(profilevm.Edit{
		Name:     in.Name,
		Email:    in.Email,
		Password: in.Password,
		Bio:      in.Bio,
	})
	res, err := vm.Updates.Next(r.Context())
	if err != nil {
		return
	}
	if !res.OK {
		respond.Result(w, res)
		return
	}
	if in.Password != "" {
		u, _ := auth.CurrentUser(r)
		h.Audit.PasswordChanged(r.Context(), r, u.ID)
	}
	vm.Wait()
	respond.JSON(w, http.StatusOK, profileResponse{Result: res, User: vm.User.Value()})
}

// HandleDelete handles DELETE /profile. The caller leaves every joined
// mission, the account is removed and the session cookie is cleared.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	vm := h.holder(w, r)
	defer vm.Close()

	vm.DeleteAccount()
	res, err := vm.Updates.Next(r.Context())
	if err != nil {
		return
	}
	if res.OK {
		h.Log.Info("account deleted", zap.String("user_id", u.ID))
		h.Audit.AccountDeleted(r.Context(), r, u.ID, u.Email)
	}
	respond.Result(w, res)
}
