package logout

import (
	"net/http"

	"github.com/civicapp/civichub/internal/app/system/apperr"
	"github.com/civicapp/civichub/internal/app/system/auditlog"
	"github.com/civicapp/civichub/internal/app/system/auth"
	"github.com/civicapp/civichub/internal/app/system/respond"
	authvm "github.com/civicapp/civichub/internal/app/viewmodels/auth"
	"go.uber.org/zap"
)

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	Profiles   authvm.Profiles
	Audit      *auditlog.Logger
}

func NewHandler(sessionMgr *auth.SessionManager, profiles authvm.Profiles, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		Profiles:   profiles,
	}
}

// HandleLogout handles POST /auth/logout. It clears the session cookie;
// bearer tokens are dropped by the client and expire on their own.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var userID string
	if u, ok := auth.CurrentUser(r); ok {
		userID = u.ID
	}

	vm := authvm.New(r.Context(), h.SessionMgr.ForRequest(w, r), nil, h.Profiles, h.Log)
	defer vm.Close()

	if err := vm.Logout(); err != nil {
		h.Log.Error("logout: save session", zap.Error(err))
	}
	h.Audit.Logout(r.Context(), r, userID)
	respond.Result(w, apperr.Success())
}
