package login

import (
	"net/http"

	"github.com/civicapp/civichub/internal/app/system/apperr"
	"github.com/civicapp/civichub/internal/app/system/auditlog"
	"github.com/civicapp/civichub/internal/app/system/auth"
	"github.com/civicapp/civichub/internal/app/system/inputval"
	"github.com/civicapp/civichub/internal/app/system/ratelimit"
	"github.com/civicapp/civichub/internal/app/system/respond"
	authvm "github.com/civicapp/civichub/internal/app/viewmodels/auth"
	"github.com/civicapp/civichub/internal/domain/models"
	"go.uber.org/zap"
)

// Handler serves email/password sign-up and sign-in and the session check.
type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	Identity   authvm.Identity
	Profiles   authvm.Profiles

	// Limiter and Audit are optional.
	Limiter *ratelimit.LoginLimiter
	Audit   *auditlog.Logger
}

func NewHandler(sessionMgr *auth.SessionManager, id authvm.Identity, profiles authvm.Profiles, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		Identity:   id,
		Profiles:   profiles,
	}
}

type loginInput struct {
	Email    string `json:"email" validate:"notblank,email" label:"Email"`
	Password string `json:"password" validate:"required" label:"Password"`
}

type signupInput struct {
	Name     string `json:"name" validate:"notblank,max=100" label:"Name"`
	Email    string `json:"email" validate:"notblank,email" label:"Email"`
	Password string `json:"password" validate:"required,min=6" label:"Password"`
}

// sessionResponse is the body of GET /auth/session.
type sessionResponse struct {
	LoggedIn bool         `json:"logged_in"`
	User     *models.User `json:"user,omitempty"`
}

func (h *Handler) holder(w http.ResponseWriter, r *http.Request) *authvm.Holder {
	return authvm.New(r.Context(), h.SessionMgr.ForRequest(w, r), h.Identity, h.Profiles, h.Log)
}

// HandleLogin handles POST /auth/login.
//
// On success: 200 and {"ok":true,"token":"…","user":{…}}. The session
// cookie is set as well.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := inputval.Validate(in).Err(); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	if !h.allow(w, r, in.Email, "login") {
		return
	}

	vm := h.holder(w, r)
	defer vm.Close()

	vm.Login(in.Email, in.Password)
	out, err := vm.LoginEvents.Next(r.Context())
	if err != nil {
		return
	}
	if out.OK {
		if h.Limiter != nil {
			h.Limiter.ResetEmail(in.Email)
		}
		h.Audit.LoginSucceeded(r.Context(), r, out.User.ID, out.User.Email, "password")
	} else {
		h.Audit.LoginFailed(r.Context(), r, in.Email, out.Message)
	}
	h.writeOutcome(w, out, "login", in.Email)
}

// HandleSignup handles POST /auth/signup. The new account is signed in.
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var in signupInput
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := inputval.Validate(in).Err(); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	if !h.allow(w, r, in.Email, "signup") {
		return
	}

	vm := h.holder(w, r)
	defer vm.Close()

	vm.Signup(in.Name, in.Email, in.Password)
	out, err := vm.SignupEvents.Next(r.Context())
	if err != nil {
		return
	}
	if out.OK {
		h.Log.Info("account created", zap.String("user_id", out.User.ID))
		h.Audit.Signup(r.Context(), r, out.User.ID, out.User.Email)
	}
	h.writeOutcome(w, out, "signup", in.Email)
}

// allow applies the limiter and writes the 429 when the attempt is refused.
func (h *Handler) allow(w http.ResponseWriter, r *http.Request, email, endpoint string) bool {
	if h.Limiter == nil {
		return true
	}
	ok, msg := h.Limiter.Check(r, email)
	if !ok {
		h.Audit.RateLimited(r.Context(), r, email, endpoint)
		respond.TooManyRequests(w, msg)
	}
	return ok
}

func (h *Handler) writeOutcome(w http.ResponseWriter, out authvm.Outcome, op, email string) {
	if !out.OK {
		switch out.Kind {
		case apperr.KindInternal, apperr.KindPartial, apperr.KindTransient:
			h.Log.Warn(op+" failed", zap.String("email", email), zap.String("kind", string(out.Kind)))
		}
		respond.JSON(w, out.Kind.HTTPStatus(), out)
		return
	}
	respond.JSON(w, http.StatusOK, out)
}

// ServeSession handles GET /auth/session.
func (h *Handler) ServeSession(w http.ResponseWriter, r *http.Request) {
	vm := h.holder(w, r)
	defer vm.Close()
	vm.Wait()

	resp := sessionResponse{LoggedIn: vm.LoggedIn.Value()}
	if resp.LoggedIn {
		resp.User = vm.User.Value()
	}
	respond.JSON(w, http.StatusOK, resp)
}
