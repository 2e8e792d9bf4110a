// Package authvm holds the sign-in screen state: whether someone is signed
// in, who, and the one-shot outcome of each login or sign-up attempt.
package authvm

import (
	"context"
	"strings"

	"github.com/civicapp/civichub/internal/app/system/apperr"
	"github.com/civicapp/civichub/internal/app/system/auth"
	"github.com/civicapp/civichub/internal/app/system/identity"
	"github.com/civicapp/civichub/internal/app/system/timeouts"
	"github.com/civicapp/civichub/internal/app/system/viewstate"
	"github.com/civicapp/civichub/internal/domain/models"
	"go.uber.org/zap"
)

// Session is the per-request session store.
type Session interface {
	Current() *auth.SessionUser
	Establish(u auth.SessionUser) (string, error)
	End() error
}

// Identity is the account service.
type Identity interface {
	SignIn(ctx context.Context, email, password string) (*models.User, error)
	SignUp(ctx context.Context, name, email, password string) (*models.User, error)
}

// Profiles loads user documents.
type Profiles interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Outcome is the result of a login or sign-up. Token is set on success for
// clients that authenticate with a bearer header.
type Outcome struct {
	apperr.Result
	Token string       `json:"token,omitempty"`
	User  *models.User `json:"user,omitempty"`
}

type Holder struct {
	LoggedIn *viewstate.State[bool]
	Loading  *viewstate.State[bool]
	User     *viewstate.State[*models.User]

	LoginEvents  *viewstate.Events[Outcome]
	SignupEvents *viewstate.Events[Outcome]

	session  Session
	identity Identity
	profiles Profiles
	scope    *viewstate.Scope
	log      *zap.Logger
}

// New builds the holder and starts the initial session check.
func New(ctx context.Context, session Session, id Identity, profiles Profiles, logger *zap.Logger) *Holder {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Holder{
		LoggedIn:     viewstate.NewState(false),
		Loading:      viewstate.NewState(false),
		User:         viewstate.NewState[*models.User](nil),
		LoginEvents:  viewstate.NewEvents[Outcome](),
		SignupEvents: viewstate.NewEvents[Outcome](),
		session:      session,
		identity:     id,
		profiles:     profiles,
		scope:        viewstate.NewScope(ctx, logger),
		log:          logger,
	}
	h.checkSession()
	return h
}

func (h *Holder) checkSession() {
	cur := h.session.Current()
	if cur == nil {
		return
	}
	h.LoggedIn.Set(true)
	h.Loading.Set(true)
	h.scope.Launch(func(ctx context.Context) {
		ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), h.log, "load session user")
		defer cancel()

		u, err := h.profiles.GetByID(ctx, cur.ID)
		h.scope.Publish(func() {
			h.Loading.Set(false)
			switch {
			case err == nil:
				h.User.Set(u)
			case apperr.KindOf(err) == apperr.KindNotFound:
				// Session outlived the account.
				h.LoggedIn.Set(false)
			default:
				h.log.Warn("session user lookup failed", zap.String("user_id", cur.ID), zap.Error(err))
			}
		})
	})
}

// ValidateLogin checks login input before any call is made.
func ValidateLogin(email, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return apperr.Validation("email and password are required")
	}
	if !strings.Contains(email, "@") {
		return apperr.Validation("a valid email is required")
	}
	return nil
}

// ValidateSignup checks sign-up input before any call is made.
func ValidateSignup(name, email, password string) error {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" || password == "" {
		return apperr.Validation("name, email and password are required")
	}
	if len(password) < identity.MinPasswordLength {
		return apperr.Validation("password must be at least 6 characters")
	}
	if !strings.Contains(email, "@") {
		return apperr.Validation("a valid email is required")
	}
	return nil
}

// Login signs in and emits one Outcome on LoginEvents.
func (h *Holder) Login(email, password string) {
	if err := ValidateLogin(email, password); err != nil {
		h.LoginEvents.Emit(Outcome{Result: apperr.ResultOf(err)})
		return
	}
	h.run(h.LoginEvents, "login", func(ctx context.Context) (*models.User, error) {
		return h.identity.SignIn(ctx, email, password)
	})
}

// Signup creates an account, signs it in and emits one Outcome on SignupEvents.
func (h *Holder) Signup(name, email, password string) {
	if err := ValidateSignup(name, email, password); err != nil {
		h.SignupEvents.Emit(Outcome{Result: apperr.ResultOf(err)})
		return
	}
	h.run(h.SignupEvents, "signup", func(ctx context.Context) (*models.User, error) {
		return h.identity.SignUp(ctx, name, email, password)
	})
}

func (h *Holder) run(events *viewstate.Events[Outcome], op string, call func(ctx context.Context) (*models.User, error)) {
	h.Loading.Set(true)
	h.scope.Launch(func(ctx context.Context) {
		ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), h.log, op)
		defer cancel()

		u, err := call(ctx)
		var token string
		if err == nil {
			token, err = h.session.Establish(auth.SessionUser{ID: u.ID, Name: u.Name, Email: u.Email})
		}
		h.scope.Publish(func() {
			h.Loading.Set(false)
			if err != nil {
				events.Emit(Outcome{Result: apperr.ResultOf(err)})
				return
			}
			h.LoggedIn.Set(true)
			h.User.Set(u)
			events.Emit(Outcome{Result: apperr.Success(), Token: token, User: u})
		})
	})
}

// Logout ends the session.
func (h *Holder) Logout() error {
	err := h.session.End()
	h.LoggedIn.Set(false)
	h.User.Set(nil)
	return err
}

// Wait blocks until pending work has finished.
func (h *Holder) Wait() { h.scope.Wait() }

// Close cancels pending work. Results that arrive afterwards are dropped.
func (h *Holder) Close() { h.scope.Close() }
