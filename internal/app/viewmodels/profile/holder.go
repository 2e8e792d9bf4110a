// Package profilevm holds the profile screen: the current user's document
// and the outcome of each edit or account deletion.
package profilevm

import (
	"context"
	"strings"

	userstore "github.com/civicapp/civichub/internal/app/store/users"
	"github.com/civicapp/civichub/internal/app/system/apperr"
	"github.com/civicapp/civichub/internal/app/system/identity"
	"github.com/civicapp/civichub/internal/app/system/timeouts"
	"github.com/civicapp/civichub/internal/app/system/viewstate"
	"github.com/civicapp/civichub/internal/domain/models"
	"go.uber.org/zap"
)

// Users is the profile store.
type Users interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, upd userstore.ProfileUpdate) error
}

// Identity is the account service.
type Identity interface {
	UpdateCredentials(ctx context.Context, userID string, upd identity.CredentialUpdate) error
	DeleteAccount(ctx context.Context, userID string) error
}

// Participation lets account deletion leave joined missions first.
type Participation interface {
	Leave(ctx context.Context, userID, missionID string) error
}

// Session is ended when the account is deleted.
type Session interface {
	End() error
}

// Edit is a profile change. Blank fields are ignored.
type Edit struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Bio      string `json:"bio"`
}

type Holder struct {
	User       *viewstate.State[*models.User]
	LoadStatus *viewstate.State[apperr.Result]
	Updates    *viewstate.Events[apperr.Result]

	userID  string
	users   Users
	ident   Identity
	part    Participation
	session Session
	scope   *viewstate.Scope
	log     *zap.Logger
}

func New(ctx context.Context, userID string, users Users, ident Identity, part Participation, session Session, logger *zap.Logger) *Holder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Holder{
		User:       viewstate.NewState[*models.User](nil),
		LoadStatus: viewstate.NewState(apperr.Success()),
		Updates:    viewstate.NewEvents[apperr.Result](),
		userID:     userID,
		users:      users,
		ident:      ident,
		part:       part,
		session:    session,
		scope:      viewstate.NewScope(ctx, logger),
		log:        logger,
	}
}

// LoadCurrentUser replaces User with a fresh copy of the document.
func (h *Holder) LoadCurrentUser() {
	h.scope.Launch(h.load)
}

func (h *Holder) load(ctx context.Context) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), h.log, "load profile")
	defer cancel()

	u, err := h.users.GetByID(ctx, h.userID)
	h.scope.Publish(func() {
		h.LoadStatus.Set(apperr.ResultOf(err))
		if err == nil {
			h.User.Set(u)
		}
	})
}

// UpdateProfile writes the identity-side fields (name, email, password) and
// then the document fields (name, email, bio), emits the outcome on Updates
// and reloads User.
func (h *Holder) UpdateProfile(e Edit) {
	h.scope.Launch(func(ctx context.Context) {
		opCtx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), h.log, "update profile")
		err := h.update(opCtx, e)
		cancel()

		h.scope.Publish(func() { h.Updates.Emit(apperr.ResultOf(err)) })
		if err == nil {
			h.load(ctx)
		}
	})
}

func (h *Holder) update(ctx context.Context, e Edit) error {
	if err := h.ident.UpdateCredentials(ctx, h.userID, identity.CredentialUpdate{
		Name:     e.Name,
		Email:    e.Email,
		Password: e.Password,
	}); err != nil {
		return err
	}

	var upd userstore.ProfileUpdate
	if v := strings.TrimSpace(e.Name); v != "" {
		upd.Name = &v
	}
	if v := strings.TrimSpace(e.Email); v != "" {
		upd.Email = &v
	}
	if v := strings.TrimSpace(e.Bio); v != "" {
		upd.Bio = &e.Bio
	}
	return h.users.UpdateProfile(ctx, h.userID, upd)
}

// DeleteAccount leaves every joined mission, removes the credential and the
// document, then ends the session. The outcome is emitted on Updates.
func (h *Holder) DeleteAccount() {
	h.scope.Launch(func(ctx context.Context) {
		ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Long(), h.log, "delete account")
		defer cancel()

		err := h.deleteAccount(ctx)
		h.scope.Publish(func() {
			if err == nil {
				h.User.Set(nil)
			}
			h.Updates.Emit(apperr.ResultOf(err))
		})
	})
}

func (h *Holder) deleteAccount(ctx context.Context) error {
	u, err := h.users.GetByID(ctx, h.userID)
	switch {
	case err == nil:
		for _, missionID := range u.ActiveMissions {
			if err := h.part.Leave(ctx, h.userID, missionID); err != nil && apperr.KindOf(err) != apperr.KindNotFound {
				return err
			}
		}
	case apperr.KindOf(err) != apperr.KindNotFound:
		return err
	}

	if err := h.ident.DeleteAccount(ctx, h.userID); err != nil {
		return err
	}
	if err := h.session.End(); err != nil {
		h.log.Warn("account deleted but session not cleared", zap.String("user_id", h.userID), zap.Error(err))
	}
	return nil
}

// Wait blocks until pending work has finished.
func (h *Holder) Wait() { h.scope.Wait() }

// Close cancels pending work. Results that arrive afterwards are dropped.
func (h *Holder) Close() { h.scope.Close() }
