// Package profile serves the signed-in user's own profile: read, edit and
// account deletion.
package profile

import (
	"github.com/civicapp/civichub/internal/app/system/auditlog"
	"github.com/civicapp/civichub/internal/app/system/auth"
	profilevm "github.com/civicapp/civichub/internal/app/viewmodels/profile"
	"go.uber.org/zap"
)

// Handler owns the profile handlers.
type Handler struct {
	Log           *zap.Logger
	SessionMgr    *auth.SessionManager
	Users         profilevm.Users
	Identity      profilevm.Identity
	Participation profilevm.Participation
	Audit         *auditlog.Logger
}

func NewHandler(sm *auth.SessionManager, users profilevm.Users, ident profilevm.Identity, part profilevm.Participation, logger *zap.Logger) *Handler {
	return &Handler{
		Log:           logger,
		SessionMgr:    sm,
		Users:         users,
		Identity:      ident,
		Participation: part,
	}
}
