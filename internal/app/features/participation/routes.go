package participation

import (
	"github.com/civicapp/civichub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes is mounted under /participation. Every route requires a signed-in user.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.ServeJoined)
	r.Post("/{missionID}/join", h.HandleJoin)
	r.Post("/{missionID}/leave", h.HandleLeave)
	return r
}
