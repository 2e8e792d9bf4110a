package missions

import (
	"github.com/civicapp/civichub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes is mounted under /missions. Browsing is public; every change
// requires a signed-in user.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeMission)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Post("/", h.HandleCreate)
		pr.Post("/{id}/join", h.HandleJoin)
		pr.Post("/{id}/leave", h.HandleLeave)
		pr.Post("/{id}/status", h.HandleStatus)
	})
	return r
}
