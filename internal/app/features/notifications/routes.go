package notifications

import (
	"github.com/civicapp/civichub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes is mounted under /notifications.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/", h.ServeFeed)
	return r
}
