package chats

import (
	"github.com/civicapp/civichub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes is mounted under /chats. Every route requires a signed-in user.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.ServeThreads)
	r.Post("/", h.HandleCreate)
	r.Get("/{id}/messages", h.ServeMessages)
	r.Post("/{id}/messages", h.HandleSend)
	r.Get("/{id}/live", h.ServeLive)
	return r
}
