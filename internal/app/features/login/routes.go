package login

import "github.com/go-chi/chi/v5"

// Routes is mounted under /auth. These routes are public.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.HandleLogin)
	r.Post("/signup", h.HandleSignup)
	r.Get("/session", h.ServeSession)
	return r
}
