package authgoogle

import "github.com/go-chi/chi/v5"

// Routes is mounted under /auth/google. Both routes are public: the first
// starts the consent flow for a web or mobile client and the second is
// where Google sends the user back.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeLogin)
	r.Get("/callback", h.ServeCallback)
	return r
}
