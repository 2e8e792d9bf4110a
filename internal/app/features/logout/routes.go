package logout

import "github.com/go-chi/chi/v5"

// Routes is mounted under /auth/logout. Signing out without a session is
// allowed and still clears the cookie.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.HandleLogout)
	return r
}
