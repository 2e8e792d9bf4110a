// Package chats serves chat threads: listing and opening threads, reading
// and posting messages, and a websocket that follows a thread live.
package chats

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/civicapp/civichub/internal/app/system/apperr"
	"github.com/civicapp/civichub/internal/app/system/auth"
	chatvm "github.com/civicapp/civichub/internal/app/viewmodels/chat"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var errBadChatID = apperr.Validation("invalid chat id")

type Handler struct {
	Log   *zap.Logger
	Chats chatvm.Chats

	upgrader websocket.Upgrader
	origins  map[string]bool
}

// NewHandler returns a Handler. allowedOrigins lists the browser origins
// that may open the live socket besides the server's own host.
func NewHandler(chats chatvm.Chats, allowedOrigins []string, logger *zap.Logger) *Handler {
	h := &Handler{
		Log:     logger,
		Chats:   chats,
		origins: make(map[string]bool, len(allowedOrigins)),
	}
	for _, o := range allowedOrigins {
		h.origins[strings.TrimRight(strings.ToLower(o), "/")] = true
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin admits native clients (no Origin header), same-host pages and
// the configured origins.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if h.origins["*"] || h.origins[strings.ToLower(origin)] {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

func (h *Handler) holder(r *http.Request) (*chatvm.Holder, *auth.SessionUser) {
	u, _ := auth.CurrentUser(r)
	return chatvm.New(r.Context(), u.ID, u.Name, h.Chats, h.Log), u
}
