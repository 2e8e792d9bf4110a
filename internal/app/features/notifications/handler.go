// Package notifications serves the signed-in user's notification feed.
package notifications

import (
	"net/http"

	"github.com/civicapp/civichub/internal/app/system/auth"
	"github.com/civicapp/civichub/internal/app/system/respond"
	notificationsvm "github.com/civicapp/civichub/internal/app/viewmodels/notifications"
	"github.com/civicapp/civichub/internal/domain/models"
	"go.uber.org/zap"
)

type Handler struct {
	Log  *zap.Logger
	Feed notificationsvm.Feed
}

func NewHandler(feed notificationsvm.Feed, logger *zap.Logger) *Handler {
	return &Handler{Log: logger, Feed: feed}
}

type feedResponse struct {
	Notifications []models.NotificationItem `json:"notifications"`
	Unread        int                       `json:"unread"`
}

// ServeFeed handles GET /notifications. Items are newest first.
func (h *Handler) ServeFeed(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	vm := notificationsvm.New(r.Context(), u.ID, h.Feed, h.Log)
	defer vm.Close()
	vm.Wait()

	if res := vm.LoadStatus.Value(); !res.OK {
		respond.Result(w, res)
		return
	}
	respond.JSON(w, http.StatusOK, feedResponse{
		Notifications: vm.Notifications.Value(),
		Unread:        vm.Unread(),
	})
}
