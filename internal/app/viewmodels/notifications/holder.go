// Package notificationsvm holds the notification feed screen. The feed is
// loaded once when the holder is built.
package notificationsvm

import (
	"context"

	"github.com/civicapp/civichub/internal/app/system/apperr"
	"github.com/civicapp/civichub/internal/app/system/timeouts"
	"github.com/civicapp/civichub/internal/app/system/viewstate"
	"github.com/civicapp/civichub/internal/domain/models"
	"go.uber.org/zap"
)

// Feed reads notifications.
type Feed interface {
	ListForUser(ctx context.Context, userID string) ([]models.NotificationItem, error)
}

type Holder struct {
	Notifications *viewstate.State[[]models.NotificationItem]
	LoadStatus    *viewstate.State[apperr.Result]

	userID string
	feed   Feed
	scope  *viewstate.Scope
	log    *zap.Logger
}

// New builds the holder and starts loading userID's feed.
func New(ctx context.Context, userID string, feed Feed, logger *zap.Logger) *Holder {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Holder{
		Notifications: viewstate.NewState([]models.NotificationItem{}),
		LoadStatus:    viewstate.NewState(apperr.Success()),
		userID:        userID,
		feed:          feed,
		scope:         viewstate.NewScope(ctx, logger),
		log:           logger,
	}
	h.Refresh()
	return h
}

// Refresh reloads the feed.
func (h *Holder) Refresh() {
	h.scope.Launch(func(ctx context.Context) {
		ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), h.log, "list notifications")
		defer cancel()

		items, err := h.feed.ListForUser(ctx, h.userID)
		h.scope.Publish(func() {
			h.LoadStatus.Set(apperr.ResultOf(err))
			if err == nil {
				h.Notifications.Set(items)
			}
		})
	})
}

// Unread counts items not yet read.
func (h *Holder) Unread() int {
	n := 0
	for _, it := range h.Notifications.Value() {
		if !it.Read {
			n++
		}
	}
	return n
}

// Wait blocks until pending work has finished.
func (h *Holder) Wait() { h.scope.Wait() }

// Close cancels pending work. Results that arrive afterwards are dropped.
func (h *Holder) Close() { h.scope.Close() }
