// Package chatvm holds the chat screen: the user's threads, the live
// message list of the open thread, and the outcome of each send or create.
package chatvm

import (
	"context"
	"sync"

	"github.com/civicapp/civichub/internal/app/system/apperr"
	"github.com/civicapp/civichub/internal/app/system/timeouts"
	"github.com/civicapp/civichub/internal/app/system/viewstate"
	"github.com/civicapp/civichub/internal/domain/models"
	"go.uber.org/zap"
)

// Chats is the chat store.
type Chats interface {
	Create(ctx context.Context, user1, user2 string) (string, error)
	GetByID(ctx context.Context, id string) (*models.Chat, error)
	ListForUser(ctx context.Context, userID string) ([]models.Chat, error)
	SendMessage(ctx context.Context, msg models.Message) (models.Message, error)
	Watch(ctx context.Context, chatID string) (<-chan []models.Message, error)
}

// Created is the outcome of CreateChat.
type Created struct {
	apperr.Result
	ChatID string `json:"chat_id,omitempty"`
}

var errNotMember = apperr.New(apperr.KindPermission, "you are not part of this chat")

type Holder struct {
	Chats    *viewstate.State[[]models.Chat]
	Messages *viewstate.State[[]models.Message]
	// Opened reports whether Open attached the live listener.
	Opened     *viewstate.Events[apperr.Result]
	Operations *viewstate.Events[apperr.Result]
	Created    *viewstate.Events[Created]
	LoadStatus *viewstate.State[apperr.Result]

	userID   string
	userName string
	store    Chats
	scope    *viewstate.Scope
	log      *zap.Logger

	mu        sync.Mutex
	stopWatch context.CancelFunc
}

func New(ctx context.Context, userID, userName string, store Chats, logger *zap.Logger) *Holder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Holder{
		Chats:      viewstate.NewState([]models.Chat{}),
		Messages:   viewstate.NewState([]models.Message{}),
		Opened:     viewstate.NewEvents[apperr.Result](),
		Operations: viewstate.NewEvents[apperr.Result](),
		Created:    viewstate.NewEvents[Created](),
		LoadStatus: viewstate.NewState(apperr.Success()),
		userID:     userID,
		userName:   userName,
		store:      store,
		scope:      viewstate.NewScope(ctx, logger),
		log:        logger,
	}
}

// LoadChats replaces Chats with the user's threads.
func (h *Holder) LoadChats() {
	h.scope.Launch(h.loadChats)
}

func (h *Holder) loadChats(ctx context.Context) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), h.log, "list chats")
	defer cancel()

	list, err := h.store.ListForUser(ctx, h.userID)
	h.scope.Publish(func() {
		h.LoadStatus.Set(apperr.ResultOf(err))
		if err == nil {
			h.Chats.Set(list)
		}
	})
}

// Open attaches the live listener for chatID. Messages then follows the
// thread until another Open or Close. One result is emitted on Opened.
func (h *Holder) Open(chatID string) {
	watchCtx, stop := context.WithCancel(h.scope.Context())
	h.mu.Lock()
	if h.stopWatch != nil {
		h.stopWatch()
	}
	h.stopWatch = stop
	h.mu.Unlock()

	h.scope.Launch(func(context.Context) {
		defer stop()

		if err := h.checkMember(watchCtx, chatID); err != nil {
			h.scope.Publish(func() { h.Opened.Emit(apperr.ResultOf(err)) })
			return
		}
		updates, err := h.store.Watch(watchCtx, chatID)
		if err != nil {
			h.scope.Publish(func() { h.Opened.Emit(apperr.ResultOf(err)) })
			return
		}

		first := true
		for msgs := range updates {
			h.scope.Publish(func() {
				h.Messages.Set(msgs)
				if first {
					h.Opened.Emit(apperr.Success())
				}
			})
			first = false
		}
	})
}

// Send posts content to chatID as the current user.
func (h *Holder) Send(chatID, content string) {
	h.scope.Launch(func(ctx context.Context) {
		ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), h.log, "send message")
		defer cancel()

		err := h.checkMember(ctx, chatID)
		if err == nil {
			_, err = h.store.SendMessage(ctx, models.Message{
				ChatID:     chatID,
				SenderID:   h.userID,
				SenderName: h.userName,
				Content:    content,
			})
		}
		h.scope.Publish(func() { h.Operations.Emit(apperr.ResultOf(err)) })
	})
}

// CreateChat opens a new thread with otherUserID and emits its id on Created.
func (h *Holder) CreateChat(otherUserID string) {
	h.scope.Launch(func(ctx context.Context) {
		opCtx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), h.log, "create chat")
		id, err := h.store.Create(opCtx, h.userID, otherUserID)
		cancel()

		h.scope.Publish(func() {
			h.Created.Emit(Created{Result: apperr.ResultOf(err), ChatID: id})
		})
		if err == nil {
			h.loadChats(ctx)
		}
	})
}

func (h *Holder) checkMember(ctx context.Context, chatID string) error {
	c, err := h.store.GetByID(ctx, chatID)
	if err != nil {
		return err
	}
	for _, u := range c.Users {
		if u == h.userID {
			return nil
		}
	}
	return errNotMember
}

// Wait blocks until pending work has finished. With a thread open this
// only returns after Close.
func (h *Holder) Wait() { h.scope.Wait() }

// Close releases the live listener and cancels pending work.
func (h *Holder) Close() { h.scope.Close() }
