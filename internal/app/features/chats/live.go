package chats

import (
	"context"
	"net/http"
	"time"

	"github.com/civicapp/civichub/internal/app/system/apperr"
	"github.com/civicapp/civichub/internal/app/system/inputval"
	"github.com/civicapp/civichub/internal/app/system/respond"
	chatvm "github.com/civicapp/civichub/internal/app/viewmodels/chat"
	"github.com/civicapp/civichub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameBytes  = 8 << 10
	resultsBacklog = 16
)

// Frame types sent to the client.
const (
	FrameMessages = "messages"
	FrameResult   = "result"
)

// liveFrame is one server-to-client frame. A "messages" frame carries the
// whole thread; a "result" frame carries the outcome of one send.
type liveFrame struct {
	Type     string           `json:"type"`
	Messages []models.Message `json:"messages,omitempty"`
	Result   *apperr.Result   `json:"result,omitempty"`
}

// ServeLive handles GET /chats/{id}/live. Membership is checked before the
// upgrade, so a stranger gets a plain JSON error. After the upgrade the
// client receives the thread on every change and may post
// {"content": "..."} frames to send.
func (h *Handler) ServeLive(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "id")
	if !inputval.IsValidObjectID(chatID) {
		respond.Error(w, h.Log, errBadChatID)
		return
	}

	vm, u := h.holder(r)
	defer vm.Close()

	vm.Open(chatID)
	res, err := vm.Opened.Next(r.Context())
	if err != nil {
		return
	}
	if !res.OK {
		respond.Result(w, res)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client.
		h.Log.Debug("websocket upgrade failed", zap.String("chat_id", chatID), zap.Error(err))
		return
	}
	defer conn.Close()

	log := h.Log.With(zap.String("chat_id", chatID), zap.String("user_id", u.ID))
	log.Debug("live chat opened")
	h.serveConn(conn, vm, chatID, log)
	log.Debug("live chat closed")
}

func (h *Handler) serveConn(conn *websocket.Conn, vm *chatvm.Holder, chatID string, log *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan apperr.Result, resultsBacklog)
	go readLoop(ctx, cancel, conn, vm, chatID, results)
	go func() {
		for {
			res, err := vm.Operations.Next(ctx)
			if err != nil {
				return
			}
			select {
			case results <- res:
			case <-ctx.Done():
				return
			}
		}
	}()

	updates, unsubscribe := vm.Messages.Subscribe()
	defer unsubscribe()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		var err error
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case msgs, ok := <-updates:
			if !ok {
				return
			}
			err = writeFrame(conn, liveFrame{Type: FrameMessages, Messages: msgs})
		case res := <-results:
			err = writeFrame(conn, liveFrame{Type: FrameResult, Result: &res})
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			err = conn.WriteMessage(websocket.PingMessage, nil)
		}
		if err != nil {
			log.Debug("live chat write failed", zap.Error(err))
			return
		}
	}
}

// readLoop turns client frames into sends. It cancels ctx when the client
// goes away.
func readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, vm *chatvm.Holder, chatID string, results chan<- apperr.Result) {
	defer cancel()

	conn.SetReadLimit(maxFrameBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var in sendInput
		if err := conn.ReadJSON(&in); err != nil {
			return
		}
		if err := inputval.Validate(in).Err(); err != nil {
			select {
			case results <- apperr.ResultOf(err):
			case <-ctx.Done():
				return
			}
			continue
		}
		vm.Send(chatID, in.Content)
	}
}

func writeFrame(conn *websocket.Conn, f liveFrame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(f)
}
