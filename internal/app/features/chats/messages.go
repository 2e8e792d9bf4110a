package chats

import (
	"net/http"

	"github.com/civicapp/civichub/internal/app/system/inputval"
	"github.com/civicapp/civichub/internal/app/system/respond"
	"github.com/civicapp/civichub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

type sendInput struct {
	Content string `json:"content" validate:"notblank,max=2000" label:"Message"`
}

type messagesResponse struct {
	ChatID   string           `json:"chat_id"`
	Messages []models.Message `json:"messages"`
}

// ServeMessages handles GET /chats/{id}/messages: the thread oldest first.
// Only members of the thread may read it.
func (h *Handler) ServeMessages(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "id")
	if !inputval.IsValidObjectID(chatID) {
		respond.Error(w, h.Log, errBadChatID)
		return
	}

	vm, _ := h.holder(r)
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
	respond.JSON(w, http.StatusOK, messagesResponse{ChatID: chatID, Messages: vm.Messages.Value()})
}

// HandleSend handles POST /chats/{id}/messages.
func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "id")
	if !inputval.IsValidObjectID(chatID) {
		respond.Error(w, h.Log, errBadChatID)
		return
	}
	var in sendInput
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := inputval.Validate(in).Err(); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	vm, _ := h.holder(r)
	defer vm.Close()

	vm.Send(chatID, in.Content)
	res, err := vm.Operations.Next(r.Context())
	if err != nil {
		return
	}
	respond.Result(w, res)
}
