package chats

import (
	"net/http"

	"github.com/civicapp/civichub/internal/app/system/apperr"
	"github.com/civicapp/civichub/internal/app/system/inputval"
	"github.com/civicapp/civichub/internal/app/system/respond"
	"github.com/civicapp/civichub/internal/domain/models"
	"go.uber.org/zap"
)

type createInput struct {
	UserID string `json:"user_id" validate:"notblank" label:"User"`
}

type threadsResponse struct {
	Chats []models.Chat `json:"chats"`
}

type createResponse struct {
	apperr.Result
	ChatID string `json:"chat_id,omitempty"`
}

// ServeThreads handles GET /chats: the caller's threads, newest first.
func (h *Handler) ServeThreads(w http.ResponseWriter, r *http.Request) {
	vm, _ := h.holder(r)
	defer vm.Close()

	vm.LoadChats()
	vm.Wait()

	if res := vm.LoadStatus.Value(); !res.OK {
		respond.Result(w, res)
		return
	}
	respond.JSON(w, http.StatusOK, threadsResponse{Chats: vm.Chats.Value()})
}

// HandleCreate handles POST /chats and opens a thread with user_id.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in createInput
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := inputval.Validate(in).Err(); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	vm, u := h.holder(r)
	defer vm.Close()

	vm.CreateChat(in.UserID)
	out, err := vm.Created.Next(r.Context())
	if err != nil {
		return
	}
	if !out.OK {
		respond.Result(w, out.Result)
		return
	}
	h.Log.Debug("chat created", zap.String("chat_id", out.ChatID), zap.String("user_id", u.ID))
	respond.JSON(w, http.StatusCreated, createResponse{Result: out.Result, ChatID: out.ChatID})
}
