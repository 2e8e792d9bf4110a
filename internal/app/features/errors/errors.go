// Package errors answers requests that match no route with the same JSON
// error body the rest of the API uses.
package errors

import (
	"net/http"

	"github.com/civicapp/civichub/internal/app/system/respond"
	"go.uber.org/zap"
)

type Handler struct {
	Log *zap.Logger
}

func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{Log: logger}
}

// NotFound is installed as the router's NotFound handler.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.Log.Debug("no route", zap.String("method", r.Method), zap.String("path", r.URL.Path))
	respond.JSON(w, http.StatusNotFound, respond.ErrorBody{Error: "not_found", Message: "no such endpoint"})
}

// MethodNotAllowed is installed as the router's MethodNotAllowed handler.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusMethodNotAllowed, respond.ErrorBody{
		Error:   "method_not_allowed",
		Message: r.Method + " is not supported here",
	})
}
