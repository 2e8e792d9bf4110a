// Package apperr classifies failures into a small set of kinds so callers can
// tell a bad request from a missing record, a refused write, or a backend
// that may recover if asked again.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

// Kind is the category of a failure.
type Kind string

const (
	KindNone       Kind = ""
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindPermission Kind = "permission"
	KindConflict   Kind = "conflict"
	KindTransient  Kind = "transient"
	// KindPartial means a multi-document write applied only one side and the
	// compensating write failed too.
	KindPartial  Kind = "partial"
	KindInternal Kind = "internal"
)

// Retryable reports whether asking again may succeed.
func (k Kind) Retryable() bool {
	return k == KindTransient
}

// HTTPStatus maps a kind to the status code handlers respond with.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNone:
		return http.StatusOK
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindPermission:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a kind alongside the wrapped cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match two *Error values of the same kind and message,
// which is how the sentinels below are compared.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Msg == "" || t.Msg == e.Msg)
}

// Sentinels shared across stores.
var (
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrPermission = &Error{Kind: KindPermission}
)

// New builds an error of the given kind.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap attaches a kind to err. A nil err stays nil.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Validation is shorthand for a validation error with a formatted message.
func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// NotFound reports that the named record does not exist.
func NotFound(what string) error {
	return &Error{Kind: KindNotFound, Msg: what + " not found"}
}

// KindOf classifies err. Errors that carry a kind keep it; Mongo and context
// errors are mapped; everything else is internal.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return KindNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTransient
	}
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return KindTransient
	}
	if mongo.IsDuplicateKeyError(err) {
		return KindConflict
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		// 13 Unauthorized, 18 AuthenticationFailed
		if ce.Code == 13 || ce.Code == 18 {
			return KindPermission
		}
		if ce.HasErrorLabel("TransientTransactionError") {
			return KindTransient
		}
	}
	if strings.Contains(strings.ToLower(err.Error()), "not authorized") {
		return KindPermission
	}
	return KindInternal
}

// Message returns text that is safe to show a client. Validation, conflict
// and not-found messages are passed through; everything else is generic.
func Message(err error) string {
	if err == nil {
		return ""
	}
	kind := KindOf(err)
	var ae *Error
	if errors.As(err, &ae) && ae.Msg != "" {
		switch kind {
		case KindValidation, KindConflict, KindNotFound, KindPermission:
			return ae.Msg
		}
	}
	switch kind {
	case KindNotFound:
		return "not found"
	case KindPermission:
		return "not allowed"
	case KindTransient:
		return "service temporarily unavailable, try again"
	case KindPartial:
		return "the change was only partly applied"
	case KindConflict:
		return "conflict"
	}
	return "internal error"
}
