package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: KindNone},
		{name: "validation", err: Validation("title is required"), want: KindValidation},
		{name: "wrapped not found", err: fmt.Errorf("load mission: %w", NotFound("mission")), want: KindNotFound},
		{name: "mongo no documents", err: mongo.ErrNoDocuments, want: KindNotFound},
		{name: "deadline", err: context.DeadlineExceeded, want: KindTransient},
		{name: "wrapped deadline", err: fmt.Errorf("find: %w", context.DeadlineExceeded), want: KindTransient},
		{name: "unauthorized command", err: mongo.CommandError{Code: 13, Message: "not authorized on civichub"}, want: KindPermission},
		{name: "duplicate key", err: mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}, want: KindConflict},
		{name: "partial", err: Wrap(KindPartial, errors.New("boom"), "leave"), want: KindPartial},
		{name: "generic", err: errors.New("something odd"), want: KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestErrorsIs_Sentinels(t *testing.T) {
	err := fmt.Errorf("get user: %w", NotFound("user"))
	if !errors.Is(err, ErrNotFound) {
		t.Error("expected wrapped NotFound to match ErrNotFound")
	}
	if errors.Is(err, ErrPermission) {
		t.Error("NotFound must not match ErrPermission")
	}
}

func TestWrap_NilStaysNil(t *testing.T) {
	if err := Wrap(KindInternal, nil, "noop"); err != nil {
		t.Errorf("Wrap(nil) = %v, want nil", err)
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation: http.StatusBadRequest,
		KindNotFound:   http.StatusNotFound,
		KindPermission: http.StatusForbidden,
		KindConflict:   http.StatusConflict,
		KindTransient:  http.StatusServiceUnavailable,
		KindPartial:    http.StatusInternalServerError,
		KindInternal:   http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := kind.HTTPStatus(); got != want {
			t.Errorf("%q.HTTPStatus() = %d, want %d", kind, got, want)
		}
	}
}

func TestMessage_HidesInternalDetail(t *testing.T) {
	err := errors.New("connection reset by peer at 10.0.0.3")
	if got := Message(err); got != "internal error" {
		t.Errorf("Message = %q, want %q", got, "internal error")
	}
	if got := Message(Validation("email is required")); got != "email is required" {
		t.Errorf("Message = %q, want validation text", got)
	}
}

func TestResultOf(t *testing.T) {
	if r := ResultOf(nil); !r.OK || r.Kind != KindNone {
		t.Errorf("ResultOf(nil) = %+v, want success", r)
	}

	r := ResultOf(context.DeadlineExceeded)
	if r.OK {
		t.Fatal("expected failure result")
	}
	if r.Kind != KindTransient {
		t.Errorf("Kind = %q, want %q", r.Kind, KindTransient)
	}
	if !r.Retryable() {
		t.Error("transient failure should be retryable")
	}

	if ResultOf(NotFound("mission")).Retryable() {
		t.Error("not found should not be retryable")
	}
}
