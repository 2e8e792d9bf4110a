// Package respond writes JSON responses and classified error bodies.
package respond

import (
	"encoding/json"
	"net/http"

	"github.com/civicapp/civichub/internal/app/system/apperr"
	"go.uber.org/zap"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes err as {"error": kind, "message": text} with the status its
// kind maps to. Internal and partial failures are logged; client mistakes are not.
func Error(w http.ResponseWriter, log *zap.Logger, err error, fields ...zap.Field) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindNone {
		kind = apperr.KindInternal
	}
	if log != nil {
		switch kind {
		case apperr.KindInternal, apperr.KindPartial:
			log.Error("request failed", append(fields, zap.String("kind", string(kind)), zap.Error(err))...)
		case apperr.KindTransient:
			log.Warn("request failed", append(fields, zap.String("kind", string(kind)), zap.Error(err))...)
		}
	}
	JSON(w, kind.HTTPStatus(), ErrorBody{Error: string(kind), Message: apperr.Message(err)})
}

// Result writes a tagged result: 200 on success, the kind's status otherwise.
func Result(w http.ResponseWriter, res apperr.Result) {
	status := http.StatusOK
	if !res.OK {
		status = res.Kind.HTTPStatus()
	}
	JSON(w, status, res)
}

// Unauthorized writes the 401 body used when no one is signed in.
func Unauthorized(w http.ResponseWriter) {
	JSON(w, http.StatusUnauthorized, ErrorBody{Error: "unauthenticated", Message: "sign in required"})
}

// Decode reads a JSON request body into v. A malformed body is a validation error.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.Wrap(apperr.KindValidation, err, "malformed request body")
	}
	return nil
}

// TooManyRequests writes the 429 body used when a client is rate limited.
func TooManyRequests(w http.ResponseWriter, message string) {
	JSON(w, http.StatusTooManyRequests, ErrorBody{Error: "rate_limited", Message: message})
}
