package errors_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	uierrors "github.com/civicapp/civichub/internal/app/features/errors"
	"github.com/civicapp/civichub/internal/app/system/respond"
	"github.com/civicapp/civichub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func TestRouterFallbacks(t *testing.T) {
	h := uierrors.NewHandler(zap.NewNop())
	r := chi.NewRouter()
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)
	r.Get("/missions", func(w http.ResponseWriter, r *http.Request) {})

	tests := []struct {
		method, path string
		status       int
		kind         string
	}{
		{http.MethodGet, "/nowhere", http.StatusNotFound, "not_found"},
		{http.MethodDelete, "/missions", http.StatusMethodNotAllowed, "method_not_allowed"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, testutil.NewRequest(tt.method, tt.path))
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			var body respond.ErrorBody
			testutil.DecodeJSON(t, rec, &body)
			if body.Error != tt.kind {
				t.Errorf("error = %q, want %q", body.Error, tt.kind)
			}
		})
	}
}
