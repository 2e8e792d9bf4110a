package profile_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/civicapp/civichub/internal/app/features/profile"
	credentialstore "github.com/civicapp/civichub/internal/app/store/credentials"
	missionstore "github.com/civicapp/civichub/internal/app/store/missions"
	userstore "github.com/civicapp/civichub/internal/app/store/users"
	"github.com/civicapp/civichub/internal/app/system/identity"
	"github.com/civicapp/civichub/internal/app/system/participation"
	"github.com/civicapp/civichub/internal/app/system/txn"
	"github.com/civicapp/civichub/internal/domain/models"
	"github.com/civicapp/civichub/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type env struct {
	db     *mongo.Database
	ident  *identity.Service
	router http.Handler
	caller testutil.TestUser
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := userstore.New(db)
	missions := missionstore.New(db)
	tx := txn.New(nil, logger)
	ident := identity.New(credentialstore.New(db), users, tx, logger)
	ident.SetBcryptCost(bcrypt.MinCost)
	coord := participation.New(missions, users, tx, participation.Options{}, logger)

	u, err := ident.SignUp(ctx, "Ada Lovelace", "ada@example.com", "secret1")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	h := profile.NewHandler(testutil.NewSessionManager(t), users, ident, coord, logger)
	return &env{
		db:     db,
		ident:  ident,
		router: profile.Routes(h, testutil.NewSessionManager(t)),
		caller: testutil.TestUser{ID: u.ID, Name: u.Name, Email: u.Email},
	}
}

func (e *env) do(r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, testutil.WithUser(r, e.caller))
	return rec
}

type profileBody struct {
	OK      bool         `json:"ok"`
	Kind    string       `json:"kind"`
	Message string       `json:"message"`
	User    *models.User `json:"user"`
}

func TestServeProfile(t *testing.T) {
	e := newEnv(t)

	rec := e.do(testutil.NewRequest(http.MethodGet, "/"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var out profileBody
	testutil.DecodeJSON(t, rec, &out)
	if out.User == nil || out.User.ID != e.caller.ID || out.User.Email != "ada@example.com" {
		t.Errorf("user = %+v", out.User)
	}
}

func TestHandleUpdate(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	rec := e.do(testutil.NewJSONRequest(t, http.MethodPatch, "/", map[string]string{
		"name":     "Ada King",
		"bio":      "Counting engines",
		"password": "newsecret",
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var out profileBody
	testutil.DecodeJSON(t, rec, &out)
	if out.User == nil || out.User.Name != "Ada King" || out.User.Bio != "Counting engines" {
		t.Errorf("user = %+v", out.User)
	}
	if out.User != nil && out.User.Email != "ada@example.com" {
		t.Errorf("blank email changed the address to %q", out.User.Email)
	}

	if _, err := e.ident.SignIn(ctx, "ada@example.com", "newsecret"); err != nil {
		t.Errorf("sign in with new password: %v", err)
	}
}

func TestHandleUpdate_Validation(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name string
		body map[string]string
		msg  string
	}{
		{"short password", map[string]string{"password": "abc"}, "Password must be at least 6 characters."},
		{"bad email", map[string]string{"email": "not-an-email"}, "A valid email address is required."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(testutil.NewJSONRequest(t, http.MethodPatch, "/", tt.body))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			var out profileBody
			testutil.DecodeJSON(t, rec, &out)
			if out.Message != tt.msg {
				t.Errorf("message = %q, want %q", out.Message, tt.msg)
			}
		})
	}
}

func TestHandleDelete(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, e.db)
	m := fx.CreateMission(ctx, "Beach Cleanup", testutil.MissionOpts{})
	users := userstore.New(e.db)
	coord := participation.New(missionstore.New(e.db), users, txn.New(nil, zap.NewNop()), participation.Options{}, zap.NewNop())
	if err := coord.Join(ctx, e.caller.ID, m.ID); err != nil {
		t.Fatalf("Join: %v", err)
	}

	rec := e.do(testutil.NewRequest(http.MethodDelete, "/"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	if _, err := users.GetByID(ctx, e.caller.ID); err == nil {
		t.Error("profile still exists after delete")
	}
	got, err := missionstore.New(e.db).GetByID(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetByID mission: %v", err)
	}
	if got.HasParticipant(e.caller.ID) {
		t.Error("deleted user still listed on the mission")
	}
	if _, err := e.ident.SignIn(ctx, "ada@example.com", "secret1"); err == nil {
		t.Error("deleted account can still sign in")
	}
}

func TestProfile_SignedOut(t *testing.T) {
	e := newEnv(t)

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, testutil.NewRequest(http.MethodGet, "/"))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
