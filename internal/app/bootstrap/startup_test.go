package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/civicapp/civichub/internal/app/system/respond"
	"github.com/civicapp/civichub/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func validConfig() AppConfig {
	return AppConfig{
		MongoURI:         "mongodb://localhost:27017",
		MongoDatabase:    "civichub",
		SessionKey:       testutil.TestSessionKey,
		SessionName:      "civichub-session",
		TokenTTL:         time.Hour,
		BaseURL:          "http://localhost:8080",
		PointsPerMission: 10,
		ChatPollInterval: time.Second,
		OAuthStateSweep:  time.Minute,
	}
}

func TestValidateConfig(t *testing.T) {
	dev := &config.CoreConfig{Env: "dev"}
	prod := &config.CoreConfig{Env: "prod"}

	tests := []struct {
		name    string
		core    *config.CoreConfig
		mutate  func(c *AppConfig)
		wantErr bool
	}{
		{"valid", dev, func(c *AppConfig) {}, false},
		{"bad uri", dev, func(c *AppConfig) { c.MongoURI = "postgres://nope" }, true},
		{"no database", dev, func(c *AppConfig) { c.MongoDatabase = " " }, true},
		{"no session key", dev, func(c *AppConfig) { c.SessionKey = "" }, true},
		{"dev key allowed in dev", dev, func(c *AppConfig) { c.SessionKey = devSessionKey }, false},
		{"dev key refused in prod", prod, func(c *AppConfig) { c.SessionKey = devSessionKey }, true},
		{"short key refused in prod", prod, func(c *AppConfig) { c.SessionKey = "short" }, true},
		{"negative points", dev, func(c *AppConfig) { c.PointsPerMission = -1 }, true},
		{"audit mode", dev, func(c *AppConfig) { c.AuditLog = "db" }, false},
		{"unknown audit mode", dev, func(c *AppConfig) { c.AuditLog = "everything" }, true},
		{"negative retention", dev, func(c *AppConfig) { c.AuditRetention = -time.Hour }, true},
		{"negative attempts", dev, func(c *AppConfig) { c.LoginIPAttempts = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := ValidateConfig(tt.core, cfg, testLogger())
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" https://a.example , ,https://b.example,")
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Errorf("splitList() = %q", got)
	}
	if got := splitList(""); len(got) != 0 {
		t.Errorf("splitList(\"\") = %q", got)
	}
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	deps := DBDeps{MongoDatabase: db}
	for i := 0; i < 2; i++ {
		if err := EnsureSchema(ctx, nil, validConfig(), deps, testLogger()); err != nil {
			t.Fatalf("EnsureSchema pass %d: %v", i+1, err)
		}
	}

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames: %v", err)
	}
	have := map[string]bool{}
	for _, n := range names {
		have[n] = true
	}
	for _, want := range []string{"users", "credentials", "missions", "chats", "chat_messages", "notifications", "oauth_states", "audit_events"} {
		if !have[want] {
			t.Errorf("collection %q not created", want)
		}
	}
}

func TestBuildHandler_Routes(t *testing.T) {
	db := testutil.SetupTestDB(t)

	deps := DBDeps{MongoClient: db.Client(), MongoDatabase: db}
	h, err := BuildHandler(&config.CoreConfig{Env: "dev"}, validConfig(), deps, testLogger())
	if err != nil {
		t.Fatalf("BuildHandler: %v", err)
	}

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/auth/session", http.StatusOK},
		{http.MethodGet, "/missions", http.StatusOK},
		{http.MethodPost, "/missions", http.StatusUnauthorized},
		{http.MethodGet, "/profile", http.StatusUnauthorized},
		{http.MethodGet, "/chats", http.StatusUnauthorized},
		{http.MethodGet, "/notifications", http.StatusUnauthorized},
		{http.MethodGet, "/participation", http.StatusUnauthorized},
		{http.MethodPost, "/auth/logout", http.StatusOK},
		{http.MethodGet, "/auth/google", http.StatusInternalServerError},
		{http.MethodGet, "/no/such/route", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/no/such/route", nil))
	var body respond.ErrorBody
	testutil.DecodeJSON(t, rec, &body)
	if body.Error != "not_found" {
		t.Errorf("404 body = %+v", body)
	}
}

func TestBuildHandler_LoginRateLimited(t *testing.T) {
	db := testutil.SetupTestDB(t)

	cfg := validConfig()
	cfg.LoginIPAttempts = 2
	h, err := BuildHandler(&config.CoreConfig{Env: "dev"}, cfg, DBDeps{MongoClient: db.Client(), MongoDatabase: db}, testLogger())
	if err != nil {
		t.Fatalf("BuildHandler: %v", err)
	}

	body := map[string]string{"email": "nobody@example.com", "password": "secret1"}
	want := []int{http.StatusForbidden, http.StatusForbidden, http.StatusTooManyRequests}
	for i, code := range want {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, testutil.NewJSONRequest(t, http.MethodPost, "/auth/login", body))
		if rec.Code != code {
			t.Fatalf("attempt %d: status = %d, want %d", i+1, rec.Code, code)
		}
	}
}

func TestLoginLimiter_Disabled(t *testing.T) {
	if l := loginLimiter(validConfig(), DBDeps{}); l != nil {
		t.Error("expected no limiter when both limits are zero")
	}
	cfg := validConfig()
	cfg.LoginEmailAttempts = 3
	if l := loginLimiter(cfg, DBDeps{}); l == nil {
		t.Error("expected a limiter when one limit is set")
	}
}

func TestConnectStartupShutdown(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	uri := os.Getenv("CIVICHUB_TEST_MONGO_URI")
	if uri == "" {
		uri = testutil.DefaultMongoURI
	}
	cfg := validConfig()
	cfg.MongoURI = uri
	cfg.MongoDatabase = db.Name()

	deps, err := ConnectDB(ctx, nil, cfg, testLogger())
	if err != nil {
		t.Fatalf("ConnectDB: %v", err)
	}
	if deps.StateCleanup == nil {
		t.Fatal("ConnectDB did not build the cleanup worker")
	}
	if err := Startup(ctx, nil, cfg, deps, testLogger()); err != nil {
		t.Fatalf("Startup: %v", err)
	}
	if err := Shutdown(ctx, nil, cfg, deps, testLogger()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}
