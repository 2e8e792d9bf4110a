package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/civicapp/civichub/internal/app/system/auditlog"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// devSessionKey is the default key. It is refused in prod.
const devSessionKey = "dev-only-change-me-please-0123456789ABCDEF"

// minSessionKeyLen is the shortest session key accepted in prod.
const minSessionKeyLen = 32

// appConfigKeys defines the configuration keys for CivicHub:
//   - config files: mongo_uri, session_name, ...
//   - environment:  CIVICHUB_MONGO_URI, CIVICHUB_SESSION_NAME, ...
//   - flags:        --mongo_uri, --session_name, ...
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "civichub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 5, Desc: "MongoDB min connection pool size"},

	{Name: "session_key", Default: devSessionKey, Desc: "Session and token signing key (must be strong in production)"},
	{Name: "session_name", Default: "civichub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "token_ttl", Default: "720h", Desc: "Lifetime of session cookies and bearer tokens"},

	{Name: "base_url", Default: "http://localhost:8080", Desc: "Public base URL (used for the Google callback)"},
	{Name: "cors_origins", Default: "", Desc: "Comma-separated browser origins allowed to call the API"},

	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID (blank disables Google sign-in)"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},

	{Name: "enforce_capacity", Default: false, Desc: "Reject joins once a mission reaches max_participants"},
	{Name: "points_per_mission", Default: 10, Desc: "Points awarded to each participant when a mission completes"},

	{Name: "chat_poll_interval", Default: "2s", Desc: "Live chat poll interval when change streams are unavailable"},
	{Name: "oauth_state_sweep", Default: "10m", Desc: "How often expired Google sign-in states are removed"},

	{Name: "audit_log", Default: "all", Desc: "Account audit events: all (db and log), db, log, or off"},
	{Name: "audit_retention", Default: "2160h", Desc: "How long audit events are kept (0 keeps them forever)"},

	{Name: "login_ip_attempts", Default: 10, Desc: "Sign-in attempts allowed per IP per minute (0 disables)"},
	{Name: "login_email_attempts", Default: 5, Desc: "Sign-in attempts allowed per email per 5 minutes (0 disables)"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
// Precedence: flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "CIVICHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		TokenTTL:      appValues.Duration("token_ttl", 30*24*time.Hour),

		BaseURL:     strings.TrimRight(appValues.String("base_url"), "/"),
		CORSOrigins: splitList(appValues.String("cors_origins")),

		GoogleClientID:     appValues.String("google_client_id"),
		GoogleClientSecret: appValues.String("google_client_secret"),

		EnforceCapacity:  appValues.Bool("enforce_capacity"),
		PointsPerMission: int64(appValues.Int("points_per_mission")),

		ChatPollInterval: appValues.Duration("chat_poll_interval", 2*time.Second),
		OAuthStateSweep:  appValues.Duration("oauth_state_sweep", 10*time.Minute),

		AuditLog:       appValues.String("audit_log"),
		AuditRetention: appValues.Duration("audit_retention", 90*24*time.Hour),

		LoginIPAttempts:    appValues.Int("login_ip_attempts"),
		LoginEmailAttempts: appValues.Int("login_email_attempts"),
	}
	return coreCfg, appCfg, nil
}

// ValidateConfig rejects configurations that cannot work before any
// connection is attempted.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if strings.TrimSpace(appCfg.MongoDatabase) == "" {
		return fmt.Errorf("mongo_database is required")
	}
	if appCfg.SessionKey == "" {
		return fmt.Errorf("session_key is required")
	}
	if coreCfg != nil && coreCfg.Env == "prod" {
		if appCfg.SessionKey == devSessionKey {
			return fmt.Errorf("session_key must be changed from the development default in prod")
		}
		if len(appCfg.SessionKey) < minSessionKeyLen {
			return fmt.Errorf("session_key must be at least %d characters in prod", minSessionKeyLen)
		}
	}
	if appCfg.PointsPerMission < 0 {
		return fmt.Errorf("points_per_mission cannot be negative")
	}
	if _, err := auditlog.ParseMode(appCfg.AuditLog); err != nil {
		return fmt.Errorf("audit_log: %w", err)
	}
	if appCfg.AuditRetention < 0 {
		return fmt.Errorf("audit_retention cannot be negative")
	}
	if appCfg.LoginIPAttempts < 0 || appCfg.LoginEmailAttempts < 0 {
		return fmt.Errorf("login attempt limits cannot be negative")
	}
	if (appCfg.GoogleClientID == "") != (appCfg.GoogleClientSecret == "") {
		logger.Warn("google sign-in needs both client id and secret; it stays disabled")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
