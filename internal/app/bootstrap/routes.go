package bootstrap

import (
	"context"
	"net/http"
	"time"

	authgooglefeature "github.com/civicapp/civichub/internal/app/features/authgoogle"
	chatsfeature "github.com/civicapp/civichub/internal/app/features/chats"
	errorsfeature "github.com/civicapp/civichub/internal/app/features/errors"
	healthfeature "github.com/civicapp/civichub/internal/app/features/health"
	loginfeature "github.com/civicapp/civichub/internal/app/features/login"
	logoutfeature "github.com/civicapp/civichub/internal/app/features/logout"
	missionsfeature "github.com/civicapp/civichub/internal/app/features/missions"
	notificationsfeature "github.com/civicapp/civichub/internal/app/features/notifications"
	participationfeature "github.com/civicapp/civichub/internal/app/features/participation"
	profilefeature "github.com/civicapp/civichub/internal/app/features/profile"
	"github.com/civicapp/civichub/internal/app/store/audit"
	chatstore "github.com/civicapp/civichub/internal/app/store/chats"
	credentialstore "github.com/civicapp/civichub/internal/app/store/credentials"
	missionstore "github.com/civicapp/civichub/internal/app/store/missions"
	notificationstore "github.com/civicapp/civichub/internal/app/store/notifications"
	"github.com/civicapp/civichub/internal/app/store/oauthstate"
	userstore "github.com/civicapp/civichub/internal/app/store/users"
	"github.com/civicapp/civichub/internal/app/system/auditlog"
	"github.com/civicapp/civichub/internal/app/system/auth"
	"github.com/civicapp/civichub/internal/app/system/identity"
	"github.com/civicapp/civichub/internal/app/system/participation"
	"github.com/civicapp/civichub/internal/app/system/ratelimit"
	"github.com/civicapp/civichub/internal/app/system/txn"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Version is reported by /health. Overridden at build time with -ldflags.
var Version = "dev"

// BuildHandler constructs the root HTTP handler for this WAFFLE app.
//
// Every request passes CORS (when origins are configured) and then
// LoadSessionUser, which puts the caller (from a bearer token or the
// session cookie) into the context. Feature routers decide which of their
// routes need a signed-in user.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain,
		appCfg.TokenTTL, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	db := deps.MongoDatabase
	users := userstore.New(db)
	missions := missionstore.New(db)
	chats := chatstore.New(db)
	chats.SetPollInterval(appCfg.ChatPollInterval)

	tx := txn.New(deps.MongoClient, logger)
	accounts := identity.New(credentialstore.New(db), users, tx, logger)
	coord := participation.New(missions, users, tx, participation.Options{
		EnforceCapacity:  appCfg.EnforceCapacity,
		PointsPerMission: appCfg.PointsPerMission,
	}, logger)

	auditLog := auditlog.New(audit.New(db), logger, appCfg.AuditLog)
	limiter := loginLimiter(appCfg, deps)

	r := chi.NewRouter()
	if len(appCfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   appCfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300, // Maximum value not ignored by any of major browsers
		}))
	}
	r.Use(sessionMgr.LoadSessionUser)

	errorsHandler := errorsfeature.NewHandler(logger)
	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	// Health check for load balancers and orchestrators
	r.Mount("/health", healthfeature.Routes(healthfeature.NewHandler(deps.MongoClient, Version, logger)))

	// Authentication
	googleHandler := authgooglefeature.NewHandler(sessionMgr,
		oauthstate.New(db), accounts, appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.BaseURL, logger)
	googleHandler.Audit = auditLog
	r.Mount("/auth/google", authgooglefeature.Routes(googleHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, users, logger)
	logoutHandler.Audit = auditLog
	r.Mount("/auth/logout", logoutfeature.Routes(logoutHandler))

	loginHandler := loginfeature.NewHandler(sessionMgr, accounts, users, logger)
	loginHandler.Limiter = limiter
	loginHandler.Audit = auditLog
	r.Mount("/auth", loginfeature.Routes(loginHandler))

	// Missions and participation
	r.Mount("/missions", missionsfeature.Routes(missionsfeature.NewHandler(missions, users, coord, logger), sessionMgr))
	r.Mount("/participation", participationfeature.Routes(participationfeature.NewHandler(coord, missions, logger), sessionMgr))

	// Chat, notifications, profile
	r.Mount("/chats", chatsfeature.Routes(chatsfeature.NewHandler(chats, appCfg.CORSOrigins, logger), sessionMgr))
	r.Mount("/notifications", notificationsfeature.Routes(notificationsfeature.NewHandler(notificationstore.New(db), logger), sessionMgr))
	profileHandler := profilefeature.NewHandler(sessionMgr, users, accounts, coord, logger)
	profileHandler.Audit = auditLog
	r.Mount("/profile", profilefeature.Routes(profileHandler, sessionMgr))

	return r, nil
}

// loginLimiter builds the sign-in limiter, or returns nil when both limits
// are zero. Idle buckets are dropped by the cleanup worker.
func loginLimiter(appCfg AppConfig, deps DBDeps) *ratelimit.LoginLimiter {
	ipAttempts, emailAttempts := appCfg.LoginIPAttempts, appCfg.LoginEmailAttempts
	if ipAttempts == 0 && emailAttempts == 0 {
		return nil
	}
	// A single zero limit means effectively unlimited on that axis.
	if ipAttempts == 0 {
		ipAttempts = 1 << 20
	}
	if emailAttempts == 0 {
		emailAttempts = 1 << 20
	}
	l := ratelimit.NewLoginLimiterWithConfig(ipAttempts, time.Minute, emailAttempts, 5*time.Minute)
	if deps.StateCleanup != nil {
		deps.StateCleanup.Also("login limiter", func(context.Context) (int64, error) {
			return int64(l.Sweep()), nil
		})
	}
	return l
}
