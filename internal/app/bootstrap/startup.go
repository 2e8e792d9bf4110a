package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs after the schema is in place and before the handler is
// built. It starts the background workers.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.StateCleanup != nil {
		deps.StateCleanup.Start()
	}
	if appCfg.GoogleClientID == "" {
		logger.Info("google sign-in disabled (no client id)")
	}
	logger.Info("account protection",
		zap.String("audit_log", appCfg.AuditLog),
		zap.Duration("audit_retention", appCfg.AuditRetention),
		zap.Int("login_ip_attempts", appCfg.LoginIPAttempts),
		zap.Int("login_email_attempts", appCfg.LoginEmailAttempts))
	return nil
}
