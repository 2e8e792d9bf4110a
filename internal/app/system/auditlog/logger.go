// Package auditlog records account events to the audit store and to the
// structured log.
package auditlog

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/civicapp/civichub/internal/app/store/audit"
	"github.com/civicapp/civichub/internal/app/system/ratelimit"
	"go.uber.org/zap"
)

// Modes for Config.Mode.
const (
	ModeAll = "all" // store and log
	ModeDB  = "db"
	ModeLog = "log"
	ModeOff = "off"
)

// ParseMode normalizes a configured mode. Blank means ModeAll.
func ParseMode(s string) (string, error) {
	switch m := strings.ToLower(strings.TrimSpace(s)); m {
	case "":
		return ModeAll, nil
	case ModeAll, ModeDB, ModeLog, ModeOff:
		return m, nil
	default:
		return "", fmt.Errorf("audit mode %q: want all, db, log or off", s)
	}
}

// Store persists events.
type Store interface {
	Log(ctx context.Context, e audit.Event) error
}

// Logger records events. A nil *Logger does nothing, so handlers built
// without auditing need no checks.
type Logger struct {
	store Store
	log   *zap.Logger
	mode  string
}

func New(store Store, logger *zap.Logger, mode string) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if mode == "" {
		mode = ModeAll
	}
	return &Logger{store: store, log: logger, mode: mode}
}

// Log records e according to the mode. Storage failures are logged and
// never reach the caller.
func (l *Logger) Log(ctx context.Context, e audit.Event) {
	if l == nil || l.mode == ModeOff {
		return
	}
	if l.mode == ModeAll || l.mode == ModeLog {
		l.toZap(e)
	}
	if (l.mode == ModeAll || l.mode == ModeDB) && l.store != nil {
		if err := l.store.Log(ctx, e); err != nil {
			l.log.Error("failed to store audit event", zap.String("event_type", e.EventType), zap.Error(err))
		}
	}
}

func (l *Logger) toZap(e audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("event_type", e.EventType),
		zap.Bool("success", e.Success),
		zap.String("ip", e.IP),
	}
	if e.UserID != "" {
		fields = append(fields, zap.String("user_id", e.UserID))
	}
	if e.Email != "" {
		fields = append(fields, zap.String("email", e.Email))
	}
	if e.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", e.FailureReason))
	}
	for k, v := range e.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}
	if e.Success {
		l.log.Info("audit event", fields...)
	} else {
		l.log.Warn("audit event", fields...)
	}
}

func fromRequest(r *http.Request, eventType string, success bool) audit.Event {
	e := audit.Event{EventType: eventType, Success: success}
	if r != nil {
		e.IP = ratelimit.ClientIP(r)
		e.UserAgent = r.UserAgent()
	}
	return e
}

// Signup records a new password account.
func (l *Logger) Signup(ctx context.Context, r *http.Request, userID, email string) {
	e := fromRequest(r, audit.EventSignup, true)
	e.UserID, e.Email = userID, email
	l.Log(ctx, e)
}

// LoginSucceeded records a sign-in. method is "password" or "google".
func (l *Logger) LoginSucceeded(ctx context.Context, r *http.Request, userID, email, method string) {
	eventType := audit.EventLoginSuccess
	if method == "google" {
		eventType = audit.EventGoogleLogin
	}
	e := fromRequest(r, eventType, true)
	e.UserID, e.Email = userID, email
	e.Details = map[string]string{"auth_method": method}
	l.Log(ctx, e)
}

// LoginFailed records a refused password sign-in.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, email, reason string) {
	e := fromRequest(r, audit.EventLoginFailed, false)
	e.Email, e.FailureReason = email, reason
	l.Log(ctx, e)
}

// RateLimited records an attempt refused by the sign-in limiter.
func (l *Logger) RateLimited(ctx context.Context, r *http.Request, email, endpoint string) {
	e := fromRequest(r, audit.EventLoginRateLimit, false)
	e.Email, e.FailureReason = email, "rate limit exceeded"
	e.Details = map[string]string{"endpoint": endpoint}
	l.Log(ctx, e)
}

// GoogleRejected records a Google callback that did not sign anyone in.
func (l *Logger) GoogleRejected(ctx context.Context, r *http.Request, email, reason string) {
	e := fromRequest(r, audit.EventGoogleRejected, false)
	e.Email, e.FailureReason = email, reason
	l.Log(ctx, e)
}

// Logout records a sign-out. userID is blank when no one was signed in.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userID string) {
	e := fromRequest(r, audit.EventLogout, true)
	e.UserID = userID
	l.Log(ctx, e)
}

// PasswordChanged records a password update from the profile screen.
func (l *Logger) PasswordChanged(ctx context.Context, r *http.Request, userID string) {
	e := fromRequest(r, audit.EventPasswordChanged, true)
	e.UserID = userID
	l.Log(ctx, e)
}

// AccountDeleted records an account removing itself.
func (l *Logger) AccountDeleted(ctx context.Context, r *http.Request, userID, email string) {
	e := fromRequest(r, audit.EventAccountDeleted, true)
	e.UserID, e.Email = userID, email
	l.Log(ctx, e)
}
