package authgoogle

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/civicapp/civichub/internal/app/store/oauthstate"
	"github.com/civicapp/civichub/internal/app/system/apperr"
	"github.com/civicapp/civichub/internal/app/system/auditlog"
	"github.com/civicapp/civichub/internal/app/system/auth"
	"github.com/civicapp/civichub/internal/app/system/identity"
	"github.com/civicapp/civichub/internal/app/system/respond"
	"github.com/civicapp/civichub/internal/app/system/timeouts"
	authvm "github.com/civicapp/civichub/internal/app/viewmodels/auth"
	"github.com/civicapp/civichub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	stateTTL           = 10 * time.Minute
	defaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

var (
	errNotConfigured = apperr.New(apperr.KindInternal, "google sign-in is not configured")
	errInvalidState  = apperr.New(apperr.KindPermission, "sign-in link expired, start again")
	errDenied        = apperr.New(apperr.KindPermission, "google sign-in was cancelled")
)

// States keeps the one-time state tokens.
type States interface {
	Save(ctx context.Context, e oauthstate.Entry) error
	Consume(ctx context.Context, state string) (oauthstate.Entry, bool, error)
}

// Accounts finds or creates the account behind a Google identity.
type Accounts interface {
	GoogleSignIn(ctx context.Context, gp identity.GoogleProfile) (*models.User, error)
}

// Handler handles Google OAuth authentication.
type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	States     States
	Accounts   Accounts
	Audit      *auditlog.Logger

	// OAuth configuration
	ClientID     string
	ClientSecret string
	RedirectURL  string // e.g., "https://api.civicapp.org/auth/google/callback"

	// Endpoint and UserInfoURL default to Google's.
	Endpoint    oauth2.Endpoint
	UserInfoURL string
}

// NewHandler creates a new Google OAuth handler.
func NewHandler(
	sessionMgr *auth.SessionManager,
	states States,
	accounts Accounts,
	clientID, clientSecret, baseURL string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Log:          logger,
		SessionMgr:   sessionMgr,
		States:       states,
		Accounts:     accounts,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  baseURL + "/auth/google/callback",
		Endpoint:     google.Endpoint,
		UserInfoURL:  defaultUserInfoURL,
	}
}

func (h *Handler) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.ClientID,
		ClientSecret: h.ClientSecret,
		RedirectURL:  h.RedirectURL,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: h.Endpoint,
	}
}

// IsConfigured returns true if Google OAuth is configured.
func (h *Handler) IsConfigured() bool {
	return h.ClientID != "" && h.ClientSecret != ""
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google?client=web|mobile&return=/path                              |
| Starts the flow by redirecting to Google's consent screen.                   |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		h.Log.Warn("Google OAuth not configured")
		respond.Error(w, nil, errNotConfigured)
		return
	}

	state, err := generateState()
	if err != nil {
		respond.Error(w, h.Log, fmt.Errorf("generate oauth state: %w", err))
		return
	}

	client := oauthstate.ClientWeb
	if query.Get(r, "client") == oauthstate.ClientMobile {
		client = oauthstate.ClientMobile
	}
	returnURL := query.Get(r, "return")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "save oauth state")
	defer cancel()

	if err := h.States.Save(ctx, oauthstate.Entry{
		State:     state,
		ReturnURL: returnURL,
		Client:    client,
		ExpiresAt: time.Now().Add(stateTTL),
	}); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	url := h.oauth2Config().AuthCodeURL(state)
	h.Log.Debug("initiating Google OAuth flow",
		zap.String("client", client),
		zap.String("return_url", returnURL))

	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google/callback                                                    |
| Exchanges the code, fetches the Google profile, signs the account in.        |
| Mobile clients get the outcome as JSON; web clients are redirected.          |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	if errParam := query.Get(r, "error"); errParam != "" {
		h.Log.Warn("Google OAuth error",
			zap.String("error", errParam),
			zap.String("description", query.Get(r, "error_description")))
		respond.Error(w, nil, errDenied)
		return
	}

	state := query.Get(r, "state")
	if state == "" {
		respond.Error(w, nil, errInvalidState)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "google callback")
	defer cancel()

	entry, ok, err := h.States.Consume(ctx, state)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if !ok {
		h.Log.Warn("invalid or expired OAuth state")
		respond.Error(w, nil, errInvalidState)
		return
	}

	token, err := h.oauth2Config().Exchange(ctx, query.Get(r, "code"))
	if err != nil {
		h.Log.Warn("google code exchange failed", zap.Error(err))
		respond.Error(w, nil, apperr.Wrap(apperr.KindPermission, err, "google sign-in failed"))
		return
	}

	info, err := h.fetchUserInfo(ctx, token)
	if err != nil {
		respond.Error(w, h.Log, apperr.Wrap(apperr.KindTransient, err, "google profile unavailable"))
		return
	}
	if !info.VerifiedEmail {
		h.Audit.GoogleRejected(ctx, r, info.Email, "email not verified")
		respond.Error(w, nil, apperr.New(apperr.KindPermission, "google account email is not verified"))
		return
	}

	u, err := h.Accounts.GoogleSignIn(ctx, identity.GoogleProfile{
		Sub:     info.ID,
		Email:   info.Email,
		Name:    info.Name,
		Picture: info.Picture,
	})
	if err != nil {
		h.Audit.GoogleRejected(ctx, r, info.Email, apperr.Message(err))
		respond.Error(w, h.Log, err, zap.String("email", info.Email))
		return
	}

	bearer, err := h.SessionMgr.ForRequest(w, r).Establish(auth.SessionUser{ID: u.ID, Name: u.Name, Email: u.Email})
	if err != nil {
		respond.Error(w, h.Log, err, zap.String("user_id", u.ID))
		return
	}
	h.Log.Info("google sign-in", zap.String("user_id", u.ID), zap.String("client", entry.Client))
	h.Audit.LoginSucceeded(ctx, r, u.ID, u.Email, "google")

	if entry.Client == oauthstate.ClientMobile {
		respond.JSON(w, http.StatusOK, authvm.Outcome{Result: apperr.Success(), Token: bearer, User: u})
		return
	}
	http.Redirect(w, r, urlutil.SafeReturn(entry.ReturnURL, "", "/"), http.StatusSeeOther)
}

type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (h *Handler) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	resp, err := client.Get(h.UserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info: unexpected status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}
	return &info, nil
}

// generateState returns a random, URL-safe state token.
func generateState() (string, error) {
	b := securecookie.GenerateRandomKey(32)
	if b == nil {
		return "", errors.New("random source unavailable")
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
