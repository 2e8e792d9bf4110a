// Package identity is the account service: email/password sign-up and
// sign-in, Google sign-in, and changes to the credentials behind a profile.
// Each account is a credential document plus a users document under the
// same id.
package identity

import (
	"context"
	"errors"
	"strings"

	credentialstore "github.com/civicapp/civichub/internal/app/store/credentials"
	"github.com/civicapp/civichub/internal/app/system/apperr"
	"github.com/civicapp/civichub/internal/app/system/inputval"
	"github.com/civicapp/civichub/internal/app/system/normalize"
	"github.com/civicapp/civichub/internal/app/system/txn"
	"github.com/civicapp/civichub/internal/domain/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted.
const MinPasswordLength = 6

// BcryptCost is the work factor for stored password hashes.
const BcryptCost = 12

var (
	// ErrInvalidCredentials is returned by SignIn for an unknown email or a wrong password.
	ErrInvalidCredentials = apperr.New(apperr.KindPermission, "invalid email or password")

	errNameRequired  = apperr.Validation("name is required")
	errEmailInvalid  = apperr.Validation("a valid email is required")
	errPasswordShort = apperr.Validation("password must be at least 6 characters")
)

// Credentials is the credential store.
type Credentials interface {
	Create(ctx context.Context, cred models.Credential) (models.Credential, error)
	GetByID(ctx context.Context, id string) (*models.Credential, error)
	GetByEmail(ctx context.Context, email string) (*models.Credential, error)
	GetByProvider(ctx context.Context, provider, providerID string) (*models.Credential, error)
	Update(ctx context.Context, id string, upd credentialstore.Update) error
	Delete(ctx context.Context, id string) error
}

// Profiles is the users store, as far as the account service needs it.
type Profiles interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, u models.User) (models.User, error)
	Delete(ctx context.Context, id string) error
}

// TxRunner runs fn, inside a transaction when it can.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	creds    Credentials
	profiles Profiles
	tx       TxRunner
	cost     int
	log      *zap.Logger
}

// New returns a Service. A nil logger is replaced by a no-op one.
func New(creds Credentials, profiles Profiles, tx TxRunner, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{creds: creds, profiles: profiles, tx: tx, cost: BcryptCost, log: logger}
}

// SetBcryptCost overrides the hash cost; tests use bcrypt.MinCost.
func (s *Service) SetBcryptCost(cost int) { s.cost = cost }

// ValidateSignUp checks sign-up input without touching storage.
func ValidateSignUp(name, email, password string) error {
	if normalize.Name(name) == "" {
		return errNameRequired
	}
	if err := ValidateEmail(email); err != nil {
		return err
	}
	return ValidatePassword(password)
}

// ValidateEmail checks that email looks like an address.
func ValidateEmail(email string) error {
	e := normalize.Email(email)
	if e == "" || !strings.Contains(e, "@") || !inputval.IsValidEmail(e) {
		return errEmailInvalid
	}
	return nil
}

// ValidatePassword enforces the minimum length.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return errPasswordShort
	}
	return nil
}

// SignUp creates the credential and the profile for a new account.
func (s *Service) SignUp(ctx context.Context, name, email, password string) (*models.User, error) {
	if err := ValidateSignUp(name, email, password); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "hash password")
	}

	cred := models.Credential{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  name,
		Provider:     models.ProviderPassword,
	}
	return s.createAccount(ctx, cred, models.User{Name: name, Email: email})
}

// SignIn checks email and password and returns the account's profile.
func (s *Service) SignIn(ctx context.Context, email, password string) (*models.User, error) {
	if normalize.Email(email) == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	cred, err := s.creds.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, credentialstore.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if cred.PasswordHash == "" {
		// Google-only account.
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.profileFor(ctx, cred)
}

// GoogleProfile is what the Google userinfo endpoint tells us.
type GoogleProfile struct {
	Sub     string
	Email   string
	Name    string
	Picture string
}

// GoogleSignIn finds or creates the account for a Google identity. An
// existing password account with the same email is linked rather than
// duplicated.
func (s *Service) GoogleSignIn(ctx context.Context, gp GoogleProfile) (*models.User, error) {
	if gp.Sub == "" {
		return nil, apperr.Validation("google account id is missing")
	}
	if err := ValidateEmail(gp.Email); err != nil {
		return nil, err
	}

	cred, err := s.creds.GetByProvider(ctx, models.ProviderGoogle, gp.Sub)
	if err == nil {
		return s.profileFor(ctx, cred)
	}
	if !errors.Is(err, credentialstore.ErrNotFound) {
		return nil, err
	}

	cred, err = s.creds.GetByEmail(ctx, gp.Email)
	switch {
	case err == nil:
		if cred.ProviderID != gp.Sub {
			sub := gp.Sub
			if err := s.creds.Update(ctx, cred.ID, credentialstore.Update{ProviderID: &sub}); err != nil {
				return nil, err
			}
			s.log.Info("linked google identity to existing account", zap.String("user_id", cred.ID))
		}
		return s.profileFor(ctx, cred)
	case !errors.Is(err, credentialstore.ErrNotFound):
		return nil, err
	}

	name := gp.Name
	if normalize.Name(name) == "" {
		name = strings.SplitN(gp.Email, "@", 2)[0]
	}
	newCred := models.Credential{
		ID:          uuid.NewString(),
		Email:       gp.Email,
		DisplayName: name,
		Provider:    models.ProviderGoogle,
		ProviderID:  gp.Sub,
	}
	return s.createAccount(ctx, newCred, models.User{Name: name, Email: gp.Email, ProfileImageURL: gp.Picture})
}

// CredentialUpdate holds identity-side changes. Blank fields are ignored.
type CredentialUpdate struct {
	Name     string
	Email    string
	Password string
}

// UpdateCredentials applies the non-blank fields to the account's credential.
func (s *Service) UpdateCredentials(ctx context.Context, userID string, upd CredentialUpdate) error {
	var cu credentialstore.Update
	if strings.TrimSpace(upd.Name) != "" {
		name := upd.Name
		cu.DisplayName = &name
	}
	if strings.TrimSpace(upd.Email) != "" {
		if err := ValidateEmail(upd.Email); err != nil {
			return err
		}
		email := upd.Email
		cu.Email = &email
	}
	if upd.Password != "" {
		if err := ValidatePassword(upd.Password); err != nil {
			return err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(upd.Password), s.cost)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, err, "hash password")
		}
		h := string(hash)
		cu.PasswordHash = &h
	}
	if cu.DisplayName == nil && cu.Email == nil && cu.PasswordHash == nil {
		return nil
	}
	return s.creds.Update(ctx, userID, cu)
}

// DeleteAccount removes the credential and the profile.
func (s *Service) DeleteAccount(ctx context.Context, userID string) error {
	return s.tx.Run(ctx, func(ctx context.Context) error {
		if err := s.profiles.Delete(ctx, userID); err != nil && apperr.KindOf(err) != apperr.KindNotFound {
			return err
		}
		return s.creds.Delete(ctx, userID)
	})
}

// createAccount inserts the credential and then the profile. Without a
// transaction a failed profile insert removes the credential again.
func (s *Service) createAccount(ctx context.Context, cred models.Credential, profile models.User) (*models.User, error) {
	var created models.User
	err := s.tx.Run(ctx, func(ctx context.Context) error {
		c, err := s.creds.Create(ctx, cred)
		if err != nil {
			return err
		}
		profile.ID = c.ID
		created, err = s.profiles.Create(ctx, profile)
		if err != nil && !txn.InTransaction(ctx) {
			if delErr := s.creds.Delete(ctx, c.ID); delErr != nil {
				s.log.Error("orphaned credential after failed profile insert",
					zap.String("user_id", c.ID), zap.Error(delErr))
			}
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// profileFor loads the profile behind cred, recreating it if it went missing.
func (s *Service) profileFor(ctx context.Context, cred *models.Credential) (*models.User, error) {
	u, err := s.profiles.GetByID(ctx, cred.ID)
	if err == nil {
		return u, nil
	}
	if apperr.KindOf(err) != apperr.KindNotFound {
		return nil, err
	}
	s.log.Warn("profile missing for credential; recreating", zap.String("user_id", cred.ID))
	name := cred.DisplayName
	if name == "" {
		name = strings.SplitN(cred.Email, "@", 2)[0]
	}
	created, err := s.profiles.Create(ctx, models.User{ID: cred.ID, Name: name, Email: cred.Email})
	if err != nil {
		return nil, err
	}
	return &created, nil
}
