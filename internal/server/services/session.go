// Package services contains server-side business logic. SessionService
// implements the account session lifecycle: registration, login, access
// token refresh, token validation and logout.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/cryptox"
	"github.com/dmitrijs2005/sessionkeeper/internal/dbx"
	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/auth"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/models"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/validation"
)

const (
	msgInvalidRefreshToken = "Invalid refresh token"
	msgRefreshTokenExpired = "Refresh token expired"
	msgTokenRequired       = "Token is required"
	msgTokenHasExpired     = "Token has expired"
	msgTokenExpired        = "Token expired"
	msgInvalidToken        = "Invalid token"
	msgUserNotFound        = "User not found"
	msgInternal            = "Internal server error"
)

// AccountSummary is the public view of an account.
type AccountSummary struct {
	ID    string
	Email string
}

// AuthResult is returned by Register and Login. RefreshToken must reach
// the client only through the refresh cookie.
type AuthResult struct {
	Account      AccountSummary
	AccessToken  string
	RefreshToken string
}

// ValidateResult describes a verified access token.
type ValidateResult struct {
	Valid     bool
	Account   AccountSummary
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// SessionService coordinates the account store, the refresh token store
// and the token codec. Every error it returns is a *common.Error whose
// kind is one of the common service-level sentinels.
type SessionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	codec       *auth.Codec
	log         logging.Logger
}

func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, codec *auth.Codec, log logging.Logger) *SessionService {
	return &SessionService{
		db:          db,
		repomanager: m,
		codec:       codec,
		log:         log.With("component", "session"),
	}
}

// Register creates an account and opens its first session. The account
// row and the refresh token record are written in one transaction.
func (s *SessionService) Register(ctx context.Context, email, password string) (*AuthResult, error) {
	creds := validation.Credentials{Email: email, Password: password}
	if err := validation.ValidateCredentials(&creds); err != nil {
		return nil, common.NewError(common.ErrorValidation, err.Error())
	}

	exists, err := s.repomanager.Accounts(s.db).ExistsByEmail(ctx, creds.Email)
	if err != nil {
		return nil, s.internal(ctx, "checking email", err)
	}
	if exists {
		return nil, alreadyExists(creds.Email)
	}

	salt := cryptox.NewSalt()
	account := &models.Account{
		ID:           uuid.NewString(),
		Email:        creds.Email,
		PasswordHash: cryptox.HashPassword(salt, []byte(creds.Password)),
		Salt:         salt,
	}

	var res *AuthResult
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.repomanager.Accounts(tx).Create(ctx, account)
		if err != nil {
			return err
		}
		res, err = s.openSession(ctx, tx, created)
		return err
	})
	if err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, alreadyExists(creds.Email)
		}
		return nil, s.internal(ctx, "registering account", err)
	}

	s.log.Info(ctx, "account registered", "account_id", account.ID)
	return res, nil
}

// Login checks the password and opens a new session. Existing sessions of
// the account stay valid. An unknown email is reported as NotFound; every
// other failure is an opaque Unauthorized.
func (s *SessionService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if email == "" || password == "" {
		return nil, common.NewError(common.ErrorValidation, "Email and password are required")
	}

	account, err := s.repomanager.Accounts(s.db).FindByEmail(ctx, validation.NormalizeEmail(email), true)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewError(common.ErrorNotFound, fmt.Sprintf(`User with email "%s" not found.`, email))
		}
		s.log.Error(ctx, "login lookup failed", "error", err)
		return nil, common.NewError(common.ErrorUnauthorized, "")
	}

	if !cryptox.CheckPassword(account.PasswordHash, account.Salt, []byte(password)) {
		s.log.Warn(ctx, "password mismatch", "account_id", account.ID)
		return nil, common.NewError(common.ErrorUnauthorized, "")
	}

	res, err := s.openSession(ctx, s.db, account)
	if err != nil {
		s.log.Error(ctx, "opening session failed", "account_id", account.ID, "error", err)
		return nil, common.NewError(common.ErrorUnauthorized, "")
	}

	account.SessionMarker = cryptox.SessionMarker(cryptox.NewSalt(), account.ID)
	if err := s.repomanager.Accounts(s.db).Save(ctx, account); err != nil {
		s.log.Error(ctx, "saving session marker failed", "account_id", account.ID, "error", err)
		return nil, common.NewError(common.ErrorUnauthorized, "")
	}

	s.log.Info(ctx, "account logged in", "account_id", account.ID)
	return res, nil
}

// Refresh issues a new access token for a live refresh token. Presence in
// the store is checked before the signature. The refresh token itself is
// not rotated.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", common.NewError(common.ErrorAuthentication, msgInvalidRefreshToken)
	}

	ok, err := s.repomanager.RefreshTokens(s.db).Exists(ctx, refreshToken)
	if err != nil {
		return "", s.internal(ctx, "checking refresh token", err)
	}
	if !ok {
		return "", common.NewError(common.ErrorAuthentication, msgInvalidRefreshToken)
	}

	res := s.codec.Verify(refreshToken, auth.Refresh)
	switch res.Status {
	case auth.StatusExpired:
		return "", common.NewError(common.ErrorAuthentication, msgRefreshTokenExpired)
	case auth.StatusMalformed:
		return "", common.NewError(common.ErrorAuthentication, msgInvalidRefreshToken)
	}

	access, err := s.codec.IssueAccessToken(res.Claims.UserID, res.Claims.Email)
	if err != nil {
		return "", s.internal(ctx, "issuing access token", err)
	}
	return access, nil
}

// Validate verifies an access token and confirms its account still exists.
func (s *SessionService) Validate(ctx context.Context, accessToken string) (*ValidateResult, error) {
	if accessToken == "" {
		return nil, common.NewError(common.ErrorValidation, msgTokenRequired)
	}

	res := s.codec.Verify(accessToken, auth.Access)
	switch res.Status {
	case auth.StatusExpired:
		return nil, common.NewError(common.ErrorAuthentication, msgTokenHasExpired)
	case auth.StatusMalformed:
		return nil, common.NewError(common.ErrorAuthentication, msgInvalidToken)
	}

	if _, err := s.repomanager.Accounts(s.db).FindByEmail(ctx, res.Claims.Email, false); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewError(common.ErrorAuthentication, msgUserNotFound)
		}
		return nil, s.internal(ctx, "loading account", err)
	}

	out := &ValidateResult{
		Valid:   true,
		Account: AccountSummary{ID: res.Claims.UserID, Email: res.Claims.Email},
	}
	if res.Claims.IssuedAt != nil {
		out.IssuedAt = res.Claims.IssuedAt.Time
	}
	if res.Claims.ExpiresAt != nil {
		out.ExpiresAt = res.Claims.ExpiresAt.Time
	}
	return out, nil
}

// Logout revokes refreshToken if one is given. It fails only when the
// store does.
func (s *SessionService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.repomanager.RefreshTokens(s.db).Delete(ctx, refreshToken); err != nil {
		return s.internal(ctx, "deleting refresh token", err)
	}
	s.log.Info(ctx, "refresh token revoked")
	return nil
}

// Authenticate verifies an access token without touching any store.
func (s *SessionService) Authenticate(ctx context.Context, accessToken string) (*AccountSummary, error) {
	res := s.codec.Verify(accessToken, auth.Access)
	switch res.Status {
	case auth.StatusOK:
		return &AccountSummary{ID: res.Claims.UserID, Email: res.Claims.Email}, nil
	case auth.StatusExpired:
		return nil, common.NewError(common.ErrorAuthentication, msgTokenExpired)
	default:
		return nil, common.NewError(common.ErrorAuthentication, msgInvalidToken)
	}
}

// --- helpers below ---

// openSession issues a token pair for account and records the refresh
// token through db.
func (s *SessionService) openSession(ctx context.Context, db dbx.DBTX, account *models.Account) (*AuthResult, error) {
	access, err := s.codec.IssueAccessToken(account.ID, account.Email)
	if err != nil {
		return nil, err
	}
	refresh, expiresAt, err := s.codec.IssueRefreshToken(account.ID, account.Email)
	if err != nil {
		return nil, err
	}
	if err := s.repomanager.RefreshTokens(db).Create(ctx, refresh, account.ID, expiresAt); err != nil {
		return nil, err
	}
	s.log.Debug(ctx, "refresh token stored", "account_id", account.ID)

	return &AuthResult{
		Account:      AccountSummary{ID: account.ID, Email: account.Email},
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

func (s *SessionService) internal(ctx context.Context, op string, err error) error {
	s.log.Error(ctx, op+" failed", "error", err)
	return common.NewError(common.ErrorInternal, msgInternal)
}

func alreadyExists(email string) error {
	return common.NewError(common.ErrorAlreadyExists, fmt.Sprintf("User with email %s already exists", email))
}
