// Package auth implements the session lifecycle: registration, credential
// login, access-token refresh, and logout. Tokens are minted and checked by
// token.Manager; this service owns the stateful half of refresh validation,
// comparing a presented refresh token against the single value stored on the
// account.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/jrsteele09/go-todo-server/token"
	"github.com/jrsteele09/go-todo-server/users"
)

// dummyHash is compared against when the username is unknown, so a login
// attempt costs one bcrypt comparison whether or not the account exists.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// TokenPair bundles the two tokens returned by a successful login.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// SessionService orchestrates the account session state machine.
type SessionService struct {
	users  users.Repo
	tokens *token.Manager
}

func NewSessionService(userRepo users.Repo, tokens *token.Manager) (*SessionService, error) {
	if userRepo == nil {
		return nil, errors.New("[NewSessionService] user repo is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewSessionService] token manager is required")
	}
	return &SessionService{users: userRepo, tokens: tokens}, nil
}

// Register creates a new account. No tokens are issued; registration and
// login are separate steps.
func (s *SessionService) Register(ctx context.Context, username, password string) (*users.User, error) {
	passwordHash, err := users.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("[Register] hash password: %w", err)
	}

	user := &users.User{Username: username, PasswordHash: passwordHash}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, users.ErrAlreadyExists) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("[Register] create user: %w", err)
	}
	return user, nil
}

// Login verifies the credentials and, on success, mints a fresh token pair
// and overwrites the stored refresh token. The overwrite invalidates any
// refresh token issued by a previous login.
func (s *SessionService) Login(ctx context.Context, username, password string) (*users.User, *TokenPair, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			// Burn a comparison anyway so the miss is not observable by timing.
			users.CheckPasswordHash(password, dummyHash)
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("[Login] get user: %w", err)
	}

	if !users.CheckPasswordHash(password, user.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}

	access, err := s.tokens.IssueAccess(user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("[Login] issue access token: %w", err)
	}
	refresh, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("[Login] issue refresh token: %w", err)
	}

	if err := s.users.SetRefreshToken(ctx, user.ID, refresh); err != nil {
		return nil, nil, fmt.Errorf("[Login] store refresh token: %w", err)
	}

	return user, &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges a valid refresh token for a new access token. The refresh
// token itself is not rotated; it stays usable until it expires or is
// superseded by a new login or logout. A token that verifies but does not
// byte-match the stored value is revoked, which also catches replays of
// tokens from earlier logins.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", ErrMissingToken
	}

	userID, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return "", ErrInvalidOrExpired
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return "", ErrRevoked
		}
		return "", fmt.Errorf("[Refresh] get user: %w", err)
	}

	if user.RefreshToken == "" ||
		subtle.ConstantTimeCompare([]byte(user.RefreshToken), []byte(refreshToken)) != 1 {
		return "", ErrRevoked
	}

	access, err := s.tokens.IssueAccess(user.ID)
	if err != nil {
		return "", fmt.Errorf("[Refresh] issue access token: %w", err)
	}
	return access, nil
}

// Logout clears the stored refresh token. It is idempotent: logging out an
// already logged-out or unknown account is not an error.
func (s *SessionService) Logout(ctx context.Context, userID string) error {
	if err := s.users.SetRefreshToken(ctx, userID, ""); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("[Logout] clear refresh token: %w", err)
	}
	return nil
}
