package users

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrAlreadyExists = errors.New("username already taken")
)

// Repo owns the account records. Implementations must serialize concurrent
// writes to the same account's refresh token field; last writer wins.
type Repo interface {
	// Create stores a new user, assigning an ID if the user has none.
	// Returns ErrAlreadyExists when the username is taken.
	Create(ctx context.Context, user *User) error
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	// SetRefreshToken overwrites the stored refresh token for the account.
	// An empty token clears it. Returns ErrNotFound for unknown accounts.
	SetRefreshToken(ctx context.Context, id, refreshToken string) error
}
