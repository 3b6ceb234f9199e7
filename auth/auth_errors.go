package auth

import "errors"

var (
	// ErrAlreadyExists is returned by Register when the username is taken.
	ErrAlreadyExists = errors.New("username already exists")
	// ErrInvalidCredentials covers both an unknown username and a wrong
	// password so the two cases are indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrMissingToken is returned by Refresh when no token was presented.
	ErrMissingToken = errors.New("refresh token required")
	// ErrInvalidOrExpired is returned by Refresh when the token fails the
	// cryptographic or expiry check.
	ErrInvalidOrExpired = errors.New("invalid or expired refresh token")
	// ErrRevoked is returned by Refresh when the token verifies but no longer
	// matches server state: logged out, or superseded by a newer login.
	ErrRevoked = errors.New("refresh token revoked")
)
