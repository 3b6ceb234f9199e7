package users

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User is a registered account. RefreshToken holds the single refresh token
// currently accepted for the account; it is overwritten on every login and
// cleared on logout, so at most one session is live per account.
type User struct {
	ID           string    `json:"id,omitempty"`
	Username     string    `json:"username,omitempty"`
	PasswordHash string    `json:"-"` // never serialize
	RefreshToken string    `json:"-"` // server-side session state, empty means logged out
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares a plaintext password against a bcrypt hash.
// bcrypt's comparison is constant-time with respect to the hash contents.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
