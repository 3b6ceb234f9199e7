package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// Manager mints and verifies the two token kinds. Access and refresh tokens
// are signed with distinct secrets so one can never pass for the other.
// The manager holds no storage; verification here is signature + expiry only.
type Manager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	nowFunc       func() time.Time
}

type ManagerOption func(*Manager)

// WithNowFunc overrides the clock used for issuing and validating tokens
// (primarily for testing).
func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func New(accessSecret, refreshSecret []byte, accessTTL, refreshTTL time.Duration, options ...ManagerOption) (*Manager, error) {
	if len(accessSecret) == 0 {
		return nil, errors.New("[token.New] access secret is required")
	}
	if len(refreshSecret) == 0 {
		return nil, errors.New("[token.New] refresh secret is required")
	}
	if string(accessSecret) == string(refreshSecret) {
		return nil, errors.New("[token.New] access and refresh secrets must differ")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("[token.New] token TTLs must be positive")
	}

	m := &Manager{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		nowFunc:       time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// IssueAccess mints a short-lived access token carrying the user ID as subject.
func (m *Manager) IssueAccess(userID string) (string, error) {
	return m.sign(userID, m.accessSecret, m.accessTTL)
}

// IssueRefresh mints a long-lived refresh token carrying the user ID as subject.
func (m *Manager) IssueRefresh(userID string) (string, error) {
	return m.sign(userID, m.refreshSecret, m.refreshTTL)
}

// VerifyAccess checks signature and expiry and returns the subject user ID.
func (m *Manager) VerifyAccess(tokenStr string) (string, error) {
	return m.verify(tokenStr, m.accessSecret)
}

// VerifyRefresh checks signature and expiry and returns the subject user ID.
// Whether the token is still the one stored for the account is the session
// service's concern, not the manager's.
func (m *Manager) VerifyRefresh(tokenStr string) (string, error) {
	return m.verify(tokenStr, m.refreshSecret)
}

func (m *Manager) sign(userID string, secret []byte, ttl time.Duration) (string, error) {
	now := m.nowFunc()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (m *Manager) verify(tokenStr string, secret []byte) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithTimeFunc(m.nowFunc), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}
	if !token.Valid || claims.Subject == "" {
		return "", ErrTokenInvalid
	}
	return claims.Subject, nil
}
