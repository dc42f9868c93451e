// Package auth implements the ingestion endpoint's authentication gate:
// token issuance and verification, password hashing, and failed-login
// lockout tracking.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sentrywatch/siemcore/internal/model"
)

// claims is the JWT claim set for an issued access token: the registered
// claims plus scopes and the client IP the token was bound to, if any.
type claims struct {
	Scopes   []model.Scope `json:"scope"`
	ClientIP string        `json:"cip,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 access tokens.
type TokenManager struct {
	secret   []byte
	lifetime time.Duration
}

// NewTokenManager builds a TokenManager. secret must be non-empty; callers
// resolve it via config.ResolveJWTSecret before construction.
func NewTokenManager(secret []byte, lifetime time.Duration) (*TokenManager, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("auth: token signing secret is empty")
	}
	return &TokenManager{secret: secret, lifetime: lifetime}, nil
}

// Issue signs a new access token for subject, carrying the given scopes.
// When clientIP is non-empty the token is bound to it: Verify will reject
// the token if presented from a different address.
func (m *TokenManager) Issue(subject string, scopes []model.Scope, clientIP string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(m.lifetime)

	c := &claims{
		Scopes:   scopes,
		ClientIP: clientIP,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify parses and validates tokenString, rejecting it if the signature,
// expiry, or (when bound) client IP do not match. requestIP is only
// enforced against tokens that were issued bound to an address.
func (m *TokenManager) Verify(tokenString, requestIP string) (model.TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return model.TokenClaims{}, fmt.Errorf("auth: parse token: %w", err)
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return model.TokenClaims{}, fmt.Errorf("auth: invalid token claims")
	}

	if c.ClientIP != "" && requestIP != "" && c.ClientIP != requestIP {
		return model.TokenClaims{}, fmt.Errorf("auth: token bound to a different client address")
	}

	tc := model.TokenClaims{
		Subject:  c.Subject,
		Scopes:   c.Scopes,
		ClientIP: c.ClientIP,
	}
	if c.IssuedAt != nil {
		tc.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		tc.ExpiresAt = c.ExpiresAt.Time
	}
	return tc, nil
}
