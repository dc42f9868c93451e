package model

import "time"

// Scope is an authorization capability carried by a token.
type Scope string

const (
	ScopeLogsWrite Scope = "logs:write"
	ScopeLogsRead  Scope = "logs:read"
	ScopeAdmin     Scope = "admin"
)

// User is a principal that can authenticate against the ingestion endpoint.
type User struct {
	Username     string
	PasswordHash string
	Disabled     bool
	Scopes       []Scope
}

// HasScope reports whether the user carries the given scope, or the admin
// scope (which subsumes all others).
func (u User) HasScope(s Scope) bool {
	for _, have := range u.Scopes {
		if have == s || have == ScopeAdmin {
			return true
		}
	}
	return false
}

// TokenClaims is the set of claims carried by an issued access token, beyond
// the registered JWT claims (subject, issued-at, expiry).
type TokenClaims struct {
	Subject   string   `json:"sub"`
	Scopes    []Scope  `json:"scope"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
	ClientIP  string   `json:"cip,omitempty"`
}
