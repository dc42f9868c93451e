package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/sentrywatch/siemcore/internal/apierror"
	"github.com/sentrywatch/siemcore/internal/model"
)

// UserStore resolves principals by username. The only implementation today
// is a single-admin store seeded from configuration; it is an interface so
// a multi-user backing store can be dropped in without touching Gatekeeper.
type UserStore interface {
	Get(username string) (model.User, bool)
}

// staticUserStore holds a fixed set of users configured at startup.
type staticUserStore struct {
	users map[string]model.User
}

// NewStaticUserStore builds a UserStore from a fixed user list.
func NewStaticUserStore(users ...model.User) UserStore {
	m := make(map[string]model.User, len(users))
	for _, u := range users {
		m[u.Username] = u
	}
	return &staticUserStore{users: m}
}

func (s *staticUserStore) Get(username string) (model.User, bool) {
	u, ok := s.users[username]
	return u, ok
}

// Gatekeeper is the component B façade: issue_token and authorize.
type Gatekeeper struct {
	tokens  *TokenManager
	lockout *LockoutManager
	users   UserStore
	bindIP  bool
}

// Config configures a Gatekeeper.
type Config struct {
	TokenSecret            []byte
	AccessTokenLifetime    time.Duration
	MaxFailedLoginAttempts int
	LockoutDuration        time.Duration
	BindClientIP           bool
}

// New builds a Gatekeeper over the given user store.
func New(cfg Config, users UserStore) (*Gatekeeper, error) {
	tokens, err := NewTokenManager(cfg.TokenSecret, cfg.AccessTokenLifetime)
	if err != nil {
		return nil, err
	}
	lockout := NewLockoutManager(LockoutConfig{
		MaxAttempts:     cfg.MaxFailedLoginAttempts,
		LockoutDuration: cfg.LockoutDuration,
	})
	return &Gatekeeper{tokens: tokens, lockout: lockout, users: users, bindIP: cfg.BindClientIP}, nil
}

// IssueToken verifies username/password and, on success, returns a signed
// access token. It fails with apierror.KindLoginLocked if the account is
// currently locked, or apierror.KindUnauthorized on bad credentials.
func (g *Gatekeeper) IssueToken(ctx context.Context, username, password, clientIP string) (string, time.Time, error) {
	if locked, remaining := g.lockout.Locked(username); locked {
		return "", time.Time{}, apierror.New(apierror.KindLoginLocked,
			fmt.Sprintf("account locked, retry in %s", remaining.Round(time.Second)))
	}

	user, ok := g.users.Get(username)
	if !ok || user.Disabled || !CheckPassword(user.PasswordHash, password) {
		if locked, remaining := g.lockout.RecordFailure(username); locked {
			return "", time.Time{}, apierror.New(apierror.KindLoginLocked,
				fmt.Sprintf("account locked, retry in %s", remaining.Round(time.Second)))
		}
		return "", time.Time{}, apierror.Unauthorized("invalid username or password")
	}

	g.lockout.RecordSuccess(username)

	bindAddr := ""
	if g.bindIP {
		bindAddr = clientIP
	}

	token, expiresAt, err := g.tokens.Issue(username, user.Scopes, bindAddr)
	if err != nil {
		return "", time.Time{}, apierror.Internal(err.Error())
	}
	return token, expiresAt, nil
}

// Authorize verifies bearer and checks that the resulting principal carries
// requiredScope. It fails with apierror.KindUnauthorized on a bad/expired
// token or a disabled/missing user, and apierror.KindForbidden when the
// scope is absent.
func (g *Gatekeeper) Authorize(ctx context.Context, bearer, clientIP string, requiredScope model.Scope) (model.User, error) {
	claims, err := g.tokens.Verify(bearer, clientIP)
	if err != nil {
		return model.User{}, apierror.Unauthorized(err.Error())
	}

	user, ok := g.users.Get(claims.Subject)
	if !ok || user.Disabled {
		return model.User{}, apierror.Unauthorized("unknown or disabled user")
	}

	if !user.HasScope(requiredScope) {
		return model.User{}, apierror.Forbidden(fmt.Sprintf("missing required scope %q", requiredScope))
	}

	return user, nil
}

// SweepLockouts prunes idle lockout entries. Nothing in this module calls
// it on a schedule; idle entries stay in memory until it is called.
func (g *Gatekeeper) SweepLockouts() int {
	return g.lockout.Sweep()
}
