package auth

import (
	"context"
	"testing"
	"time"

	"github.com/sentrywatch/siemcore/internal/apierror"
	"github.com/sentrywatch/siemcore/internal/model"
)

func newTestGatekeeper(t *testing.T) (*Gatekeeper, string) {
	t.Helper()
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword() error: %v", err)
	}
	users := NewStaticUserStore(model.User{
		Username:     "alice",
		PasswordHash: hash,
		Scopes:       []model.Scope{model.ScopeLogsWrite},
	})
	gk, err := New(Config{
		TokenSecret:            []byte("a-sufficiently-long-signing-secret"),
		AccessTokenLifetime:    time.Hour,
		MaxFailedLoginAttempts: 2,
		LockoutDuration:        time.Minute,
	}, users)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return gk, hash
}

func TestGatekeeperIssueTokenSuccess(t *testing.T) {
	gk, _ := newTestGatekeeper(t)

	token, _, err := gk.IssueToken(context.Background(), "alice", "correct horse battery staple", "203.0.113.1")
	if err != nil {
		t.Fatalf("IssueToken() error: %v", err)
	}
	if token == "" {
		t.Fatal("IssueToken() returned empty token")
	}
}

func TestGatekeeperIssueTokenBadPassword(t *testing.T) {
	gk, _ := newTestGatekeeper(t)

	_, _, err := gk.IssueToken(context.Background(), "alice", "wrong password", "203.0.113.1")
	if err == nil {
		t.Fatal("IssueToken() expected error for bad password")
	}
	apiErr, ok := err.(*apierror.Error)
	if !ok || apiErr.Kind != apierror.KindUnauthorized {
		t.Errorf("IssueToken() error kind = %v, want unauthorized", err)
	}
}

func TestGatekeeperLockoutAfterRepeatedFailures(t *testing.T) {
	gk, _ := newTestGatekeeper(t)

	gk.IssueToken(context.Background(), "alice", "wrong", "203.0.113.1")
	_, _, err := gk.IssueToken(context.Background(), "alice", "wrong", "203.0.113.1")
	if err == nil {
		t.Fatal("IssueToken() expected lockout error")
	}
	apiErr, ok := err.(*apierror.Error)
	if !ok || apiErr.Kind != apierror.KindLoginLocked {
		t.Errorf("IssueToken() error kind = %v, want login_locked", err)
	}

	_, _, err = gk.IssueToken(context.Background(), "alice", "correct horse battery staple", "203.0.113.1")
	if err == nil {
		t.Fatal("IssueToken() expected lockout to also block correct password")
	}
}

func TestGatekeeperAuthorizeScopeEnforced(t *testing.T) {
	gk, _ := newTestGatekeeper(t)

	token, _, err := gk.IssueToken(context.Background(), "alice", "correct horse battery staple", "")
	if err != nil {
		t.Fatalf("IssueToken() error: %v", err)
	}

	if _, err := gk.Authorize(context.Background(), token, "", model.ScopeLogsWrite); err != nil {
		t.Errorf("Authorize() unexpected error for held scope: %v", err)
	}

	_, err = gk.Authorize(context.Background(), token, "", model.ScopeAdmin)
	if err == nil {
		t.Fatal("Authorize() expected forbidden error for missing scope")
	}
	apiErr, ok := err.(*apierror.Error)
	if !ok || apiErr.Kind != apierror.KindForbidden {
		t.Errorf("Authorize() error kind = %v, want forbidden", err)
	}
}

func TestGatekeeperAuthorizeUnknownUser(t *testing.T) {
	gk, _ := newTestGatekeeper(t)

	other, err := NewTokenManager([]byte("a-sufficiently-long-signing-secret"), time.Hour)
	if err != nil {
		t.Fatalf("NewTokenManager() error: %v", err)
	}
	token, _, err := other.Issue("mallory", []model.Scope{model.ScopeAdmin}, "")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	_, err = gk.Authorize(context.Background(), token, "", model.ScopeAdmin)
	if err == nil {
		t.Fatal("Authorize() expected error for unknown user")
	}
}
