package auth

import (
	"testing"
	"time"

	"github.com/sentrywatch/siemcore/internal/model"
)

func TestNewTokenManager(t *testing.T) {
	tests := []struct {
		name    string
		secret  []byte
		wantErr bool
	}{
		{name: "valid secret", secret: []byte("a-sufficiently-long-signing-secret"), wantErr: false},
		{name: "empty secret", secret: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewTokenManager(tt.secret, time.Hour)
			if tt.wantErr {
				if err == nil {
					t.Fatal("NewTokenManager() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewTokenManager() unexpected error: %v", err)
			}
			if m == nil {
				t.Fatal("NewTokenManager() returned nil manager")
			}
		})
	}
}

func TestIssueAndVerifyToken(t *testing.T) {
	m, err := NewTokenManager([]byte("a-sufficiently-long-signing-secret"), time.Hour)
	if err != nil {
		t.Fatalf("NewTokenManager() error: %v", err)
	}

	token, expiresAt, err := m.Issue("alice", []model.Scope{model.ScopeLogsWrite}, "")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatal("Issue() returned an already-expired token")
	}

	claims, err := m.Verify(token, "")
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if claims.Subject != "alice" {
		t.Errorf("Verify() subject = %q, want alice", claims.Subject)
	}
	if len(claims.Scopes) != 1 || claims.Scopes[0] != model.ScopeLogsWrite {
		t.Errorf("Verify() scopes = %v, want [logs:write]", claims.Scopes)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	m, err := NewTokenManager([]byte("a-sufficiently-long-signing-secret"), -time.Minute)
	if err != nil {
		t.Fatalf("NewTokenManager() error: %v", err)
	}

	token, _, err := m.Issue("alice", nil, "")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	if _, err := m.Verify(token, ""); err == nil {
		t.Fatal("Verify() expected error for expired token, got nil")
	}
}

func TestVerifyRejectsIPMismatch(t *testing.T) {
	m, err := NewTokenManager([]byte("a-sufficiently-long-signing-secret"), time.Hour)
	if err != nil {
		t.Fatalf("NewTokenManager() error: %v", err)
	}

	token, _, err := m.Issue("alice", nil, "10.0.0.1")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	if _, err := m.Verify(token, "10.0.0.2"); err == nil {
		t.Fatal("Verify() expected error for IP mismatch, got nil")
	}
	if _, err := m.Verify(token, "10.0.0.1"); err != nil {
		t.Errorf("Verify() unexpected error for matching IP: %v", err)
	}
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	m, err := NewTokenManager([]byte("a-sufficiently-long-signing-secret"), time.Hour)
	if err != nil {
		t.Fatalf("NewTokenManager() error: %v", err)
	}
	other, err := NewTokenManager([]byte("a-different-signing-secret-here"), time.Hour)
	if err != nil {
		t.Fatalf("NewTokenManager() error: %v", err)
	}

	token, _, err := m.Issue("alice", nil, "")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	if _, err := other.Verify(token, ""); err == nil {
		t.Fatal("Verify() expected error for token signed with a different secret, got nil")
	}
}
