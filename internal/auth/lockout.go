package auth

import (
	"sync"
	"time"

	"github.com/sentrywatch/siemcore/internal/logging"
)

// LockoutConfig is the single, authoritative definition of the failed-login
// lockout policy: MaxAttempts failed attempts lock the subject for
// LockoutDuration. Failed attempts accumulate until a lockout or a
// successful login resets them; they do not expire with time. There is no
// separate "dev" and "prod" lockout rule; every caller shares this one.
type LockoutConfig struct {
	MaxAttempts     int
	LockoutDuration time.Duration
}

type lockoutEntry struct {
	failedAttempts int
	lockedUntil    time.Time
}

func (e *lockoutEntry) locked() bool {
	return time.Now().Before(e.lockedUntil)
}

// LockoutManager tracks failed login attempts per username and locks out a
// username once it crosses MaxAttempts, independent of client IP: the
// subject identity is the username, matching the ingestion endpoint's
// single username/password token grant.
type LockoutManager struct {
	cfg     LockoutConfig
	mu      sync.Mutex
	entries map[string]*lockoutEntry
}

// NewLockoutManager builds a LockoutManager from cfg.
func NewLockoutManager(cfg LockoutConfig) *LockoutManager {
	return &LockoutManager{
		cfg:     cfg,
		entries: make(map[string]*lockoutEntry),
	}
}

// Locked reports whether username is currently locked out, and for how
// much longer.
func (m *LockoutManager) Locked(username string) (bool, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[username]
	if !ok || !entry.locked() {
		return false, 0
	}
	return true, time.Until(entry.lockedUntil)
}

// RecordFailure records a failed login attempt for username and returns
// whether this attempt pushed the account into lockout.
func (m *LockoutManager) RecordFailure(username string) (locked bool, remaining time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[username]
	if !ok {
		entry = &lockoutEntry{}
		m.entries[username] = entry
	}

	if entry.locked() {
		return true, time.Until(entry.lockedUntil)
	}

	entry.failedAttempts++
	if entry.failedAttempts < m.cfg.MaxAttempts {
		return false, 0
	}

	entry.lockedUntil = time.Now().Add(m.cfg.LockoutDuration)
	entry.failedAttempts = 0
	logging.Warn().Str("username", username).Dur("duration", m.cfg.LockoutDuration).Msg("account locked after repeated failed logins")
	return true, m.cfg.LockoutDuration
}

// RecordSuccess clears any failed-attempt count for username.
func (m *LockoutManager) RecordSuccess(username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.entries[username]; ok {
		entry.failedAttempts = 0
	}
}

// Sweep removes entries that are neither locked nor mid-attempt, bounding
// memory growth. It returns the number of entries removed.
func (m *LockoutManager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for username, entry := range m.entries {
		if !entry.locked() && entry.failedAttempts == 0 {
			delete(m.entries, username)
			removed++
		}
	}
	return removed
}
