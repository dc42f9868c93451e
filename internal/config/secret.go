package config

import (
	"crypto/rand"

	"github.com/sentrywatch/siemcore/internal/logging"
)

// ResolveJWTSecret returns the configured signing key, or generates an
// ephemeral per-process one with a warning when none is configured. A
// generated key does not survive a restart, so any deployment beyond local
// development must set security.jwt_secret_key / JWT_SECRET_KEY.
func ResolveJWTSecret(cfg *SecurityConfig) ([]byte, error) {
	if cfg.JWTSecretKey != "" {
		return []byte(cfg.JWTSecretKey), nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}

	logging.Warn().Msg("no JWT_SECRET_KEY configured; generated an ephemeral signing key — tokens will not survive a restart")
	return buf, nil
}
