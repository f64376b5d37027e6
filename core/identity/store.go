package identity

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var (
	// errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionInvalid  = errors.New("session rejected by the school API")
	ErrRoleMismatch    = errors.New("role not allowed in this area")
)

// SessionStore persists sessions between requests.
// GetSession must never return an expired session; implementations drop
// expired records on read.
type SessionStore interface {
	GetSession(ctx context.Context, id string) (Session, error)
	SaveSession(ctx context.Context, sess Session) error
	DeleteSession(ctx context.Context, id string) error
	QueryAllSessions(ctx context.Context) ([]Session, error)
}

// SessionID derives the store key for an access token.
// Keyed HMAC so a copy of the store alone leaks no usable tokens.
func SessionID(secret, accessToken string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(accessToken))
	return hex.EncodeToString(mac.Sum(nil))
}
