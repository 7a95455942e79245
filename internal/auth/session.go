// ABOUTME: Locally issued session tokens backing the reserved sentinel bearer values
// ABOUTME: HS256-signed tokens bound to revocable, TTL-limited session records

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/2389/studio-gateway/internal/store"
)

// Session errors
var (
	ErrInvalidSession = errors.New("invalid session token")
	ErrWeakSecret     = errors.New("session secret too short")
)

// MinSecretLength is the minimum session secret length in bytes.
const MinSecretLength = 32

// SessionStore is the persistence surface the session manager needs.
type SessionStore interface {
	CreateSession(ctx context.Context, session *store.Session) (err error)
	GetSession(ctx context.Context, id string) (*store.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// SessionVerifier is the subset of SessionManager the resolver depends on.
type SessionVerifier interface {
	Verify(ctx context.Context, token string) (*store.Session, error)
}

// SessionManager issues and verifies the session tokens that stand behind
// the sentinel bearer values. A token is an HS256 JWT whose jti is the ID of
// a server-side session record; both the signature and a live record are
// required, so tokens are revocable and expire regardless of client state.
type SessionManager struct {
	secret   []byte
	ttl      time.Duration
	sessions SessionStore
}

// NewSessionManager creates a session manager with the given signing secret.
func NewSessionManager(secret []byte, ttl time.Duration, sessions SessionStore) (*SessionManager, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: need at least %d bytes, got %d", ErrWeakSecret, MinSecretLength, len(secret))
	}
	if sessions == nil {
		return nil, errors.New("session store is required")
	}
	return &SessionManager{secret: secret, ttl: ttl, sessions: sessions}, nil
}

// TTL returns the configured session lifetime.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Issue creates a session record for the given identity and returns the
// signed token the client presents on subsequent requests.
func (m *SessionManager) Issue(ctx context.Context, userID string, role Role, method Method) (string, error) {
	now := time.Now().UTC()
	session := &store.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		Role:      string(role),
		Method:    string(method),
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	if err := m.sessions.CreateSession(ctx, session); err != nil {
		return "", fmt.Errorf("creating session record: %w", err)
	}

	claims := jwt.MapClaims{
		"jti": session.ID,
		"sub": userID,
		"iat": now.Unix(),
		"exp": session.ExpiresAt.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return token, nil
}

// Verify validates a session token and returns its live session record.
// Any failure (bad signature, expired token, missing or expired record)
// yields ErrInvalidSession.
func (m *SessionManager) Verify(ctx context.Context, token string) (*store.Session, error) {
	id, err := m.parseSessionID(token)
	if err != nil {
		return nil, err
	}

	session, err := m.sessions.GetSession(ctx, id)
	if errors.Is(err, store.ErrSessionNotFound) {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, fmt.Errorf("looking up session: %w", err)
	}
	return session, nil
}

// Revoke deletes the session record behind a token. The token must still
// verify; revoking an already-dead session returns ErrInvalidSession.
func (m *SessionManager) Revoke(ctx context.Context, token string) error {
	session, err := m.Verify(ctx, token)
	if err != nil {
		return err
	}
	return m.sessions.DeleteSession(ctx, session.ID)
}

// parseSessionID validates the token signature and extracts the jti claim.
func (m *SessionManager) parseSessionID(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidSession
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidSession
	}
	id, ok := claims["jti"].(string)
	if !ok || id == "" {
		return "", ErrInvalidSession
	}
	return id, nil
}
