// ABOUTME: Tests for locally issued session tokens
// ABOUTME: Covers issue/verify round trips, tampering, revocation, and weak secrets

package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/2389/studio-gateway/internal/store"
)

var sessionTestSecret = []byte("session-manager-test-secret-32b!")

// fakeSessionStore is an in-memory SessionStore.
type fakeSessionStore struct {
	sessions map[string]*store.Session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]*store.Session)}
}

func (f *fakeSessionStore) CreateSession(_ context.Context, s *store.Session) error {
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeSessionStore) GetSession(_ context.Context, id string) (*store.Session, error) {
	s, ok := f.sessions[id]
	if !ok || s.ExpiresAt.Before(time.Now()) {
		return nil, store.ErrSessionNotFound
	}
	return s, nil
}

func (f *fakeSessionStore) DeleteSession(_ context.Context, id string) error {
	delete(f.sessions, id)
	return nil
}

func TestSessionManager_IssueAndVerify(t *testing.T) {
	sessions := newFakeSessionStore()
	m, err := NewSessionManager(sessionTestSecret, time.Hour, sessions)
	if err != nil {
		t.Fatalf("NewSessionManager() error = %v", err)
	}

	token, err := m.Issue(context.Background(), "1", RoleAdministrator, MethodLocalAdmin)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	got, err := m.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if got.UserID != "1" || got.Role != "administrator" || got.Method != "local-admin" {
		t.Errorf("session = %+v", got)
	}
}

func TestSessionManager_WeakSecret(t *testing.T) {
	_, err := NewSessionManager([]byte("short"), time.Hour, newFakeSessionStore())
	if !errors.Is(err, ErrWeakSecret) {
		t.Errorf("error = %v, want ErrWeakSecret", err)
	}
}

func TestSessionManager_TamperedToken(t *testing.T) {
	m, _ := NewSessionManager(sessionTestSecret, time.Hour, newFakeSessionStore())

	token, err := m.Issue(context.Background(), "1", RoleAdministrator, MethodLocalAdmin)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	// Flip part of the signature.
	tampered := token[:len(token)-4] + "AAAA"
	if _, err := m.Verify(context.Background(), tampered); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("Verify(tampered) error = %v, want ErrInvalidSession", err)
	}
}

func TestSessionManager_WrongSecret(t *testing.T) {
	sessions := newFakeSessionStore()
	issuer, _ := NewSessionManager(sessionTestSecret, time.Hour, sessions)
	verifier, _ := NewSessionManager([]byte(strings.Repeat("z", 32)), time.Hour, sessions)

	token, _ := issuer.Issue(context.Background(), "1", RoleAdministrator, MethodLocalAdmin)
	if _, err := verifier.Verify(context.Background(), token); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("error = %v, want ErrInvalidSession", err)
	}
}

func TestSessionManager_GarbageToken(t *testing.T) {
	m, _ := NewSessionManager(sessionTestSecret, time.Hour, newFakeSessionStore())

	for _, tok := range []string{"", "not-a-jwt", "a.b.c", SentinelLocalAdmin} {
		if _, err := m.Verify(context.Background(), tok); !errors.Is(err, ErrInvalidSession) {
			t.Errorf("Verify(%q) error = %v, want ErrInvalidSession", tok, err)
		}
	}
}

func TestSessionManager_RevokedTokenNoLongerVerifies(t *testing.T) {
	m, _ := NewSessionManager(sessionTestSecret, time.Hour, newFakeSessionStore())
	ctx := context.Background()

	token, _ := m.Issue(ctx, "1", RoleAdministrator, MethodLocalAdmin)
	if err := m.Revoke(ctx, token); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}

	if _, err := m.Verify(ctx, token); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("Verify(revoked) error = %v, want ErrInvalidSession", err)
	}

	// Revoking again reports the dead session.
	if err := m.Revoke(ctx, token); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("second Revoke() error = %v, want ErrInvalidSession", err)
	}
}

func TestSessionManager_ExpiredRecordNoLongerVerifies(t *testing.T) {
	sessions := newFakeSessionStore()
	m, _ := NewSessionManager(sessionTestSecret, -time.Minute, sessions)

	// Negative TTL produces an already-expired record: the signature is
	// valid but the server-side row is dead.
	token, err := m.Issue(context.Background(), "1", RoleAdministrator, MethodLocalAdmin)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if _, err := m.Verify(context.Background(), token); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("Verify(expired) error = %v, want ErrInvalidSession", err)
	}
}
