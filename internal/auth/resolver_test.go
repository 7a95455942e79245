// ABOUTME: Tests for the authentication resolver chain
// ABOUTME: Covers strategy ordering, short-circuiting, fallbacks, and upstream call counts

package auth

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/2389/studio-gateway/internal/config"
	"github.com/2389/studio-gateway/internal/store"
	"github.com/2389/studio-gateway/internal/upstream"
)

// mockPlatform implements PlatformValidator and counts invocations so tests
// can assert which upstream endpoints were (not) consulted.
type mockPlatform struct {
	sessionCalls int
	tokenCalls   int

	sessionResult upstream.SessionValidation
	sessionErr    error

	tokenUserID string
	tokenErr    error
}

func (m *mockPlatform) ValidateSession(_ context.Context, _, _ string) (upstream.SessionValidation, error) {
	m.sessionCalls++
	return m.sessionResult, m.sessionErr
}

func (m *mockPlatform) ValidateToken(_ context.Context, _ string) (string, error) {
	m.tokenCalls++
	return m.tokenUserID, m.tokenErr
}

// mockSessions implements SessionVerifier from a fixed token->session map.
type mockSessions struct {
	sessions map[string]*store.Session
}

func (m *mockSessions) Verify(_ context.Context, token string) (*store.Session, error) {
	if s, ok := m.sessions[token]; ok {
		return s, nil
	}
	return nil, ErrInvalidSession
}

func adminSession(method Method) *store.Session {
	now := time.Now().UTC()
	return &store.Session{
		ID:        "sess-1",
		UserID:    "1",
		Role:      string(RoleAdministrator),
		Method:    string(method),
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func newTestResolver(cfg config.AuthConfig, platform *mockPlatform, sessions SessionVerifier) *Resolver {
	return NewResolver(cfg, platform, sessions, slog.Default())
}

func TestResolve_LocalAdminSentinel_NoNetworkCall(t *testing.T) {
	platform := &mockPlatform{}
	sessions := &mockSessions{sessions: map[string]*store.Session{
		"good-token": adminSession(MethodLocalAdmin),
	}}
	r := newTestResolver(config.AuthConfig{}, platform, sessions)

	cred := Credential{Kind: KindSentinelLocalAdmin, Raw: SentinelLocalAdmin, SessionToken: "good-token"}
	outcome := r.Resolve(context.Background(), cred)

	if !outcome.OK() {
		t.Fatalf("Resolve() rejected: %s", outcome.Reason)
	}
	if outcome.Principal.ID != "1" || outcome.Principal.Role != RoleAdministrator {
		t.Errorf("principal = %+v", outcome.Principal)
	}
	if outcome.Principal.Method != MethodLocalAdmin {
		t.Errorf("method = %q, want local-admin", outcome.Principal.Method)
	}
	if platform.sessionCalls != 0 || platform.tokenCalls != 0 {
		t.Errorf("local-admin resolution made upstream calls: session=%d token=%d",
			platform.sessionCalls, platform.tokenCalls)
	}
}

func TestResolve_BareSentinelIsRejected(t *testing.T) {
	platform := &mockPlatform{}
	sessions := &mockSessions{sessions: map[string]*store.Session{}}
	r := newTestResolver(config.AuthConfig{}, platform, sessions)

	for _, kind := range []Kind{KindSentinelLocalAdmin, KindSentinelCookieAuth} {
		outcome := r.Resolve(context.Background(), Credential{Kind: kind})
		if outcome.OK() {
			t.Errorf("bare %s sentinel must not authenticate", kind)
		}
		if outcome.Reason != ReasonSessionInvalid {
			t.Errorf("reason = %q, want session-invalid", outcome.Reason)
		}
	}
	if platform.sessionCalls != 0 || platform.tokenCalls != 0 {
		t.Error("sentinel rejection must not consult the platform")
	}
}

func TestResolve_SentinelMethodMismatchIsRejected(t *testing.T) {
	// A cookie-session record must not satisfy the local-admin sentinel.
	sessions := &mockSessions{sessions: map[string]*store.Session{
		"cookie-token": adminSession(MethodCookieSession),
	}}
	r := newTestResolver(config.AuthConfig{}, &mockPlatform{}, sessions)

	cred := Credential{Kind: KindSentinelLocalAdmin, SessionToken: "cookie-token"}
	outcome := r.Resolve(context.Background(), cred)
	if outcome.OK() || outcome.Reason != ReasonSessionInvalid {
		t.Errorf("outcome = %+v, want session-invalid rejection", outcome)
	}
}

func TestResolve_APIKeyBypass_AnyCredential(t *testing.T) {
	cfg := config.AuthConfig{APIKey: "ck_live", APISecret: "cs_live"}

	creds := []Credential{
		{Kind: KindNone},
		{Kind: KindBearerShort, Raw: "nonce-1"},
		{Kind: KindBearerLong, Raw: "some-long-token"},
		{Kind: KindSentinelCookieAuth},
	}

	for _, cred := range creds {
		platform := &mockPlatform{}
		r := newTestResolver(cfg, platform, &mockSessions{})

		outcome := r.Resolve(context.Background(), cred)
		if !outcome.OK() {
			t.Fatalf("kind %s: rejected %s", cred.Kind, outcome.Reason)
		}
		if outcome.Principal.Method != MethodAPIKey {
			t.Errorf("kind %s: method = %q, want api-key", cred.Kind, outcome.Principal.Method)
		}
		if outcome.Principal.ID != "1" || outcome.Principal.Role != RoleAdministrator {
			t.Errorf("kind %s: principal = %+v", cred.Kind, outcome.Principal)
		}
		if platform.sessionCalls != 0 || platform.tokenCalls != 0 {
			t.Errorf("kind %s: api-key bypass made upstream calls", cred.Kind)
		}
	}
}

func TestResolve_LocalAdminPrecedesAPIKey(t *testing.T) {
	cfg := config.AuthConfig{APIKey: "ck_live", APISecret: "cs_live"}
	sessions := &mockSessions{sessions: map[string]*store.Session{
		"good-token": adminSession(MethodLocalAdmin),
	}}
	r := newTestResolver(cfg, &mockPlatform{}, sessions)

	cred := Credential{Kind: KindSentinelLocalAdmin, SessionToken: "good-token"}
	outcome := r.Resolve(context.Background(), cred)

	if !outcome.OK() || outcome.Principal.Method != MethodLocalAdmin {
		t.Errorf("outcome = %+v, want local-admin before api-key", outcome)
	}
}

func TestResolve_NoCredential_CookieValidationSucceeds(t *testing.T) {
	platform := &mockPlatform{sessionResult: upstream.SessionValidation{Valid: true, UserID: "77"}}
	r := newTestResolver(config.AuthConfig{}, platform, &mockSessions{})

	cred := Credential{Kind: KindNone, CookieHeader: "wordpress_logged_in=abc"}
	outcome := r.Resolve(context.Background(), cred)

	if !outcome.OK() {
		t.Fatalf("rejected: %s", outcome.Reason)
	}
	if outcome.Principal.ID != "77" || outcome.Principal.Method != MethodCookieSession {
		t.Errorf("principal = %+v", outcome.Principal)
	}
	if outcome.Principal.Role != RoleUnknown {
		t.Errorf("role = %q, want unknown", outcome.Principal.Role)
	}
}

func TestResolve_NoCredential_AnyFailureIsNoCredential(t *testing.T) {
	tests := []struct {
		name     string
		platform *mockPlatform
	}{
		{name: "upstream says invalid", platform: &mockPlatform{sessionResult: upstream.SessionValidation{Valid: false}}},
		{name: "upstream unreachable", platform: &mockPlatform{sessionErr: upstream.ErrUnreachable}},
		{name: "upstream rejected", platform: &mockPlatform{sessionErr: upstream.ErrRejected}},
		{name: "valid without user id", platform: &mockPlatform{sessionResult: upstream.SessionValidation{Valid: true}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver(config.AuthConfig{}, tt.platform, &mockSessions{})
			outcome := r.Resolve(context.Background(), Credential{Kind: KindNone})
			if outcome.OK() || outcome.Reason != ReasonNoCredential {
				t.Errorf("outcome = %+v, want no-credential rejection", outcome)
			}
		})
	}
}

func TestResolve_Nonce(t *testing.T) {
	t.Run("valid nonce authenticates", func(t *testing.T) {
		platform := &mockPlatform{sessionResult: upstream.SessionValidation{Valid: true, UserID: "5"}}
		r := newTestResolver(config.AuthConfig{}, platform, &mockSessions{})

		outcome := r.Resolve(context.Background(), Credential{Kind: KindBearerShort, Raw: "short-nonce-123"})
		if !outcome.OK() || outcome.Principal.ID != "5" {
			t.Errorf("outcome = %+v", outcome)
		}
		if platform.sessionCalls != 1 {
			t.Errorf("sessionCalls = %d, want 1", platform.sessionCalls)
		}
	})

	t.Run("invalid nonce is upstream-rejected", func(t *testing.T) {
		platform := &mockPlatform{sessionResult: upstream.SessionValidation{Valid: false}}
		r := newTestResolver(config.AuthConfig{}, platform, &mockSessions{})

		outcome := r.Resolve(context.Background(), Credential{Kind: KindBearerShort, Raw: "short-nonce-123"})
		if outcome.OK() || outcome.Reason != ReasonUpstreamRejected {
			t.Errorf("outcome = %+v, want upstream-rejected", outcome)
		}
	})

	t.Run("timeout is upstream-unreachable", func(t *testing.T) {
		platform := &mockPlatform{sessionErr: upstream.ErrUnreachable}
		r := newTestResolver(config.AuthConfig{}, platform, &mockSessions{})

		outcome := r.Resolve(context.Background(), Credential{Kind: KindBearerShort, Raw: "nonce"})
		if outcome.Reason != ReasonUpstreamUnreachable {
			t.Errorf("reason = %q, want upstream-unreachable", outcome.Reason)
		}
	})
}

func TestResolve_BearerLong_SuccessSkipsCookieFallback(t *testing.T) {
	platform := &mockPlatform{tokenUserID: "9"}
	r := newTestResolver(config.AuthConfig{}, platform, &mockSessions{})

	cred := Credential{Kind: KindBearerLong, Raw: "a-long-enough-bearer-token", CookieHeader: "wordpress_logged_in=abc"}
	outcome := r.Resolve(context.Background(), cred)

	if !outcome.OK() || outcome.Principal.Method != MethodBearerToken {
		t.Fatalf("outcome = %+v", outcome)
	}
	if platform.tokenCalls != 1 {
		t.Errorf("tokenCalls = %d, want 1", platform.tokenCalls)
	}
	if platform.sessionCalls != 0 {
		t.Errorf("cookie fallback invoked %d times after bearer success, want 0", platform.sessionCalls)
	}
}

func TestResolve_BearerLong_TimeoutFallsBackToCookie(t *testing.T) {
	platform := &mockPlatform{
		tokenErr:      upstream.ErrUnreachable,
		sessionResult: upstream.SessionValidation{Valid: true, UserID: "33"},
	}
	r := newTestResolver(config.AuthConfig{}, platform, &mockSessions{})

	cred := Credential{Kind: KindBearerLong, Raw: "a-long-enough-bearer-token", CookieHeader: "wordpress_logged_in=abc"}
	outcome := r.Resolve(context.Background(), cred)

	if !outcome.OK() {
		t.Fatalf("rejected: %s", outcome.Reason)
	}
	if outcome.Principal.ID != "33" || outcome.Principal.Method != MethodCookieSession {
		t.Errorf("principal = %+v", outcome.Principal)
	}
	if platform.tokenCalls != 1 || platform.sessionCalls != 1 {
		t.Errorf("calls = token %d / session %d, want 1/1", platform.tokenCalls, platform.sessionCalls)
	}
}

func TestResolve_BearerLong_BothFail(t *testing.T) {
	platform := &mockPlatform{
		tokenErr:      upstream.ErrRejected,
		sessionResult: upstream.SessionValidation{Valid: false},
	}
	r := newTestResolver(config.AuthConfig{}, platform, &mockSessions{})

	cred := Credential{Kind: KindBearerLong, Raw: "a-long-enough-bearer-token", CookieHeader: "wordpress_logged_in=abc"}
	outcome := r.Resolve(context.Background(), cred)

	if outcome.OK() || outcome.Reason != ReasonUpstreamRejected {
		t.Errorf("outcome = %+v, want upstream-rejected", outcome)
	}
	if platform.tokenCalls+platform.sessionCalls != 2 {
		t.Errorf("made %d upstream calls, chain allows at most 2",
			platform.tokenCalls+platform.sessionCalls)
	}
}

func TestResolve_BearerLong_NoCookieSkipsFallback(t *testing.T) {
	platform := &mockPlatform{tokenErr: upstream.ErrMalformedResponse}
	r := newTestResolver(config.AuthConfig{}, platform, &mockSessions{})

	outcome := r.Resolve(context.Background(), Credential{Kind: KindBearerLong, Raw: "a-long-enough-bearer-token"})

	if outcome.OK() || outcome.Reason != ReasonMalformedResponse {
		t.Errorf("outcome = %+v, want malformed-response", outcome)
	}
	if platform.sessionCalls != 0 {
		t.Error("cookie fallback must not run without a cookie header")
	}
}
