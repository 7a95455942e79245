// ABOUTME: Priority-ordered authentication resolver for classified credentials
// ABOUTME: Executes validation strategies in order, first success wins, at most two upstream calls

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/2389/studio-gateway/internal/config"
	"github.com/2389/studio-gateway/internal/upstream"
)

// PlatformValidator is the subset of the upstream client the resolver needs.
type PlatformValidator interface {
	ValidateSession(ctx context.Context, cookieHeader, nonce string) (upstream.SessionValidation, error)
	ValidateToken(ctx context.Context, token string) (string, error)
}

// strategy is one entry in the resolution chain: a pure function from
// credential to outcome. handled=false means the strategy does not apply to
// this credential and the chain moves on; a handled outcome is final.
type strategy struct {
	name    string
	attempt func(ctx context.Context, cred Credential) (outcome Outcome, handled bool)
}

// Resolver turns a classified credential into an authenticated principal or
// a typed rejection. The strategy list is fixed at construction and walked
// in order on every request; nothing in the resolver mutates after that, so
// one instance serves all requests concurrently.
type Resolver struct {
	cfg        config.AuthConfig
	platform   PlatformValidator
	sessions   SessionVerifier
	logger     *slog.Logger
	strategies []strategy
}

// NewResolver builds the resolution chain. Order is load-bearing:
// local-admin and API-key pre-checks run before any classification-driven
// strategy, and within the long-bearer strategy the token attempt always
// precedes the cookie fallback.
func NewResolver(cfg config.AuthConfig, platform PlatformValidator, sessions SessionVerifier, logger *slog.Logger) *Resolver {
	r := &Resolver{
		cfg:      cfg,
		platform: platform,
		sessions: sessions,
		logger:   logger.With("component", "auth"),
	}
	r.strategies = []strategy{
		{name: "local-admin", attempt: r.attemptLocalAdmin},
		{name: "api-key", attempt: r.attemptAPIKey},
		{name: "cookie", attempt: r.attemptCookie},
		{name: "cookie-sentinel", attempt: r.attemptCookieSentinel},
		{name: "nonce", attempt: r.attemptNonce},
		{name: "bearer", attempt: r.attemptBearer},
	}
	return r
}

// Resolve walks the strategy chain and returns the first handled outcome.
// Exactly one strategy handles any given credential kind (plus the API-key
// pre-check, which handles everything when configured), so the fallthrough
// at the bottom is unreachable in practice.
func (r *Resolver) Resolve(ctx context.Context, cred Credential) Outcome {
	for _, s := range r.strategies {
		outcome, handled := s.attempt(ctx, cred)
		if !handled {
			continue
		}
		if outcome.OK() {
			r.logger.Debug("authentication succeeded",
				"strategy", s.name,
				"kind", string(cred.Kind),
				"method", string(outcome.Principal.Method),
				"role", string(outcome.Principal.Role),
			)
		} else {
			r.logger.Debug("authentication failed",
				"strategy", s.name,
				"kind", string(cred.Kind),
				"reason", string(outcome.Reason),
			)
		}
		return outcome
	}
	return Rejected(ReasonNoCredential)
}

// attemptLocalAdmin handles the local-admin sentinel. The sentinel selects
// this path; the credential is the accompanying session token, verified
// entirely locally. No platform call is made.
func (r *Resolver) attemptLocalAdmin(ctx context.Context, cred Credential) (Outcome, bool) {
	if cred.Kind != KindSentinelLocalAdmin {
		return Outcome{}, false
	}
	return r.verifyLocalSession(ctx, cred, MethodLocalAdmin), true
}

// attemptAPIKey handles the API-key bypass: when the deployment holds the
// platform API key pair, every request is a pre-authenticated administrator
// regardless of what credential it carries.
func (r *Resolver) attemptAPIKey(_ context.Context, _ Credential) (Outcome, bool) {
	if !r.cfg.APIKeyConfigured() {
		return Outcome{}, false
	}
	return Authenticated(Principal{ID: "1", Role: RoleAdministrator, Method: MethodAPIKey}), true
}

// attemptCookie handles credential-less requests by asking the platform to
// validate the request's cookie header. Any failure collapses to
// no-credential: an anonymous request with a dead cookie is just anonymous.
func (r *Resolver) attemptCookie(ctx context.Context, cred Credential) (Outcome, bool) {
	if cred.Kind != KindNone {
		return Outcome{}, false
	}

	sv, err := r.platform.ValidateSession(ctx, cred.CookieHeader, "")
	if err != nil || !sv.Valid || sv.UserID == "" {
		return Rejected(ReasonNoCredential), true
	}
	return Authenticated(Principal{ID: sv.UserID, Role: RoleUnknown, Method: MethodCookieSession}), true
}

// attemptCookieSentinel handles the cookie-auth sentinel: a session
// established by a prior successful platform-cookie login, revalidated
// locally against the session store instead of round-tripping upstream.
func (r *Resolver) attemptCookieSentinel(ctx context.Context, cred Credential) (Outcome, bool) {
	if cred.Kind != KindSentinelCookieAuth {
		return Outcome{}, false
	}
	return r.verifyLocalSession(ctx, cred, MethodCookieSession), true
}

// attemptNonce handles short bearer tokens, treating the value as a platform
// nonce for the session-validation endpoint.
func (r *Resolver) attemptNonce(ctx context.Context, cred Credential) (Outcome, bool) {
	if cred.Kind != KindBearerShort {
		return Outcome{}, false
	}

	sv, err := r.platform.ValidateSession(ctx, cred.CookieHeader, cred.Raw)
	if err != nil {
		return Rejected(reasonFromError(err)), true
	}
	if !sv.Valid || sv.UserID == "" {
		return Rejected(ReasonUpstreamRejected), true
	}
	return Authenticated(Principal{ID: sv.UserID, Role: RoleUnknown, Method: MethodCookieSession}), true
}

// attemptBearer handles long bearer tokens: platform token validation first,
// then a single cookie-validation fallback if the request carries a cookie
// header. Never the reverse, and never more than these two calls.
func (r *Resolver) attemptBearer(ctx context.Context, cred Credential) (Outcome, bool) {
	if cred.Kind != KindBearerLong {
		return Outcome{}, false
	}

	userID, tokenErr := r.platform.ValidateToken(ctx, cred.Raw)
	if tokenErr == nil {
		return Authenticated(Principal{ID: userID, Role: RoleUnknown, Method: MethodBearerToken}), true
	}

	if cred.CookieHeader == "" {
		return Rejected(reasonFromError(tokenErr)), true
	}

	sv, cookieErr := r.platform.ValidateSession(ctx, cred.CookieHeader, "")
	if cookieErr != nil {
		return Rejected(reasonFromError(cookieErr)), true
	}
	if !sv.Valid || sv.UserID == "" {
		return Rejected(ReasonUpstreamRejected), true
	}
	return Authenticated(Principal{ID: sv.UserID, Role: RoleUnknown, Method: MethodCookieSession}), true
}

// verifyLocalSession resolves a sentinel credential against the session
// store. The session record must exist, be unexpired, and have been issued
// for the method the sentinel claims.
func (r *Resolver) verifyLocalSession(ctx context.Context, cred Credential, want Method) Outcome {
	if r.sessions == nil || cred.SessionToken == "" {
		return Rejected(ReasonSessionInvalid)
	}

	session, err := r.sessions.Verify(ctx, cred.SessionToken)
	if err != nil {
		return Rejected(ReasonSessionInvalid)
	}
	if session.Method != string(want) {
		return Rejected(ReasonSessionInvalid)
	}
	return Authenticated(Principal{ID: session.UserID, Role: Role(session.Role), Method: want})
}

// reasonFromError maps upstream error classes onto rejection reasons.
func reasonFromError(err error) Reason {
	switch {
	case errors.Is(err, upstream.ErrUnreachable):
		return ReasonUpstreamUnreachable
	case errors.Is(err, upstream.ErrMalformedResponse):
		return ReasonMalformedResponse
	default:
		return ReasonUpstreamRejected
	}
}
