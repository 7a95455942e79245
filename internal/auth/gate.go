// ABOUTME: HTTP middleware gating privileged routes behind the auth resolver
// ABOUTME: Attaches the principal to request context or short-circuits with 401 JSON

package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Gate wraps privileged handlers. It classifies the request's credential,
// resolves it, and either attaches the resulting principal to the request
// context or answers 401. Authorization failures always use status 401; the
// JSON body text varies by reason for diagnosability.
type Gate struct {
	resolver *Resolver
	logger   *slog.Logger
}

// NewGate creates a gate around the given resolver.
func NewGate(resolver *Resolver, logger *slog.Logger) *Gate {
	return &Gate{
		resolver: resolver,
		logger:   logger.With("component", "auth-gate"),
	}
}

// Middleware returns the http middleware enforcing authentication.
func (g *Gate) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cred := ClassifyRequest(r)
			outcome := g.resolver.Resolve(r.Context(), cred)

			if !outcome.OK() {
				// Diagnostics carry the kind and reason, never credential values.
				g.logger.Info("request unauthorized",
					"path", r.URL.Path,
					"kind", string(cred.Kind),
					"reason", string(outcome.Reason),
				)
				writeUnauthorized(w, outcome.Reason)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), outcome.Principal)))
		})
	}
}

// RequireAdmin returns middleware that additionally requires the
// administrator role. Must run after Middleware.
func (g *Gate) RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := FromContext(r.Context())
			if p == nil {
				writeUnauthorized(w, ReasonNoCredential)
				return
			}
			if !p.IsAdmin() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "administrator role required"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeUnauthorized answers the uniform 401 JSON error.
func writeUnauthorized(w http.ResponseWriter, reason Reason) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": reason.Message()})
}
