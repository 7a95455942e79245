// ABOUTME: Credential classifier assigning inbound credential material to one of five kinds
// ABOUTME: Total function - every input classifies to exactly one kind, no errors

package auth

import (
	"net/http"
	"strings"
)

// Kind classifies the raw credential material on a request.
type Kind string

const (
	// KindNone means no bearer credential was presented.
	KindNone Kind = "none"

	// KindBearerShort is a short opaque token, treated as a platform nonce.
	KindBearerShort Kind = "bearer-short"

	// KindBearerLong is a long token, treated as a platform bearer/JWT token.
	KindBearerLong Kind = "bearer-long"

	// KindSentinelLocalAdmin is the reserved marker for a locally issued
	// admin session.
	KindSentinelLocalAdmin Kind = "sentinel-local-admin"

	// KindSentinelCookieAuth is the reserved marker for a session derived
	// from a prior platform-cookie login.
	KindSentinelCookieAuth Kind = "sentinel-cookie-auth"
)

const (
	bearerPrefix = "Bearer "

	// SentinelLocalAdmin and SentinelCookieAuth are reserved bearer values.
	// They select the local-session validation path; they are never accepted
	// as credentials by themselves.
	SentinelLocalAdmin = "local-admin-token"
	SentinelCookieAuth = "cookie-auth"

	// shortTokenThreshold separates platform nonces from full bearer tokens.
	shortTokenThreshold = 50
)

// SessionCookieName is the cookie carrying the locally issued session token.
const SessionCookieName = "studio_session"

// SessionHeader is the header alternative to the session cookie, for clients
// that cannot set cookies on the gateway's origin.
const SessionHeader = "X-Studio-Session"

// Credential is the raw material extracted from one request. It is created
// per-request and discarded when the request completes.
type Credential struct {
	Kind Kind

	// Raw is the bearer value with the prefix stripped; empty for KindNone.
	Raw string

	// CookieHeader is carried alongside every kind, since cookie validation
	// may run as a fallback.
	CookieHeader string

	// SessionToken is the locally issued session token, if the request
	// carries one (session cookie or X-Studio-Session header).
	SessionToken string
}

// Classify assigns the authorization and cookie headers to exactly one
// credential kind. It is total: no input combination fails.
func Classify(authorizationHeader, cookieHeader string) Credential {
	cred := Credential{
		Kind:         KindNone,
		CookieHeader: cookieHeader,
		SessionToken: sessionTokenFromCookies(cookieHeader),
	}

	if !strings.HasPrefix(authorizationHeader, bearerPrefix) {
		return cred
	}

	value := strings.TrimPrefix(authorizationHeader, bearerPrefix)
	switch {
	case value == "":
		// "Bearer " with nothing behind it carries no credential.
	case value == SentinelLocalAdmin:
		cred.Kind = KindSentinelLocalAdmin
		cred.Raw = value
	case value == SentinelCookieAuth:
		cred.Kind = KindSentinelCookieAuth
		cred.Raw = value
	case len(value) < shortTokenThreshold:
		cred.Kind = KindBearerShort
		cred.Raw = value
	default:
		cred.Kind = KindBearerLong
		cred.Raw = value
	}
	return cred
}

// ClassifyRequest classifies an inbound HTTP request, preferring the session
// cookie and falling back to the session header.
func ClassifyRequest(r *http.Request) Credential {
	cred := Classify(r.Header.Get("Authorization"), r.Header.Get("Cookie"))
	if cred.SessionToken == "" {
		cred.SessionToken = r.Header.Get(SessionHeader)
	}
	return cred
}

// sessionTokenFromCookies extracts the session cookie value from a raw
// Cookie header. Malformed headers yield an empty token, never an error.
func sessionTokenFromCookies(cookieHeader string) string {
	if cookieHeader == "" {
		return ""
	}
	cookies, err := http.ParseCookie(cookieHeader)
	if err != nil {
		return ""
	}
	for _, c := range cookies {
		if c.Name == SessionCookieName {
			return c.Value
		}
	}
	return ""
}
