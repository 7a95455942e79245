// ABOUTME: Principal, outcome and rejection types shared by the auth pipeline
// ABOUTME: The normalized result every strategy produces, independent of mechanism

package auth

// Role is the coarse role of an authenticated principal.
type Role string

const (
	RoleAdministrator Role = "administrator"
	RoleSubscriber    Role = "subscriber"
	RoleUnknown       Role = "unknown"
)

// Method records which strategy authenticated the principal.
// Used only for logging and diagnostics.
type Method string

const (
	MethodLocalAdmin    Method = "local-admin"
	MethodAPIKey        Method = "api-key"
	MethodCookieSession Method = "cookie-session"
	MethodBearerToken   Method = "bearer-token"
)

// Principal is the normalized identity resulting from successful
// authentication. It lives for a single request.
type Principal struct {
	ID     string
	Role   Role
	Method Method
}

// Reason explains why authentication was rejected. Every reason maps to the
// same client-visible 401; they differ only in diagnostics and body text.
type Reason string

const (
	// ReasonNoCredential means no usable credential accompanied the request.
	ReasonNoCredential Reason = "no-credential"

	// ReasonUpstreamUnreachable means the platform could not be consulted.
	ReasonUpstreamUnreachable Reason = "upstream-unreachable"

	// ReasonUpstreamRejected means the platform explicitly refused the credential.
	ReasonUpstreamRejected Reason = "upstream-rejected"

	// ReasonMalformedResponse means the platform answered in an unrecognized shape.
	ReasonMalformedResponse Reason = "malformed-response"

	// ReasonSessionInvalid means a locally issued session token failed
	// verification or its server-side record is gone or expired.
	ReasonSessionInvalid Reason = "session-invalid"
)

// Message returns the human string for the 401 response body.
func (r Reason) Message() string {
	switch r {
	case ReasonNoCredential:
		return "authentication required"
	case ReasonUpstreamUnreachable:
		return "authentication service unavailable"
	case ReasonUpstreamRejected:
		return "credential rejected"
	case ReasonMalformedResponse:
		return "authentication service returned an unexpected response"
	case ReasonSessionInvalid:
		return "session invalid or expired"
	default:
		return "unauthorized"
	}
}

// Outcome is the sum result of resolution: either an authenticated principal
// or a rejection reason, never both.
type Outcome struct {
	Principal *Principal
	Reason    Reason
}

// Authenticated wraps a principal in a successful outcome.
func Authenticated(p Principal) Outcome {
	return Outcome{Principal: &p}
}

// Rejected wraps a reason in a failed outcome.
func Rejected(r Reason) Outcome {
	return Outcome{Reason: r}
}

// OK reports whether the outcome carries an authenticated principal.
func (o Outcome) OK() bool {
	return o.Principal != nil
}
