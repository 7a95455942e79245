// Package auth implements request authentication for studio-gateway.
//
// Every privileged route runs the same pipeline: the classifier inspects the
// raw credential material on the request (Authorization header, Cookie
// header, session token) and assigns it one of five kinds; the resolver then
// walks a strictly ordered list of strategies until one produces an outcome.
// The first success wins and later strategies are never consulted.
//
// The order is:
//
//  1. Local-admin sentinel: the reserved bearer value marking a locally
//     issued admin session. Validated entirely locally (signed session token
//     plus a live server-side session record) - no platform call.
//  2. API-key bypass: when the deployment holds a platform API key pair,
//     every request is treated as a pre-authenticated administrator. This is
//     deployment-level trust, not per-user authentication.
//  3. No credential: attempt platform cookie validation with the request's
//     Cookie header.
//  4. Cookie-auth sentinel: the reserved bearer value marking a session that
//     was established from a prior successful platform-cookie login. Also
//     validated locally against the session store.
//  5. Short bearer: treated as a platform nonce and validated upstream.
//  6. Long bearer: validated against the platform token endpoint, falling
//     back once to cookie validation if the request carries a cookie header.
//
// A request causes at most two upstream calls (bearer attempt plus cookie
// fallback). Upstream timeouts and network failures are treated as
// validation failures, never retried. All rejections surface to the client
// as a uniform 401 with a JSON error body; the distinct rejection reasons
// exist for diagnostics only.
//
// The sentinel values themselves authenticate nothing. They only select the
// local-session path; the actual credential is a signed session token whose
// ID must match a live, TTL-bound record in the session store.
package auth
