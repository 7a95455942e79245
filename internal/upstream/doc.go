// Package upstream is the outbound client for the commerce platform.
//
// The platform is the system of record for products, orders and users;
// studio-gateway never owns that data, it only validates credentials against
// the platform and fetches or proxies data on behalf of the studio client.
//
// Two validation endpoints matter to authentication:
//
//   - GET /session/validate, forwarding the inbound Cookie header (and an
//     optional short nonce), answering {valid, user_id}.
//   - POST /token/validate with an Authorization bearer header, answering one
//     of two known success shapes.
//
// Every outbound URL except token endpoints carries the shared-secret stamp
// as a query parameter. Validation calls use a short timeout and are never
// retried: the authentication chain treats a timeout exactly like an explicit
// rejection and moves on to its next strategy.
package upstream
