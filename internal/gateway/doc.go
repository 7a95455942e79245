// ABOUTME: Package documentation for the gateway orchestrator
// ABOUTME: Describes the component wiring and request flow

// Package gateway wires the studio-gateway server together: configuration,
// the sqlite session store, the platform client, the authentication chain,
// and the HTTP API that the browser-based design client talks to.
//
// Request flow: every /api route except the two login endpoints passes
// through the authentication gate, which classifies the request's
// credential and resolves it to a principal. Mutating routes additionally
// require an administrator principal. The /api/platform/ subtree is a
// stamped reverse proxy straight onto the commerce platform.
package gateway
