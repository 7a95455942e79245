// Package store provides SQLite-backed persistence for session records.
//
// Sessions are the server-side half of locally issued session tokens: a token
// is only accepted while its row exists and has not expired, which makes
// tokens revocable and time-bound regardless of what the client holds.
// Product settings and named links live elsewhere (package catalog) as plain
// JSON files; only data with a security lifetime belongs here.
package store
