// Package config handles configuration loading for studio-gateway.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults. The resulting Config
// is the process-wide server identity: it is constructed once at startup and
// treated as read-only by every subsystem.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  session_secret: "${STUDIO_SESSION_SECRET}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	upstream:
//	  auth_timeout: "5s"
//	  data_timeout: "30s"
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//
// Upstream platform:
//
//	upstream:
//	  base_url: "https://shop.example.com/wp-json/studio/v1"
//	  secret_token: "${STUDIO_SHARED_SECRET}"
//
// Authentication:
//
//	auth:
//	  admin_user: "admin"
//	  admin_password_hash: "$2a$10$..."      # bcrypt, from `studio-gateway init`
//	  api_key: "${STUDIO_API_KEY}"           # optional platform API key pair
//	  api_secret: "${STUDIO_API_SECRET}"
//	  session_secret: "${STUDIO_SESSION_SECRET}"
//	  session_ttl: "12h"
//
// Storage:
//
//	database:
//	  path: "/var/lib/studio/gateway.db"
//	assets:
//	  dir: "/var/lib/studio/assets"
//	catalog:
//	  dir: "/var/lib/studio/catalog"
//
// Tailscale:
//
//	tailscale:
//	  enabled: false
//	  hostname: "studio-gateway"
//	  auth_key: "${TS_AUTHKEY}"
//	  https: true
//	  funnel: false
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Validation
//
// Load() validates:
//
//   - upstream.base_url and database.path are present
//   - session secret minimum length (32 bytes)
//   - credential pairs are set together or not at all
//   - duration format validity
package config
