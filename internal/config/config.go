// ABOUTME: Configuration loading and parsing for studio-gateway
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// MinSessionSecretLength is the minimum byte length for the session signing secret.
const MinSessionSecretLength = 32

// Config represents the complete studio-gateway configuration.
// It is populated once at startup and never mutated afterwards; every
// subsystem receives it (or a sub-struct) as a read-only handle.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Upstream  UpstreamConfig  `yaml:"upstream"`
	Auth      AuthConfig      `yaml:"auth"`
	Database  DatabaseConfig  `yaml:"database"`
	Assets    AssetsConfig    `yaml:"assets"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Hostname  string `yaml:"hostname"`
	AuthKey   string `yaml:"auth_key"`
	StateDir  string `yaml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral"`
	HTTPS     bool   `yaml:"https"`  // Serve HTTPS with Tailscale-provisioned certs
	Funnel    bool   `yaml:"funnel"` // Enable public Funnel (implies HTTPS)
}

// UpstreamConfig holds the connection settings for the commerce platform
// that owns products, orders and users.
type UpstreamConfig struct {
	BaseURL string `yaml:"base_url"`

	// SecretToken is the shared-secret stamp appended as a query parameter
	// to every outbound platform URL except token-validation calls.
	// Optional; when empty no stamp is applied.
	SecretToken string `yaml:"secret_token"`

	AuthTimeout time.Duration `yaml:"-"`
	DataTimeout time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	AuthTimeoutRaw string `yaml:"auth_timeout"`
	DataTimeoutRaw string `yaml:"data_timeout"`
}

// AuthConfig holds the server identity: the local admin credential pair,
// the optional platform API key pair, and the session token secret.
type AuthConfig struct {
	// AdminUser/AdminPasswordHash are the local admin shortcut credentials.
	// The hash is a bcrypt hash of the password; generate with `studio-gateway init`.
	AdminUser         string `yaml:"admin_user"`
	AdminPasswordHash string `yaml:"admin_password_hash"`

	// APIKey/APISecret are the server-held platform API credentials.
	// When both are set, requests are treated as pre-authenticated
	// administrators (deployment-level trust, not per-user auth).
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`

	// SessionSecret signs locally issued session tokens.
	SessionSecret string `yaml:"session_secret"`

	SessionTTL time.Duration `yaml:"-"`

	SessionTTLRaw string `yaml:"session_ttl"`
}

// APIKeyConfigured reports whether the platform API key pair is set.
func (a AuthConfig) APIKeyConfigured() bool {
	return a.APIKey != "" && a.APISecret != ""
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AssetsConfig holds the binary asset storage location.
type AssetsConfig struct {
	Dir string `yaml:"dir"`
}

// CatalogConfig holds the JSON lookup-table storage location.
type CatalogConfig struct {
	Dir string `yaml:"dir"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyDefaults fills in defaults for optional fields.
func applyDefaults(cfg *Config) {
	if cfg.Upstream.AuthTimeout == 0 {
		// Validation calls sit on the synchronous request path; keep them short.
		cfg.Upstream.AuthTimeout = 5 * time.Second
	}
	if cfg.Upstream.DataTimeout == 0 {
		cfg.Upstream.DataTimeout = 30 * time.Second
	}
	if cfg.Auth.SessionTTL == 0 {
		cfg.Auth.SessionTTL = 12 * time.Hour
	}
	if cfg.Assets.Dir == "" {
		cfg.Assets.Dir = "assets"
	}
	if cfg.Catalog.Dir == "" {
		cfg.Catalog.Dir = "catalog"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	// Server address is required unless Tailscale is enabled
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}

	// Tailscale requires a hostname
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream.base_url is required")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Auth.SessionSecret != "" && len(c.Auth.SessionSecret) < MinSessionSecretLength {
		return fmt.Errorf("auth.session_secret must be at least %d bytes", MinSessionSecretLength)
	}

	// The local admin login is only usable when both halves are configured.
	if (c.Auth.AdminUser == "") != (c.Auth.AdminPasswordHash == "") {
		return fmt.Errorf("auth.admin_user and auth.admin_password_hash must be set together")
	}

	if (c.Auth.APIKey == "") != (c.Auth.APISecret == "") {
		return fmt.Errorf("auth.api_key and auth.api_secret must be set together")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Upstream.AuthTimeoutRaw != "" {
		cfg.Upstream.AuthTimeout, err = time.ParseDuration(cfg.Upstream.AuthTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing auth_timeout %q: %w", cfg.Upstream.AuthTimeoutRaw, err)
		}
	}

	if cfg.Upstream.DataTimeoutRaw != "" {
		cfg.Upstream.DataTimeout, err = time.ParseDuration(cfg.Upstream.DataTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing data_timeout %q: %w", cfg.Upstream.DataTimeoutRaw, err)
		}
	}

	if cfg.Auth.SessionTTLRaw != "" {
		cfg.Auth.SessionTTL, err = time.ParseDuration(cfg.Auth.SessionTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing session_ttl %q: %w", cfg.Auth.SessionTTLRaw, err)
		}
	}

	return nil
}
