// ABOUTME: HTTP client for the commerce platform that owns products, orders and users
// ABOUTME: Applies the shared-secret URL stamp and per-call timeouts, never retries

package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/2389/studio-gateway/internal/config"
)

// Client errors. Callers branch on these with errors.Is to map upstream
// failures to rejection reasons.
var (
	// ErrUnreachable means the platform could not be reached (network error or timeout).
	ErrUnreachable = errors.New("upstream unreachable")

	// ErrRejected means the platform answered with an explicit failure status.
	ErrRejected = errors.New("upstream rejected request")

	// ErrMalformedResponse means the platform answered 2xx with an unrecognized body.
	ErrMalformedResponse = errors.New("malformed upstream response")
)

// secretParam is the query parameter carrying the shared-secret stamp.
const secretParam = "ss"

// SessionValidation is the platform's answer to a cookie/nonce validation call.
type SessionValidation struct {
	Valid  bool   `json:"valid"`
	UserID string `json:"user_id"`
}

// Client issues outbound requests to the platform. Validation calls use a
// short timeout appropriate to a synchronous authorization check; data calls
// (catalog, orders, proxy) use a longer one. There are no automatic retries:
// a failed call is a failed call, the auth chain decides what happens next.
type Client struct {
	base   *url.URL
	secret string

	authClient *http.Client
	dataClient *http.Client

	logger *slog.Logger
}

// New creates a platform client from upstream configuration.
func New(cfg config.UpstreamConfig, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing upstream base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("upstream base URL %q must be absolute", cfg.BaseURL)
	}

	return &Client{
		base:       base,
		secret:     cfg.SecretToken,
		authClient: &http.Client{Timeout: cfg.AuthTimeout},
		dataClient: &http.Client{Timeout: cfg.DataTimeout},
		logger:     logger.With("component", "upstream"),
	}, nil
}

// BaseURL returns the parsed platform base URL.
func (c *Client) BaseURL() *url.URL {
	u := *c.base
	return &u
}

// buildURL joins path onto the base URL and applies the shared-secret stamp.
// Token endpoints are never stamped: the bearer token itself is the credential
// there, and the stamp would leak the shared secret to token logs.
func (c *Client) buildURL(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path

	q := u.Query()
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	if c.secret != "" && !isTokenEndpoint(path) {
		q.Set(secretParam, c.secret)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// isTokenEndpoint reports whether the path targets the bearer-token surface.
func isTokenEndpoint(path string) bool {
	return strings.HasPrefix(path, "/token/")
}

// ValidateSession asks the platform whether the given cookie header (and
// optional nonce) identifies a live session.
//
// A nil error with Valid=false means the platform answered and said no.
// Network failures return ErrUnreachable, explicit non-2xx answers return
// ErrRejected, and undecodable bodies return ErrMalformedResponse.
func (c *Client) ValidateSession(ctx context.Context, cookieHeader, nonce string) (SessionValidation, error) {
	query := url.Values{}
	if nonce != "" {
		query.Set("nonce", nonce)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL("/session/validate", query), nil)
	if err != nil {
		return SessionValidation{}, fmt.Errorf("building session validation request: %w", err)
	}
	if cookieHeader != "" {
		req.Header.Set("Cookie", cookieHeader)
	}

	resp, err := c.authClient.Do(req)
	if err != nil {
		return SessionValidation{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return SessionValidation{}, fmt.Errorf("%w: session validation returned %d", ErrRejected, resp.StatusCode)
	}

	var sv SessionValidation
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&sv); err != nil {
		return SessionValidation{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return sv, nil
}

// ValidateToken forwards a bearer token to the platform's token-validation
// endpoint and returns the authenticated platform user ID.
//
// The platform answers success in exactly two shapes:
//
//	{"data": {"user": {"id": ...}}}
//	{"data": {"status": 200, "id": ...}}
//
// Anything else is a failure. The matcher is strict on purpose: groping at
// nested fields hides upstream contract drift.
func (c *Client) ValidateToken(ctx context.Context, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL("/token/validate", nil), nil)
	if err != nil {
		return "", fmt.Errorf("building token validation request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.authClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: token validation returned %d", ErrRejected, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	userID, err := matchTokenValidation(body)
	if err != nil {
		return "", err
	}
	return userID, nil
}

// flexID accepts the platform's user identifiers, which arrive as either a
// JSON number or a string depending on the endpoint.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexID(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexID(s)
	return nil
}

// matchTokenValidation applies the strict two-shape matcher for token
// validation success bodies. It returns the user ID, or ErrMalformedResponse
// if the body matches neither known shape.
func matchTokenValidation(body []byte) (string, error) {
	var envelope struct {
		Data *struct {
			User *struct {
				ID flexID `json:"id"`
			} `json:"user"`
			Status int    `json:"status"`
			ID     flexID `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Data == nil {
		return "", fmt.Errorf("%w: token validation body", ErrMalformedResponse)
	}

	// Shape (a): nested user object with an id.
	if envelope.Data.User != nil && envelope.Data.User.ID != "" {
		return string(envelope.Data.User.ID), nil
	}

	// Shape (b): status object reporting 200.
	if envelope.Data.Status == http.StatusOK && envelope.Data.ID != "" {
		return string(envelope.Data.ID), nil
	}

	return "", fmt.Errorf("%w: token validation body matches no known shape", ErrMalformedResponse)
}

// get issues a stamped GET data call and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(path, query), nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := c.dataClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: GET %s returned %d", ErrRejected, path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// Product is the platform's view of a sellable product.
type Product struct {
	ID        flexID `json:"id"`
	Name      string `json:"name"`
	Permalink string `json:"permalink"`
	Price     string `json:"price"`
}

// FetchProducts lists products from the platform.
func (c *Client) FetchProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := c.get(ctx, "/products", nil, &products); err != nil {
		return nil, fmt.Errorf("fetching products: %w", err)
	}
	return products, nil
}

// OrderItem is a single line of a platform order, carrying the design
// references the studio attached at purchase time.
type OrderItem struct {
	ProductID flexID   `json:"product_id"`
	Quantity  int      `json:"quantity"`
	DesignID  string   `json:"design_id"`
	AssetIDs  []string `json:"asset_ids"`
}

// Order is the platform's view of a placed order.
type Order struct {
	ID     flexID      `json:"id"`
	Number string      `json:"number"`
	Status string      `json:"status"`
	Items  []OrderItem `json:"line_items"`
}

// FetchOrder retrieves a single order by ID.
func (c *Client) FetchOrder(ctx context.Context, orderID string) (*Order, error) {
	var order Order
	if err := c.get(ctx, "/orders/"+url.PathEscape(orderID), nil, &order); err != nil {
		return nil, fmt.Errorf("fetching order %s: %w", orderID, err)
	}
	return &order, nil
}

// DesignDocument is the stored design JSON for an order item.
type DesignDocument struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// FetchDesign retrieves the design document referenced by an order item.
func (c *Client) FetchDesign(ctx context.Context, designID string) (*DesignDocument, error) {
	var doc DesignDocument
	if err := c.get(ctx, "/designs/"+url.PathEscape(designID), nil, &doc); err != nil {
		return nil, fmt.Errorf("fetching design %s: %w", designID, err)
	}
	return &doc, nil
}

// ProxyDirector returns a reverse-proxy director that rewrites inbound
// requests under the given route prefix onto the platform, applying the
// shared-secret stamp. Hop-by-hop concerns are left to httputil.
func (c *Client) ProxyDirector(prefix string) func(*http.Request) {
	return func(req *http.Request) {
		suffix := strings.TrimPrefix(req.URL.Path, prefix)
		if !strings.HasPrefix(suffix, "/") {
			suffix = "/" + suffix
		}

		target := *c.base
		req.URL.Scheme = target.Scheme
		req.URL.Host = target.Host
		req.URL.Path = strings.TrimRight(target.Path, "/") + suffix
		req.Host = target.Host

		q := req.URL.Query()
		if c.secret != "" && !isTokenEndpoint(suffix) {
			q.Set(secretParam, c.secret)
		}
		req.URL.RawQuery = q.Encode()

		// The gateway's own credentials must not leak to the platform.
		req.Header.Del("Authorization")
		req.Header.Del("X-Studio-Session")

		c.logger.Debug("proxying platform call", "method", req.Method, "path", suffix)
	}
}

// PostJSON issues a stamped POST data call with a JSON body and decodes the
// response into out (out may be nil to discard).
func (c *Client) PostJSON(ctx context.Context, path string, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(path, nil), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.dataClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: POST %s returned %d", ErrRejected, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
