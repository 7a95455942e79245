// ABOUTME: HTTP API handlers for login, catalog, assets, order archives, and the platform proxy
// ABOUTME: All /api routes except login sit behind the authentication gate

package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/2389/studio-gateway/internal/assets"
	"github.com/2389/studio-gateway/internal/auth"
	"github.com/2389/studio-gateway/internal/catalog"
	"github.com/2389/studio-gateway/internal/upstream"
)

// maxUploadBytes caps multipart asset uploads.
const maxUploadBytes = 64 << 20

// registerRoutes wires all HTTP routes onto the mux. Health and the two
// login endpoints are open; everything else goes through the gate, with
// mutations additionally requiring an administrator principal.
func (g *Gateway) registerRoutes(mux *http.ServeMux) {
	authed := g.gate.Middleware()
	admin := func(h http.Handler) http.Handler {
		return authed(g.gate.RequireAdmin()(h))
	}

	mux.HandleFunc("GET /health", g.handleHealth)
	mux.HandleFunc("POST /api/login", g.handleLogin)
	mux.HandleFunc("POST /api/session", g.handleSessionLogin)

	mux.Handle("POST /api/logout", authed(http.HandlerFunc(g.handleLogout)))
	mux.Handle("GET /api/me", authed(http.HandlerFunc(g.handleMe)))

	mux.Handle("GET /api/products", authed(http.HandlerFunc(g.handleListProducts)))
	mux.Handle("GET /api/products/platform", authed(http.HandlerFunc(g.handlePlatformProducts)))
	mux.Handle("GET /api/products/{id}", authed(http.HandlerFunc(g.handleGetProduct)))
	mux.Handle("PUT /api/products/{id}", admin(http.HandlerFunc(g.handlePutProduct)))
	mux.Handle("DELETE /api/products/{id}", admin(http.HandlerFunc(g.handleDeleteProduct)))

	mux.Handle("GET /api/links", authed(http.HandlerFunc(g.handleListLinks)))
	mux.Handle("GET /api/links/{name}", authed(http.HandlerFunc(g.handleGetLink)))
	mux.Handle("PUT /api/links/{name}", admin(http.HandlerFunc(g.handlePutLink)))
	mux.Handle("DELETE /api/links/{name}", admin(http.HandlerFunc(g.handleDeleteLink)))

	mux.Handle("GET /api/assets/{kind}", authed(http.HandlerFunc(g.handleListAssets)))
	mux.Handle("POST /api/assets/{kind}", authed(http.HandlerFunc(g.handleUploadAsset)))
	mux.Handle("GET /api/assets/{kind}/{id}", authed(http.HandlerFunc(g.handleDownloadAsset)))
	mux.Handle("DELETE /api/assets/{kind}/{id}", admin(http.HandlerFunc(g.handleDeleteAsset)))

	mux.Handle("GET /api/orders/{id}/download", admin(http.HandlerFunc(g.handleOrderDownload)))

	proxy := &httputil.ReverseProxy{
		Director: g.platform.ProxyDirector("/api/platform"),
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			g.logger.Warn("platform proxy error", "path", r.URL.Path, "error", err)
			writeError(w, http.StatusBadGateway, "platform unreachable")
		},
	}
	mux.Handle("/api/platform/", admin(proxy))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	Role      string `json:"role"`
	ExpiresIn int64  `json:"expires_in"`
}

// handleLogin authenticates the local admin credential pair and issues a
// session token. The platform is never consulted.
func (g *Gateway) handleLogin(w http.ResponseWriter, r *http.Request) {
	if g.config.Auth.AdminUser == "" {
		writeError(w, http.StatusNotFound, "local admin login is not configured")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username != g.config.Auth.AdminUser ||
		bcrypt.CompareHashAndPassword([]byte(g.config.Auth.AdminPasswordHash), []byte(req.Password)) != nil {
		g.logger.Info("admin login rejected", "username", req.Username)
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := g.sessions.Issue(r.Context(), "1", auth.RoleAdministrator, auth.MethodLocalAdmin)
	if err != nil {
		g.logger.Error("issuing admin session", "error", err)
		writeError(w, http.StatusInternalServerError, "could not create session")
		return
	}

	g.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		Role:      string(auth.RoleAdministrator),
		ExpiresIn: int64(g.sessions.TTL() / time.Second),
	})
}

type sessionLoginRequest struct {
	Nonce string `json:"nonce"`
}

// handleSessionLogin exchanges a valid platform cookie (or nonce) for a
// locally issued session token, so subsequent requests can use the
// cookie-auth path without round-tripping upstream.
func (g *Gateway) handleSessionLogin(w http.ResponseWriter, r *http.Request) {
	var req sessionLoginRequest
	if r.Body != nil {
		// Body is optional; the platform cookie alone is enough.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	sv, err := g.platform.ValidateSession(r.Context(), r.Header.Get("Cookie"), req.Nonce)
	if err != nil {
		g.logger.Info("platform session login failed", "error", err)
		writeError(w, http.StatusUnauthorized, "platform session validation failed")
		return
	}
	if !sv.Valid || sv.UserID == "" {
		writeError(w, http.StatusUnauthorized, "platform session rejected")
		return
	}

	token, err := g.sessions.Issue(r.Context(), sv.UserID, auth.RoleUnknown, auth.MethodCookieSession)
	if err != nil {
		g.logger.Error("issuing cookie session", "error", err)
		writeError(w, http.StatusInternalServerError, "could not create session")
		return
	}

	g.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		Role:      string(auth.RoleUnknown),
		ExpiresIn: int64(g.sessions.TTL() / time.Second),
	})
}

func (g *Gateway) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(g.sessions.TTL() / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// handleLogout revokes the caller's session token, if one accompanies the
// request.
func (g *Gateway) handleLogout(w http.ResponseWriter, r *http.Request) {
	cred := auth.ClassifyRequest(r)
	if cred.SessionToken == "" {
		writeError(w, http.StatusBadRequest, "no session token to revoke")
		return
	}

	if err := g.sessions.Revoke(r.Context(), cred.SessionToken); err != nil && !errors.Is(err, auth.ErrInvalidSession) {
		g.logger.Error("revoking session", "error", err)
		writeError(w, http.StatusInternalServerError, "could not revoke session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// handleMe returns the authenticated principal.
func (g *Gateway) handleMe(w http.ResponseWriter, r *http.Request) {
	p := auth.FromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{
		"id":     p.ID,
		"role":   string(p.Role),
		"method": string(p.Method),
	})
}

func (g *Gateway) handleListProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, g.catalog.ListProducts())
}

// handlePlatformProducts fetches the live product list from the platform.
func (g *Gateway) handlePlatformProducts(w http.ResponseWriter, r *http.Request) {
	products, err := g.platform.FetchProducts(r.Context())
	if err != nil {
		g.writeUpstreamError(w, "fetching products", err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (g *Gateway) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := g.catalog.GetProduct(r.PathValue("id"))
	if errors.Is(err, catalog.ErrProductNotFound) {
		writeError(w, http.StatusNotFound, "product settings not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not read product settings")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (g *Gateway) handlePutProduct(w http.ResponseWriter, r *http.Request) {
	var settings catalog.ProductSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	settings.ProductID = r.PathValue("id")

	if err := g.catalog.PutProduct(&settings); err != nil {
		g.logger.Error("saving product settings", "product_id", settings.ProductID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not save product settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (g *Gateway) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	err := g.catalog.DeleteProduct(r.PathValue("id"))
	if errors.Is(err, catalog.ErrProductNotFound) {
		writeError(w, http.StatusNotFound, "product settings not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not delete product settings")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (g *Gateway) handleListLinks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, g.catalog.ListLinks())
}

func (g *Gateway) handleGetLink(w http.ResponseWriter, r *http.Request) {
	l, err := g.catalog.GetLink(r.PathValue("name"))
	if errors.Is(err, catalog.ErrLinkNotFound) {
		writeError(w, http.StatusNotFound, "link not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not read link")
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (g *Gateway) handlePutLink(w http.ResponseWriter, r *http.Request) {
	var link catalog.Link
	if err := json.NewDecoder(r.Body).Decode(&link); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	link.Name = r.PathValue("name")

	if err := g.catalog.PutLink(&link); err != nil {
		if link.Target == "" {
			writeError(w, http.StatusBadRequest, "target is required")
			return
		}
		g.logger.Error("saving link", "name", link.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "could not save link")
		return
	}
	writeJSON(w, http.StatusOK, link)
}

func (g *Gateway) handleDeleteLink(w http.ResponseWriter, r *http.Request) {
	err := g.catalog.DeleteLink(r.PathValue("name"))
	if errors.Is(err, catalog.ErrLinkNotFound) {
		writeError(w, http.StatusNotFound, "link not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not delete link")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (g *Gateway) handleListAssets(w http.ResponseWriter, r *http.Request) {
	list, err := g.assets.List(r.PathValue("kind"))
	if errors.Is(err, assets.ErrInvalidKind) {
		writeError(w, http.StatusNotFound, "unknown asset kind")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not list assets")
		return
	}
	if list == nil {
		list = []*assets.Meta{}
	}
	writeJSON(w, http.StatusOK, list)
}

// handleUploadAsset accepts a multipart upload and stores the first file
// part as a new asset of the requested kind.
func (g *Gateway) handleUploadAsset(w http.ResponseWriter, r *http.Request) {
	kind := r.PathValue("kind")
	if !assets.ValidKind(kind) {
		writeError(w, http.StatusNotFound, "unknown asset kind")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	meta, err := g.assets.Save(kind, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		g.logger.Error("saving asset", "kind", kind, "name", header.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, "could not save asset")
		return
	}

	g.logger.Info("asset uploaded", "kind", kind, "asset_id", meta.ID, "size", meta.Size)
	writeJSON(w, http.StatusCreated, meta)
}

func (g *Gateway) handleDownloadAsset(w http.ResponseWriter, r *http.Request) {
	meta, rc, err := g.assets.Open(r.PathValue("kind"), r.PathValue("id"))
	if errors.Is(err, assets.ErrNotFound) || errors.Is(err, assets.ErrInvalidID) || errors.Is(err, assets.ErrInvalidKind) {
		writeError(w, http.StatusNotFound, "asset not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not open asset")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", meta.ContentType)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", meta.Size))
	if _, err := io.Copy(w, rc); err != nil {
		g.logger.Warn("streaming asset", "asset_id", meta.ID, "error", err)
	}
}

func (g *Gateway) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	err := g.assets.Delete(r.PathValue("kind"), r.PathValue("id"))
	if errors.Is(err, assets.ErrNotFound) || errors.Is(err, assets.ErrInvalidID) || errors.Is(err, assets.ErrInvalidKind) {
		writeError(w, http.StatusNotFound, "asset not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not delete asset")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleOrderDownload assembles a ZIP of the order's designs and uploaded
// assets. The archive is buffered so upstream failures surface as JSON
// errors instead of truncated downloads.
func (g *Gateway) handleOrderDownload(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")

	order, err := g.platform.FetchOrder(r.Context(), orderID)
	if err != nil {
		g.writeUpstreamError(w, "fetching order", err)
		return
	}

	var buf bytes.Buffer
	if err := g.archives.WriteOrder(r.Context(), &buf, order); err != nil {
		g.logger.Error("building order archive", "order_id", orderID, "error", err)
		writeError(w, http.StatusBadGateway, "could not assemble order archive")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "order-"+orderID+".zip"))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", buf.Len()))
	_, _ = w.Write(buf.Bytes())
}

// writeUpstreamError maps upstream error classes onto HTTP statuses.
func (g *Gateway) writeUpstreamError(w http.ResponseWriter, op string, err error) {
	g.logger.Warn(op, "error", err)
	switch {
	case errors.Is(err, upstream.ErrUnreachable):
		writeError(w, http.StatusBadGateway, "platform unreachable")
	case errors.Is(err, upstream.ErrRejected):
		writeError(w, http.StatusNotFound, "platform rejected the request")
	default:
		writeError(w, http.StatusBadGateway, "unexpected platform response")
	}
}
