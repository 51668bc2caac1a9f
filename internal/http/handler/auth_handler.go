package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/eharris128/mycontentbuddy/internal/config"
	"github.com/eharris128/mycontentbuddy/internal/http/middleware"
	authsvc "github.com/eharris128/mycontentbuddy/internal/service/auth"
	"github.com/eharris128/mycontentbuddy/internal/service/tweets"
	"github.com/eharris128/mycontentbuddy/internal/session"
)

// AuthHandler serves the login flow, session endpoints, and the cache /
// rate-limit introspection routes.
type AuthHandler struct {
	cfg      config.Config
	oauth    authsvc.OAuthService
	tweets   *tweets.Service
	sessions *session.Manager
}

// NewAuthHandler creates the handler set.
func NewAuthHandler(cfg config.Config, oauth authsvc.OAuthService, tweetService *tweets.Service, sessions *session.Manager) *AuthHandler {
	return &AuthHandler{cfg: cfg, oauth: oauth, tweets: tweetService, sessions: sessions}
}

// Start begins the PKCE flow. An already-authenticated session is bounced
// straight back to the app instead of re-authorizing.
func (h *AuthHandler) Start(c *gin.Context) {
	redirectPath := c.Query("redirect_url")

	if sess, ok := middleware.GetSession(c); ok && sess.Authenticated() {
		c.Redirect(http.StatusFound, h.clientRedirect(redirectPath, ""))
		return
	}

	authURL, err := h.oauth.StartAuthorization(c.Request.Context(), redirectPath)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.Redirect(http.StatusFound, authURL)
}

// Callback validates the provider redirect, exchanges the code, and parks
// the token behind a sync token for the SPA to redeem.
func (h *AuthHandler) Callback(c *gin.Context) {
	token, redirectPath, err := h.oauth.HandleCallback(c.Request.Context(), c.Query("code"), c.Query("state"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	syncToken, err := h.oauth.CreateHandoff(c.Request.Context(), token)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.Redirect(http.StatusFound, h.clientRedirect(redirectPath, syncToken))
}

// Sync redeems a sync token and binds the token it carries to the caller's
// session.
func (h *AuthHandler) Sync(c *gin.Context) {
	var req struct {
		SyncToken string `json:"syncToken"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.SyncToken) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "syncToken is required."})
		return
	}

	sess, ok := middleware.GetSession(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Session unavailable."})
		return
	}

	token, err := h.oauth.ConsumeHandoff(c.Request.Context(), req.SyncToken)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	sess.Token = token
	if err := h.sessions.Save(c.Request.Context(), sess); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "authenticated": true})
}

// Status reports whether the caller's session holds a token.
func (h *AuthHandler) Status(c *gin.Context) {
	sess, _ := middleware.GetSession(c)
	c.JSON(http.StatusOK, gin.H{"authenticated": sess.Authenticated()})
}

// Logout destroys the session server-side.
func (h *AuthHandler) Logout(c *gin.Context) {
	sess, _ := middleware.GetSession(c)
	if err := h.sessions.Destroy(c.Request.Context(), c.Writer, sess); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out."})
}

// Profile returns the authenticated user's profile (cached upstream call).
func (h *AuthHandler) Profile(c *gin.Context) {
	sess, _ := middleware.GetSession(c)
	payload, err := h.tweets.Profile(c.Request.Context(), sess)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", payload)
}

// CacheStatus reports response-cache entry counts per endpoint.
func (h *AuthHandler) CacheStatus(c *gin.Context) {
	status, err := h.tweets.CacheStatus(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": status})
}

// CacheClear drops every cached response.
func (h *AuthHandler) CacheClear(c *gin.Context) {
	deleted := h.tweets.ClearCache(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"cleared": deleted})
}

// RateLimitOverview exposes every live quota snapshot for the dashboard.
func (h *AuthHandler) RateLimitOverview(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"endpoints": h.tweets.RateLimitOverview(c.Request.Context())})
}

// RateLimitCheck exposes the advisory decision for a single endpoint. The
// endpoint name may contain slashes, hence the wildcard route parameter.
func (h *AuthHandler) RateLimitCheck(c *gin.Context) {
	endpoint := strings.TrimPrefix(c.Param("endpoint"), "/")
	if endpoint == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "endpoint is required."})
		return
	}
	c.JSON(http.StatusOK, h.tweets.CheckEndpoint(c.Request.Context(), endpoint))
}

// clientRedirect builds the SPA URL for post-login navigation, optionally
// carrying the sync token.
func (h *AuthHandler) clientRedirect(redirectPath, syncToken string) string {
	if redirectPath == "" || !strings.HasPrefix(redirectPath, "/") {
		redirectPath = "/"
	}
	target := strings.TrimRight(h.cfg.ClientURL, "/") + redirectPath
	if syncToken != "" {
		separator := "?"
		if strings.Contains(target, "?") {
			separator = "&"
		}
		target += separator + "sync=" + url.QueryEscape(syncToken)
	}
	return target
}
