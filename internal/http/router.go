package http

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/eharris128/mycontentbuddy/internal/config"
	"github.com/eharris128/mycontentbuddy/internal/http/handler"
	httpmiddleware "github.com/eharris128/mycontentbuddy/internal/http/middleware"
	"github.com/eharris128/mycontentbuddy/internal/middleware"
	"github.com/eharris128/mycontentbuddy/internal/session"
)

// NewRouter wires Gin routes and middleware.
func NewRouter(
	cfg config.Config,
	logger *zap.Logger,
	sessions *session.Manager,
	authHandler *handler.AuthHandler,
	tweetHandler *handler.TweetHandler,
	rateLimiter *middleware.RateLimiter,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(logger))
	if rateLimiter != nil {
		r.Use(rateLimiter.Handler())
	}
	r.Use(httpmiddleware.CORS(cfg))
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(httpmiddleware.Session(sessions, logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authGroup := r.Group("/auth")
	{
		authGroup.GET("/start", authHandler.Start)
		authGroup.GET("/callback", authHandler.Callback)
		authGroup.POST("/sync", authHandler.Sync)
		authGroup.GET("/status", authHandler.Status)
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.GET("/profile", authHandler.Profile)

		authGroup.GET("/lists/cache/status", authHandler.CacheStatus)
		authGroup.POST("/lists/cache/clear", authHandler.CacheClear)

		authGroup.GET("/rate-limits/overview", authHandler.RateLimitOverview)
		authGroup.GET("/rate-limits/check/*endpoint", authHandler.RateLimitCheck)
	}

	api := r.Group("/api")
	{
		api.POST("/tweet", tweetHandler.Post)
		api.POST("/tweet/random", tweetHandler.PostRandom)
		api.GET("/timeline", tweetHandler.Timeline)
		api.GET("/lists", tweetHandler.Lists)
		api.GET("/lists/memberships", tweetHandler.ListMemberships)
		api.GET("/lists/:id/tweets", tweetHandler.ListTweets)
		api.GET("/lists/:id/members", tweetHandler.ListMembers)
	}

	// UI is served only as static files; all playground logic stays on the
	// API routes.
	attachUIRoutes(r, filepath.Join("ui", "dist"))

	return r
}

func attachUIRoutes(r *gin.Engine, distDir string) {
	indexPath := filepath.Join(distDir, "index.html")

	r.NoRoute(func(c *gin.Context) {
		path := c.Request.URL.Path
		if isAPIPath(path) {
			c.Status(http.StatusNotFound)
			return
		}

		if filePath, ok := safeJoin(distDir, path); ok {
			if info, err := os.Stat(filePath); err == nil && !info.IsDir() {
				c.File(filePath)
				return
			}
		}

		c.File(indexPath)
	})
}

func isAPIPath(path string) bool {
	return strings.HasPrefix(path, "/auth") ||
		strings.HasPrefix(path, "/api") ||
		strings.HasPrefix(path, "/healthz")
}

func safeJoin(baseDir, requestPath string) (string, bool) {
	trimmed := strings.TrimPrefix(requestPath, "/")
	cleaned := filepath.Clean(trimmed)
	if cleaned == "." {
		return filepath.Join(baseDir, cleaned), true
	}
	if strings.HasPrefix(cleaned, "..") {
		return "", false
	}
	return filepath.Join(baseDir, cleaned), true
}
