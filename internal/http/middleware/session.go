package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eharris128/mycontentbuddy/internal/session"
)

const ginSessionKey = "mcb:session"

// Session resolves or creates the per-browser session and attaches it to the
// gin context. A session-store outage degrades the request to anonymous
// rather than failing it.
func Session(manager *session.Manager, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.L()
	}
	return func(c *gin.Context) {
		sess, err := manager.Ensure(c.Request.Context(), c.Writer, c.Request)
		if err != nil {
			logger.Warn("session unavailable, continuing anonymously", zap.Error(err))
			c.Next()
			return
		}
		c.Set(ginSessionKey, sess)
		c.Next()
	}
}

// GetSession returns the session attached by the Session middleware.
func GetSession(c *gin.Context) (*session.Session, bool) {
	value, ok := c.Get(ginSessionKey)
	if !ok {
		return nil, false
	}
	sess, ok := value.(*session.Session)
	return sess, ok && sess != nil
}
