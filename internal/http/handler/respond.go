package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domainoauth "github.com/eharris128/mycontentbuddy/internal/domain/oauth"
	domaintwitter "github.com/eharris128/mycontentbuddy/internal/domain/twitter"
)

// respondServiceError maps domain errors onto the HTTP surface. Cache and
// snapshot-store failures never reach here; they are swallowed inside the
// store-facing components.
func respondServiceError(c *gin.Context, err error) {
	logger := zap.L()

	var rle *domaintwitter.RateLimitError
	if errors.As(err, &rle) {
		logger.Warn("rate limited by upstream", zap.String("endpoint", rle.Endpoint), zap.Error(err))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":           "rate_limited",
			"limit":           rle.Limit,
			"remaining":       0,
			"resetTime":       rle.Reset,
			"waitTimeSeconds": rle.WaitSeconds(time.Now()),
		})
		return
	}

	var apiErr *domaintwitter.APIError
	if errors.As(err, &apiErr) {
		status := apiErr.Status
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		logger.Warn("upstream error", zap.Int("status", apiErr.Status), zap.Error(err))
		c.JSON(status, gin.H{"error": "upstream_error", "error_description": apiErr.Body})
		return
	}

	switch {
	case errors.Is(err, domainoauth.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "redirectTo": "/auth/start"})
	case errors.Is(err, domainoauth.ErrInvalidCallback), errors.Is(err, domainoauth.ErrUnknownState):
		logger.Warn("invalid oauth callback", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": err.Error()})
	case errors.Is(err, domainoauth.ErrUnknownSyncToken), errors.Is(err, domainoauth.ErrExpiredSyncToken):
		c.JSON(http.StatusNotFound, gin.H{"error": "sync_token_invalid", "error_description": err.Error()})
	case errors.Is(err, domainoauth.ErrConfigIncomplete):
		logger.Error("oauth configuration incomplete", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "config_incomplete", "error_description": "OAuth client credentials are not configured."})
	case errors.Is(err, domainoauth.ErrTokenExchangeFailed):
		logger.Error("token exchange failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_exchange_failed", "error_description": err.Error()})
	case errors.Is(err, domaintwitter.ErrEmptyTweet), errors.Is(err, domaintwitter.ErrTweetTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_tweet", "error_description": err.Error()})
	default:
		logger.Error("service failure", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Internal server error."})
	}
}
