package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/eharris128/mycontentbuddy/internal/http/middleware"
	"github.com/eharris128/mycontentbuddy/internal/service/tweets"
)

// TweetHandler serves the timeline, lists, and posting routes.
type TweetHandler struct {
	tweets *tweets.Service
}

// NewTweetHandler creates the handler.
func NewTweetHandler(tweetService *tweets.Service) *TweetHandler {
	return &TweetHandler{tweets: tweetService}
}

// Post publishes a tweet from the request body.
func (h *TweetHandler) Post(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "text is required."})
		return
	}

	sess, _ := middleware.GetSession(c)
	payload, err := h.tweets.PostTweet(c.Request.Context(), sess, req.Text)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.Data(http.StatusCreated, "application/json", payload)
}

// PostRandom publishes the generated placeholder tweet.
func (h *TweetHandler) PostRandom(c *gin.Context) {
	sess, _ := middleware.GetSession(c)
	payload, err := h.tweets.PostRandomTweet(c.Request.Context(), sess)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.Data(http.StatusCreated, "application/json", payload)
}

// Timeline returns the cached home timeline.
func (h *TweetHandler) Timeline(c *gin.Context) {
	sess, _ := middleware.GetSession(c)
	payload, err := h.tweets.Timeline(c.Request.Context(), sess, queryInt(c, "limit"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", payload)
}

// Lists returns the lists the user owns.
func (h *TweetHandler) Lists(c *gin.Context) {
	sess, _ := middleware.GetSession(c)
	payload, err := h.tweets.OwnedLists(c.Request.Context(), sess)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", payload)
}

// ListMemberships returns the lists the user belongs to.
func (h *TweetHandler) ListMemberships(c *gin.Context) {
	sess, _ := middleware.GetSession(c)
	payload, err := h.tweets.ListMemberships(c.Request.Context(), sess)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", payload)
}

// ListTweets returns a list's recent tweets.
func (h *TweetHandler) ListTweets(c *gin.Context) {
	sess, _ := middleware.GetSession(c)
	payload, err := h.tweets.ListTweets(c.Request.Context(), sess, c.Param("id"), queryInt(c, "limit"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", payload)
}

// ListMembers returns a list's members.
func (h *TweetHandler) ListMembers(c *gin.Context) {
	sess, _ := middleware.GetSession(c)
	payload, err := h.tweets.ListMembers(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", payload)
}

func queryInt(c *gin.Context, key string) int {
	value, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return value
}
