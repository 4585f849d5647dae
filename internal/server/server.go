// Package server exposes the analysis pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ppiankov/threadscope/internal/model"
	"github.com/ppiankov/threadscope/internal/pipeline"
)

// Analyzer is the slice of the pipeline the HTTP layer needs.
type Analyzer interface {
	Analyze(ctx context.Context, tweetURL string) (*model.Analysis, error)
}

type analyzeRequest struct {
	TweetURL string `json:"tweet_url" binding:"required"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewRouter builds the gin engine. Pass verbose=false for release mode.
func NewRouter(analyzer Analyzer, verbose bool) *gin.Engine {
	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.POST("/api/analyze", analyzeHandler(analyzer))

	return router
}

func analyzeHandler(analyzer Analyzer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req analyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "missing tweet_url in request"})
			return
		}

		analysis, err := analyzer.Analyze(c.Request.Context(), req.TweetURL)
		if err != nil {
			c.JSON(statusFor(err), errorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusOK, analysis)
	}
}

// statusFor maps pipeline error classes to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrNoTweets):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrSourceUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
