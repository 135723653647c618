package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pitchside/internal/config"
	"github.com/pitchside/internal/domain"
	"github.com/pitchside/internal/news"
	"github.com/pitchside/internal/newsapi"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// getNews proxies the upstream search for the configured topic and returns
// the minimal article list
func (s *Server) getNews(c *gin.Context) {
	ctx := c.Request.Context()

	// Read per request so the credential can be rotated without a restart
	apiKey := config.NewsAPIKey()
	if apiKey == "" {
		s.logger.ErrorContext(ctx, "news API key is not configured", "env", config.NewsAPIKeyEnv)
		c.String(http.StatusInternalServerError, domain.ErrConfigMissing.Message)
		return
	}

	resp, err := s.news.Search(ctx, apiKey, s.config.News.Topic)
	if err != nil {
		if errors.Is(err, domain.ErrUpstreamFailed) {
			status := domain.UpstreamStatus(err)
			s.logger.WarnContext(ctx, "news provider returned an error",
				"status", status,
				"message", domain.PublicMessage(err),
			)
			c.String(status, domain.PublicMessage(err))
			return
		}
		s.logger.ErrorContext(ctx, "failed to query news provider", "error", err)
		c.String(http.StatusInternalServerError, err.Error())
		return
	}

	articles, err := newsapi.Minimal(resp.Articles)
	if err != nil {
		s.logger.WarnContext(ctx, "news provider returned invalid articles", "error", err)
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "Invalid response from news provider",
			Details: domain.PublicMessage(err),
		})
		return
	}

	s.logger.DebugContext(ctx, "news fetched", "topic", s.config.News.Topic, "count", len(articles))
	c.JSON(http.StatusOK, news.Response{Articles: articles})
}
