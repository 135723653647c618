package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// getHealth reports liveness together with host and process statistics
func (s *Server) getHealth(c *gin.Context) {
	stats := s.stats.Collect(c.Request.Context())

	s.logger.DebugContext(c.Request.Context(), "health statistics collected",
		"cpu", stats.CPU.UsagePercent,
		"memory", stats.Memory.UsagePercent,
		"rss", stats.Process.ResidentBytes)

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "pitchside",
		"stats":   stats,
	})
}
