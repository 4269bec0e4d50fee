// internal/api/health.go
// Health check endpoint for monitoring

package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Version is set at build time via -ldflags; left as a constant default
// otherwise.
var Version = "dev"

// HealthCheck returns a health handler for this agent. It must answer in
// under a second and never requires auth (spec.md §5).
func HealthCheck(agentType, agentID string, startedAt time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":          "healthy",
			"agent_id":        agentID,
			"agent_type":      agentType,
			"uptime_seconds":  int(time.Since(startedAt).Seconds()),
			"version":         Version,
		})
	}
}
