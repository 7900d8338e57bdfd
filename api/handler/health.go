package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skylarkhq/gleaner/models"
)

// Health returns the handler for GET /api/v1/health.
//
// statsFn reports the local browser page pool; it is nil when the local
// engine is disabled. Status degrades when > 80% of pages are active.
func Health(statsFn func() *models.PoolStats, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		var stats *models.PoolStats
		if statsFn != nil {
			stats = statsFn()
		}

		status := "healthy"
		if stats != nil && stats.MaxPages > 0 && stats.ActivePages > int(float64(stats.MaxPages)*0.8) {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:    status,
			Uptime:    time.Since(startTime).Round(time.Second).String(),
			PoolStats: stats,
			Version:   "0.1.0",
		})
	}
}
