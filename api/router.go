package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skylarkhq/gleaner/api/handler"
	"github.com/skylarkhq/gleaner/api/middleware"
	"github.com/skylarkhq/gleaner/config"
	"github.com/skylarkhq/gleaner/engine"
	"github.com/skylarkhq/gleaner/models"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes
// always work.
func NewRouter(eng *engine.Engine, statsFn func() *models.PoolStats, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health — no auth required.
	v1.GET("/health", handler.Health(statsFn, startTime))

	// Protected group — auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/execute", handler.Execute(eng))

	return r
}
