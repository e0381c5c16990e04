package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/pagediff/api/handler"
	"github.com/use-agent/pagediff/api/middleware"
	"github.com/use-agent/pagediff/cache"
	"github.com/use-agent/pagediff/compare"
	"github.com/use-agent/pagediff/config"
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
func NewRouter(cp *compare.Comparer, cc *cache.Cache, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health stays outside auth.
	v1.GET("/health", handler.Health(cp, startTime))

	// Protected group: auth then rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/compare", handler.Compare(cp, cc, cfg))

	return r
}
