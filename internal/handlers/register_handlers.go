package handlers

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"

	portssvc "github.com/ratesink/lkr_rates_backend/internal/core/ports/services"
	"github.com/ratesink/lkr_rates_backend/internal/middleware"
	"github.com/ratesink/lkr_rates_backend/internal/platform/config"
)

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	limiterInstance *limiter.Limiter,
) {
	r.Use(cors.New(corsConfig(cfg)))

	registerHomeRoutes(r)

	// Add health check route
	r.GET("/health", func(c *gin.Context) {
		c.String(200, "OK")
	})

	setupAPIV1Routes(r, services, limiterInstance)
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific route registrations
func setupAPIV1Routes(
	r *gin.Engine,
	services *portssvc.ServiceContainer,
	limiterInstance *limiter.Limiter,
) {
	// A cold date on this group triggers fetches against external portals,
	// so inbound traffic is rate limited per client IP.
	v1 := r.Group("/api/v1", middleware.RateLimit(limiterInstance))

	RegisterRateRoutes(v1, services.Resolver, services.Importer)
}

func corsConfig(cfg *config.Config) cors.Config {
	corsCfg := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	return corsCfg
}
