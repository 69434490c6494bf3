package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"roast-backend/internal/roast"
	"roast-backend/internal/roasts"
	"roast-backend/internal/services/health"
	"roast-backend/internal/shared/config"
	"roast-backend/internal/shared/metrics"
	"roast-backend/internal/shared/server/middleware"
	"roast-backend/internal/shared/server/respond"
)

// RouterDeps groups handlers for router wiring.
type RouterDeps struct {
	Config        config.Config
	RoastHandler  *roast.Handler
	RoastsHandler *roasts.Handler
	RateLimiter   *middleware.RateLimiter
	Health        *health.Service
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)
	r.NoMethod(func(c *gin.Context) {
		respond.Error(c, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	})
	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, "not_found", "Not found")
	})

	r.GET("/metrics", metrics.Handler())

	limiter := deps.RateLimiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(nil)
	}
	if deps.RoastHandler != nil {
		fn := r.Group("",
			middleware.ServiceAuth(deps.Config.ServiceRoleSecret),
			middleware.RateLimit(middleware.PerMinute(deps.Config.RoastRatePerMinute, deps.Config.RoastRateBurst), limiter),
		)
		deps.RoastHandler.RegisterRoutes(fn)
	}

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		report := deps.Health.Status(c.Request.Context())
		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
	})
	if deps.RoastsHandler != nil {
		deps.RoastsHandler.RegisterRoutes(api)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
