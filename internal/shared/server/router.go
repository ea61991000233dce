package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"descomplicacv/internal/conversions"
	"descomplicacv/internal/services/health"
	"descomplicacv/internal/shared/config"
	"descomplicacv/internal/shared/metrics"
	"descomplicacv/internal/shared/server/middleware"
	"descomplicacv/internal/shared/server/respond"
)

// RouterDeps carries the handlers mounted on the API router.
type RouterDeps struct {
	Config            config.Config
	ConversionHandler *conversions.Handler
	Health            *health.Service
}

// NewRouter constructs the Gin engine for the conversion API with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: middleware.ConversionRules(deps.Config.RateLimitRPS, deps.Config.RateLimitBurst),
		}),
	)

	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService()
	}
	r.GET("/health", func(c *gin.Context) {
		status := healthSvc.Status(c.Request.Context())
		code := http.StatusOK
		if ok, _ := status["ok"].(bool); !ok {
			code = http.StatusServiceUnavailable
		}
		respond.JSON(c, code, status)
	})
	r.GET("/metrics", metrics.Handler())

	if deps.ConversionHandler != nil {
		deps.ConversionHandler.RegisterRoutes(&r.RouterGroup)
	}

	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, "not_found", "route not found", nil)
	})

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8000"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
