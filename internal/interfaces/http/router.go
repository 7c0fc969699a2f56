// Package http wires the Gin delivery layer over the application services.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/favorize-app/multi-auth-sub004/config"
	"github.com/favorize-app/multi-auth-sub004/internal/application"
	"github.com/favorize-app/multi-auth-sub004/internal/interfaces/http/handlers"
	"github.com/favorize-app/multi-auth-sub004/internal/interfaces/http/middleware"
	"github.com/favorize-app/multi-auth-sub004/internal/metrics"
	"github.com/favorize-app/multi-auth-sub004/pkg/jwt"
	"github.com/favorize-app/multi-auth-sub004/pkg/logger"
)

// Router wraps the Gin engine with application dependencies.
type Router struct {
	engine *gin.Engine
	cfg    *config.Config
}

// RouterDeps contains dependencies needed by the router.
type RouterDeps struct {
	Services     *application.Services
	JWTManager   *jwt.Manager
	HealthChecks map[string]handlers.HealthChecker
	Registry     *prometheus.Registry
	Logger       logger.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(cfg *config.Config, deps *RouterDeps) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.NewRequestLoggerMiddleware(deps.Logger).Handler())

	authHandler := handlers.NewAuthHandler(deps.Services.Engine)
	sessionHandler := handlers.NewSessionHandler(
		deps.Services.Sessions,
		deps.Services.Scheduler,
		deps.Services.Engine,
	)
	healthHandler := handlers.NewHealthHandler(deps.HealthChecks)

	authMiddleware := middleware.NewAuthMiddleware(deps.JWTManager)

	// Health and metrics endpoints bypass rate limiting.
	engine.GET("/health", healthHandler.Health)
	engine.GET("/ready", healthHandler.Ready)
	engine.GET("/live", healthHandler.Live)
	if deps.Registry != nil {
		engine.GET("/metrics", gin.WrapH(metrics.Handler(deps.Registry)))
	}

	if cfg.Server.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
		engine.Use(limiter.Middleware())
	}
	engine.Use(corsMiddleware(cfg.Server.AllowedOrigins))

	auth := engine.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/logout", authHandler.Logout)
		auth.POST("/refresh", authHandler.Refresh)

		auth.POST("/oauth/begin", authHandler.OAuthBegin)
		auth.POST("/oauth/callback", authHandler.OAuthCallback)

		auth.POST("/anonymous", sessionHandler.CreateAnonymous)
		auth.POST("/anonymous/convert", sessionHandler.ConvertAnonymous)
		auth.DELETE("/anonymous/:anonymous_id", sessionHandler.TerminateAnonymous)
	}

	protected := engine.Group("/auth")
	protected.Use(authMiddleware.RequireAuth())
	{
		protected.GET("/session", sessionHandler.Current)
		protected.GET("/session/refresh-stats", sessionHandler.SchedulerStats)
		protected.GET("/user", sessionHandler.CurrentUser)

		protected.POST("/verify/send", authHandler.SendVerification)
		protected.POST("/verify", authHandler.VerifyEmail)

		protected.POST("/biometric/enable", authHandler.EnableBiometric)
		protected.POST("/biometric/disable", authHandler.DisableBiometric)
	}

	return &Router{
		engine: engine,
		cfg:    cfg,
	}
}

// Engine returns the underlying Gin engine.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// corsMiddleware creates a CORS middleware.
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, o := range allowedOrigins {
			if o == "*" || o == origin {
				allowed = true
				break
			}
		}

		if allowed {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Max-Age", "86400")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
