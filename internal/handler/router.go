package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kpressOrg/user-service/shared/logging"
	"github.com/kpressOrg/user-service/shared/middleware"
)

const readinessTimeout = 2 * time.Second

// HealthChecker is a dependency probed by /ready.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	Logger         *slog.Logger
	RequestTimeout time.Duration
	RateLimit      int // login and register requests per minute per IP; 0 disables
	CORSOrigins    []string
	Verifier       middleware.TokenVerifier
	Checks         map[string]HealthChecker
	Metrics        http.Handler
}

// NewRouter wires every route of the service.
func NewRouter(auth *AuthHandler, users *UserHandler, cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.LoggingMiddleware(cfg.Logger),
		middleware.CORS(cfg.CORSOrigins),
		middleware.Timeout(cfg.RequestTimeout),
	)

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, "user service")
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", readiness(cfg.Checks))
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	limit := middleware.RateLimitPerMinute(cfg.RateLimit)
	a := r.Group("/auth")
	{
		a.POST("/register", limit, auth.Register)
		a.POST("/login", limit, auth.Login)
		a.POST("/verify", auth.VerifyToken)
		a.GET("/me", middleware.AuthMiddleware(cfg.Verifier), auth.Me)
	}

	r.GET("/users", users.ListUsers)
	r.GET("/all", users.ListUsers)
	r.PATCH("/user/:id", users.UpdateUser)
	r.PUT("/user/:id", users.UpdateUser)
	r.DELETE("/user/:id", users.DeleteUser)

	return r
}

func readiness(checks map[string]HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()

		status, code := "ok", http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check.Ping(ctx); err != nil {
				logging.FromContext(ctx).Warn("readiness check failed", "check", name, "error", err)
				results[name] = "unavailable"
				status, code = "degraded", http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		c.JSON(code, gin.H{"status": status, "checks": results})
	}
}
