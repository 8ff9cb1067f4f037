package handlers

import (
	"fmt"
	"time"

	"github.com/SscSPs/blog_backend/cmd/docs"
	portsrepo "github.com/SscSPs/blog_backend/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/blog_backend/internal/core/ports/services"
	"github.com/SscSPs/blog_backend/internal/middleware"
	"github.com/SscSPs/blog_backend/internal/platform/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/ulule/limiter/v3"
)

// RateLimiters holds the per-route throttles. A nil limiter disables throttling
// for that route.
type RateLimiters struct {
	Login    *limiter.Limiter
	Register *limiter.Limiter
}

// NewRateLimiters builds the login and register throttles from cfg over store.
func NewRateLimiters(cfg *config.Config, store limiter.Store) (RateLimiters, error) {
	login, err := middleware.NewLimiter(cfg.LoginRateLimit, cfg.LoginRatePeriod, store)
	if err != nil {
		return RateLimiters{}, fmt.Errorf("login rate limit: %w", err)
	}
	register, err := middleware.NewLimiter(cfg.RegisterRateLimit, cfg.RegisterRatePeriod, store)
	if err != nil {
		return RateLimiters{}, fmt.Errorf("register rate limit: %w", err)
	}
	return RateLimiters{Login: login, Register: register}, nil
}

func (l RateLimiters) handler(lim *limiter.Limiter, key string) gin.HandlerFunc {
	if lim == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return middleware.RateLimit(lim, key)
}

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	repos portsrepo.RepositoryProvider,
	limits RateLimiters,
) error {
	if err := RegisterValidators(); err != nil {
		return err
	}

	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{middleware.RequestIDHeader, "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/health", getHealth(repos.Ping))

	setupAPIV1Routes(r, services, repos, limits)

	// Swagger routes (typically public or conditionally available)
	setupSwaggerRoutes(r, cfg)
	return nil
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific entity route registrations
func setupAPIV1Routes(
	r *gin.Engine,
	services *portssvc.ServiceContainer,
	repos portsrepo.RepositoryProvider,
	limits RateLimiters,
) {
	requireAuth := middleware.RequireAuth(services.Tokens, repos.UserRepo)

	v1 := r.Group("/api/v1")
	registerAuthRoutes(v1, services.Sessions, limits, requireAuth)

	admin := v1.Group("/admin", requireAuth, middleware.RequireAdmin())
	registerUserRoutes(admin, services.User)
}

// setupSwaggerRoutes configures the swagger documentation routes
func setupSwaggerRoutes(r *gin.Engine, cfg *config.Config) {
	if cfg.IsProduction {
		//no swagger in prod
		return
	}
	docs.SwaggerInfo.BasePath = "/api/v1"
	swagger := r.Group("/swagger")
	swagger.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
