package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SscSPs/blog_backend/internal/adapters/database/memory"
	"github.com/SscSPs/blog_backend/internal/adapters/database/mongodb"
	"github.com/SscSPs/blog_backend/internal/adapters/database/pgsql"
	portsrepo "github.com/SscSPs/blog_backend/internal/core/ports/repositories"
	"github.com/SscSPs/blog_backend/internal/core/services"
	"github.com/SscSPs/blog_backend/internal/handlers"
	"github.com/SscSPs/blog_backend/internal/middleware"
	"github.com/SscSPs/blog_backend/internal/platform/config"
	"github.com/SscSPs/blog_backend/pkg/database"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// @title Blog Backend API
// @version 1.0
// @description Authentication and user administration for the blog backend.

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("Server stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := repos.Close(closeCtx); err != nil {
			logger.Error("Error closing store", slog.String("error", err.Error()))
		}
	}()

	container := services.NewServiceContainer(cfg, repos)

	if cfg.SeedAdmin() {
		created, err := container.User.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			return fmt.Errorf("failed to seed admin user: %w", err)
		}
		logger.Info("Admin bootstrap checked", slog.Bool("created", created))
	}

	limits, closeLimiter, err := buildRateLimiters(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLimiter()

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware (logging, recovery)
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())

	if err := r.SetTrustedProxies(nil); err != nil {
		return fmt.Errorf("failed to set trusted proxies: %w", err)
	}

	if err := handlers.RegisterRoutes(r, cfg, container, repos, limits); err != nil {
		return fmt.Errorf("failed to register routes: %w", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", slog.String("port", cfg.Port), slog.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStore connects the credential store selected by STORE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (portsrepo.RepositoryProvider, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		logger.Warn("Using in-memory credential store; data is lost on restart")
		return memory.NewRepositoryProvider(), nil

	case config.StoreDriverMongo:
		client, err := database.NewMongoClient(ctx, cfg.MongoURI)
		if err != nil {
			return portsrepo.RepositoryProvider{}, err
		}
		repos, err := mongodb.NewRepositoryProvider(ctx, client, cfg.MongoDatabase)
		if err != nil {
			_ = client.Disconnect(ctx)
			return portsrepo.RepositoryProvider{}, err
		}
		logger.Info("MongoDB connection established.")
		return repos, nil

	default:
		dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.EnableDBCheck)
		if err != nil {
			return portsrepo.RepositoryProvider{}, fmt.Errorf("failed to initialize database pool: %w", err)
		}
		logger.Info("Database connection pool established.")

		logger.Info("Running database migrations...")
		applied, err := database.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath)
		if err != nil {
			dbPool.Close()
			return portsrepo.RepositoryProvider{}, err
		}
		if applied {
			logger.Info("Database migrations applied successfully.")
		} else {
			logger.Info("No new migrations to apply.")
		}
		return pgsql.NewRepositoryProvider(dbPool), nil
	}
}

// buildRateLimiters shares one redis store across instances when
// RATE_LIMIT_REDIS_URL is set, and falls back to process memory otherwise.
func buildRateLimiters(ctx context.Context, cfg *config.Config) (handlers.RateLimiters, func(), error) {
	var client *redis.Client
	closeFn := func() {}
	if cfg.RateLimitRedisURL != "" {
		var err error
		client, err = database.NewRedisClient(ctx, cfg.RateLimitRedisURL)
		if err != nil {
			return handlers.RateLimiters{}, closeFn, err
		}
		closeFn = func() { _ = client.Close() }
	}

	store, err := middleware.NewLimiterStore(client, "blog_ratelimit")
	if err != nil {
		closeFn()
		return handlers.RateLimiters{}, func() {}, err
	}
	limits, err := handlers.NewRateLimiters(cfg, store)
	if err != nil {
		closeFn()
		return handlers.RateLimiters{}, func() {}, err
	}
	return limits, closeFn, nil
}
