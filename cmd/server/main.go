package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	"github.com/secondchance/backend/internal/auth"
	"github.com/secondchance/backend/internal/config"
	"github.com/secondchance/backend/internal/health"
	"github.com/secondchance/backend/internal/items"
	"github.com/secondchance/backend/internal/logger"
	"github.com/secondchance/backend/internal/metrics"
	authmw "github.com/secondchance/backend/internal/middleware"
	"github.com/secondchance/backend/internal/repository"
	"github.com/secondchance/backend/internal/search"
	"github.com/secondchance/backend/internal/storage"
)

// Version is set at build time
var Version = "dev"

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	appLogger := logger.New(logger.DefaultConfig())
	slog.SetDefault(appLogger)

	cfg := config.Load()
	if cfg.JWT.Secret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}

	dbPool, sqlxDB, err := setupDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbPool.Close()
	defer sqlxDB.Close()

	fileStore, err := storage.New(&cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize file storage: %v", err)
	}

	// Repositories
	userRepo := repository.NewUserRepository(dbPool)
	itemRepo := repository.NewItemRepository(sqlxDB)

	// Services
	tokenService := auth.NewTokenService(auth.TokenServiceConfig{
		Secret:      cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.TokenExpiry,
		Issuer:      cfg.JWT.Issuer,
	})
	authService := auth.NewAuthService(
		userRepo,
		tokenService,
		auth.NewPasswordHasher(),
		auth.AuthServiceConfig{
			MaxLoginAttempts: cfg.Auth.MaxLoginAttempts,
			LockDuration:     cfg.Auth.LockDuration,
		},
		appLogger,
	)
	itemService := items.NewItemService(itemRepo, fileStore, appLogger)

	// Handlers
	authHandler := auth.NewAuthHandler(authService, appLogger)
	itemHandler := items.NewItemHandler(itemService, appLogger)
	searchHandler := search.NewSearchHandler(itemRepo, appLogger)
	healthHandler := health.NewHandler(dbPool, Version)

	// Middleware
	authMiddleware := authmw.NewAuthMiddleware(tokenService)
	loggingMiddleware := authmw.NewLoggingMiddleware(appLogger)
	authRateLimiter := authmw.NewRateLimiter(30, time.Minute)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(loggingMiddleware.Handler)
	r.Use(chimiddleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:9000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "email"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Probes and metrics
	r.Get("/health", healthHandler.Health)
	r.Get("/health/ready", healthHandler.Readiness)
	r.Get("/health/live", healthHandler.Liveness)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authRateLimiter.RateLimitByIP)
			auth.RegisterRoutes(r, authHandler, authMiddleware.Authenticate)
		})
		items.RegisterRoutes(r, itemHandler)
		search.RegisterRoutes(r, searchHandler)
	})

	// Uploaded images are served straight from the upload directory
	if local, ok := fileStore.(*storage.LocalStore); ok {
		fileServer := http.StripPrefix("/images/", http.FileServer(http.Dir(local.Dir())))
		r.Handle("/images/*", fileServer)
	}

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Info("starting server", "addr", addr, "version", Version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down server")
	healthHandler.SetReady(false)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	appLogger.Info("server exited")
}

// setupDatabase creates the pgx connection pool used by the user
// repository and health checks, plus a database/sql handle via sqlx for
// the item repository.
func setupDatabase(cfg *config.Config) (*pgxpool.Pool, *sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = 5 * time.Minute
	poolConfig.MaxConnIdleTime = 1 * time.Minute
	poolConfig.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	sqlxDB, err := sqlx.ConnectContext(ctx, "pgx", cfg.Database.DSN())
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to open sqlx connection: %w", err)
	}

	return pool, sqlxDB, nil
}
