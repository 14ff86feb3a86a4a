// Package main is the entry point for the bookswap category API server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"bookswap/internal/auth"
	"bookswap/internal/cache"
	"bookswap/internal/config"
	"bookswap/internal/database"
	"bookswap/internal/handlers"
	"bookswap/internal/metrics"
	"bookswap/internal/middleware"
	"bookswap/internal/router"
	"bookswap/internal/service"
	"bookswap/internal/store"
)

func main() {
	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured logger: text in development, JSON elsewhere.
	var logger *slog.Logger
	if cfg.IsDev() {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	} else {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	slog.SetDefault(logger)

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"store", cfg.StoreDriver,
		"valkey", cfg.ValkeyEnabled(),
	)

	// Category storage.
	var repo store.CategoryRepository
	switch cfg.StoreDriver {
	case config.StoreMemory:
		slog.Warn("using in-memory category store; data is lost on restart")
		repo = store.NewMemoryCategoryStore()
	default:
		db := mustOpenDatabase(cfg)
		defer db.Close()
		repo = store.NewCategoryStore(db)
	}

	// Valkey backs the listing cache and the token revocation list. Without
	// it listings are uncached and revocations stay in process.
	var (
		listingCache service.ListingCache
		revoker      auth.Revoker = auth.NewMemoryRevocationList()
		valkeyClient *redis.Client
	)
	if cfg.ValkeyEnabled() {
		valkeyClient, err = cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
		if err != nil {
			slog.Error("failed to connect to valkey", "error", err)
			os.Exit(1)
		}
		defer valkeyClient.Close()

		listingCache = cache.NewListingCache(valkeyClient, cfg.ListCacheTTL)
		revoker = auth.NewRevocationList(valkeyClient)
	} else {
		slog.Warn("valkey disabled: listing cache off, token revocation is per process")
	}

	collector := metrics.NewCollector()
	categoryService := service.NewCategoryService(repo, listingCache, collector)

	verifier := auth.NewVerifier(cfg.JWTSecret)
	if cfg.IsDev() {
		logDevTokens(verifier)
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	defer limiter.Stop()

	// Set up the Chi router with all middleware and routes.
	r := router.New(router.Deps{
		Categories:  handlers.NewCategories(categoryService),
		Auth:        handlers.NewAuth(revoker),
		Verifier:    verifier,
		Revoker:     revoker,
		Metrics:     collector,
		RateLimiter: limiter,
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	// Give active requests up to 30 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

// mustOpenDatabase connects to PostgreSQL, runs pending migrations and, in
// development, seeds sample categories.
func mustOpenDatabase(cfg *config.Config) *sql.DB {
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}
	return db
}

// logDevTokens prints short-lived tokens for trying the API by hand.
// Tokens are normally issued by the user service.
func logDevTokens(v *auth.Verifier) {
	for _, role := range []string{auth.RoleAdmin, auth.RoleUser} {
		token, err := v.Issue("dev-"+role, role, 12*time.Hour)
		if err != nil {
			slog.Warn("failed to issue development token", "role", role, "error", err)
			continue
		}
		slog.Debug("development token", "role", role, "token", token)
	}
}
