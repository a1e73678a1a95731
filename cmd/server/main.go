package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dhkim/storefront-gateway/config"
	"github.com/dhkim/storefront-gateway/internal/app/controller"
	"github.com/dhkim/storefront-gateway/internal/app/repository"
	"github.com/dhkim/storefront-gateway/internal/app/service"
	"github.com/dhkim/storefront-gateway/internal/db"
	"github.com/dhkim/storefront-gateway/internal/events"
	"github.com/dhkim/storefront-gateway/internal/middleware"
	"github.com/dhkim/storefront-gateway/internal/router"
	"github.com/dhkim/storefront-gateway/internal/scheduler"
	"github.com/dhkim/storefront-gateway/pkg/commerce"
	"github.com/dhkim/storefront-gateway/pkg/logger"
	"github.com/dhkim/storefront-gateway/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      "console", // Use "json" for production
		EnableColor: true,
	})

	logger.Info("Starting storefront gateway", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
		"upstream":    cfg.Upstream.BaseURL,
	})

	// Connect Redis; it backs guest carts and the cross-instance cart
	// event bridge. The gateway stays up without it.
	redisAvailable := true
	if err := redis.Init(&cfg.Redis); err != nil {
		logger.Warn("Redis unavailable, continuing degraded", map[string]interface{}{
			"error": err.Error(),
		})
		redisAvailable = false
	}
	defer func() {
		if err := redis.Close(); err != nil {
			logger.Error("Failed to close redis connection", err)
		}
	}()

	// Pick the guest cart backend
	guestCartRepo := buildGuestCartRepo(cfg, redisAvailable)

	// Run the in-process event hub and its Redis bridge
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := events.NewHub()
	go hub.Run(ctx)
	if redisAvailable {
		go hub.RunRedisBridge(ctx)
	}

	// Initialize the upstream commerce client
	commerceClient, err := commerce.NewClient(commerce.Config{
		BaseURL: cfg.Upstream.BaseURL,
		APIKey:  cfg.Upstream.APIKey,
		Timeout: cfg.Upstream.Timeout,
	})
	if err != nil {
		logger.Fatal("Failed to initialize commerce client", err)
	}

	// Initialize services
	guestCartService := service.NewGuestCartService(guestCartRepo, hub)
	cartViewService := service.NewCartViewService(guestCartService, commerceClient, hub)
	authService := service.NewAuthService(commerceClient, guestCartService)

	// Initialize controllers
	authController := controller.NewAuthController(authService)
	cartController := controller.NewCartController(cartViewService, hub)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	// Purge stale carts on the backends without native expiry
	if cfg.GuestCart.Backend != "redis" {
		purgeScheduler := scheduler.NewCartPurgeScheduler(guestCartRepo, cfg.GuestCart.PurgeSchedule, cfg.GuestCart.TTL)
		if err := purgeScheduler.Start(); err != nil {
			logger.Warn("Guest cart purge scheduler not running", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			defer purgeScheduler.Stop()
		}
	}

	// Setup router
	r := router.NewRouter(
		authController,
		cartController,
		authMiddleware,
		cfg,
	)
	engine := r.Setup()

	// Start server in a goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server started successfully", map[string]interface{}{
			"address": addr,
			"pid":     os.Getpid(),
		})
		if err := engine.Run(addr); err != nil {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	logger.Info("Server stopped successfully")
}

// buildGuestCartRepo selects the guest cart store from configuration,
// degrading to in-memory when the configured backend is unavailable.
func buildGuestCartRepo(cfg *config.Config, redisAvailable bool) repository.GuestCartRepository {
	switch cfg.GuestCart.Backend {
	case "redis":
		if redisAvailable {
			logger.Info("Guest carts backed by Redis", map[string]interface{}{
				"ttl": cfg.GuestCart.TTL.String(),
			})
			return repository.NewRedisGuestCartRepository(redis.GetClient(), cfg.GuestCart.TTL)
		}
		logger.Warn("Redis backend requested but unavailable, using in-memory guest carts", nil)
		return repository.NewMemoryGuestCartRepository()

	case "postgres":
		if err := db.Initialize(&cfg.Database); err != nil {
			logger.Warn("Database unavailable, using in-memory guest carts", map[string]interface{}{
				"error": err.Error(),
			})
			return repository.NewMemoryGuestCartRepository()
		}
		if err := db.Migrate(); err != nil {
			logger.Fatal("Failed to run migrations", err)
		}
		logger.Info("Guest carts backed by Postgres", nil)
		return repository.NewGormGuestCartRepository(db.GetDB())

	default:
		logger.Info("Guest carts backed by process memory", nil)
		return repository.NewMemoryGuestCartRepository()
	}
}
