// Package main is the entry point for the card ledger API. It validates
// the encryption key, connects the backing stores, wires the services
// and starts the HTTP server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"bankcards/internal/config"
	"bankcards/internal/handlers"
	"bankcards/internal/locker"
	"bankcards/internal/middleware"
	"bankcards/internal/repositories"
	"bankcards/internal/services/auth"
	"bankcards/internal/services/card"
	"bankcards/internal/services/transfer"
	"bankcards/internal/services/user"
	"bankcards/internal/services/vault"
)

func main() {
	config.LoadEnv()

	// The PAN encryption key must be valid before anything is served; a
	// misconfigured key would make every stored card unreadable.
	cryptoKey, err := config.CardCryptoKey()
	if err != nil {
		log.Fatalf("invalid card encryption key: %v", err)
	}

	if err := repositories.InitDB(); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	defer closeStores()

	// Cached rows may predate a schema or serialization change, so start
	// from a cold cache.
	if repositories.CacheService != nil {
		if err := repositories.CacheService.FlushAll(context.Background()); err != nil {
			log.Printf("failed to flush redis cache: %v", err)
		}
	}

	cardVault, err := vault.NewService(cryptoKey, nil)
	if err != nil {
		log.Fatalf("failed to initialize card vault: %v", err)
	}

	cardRepo := repositories.NewCardRepository(repositories.DB, repositories.CacheService)
	userRepo := repositories.NewUserRepository(repositories.DB, repositories.CacheService)
	transferRepo := repositories.NewTransferRepository(repositories.DB)

	locks := locker.New()
	lockWait := config.LockWaitTimeout()

	userService := user.NewService(userRepo)
	authService := auth.NewService(userRepo)
	cardService := card.NewService(cardRepo, userService, cardVault, locks, lockWait)
	transferService := transfer.NewService(cardRepo, transferRepo, locks, lockWait)

	h := &handlers.Handlers{
		Auth:           handlers.NewAuthHandler(authService, userService),
		Card:           handlers.NewCardHandler(cardService),
		Transfer:       handlers.NewTransferHandler(transferService),
		Admin:          handlers.NewAdminHandler(cardService, userService),
		AuthMiddleware: middleware.NewAuthMiddleware(authService),
	}

	app := fiber.New(fiber.Config{
		AppName:      "bankcards-api",
		ReadTimeout:  config.GetDurationEnv("HTTP_READ_TIMEOUT", 10*time.Second),
		WriteTimeout: config.GetDurationEnv("HTTP_WRITE_TIMEOUT", 10*time.Second),
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     config.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173"),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowCredentials: true,
	}))

	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Credential endpoints are rate limited per client IP.
	for _, path := range []string{"/api/auth/register", "/api/auth/login"} {
		app.Use(path, limiter.New(limiter.Config{
			Max:        5,
			Expiration: 1 * time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"error": "too many requests, please try again later",
				})
			},
		}))
	}

	handlers.SetupRoutes(app, h)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Println("shutting down")
		if err := app.Shutdown(); err != nil {
			log.Printf("shutdown error: %v", err)
		}
	}()

	if err := app.Listen(":" + config.GetEnv("PORT", "3000")); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

func closeStores() {
	if repositories.DB != nil {
		if sqlDB, err := repositories.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.Printf("failed to close database connection: %v", err)
			}
		}
	}
	if repositories.CacheService != nil {
		if err := repositories.CacheService.Close(); err != nil {
			log.Printf("failed to close redis connection: %v", err)
		}
	}
}
