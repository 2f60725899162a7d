// Package main seeds the database with the bootstrap admin account and,
// optionally, demo data for local development.
package main

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"bankcards/internal/config"
	"bankcards/internal/locker"
	"bankcards/internal/repositories"
	"bankcards/internal/services/card"
	"bankcards/internal/services/user"
	"bankcards/internal/services/vault"
)

func main() {
	config.LoadEnv()

	cryptoKey, err := config.CardCryptoKey()
	if err != nil {
		log.Fatalf("invalid card encryption key: %v", err)
	}

	if err := repositories.InitDB(); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	userRepo := repositories.NewUserRepository(repositories.DB, repositories.CacheService)
	userService := user.NewService(userRepo)

	adminUsername := config.GetEnv("ADMIN_USERNAME", "admin")
	if _, err := userRepo.GetByUsername(adminUsername); err == nil {
		log.Printf("admin user %q already exists, nothing to do", adminUsername)
	} else {
		admin, err := userService.CreateUser(user.CreateUserRequest{
			Username: adminUsername,
			Email:    config.GetEnv("ADMIN_EMAIL", ""),
			Password: config.GetEnv("ADMIN_PASSWORD", "changeme123"),
			FullName: "Administrator",
			Role:     "admin",
			Enabled:  true,
		})
		if err != nil {
			log.Fatalf("failed to create admin user: %v", err)
		}
		log.Printf("created admin user %q (%s)", admin.Username, admin.ID)
	}

	if config.GetEnv("SEED_DEMO_DATA", "false") != "true" {
		return
	}

	cardVault, err := vault.NewService(cryptoKey, nil)
	if err != nil {
		log.Fatalf("failed to initialize card vault: %v", err)
	}
	cardRepo := repositories.NewCardRepository(repositories.DB, repositories.CacheService)
	cardService := card.NewService(cardRepo, userService, cardVault, locker.New(), config.LockWaitTimeout())

	if _, err := userRepo.GetByUsername("demo"); err == nil {
		log.Println("demo user already exists, skipping demo data")
		return
	}
	demo, err := userService.Register(user.RegisterRequest{
		Username: "demo",
		Email:    "demo@example.com",
		Password: "demopassword",
		FullName: "Demo User",
	})
	if err != nil {
		log.Fatalf("failed to create demo user: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	expiration := time.Now().AddDate(3, 0, 0)
	for _, seed := range []struct {
		number  string
		balance string
	}{
		{"4000001234567899", "1000.00"},
		{"5100009876543217", "250.00"},
	} {
		balance, err := decimal.NewFromString(seed.balance)
		if err != nil {
			log.Fatalf("bad seed balance: %v", err)
		}
		issued, err := cardService.IssueCard(ctx, card.IssueCardRequest{
			OwnerID:        demo.ID,
			CardNumber:     seed.number,
			ExpirationDate: expiration,
			InitialBalance: balance,
		})
		if err != nil {
			log.Fatalf("failed to issue demo card: %v", err)
		}
		log.Printf("issued demo card %s (%s)", issued.MaskedNumber, issued.ID)
	}
}
