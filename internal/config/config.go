package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LoadEnv loads variables from a .env file if present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found: %v", err)
	}
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value.
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// GetDurationEnv returns a duration environment variable or a default value.
func GetDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// IsProduction checks if the app runs in production mode.
func IsProduction() bool {
	return GetEnv("ENV", "development") == "production"
}

// CardCryptoKey returns the key used to encrypt stored card numbers.
// The key must be exactly 16, 24, or 32 bytes; anything else is a
// configuration error and the process must not start.
func CardCryptoKey() ([]byte, error) {
	key := []byte(GetEnv("CARD_CRYPTO_KEY", ""))
	switch len(key) {
	case 16, 24, 32:
		return key, nil
	default:
		return nil, fmt.Errorf("CARD_CRYPTO_KEY must be 16, 24, or 32 bytes, got %d", len(key))
	}
}

// JWTSecret returns the secret used to sign access and refresh tokens.
func JWTSecret() []byte {
	return []byte(GetEnv("JWT_SECRET", "dev-secret-change-me"))
}

// LockWaitTimeout bounds how long a transfer waits for a card lock.
func LockWaitTimeout() time.Duration {
	return GetDurationEnv("CARD_LOCK_WAIT_TIMEOUT", 5*time.Second)
}
