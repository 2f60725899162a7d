package utils

import (
	"errors"
	"time"

	"bankcards/internal/config"
	"bankcards/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// GenerateTokens generates an access token and a refresh token for the given
// user claims. Lifetimes default to 15 minutes / 7 days and can be tuned via
// ACCESS_TOKEN_TTL and REFRESH_TOKEN_TTL.
func GenerateTokens(claims *models.UserClaims) (accessToken string, refreshToken string, err error) {
	secret := config.JWTSecret()
	now := time.Now()

	accessClaims := models.UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(config.GetDurationEnv("ACCESS_TOKEN_TTL", 15*time.Minute))),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "bankcards-api",
			Subject:   claims.UserID.String(),
		},
		UserID:       claims.UserID,
		Username:     claims.Username,
		Role:         claims.Role,
		Permissions:  claims.Permissions,
		TokenVersion: claims.TokenVersion,
	}
	accessToken, err = jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString(secret)
	if err != nil {
		return "", "", err
	}

	refreshClaims := models.UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(config.GetDurationEnv("REFRESH_TOKEN_TTL", 7*24*time.Hour))),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "bankcards-api",
			Subject:   claims.UserID.String(),
		},
		UserID:       claims.UserID,
		Username:     claims.Username,
		Role:         claims.Role,
		TokenVersion: claims.TokenVersion,
	}
	refreshToken, err = jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString(secret)
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

// ParseToken parses and validates a JWT token string.
func ParseToken(tokenStr string) (*jwt.Token, *models.UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &models.UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return config.JWTSecret(), nil
	})
	if err != nil {
		return nil, nil, err
	}

	claims, ok := token.Claims.(*models.UserClaims)
	if !ok || !token.Valid {
		return nil, nil, errors.New("invalid token claims")
	}

	return token, claims, nil
}
