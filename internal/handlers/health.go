package handlers

import (
	"github.com/gofiber/fiber/v2"

	"bankcards/internal/repositories"
)

// HealthCheck reports service liveness with the state of its backing
// stores.
func HealthCheck(c *fiber.Ctx) error {
	dbStatus := "connected"
	if repositories.DB == nil {
		dbStatus = "disconnected"
	} else if sqlDB, err := repositories.DB.DB(); err != nil || sqlDB.Ping() != nil {
		dbStatus = "disconnected"
	}

	redisStatus := "disabled"
	if repositories.CacheService != nil {
		redisStatus = "connected"
		if err := repositories.CacheService.HealthCheck(c.Context()); err != nil {
			redisStatus = "disconnected"
		}
	}

	status := fiber.StatusOK
	overall := "ok"
	if dbStatus != "connected" {
		status = fiber.StatusServiceUnavailable
		overall = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"services": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
	})
}
