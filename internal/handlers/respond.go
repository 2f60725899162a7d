package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"bankcards/internal/apperrors"
	"bankcards/internal/utils"
)

// handleServiceError maps the service error taxonomy onto HTTP statuses.
// Internal and crypto failures are logged with their cause and surfaced
// as an opaque 500 so no key material or driver detail leaks to callers.
func handleServiceError(c *fiber.Ctx, err error) error {
	message := "internal server error"
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		message = appErr.Message()
	}

	switch apperrors.KindOf(err) {
	case apperrors.KindValidation, apperrors.KindBusiness:
		return utils.BadRequest(c, message)
	case apperrors.KindNotFound:
		return utils.NotFound(c, message)
	case apperrors.KindLockTimeout:
		return utils.Conflict(c, message)
	default:
		log.Printf("%s %s failed: %v", c.Method(), c.Path(), err)
		return utils.InternalError(c, "internal server error")
	}
}
