package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"bankcards/internal/apperrors"
	"bankcards/internal/models"
	"bankcards/internal/repositories"
	"bankcards/internal/services/card"
	"bankcards/internal/utils"
)

// CardHandler serves the cardholder-facing card endpoints. Every route
// here is scoped to the authenticated owner; the administrative surface
// lives in AdminHandler.
type CardHandler struct {
	cardService card.Service
}

func NewCardHandler(cardService card.Service) *CardHandler {
	return &CardHandler{cardService: cardService}
}

// ListMyCards returns the caller's cards, optionally filtered by status
// and balance range.
func (h *CardHandler) ListMyCards(c *fiber.Ctx) error {
	claims, ok := c.Locals("claims").(*models.UserClaims)
	if !ok {
		return utils.Unauthorized(c, "invalid claims")
	}

	filter := repositories.CardFilter{OwnerID: &claims.UserID}
	if err := applyCardQueryFilter(c, &filter); err != nil {
		return handleServiceError(c, err)
	}

	p := utils.GetPagination(c, 1, 20)
	cards, total, err := h.cardService.ListCards(c.Context(), filter, p.Limit, p.Offset)
	if err != nil {
		return handleServiceError(c, err)
	}
	p.SetTotal(total)

	return utils.Success(c, utils.NewPaginatedResponse(newCardResponses(cards, time.Now()), p))
}

// GetMyCard returns a single card owned by the caller.
func (h *CardHandler) GetMyCard(c *fiber.Ctx) error {
	claims, ok := c.Locals("claims").(*models.UserClaims)
	if !ok {
		return utils.Unauthorized(c, "invalid claims")
	}

	cardID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "invalid card id")
	}

	found, err := h.cardService.GetCardForOwner(c.Context(), cardID, claims.UserID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return utils.Success(c, fiber.Map{"card": newCardResponse(found, time.Now())})
}

// BlockMyCard blocks one of the caller's cards. Blocking a card that is
// already blocked fails rather than silently succeeding.
func (h *CardHandler) BlockMyCard(c *fiber.Ctx) error {
	claims, ok := c.Locals("claims").(*models.UserClaims)
	if !ok {
		return utils.Unauthorized(c, "invalid claims")
	}

	cardID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "invalid card id")
	}

	blocked, err := h.cardService.BlockCard(c.Context(), cardID, claims.UserID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return utils.Success(c, fiber.Map{"card": newCardResponse(blocked, time.Now())})
}

// applyCardQueryFilter reads the optional status and balance-range query
// parameters into the filter.
func applyCardQueryFilter(c *fiber.Ctx, filter *repositories.CardFilter) error {
	if statusStr := c.Query("status"); statusStr != "" {
		status := models.CardStatus(statusStr)
		switch status {
		case models.CardStatusActive, models.CardStatusBlocked, models.CardStatusExpired:
			filter.Status = &status
		default:
			return apperrors.Validationf("unknown card status %q", statusStr)
		}
	}
	if minStr := c.Query("min_balance"); minStr != "" {
		min, err := utils.ParseAmount(minStr)
		if err != nil {
			return err
		}
		filter.MinBalance = &min
	}
	if maxStr := c.Query("max_balance"); maxStr != "" {
		max, err := utils.ParseAmount(maxStr)
		if err != nil {
			return err
		}
		filter.MaxBalance = &max
	}
	return nil
}
