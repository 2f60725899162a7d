package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"bankcards/internal/models"
	"bankcards/internal/services/transfer"
	"bankcards/internal/utils"
)

type TransferHandler struct {
	transferService transfer.Service
}

func NewTransferHandler(transferService transfer.Service) *TransferHandler {
	return &TransferHandler{transferService: transferService}
}

// CreateTransfer moves money between two of the caller's cards. Amounts
// travel as strings to keep them out of binary floating point.
func (h *TransferHandler) CreateTransfer(c *fiber.Ctx) error {
	claims, ok := c.Locals("claims").(*models.UserClaims)
	if !ok {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		SourceCardID string `json:"source_card_id"`
		TargetCardID string `json:"target_card_id"`
		Amount       string `json:"amount"`
		Description  string `json:"description"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}

	sourceID, err := uuid.Parse(input.SourceCardID)
	if err != nil {
		return utils.BadRequest(c, "invalid source card id")
	}
	targetID, err := uuid.Parse(input.TargetCardID)
	if err != nil {
		return utils.BadRequest(c, "invalid target card id")
	}
	amount, err := utils.ParsePositiveAmount(input.Amount)
	if err != nil {
		return handleServiceError(c, err)
	}

	created, err := h.transferService.Transfer(c.Context(), claims.UserID, transfer.Request{
		SourceCardID: sourceID,
		TargetCardID: targetID,
		Amount:       amount,
		Description:  input.Description,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return utils.Created(c, fiber.Map{"transfer": newTransferResponse(created)})
}

// GetTransfer returns a single transfer by id, provided it touches one
// of the caller's cards.
func (h *TransferHandler) GetTransfer(c *fiber.Ctx) error {
	claims, ok := c.Locals("claims").(*models.UserClaims)
	if !ok {
		return utils.Unauthorized(c, "invalid claims")
	}

	transferID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "invalid transfer id")
	}

	found, err := h.transferService.GetTransfer(c.Context(), claims.UserID, transferID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return utils.Success(c, fiber.Map{"transfer": newTransferResponse(found)})
}

// ListMyTransfers returns the transfer history touching any of the
// caller's cards, newest first.
func (h *TransferHandler) ListMyTransfers(c *fiber.Ctx) error {
	claims, ok := c.Locals("claims").(*models.UserClaims)
	if !ok {
		return utils.Unauthorized(c, "invalid claims")
	}

	p := utils.GetPagination(c, 1, 20)
	transfers, total, err := h.transferService.GetUserTransfers(c.Context(), claims.UserID, p.Limit, p.Offset)
	if err != nil {
		return handleServiceError(c, err)
	}
	p.SetTotal(total)

	return utils.Success(c, utils.NewPaginatedResponse(newTransferResponses(transfers), p))
}
