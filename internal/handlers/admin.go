package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bankcards/internal/models"
	"bankcards/internal/repositories"
	"bankcards/internal/services/card"
	"bankcards/internal/services/user"
	"bankcards/internal/utils"
)

// AdminHandler serves the administrative card and user endpoints. It is
// always mounted behind AdminAuthMiddleware.
type AdminHandler struct {
	cardService card.Service
	userService user.Service
}

func NewAdminHandler(cardService card.Service, userService user.Service) *AdminHandler {
	return &AdminHandler{
		cardService: cardService,
		userService: userService,
	}
}

// IssueCard creates a card for a user. The plaintext card number exists
// only in this request; it is encrypted before persistence and never
// echoed back or logged.
func (h *AdminHandler) IssueCard(c *fiber.Ctx) error {
	var input struct {
		OwnerID        string `json:"owner_id"`
		CardNumber     string `json:"card_number"`
		ExpirationDate string `json:"expiration_date"`
		InitialBalance string `json:"initial_balance"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}

	ownerID, err := uuid.Parse(input.OwnerID)
	if err != nil {
		return utils.BadRequest(c, "invalid owner id")
	}
	expiration, err := time.Parse("2006-01-02", input.ExpirationDate)
	if err != nil {
		return utils.BadRequest(c, "invalid expiration date, expected YYYY-MM-DD")
	}

	initialBalance := decimal.Zero
	if input.InitialBalance != "" {
		initialBalance, err = utils.ParseAmount(input.InitialBalance)
		if err != nil {
			return handleServiceError(c, err)
		}
	}

	created, err := h.cardService.IssueCard(c.Context(), card.IssueCardRequest{
		OwnerID:        ownerID,
		CardNumber:     input.CardNumber,
		ExpirationDate: expiration,
		InitialBalance: initialBalance,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return utils.Created(c, fiber.Map{"card": newCardResponse(created, time.Now())})
}

// ListCards returns every card, optionally filtered by owner, status and
// balance range.
func (h *AdminHandler) ListCards(c *fiber.Ctx) error {
	var filter repositories.CardFilter
	if ownerStr := c.Query("owner_id"); ownerStr != "" {
		ownerID, err := uuid.Parse(ownerStr)
		if err != nil {
			return utils.BadRequest(c, "invalid owner id")
		}
		filter.OwnerID = &ownerID
	}
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

// GetCard returns any card by id.
func (h *AdminHandler) GetCard(c *fiber.Ctx) error {
	cardID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "invalid card id")
	}

	found, err := h.cardService.GetCard(c.Context(), cardID)
	if err != nil {
		return handleServiceError(c, err)
	}
	return utils.Success(c, fiber.Map{"card": newCardResponse(found, time.Now())})
}

// UpdateCardStatus is the administrative status override; it can block,
// unblock or force-expire any card.
func (h *AdminHandler) UpdateCardStatus(c *fiber.Ctx) error {
	cardID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "invalid card id")
	}

	var input struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}

	updated, err := h.cardService.UpdateStatus(c.Context(), cardID, models.CardStatus(input.Status))
	if err != nil {
		return handleServiceError(c, err)
	}
	return utils.Success(c, fiber.Map{"card": newCardResponse(updated, time.Now())})
}

// DeleteCard removes a card. Deletion is refused while a transfer holds
// the card's lock.
func (h *AdminHandler) DeleteCard(c *fiber.Ctx) error {
	cardID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "invalid card id")
	}

	if err := h.cardService.DeleteCard(c.Context(), cardID); err != nil {
		return handleServiceError(c, err)
	}
	return utils.Success(c, fiber.Map{"message": "card deleted"})
}

// CreateUser creates an account with an explicit role.
func (h *AdminHandler) CreateUser(c *fiber.Ctx) error {
	var input struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
		Role     string `json:"role"`
		Enabled  *bool  `json:"enabled"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}

	enabled := true
	if input.Enabled != nil {
		enabled = *input.Enabled
	}

	created, err := h.userService.CreateUser(user.CreateUserRequest{
		Username: input.Username,
		Email:    input.Email,
		Password: input.Password,
		FullName: input.FullName,
		Role:     input.Role,
		Enabled:  enabled,
	})
	if err != nil {
		return handleServiceError(c, err)
	}
	return utils.Created(c, fiber.Map{"user": newUserResponse(created)})
}

// ListUsers returns users matching an optional search term on username
// or full name.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	p := utils.GetPagination(c, 1, 20)
	users, total, err := h.userService.ListUsers(c.Query("search"), p.Limit, p.Offset)
	if err != nil {
		return handleServiceError(c, err)
	}
	p.SetTotal(total)

	return utils.Success(c, utils.NewPaginatedResponse(newUserResponses(users), p))
}

// GetUser returns any user by id.
func (h *AdminHandler) GetUser(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "invalid user id")
	}

	found, err := h.userService.GetByID(userID)
	if err != nil {
		return handleServiceError(c, err)
	}
	return utils.Success(c, fiber.Map{"user": newUserResponse(found)})
}

// UpdateUser updates a user's profile, role, enabled flag or password.
func (h *AdminHandler) UpdateUser(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "invalid user id")
	}

	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
		Role     string `json:"role"`
		Enabled  *bool  `json:"enabled"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}

	current, err := h.userService.GetByID(userID)
	if err != nil {
		return handleServiceError(c, err)
	}
	enabled := current.Enabled
	if input.Enabled != nil {
		enabled = *input.Enabled
	}

	updated, err := h.userService.UpdateUser(userID, user.UpdateUserRequest{
		Email:    input.Email,
		Password: input.Password,
		FullName: input.FullName,
		Role:     input.Role,
		Enabled:  enabled,
	})
	if err != nil {
		return handleServiceError(c, err)
	}
	return utils.Success(c, fiber.Map{"user": newUserResponse(updated)})
}

// DeleteUser removes an account.
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "invalid user id")
	}

	if err := h.userService.DeleteUser(userID); err != nil {
		return handleServiceError(c, err)
	}
	return utils.Success(c, fiber.Map{"message": "user deleted"})
}
