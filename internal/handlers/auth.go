package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"bankcards/internal/apperrors"
	"bankcards/internal/config"
	"bankcards/internal/models"
	"bankcards/internal/services/auth"
	"bankcards/internal/services/user"
	"bankcards/internal/utils"
)

type AuthHandler struct {
	authService auth.Service
	userService user.Service
}

func NewAuthHandler(authService auth.Service, userService user.Service) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userService: userService,
	}
}

// Register handles self-service account creation.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}

	created, err := h.userService.Register(user.RegisterRequest{
		Username: input.Username,
		Email:    input.Email,
		Password: input.Password,
		FullName: input.FullName,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return utils.Created(c, fiber.Map{"user": newUserResponse(created)})
}

// Login handles user authentication and returns JWT tokens.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}
	if input.Username == "" || input.Password == "" {
		return utils.BadRequest(c, "username and password are required")
	}

	account, accessToken, refreshToken, err := h.authService.Login(input.Username, input.Password)
	if err != nil {
		if apperrors.IsValidation(err) {
			return utils.Unauthorized(c, "invalid username or password")
		}
		return handleServiceError(c, err)
	}

	h.setAuthCookies(c, accessToken, refreshToken)

	return utils.Success(c, fiber.Map{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"user":          newUserResponse(account),
	})
}

// RefreshToken handles token refresh requests.
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	refreshToken := c.Cookies("refresh_token")
	if refreshToken == "" {
		var input struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := c.BodyParser(&input); err != nil {
			return utils.Unauthorized(c, "refresh token not provided")
		}
		refreshToken = input.RefreshToken
	}
	if refreshToken == "" {
		return utils.Unauthorized(c, "refresh token not provided")
	}

	access, refresh, err := h.authService.RefreshTokens(refreshToken)
	if err != nil {
		return utils.Unauthorized(c, "invalid refresh token")
	}

	h.setAuthCookies(c, access, refresh)

	return utils.Success(c, fiber.Map{
		"access_token":  access,
		"refresh_token": refresh,
	})
}

// Logout invalidates every token issued to the caller.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	claims, ok := c.Locals("claims").(*models.UserClaims)
	if !ok {
		return utils.Unauthorized(c, "invalid claims")
	}

	if err := h.authService.Logout(claims.UserID); err != nil {
		return handleServiceError(c, err)
	}

	h.clearAuthCookies(c)

	return utils.Success(c, fiber.Map{"message": "successfully logged out"})
}

// ChangePassword handles password change requests.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var input struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}

	claims, ok := c.Locals("claims").(*models.UserClaims)
	if !ok {
		return utils.Unauthorized(c, "invalid claims")
	}

	if err := h.authService.ChangePassword(claims.UserID, input.OldPassword, input.NewPassword); err != nil {
		return handleServiceError(c, err)
	}

	return utils.Success(c, fiber.Map{"message": "password changed successfully"})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	claims, ok := c.Locals("claims").(*models.UserClaims)
	if !ok {
		return utils.Unauthorized(c, "invalid claims")
	}

	account, err := h.authService.GetUserByID(claims.UserID)
	if err != nil {
		return handleServiceError(c, err)
	}
	return utils.Success(c, fiber.Map{"user": newUserResponse(account)})
}

func (h *AuthHandler) setAuthCookies(c *fiber.Ctx, accessToken, refreshToken string) {
	c.Cookie(&fiber.Cookie{
		Name:     "access_token",
		Value:    accessToken,
		HTTPOnly: true,
		Secure:   config.IsProduction(),
		Path:     "/",
		SameSite: "Strict",
		MaxAge:   15 * 60,
	})
	c.Cookie(&fiber.Cookie{
		Name:     "refresh_token",
		Value:    refreshToken,
		HTTPOnly: true,
		Secure:   config.IsProduction(),
		Path:     "/",
		SameSite: "Strict",
		MaxAge:   7 * 24 * 60 * 60,
	})
}

func (h *AuthHandler) clearAuthCookies(c *fiber.Ctx) {
	for _, name := range []string{"access_token", "refresh_token"} {
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Value:    "",
			Expires:  time.Now().Add(-time.Hour),
			HTTPOnly: true,
			Secure:   config.IsProduction(),
			Path:     "/",
		})
	}
}
