// Package handlers wires the HTTP surface: request parsing, the route
// table and the mapping from service errors to status codes.
package handlers

import (
	"github.com/gofiber/fiber/v2"

	"bankcards/internal/middleware"
	"bankcards/internal/models"
)

// Handlers bundles the route handlers with the auth middleware so main
// can register everything in one call.
type Handlers struct {
	Auth     *AuthHandler
	Card     *CardHandler
	Transfer *TransferHandler
	Admin    *AdminHandler

	AuthMiddleware *middleware.AuthMiddleware
}

// SetupRoutes registers every route on the app.
func SetupRoutes(app *fiber.App, h *Handlers) {
	app.Get("/health", HealthCheck)

	api := app.Group("/api")

	// Public routes
	api.Post("/auth/register", h.Auth.Register)
	api.Post("/auth/login", h.Auth.Login)
	api.Post("/auth/refresh", h.Auth.RefreshToken)

	// Authenticated routes
	authenticated := api.Group("/", h.AuthMiddleware.Handler)
	authenticated.Post("/auth/logout", h.Auth.Logout)
	authenticated.Post("/auth/change-password", h.Auth.ChangePassword)
	authenticated.Get("/auth/me", h.Auth.Me)

	cards := authenticated.Group("/cards")
	cards.Get("/", middleware.HasPermission(models.PermissionCardRead), h.Card.ListMyCards)
	cards.Get("/:id", middleware.HasPermission(models.PermissionCardRead), h.Card.GetMyCard)
	cards.Post("/:id/block", middleware.HasPermission(models.PermissionCardBlock), h.Card.BlockMyCard)

	transfers := authenticated.Group("/transfers")
	transfers.Post("/", middleware.HasPermission(models.PermissionTransfer), h.Transfer.CreateTransfer)
	transfers.Get("/", middleware.HasPermission(models.PermissionTransferRead), h.Transfer.ListMyTransfers)
	transfers.Get("/:id", middleware.HasPermission(models.PermissionTransferRead), h.Transfer.GetTransfer)

	// Admin routes
	admin := api.Group("/admin", h.AuthMiddleware.Handler, middleware.AdminAuthMiddleware)
	admin.Post("/cards", middleware.HasPermission(models.PermissionWriteAdmin), h.Admin.IssueCard)
	admin.Get("/cards", middleware.HasPermission(models.PermissionReadAdmin), h.Admin.ListCards)
	admin.Get("/cards/:id", middleware.HasPermission(models.PermissionReadAdmin), h.Admin.GetCard)
	admin.Patch("/cards/:id/status", middleware.HasPermission(models.PermissionWriteAdmin), h.Admin.UpdateCardStatus)
	admin.Delete("/cards/:id", middleware.HasPermission(models.PermissionWriteAdmin), h.Admin.DeleteCard)

	admin.Post("/users", middleware.HasPermission(models.PermissionWriteAdmin), h.Admin.CreateUser)
	admin.Get("/users", middleware.HasPermission(models.PermissionReadAdmin), h.Admin.ListUsers)
	admin.Get("/users/:id", middleware.HasPermission(models.PermissionReadAdmin), h.Admin.GetUser)
	admin.Put("/users/:id", middleware.HasPermission(models.PermissionWriteAdmin), h.Admin.UpdateUser)
	admin.Delete("/users/:id", middleware.HasPermission(models.PermissionWriteAdmin), h.Admin.DeleteUser)
}
