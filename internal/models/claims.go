package models

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Application permissions
const (
	PermissionCardRead     = "card:read"
	PermissionCardBlock    = "card:block"
	PermissionTransfer     = "transfer:write"
	PermissionTransferRead = "transfer:read"

	PermissionReadAdmin  = "admin:read"
	PermissionWriteAdmin = "admin:write"
)

// UserClaims are the JWT claims issued for an authenticated user.
type UserClaims struct {
	jwt.RegisteredClaims
	UserID       uuid.UUID `json:"user_id"`
	Username     string    `json:"username"`
	Role         string    `json:"role"`
	Permissions  []string  `json:"permissions"`
	TokenVersion int       `json:"token_version"`
}

// HasPermission checks if the claims include a specific permission.
func (c *UserClaims) HasPermission(permission string) bool {
	for _, p := range c.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// GetDefaultPermissions returns default permissions based on role.
func GetDefaultPermissions(role string) []string {
	switch role {
	case RoleAdmin:
		return []string{
			PermissionCardRead,
			PermissionCardBlock,
			PermissionTransfer,
			PermissionTransferRead,
			PermissionReadAdmin,
			PermissionWriteAdmin,
		}
	case RoleUser:
		return []string{
			PermissionCardRead,
			PermissionCardBlock,
			PermissionTransfer,
			PermissionTransferRead,
		}
	default:
		return []string{}
	}
}
