package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User roles
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is an account that owns cards and authenticates against the API.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username     string    `gorm:"uniqueIndex;not null;size:64"`
	Email        string    `gorm:"uniqueIndex;size:255"`
	PasswordHash string    `gorm:"not null;size:255"`
	FullName     string    `gorm:"not null;size:255"`
	Role         string    `gorm:"not null;default:'user';size:32"`
	Enabled      bool      `gorm:"not null;default:true"`
	TokenVersion int       `gorm:"not null;default:1"`
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BeforeCreate sets the UUID before creating the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
