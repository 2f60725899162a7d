package repositories

import (
	"github.com/google/uuid"

	"bankcards/internal/models"
)

// UserRepository owns persisted user accounts.
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uuid.UUID) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uuid.UUID) error
	// List returns users matching the search term on username or full
	// name; an empty term lists everyone.
	List(search string, limit, offset int) ([]models.User, int64, error)
	IncrementTokenVersion(id uuid.UUID) error
}
