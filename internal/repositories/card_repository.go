package repositories

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bankcards/internal/models"
)

// CardFilter narrows card searches. Nil fields are ignored.
type CardFilter struct {
	OwnerID      *uuid.UUID
	Status       *models.CardStatus
	MaskedNumber string
	MinBalance   *decimal.Decimal
	MaxBalance   *decimal.Decimal
}

// CardRepository owns persisted cards. Balance and status mutations go
// through it exclusively, and the transfer record lives on the same
// interface so an engine can commit both balance updates and the transfer
// as one unit via ExecuteInTransaction.
type CardRepository interface {
	Create(card *models.Card) error
	GetByID(id uuid.UUID) (*models.Card, error)
	// GetByIDForUpdate reads a card taking a row-level exclusive lock.
	// Only meaningful inside ExecuteInTransaction.
	GetByIDForUpdate(id uuid.UUID) (*models.Card, error)
	GetByIDAndOwner(id, ownerID uuid.UUID) (*models.Card, error)
	ExistsByOwnerAndMask(ownerID uuid.UUID, maskedNumber string) (bool, error)
	UpdateBalance(id uuid.UUID, balance decimal.Decimal) error
	UpdateStatus(id uuid.UUID, status models.CardStatus) error
	Delete(id uuid.UUID) error
	List(filter CardFilter, limit, offset int) ([]models.Card, int64, error)

	CreateTransfer(transfer *models.CardTransfer) error

	// ExecuteInTransaction runs fn against a repository bound to a single
	// database transaction; every write commits or rolls back together.
	ExecuteInTransaction(fn func(CardRepository) error) error
}

// TransferRepository reads the append-only transfer history.
type TransferRepository interface {
	GetByID(id uuid.UUID) (*models.CardTransfer, error)
	// GetForUser lists transfers where the user owns the source or the
	// target card, newest first.
	GetForUser(userID uuid.UUID, limit, offset int) ([]models.CardTransfer, int64, error)
}
