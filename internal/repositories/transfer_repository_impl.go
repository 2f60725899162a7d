package repositories

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"bankcards/internal/models"
)

type transferRepository struct {
	db *gorm.DB
}

// NewTransferRepository creates a read-only view over the transfer history.
func NewTransferRepository(db *gorm.DB) TransferRepository {
	return &transferRepository{db: db}
}

func (r *transferRepository) GetByID(id uuid.UUID) (*models.CardTransfer, error) {
	var transfer models.CardTransfer
	if err := r.db.First(&transfer, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransferNotFound
		}
		return nil, fmt.Errorf("failed to get transfer: %w", err)
	}
	return &transfer, nil
}

func (r *transferRepository) GetForUser(userID uuid.UUID, limit, offset int) ([]models.CardTransfer, int64, error) {
	base := r.db.Model(&models.CardTransfer{}).
		Joins("JOIN cards source_cards ON source_cards.id = card_transfers.source_card_id").
		Joins("JOIN cards target_cards ON target_cards.id = card_transfers.target_card_id").
		Where("source_cards.owner_id = ? OR target_cards.owner_id = ?", userID, userID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transfers: %w", err)
	}

	var transfers []models.CardTransfer
	err := base.Order("card_transfers.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&transfers).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transfers: %w", err)
	}
	return transfers, total, nil
}
