package repositories

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bankcards/internal/models"
	"bankcards/internal/repositories/cache"
)

type cardRepository struct {
	db    *gorm.DB
	cache *cache.CacheService
}

// NewCardRepository creates a card repository. The cache may be nil.
func NewCardRepository(db *gorm.DB, cacheService *cache.CacheService) CardRepository {
	return &cardRepository{db: db, cache: cacheService}
}

func (r *cardRepository) Create(card *models.Card) error {
	if err := r.db.Create(card).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateCard
		}
		return fmt.Errorf("failed to create card: %w", err)
	}
	return nil
}

func (r *cardRepository) GetByID(id uuid.UUID) (*models.Card, error) {
	if r.cache != nil {
		if card, err := r.cache.GetCard(context.Background(), id); err == nil {
			return card, nil
		}
	}

	var card models.Card
	if err := r.db.First(&card, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("failed to get card: %w", err)
	}

	if r.cache != nil {
		if err := r.cache.CacheCard(context.Background(), &card); err != nil {
			log.Printf("failed to cache card %s: %v", id, err)
		}
	}
	return &card, nil
}

func (r *cardRepository) GetByIDForUpdate(id uuid.UUID) (*models.Card, error) {
	var card models.Card
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&card, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("failed to lock card: %w", err)
	}
	return &card, nil
}

func (r *cardRepository) GetByIDAndOwner(id, ownerID uuid.UUID) (*models.Card, error) {
	var card models.Card
	err := r.db.Where("id = ? AND owner_id = ?", id, ownerID).First(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return &card, nil
}

func (r *cardRepository) ExistsByOwnerAndMask(ownerID uuid.UUID, maskedNumber string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Card{}).
		Where("owner_id = ? AND masked_number = ?", ownerID, maskedNumber).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check for duplicate card: %w", err)
	}
	return count > 0, nil
}

func (r *cardRepository) UpdateBalance(id uuid.UUID, balance decimal.Decimal) error {
	result := r.db.Model(&models.Card{}).Where("id = ?", id).Update("balance", balance)
	if result.Error != nil {
		return fmt.Errorf("failed to update card balance: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCardNotFound
	}
	r.invalidate(id)
	return nil
}

func (r *cardRepository) UpdateStatus(id uuid.UUID, status models.CardStatus) error {
	result := r.db.Model(&models.Card{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update card status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCardNotFound
	}
	r.invalidate(id)
	return nil
}

func (r *cardRepository) Delete(id uuid.UUID) error {
	result := r.db.Delete(&models.Card{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete card: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCardNotFound
	}
	r.invalidate(id)
	return nil
}

func (r *cardRepository) List(filter CardFilter, limit, offset int) ([]models.Card, int64, error) {
	query := r.db.Model(&models.Card{})
	if filter.OwnerID != nil {
		query = query.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.MaskedNumber != "" {
		query = query.Where("masked_number LIKE ?", "%"+filter.MaskedNumber+"%")
	}
	if filter.MinBalance != nil {
		query = query.Where("balance >= ?", *filter.MinBalance)
	}
	if filter.MaxBalance != nil {
		query = query.Where("balance <= ?", *filter.MaxBalance)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count cards: %w", err)
	}

	var cards []models.Card
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&cards).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list cards: %w", err)
	}
	return cards, total, nil
}

func (r *cardRepository) CreateTransfer(transfer *models.CardTransfer) error {
	if err := r.db.Create(transfer).Error; err != nil {
		return fmt.Errorf("failed to create transfer: %w", err)
	}
	return nil
}

func (r *cardRepository) ExecuteInTransaction(fn func(CardRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&cardRepository{db: tx, cache: r.cache})
	})
}

func (r *cardRepository) invalidate(id uuid.UUID) {
	if r.cache == nil {
		return
	}
	if err := r.cache.InvalidateCard(context.Background(), id); err != nil {
		log.Printf("failed to invalidate card cache %s: %v", id, err)
	}
}
