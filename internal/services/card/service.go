// Package card implements the card lifecycle: issuance, blocking,
// administrative status changes and lookups. Expiration is a read-time
// predicate derived from the expiration date; no background process ever
// writes the EXPIRED status.
package card

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"bankcards/internal/apperrors"
	"bankcards/internal/locker"
	"bankcards/internal/models"
	"bankcards/internal/repositories"
	"bankcards/internal/services/user"
	"bankcards/internal/services/vault"
	"bankcards/internal/utils"
)

type Service interface {
	IssueCard(ctx context.Context, req IssueCardRequest) (*models.Card, error)
	// BlockCard blocks a card on behalf of its owner. Blocking an
	// already-blocked card is a business-rule violation, not a no-op.
	BlockCard(ctx context.Context, cardID, ownerID uuid.UUID) (*models.Card, error)
	// UpdateStatus is the administrative status override.
	UpdateStatus(ctx context.Context, cardID uuid.UUID, status models.CardStatus) (*models.Card, error)
	GetCard(ctx context.Context, cardID uuid.UUID) (*models.Card, error)
	GetCardForOwner(ctx context.Context, cardID, ownerID uuid.UUID) (*models.Card, error)
	ListCards(ctx context.Context, filter repositories.CardFilter, limit, offset int) ([]models.Card, int64, error)
	// DeleteCard removes a card unless a transfer currently holds its lock.
	DeleteCard(ctx context.Context, cardID uuid.UUID) error
}

type service struct {
	cards    repositories.CardRepository
	users    user.Service
	vault    vault.Service
	locks    *locker.KeyedLocker
	lockWait time.Duration
	now      func() time.Time
}

// NewService creates the card lifecycle service.
func NewService(
	cards repositories.CardRepository,
	users user.Service,
	cryptoVault vault.Service,
	locks *locker.KeyedLocker,
	lockWait time.Duration,
) Service {
	if cards == nil {
		panic("card repository is required")
	}
	if users == nil {
		panic("user service is required")
	}
	if cryptoVault == nil {
		panic("vault is required")
	}
	if locks == nil {
		panic("locker is required")
	}
	return &service{
		cards:    cards,
		users:    users,
		vault:    cryptoVault,
		locks:    locks,
		lockWait: lockWait,
		now:      time.Now,
	}
}

func (s *service) IssueCard(ctx context.Context, req IssueCardRequest) (*models.Card, error) {
	owner, err := s.users.RequireActiveUser(req.OwnerID)
	if err != nil {
		return nil, err
	}
	if !req.ExpirationDate.After(s.now()) {
		return nil, apperrors.Business("card expiration date must be in the future")
	}
	if req.InitialBalance.IsNegative() {
		return nil, apperrors.Validation("initial balance cannot be negative")
	}

	maskedNumber, err := utils.MaskCardNumber(req.CardNumber)
	if err != nil {
		return nil, err
	}

	exists, err := s.cards.ExistsByOwnerAndMask(owner.ID, maskedNumber)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if exists {
		return nil, apperrors.Business("card with the same number already exists for this owner")
	}

	encrypted, err := s.vault.Encrypt(req.CardNumber)
	if err != nil {
		return nil, err
	}

	card := &models.Card{
		OwnerID:         owner.ID,
		MaskedNumber:    maskedNumber,
		EncryptedNumber: encrypted.CipherText,
		EncryptionIV:    encrypted.IV,
		Status:          models.CardStatusActive,
		ExpirationDate:  req.ExpirationDate,
		Balance:         req.InitialBalance,
	}
	if err := s.cards.Create(card); err != nil {
		if errors.Is(err, repositories.ErrDuplicateCard) {
			return nil, apperrors.Business("card with the same number already exists for this owner")
		}
		return nil, apperrors.Internal(err)
	}
	return card, nil
}

func (s *service) BlockCard(ctx context.Context, cardID, ownerID uuid.UUID) (*models.Card, error) {
	release, err := s.acquire(ctx, cardID)
	if err != nil {
		return nil, err
	}
	defer release()

	card, err := s.cards.GetByIDAndOwner(cardID, ownerID)
	if err != nil {
		if errors.Is(err, repositories.ErrCardNotFound) {
			return nil, apperrors.NotFound("card not found for the specified owner")
		}
		return nil, apperrors.Internal(err)
	}
	if card.Status == models.CardStatusBlocked {
		return nil, apperrors.Business("card is already blocked")
	}

	if err := s.cards.UpdateStatus(cardID, models.CardStatusBlocked); err != nil {
		return nil, apperrors.Internal(err)
	}
	card.Status = models.CardStatusBlocked
	return card, nil
}

func (s *service) UpdateStatus(ctx context.Context, cardID uuid.UUID, status models.CardStatus) (*models.Card, error) {
	switch status {
	case models.CardStatusActive, models.CardStatusBlocked, models.CardStatusExpired:
	default:
		return nil, apperrors.Validationf("unknown card status %q", status)
	}

	release, err := s.acquire(ctx, cardID)
	if err != nil {
		return nil, err
	}
	defer release()

	card, err := s.requireCard(cardID)
	if err != nil {
		return nil, err
	}
	if err := s.cards.UpdateStatus(cardID, status); err != nil {
		return nil, apperrors.Internal(err)
	}
	card.Status = status
	return card, nil
}

func (s *service) GetCard(ctx context.Context, cardID uuid.UUID) (*models.Card, error) {
	return s.requireCard(cardID)
}

func (s *service) GetCardForOwner(ctx context.Context, cardID, ownerID uuid.UUID) (*models.Card, error) {
	card, err := s.cards.GetByIDAndOwner(cardID, ownerID)
	if err != nil {
		if errors.Is(err, repositories.ErrCardNotFound) {
			return nil, apperrors.NotFound("card not found for the specified owner")
		}
		return nil, apperrors.Internal(err)
	}
	return card, nil
}

func (s *service) ListCards(ctx context.Context, filter repositories.CardFilter, limit, offset int) ([]models.Card, int64, error) {
	cards, total, err := s.cards.List(filter, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	return cards, total, nil
}

func (s *service) DeleteCard(ctx context.Context, cardID uuid.UUID) error {
	release, ok := s.locks.TryAcquire(cardID)
	if !ok {
		return apperrors.Business("card is currently in use by another operation")
	}
	defer release()

	if err := s.cards.Delete(cardID); err != nil {
		if errors.Is(err, repositories.ErrCardNotFound) {
			return apperrors.NotFound("card not found")
		}
		return apperrors.Internal(err)
	}
	return nil
}

func (s *service) requireCard(cardID uuid.UUID) (*models.Card, error) {
	card, err := s.cards.GetByID(cardID)
	if err != nil {
		if errors.Is(err, repositories.ErrCardNotFound) {
			return nil, apperrors.NotFound("card not found")
		}
		return nil, apperrors.Internal(err)
	}
	return card, nil
}

func (s *service) acquire(ctx context.Context, cardID uuid.UUID) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	defer cancel()
	return s.locks.Acquire(lockCtx, cardID)
}
