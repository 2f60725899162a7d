// Package transfer implements atomic card-to-card transfers. Both card
// locks are taken in ascending card-id order before any validation, so
// mirrored concurrent transfers (A->B and B->A) cannot deadlock, and the
// two balance updates plus the transfer record commit as one database
// transaction.
package transfer

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bankcards/internal/apperrors"
	"bankcards/internal/locker"
	"bankcards/internal/models"
	"bankcards/internal/repositories"
)

const maxDescriptionLength = 255

// Request carries the inputs for one transfer between the caller's cards.
type Request struct {
	SourceCardID uuid.UUID
	TargetCardID uuid.UUID
	Amount       decimal.Decimal
	Description  string
}

type Service interface {
	// Transfer moves Amount from the source card to the target card.
	// Both cards must belong to userID. Validation failures are terminal
	// for the request; nothing is persisted unless the whole transfer
	// commits.
	Transfer(ctx context.Context, userID uuid.UUID, req Request) (*models.CardTransfer, error)
	// GetUserTransfers lists transfers touching any of the user's cards,
	// newest first.
	GetUserTransfers(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.CardTransfer, int64, error)
	// GetTransfer fetches a single transfer by id. A transfer touching
	// none of the user's cards reads as not found, so ids cannot be
	// probed across accounts.
	GetTransfer(ctx context.Context, userID, transferID uuid.UUID) (*models.CardTransfer, error)
}

type service struct {
	cards     repositories.CardRepository
	transfers repositories.TransferRepository
	locks     *locker.KeyedLocker
	lockWait  time.Duration
	now       func() time.Time
}

// NewService creates the transfer engine.
func NewService(
	cards repositories.CardRepository,
	transfers repositories.TransferRepository,
	locks *locker.KeyedLocker,
	lockWait time.Duration,
) Service {
	if cards == nil {
		panic("card repository is required")
	}
	if transfers == nil {
		panic("transfer repository is required")
	}
	if locks == nil {
		panic("locker is required")
	}
	return &service{
		cards:     cards,
		transfers: transfers,
		locks:     locks,
		lockWait:  lockWait,
		now:       time.Now,
	}
}

func (s *service) Transfer(ctx context.Context, userID uuid.UUID, req Request) (*models.CardTransfer, error) {
	if !req.Amount.IsPositive() {
		return nil, apperrors.Validation("transfer amount must be greater than zero")
	}
	if len(req.Description) > maxDescriptionLength {
		return nil, apperrors.Validation("description must not exceed 255 characters")
	}
	if req.SourceCardID == req.TargetCardID {
		return nil, apperrors.Business("source and target cards must differ")
	}

	lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	defer cancel()
	release, err := s.locks.AcquirePair(lockCtx, req.SourceCardID, req.TargetCardID)
	if err != nil {
		return nil, err
	}
	defer release()

	var transfer *models.CardTransfer
	err = s.cards.ExecuteInTransaction(func(tx repositories.CardRepository) error {
		source, target, err := s.lockRows(tx, req.SourceCardID, req.TargetCardID)
		if err != nil {
			return err
		}

		if source.OwnerID != userID || target.OwnerID != userID {
			return apperrors.Business("cards must belong to the authenticated user")
		}
		if err := s.ensureTransferable(source); err != nil {
			return err
		}
		if err := s.ensureTransferable(target); err != nil {
			return err
		}
		if source.Balance.LessThan(req.Amount) {
			return apperrors.Business("insufficient funds on the source card")
		}

		newSourceBalance := source.Balance.Sub(req.Amount)
		newTargetBalance := target.Balance.Add(req.Amount)
		// Re-assert the ledger invariant before committing, not just the
		// funds precondition above.
		if newSourceBalance.IsNegative() || newTargetBalance.IsNegative() {
			return apperrors.Business("card balance cannot become negative")
		}

		if err := tx.UpdateBalance(source.ID, newSourceBalance); err != nil {
			return err
		}
		if err := tx.UpdateBalance(target.ID, newTargetBalance); err != nil {
			return err
		}

		transfer = &models.CardTransfer{
			SourceCardID: source.ID,
			TargetCardID: target.ID,
			Amount:       req.Amount,
			Status:       models.TransferStatusCompleted,
			Description:  req.Description,
		}
		return tx.CreateTransfer(transfer)
	})
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindInternal {
			return nil, apperrors.Internal(err)
		}
		return nil, err
	}
	return transfer, nil
}

func (s *service) GetUserTransfers(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.CardTransfer, int64, error) {
	transfers, total, err := s.transfers.GetForUser(userID, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	return transfers, total, nil
}

func (s *service) GetTransfer(ctx context.Context, userID, transferID uuid.UUID) (*models.CardTransfer, error) {
	transfer, err := s.transfers.GetByID(transferID)
	if err != nil {
		if errors.Is(err, repositories.ErrTransferNotFound) {
			return nil, apperrors.NotFound("transfer not found")
		}
		return nil, apperrors.Internal(err)
	}
	if !s.ownsCard(transfer.SourceCardID, userID) && !s.ownsCard(transfer.TargetCardID, userID) {
		return nil, apperrors.NotFound("transfer not found")
	}
	return transfer, nil
}

func (s *service) ownsCard(cardID, userID uuid.UUID) bool {
	card, err := s.cards.GetByID(cardID)
	if err != nil {
		return false
	}
	return card.OwnerID == userID
}

// lockRows reads both cards with row-level locks, in the same ascending
// id order used for the in-process locks.
func (s *service) lockRows(tx repositories.CardRepository, sourceID, targetID uuid.UUID) (*models.Card, *models.Card, error) {
	firstID, secondID := sourceID, targetID
	if bytes.Compare(secondID[:], firstID[:]) < 0 {
		firstID, secondID = secondID, firstID
	}

	first, err := s.lockRow(tx, firstID)
	if err != nil {
		return nil, nil, err
	}
	second, err := s.lockRow(tx, secondID)
	if err != nil {
		return nil, nil, err
	}

	if first.ID == sourceID {
		return first, second, nil
	}
	return second, first, nil
}

func (s *service) lockRow(tx repositories.CardRepository, id uuid.UUID) (*models.Card, error) {
	card, err := tx.GetByIDForUpdate(id)
	if err != nil {
		if errors.Is(err, repositories.ErrCardNotFound) {
			return nil, apperrors.NotFound("card not found")
		}
		return nil, err
	}
	return card, nil
}

func (s *service) ensureTransferable(card *models.Card) error {
	if card.Status == models.CardStatusBlocked {
		return apperrors.Business("card is blocked")
	}
	if card.ExpiredAt(s.now()) {
		return apperrors.Business("card is expired")
	}
	return nil
}
