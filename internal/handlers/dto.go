package handlers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bankcards/internal/models"
)

// CardResponse is the external view of a card. The status is the
// effective one: a card past its expiration date reads as EXPIRED even
// though the stored status is never rewritten. Only the masked number is
// ever exposed.
type CardResponse struct {
	ID             uuid.UUID       `json:"id"`
	OwnerID        uuid.UUID       `json:"owner_id"`
	MaskedNumber   string          `json:"masked_number"`
	Status         string          `json:"status"`
	ExpirationDate string          `json:"expiration_date"`
	Balance        decimal.Decimal `json:"balance"`
	CreatedAt      time.Time       `json:"created_at"`
}

func newCardResponse(card *models.Card, now time.Time) CardResponse {
	status := card.Status
	if card.ExpiredAt(now) {
		status = models.CardStatusExpired
	}
	return CardResponse{
		ID:             card.ID,
		OwnerID:        card.OwnerID,
		MaskedNumber:   card.MaskedNumber,
		Status:         string(status),
		ExpirationDate: card.ExpirationDate.Format("2006-01-02"),
		Balance:        card.Balance,
		CreatedAt:      card.CreatedAt,
	}
}

func newCardResponses(cards []models.Card, now time.Time) []CardResponse {
	out := make([]CardResponse, 0, len(cards))
	for i := range cards {
		out = append(out, newCardResponse(&cards[i], now))
	}
	return out
}

type UserResponse struct {
	ID          uuid.UUID  `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email,omitempty"`
	FullName    string     `json:"full_name,omitempty"`
	Role        string     `json:"role"`
	Enabled     bool       `json:"enabled"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func newUserResponse(user *models.User) UserResponse {
	return UserResponse{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		FullName:    user.FullName,
		Role:        user.Role,
		Enabled:     user.Enabled,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
	}
}

func newUserResponses(users []models.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, newUserResponse(&users[i]))
	}
	return out
}

type TransferResponse struct {
	ID           uuid.UUID       `json:"id"`
	SourceCardID uuid.UUID       `json:"source_card_id"`
	TargetCardID uuid.UUID       `json:"target_card_id"`
	Amount       decimal.Decimal `json:"amount"`
	Status       string          `json:"status"`
	Description  string          `json:"description,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

func newTransferResponse(t *models.CardTransfer) TransferResponse {
	return TransferResponse{
		ID:           t.ID,
		SourceCardID: t.SourceCardID,
		TargetCardID: t.TargetCardID,
		Amount:       t.Amount,
		Status:       string(t.Status),
		Description:  t.Description,
		CreatedAt:    t.CreatedAt,
	}
}

func newTransferResponses(transfers []models.CardTransfer) []TransferResponse {
	out := make([]TransferResponse, 0, len(transfers))
	for i := range transfers {
		out = append(out, newTransferResponse(&transfers[i]))
	}
	return out
}
