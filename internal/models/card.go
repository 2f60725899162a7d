package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CardStatus enumerates the lifecycle states of a card.
type CardStatus string

const (
	CardStatusActive  CardStatus = "ACTIVE"
	CardStatusBlocked CardStatus = "BLOCKED"
	CardStatusExpired CardStatus = "EXPIRED"
)

// Card is a stored bank card. The primary account number is persisted
// only as an AES-GCM ciphertext plus IV; the masked number is a one-way
// display derivation and doubles as the per-owner uniqueness key.
type Card struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OwnerID         uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_cards_owner_masked"`
	MaskedNumber    string          `gorm:"not null;size:19;uniqueIndex:idx_cards_owner_masked"`
	EncryptedNumber string          `gorm:"not null;type:text"`
	EncryptionIV    string          `gorm:"not null;size:64"`
	Status          CardStatus      `gorm:"not null;size:32"`
	ExpirationDate  time.Time       `gorm:"not null;type:date"`
	Balance         decimal.Decimal `gorm:"not null;type:numeric(19,2)"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Owner *User `gorm:"foreignKey:OwnerID"`
}

// BeforeCreate sets the UUID before creating the record.
func (c *Card) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// ExpiredAt reports whether the card is unusable at t, either because an
// EXPIRED status was stored or because the expiration date has passed.
// Expiration is never written back; it is evaluated at read time. Both
// sides are compared as UTC calendar days so the answer does not depend
// on the server's time zone.
func (c *Card) ExpiredAt(t time.Time) bool {
	if c.Status == CardStatusExpired {
		return true
	}
	return truncateToDay(c.ExpirationDate).Before(truncateToDay(t))
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
