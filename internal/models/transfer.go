package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransferStatus enumerates card transfer outcomes. A transfer is only
// recorded after both balance mutations commit, so COMPLETED is the sole
// status this service ever persists.
type TransferStatus string

const (
	TransferStatusCompleted TransferStatus = "COMPLETED"
)

// CardTransfer is an append-only audit record of a card-to-card transfer.
// It is never updated or deleted once created.
type CardTransfer struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SourceCardID uuid.UUID       `gorm:"type:uuid;not null;index"`
	TargetCardID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount       decimal.Decimal `gorm:"not null;type:numeric(19,2)"`
	Status       TransferStatus  `gorm:"not null;size:32"`
	Description  string          `gorm:"size:255"`
	CreatedAt    time.Time

	SourceCard *Card `gorm:"foreignKey:SourceCardID"`
	TargetCard *Card `gorm:"foreignKey:TargetCardID"`
}

// BeforeCreate sets the UUID before creating the record.
func (t *CardTransfer) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
