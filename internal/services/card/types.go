package card

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IssueCardRequest carries the inputs for issuing a new card. CardNumber
// is the plaintext PAN; it is encrypted before anything is persisted and
// never stored or logged in the clear.
type IssueCardRequest struct {
	OwnerID        uuid.UUID
	CardNumber     string
	ExpirationDate time.Time
	InitialBalance decimal.Decimal
}
