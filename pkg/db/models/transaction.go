package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/nordicloop/nordicloop-backend/pkg/enums"
)

// Transaction is an append-only ledger entry derived from a succeeded
// payment. A completed entry is never updated again.
type Transaction struct {
	ID               uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PaymentIntentID  uuid.UUID               `gorm:"column:payment_intent_id;type:uuid;not null;index"`
	BidID            uuid.UUID               `gorm:"column:bid_id;type:uuid;not null;index"`
	CompanyID        uuid.UUID               `gorm:"column:company_id;type:uuid;not null;index"`
	Type             enums.TransactionType   `gorm:"column:type;type:transaction_type;not null"`
	Status           enums.TransactionStatus `gorm:"column:status;type:transaction_status;not null;default:'pending'"`
	AmountCents      int64                   `gorm:"column:amount_cents;not null"`
	Currency         enums.Currency          `gorm:"column:currency;type:text;not null;default:'sek'"`
	GatewayReference *string                 `gorm:"column:gateway_reference"`
	Description      string                  `gorm:"column:description;type:text;not null"`
	CompletedAt      *time.Time              `gorm:"column:completed_at"`
	CreatedAt        time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
