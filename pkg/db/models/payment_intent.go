package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nordicloop/nordicloop-backend/pkg/enums"
)

// PaymentIntent tracks payment progress for a won bid. Amounts are
// integer minor units; CommissionRate is the percentage frozen at
// creation time, so later plan changes never reprice an open intent.
type PaymentIntent struct {
	ID                  uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BidID               uuid.UUID                 `gorm:"column:bid_id;type:uuid;not null;index"`
	BuyerCompanyID      uuid.UUID                 `gorm:"column:buyer_company_id;type:uuid;not null;index"`
	SellerCompanyID     uuid.UUID                 `gorm:"column:seller_company_id;type:uuid;not null;index"`
	AmountCents         int64                     `gorm:"column:amount_cents;not null"`
	CommissionCents     int64                     `gorm:"column:commission_cents;not null"`
	SellerAmountCents   int64                     `gorm:"column:seller_amount_cents;not null"`
	CommissionRate      decimal.Decimal           `gorm:"column:commission_rate;type:numeric(5,2);not null"`
	Currency            enums.Currency            `gorm:"column:currency;type:text;not null;default:'sek'"`
	Status              enums.PaymentIntentStatus `gorm:"column:status;type:payment_intent_status;not null;default:'requires_payment_method'"`
	GatewayIntentID     *string                   `gorm:"column:gateway_intent_id;uniqueIndex"`
	GatewayClientSecret *string                   `gorm:"column:gateway_client_secret"`
	FailureCode         *string                   `gorm:"column:failure_code"`
	FailureMessage      *string                   `gorm:"column:failure_message"`
	SucceededAt         *time.Time                `gorm:"column:succeeded_at"`
	CanceledAt          *time.Time                `gorm:"column:canceled_at"`
	CreatedAt           time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

// IsOpen reports whether the intent still accepts payment attempts.
func (p PaymentIntent) IsOpen() bool {
	return !p.Status.IsTerminal() && p.Status != enums.PaymentIntentStatusFailed
}
