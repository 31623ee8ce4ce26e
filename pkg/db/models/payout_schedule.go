package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/nordicloop/nordicloop-backend/pkg/enums"
)

// PayoutSchedule holds a seller's proceeds until the hold window
// elapses, then the payout worker transfers them.
type PayoutSchedule struct {
	ID                       uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PaymentIntentID          uuid.UUID          `gorm:"column:payment_intent_id;type:uuid;not null;uniqueIndex"`
	SellerCompanyID          uuid.UUID          `gorm:"column:seller_company_id;type:uuid;not null;index"`
	AmountCents              int64              `gorm:"column:amount_cents;not null"`
	Currency                 enums.Currency     `gorm:"column:currency;type:text;not null;default:'sek'"`
	Status                   enums.PayoutStatus `gorm:"column:status;type:payout_status;not null;default:'scheduled'"`
	ScheduledFor             time.Time          `gorm:"column:scheduled_for;not null;index"`
	AttemptCount             int                `gorm:"column:attempt_count;not null;default:0"`
	NextAttemptAt            *time.Time         `gorm:"column:next_attempt_at"`
	LastError                *string            `gorm:"column:last_error"`
	RequiresManualProcessing bool               `gorm:"column:requires_manual_processing;not null;default:false"`
	GatewayPayoutID          *string            `gorm:"column:gateway_payout_id"`
	PaidAt                   *time.Time         `gorm:"column:paid_at"`
	CreatedAt                time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
