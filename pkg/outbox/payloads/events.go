package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/nordicloop/nordicloop-backend/pkg/enums"
)

// PaymentSucceededEvent is emitted once per intent when the gateway
// confirms capture and funds are settled into the ledger.
type PaymentSucceededEvent struct {
	PaymentIntentID   uuid.UUID `json:"payment_intent_id"`
	BidID             uuid.UUID `json:"bid_id"`
	BuyerCompanyID    uuid.UUID `json:"buyer_company_id"`
	SellerCompanyID   uuid.UUID `json:"seller_company_id"`
	AmountCents       int64     `json:"amount_cents"`
	CommissionCents   int64     `json:"commission_cents"`
	SellerAmountCents int64     `json:"seller_amount_cents"`
	Currency          string    `json:"currency"`
	SucceededAt       time.Time `json:"succeeded_at"`
}

// PaymentFailedEvent reports a declined or errored charge attempt.
type PaymentFailedEvent struct {
	PaymentIntentID uuid.UUID `json:"payment_intent_id"`
	BidID           uuid.UUID `json:"bid_id"`
	BuyerCompanyID  uuid.UUID `json:"buyer_company_id"`
	SellerCompanyID uuid.UUID `json:"seller_company_id"`
	FailureCode     string    `json:"failure_code,omitempty"`
	FailureMessage  string    `json:"failure_message,omitempty"`
	FailedAt        time.Time `json:"failed_at"`
}

// PayoutScheduledEvent announces that seller funds entered the holdback
// window and have a target release date.
type PayoutScheduledEvent struct {
	PayoutScheduleID uuid.UUID `json:"payout_schedule_id"`
	PaymentIntentID  uuid.UUID `json:"payment_intent_id"`
	SellerCompanyID  uuid.UUID `json:"seller_company_id"`
	AmountCents      int64     `json:"amount_cents"`
	Currency         string    `json:"currency"`
	ScheduledFor     time.Time `json:"scheduled_for"`
}

// PayoutPaidEvent confirms the transfer reached the seller account.
type PayoutPaidEvent struct {
	PayoutScheduleID  uuid.UUID `json:"payout_schedule_id"`
	PaymentIntentID   uuid.UUID `json:"payment_intent_id"`
	SellerCompanyID   uuid.UUID `json:"seller_company_id"`
	AmountCents       int64     `json:"amount_cents"`
	Currency          string    `json:"currency"`
	GatewayTransferID string    `json:"gateway_transfer_id"`
	PaidAt            time.Time `json:"paid_at"`
}

// PayoutFailedEvent reports a transfer the gateway rejected. The
// schedule stays in the run queue, so the same schedule can fail more
// than once.
type PayoutFailedEvent struct {
	PayoutScheduleID uuid.UUID `json:"payout_schedule_id"`
	PaymentIntentID  uuid.UUID `json:"payment_intent_id"`
	SellerCompanyID  uuid.UUID `json:"seller_company_id"`
	AmountCents      int64     `json:"amount_cents"`
	FailureReason    string    `json:"failure_reason,omitempty"`
	FailedAt         time.Time `json:"failed_at"`
}

// SellerAccountUpdatedEvent mirrors onboarding state changes pulled
// from the gateway.
type SellerAccountUpdatedEvent struct {
	SellerAccountID  uuid.UUID           `json:"seller_account_id"`
	CompanyID        uuid.UUID           `json:"company_id"`
	GatewayAccountID string              `json:"gateway_account_id"`
	Status           enums.AccountStatus `json:"status"`
	PayoutsEnabled   bool                `json:"payouts_enabled"`
	UpdatedAt        time.Time           `json:"updated_at"`
}
