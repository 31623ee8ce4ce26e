package types

import (
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// SettlementEventRow mirrors the settlement_events BigQuery schema. One
// row per settlement event; the stats queries aggregate over it.
type SettlementEventRow struct {
	EventID           string             `bigquery:"event_id"`
	EventType         string             `bigquery:"event_type"`
	OccurredAt        time.Time          `bigquery:"occurred_at"`
	PaymentIntentID   *string            `bigquery:"payment_intent_id"`
	PayoutScheduleID  *string            `bigquery:"payout_schedule_id"`
	BidID             *string            `bigquery:"bid_id"`
	BuyerCompanyID    *string            `bigquery:"buyer_company_id"`
	SellerCompanyID   *string            `bigquery:"seller_company_id"`
	Currency          *string            `bigquery:"currency"`
	AmountCents       *int64             `bigquery:"amount_cents"`
	CommissionCents   *int64             `bigquery:"commission_cents"`
	SellerAmountCents *int64             `bigquery:"seller_amount_cents"`
	FailureCode       *string            `bigquery:"failure_code"`
	Payload           cbigquery.NullJSON `bigquery:"payload"`
}
