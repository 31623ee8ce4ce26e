package types

import "time"

// StatsRequest carries the input parameters for settlement stats queries.
type StatsRequest struct {
	Start time.Time
	End   time.Time
}

// TimeSeriesPoint describes a single date/value pair returned by the query service.
type TimeSeriesPoint struct {
	Date  string `json:"date"`
	Value int64  `json:"value"`
}

// StatsResponse wraps the platform settlement KPIs for the admin dashboard.
type StatsResponse struct {
	PaymentsSucceeded      int64             `json:"payments_succeeded"`
	PaymentsFailed         int64             `json:"payments_failed"`
	GrossVolumeCents       int64             `json:"gross_volume_cents"`
	CommissionCents        int64             `json:"commission_cents"`
	SellerAmountCents      int64             `json:"seller_amount_cents"`
	PayoutsPaid            int64             `json:"payouts_paid"`
	PayoutsFailed          int64             `json:"payouts_failed"`
	PayoutVolumeCents      int64             `json:"payout_volume_cents"`
	DailyGrossVolume       []TimeSeriesPoint `json:"daily_gross_volume"`
	DailyCommission        []TimeSeriesPoint `json:"daily_commission"`
	DailyPaymentsSucceeded []TimeSeriesPoint `json:"daily_payments_succeeded"`
}
