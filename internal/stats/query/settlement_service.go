package query

import (
	"context"
	"fmt"

	cloudbigquery "cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/nordicloop/nordicloop-backend/internal/stats/types"
	"github.com/nordicloop/nordicloop-backend/pkg/bigquery"
	pkgerrors "github.com/nordicloop/nordicloop-backend/pkg/errors"
)

const (
	totalsSQL = `
SELECT
  COUNTIF(event_type = 'payment.succeeded') AS payments_succeeded,
  COUNTIF(event_type = 'payment.failed') AS payments_failed,
  SUM(IF(event_type = 'payment.succeeded', COALESCE(amount_cents, 0), 0)) AS gross_volume_cents,
  SUM(IF(event_type = 'payment.succeeded', COALESCE(commission_cents, 0), 0)) AS commission_cents,
  SUM(IF(event_type = 'payment.succeeded', COALESCE(seller_amount_cents, 0), 0)) AS seller_amount_cents,
  COUNTIF(event_type = 'payout.paid') AS payouts_paid,
  COUNTIF(event_type = 'payout.failed') AS payouts_failed,
  SUM(IF(event_type = 'payout.paid', COALESCE(amount_cents, 0), 0)) AS payout_volume_cents
FROM %s
WHERE occurred_at BETWEEN @start AND @end
`

	dailySumSQL = `
SELECT
  FORMAT_DATE('%%F', DATE_TRUNC(occurred_at, DAY)) AS day,
  SUM(COALESCE(%s, 0)) AS value
FROM %s
WHERE event_type = 'payment.succeeded'
  AND occurred_at BETWEEN @start AND @end
GROUP BY day
ORDER BY day ASC
`

	dailyCountSQL = `
SELECT
  FORMAT_DATE('%%F', DATE_TRUNC(occurred_at, DAY)) AS day,
  COUNT(*) AS value
FROM %s
WHERE event_type = 'payment.succeeded'
  AND occurred_at BETWEEN @start AND @end
GROUP BY day
ORDER BY day ASC
`
)

// SettlementService provides platform settlement KPIs from BigQuery.
type SettlementService interface {
	Stats(ctx context.Context, req types.StatsRequest) (*types.StatsResponse, error)
}

type settlementService struct {
	client   *bigquery.Client
	tableRef string
}

// NewSettlementService builds a service backed by BigQuery.
func NewSettlementService(client *bigquery.Client, project, dataset, table string) (SettlementService, error) {
	if client == nil {
		return nil, fmt.Errorf("bigquery client required")
	}
	if project == "" || dataset == "" || table == "" {
		return nil, fmt.Errorf("project, dataset, and table are required")
	}
	return &settlementService{
		client:   client,
		tableRef: fmt.Sprintf("`%s.%s.%s`", project, dataset, table),
	}, nil
}

func (s *settlementService) Stats(ctx context.Context, req types.StatsRequest) (*types.StatsResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	params := []cloudbigquery.QueryParameter{
		{Name: "start", Value: req.Start},
		{Name: "end", Value: req.End},
	}

	totals, err := s.queryTotals(ctx, fmt.Sprintf(totalsSQL, s.tableRef), params)
	if err != nil {
		return nil, err
	}

	grossSeries, err := s.querySeries(ctx, fmt.Sprintf(dailySumSQL, "amount_cents", s.tableRef), params)
	if err != nil {
		return nil, err
	}
	commissionSeries, err := s.querySeries(ctx, fmt.Sprintf(dailySumSQL, "commission_cents", s.tableRef), params)
	if err != nil {
		return nil, err
	}
	countSeries, err := s.querySeries(ctx, fmt.Sprintf(dailyCountSQL, s.tableRef), params)
	if err != nil {
		return nil, err
	}

	totals.DailyGrossVolume = grossSeries
	totals.DailyCommission = commissionSeries
	totals.DailyPaymentsSucceeded = countSeries
	return totals, nil
}

func validateRequest(req types.StatsRequest) error {
	if req.Start.IsZero() || req.End.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "start and end are required")
	}
	if req.End.Before(req.Start) {
		return pkgerrors.New(pkgerrors.CodeValidation, "end must be after start")
	}
	return nil
}

func (s *settlementService) queryTotals(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) (*types.StatsResponse, error) {
	iter, err := s.client.Query(ctx, sql, params)
	if err != nil {
		return nil, fmt.Errorf("query totals: %w", err)
	}

	var row struct {
		PaymentsSucceeded cloudbigquery.NullInt64 `bigquery:"payments_succeeded"`
		PaymentsFailed    cloudbigquery.NullInt64 `bigquery:"payments_failed"`
		GrossVolumeCents  cloudbigquery.NullInt64 `bigquery:"gross_volume_cents"`
		CommissionCents   cloudbigquery.NullInt64 `bigquery:"commission_cents"`
		SellerAmountCents cloudbigquery.NullInt64 `bigquery:"seller_amount_cents"`
		PayoutsPaid       cloudbigquery.NullInt64 `bigquery:"payouts_paid"`
		PayoutsFailed     cloudbigquery.NullInt64 `bigquery:"payouts_failed"`
		PayoutVolumeCents cloudbigquery.NullInt64 `bigquery:"payout_volume_cents"`
	}
	if err := iter.Next(&row); err != nil && err != iterator.Done {
		return nil, fmt.Errorf("reading totals row: %w", err)
	}

	return &types.StatsResponse{
		PaymentsSucceeded: row.PaymentsSucceeded.Int64,
		PaymentsFailed:    row.PaymentsFailed.Int64,
		GrossVolumeCents:  row.GrossVolumeCents.Int64,
		CommissionCents:   row.CommissionCents.Int64,
		SellerAmountCents: row.SellerAmountCents.Int64,
		PayoutsPaid:       row.PayoutsPaid.Int64,
		PayoutsFailed:     row.PayoutsFailed.Int64,
		PayoutVolumeCents: row.PayoutVolumeCents.Int64,
	}, nil
}

func (s *settlementService) querySeries(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) ([]types.TimeSeriesPoint, error) {
	iter, err := s.client.Query(ctx, sql, params)
	if err != nil {
		return nil, fmt.Errorf("query series: %w", err)
	}

	var points []types.TimeSeriesPoint
	for {
		var row struct {
			Day   string `bigquery:"day"`
			Value int64  `bigquery:"value"`
		}
		if err := iter.Next(&row); err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("reading series row: %w", err)
		}
		points = append(points, types.TimeSeriesPoint{Date: row.Day, Value: row.Value})
	}
	return points, nil
}
