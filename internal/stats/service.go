package stats

import (
	"context"
	"fmt"

	"github.com/nordicloop/nordicloop-backend/internal/stats/query"
	"github.com/nordicloop/nordicloop-backend/internal/stats/types"
	"github.com/nordicloop/nordicloop-backend/pkg/bigquery"
)

// Service provides settlement reports based on settlement events.
type Service interface {
	// Stats returns platform settlement KPIs for the provided request.
	Stats(ctx context.Context, req types.StatsRequest) (*types.StatsResponse, error)
}

type service struct {
	settlement query.SettlementService
}

// NewService builds a stats service backed by BigQuery.
func NewService(client *bigquery.Client, project, dataset, table string) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("bigquery client required")
	}

	settlement, err := query.NewSettlementService(client, project, dataset, table)
	if err != nil {
		return nil, err
	}

	return &service{settlement: settlement}, nil
}

func (s *service) Stats(ctx context.Context, req types.StatsRequest) (*types.StatsResponse, error) {
	return s.settlement.Stats(ctx, req)
}
