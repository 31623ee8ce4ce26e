package subscriptions

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nordicloop/nordicloop-backend/pkg/enums"
)

// Service resolves the commercial plan for a seller company.
type Service interface {
	PlanFor(ctx context.Context, companyID uuid.UUID) (enums.SubscriptionPlan, error)
}

type service struct {
	repo Repository
}

// NewService wires the subscriptions service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("subscriptions repository required")
	}
	return &service{repo: repo}, nil
}

// PlanFor returns the company's plan. Companies without a subscription
// row are on the free plan.
func (s *service) PlanFor(ctx context.Context, companyID uuid.UUID) (enums.SubscriptionPlan, error) {
	if companyID == uuid.Nil {
		return "", fmt.Errorf("company id is required")
	}
	sub, err := s.repo.FindByCompanyID(ctx, companyID)
	if err != nil {
		return "", err
	}
	if sub == nil {
		return enums.SubscriptionPlanFree, nil
	}
	if !sub.Plan.IsValid() {
		return "", fmt.Errorf("invalid plan %q for company %s", sub.Plan, companyID)
	}
	return sub.Plan, nil
}
