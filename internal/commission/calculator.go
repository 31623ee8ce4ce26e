package commission

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/nordicloop/nordicloop-backend/pkg/enums"
)

// Plan rates as percentages. Premium sellers pay no commission.
var ratesByPlan = map[enums.SubscriptionPlan]decimal.Decimal{
	enums.SubscriptionPlanFree:     decimal.NewFromFloat(9.00),
	enums.SubscriptionPlanStandard: decimal.NewFromFloat(7.00),
	enums.SubscriptionPlanPremium:  decimal.Zero,
}

// Split is the outcome of applying a commission rate to a total.
// CommissionCents + SellerCents always equals the input total.
type Split struct {
	Rate            decimal.Decimal
	CommissionCents int64
	SellerCents     int64
}

// RateFor returns the commission percentage for a seller plan.
func RateFor(plan enums.SubscriptionPlan) (decimal.Decimal, error) {
	rate, ok := ratesByPlan[plan]
	if !ok {
		return decimal.Zero, fmt.Errorf("no commission rate for plan %q", plan)
	}
	return rate, nil
}

// Calculate splits a total amount in minor units using the plan's rate.
// The commission is rounded half to even; the seller share is the
// remainder, so no öre is ever created or destroyed.
func Calculate(totalCents int64, plan enums.SubscriptionPlan) (Split, error) {
	rate, err := RateFor(plan)
	if err != nil {
		return Split{}, err
	}
	return CalculateWithRate(totalCents, rate)
}

// CalculateWithRate splits a total using an explicit rate. Payment
// completion re-runs the split with the rate frozen on the intent, so
// plan changes mid-flight never reprice.
func CalculateWithRate(totalCents int64, rate decimal.Decimal) (Split, error) {
	if totalCents <= 0 {
		return Split{}, fmt.Errorf("total must be positive, got %d", totalCents)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return Split{}, fmt.Errorf("rate must be within [0, 100], got %s", rate)
	}

	commission := decimal.NewFromInt(totalCents).
		Mul(rate).
		Div(decimal.NewFromInt(100)).
		RoundBank(0)

	commissionCents := commission.IntPart()
	return Split{
		Rate:            rate,
		CommissionCents: commissionCents,
		SellerCents:     totalCents - commissionCents,
	}, nil
}
