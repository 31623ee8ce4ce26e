package enums

import "fmt"

// SubscriptionPlan is a seller's commercial tier. The plan held at the
// moment a payment intent is created determines the commission rate.
type SubscriptionPlan string

const (
	SubscriptionPlanFree     SubscriptionPlan = "free"
	SubscriptionPlanStandard SubscriptionPlan = "standard"
	SubscriptionPlanPremium  SubscriptionPlan = "premium"
)

var validSubscriptionPlans = []SubscriptionPlan{
	SubscriptionPlanFree,
	SubscriptionPlanStandard,
	SubscriptionPlanPremium,
}

func (s SubscriptionPlan) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SubscriptionPlan.
func (s SubscriptionPlan) IsValid() bool {
	for _, candidate := range validSubscriptionPlans {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSubscriptionPlan converts raw input into a SubscriptionPlan.
func ParseSubscriptionPlan(value string) (SubscriptionPlan, error) {
	for _, candidate := range validSubscriptionPlans {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid subscription plan %q", value)
}
