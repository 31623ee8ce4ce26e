package enums

import "fmt"

// PaymentIntentStatus tracks the lifecycle of a payment intent.
// Succeeded and canceled are terminal; failed may be retried with a new intent.
type PaymentIntentStatus string

const (
	PaymentIntentStatusRequiresPaymentMethod PaymentIntentStatus = "requires_payment_method"
	PaymentIntentStatusProcessing            PaymentIntentStatus = "processing"
	PaymentIntentStatusSucceeded             PaymentIntentStatus = "succeeded"
	PaymentIntentStatusFailed                PaymentIntentStatus = "failed"
	PaymentIntentStatusCanceled              PaymentIntentStatus = "canceled"
)

var validPaymentIntentStatuses = []PaymentIntentStatus{
	PaymentIntentStatusRequiresPaymentMethod,
	PaymentIntentStatusProcessing,
	PaymentIntentStatusSucceeded,
	PaymentIntentStatusFailed,
	PaymentIntentStatusCanceled,
}

// String implements fmt.Stringer.
func (p PaymentIntentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentIntentStatus.
func (p PaymentIntentStatus) IsValid() bool {
	for _, candidate := range validPaymentIntentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status permits no further transitions.
func (p PaymentIntentStatus) IsTerminal() bool {
	return p == PaymentIntentStatusSucceeded || p == PaymentIntentStatusCanceled
}

// CanTransitionTo reports whether moving from p to target is a legal
// state-machine move. Identical states are not a transition.
func (p PaymentIntentStatus) CanTransitionTo(target PaymentIntentStatus) bool {
	if p == target || p.IsTerminal() {
		return false
	}
	switch target {
	case PaymentIntentStatusProcessing:
		return p == PaymentIntentStatusRequiresPaymentMethod
	case PaymentIntentStatusSucceeded, PaymentIntentStatusCanceled:
		return true
	case PaymentIntentStatusFailed:
		return p == PaymentIntentStatusRequiresPaymentMethod || p == PaymentIntentStatusProcessing
	default:
		return false
	}
}

// ParsePaymentIntentStatus converts raw input into a PaymentIntentStatus.
func ParsePaymentIntentStatus(value string) (PaymentIntentStatus, error) {
	for _, candidate := range validPaymentIntentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment intent status %q", value)
}
