package enums

import "fmt"

// OutboxAggregateType names the entity an outbox event is keyed on.
type OutboxAggregateType string

const (
	AggregatePaymentIntent OutboxAggregateType = "payment_intent"
	AggregatePayout        OutboxAggregateType = "payout"
	AggregateSellerAccount OutboxAggregateType = "seller_account"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregatePaymentIntent,
	AggregatePayout,
	AggregateSellerAccount,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType names an integration event emitted through the
// transactional outbox.
type OutboxEventType string

const (
	EventPaymentSucceeded     OutboxEventType = "payment.succeeded"
	EventPaymentFailed        OutboxEventType = "payment.failed"
	EventPayoutScheduled      OutboxEventType = "payout.scheduled"
	EventPayoutPaid           OutboxEventType = "payout.paid"
	EventPayoutFailed         OutboxEventType = "payout.failed"
	EventSellerAccountUpdated OutboxEventType = "seller_account.updated"
)

var validOutboxEventTypes = []OutboxEventType{
	EventPaymentSucceeded,
	EventPaymentFailed,
	EventPayoutScheduled,
	EventPayoutPaid,
	EventPayoutFailed,
	EventSellerAccountUpdated,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
