package enums

import "fmt"

// NotificationType identifies the settlement event a notification describes.
type NotificationType string

const (
	NotificationTypePaymentReceived NotificationType = "payment_received"
	NotificationTypePaymentFailed   NotificationType = "payment_failed"
	NotificationTypeSaleCompleted   NotificationType = "sale_completed"
	NotificationTypePayoutScheduled NotificationType = "payout_scheduled"
	NotificationTypePayoutPaid      NotificationType = "payout_paid"
	NotificationTypePayoutFailed    NotificationType = "payout_failed"
	NotificationTypeAccountAction   NotificationType = "account_action_required"
)

var validNotificationTypes = []NotificationType{
	NotificationTypePaymentReceived,
	NotificationTypePaymentFailed,
	NotificationTypeSaleCompleted,
	NotificationTypePayoutScheduled,
	NotificationTypePayoutPaid,
	NotificationTypePayoutFailed,
	NotificationTypeAccountAction,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
