package enums

// NotificationType maps to the notification_type_enum in Postgres.
type NotificationType string

const (
	NotificationTypeOrder  NotificationType = "order"
	NotificationTypeRefund NotificationType = "refund"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrder,
	NotificationTypeRefund,
}

func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if n == candidate {
			return true
		}
	}
	return false
}
