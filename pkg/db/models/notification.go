package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gatepass/gatepass-backend/pkg/enums"
)

// Notification is an in-app message for a buyer, written by the notification
// worker when an order event arrives on the notification topic.
type Notification struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	OrderID   uuid.UUID              `gorm:"column:order_id;type:uuid;not null"`
	Type      enums.NotificationType `gorm:"column:type;type:notification_type_enum;not null"`
	Title     string                 `gorm:"column:title;not null"`
	Message   string                 `gorm:"column:message;not null"`
	Link      *string                `gorm:"column:link"`
	ReadAt    *time.Time             `gorm:"column:read_at"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime"`
}

func (Notification) TableName() string {
	return "notifications"
}
