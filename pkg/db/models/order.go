package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gatepass/gatepass-backend/pkg/enums"
)

// Order is the durable record of a ticket purchase. Status transitions are
// the only permitted mutation path once the order is pending.
type Order struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID         `gorm:"column:user_id;type:uuid;not null"`
	EventID       uuid.UUID         `gorm:"column:event_id;type:uuid;not null"`
	Status        enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending'"`
	Currency      enums.Currency    `gorm:"column:currency;type:text;not null;default:'USD'"`
	SubtotalCents int               `gorm:"column:subtotal_cents;not null"`
	FeeCents      int               `gorm:"column:fee_cents;not null;default:0"`
	TaxCents      int               `gorm:"column:tax_cents;not null;default:0"`
	TotalCents    int               `gorm:"column:total_cents;not null"`
	ExpiresAt     time.Time         `gorm:"column:expires_at;not null"`
	CompletedAt   *time.Time        `gorm:"column:completed_at"`
	CancelledAt   *time.Time        `gorm:"column:cancelled_at"`
	RefundedAt    *time.Time        `gorm:"column:refunded_at"`
	Items         []OrderLineItem   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	PaymentIntent *PaymentIntent    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
