package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gatepass/gatepass-backend/pkg/enums"
)

// PaymentIntent stores the external processor reference for an order. The
// provider payment id is opaque; its lifetime is bounded by the order's.
type PaymentIntent struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID           `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	ProviderPaymentID *string             `gorm:"column:provider_payment_id;uniqueIndex"`
	Status            enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'created'"`
	AmountCents       int                 `gorm:"column:amount_cents;not null"`
	Currency          enums.Currency      `gorm:"column:currency;type:text;not null;default:'USD'"`
	FailureReason     *string             `gorm:"column:failure_reason"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
